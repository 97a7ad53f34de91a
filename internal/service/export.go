package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/templui/repcycle/internal/model"
	"github.com/templui/repcycle/internal/repository"
	"github.com/templui/repcycle/internal/storage"
	"github.com/templui/repcycle/internal/validation"
	"golang.org/x/text/cases"
)

var ErrArchiveDisabled = errors.New("cycle archiving is not configured")

// CycleExport is the downloadable snapshot of one microcycle.
type CycleExport struct {
	Microcycle int          `json:"microcycle"`
	ExportedAt time.Time    `json:"exported_at"`
	Goals      []model.Goal `json:"goals"`
}

type Archive struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ExportService struct {
	goals         repository.GoalRepository
	storage       storage.Storage
	presignExpiry time.Duration
}

// NewExportService accepts a nil storage; Archive then fails with ErrArchiveDisabled.
func NewExportService(goals repository.GoalRepository, st storage.Storage, presignExpiry time.Duration) *ExportService {
	return &ExportService{
		goals:         goals,
		storage:       st,
		presignExpiry: presignExpiry,
	}
}

func (s *ExportService) Export(ctx context.Context, owner string, cycle int) (*CycleExport, error) {
	if err := validation.ValidateCycle(cycle); err != nil {
		return nil, newValidationError("microcycle", err)
	}

	goals, err := s.goals.Goals(ctx, repository.GoalFilter{
		UserID:     owner,
		Microcycle: cycle,
		OrderBy:    repository.GoalOrderID,
	})
	if err != nil {
		return nil, remoteError("export goals", err)
	}
	if goals == nil {
		goals = []model.Goal{}
	}

	return &CycleExport{
		Microcycle: cycle,
		ExportedAt: time.Now().UTC(),
		Goals:      goals,
	}, nil
}

// Categories lists the distinct categories used in a microcycle. Spellings that
// only differ in case collapse to the first one seen.
func (s *ExportService) Categories(ctx context.Context, owner string, cycle int) ([]string, error) {
	goals, err := s.goals.Goals(ctx, repository.GoalFilter{
		UserID:     owner,
		Microcycle: cycle,
		OrderBy:    repository.GoalOrderID,
	})
	if err != nil {
		return nil, remoteError("list categories", err)
	}

	// a Caser is stateful, so one per call
	fold := cases.Fold()
	seen := make(map[string]struct{})
	categories := []string{}
	for _, goal := range goals {
		for _, category := range goal.Categories {
			key := fold.String(category)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			categories = append(categories, category)
		}
	}
	return categories, nil
}

// Archive uploads the microcycle snapshot and returns a temporary download link.
func (s *ExportService) Archive(ctx context.Context, owner string, cycle int) (*Archive, error) {
	if s.storage == nil {
		return nil, ErrArchiveDisabled
	}

	export, err := s.Export(ctx, owner, cycle)
	if err != nil {
		return nil, err
	}

	body, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	key := ArchiveKey(owner, cycle, export.ExportedAt)
	if err := s.storage.Save(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		return nil, remoteError("upload archive", err)
	}

	url, err := s.storage.PresignedURL(ctx, key, s.presignExpiry)
	if err != nil {
		return nil, remoteError("presign archive", err)
	}

	slog.Info("microcycle archived", "user_id", owner, "microcycle", cycle, "key", key)
	return &Archive{
		Key:       key,
		URL:       url,
		ExpiresAt: time.Now().Add(s.presignExpiry),
	}, nil
}

func ArchiveKey(owner string, cycle int, at time.Time) string {
	return fmt.Sprintf("archives/%s/microcycle-%d-%s.json", owner, cycle, at.UTC().Format("20060102T150405Z"))
}
