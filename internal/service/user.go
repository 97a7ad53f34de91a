package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/templui/repcycle/internal/model"
	"github.com/templui/repcycle/internal/repository"
	"github.com/templui/repcycle/internal/validation"
)

var (
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
)

type UserService struct {
	userRepository repository.UserRepository
	authService    *AuthService
	emailService   *EmailService
}

func NewUserService(
	userRepository repository.UserRepository,
	authService *AuthService,
	emailService *EmailService,
) *UserService {
	return &UserService{
		userRepository: userRepository,
		authService:    authService,
		emailService:   emailService,
	}
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepository.ByID(ctx, id)
	if err != nil {
		return nil, remoteError("load user", err)
	}
	return user, nil
}

// UpdatePassword changes the password. Passwordless accounts (OAuth) set their
// first password with an empty currentPassword.
func (s *UserService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.userRepository.ByID(ctx, userID)
	if err != nil {
		return remoteError("load user", err)
	}

	if user.HasPassword() {
		if err := s.authService.ComparePassword(currentPassword, *user.PasswordHash); err != nil {
			return authError(ErrInvalidCurrentPassword)
		}
	} else if currentPassword != "" {
		return authError(ErrInvalidCurrentPassword)
	}

	if err := validation.ValidatePassword(newPassword); err != nil {
		return newValidationError("password", err)
	}

	hash, err := s.authService.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = &hash
	if err := s.userRepository.Update(ctx, user); err != nil {
		return remoteError("update password", err)
	}

	slog.Info("password updated", "user_id", userID)
	return nil
}

// DeleteAccount removes the user. Goals and logged sets go with it (ON DELETE CASCADE).
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.userRepository.ByID(ctx, userID)
	if err != nil {
		return remoteError("load user", err)
	}

	if err := s.userRepository.Delete(ctx, userID); err != nil {
		return remoteError("delete user", err)
	}

	s.authService.SignOut(ctx, userID)

	if err := s.emailService.SendAccountDeletedEmail(ctx, user.Email); err != nil {
		slog.Warn("failed to send account deleted email", "user_id", userID, "error", err)
	}

	slog.Info("account deleted", "user_id", userID)
	return nil
}
