package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/templui/repcycle/internal/service"
)

type ExportHandler struct {
	exports *service.ExportService
	engine  *service.CycleEngine
}

func NewExportHandler(exports *service.ExportService, engine *service.CycleEngine) *ExportHandler {
	return &ExportHandler{
		exports: exports,
		engine:  engine,
	}
}

type categoriesResponse struct {
	Microcycle int      `json:"microcycle"`
	Categories []string `json:"categories"`
}

// Export serves a microcycle as a JSON file download.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	cycle, err := requestCycle(r, h.engine)
	if err != nil {
		writeError(w, r, err)
		return
	}

	export, err := h.exports.Export(r.Context(), currentUserID(r), cycle)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="microcycle-%d.json"`, cycle))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write export", "error", err)
	}
}

func (h *ExportHandler) Categories(w http.ResponseWriter, r *http.Request) {
	cycle, err := requestCycle(r, h.engine)
	if err != nil {
		writeError(w, r, err)
		return
	}

	categories, err := h.exports.Categories(r.Context(), currentUserID(r), cycle)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, categoriesResponse{Microcycle: cycle, Categories: categories})
}

func (h *ExportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	cycle, err := pathCycle(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	archive, err := h.exports.Archive(r.Context(), currentUserID(r), cycle)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, archive)
}
