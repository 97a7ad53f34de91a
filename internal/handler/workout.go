package handler

import (
	"log/slog"
	"net/http"

	"github.com/templui/repcycle/internal/model"
	"github.com/templui/repcycle/internal/service"
)

type WorkoutHandler struct {
	workout *service.WorkoutService
	engine  *service.CycleEngine
}

func NewWorkoutHandler(workout *service.WorkoutService, engine *service.CycleEngine) *WorkoutHandler {
	return &WorkoutHandler{
		workout: workout,
		engine:  engine,
	}
}

type nextResponse struct {
	Goal *model.Goal `json:"goal"`
}

type doneRequest struct {
	GoalID string `json:"goal_id"`
	Reps   int    `json:"reps"`
	Fail   bool   `json:"fail"`
}

type doneResponse struct {
	Record *model.DoneRecord `json:"record"`
	Next   *model.Goal       `json:"next"`
}

type pauseRequest struct {
	GoalID string `json:"goal_id"`
}

type pauseResponse struct {
	Goal   *model.Goal  `json:"goal"`
	Active []model.Goal `json:"active"`
	Next   *model.Goal  `json:"next"`
}

type historyResponse struct {
	Microcycle int                `json:"microcycle"`
	Records    []model.DoneRecord `json:"records"`
}

// Next picks a random active goal; {"goal": null} means nothing is left to do.
func (h *WorkoutHandler) Next(w http.ResponseWriter, r *http.Request) {
	goal, err := h.workout.Next(r.Context(), currentUserID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nextResponse{Goal: goal})
}

func (h *WorkoutHandler) Done(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	var req doneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.GoalID == "" {
		writeError(w, r, &service.ValidationError{Field: "goal_id", Message: "goal_id is required"})
		return
	}

	record, err := h.workout.LogDone(r.Context(), userID, req.GoalID, req.Reps, req.Fail)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// the set is saved; report it even when picking the next goal fails
	next, err := h.workout.Next(r.Context(), userID)
	if err != nil {
		slog.Error("failed to pick next goal after logging a set", "error", err, "user_id", userID, "goal_id", req.GoalID)
		next = nil
	}

	writeJSON(w, http.StatusCreated, doneResponse{Record: record, Next: next})
}

func (h *WorkoutHandler) Pause(w http.ResponseWriter, r *http.Request) {
	var req pauseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.GoalID == "" {
		writeError(w, r, &service.ValidationError{Field: "goal_id", Message: "goal_id is required"})
		return
	}

	goal, active, err := h.workout.PauseGoal(r.Context(), currentUserID(r), req.GoalID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pauseResponse{
		Goal:   goal,
		Active: active,
		Next:   h.engine.SelectRandomActive(active),
	})
}

func (h *WorkoutHandler) History(w http.ResponseWriter, r *http.Request) {
	cycle, err := requestCycle(r, h.engine)
	if err != nil {
		writeError(w, r, err)
		return
	}

	records, err := h.workout.History(r.Context(), currentUserID(r), cycle)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, historyResponse{Microcycle: cycle, Records: records})
}
