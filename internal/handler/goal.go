package handler

import (
	"net/http"

	"github.com/templui/repcycle/internal/model"
	"github.com/templui/repcycle/internal/service"
)

type GoalHandler struct {
	stores *service.GoalStores
	engine *service.CycleEngine
}

func NewGoalHandler(stores *service.GoalStores, engine *service.CycleEngine) *GoalHandler {
	return &GoalHandler{
		stores: stores,
		engine: engine,
	}
}

type goalsResponse struct {
	Microcycle int          `json:"microcycle"`
	Goals      []model.Goal `json:"goals"`
}

type createGoalRequest struct {
	Microcycle *int `json:"microcycle"`
	service.GoalInput
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// List returns the goals of ?microcycle=N, or of the current microcycle.
func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	cycle, err := requestCycle(r, h.engine)
	if err != nil {
		writeError(w, r, err)
		return
	}

	goals, err := h.stores.For(currentUserID(r)).ListGoals(r.Context(), cycle)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goalsResponse{Microcycle: cycle, Goals: goals})
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	var req createGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var cycle int
	if req.Microcycle != nil {
		cycle = *req.Microcycle
	} else {
		var err error
		cycle, err = currentCycle(r.Context(), h.engine, userID)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	goal, err := h.stores.For(userID).CreateGoal(r.Context(), cycle, req.GoalInput)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch service.GoalPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := h.stores.For(currentUserID(r)).UpdateGoal(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.stores.For(currentUserID(r)).DeleteGoal(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GoalHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	goal, err := h.stores.For(currentUserID(r)).SetActive(r.Context(), r.PathValue("id"), req.Active)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	goal, err := h.stores.For(currentUserID(r)).ToggleActive(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goal)
}
