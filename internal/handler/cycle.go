package handler

import (
	"net/http"
	"strconv"

	"github.com/templui/repcycle/internal/model"
	"github.com/templui/repcycle/internal/service"
)

type CycleHandler struct {
	engine *service.CycleEngine
	stores *service.GoalStores
}

func NewCycleHandler(engine *service.CycleEngine, stores *service.GoalStores) *CycleHandler {
	return &CycleHandler{
		engine: engine,
		stores: stores,
	}
}

type cycleStateResponse struct {
	Current     int   `json:"current"`
	Initialized bool  `json:"initialized"`
	Cycles      []int `json:"cycles"`
}

type advanceResponse struct {
	Current int          `json:"current"`
	Goals   []model.Goal `json:"goals"`
}

func (h *CycleHandler) State(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	state, err := h.engine.State(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cycles, err := h.engine.Cycles(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, cycleStateResponse{
		Current:     state.Current,
		Initialized: state.Initialized(),
		Cycles:      cycles,
	})
}

func (h *CycleHandler) Advance(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	state, goals, err := h.engine.Advance(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.stores.For(userID).Reset(state.Current, goals)

	writeJSON(w, http.StatusCreated, advanceResponse{Current: state.Current, Goals: goals})
}

func pathCycle(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 {
		return 0, &service.ValidationError{Field: "microcycle", Message: "microcycle must be a positive number"}
	}
	return n, nil
}
