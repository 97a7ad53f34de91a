package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/templui/repcycle/internal/ctxkeys"
	"github.com/templui/repcycle/internal/service"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps the service error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)

	attrs := []any{"error", err, "method", r.Method, "path", r.URL.Path, "status", status}
	if user := ctxkeys.User(r.Context()); user != nil {
		attrs = append(attrs, "user_id", user.ID)
	}
	if status >= 500 {
		slog.Error("request failed", attrs...)
	} else {
		slog.Debug("request rejected", attrs...)
	}

	writeJSON(w, status, errorResponse{Error: message})
}

func errorStatus(err error) (int, string) {
	var validationErr *service.ValidationError
	var authErr *service.AuthError
	var remoteErr *service.RemoteError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.Is(err, service.ErrEmailAlreadyExists):
		return http.StatusConflict, service.ErrEmailAlreadyExists.Error()
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, authErr.Message
	case errors.Is(err, service.ErrEmptySourceCycle):
		return http.StatusConflict, service.ErrEmptySourceCycle.Error()
	case errors.Is(err, service.ErrArchiveDisabled):
		return http.StatusServiceUnavailable, service.ErrArchiveDisabled.Error()
	case service.IsNotFound(err):
		return http.StatusNotFound, "not found"
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway, "database unavailable, please retry"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// decodeJSON reads a size-limited JSON body into v. Failures become ValidationErrors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &service.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// queryCycle parses ?microcycle=N. ok is false when the parameter is absent.
func queryCycle(r *http.Request) (cycle int, ok bool, err error) {
	raw := r.URL.Query().Get("microcycle")
	if raw == "" {
		return 0, false, nil
	}
	cycle, err = strconv.Atoi(raw)
	if err != nil || cycle < 1 {
		return 0, false, &service.ValidationError{Field: "microcycle", Message: "microcycle must be a positive number"}
	}
	return cycle, true, nil
}

// requestCycle resolves ?microcycle=N, defaulting to the owner's current microcycle.
func requestCycle(r *http.Request, engine *service.CycleEngine) (int, error) {
	cycle, ok, err := queryCycle(r)
	if err != nil {
		return 0, err
	}
	if ok {
		return cycle, nil
	}
	return currentCycle(r.Context(), engine, currentUserID(r))
}

// currentCycle is the owner's current microcycle, or 1 before any goal exists.
func currentCycle(ctx context.Context, engine *service.CycleEngine, owner string) (int, error) {
	state, err := engine.State(ctx, owner)
	if err != nil {
		return 0, err
	}
	if !state.Initialized() {
		return 1, nil
	}
	return state.Current, nil
}

func currentUserID(r *http.Request) string {
	return ctxkeys.User(r.Context()).ID
}
