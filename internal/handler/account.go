package handler

import (
	"net/http"

	"github.com/templui/repcycle/internal/service"
)

type accountHandler struct {
	userService *service.UserService
	authService *service.AuthService
}

func NewAccountHandler(userService *service.UserService, authService *service.AuthService) *accountHandler {
	return &accountHandler{
		userService: userService,
		authService: authService,
	}
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *accountHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.userService.UpdatePassword(r.Context(), currentUserID(r), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete removes the account with all of its goals and logged sets.
func (h *accountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.DeleteAccount(r.Context(), currentUserID(r)); err != nil {
		writeError(w, r, err)
		return
	}

	h.authService.ClearJWTCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
