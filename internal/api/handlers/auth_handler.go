package handlers

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apiContext "adminhub/internal/api/context"
	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/identity"
)

type AuthHandler struct {
	provider identity.Provider
}

func NewAuthHandler(provider identity.Provider) *AuthHandler {
	return &AuthHandler{provider: provider}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Email and password are required", nil)
		return
	}

	sess, err := h.provider.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if stderrors.Is(err, errors.ErrUnauthenticated) {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid email or password", nil)
			return
		}
		log.Error().Err(err).Msg("sign in failed")
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := r.Context().Value(apiContext.Token).(string)
	if err := h.provider.SignOut(r.Context(), token); err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
