package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "adminhub/internal/api/context"
	"adminhub/internal/engine/session"
	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/models"
)

func principalFrom(r *http.Request) *models.Principal {
	p, _ := r.Context().Value(apiContext.Principal).(*models.Principal)
	return p
}

func sessionFrom(r *http.Request) *session.Context {
	sc, _ := r.Context().Value(apiContext.Session).(*session.Context)
	if sc == nil {
		return &session.Context{Principal: principalFrom(r)}
	}
	return sc
}

func param(r *http.Request, name string) string {
	ps, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return ps.ByName(name)
}

// decodeBody writes a 400 and returns false when the body is not valid JSON.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type successResponse struct {
	Success bool `json:"success"`
}
