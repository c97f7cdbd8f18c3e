package handlers

import (
	"context"
	"net/http"
	"strconv"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/audit"
	"adminhub/internal/platform/models"
)

type Authorizer interface {
	Authorize(ctx context.Context, principal *models.Principal) error
}

type AuditHandler struct {
	gate Authorizer
	log  *audit.Logger
}

func NewAuditHandler(gate Authorizer, log *audit.Logger) *AuditHandler {
	return &AuditHandler{gate: gate, log: log}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.Authorize(r.Context(), principalFrom(r)); err != nil {
		errors.WriteAppError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 100
	}

	entries, err := h.log.List(r.Context(), limit)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load audit log", nil)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
