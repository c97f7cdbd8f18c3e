package handlers

import (
	"net/http"

	"adminhub/internal/engine/catalog"
	"adminhub/internal/pkg/errors"
)

type RoleHandler struct {
	catalog *catalog.Service
}

func NewRoleHandler(catalog *catalog.Service) *RoleHandler {
	return &RoleHandler{catalog: catalog}
}

// List returns roles sorted by hierarchy then name. Hidden roles are only
// listed for system administrators.
func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	roles, err := h.catalog.ListRoles(r.Context(), principalFrom(r))
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req catalog.RoleInput
	if !decodeBody(w, r, &req) {
		return
	}
	role, err := h.catalog.CreateRole(r.Context(), principalFrom(r), req)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, role)
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req catalog.RolePatch
	if !decodeBody(w, r, &req) {
		return
	}
	role, err := h.catalog.UpdateRole(r.Context(), principalFrom(r), param(r, "role_id"), req)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *RoleHandler) SetFlags(w http.ResponseWriter, r *http.Request) {
	var flags catalog.Flags
	if !decodeBody(w, r, &flags) {
		return
	}
	role, err := h.catalog.SetRoleFlags(r.Context(), principalFrom(r), param(r, "role_id"), flags)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteRole(r.Context(), principalFrom(r), param(r, "role_id")); err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
