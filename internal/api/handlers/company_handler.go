package handlers

import (
	"net/http"

	"adminhub/internal/engine/catalog"
	"adminhub/internal/pkg/errors"
)

type CompanyHandler struct {
	catalog *catalog.Service
}

func NewCompanyHandler(catalog *catalog.Service) *CompanyHandler {
	return &CompanyHandler{catalog: catalog}
}

func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.catalog.ListCompanies(r.Context(), principalFrom(r))
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (h *CompanyHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	companies, err := h.catalog.AdminListCompanies(r.Context(), principalFrom(r))
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req catalog.CompanyInput
	if !decodeBody(w, r, &req) {
		return
	}
	company, err := h.catalog.CreateCompany(r.Context(), principalFrom(r), req)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req catalog.CompanyPatch
	if !decodeBody(w, r, &req) {
		return
	}
	company, err := h.catalog.UpdateCompany(r.Context(), principalFrom(r), param(r, "company_id"), req)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (h *CompanyHandler) SetFlags(w http.ResponseWriter, r *http.Request) {
	var flags catalog.Flags
	if !decodeBody(w, r, &flags) {
		return
	}
	company, err := h.catalog.SetCompanyFlags(r.Context(), principalFrom(r), param(r, "company_id"), flags)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// Delete soft-deletes by default; ?hard=true removes the row.
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := param(r, "company_id")
	if r.URL.Query().Get("hard") == "true" {
		if err := h.catalog.DeleteCompany(r.Context(), principalFrom(r), id); err != nil {
			errors.WriteAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
		return
	}

	company, err := h.catalog.SoftDeleteCompany(r.Context(), principalFrom(r), id)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, company)
}

func (h *CompanyHandler) SlugAvailable(w http.ResponseWriter, r *http.Request) {
	slug := param(r, "slug")
	ok, err := h.catalog.SlugAvailable(r.Context(), principalFrom(r), slug, r.URL.Query().Get("exclude"))
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"slug": slug, "available": ok})
}

type ChangeMemberRoleRequest struct {
	Role string `json:"role"`
}

func (h *CompanyHandler) UpdateMembership(w http.ResponseWriter, r *http.Request) {
	var req ChangeMemberRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	membership, err := h.catalog.ChangeMemberRole(r.Context(), principalFrom(r), param(r, "membership_id"), req.Role)
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, membership)
}

func (h *CompanyHandler) RemoveMembership(w http.ResponseWriter, r *http.Request) {
	membership, err := h.catalog.RemoveMember(r.Context(), principalFrom(r), param(r, "membership_id"))
	if err != nil {
		errors.WriteAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, membership)
}
