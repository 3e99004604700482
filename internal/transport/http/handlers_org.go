package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	id "exportgate/pkg/domain"
	"exportgate/pkg/domainerr"
)

type createOrganizationRequest struct {
	Name    string `json:"name"`
	Country string `json:"country"`
}

func organizationIDParam(r *http.Request) (id.OrganizationID, error) {
	orgID, err := id.ParseOrganizationID(chi.URLParam(r, "organizationID"))
	if err != nil {
		return id.OrganizationID{}, domainerr.New(domainerr.CodeValidation, "invalid organization id")
	}
	return orgID, nil
}

func (h *Handler) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.orgs.Create(r.Context(), req.Name, req.Country)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := organizationIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	o, err := h.orgs.Get(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleSuspendOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := organizationIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	o, err := h.orgs.Suspend(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleReinstateOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := organizationIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	o, err := h.orgs.Reinstate(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
