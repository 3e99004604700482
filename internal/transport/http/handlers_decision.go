package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	id "exportgate/pkg/domain"
	"exportgate/pkg/domainerr"
)

func shipmentIDParam(r *http.Request) (id.ShipmentID, error) {
	shipmentID, err := id.ParseShipmentID(chi.URLParam(r, "shipmentID"))
	if err != nil {
		return id.ShipmentID{}, domainerr.New(domainerr.CodeValidation, "invalid shipment id")
	}
	return shipmentID, nil
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	shipmentID, err := shipmentIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.decisions.Evaluate(r.Context(), shipmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *Handler) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	shipmentID, err := shipmentIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.decisions.Latest(r.Context(), shipmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleReportHistory(w http.ResponseWriter, r *http.Request) {
	shipmentID, err := shipmentIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	reports, err := h.decisions.History(r.Context(), shipmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

type overrideRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleOverride(w http.ResponseWriter, r *http.Request) {
	shipmentID, err := shipmentIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req overrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	report, err := h.decisions.ApplyOverride(r.Context(), shipmentID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *Handler) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	shipmentID, err := shipmentIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	events, err := h.auditor.List(r.Context(), shipmentID)
	if err != nil {
		writeError(w, domainerr.Wrap(err, domainerr.CodeInternal, "audit trail lookup failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}
