package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"exportgate/internal/document"
	id "exportgate/pkg/domain"
	"exportgate/pkg/domainerr"
)

type transitionRequest struct {
	ExpectedState string            `json:"expected_state,omitempty"`
	To            string            `json:"to"`
	Reason        string            `json:"reason,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (h *Handler) handleDocumentTransition(w http.ResponseWriter, r *http.Request) {
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, domainerr.New(domainerr.CodeValidation, "invalid document id"))
		return
	}

	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	to, err := document.ParseState(req.To)
	if err != nil {
		writeError(w, domainerr.New(domainerr.CodeValidation, "unknown target state"))
		return
	}
	var expected document.State
	if req.ExpectedState != "" {
		expected, err = document.ParseState(req.ExpectedState)
		if err != nil {
			writeError(w, domainerr.New(domainerr.CodeValidation, "unknown expected state"))
			return
		}
	}

	doc, err := h.documents.Transition(r.Context(), document.TransitionRequest{
		DocumentID:    documentID,
		ExpectedState: expected,
		To:            to,
		Reason:        req.Reason,
		Metadata:      req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleDocumentHistory(w http.ResponseWriter, r *http.Request) {
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, domainerr.New(domainerr.CodeValidation, "invalid document id"))
		return
	}

	transitions, err := h.documents.History(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": transitions})
}

func (h *Handler) handleDocumentExpire(w http.ResponseWriter, r *http.Request) {
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, domainerr.New(domainerr.CodeValidation, "invalid document id"))
		return
	}

	doc, err := h.documents.Expire(r.Context(), documentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
