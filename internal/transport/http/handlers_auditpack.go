package httptransport

import "net/http"

func (h *Handler) handleGeneratePack(w http.ResponseWriter, r *http.Request) {
	shipmentID, err := shipmentIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	pack, err := h.packs.Generate(r.Context(), shipmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pack)
}

func (h *Handler) handleGetPack(w http.ResponseWriter, r *http.Request) {
	shipmentID, err := shipmentIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	pack, err := h.packs.Get(r.Context(), shipmentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pack)
}
