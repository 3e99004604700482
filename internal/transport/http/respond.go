package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"exportgate/pkg/domainerr"
)

// statusByCode maps domain error codes to HTTP statuses. Unknown codes fall
// through to 500 so new codes fail loudly instead of leaking as 200s.
var statusByCode = map[domainerr.Code]int{
	domainerr.CodeInvalidTransition:    http.StatusUnprocessableEntity,
	domainerr.CodeForbidden:            http.StatusForbidden,
	domainerr.CodeConflict:             http.StatusConflict,
	domainerr.CodeValidation:           http.StatusBadRequest,
	domainerr.CodeGenerationInProgress: http.StatusConflict,
	domainerr.CodeSigningFailed:        http.StatusBadGateway,
	domainerr.CodeNotFound:             http.StatusNotFound,
	domainerr.CodeInternal:             http.StatusInternalServerError,
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError translates a domain error into the JSON error envelope. Internal
// errors never expose their message.
func writeError(w http.ResponseWriter, err error) {
	code := domainerr.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := errorBody{Error: string(code)}
	var de *domainerr.Error
	if errors.As(err, &de) && code != domainerr.CodeInternal {
		body.Message = de.Message
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domainerr.New(domainerr.CodeValidation, "invalid request body")
	}
	return nil
}
