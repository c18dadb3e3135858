package http

import (
	"encoding/json"
	"net/http"

	"github.com/bhargavryzer/Ownmali-sub000/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeUnauthorized       = "unauthorized"
	codeValidationFailed   = "validation_failed"
	codeStateConflict      = "state_conflict"
	codeForbidden          = "forbidden"
	codeComplianceRejected = "compliance_rejected"
	codeResourceExhausted  = "resource_exhausted"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Resource
// shortfalls share 409 with state conflicts; compliance denials get 422 so
// clients can tell a registry problem from a lifecycle one.
func writeDomainError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case domain.KindState:
		writeError(w, http.StatusConflict, codeStateConflict, err.Error())
	case domain.KindAuthorization:
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case domain.KindCompliance:
		writeError(w, http.StatusUnprocessableEntity, codeComplianceRejected, err.Error())
	case domain.KindResource:
		writeError(w, http.StatusConflict, codeResourceExhausted, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
