package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/gradlab/pkg/errors"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "error", err)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: errors.UserMessage(err)}})
}

// StatusFor maps an error to an HTTP status. Client-side causes anywhere in
// the chain win over the upstream failure that wraps them, so an upload
// rejected for being too large is a 400 even though it carries UPLOAD_FAILED.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrCodeSessionNotFound), errors.Is(err, errors.ErrCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrCodeSessionBusy),
		errors.Is(err, errors.ErrCodeReconstructInFlight),
		errors.Is(err, errors.ErrCodeInvalidState):
		return http.StatusConflict
	case errors.Is(err, errors.ErrCodeInvalidInput),
		errors.Is(err, errors.ErrCodeInvalidImageID),
		errors.Is(err, errors.ErrCodeInvalidFormat),
		errors.Is(err, errors.ErrCodeInvalidPath),
		errors.Is(err, errors.ErrCodeUnsupportedTool),
		errors.Is(err, errors.ErrCodeLayoutNotReady):
		return http.StatusBadRequest
	}

	var se *errors.ServiceError
	if stderrors.As(err, &se) && se.Status == http.StatusNotFound {
		return http.StatusNotFound
	}

	switch {
	case errors.Is(err, errors.ErrCodeTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, errors.ErrCodeUploadFailed),
		errors.Is(err, errors.ErrCodeFetchFailed),
		errors.Is(err, errors.ErrCodeReconstructionFailed),
		errors.Is(err, errors.ErrCodeNetwork):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
