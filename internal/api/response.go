package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"uniasset/pkg/uniasset"
)

// Response represents a successful API response with unified format.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Data: data})
}

func writeCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Response{Data: data})
}

func writeSuccessWithMessage(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, Response{Message: message, Data: data})
}

// writeErrorResponse answers err. Coded errors pick their HTTP status;
// anything else is an internal error.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	response := ErrorResponse{
		Message:   err.Error(),
		ErrorCode: string(uniasset.ErrCodeInternal),
		RequestID: middleware.GetReqID(r.Context()),
	}
	var coded *uniasset.Error
	if errors.As(err, &coded) {
		status = mapErrorCodeToHTTPStatus(coded.Code)
		response.ErrorCode = string(coded.Code)
		response.Message = coded.Message
	}
	response.Code = status
	setErrorMessage(w, err.Error())
	writeJSON(w, status, response)
}

func mapErrorCodeToHTTPStatus(code uniasset.ErrorCode) int {
	switch code {
	case uniasset.ErrCodeInvalidInput, uniasset.ErrCodeValidation:
		return http.StatusBadRequest
	case uniasset.ErrCodeNotFound:
		return http.StatusNotFound
	case uniasset.ErrCodeDuplicate, uniasset.ErrCodeStaleSync, uniasset.ErrCodeBusy:
		return http.StatusConflict
	case uniasset.ErrCodeAIUnavailable:
		return http.StatusServiceUnavailable
	case uniasset.ErrCodeSyncFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func setErrorMessage(w http.ResponseWriter, message string) {
	if lw, ok := w.(interface{ SetErrorMessage(string) }); ok {
		lw.SetErrorMessage(message)
	}
}
