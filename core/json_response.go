package core

import (
	"encoding/json"
	"net/http"
)

// JSONResponse is the standard JSON envelope for every API response.
type JSONResponse struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail carries machine-readable error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// JSON writes data wrapped in the standard envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{Data: data})
}

// JSONError writes an error in the standard envelope. HTTPError values set
// the status and code; anything else becomes a 500 internal_error.
func JSONError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := &ErrorDetail{Code: "internal_error"}

	var httpErr HTTPError
	if ok := asHTTPError(err, &httpErr); ok {
		status = httpErr.Code
		detail.Code = httpErr.Key
		detail.Message = httpErr.Message
	}
	if detail.Message == "" {
		detail.Message = http.StatusText(status)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{Error: detail})
}
