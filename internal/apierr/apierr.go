// Package apierr defines the daemon's error envelope and the mapping from
// domain error codes to HTTP status codes.
package apierr

import (
	"encoding/json"
	"net/http"
)

// Code is one of the daemon's error codes. InvalidRequest is a local
// addition for request-shape failures that aren't a claim about any
// repository and so shouldn't share InvalidRepo.
type Code string

const (
	InvalidRepo            Code = "INVALID_REPO"
	InvalidRequest         Code = "INVALID_REQUEST"
	NotIndexed             Code = "NOT_INDEXED"
	Busy                   Code = "BUSY"
	IndexDimensionMismatch Code = "INDEX_DIMENSION_MISMATCH"
	Internal               Code = "INTERNAL"
)

var statusByCode = map[Code]int{
	InvalidRepo:            http.StatusBadRequest,
	InvalidRequest:         http.StatusBadRequest,
	NotIndexed:             http.StatusNotFound,
	Busy:                   http.StatusConflict,
	IndexDimensionMismatch: http.StatusConflict,
	Internal:               http.StatusInternalServerError,
}

// Error is the daemon's structured error type, returned across the HTTP
// boundary as an Envelope.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }

// New constructs an Error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Status returns the HTTP status code for an Error's Code, defaulting to
// 500 for an unrecognized code.
func (e *Error) Status() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Envelope is the JSON body written for every non-2xx response.
type Envelope struct {
	Status string  `json:"status"`
	Error  ErrBody `json:"error"`
}

// ErrBody carries the classified error code, a safe message, and optional
// caller-supplied details.
type ErrBody struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Write serializes err as an Envelope with the appropriate HTTP status. Any
// error that is not *Error is reported as Internal without leaking its
// message, since an unclassified error may carry sensitive detail.
func Write(w http.ResponseWriter, err error) {
	WriteWithDetails(w, err, "")
}

// WriteWithDetails is Write with an additional details string surfaced to
// the caller, useful for validation errors where the specific bad field is
// safe to disclose.
func WriteWithDetails(w http.ResponseWriter, err error, details string) {
	apiErr, ok := err.(*Error)
	if !ok {
		apiErr = New(Internal, "internal error")
		details = ""
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status())
	_ = json.NewEncoder(w).Encode(Envelope{
		Status: "error",
		Error: ErrBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: details,
		},
	})
}
