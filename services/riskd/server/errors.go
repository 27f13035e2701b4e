package server

import (
	"errors"
	"net/http"

	"lendingrisk/native/lending"
	"lendingrisk/services/riskd/storage"
)

var (
	errBadRequest = errors.New("bad request")
	errTooLarge   = errors.New("request body too large")
)

// toStatus maps an error to the HTTP status and the message exposed to
// clients. Internal failures never leak their cause.
func toStatus(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.As(err, &maxBytes), errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge, errTooLarge.Error()
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, lending.ErrReserveNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, lending.ErrEpochMismatch):
		return http.StatusConflict, err.Error()
	case errors.Is(err, errBadRequest), lending.IsPrecondition(err):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
