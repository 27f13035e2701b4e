package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"lendingrisk/native/lending"
)

// ProjectionRequest asks for the health factor after reference-currency
// deltas on one asset.
type ProjectionRequest struct {
	Asset           string          `json:"asset"`
	DeltaCollateral decimal.Decimal `json:"deltaCollateral"`
	DeltaDebt       decimal.Decimal `json:"deltaDebt"`
}

// IngestResponse acknowledges a stored snapshot.
type IngestResponse struct {
	Epoch    uint64 `json:"epoch"`
	Reserves int    `json:"reserves,omitempty"`
	User     string `json:"user,omitempty"`
}

// CapsResponse lists the cap usage of every reserve in an epoch.
type CapsResponse struct {
	Epoch   uint64              `json:"epoch"`
	Reports []lending.CapReport `json:"reports"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func epochParam(r *http.Request) (uint64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "epoch"))
	epoch, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || epoch == 0 {
		return 0, fmt.Errorf("%w: epoch must be a positive integer", errBadRequest)
	}
	return epoch, nil
}

func userParam(r *http.Request) (string, error) {
	user := strings.TrimSpace(chi.URLParam(r, "user"))
	if user == "" {
		return "", fmt.Errorf("%w: user required", errBadRequest)
	}
	return user, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return errTooLarge
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: body required", errBadRequest)
		}
		if lending.IsPrecondition(err) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if decoder.More() {
		return fmt.Errorf("%w: trailing data", errBadRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
