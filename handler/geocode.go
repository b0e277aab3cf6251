package handler

import (
	"errors"
	"net/http"

	"github.com/stevemurr/circular-table-server/apperror"
	"github.com/stevemurr/circular-table-server/geocode"
)

func (h *Handler) geocode(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		h.writeAppError(w, r, apperror.NewValidation("Address parameter is required"))
		return
	}

	res, err := h.geocoder.Geocode(r.Context(), address)
	if err != nil {
		outcome, appErr := geocodeFailure(err)
		h.metrics.GeocodeLookup(outcome)
		h.writeAppError(w, r, appErr)
		return
	}
	h.metrics.GeocodeLookup("ok")
	writeJSON(w, http.StatusOK, res)
}

// geocodeFailure classifies a gateway error as a metrics outcome and the
// error reported to the caller.
func geocodeFailure(err error) (string, error) {
	switch {
	case errors.Is(err, geocode.ErrNoMatch):
		return "not_found", apperror.NewNotFound("Address not found")
	case errors.Is(err, geocode.ErrNotConfigured):
		return "not_configured", apperror.NewUnavailable("Google Maps API key not configured", err)
	default:
		return "error", apperror.NewUnavailable("Internal server error", err)
	}
}
