// Package geocode resolves free-text addresses to coordinates through an
// upstream geocoding provider.
package geocode

import (
	"context"
	"errors"
)

var (
	// ErrNoMatch means the provider understood the request but found nothing.
	ErrNoMatch = errors.New("address not found")

	// ErrNotConfigured means no provider credentials are available.
	ErrNotConfigured = errors.New("geocoding API key not configured")

	// ErrUpstream wraps every other provider or transport failure.
	ErrUpstream = errors.New("geocoding provider error")
)

// Result is the best match for an address.
type Result struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address"`
}

type Gateway interface {
	Geocode(ctx context.Context, address string) (Result, error)
}
