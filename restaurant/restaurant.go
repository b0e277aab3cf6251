// Package restaurant implements the restaurant collection service: CRUD over a
// single ordered list of records stored as one value in a key-value store.
package restaurant

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/stevemurr/circular-table-server/apperror"
)

// Restaurant is one bookmarked place. ID and DateAdded are assigned on
// creation and never change. Lat and Lng are nil for records stored without
// valid coordinates; such records are kept as they are.
type Restaurant struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Notes     string   `json:"notes"`
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	DateAdded string   `json:"dateAdded"`

	// extra holds fields written by other clients so they survive a rewrite
	// of the collection.
	extra map[string]jsoniter.RawMessage
}

// restaurantFields has Restaurant's layout without its JSON methods.
type restaurantFields Restaurant

var knownFields = []string{"id", "name", "address", "notes", "lat", "lng", "dateAdded"}

func (r *Restaurant) UnmarshalJSON(b []byte) error {
	var f restaurantFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	var all map[string]jsoniter.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for _, k := range knownFields {
		delete(all, k)
	}
	*r = Restaurant(f)
	r.extra = nil
	if len(all) > 0 {
		r.extra = all
	}
	return nil
}

func (r Restaurant) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(restaurantFields(r))
	if err != nil || len(r.extra) == 0 {
		return b, err
	}
	var all map[string]jsoniter.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	for k, v := range r.extra {
		all[k] = v
	}
	return json.Marshal(all)
}

// dateLayout matches JavaScript's Date.prototype.toISOString, which earlier
// clients wrote into the collection.
const dateLayout = "2006-01-02T15:04:05.000Z"

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// Coordinate is a latitude or longitude that decodes from either a JSON
// number or a numeric string. Anything else, including NaN and infinities,
// is rejected as a validation error.
type Coordinate float64

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) > 0 && raw[0] == '"' {
		s, err := strconv.Unquote(string(raw))
		if err != nil {
			return errInvalidCoordinate
		}
		raw = []byte(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return errInvalidCoordinate
	}
	*c = Coordinate(f)
	return nil
}

func (c Coordinate) float() *float64 {
	f := float64(c)
	return &f
}

var errInvalidCoordinate = apperror.NewValidation("Latitude and longitude must be numbers")

// CreateInput is the body of a create request.
type CreateInput struct {
	Name    string      `json:"name" validate:"required"`
	Address string      `json:"address"`
	Notes   string      `json:"notes"`
	Lat     *Coordinate `json:"lat" validate:"required,min=-90,max=90"`
	Lng     *Coordinate `json:"lng" validate:"required,min=-180,max=180"`
}

// UpdateInput is the body of an update request. A nil field is left
// unchanged; a non-nil field overwrites, even with an empty string.
type UpdateInput struct {
	ID      string      `json:"id"`
	Name    *string     `json:"name" validate:"omitnil,min=1"`
	Address *string     `json:"address"`
	Notes   *string     `json:"notes"`
	Lat     *Coordinate `json:"lat" validate:"omitnil,min=-90,max=90"`
	Lng     *Coordinate `json:"lng" validate:"omitnil,min=-180,max=180"`
}

// apply returns r with every supplied field replaced.
func (in UpdateInput) apply(r Restaurant) Restaurant {
	if in.Name != nil {
		r.Name = *in.Name
	}
	if in.Address != nil {
		r.Address = *in.Address
	}
	if in.Notes != nil {
		r.Notes = *in.Notes
	}
	if in.Lat != nil {
		r.Lat = in.Lat.float()
	}
	if in.Lng != nil {
		r.Lng = in.Lng.float()
	}
	return r
}

// matches reports whether query occurs, case-insensitively, in the name,
// address or notes.
func (r Restaurant) matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(r.Name), q) ||
		strings.Contains(strings.ToLower(r.Address), q) ||
		strings.Contains(strings.ToLower(r.Notes), q)
}
