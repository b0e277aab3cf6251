package geocode_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/circular-table-server/geocode"
)

const okBody = `{
  "status": "OK",
  "results": [
    {"formatted_address": "1600 Amphitheatre Pkwy, Mountain View, CA 94043, USA",
     "geometry": {"location": {"lat": 37.4224764, "lng": -122.0842499}}},
    {"formatted_address": "somewhere else",
     "geometry": {"location": {"lat": 1, "lng": 2}}}
  ]
}`

// provider serves canned responses in order, repeating the last one.
func provider(t *testing.T, hits *atomic.Int64, responses ...func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1)) - 1
		if n >= len(responses) {
			n = len(responses) - 1
		}
		responses[n](w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func body(status int, s string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(s))
	}
}

func client(url string) *geocode.GoogleClient {
	return geocode.NewGoogleClient(geocode.GoogleConfig{
		APIKey:        "test-key",
		BaseURL:       url,
		Timeout:       2 * time.Second,
		MaxTries:      3,
		RetryInterval: time.Millisecond,
	})
}

func TestGoogleClientFirstResult(t *testing.T) {
	var hits atomic.Int64
	var gotPath, gotAddress, gotKey string
	srv := provider(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAddress = r.URL.Query().Get("address")
		gotKey = r.URL.Query().Get("key")
		body(http.StatusOK, okBody)(w, r)
	})

	res, err := client(srv.URL).Geocode(context.Background(), "1600 Amphitheatre Pkwy & more")
	require.NoError(t, err)
	assert.Equal(t, geocode.Result{
		Lat:              37.4224764,
		Lng:              -122.0842499,
		FormattedAddress: "1600 Amphitheatre Pkwy, Mountain View, CA 94043, USA",
	}, res)
	assert.Equal(t, "/maps/api/geocode/json", gotPath)
	assert.Equal(t, "1600 Amphitheatre Pkwy & more", gotAddress)
	assert.Equal(t, "test-key", gotKey)
}

func TestGoogleClientNoMatch(t *testing.T) {
	for name, payload := range map[string]string{
		"zero results": `{"status":"ZERO_RESULTS","results":[]}`,
		"ok but empty": `{"status":"OK","results":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			var hits atomic.Int64
			srv := provider(t, &hits, body(http.StatusOK, payload))

			_, err := client(srv.URL).Geocode(context.Background(), "nowhere")
			assert.ErrorIs(t, err, geocode.ErrNoMatch)
			assert.Equal(t, int64(1), hits.Load())
		})
	}
}

func TestGoogleClientDeniedIsNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := provider(t, &hits, body(http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`))

	_, err := client(srv.URL).Geocode(context.Background(), "x")
	assert.ErrorIs(t, err, geocode.ErrUpstream)
	assert.NotErrorIs(t, err, geocode.ErrNoMatch)
	assert.Equal(t, int64(1), hits.Load())
}

func TestGoogleClientRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int64
	srv := provider(t, &hits,
		body(http.StatusServiceUnavailable, `oops`),
		body(http.StatusOK, `{"status":"OVER_QUERY_LIMIT","results":[]}`),
		body(http.StatusOK, okBody),
	)

	res, err := client(srv.URL).Geocode(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 37.4224764, res.Lat)
	assert.Equal(t, int64(3), hits.Load())
}

func TestGoogleClientGivesUp(t *testing.T) {
	var hits atomic.Int64
	srv := provider(t, &hits, body(http.StatusBadGateway, `down`))

	_, err := client(srv.URL).Geocode(context.Background(), "x")
	assert.ErrorIs(t, err, geocode.ErrUpstream)
	assert.Equal(t, int64(3), hits.Load())
}

func TestGoogleClientMalformedResponse(t *testing.T) {
	var hits atomic.Int64
	srv := provider(t, &hits, body(http.StatusOK, `<html>`))

	_, err := client(srv.URL).Geocode(context.Background(), "x")
	assert.ErrorIs(t, err, geocode.ErrUpstream)
}

func TestGoogleClientWithoutKey(t *testing.T) {
	var hits atomic.Int64
	srv := provider(t, &hits, body(http.StatusOK, okBody))

	c := geocode.NewGoogleClient(geocode.GoogleConfig{BaseURL: srv.URL})
	_, err := c.Geocode(context.Background(), "x")
	assert.ErrorIs(t, err, geocode.ErrNotConfigured)
	assert.Zero(t, hits.Load())
}

type stubGateway struct {
	calls atomic.Int64
	err   error
}

func (s *stubGateway) Geocode(context.Context, string) (geocode.Result, error) {
	s.calls.Add(1)
	if s.err != nil {
		return geocode.Result{}, s.err
	}
	return geocode.Result{Lat: 1, Lng: 2, FormattedAddress: "here"}, nil
}

func breakerConfig() geocode.BreakerConfig {
	return geocode.BreakerConfig{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute}
}

func TestBreakerPassesThrough(t *testing.T) {
	stub := &stubGateway{}
	b := geocode.NewBreaker(stub, breakerConfig(), nil)

	res, err := b.Geocode(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "here", res.FormattedAddress)
}

func TestBreakerOpensOnProviderFailures(t *testing.T) {
	stub := &stubGateway{err: errors.New("boom")}
	b := geocode.NewBreaker(stub, breakerConfig(), nil)

	for i := 0; i < 2; i++ {
		_, err := b.Geocode(context.Background(), "x")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Geocode(context.Background(), "x")
	assert.ErrorIs(t, err, geocode.ErrUpstream)
	assert.Equal(t, int64(2), stub.calls.Load(), "open breaker must not call the provider")
}

func TestBreakerIgnoresNoMatch(t *testing.T) {
	stub := &stubGateway{err: geocode.ErrNoMatch}
	b := geocode.NewBreaker(stub, breakerConfig(), nil)

	for i := 0; i < 5; i++ {
		_, err := b.Geocode(context.Background(), "x")
		assert.ErrorIs(t, err, geocode.ErrNoMatch)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, int64(5), stub.calls.Load())
}
