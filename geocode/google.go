package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const DefaultBaseURL = "https://maps.googleapis.com"

type GoogleConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// MaxTries bounds attempts for transient failures (transport errors,
	// 5xx, OVER_QUERY_LIMIT, UNKNOWN_ERROR). Zero means 3.
	MaxTries      uint
	RetryInterval time.Duration

	HTTPClient *http.Client
}

// GoogleClient talks to the Google Maps Geocoding API.
type GoogleClient struct {
	cfg  GoogleConfig
	http *http.Client
}

func NewGoogleClient(cfg GoogleConfig) *GoogleClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 200 * time.Millisecond
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &GoogleClient{cfg: cfg, http: client}
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *GoogleClient) Geocode(ctx context.Context, address string) (Result, error) {
	if c.cfg.APIKey == "" {
		return Result{}, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.cfg.APIKey)
	endpoint := c.cfg.BaseURL + "/maps/api/geocode/json?" + q.Encode()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInterval

	return backoff.Retry(ctx, func() (Result, error) {
		return c.lookup(ctx, endpoint)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.cfg.MaxTries))
}

// lookup performs one request. Errors that retrying cannot fix are marked
// permanent.
func (c *GoogleClient) lookup(ctx context.Context, endpoint string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrUpstream, err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return Result{}, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, backoff.Permanent(fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode))
	}

	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{}, backoff.Permanent(fmt.Errorf("%w: decode response: %v", ErrUpstream, err))
	}

	switch body.Status {
	case "OK":
		if len(body.Results) == 0 {
			return Result{}, backoff.Permanent(ErrNoMatch)
		}
		first := body.Results[0]
		return Result{
			Lat:              first.Geometry.Location.Lat,
			Lng:              first.Geometry.Location.Lng,
			FormattedAddress: first.FormattedAddress,
		}, nil
	case "ZERO_RESULTS":
		return Result{}, backoff.Permanent(ErrNoMatch)
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return Result{}, fmt.Errorf("%w: %s", ErrUpstream, body.Status)
	default:
		if body.ErrorMessage != "" {
			return Result{}, backoff.Permanent(fmt.Errorf("%w: %s: %s", ErrUpstream, body.Status, body.ErrorMessage))
		}
		return Result{}, backoff.Permanent(fmt.Errorf("%w: %s", ErrUpstream, body.Status))
	}
}
