// Package openweather provides a client for the OpenWeatherMap current-weather API.
package openweather

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/temp-anomaly/internal/model"
	"github.com/sells-group/temp-anomaly/internal/resilience"
)

// DefaultBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Client defines the current-weather operations.
type Client interface {
	// Current fetches the current weather for a city. Upstream failures reported in the
	// JSON body (bad key, unknown city) come back as a response with a non-200 Code and a
	// nil error; only transport and decoding failures return an error.
	Current(ctx context.Context, city string) (*CurrentResponse, error)
}

// Code is the upstream "cod" field, which the API sends either as a number or a string.
type Code int

// UnmarshalJSON accepts 200 and "200".
func (c *Code) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return eris.Wrapf(err, "openweather: parse cod %s", string(data))
	}
	*c = Code(n)
	return nil
}

// CurrentResponse is the parsed current-weather payload.
type CurrentResponse struct {
	Code     Code   `json:"cod"`
	Message  string `json:"message,omitempty"`
	Name     string `json:"name"`
	Dt       int64  `json:"dt"`
	Timezone int    `json:"timezone"`
	Main     Main   `json:"main"`
}

// Main holds the temperature block.
type Main struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Humidity  int     `json:"humidity"`
}

// Observation converts the payload into the classifier's input record.
func (r *CurrentResponse) Observation() model.Observation {
	return model.Observation{
		StatusCode:  int(r.Code),
		Message:     r.Message,
		City:        r.Name,
		Temperature: r.Main.Temp,
		Timestamp:   r.Dt,
		Timezone:    r.Timezone,
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing). Empty keeps the default.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUnits sets the unit system: metric, imperial or standard. Empty keeps metric.
func WithUnits(units string) Option {
	return func(c *httpClient) {
		if units != "" {
			c.units = units
		}
	}
}

// WithRateLimit sets the client-side request rate. Non-positive values keep the default.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *httpClient) {
		if perSec <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// WithRetryPolicy sets the retry policy for transient failures.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	units   string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.Policy
}

// NewClient creates a new OpenWeatherMap client. The free tier allows 60 calls per
// minute, so the default limiter permits one call per second with bursts of 5.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		units:   "metric",
		http: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(1, 5),
		retry:   resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.Name = "openweather current"
	return c
}

func (c *httpClient) Current(ctx context.Context, city string) (*CurrentResponse, error) {
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", c.units)
	reqURL := c.baseURL + "/weather?" + params.Encode()

	result, err := resilience.Do(ctx, c.retry, func(ctx context.Context) (*CurrentResponse, error) {
		return c.do(ctx, reqURL)
	})
	if err != nil {
		// A transient status that outlived the retries still carries an upstream payload.
		if result != nil && result.Code != 0 {
			return result, nil
		}
		return nil, eris.Wrapf(err, "openweather: current %s", city)
	}
	return result, nil
}

func (c *httpClient) do(ctx context.Context, reqURL string) (*CurrentResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "openweather: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "openweather: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "openweather: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "openweather: read response body")
	}

	var result CurrentResponse
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode == http.StatusOK {
			return nil, eris.Wrap(err, "openweather: unmarshal response")
		}
		result = CurrentResponse{Message: strings.TrimSpace(string(body))}
		if result.Message == "" {
			result.Message = http.StatusText(resp.StatusCode)
		}
	}
	if result.Code == 0 {
		result.Code = Code(resp.StatusCode)
	}

	if resilience.TransientStatus(resp.StatusCode) {
		return &result, resilience.NewTransientError(
			eris.Errorf("openweather: status %d: %s", resp.StatusCode, result.Message), resp.StatusCode)
	}
	return &result, nil
}
