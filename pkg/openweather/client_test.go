package openweather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/temp-anomaly/internal/resilience"
)

func fastRetry() resilience.Policy {
	return resilience.Policy{Attempts: 3, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-key",
		WithBaseURL(srv.URL),
		WithRateLimit(1000, 100),
		WithRetryPolicy(fastRetry()),
	)
}

func TestCurrent_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "Paris", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"cod":200,"name":"Paris","dt":1705320000,"timezone":3600,"main":{"temp":4.2,"feels_like":1.5,"humidity":80}}`))
	})

	resp, err := c.Current(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, Code(200), resp.Code)
	assert.Equal(t, "Paris", resp.Name)
	assert.InDelta(t, 4.2, resp.Main.Temp, 1e-9)
	assert.Equal(t, 80, resp.Main.Humidity)
}

func TestCurrent_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	})

	resp, err := c.Current(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, Code(401), resp.Code)
	assert.Equal(t, "Invalid API key", resp.Message)
}

func TestCurrent_NotFoundStringCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
	})

	resp, err := c.Current(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, Code(404), resp.Code)
	assert.Equal(t, "city not found", resp.Message)
}

func TestCurrent_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"cod":200,"name":"Oslo","dt":1,"timezone":0,"main":{"temp":-3}}`))
	})

	resp, err := c.Current(context.Background(), "Oslo")
	require.NoError(t, err)
	assert.Equal(t, Code(200), resp.Code)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCurrent_TransientExhaustedReturnsPayload(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"cod":429,"message":"rate limited"}`))
	})

	resp, err := c.Current(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, Code(429), resp.Code)
	assert.Equal(t, "rate limited", resp.Message)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCurrent_NonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	resp, err := c.Current(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Equal(t, Code(403), resp.Code)
	assert.Equal(t, "Forbidden", resp.Message)
}

func TestCurrent_BadJSONOnSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.Current(context.Background(), "Paris")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestCurrent_Units(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "imperial", r.URL.Query().Get("units"))
		_, _ = w.Write([]byte(`{"cod":200}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL+"/"), WithUnits("imperial"), WithRateLimit(1000, 10))
	_, err := c.Current(context.Background(), "Austin")
	require.NoError(t, err)
}

func TestCode_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Code
	}{
		{`200`, 200},
		{`"404"`, 404},
		{`null`, 0},
		{`""`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var c Code
			require.NoError(t, json.Unmarshal([]byte(tt.in), &c))
			assert.Equal(t, tt.want, c)
		})
	}

	var c Code
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &c))
}

func TestCurrentResponse_Observation(t *testing.T) {
	r := &CurrentResponse{
		Code:     200,
		Name:     "Tokyo",
		Dt:       1705320000,
		Timezone: 32400,
		Main:     Main{Temp: 8.5},
	}
	obs := r.Observation()
	assert.Equal(t, 200, obs.StatusCode)
	assert.Equal(t, "Tokyo", obs.City)
	assert.InDelta(t, 8.5, obs.Temperature, 1e-9)
	assert.Equal(t, int64(1705320000), obs.Timestamp)
	assert.Equal(t, 32400, obs.Timezone)
}

func TestNewClient_Options(t *testing.T) {
	c := NewClient("k",
		WithTimeout(3*time.Second),
		WithRateLimit(0, 0),
	).(*httpClient)

	assert.Equal(t, 3*time.Second, c.http.Timeout)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.InDelta(t, 1.0, float64(c.limiter.Limit()), 1e-9)
	assert.Equal(t, 5, c.limiter.Burst())
}
