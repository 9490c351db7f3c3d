package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:       srv.URL,
		APIKey:        "test-key",
		RatePerSecond: 100,
		Burst:         10,
		MaxRetries:    2,

		RetryInitialInterval: time.Millisecond,
	}, zaptest.NewLogger(t))
}

func TestGetCoordinates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/local/search/address.json", r.URL.Path)
		assert.Equal(t, "KakaoAK test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "서울 강남구 테헤란로 152", r.URL.Query().Get("query"))
		assert.Equal(t, "similar", r.URL.Query().Get("analyze_type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documents":[{"address_name":"서울 강남구 역삼동 737","x":"127.036508620542","y":"37.5000242405515"}]}`))
	})

	coords, err := client.GetCoordinates(context.Background(), " 서울 강남구 테헤란로 152 ")
	require.NoError(t, err)
	assert.InDelta(t, 127.036508620542, coords.Longitude, 1e-9)
	assert.InDelta(t, 37.5000242405515, coords.Latitude, 1e-9)
}

func TestGetCoordinatesNoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documents":[]}`))
	})

	_, err := client.GetCoordinates(context.Background(), "nowhere")
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestGetCoordinatesRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"documents":[{"x":"126.9","y":"37.5"}]}`))
	})

	coords, err := client.GetCoordinates(context.Background(), "Seoul")
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
	assert.InDelta(t, 126.9, coords.Longitude, 1e-9)
}

func TestGetCoordinatesUnavailable(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.GetCoordinates(context.Background(), "Seoul")
	assert.ErrorIs(t, err, e.ErrTransient)
	assert.EqualValues(t, 3, calls.Load(), "initial attempt plus retries")
}

func TestGetCoordinatesClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.GetCoordinates(context.Background(), "Seoul")
	require.Error(t, err)
	assert.NotErrorIs(t, err, e.ErrTransient)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetCoordinatesEmptyAddress(t *testing.T) {
	client := NewClient(Config{}, zaptest.NewLogger(t))

	_, err := client.GetCoordinates(context.Background(), "  ")
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}
