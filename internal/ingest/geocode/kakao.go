// Package geocode resolves free-text Korean addresses to coordinates through
// the Kakao local search API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	e "github.com/gartstein/jobscraper/internal/ingest/errors"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://dapi.kakao.com"
	addressPath    = "/v2/local/search/address.json"
)

type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds a single HTTP request.
	Timeout time.Duration
	// RatePerSecond and Burst shape outgoing requests; zero disables limiting.
	RatePerSecond float64
	Burst         int
	// MaxRetries bounds retries of transient failures.
	MaxRetries           uint64
	RetryInitialInterval time.Duration
}

type addressResponse struct {
	Documents []struct {
		AddressName string `json:"address_name"`
		X           string `json:"x"`
		Y           string `json:"y"`
	} `json:"documents"`
}

// Client implements the engine's Geocoder.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	retries uint64
	backoff time.Duration
	logger  *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Authorization", "KakaoAK "+cfg.APIKey)
	client.SetHeader("Accept", "application/json")

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	return &Client{
		http:    client,
		limiter: limiter,
		retries: cfg.MaxRetries,
		backoff: cfg.RetryInitialInterval,
		logger:  logger.Named("geocoder"),
	}
}

// GetCoordinates returns the first match for address. No match is
// ErrNotFound; transport failures and 5xx/429 answers are ErrTransient after
// the retries are spent.
func (c *Client) GetCoordinates(ctx context.Context, address string) (models.Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.Coordinates{}, fmt.Errorf("%w: empty address", e.ErrInvalidInput)
	}

	var coords models.Coordinates
	b := backoff.NewExponentialBackOff()
	if c.backoff > 0 {
		b.InitialInterval = c.backoff
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.retries), ctx)
	err := backoff.Retry(func() error {
		var err error
		coords, err = c.lookup(ctx, address)
		if err != nil && !errors.Is(err, e.ErrTransient) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	if err != nil {
		c.logger.Debug("Geocoding lookup failed", zap.String("address", address), zap.Error(err))
		return models.Coordinates{}, err
	}
	return coords, nil
}

func (c *Client) lookup(ctx context.Context, address string) (models.Coordinates, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.Coordinates{}, fmt.Errorf("%w: %v", e.ErrTransient, err)
		}
	}

	var body addressResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"analyze_type": "similar",
			"page":         "1",
			"size":         "10",
			"query":        address,
		}).
		SetResult(&body).
		Get(addressPath)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: kakao request: %v", e.ErrTransient, err)
	}

	switch code := res.StatusCode(); {
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return models.Coordinates{}, fmt.Errorf("%w: kakao returned %d", e.ErrTransient, code)
	case code >= http.StatusBadRequest:
		return models.Coordinates{}, fmt.Errorf("kakao returned %d: %s", code, strings.TrimSpace(res.String()))
	}

	if len(body.Documents) == 0 {
		return models.Coordinates{}, fmt.Errorf("%w: no coordinates for %q", e.ErrNotFound, address)
	}
	doc := body.Documents[0]
	lng, err := strconv.ParseFloat(doc.X, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("kakao longitude %q: %w", doc.X, err)
	}
	lat, err := strconv.ParseFloat(doc.Y, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("kakao latitude %q: %w", doc.Y, err)
	}
	return models.Coordinates{Longitude: lng, Latitude: lat}, nil
}
