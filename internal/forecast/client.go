package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/nerrad567/irrigation-core/internal/infrastructure/config"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxFailures = 5
	defaultOpenTimeout = time.Minute
	maxResponseBytes   = 1 << 20
	secondsPerHour     = 3600
	userAgent          = "irrigation-core"
)

// Forecast is the weather input to the decision model.
type Forecast struct {
	// RainChance is the precipitation probability for the next hour, 0-100.
	RainChance float64 `json:"rain_chance"`

	// SunHours is today's expected sunshine duration in hours.
	SunHours float64 `json:"sun_hours"`
}

// Logger defines the logging interface used by the Client.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Client is an Open-Meteo forecast client. Safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     Logger
}

// NewClient creates a client from configuration.
//
// Returns:
//   - *Client: Ready to use
//   - error: If the configured URL cannot be parsed
func NewClient(cfg config.ForecastConfig) (*Client, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("forecast: invalid url %q", cfg.URL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
		logger:     noopLogger{},
	}
	c.breaker = newBreaker(cfg.Breaker, c.onStateChange)
	return c, nil
}

func newBreaker(cfg config.BreakerConfig, onChange func(string, gobreaker.State, gobreaker.State)) *gobreaker.CircuitBreaker {
	fails := cfg.MaxFailures
	if fails == 0 {
		fails = defaultMaxFailures
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "open-meteo",
		Interval: cfg.Interval,
		Timeout:  openTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		// Our own shutdown is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: onChange,
	})
}

// SetLogger sets the logger for breaker state changes.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

func (c *Client) onStateChange(name string, from, to gobreaker.State) {
	if to == gobreaker.StateOpen {
		c.logger.Warn("forecast circuit opened", "breaker", name, "from", from.String())
		return
	}
	c.logger.Info("forecast circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
}

// BreakerState returns the breaker state ("closed", "half-open", "open").
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// Get fetches the forecast for a location.
//
// Parameters:
//   - ctx: Bounds the request (the engine's per-call timeout)
//   - latitude, longitude: Decimal degrees
//   - timezone: IANA zone, so "today" is the device's local day
//
// Returns:
//   - Forecast: rain chance and sun hours
//   - error: wrapping ErrRequestFailed, ErrMalformedResponse, or ErrCircuitOpen
func (c *Client) Get(ctx context.Context, latitude, longitude float64, timezone string) (Forecast, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, latitude, longitude, timezone)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Forecast{}, fmt.Errorf("%w: %w", ErrCircuitOpen, err)
		}
		return Forecast{}, err
	}
	return result.(Forecast), nil //nolint:forcetypeassert // fetch only returns Forecast
}

func (c *Client) fetch(ctx context.Context, latitude, longitude float64, timezone string) (Forecast, error) {
	u := *c.baseURL
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("timezone", timezone)
	q.Set("daily", "sunshine_duration")
	q.Set("hourly", "precipitation_probability")
	q.Set("forecast_days", "1")
	q.Set("forecast_hours", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Forecast{}, fmt.Errorf("%w: building request: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Forecast{}, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Forecast{}, fmt.Errorf("%w: reading body: %w", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Forecast{}, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, providerReason(body))
	}

	return parseResponse(body)
}

// response is the subset of the Open-Meteo body we read.
// Elements are pointers because the API returns null for missing data.
type response struct {
	Hourly *struct {
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
	} `json:"hourly"`
	Daily *struct {
		SunshineDuration []*float64 `json:"sunshine_duration"`
	} `json:"daily"`
}

func parseResponse(body []byte) (Forecast, error) {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return Forecast{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if r.Hourly == nil || len(r.Hourly.PrecipitationProbability) == 0 || r.Hourly.PrecipitationProbability[0] == nil {
		return Forecast{}, fmt.Errorf("%w: hourly.precipitation_probability missing", ErrMalformedResponse)
	}
	if r.Daily == nil || len(r.Daily.SunshineDuration) == 0 || r.Daily.SunshineDuration[0] == nil {
		return Forecast{}, fmt.Errorf("%w: daily.sunshine_duration missing", ErrMalformedResponse)
	}

	rain := *r.Hourly.PrecipitationProbability[0]
	sunSeconds := *r.Daily.SunshineDuration[0]

	if math.IsNaN(rain) || rain < 0 || rain > 100 {
		return Forecast{}, fmt.Errorf("%w: precipitation probability %v outside [0, 100]", ErrMalformedResponse, rain)
	}
	if math.IsNaN(sunSeconds) || sunSeconds < 0 || sunSeconds > 24*secondsPerHour {
		return Forecast{}, fmt.Errorf("%w: sunshine duration %v outside one day", ErrMalformedResponse, sunSeconds)
	}

	return Forecast{
		RainChance: rain,
		SunHours:   sunSeconds / secondsPerHour,
	}, nil
}

// providerReason extracts Open-Meteo's {"error":true,"reason":"..."} message.
func providerReason(body []byte) string {
	var e struct {
		Reason string `json:"reason"`
	}
	if json.Unmarshal(body, &e) == nil && e.Reason != "" {
		return e.Reason
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}
