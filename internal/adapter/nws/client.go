// Package nws implements the forecast and observation collaborators against
// the National Weather Service API (api.weather.gov).
package nws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/northlakelabs/weather-oracle/internal/domain"
	"github.com/northlakelabs/weather-oracle/internal/observability"
)

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errCircuitOpen = errors.New("circuit breaker open")
)

// celsiusUnit is the WMO unit code NWS uses for Celsius temperatures.
const celsiusUnit = "wmoUnit:degC"

// gridpointCacheSize bounds the coordinate-to-forecast-URL cache.
const gridpointCacheSize = 64

// Client talks to the NWS API with a circuit breaker and bounded retries.
// It implements domain.ForecastSource and domain.ObservationSource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	maxRetries int
	breaker    *gobreaker.CircuitBreaker
	gridpoints *lruCache
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an NWS API client.
func NewClient(baseURL, userAgent string, timeout time.Duration, maxRetries int, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		maxRetries: maxRetries,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "nws",
		}),
		gridpoints: newLRUCache(gridpointCacheSize),
		logger:     logger,
		metrics:    metrics,
	}
}

// NWS wire shapes. Numeric fields arrive as nullable quantities with a WMO
// unit code.
type quantity struct {
	Value    *float64 `json:"value"`
	UnitCode string   `json:"unitCode"`
}

type observationProperties struct {
	Timestamp        time.Time `json:"timestamp"`
	Temperature      quantity  `json:"temperature"`
	RelativeHumidity quantity  `json:"relativeHumidity"`
	WindSpeed        quantity  `json:"windSpeed"`
	TextDescription  string    `json:"textDescription"`
}

type latestObservationResponse struct {
	Properties observationProperties `json:"properties"`
}

type observationsResponse struct {
	Features []struct {
		Properties observationProperties `json:"properties"`
	} `json:"features"`
}

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []forecastPeriod `json:"periods"`
	} `json:"properties"`
}

type forecastPeriod struct {
	Temperature float64 `json:"temperature"`
	IsDaytime   bool    `json:"isDaytime"`
}

// Forecast resolves the station's gridpoint, fetches its forecast, and
// returns the first daytime period as the high and the first nighttime
// period as the low, scanning at most the next four periods.
func (c *Client) Forecast(ctx context.Context, profile domain.StationProfile) (domain.Forecast, error) {
	forecastURL, err := c.forecastURL(ctx, profile.Lat, profile.Lon)
	if err != nil {
		return domain.Forecast{}, err
	}

	body, err := c.get(ctx, "forecast", forecastURL)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("fetch forecast: %w", err)
	}

	var forecast forecastResponse
	if err := json.Unmarshal(body, &forecast); err != nil {
		return domain.Forecast{}, fmt.Errorf("decode forecast: %w", err)
	}

	var result domain.Forecast
	periods := forecast.Properties.Periods
	if len(periods) > 4 {
		periods = periods[:4]
	}
	for _, p := range periods {
		temp := p.Temperature
		if p.IsDaytime && result.High == nil {
			result.High = &temp
		}
		if !p.IsDaytime && result.Low == nil {
			result.Low = &temp
		}
	}
	return result, nil
}

// forecastURL resolves coordinates to a gridpoint forecast URL, consulting
// the cache first since gridpoint assignments are stable.
func (c *Client) forecastURL(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	if u, ok := c.gridpoints.get(key); ok {
		return u, nil
	}

	pointsURL := fmt.Sprintf("%s/points/%g,%g", c.baseURL, lat, lon)
	body, err := c.get(ctx, "forecast", pointsURL)
	if err != nil {
		return "", fmt.Errorf("fetch gridpoint: %w", err)
	}

	var points pointsResponse
	if err := json.Unmarshal(body, &points); err != nil {
		return "", fmt.Errorf("decode gridpoint: %w", err)
	}
	if points.Properties.Forecast == "" {
		return "", errors.New("gridpoint response missing forecast URL")
	}

	c.gridpoints.put(key, points.Properties.Forecast)
	return points.Properties.Forecast, nil
}

// Latest returns the most recent observation for a station, with the
// temperature normalized to Fahrenheit.
func (c *Client) Latest(ctx context.Context, stationID string) (domain.Observation, error) {
	u := fmt.Sprintf("%s/stations/%s/observations/latest", c.baseURL, url.PathEscape(stationID))
	body, err := c.get(ctx, "latest", u)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("fetch latest observation: %w", err)
	}

	var resp latestObservationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Observation{}, fmt.Errorf("decode latest observation: %w", err)
	}

	props := resp.Properties
	obs := domain.Observation{
		Station:      stationID,
		Timestamp:    props.Timestamp,
		Humidity:     props.RelativeHumidity.Value,
		WindSpeedKMH: props.WindSpeed.Value,
		Description:  props.TextDescription,
	}

	if props.Temperature.Value != nil {
		raw := *props.Temperature.Value
		tempF := raw
		if props.Temperature.UnitCode == celsiusUnit {
			obs.TempC = &raw
			tempF = domain.CToF(raw)
		}
		obs.TempF = &tempF
	}
	return obs, nil
}

// Readings returns all temperature readings for a station in the [from, to)
// window. Readings without a temperature value are dropped.
func (c *Client) Readings(ctx context.Context, stationID string, from, to time.Time) ([]domain.Reading, error) {
	params := url.Values{
		"start": {from.UTC().Format(time.RFC3339)},
		"end":   {to.UTC().Format(time.RFC3339)},
		"limit": {"500"},
	}
	u := fmt.Sprintf("%s/stations/%s/observations?%s", c.baseURL, url.PathEscape(stationID), params.Encode())

	body, err := c.get(ctx, "readings", u)
	if err != nil {
		return nil, fmt.Errorf("fetch observations: %w", err)
	}

	var resp observationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}

	readings := make([]domain.Reading, 0, len(resp.Features))
	for _, f := range resp.Features {
		temp := f.Properties.Temperature
		if temp.Value == nil || math.IsNaN(*temp.Value) {
			continue
		}
		readings = append(readings, domain.Reading{
			Timestamp: f.Properties.Timestamp,
			Value:     *temp.Value,
			Unit:      temp.UnitCode,
		})
	}
	return readings, nil
}

// get performs a GET with the NWS headers, a circuit breaker, and retries
// with exponential backoff on rate limiting and server errors.
func (c *Client) get(ctx context.Context, endpoint, fullURL string) ([]byte, error) {
	backoff := 200 * time.Millisecond
	const maxBackoff = 2 * time.Second

	var lastErr error
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		body, err := c.doOnce(ctx, endpoint, fullURL)
		if err == nil {
			return body, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.NWSRequests.WithLabelValues(endpoint, "error").Inc()
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		if !errors.Is(err, errRateLimited) && !errors.Is(err, errServerError) {
			c.metrics.NWSRequests.WithLabelValues(endpoint, "error").Inc()
			return nil, err
		}

		lastErr = err
		if attempt >= c.maxRetries {
			c.metrics.NWSRequests.WithLabelValues(endpoint, "error").Inc()
			return nil, lastErr
		}

		c.logger.Debug("retrying nws request", "endpoint", endpoint, "attempt", attempt+1, "backoff", backoff, "error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (c *Client) doOnce(ctx context.Context, endpoint, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, execErr := c.httpClient.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, errRateLimited
		case resp.StatusCode >= 500:
			return nil, fmt.Errorf("%w: status %d", errServerError, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("nws API error: status %d: %s", resp.StatusCode, body)
		}

		return io.ReadAll(resp.Body)
	})
	c.metrics.NWSRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	c.metrics.NWSRequests.WithLabelValues(endpoint, "success").Inc()
	return result.([]byte), nil
}
