// Package weather looks up current conditions from a remote
// Open-Meteo-compatible API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Report is the current-conditions payload returned to callers.
type Report struct {
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Temperature float64   `json:"temperature"`
	WindSpeed   float64   `json:"wind_speed"`
	Code        int       `json:"code"`
	Condition   string    `json:"condition"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Client fetches current weather with a small TTL cache so repeated
// lookups for the same coordinates do not hit the remote API.
type Client struct {
	baseURL string
	http    *http.Client
	ttl     time.Duration

	mu    sync.Mutex
	cache map[string]Report
}

// NewClient creates a weather client against baseURL. ttl bounds how
// long a fetched report is served from cache; zero disables caching.
func NewClient(baseURL string, timeout, ttl time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		ttl:     ttl,
		cache:   make(map[string]Report),
	}
}

// currentResponse mirrors the remote API shape.
type currentResponse struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
		WindSpeed   float64 `json:"windspeed"`
		WeatherCode int     `json:"weathercode"`
	} `json:"current_weather"`
}

// Current returns the current conditions at the given coordinates.
func (c *Client) Current(ctx context.Context, lat, lon float64) (Report, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok && c.ttl > 0 && time.Since(cached.FetchedAt) < c.ttl {
		return cached, nil
	}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.4f", lat))
	q.Set("longitude", fmt.Sprintf("%.4f", lon))
	q.Set("current_weather", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("weather: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("weather: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("weather: unexpected status %d", resp.StatusCode)
	}

	var body currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Report{}, fmt.Errorf("weather: decode response: %w", err)
	}

	report := Report{
		Latitude:    body.Latitude,
		Longitude:   body.Longitude,
		Temperature: body.CurrentWeather.Temperature,
		WindSpeed:   body.CurrentWeather.WindSpeed,
		Code:        body.CurrentWeather.WeatherCode,
		Condition:   describe(body.CurrentWeather.WeatherCode),
		FetchedAt:   time.Now(),
	}

	c.mu.Lock()
	c.cache[key] = report
	c.mu.Unlock()

	return report, nil
}

// describe maps WMO weather codes to human text.
func describe(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return "unknown"
	}
}
