// Package climate fetches regional weather context from the Open-Meteo
// public API and derives simple renewable-energy hints from it. The API
// needs no key, so the client works out of the box; callers treat failures
// as a missing enrichment, not an error path.
package climate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
	"github.com/ClimateIQ/climateiq-mvp/pkg/resilience"
)

const (
	defaultForecastURL = "https://api.open-meteo.com/v1/forecast"
	defaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
)

// Client queries Open-Meteo. Zero-value URLs use the public endpoints.
type Client struct {
	ForecastURL string
	GeocodeURL  string

	http    *http.Client
	limiter *resilience.Limiter
}

// NewClient creates a rate-limited Open-Meteo client.
func NewClient() *Client {
	return &Client{
		ForecastURL: defaultForecastURL,
		GeocodeURL:  defaultGeocodeURL,
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: resilience.NewLimiter(resilience.LimiterOpts{Rate: 2, Burst: 4}),
	}
}

// Weather is a current-conditions snapshot.
type Weather struct {
	TemperatureC float64 `json:"temperature_c"`
	WindSpeedKmh float64 `json:"wind_speed_kmh"`
	CloudCover   float64 `json:"cloud_cover_pct"`
}

// RegionalContext is weather plus derived renewable hints for a location.
type RegionalContext struct {
	Location string   `json:"location"`
	Weather  Weather  `json:"weather"`
	Hints    []string `json:"hints"`
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		CloudCover  float64 `json:"cloud_cover"`
	} `json:"current"`
}

// Locate resolves a place name to coordinates.
func (c *Client) Locate(ctx context.Context, name string) (lat, lon float64, resolved string, err error) {
	q := url.Values{"name": {name}, "count": {"1"}}
	var out geocodeResponse
	if err := c.getJSON(ctx, c.GeocodeURL+"?"+q.Encode(), &out); err != nil {
		return 0, 0, "", fmt.Errorf("climate: geocode %q: %w", name, err)
	}
	if len(out.Results) == 0 {
		return 0, 0, "", fmt.Errorf("climate: geocode %q: no results", name)
	}
	r := out.Results[0]
	return r.Latitude, r.Longitude, r.Name, nil
}

// Current fetches current conditions for coordinates.
func (c *Client) Current(ctx context.Context, lat, lon float64) (Weather, error) {
	q := url.Values{
		"latitude":  {fmt.Sprintf("%.4f", lat)},
		"longitude": {fmt.Sprintf("%.4f", lon)},
		"current":   {"temperature_2m,wind_speed_10m,cloud_cover"},
	}
	var out forecastResponse
	if err := c.getJSON(ctx, c.ForecastURL+"?"+q.Encode(), &out); err != nil {
		return Weather{}, fmt.Errorf("climate: forecast: %w", err)
	}
	return Weather{
		TemperatureC: out.Current.Temperature,
		WindSpeedKmh: out.Current.WindSpeed,
		CloudCover:   out.Current.CloudCover,
	}, nil
}

// Context resolves a location and returns its weather with renewable hints.
func (c *Client) Context(ctx context.Context, location string) (RegionalContext, error) {
	lat, lon, resolved, err := c.Locate(ctx, location)
	if err != nil {
		return RegionalContext{}, err
	}
	w, err := c.Current(ctx, lat, lon)
	if err != nil {
		return RegionalContext{}, err
	}
	return RegionalContext{
		Location: resolved,
		Weather:  w,
		Hints:    hintsFor(w),
	}, nil
}

// hintsFor maps conditions to action suggestions.
func hintsFor(w Weather) []string {
	var hints []string
	if w.CloudCover < 40 {
		hints = append(hints, "Clear skies today: solar generation potential is high.")
	}
	if w.WindSpeedKmh > 20 {
		hints = append(hints, "Windy conditions favor grid wind power; a good day for heavy appliance use.")
	}
	if w.TemperatureC >= 15 && w.TemperatureC <= 25 {
		hints = append(hints, "Mild temperatures: heating and cooling can likely stay off.")
	}
	if len(hints) == 0 {
		hints = append(hints, "Standard conditions: focus on everyday actions like transport and diet.")
	}
	return hints
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCollaboratorUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrCollaboratorUnavailable)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
