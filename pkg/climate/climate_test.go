package climate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ClimateIQ/climateiq-mvp/engine/domain"
)

func TestHintsFor(t *testing.T) {
	tests := []struct {
		name string
		w    Weather
		want string
	}{
		{"clear skies", Weather{CloudCover: 10, TemperatureC: 30}, "solar"},
		{"windy", Weather{CloudCover: 90, WindSpeedKmh: 30, TemperatureC: 5}, "wind"},
		{"mild", Weather{CloudCover: 90, TemperatureC: 20}, "heating and cooling"},
		{"nothing special", Weather{CloudCover: 90, TemperatureC: 5}, "everyday actions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := hintsFor(tt.w)
			found := false
			for _, h := range hints {
				if strings.Contains(h, tt.want) {
					found = true
				}
			}
			if !found {
				t.Fatalf("hints %v missing %q", hints, tt.want)
			}
		})
	}
}

func TestHintsForStacks(t *testing.T) {
	hints := hintsFor(Weather{CloudCover: 10, WindSpeedKmh: 30, TemperatureC: 20})
	if len(hints) != 3 {
		t.Fatalf("hints = %v, want all three conditions", hints)
	}
}

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient()
	c.ForecastURL = srv.URL + "/forecast"
	c.GeocodeURL = srv.URL + "/geocode"
	return c
}

func TestLocate(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/geocode") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("name") != "Berlin" {
			t.Errorf("name = %q", r.URL.Query().Get("name"))
		}
		w.Write([]byte(`{"results":[{"name":"Berlin","latitude":52.52,"longitude":13.4}]}`))
	})

	lat, lon, name, err := c.Locate(context.Background(), "Berlin")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if lat != 52.52 || lon != 13.4 || name != "Berlin" {
		t.Fatalf("Locate = (%v, %v, %q)", lat, lon, name)
	}
}

func TestLocateNoResults(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	})
	if _, _, _, err := c.Locate(context.Background(), "Atlantis"); err == nil {
		t.Fatal("expected no-results error")
	}
}

func TestCurrent(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"temperature_2m":18.5,"wind_speed_10m":12.0,"cloud_cover":25}}`))
	})

	weather, err := c.Current(context.Background(), 52.52, 13.4)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if weather.TemperatureC != 18.5 || weather.WindSpeedKmh != 12.0 || weather.CloudCover != 25 {
		t.Fatalf("weather = %+v", weather)
	}
}

func TestContext(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/geocode") {
			w.Write([]byte(`{"results":[{"name":"Lisbon","latitude":38.7,"longitude":-9.1}]}`))
			return
		}
		w.Write([]byte(`{"current":{"temperature_2m":22,"wind_speed_10m":5,"cloud_cover":10}}`))
	})

	rc, err := c.Context(context.Background(), "lisbon")
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	if rc.Location != "Lisbon" {
		t.Fatalf("location = %q", rc.Location)
	}
	if len(rc.Hints) == 0 {
		t.Fatal("no hints derived")
	}
}

func TestGetJSONServerError(t *testing.T) {
	c := testServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.Current(context.Background(), 0, 0)
	if !errors.Is(err, domain.ErrCollaboratorUnavailable) {
		t.Fatalf("err = %v, want ErrCollaboratorUnavailable", err)
	}
}
