package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twpayne/go-polyline"
)

const (
	googleGeocodeURL    = "https://maps.googleapis.com/maps/api/geocode/json"
	googleDirectionsURL = "https://maps.googleapis.com/maps/api/directions/json"
	defaultHTTPTimeout  = 8 * time.Second
)

// Google talks to the Geocoding and Directions APIs. Without an API key every
// geocode is a miss and every route fails, so callers fall back.
type Google struct {
	apiKey        string
	httpClient    *http.Client
	geocodeURL    string
	directionsURL string
}

type GoogleOption func(*Google)

// WithBaseURLs points the client at another host, e.g. a test server.
func WithBaseURLs(geocodeURL, directionsURL string) GoogleOption {
	return func(g *Google) {
		g.geocodeURL = geocodeURL
		g.directionsURL = directionsURL
	}
}

func WithHTTPClient(c *http.Client) GoogleOption {
	return func(g *Google) { g.httpClient = c }
}

func NewGoogle(apiKey string, opts ...GoogleOption) *Google {
	g := &Google{
		apiKey:        strings.TrimSpace(apiKey),
		httpClient:    &http.Client{Timeout: defaultHTTPTimeout},
		geocodeURL:    googleGeocodeURL,
		directionsURL: googleDirectionsURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type googleGeocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type googleDirectionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

func (g *Google) Geocode(ctx context.Context, address string) (Point, error) {
	address = strings.TrimSpace(address)
	if address == "" || g.apiKey == "" {
		return Point{}, ErrNoMatch
	}

	var payload googleGeocodeResponse
	if err := g.get(ctx, g.geocodeURL, url.Values{"address": []string{address}}, &payload); err != nil {
		return Point{}, err
	}
	if payload.Status == "ZERO_RESULTS" || (payload.Status == "OK" && len(payload.Results) == 0) {
		return Point{}, ErrNoMatch
	}
	if payload.Status != "OK" {
		return Point{}, fmt.Errorf("%w: geocode status %s %s", ErrNoMatch, payload.Status, payload.ErrorMessage)
	}

	loc := payload.Results[0].Geometry.Location
	return Point{Lat: loc.Lat, Lon: loc.Lng}, nil
}

func (g *Google) Route(ctx context.Context, origin, destination Point) (Route, error) {
	if g.apiKey == "" {
		return Route{}, fmt.Errorf("%w: no api key", ErrNoRoute)
	}

	params := url.Values{
		"origin":      []string{latLng(origin)},
		"destination": []string{latLng(destination)},
		"mode":        []string{"driving"},
	}
	var payload googleDirectionsResponse
	if err := g.get(ctx, g.directionsURL, params, &payload); err != nil {
		return Route{}, fmt.Errorf("%w: %v", ErrNoRoute, err)
	}
	if payload.Status != "OK" || len(payload.Routes) == 0 {
		return Route{}, fmt.Errorf("%w: directions status %s %s", ErrNoRoute, payload.Status, payload.ErrorMessage)
	}

	best := payload.Routes[0]
	var meters, seconds float64
	for _, leg := range best.Legs {
		meters += leg.Distance.Value
		seconds += leg.Duration.Value
	}

	coords, _, err := polyline.DecodeCoords([]byte(best.OverviewPolyline.Points))
	if err != nil {
		return Route{}, fmt.Errorf("%w: decode polyline: %v", ErrNoRoute, err)
	}
	path := make([]Point, 0, len(coords))
	for _, c := range coords {
		path = append(path, Point{Lat: c[0], Lon: c[1]})
	}

	return Route{DistanceKm: meters / 1000, DurationMin: seconds / 60, Path: path}, nil
}

func (g *Google) get(ctx context.Context, base string, params url.Values, out any) error {
	params.Set("key", g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func latLng(p Point) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}
