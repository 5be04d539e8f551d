package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/UnknownOlympus/compass/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrEmptyResponse is returned when the Google Maps API responds with an empty result.
var ErrEmptyResponse = errors.New("get empty response from Google Maps API")

// NewGoogleProvider initializes a new GoogleProvider with the given client and logger.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Geocode looks the query up with the Google Maps Geocoding API and returns the top hit.
// The place name is the first component of the formatted address.
func (gp *GoogleProvider) Geocode(ctx context.Context, query string) (*models.Place, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "query", query)

	req := maps.GeocodingRequest{Address: query}
	geocodeResponse, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode query: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrEmptyResponse
	}
	top := geocodeResponse[0]

	return &models.Place{
		Coordinates: models.Coordinates{Latitude: top.Geometry.Location.Lat, Longitude: top.Geometry.Location.Lng},
		Name:        shortName(top.FormattedAddress, query),
	}, nil
}

// shortName returns the first comma-separated component of a display name,
// or fallback if there is none.
func shortName(display, fallback string) string {
	name, _, _ := strings.Cut(display, ",")
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}

	return name
}
