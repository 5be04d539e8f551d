package geocoding

import (
	"context"

	"github.com/UnknownOlympus/compass/internal/models"
)

// Provider is an interface that defines a method for finding a place by free text.
// The Geocode method takes a context and a query such as a city name,
// and returns the best matching place and an error if any occurs.
type Provider interface {
	Geocode(ctx context.Context, query string) (*models.Place, error)
}
