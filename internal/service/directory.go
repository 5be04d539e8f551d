package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/UnknownOlympus/compass/internal/geocoding"
	"github.com/UnknownOlympus/compass/internal/metrics"
	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/UnknownOlympus/compass/internal/repository"
)

const (
	// DefaultRadiusKm is the nearby radius used when a query does not set one.
	DefaultRadiusKm = 50
	// DefaultSearchLimit caps text search results.
	DefaultSearchLimit = 20
	// AllTypes is the business type filter value that matches every type.
	AllTypes = "All"
)

// ErrPlaceSearchDisabled is returned by FindPlace when no geocoding provider is configured.
var ErrPlaceSearchDisabled = errors.New("place search is not configured")

// NearbyQuery selects verified businesses around a point.
type NearbyQuery struct {
	Coordinates  *models.Coordinates // nil returns every business without a distance
	RadiusKm     float64             // <= 0 means DefaultRadiusKm
	BusinessType string              // "" or AllTypes means any type
}

// DirectoryService answers business directory queries on top of the repository
// and resolves free-text place queries with a geocoding provider.
type DirectoryService struct {
	log          *slog.Logger         // Logger for logging service activities
	repo         repository.Interface // Interface for data repository access
	provider     geocoding.Provider   // Geocoding provider for place search, may be nil
	providerName string               // Name of the provider for metrics labeling
	metrics      *metrics.Metrics     // Metrics for tracking service performance
}

// NewDirectoryService creates a new instance of DirectoryService.
func NewDirectoryService(
	log *slog.Logger,
	repo repository.Interface,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
) *DirectoryService {
	return &DirectoryService{
		log:          log,
		repo:         repo,
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
	}
}

// Nearby returns verified businesses within the query radius sorted by ascending distance.
// Without query coordinates every matching business is returned with a nil distance.
func (ds *DirectoryService) Nearby(ctx context.Context, query NearbyQuery) ([]models.Business, error) {
	businessType := query.BusinessType
	if businessType == AllTypes {
		businessType = ""
	}

	if query.Coordinates != nil {
		if err := query.Coordinates.Validate(); err != nil {
			return nil, err
		}
	}

	businesses, err := ds.repo.FetchVerifiedBusinesses(ctx, businessType)
	if err != nil {
		ds.metrics.NearbySearches.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("failed to load businesses: %w", err)
	}
	ds.metrics.NearbySearches.WithLabelValues("success").Inc()

	if query.Coordinates == nil {
		return businesses, nil
	}

	radius := query.RadiusKm
	if radius <= 0 {
		radius = DefaultRadiusKm
	}

	nearby := make([]models.Business, 0, len(businesses))
	for _, b := range businesses {
		distance := models.DistanceKm(*query.Coordinates, b.Coordinates)
		if distance > radius {
			continue
		}
		b.Distance = &distance
		nearby = append(nearby, b)
	}

	slices.SortStableFunc(nearby, func(a, b models.Business) int {
		return cmp.Compare(*a.Distance, *b.Distance)
	})

	ds.log.DebugContext(ctx, "Nearby search finished",
		"lat", query.Coordinates.Latitude,
		"lon", query.Coordinates.Longitude,
		"radius_km", radius,
		"type", businessType,
		"found", len(nearby))

	return nearby, nil
}

// Search matches the text against name, address and type of verified businesses.
// A blank text returns an empty list without touching the repository.
func (ds *DirectoryService) Search(ctx context.Context, text string) ([]models.Business, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []models.Business{}, nil
	}

	businesses, err := ds.repo.SearchBusinesses(ctx, text, DefaultSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search businesses: %w", err)
	}

	return businesses, nil
}

// FindPlace geocodes a free-text place query such as a city name.
func (ds *DirectoryService) FindPlace(ctx context.Context, query string) (*models.Place, error) {
	if ds.provider == nil {
		return nil, ErrPlaceSearchDisabled
	}

	startTime := time.Now()
	place, err := ds.provider.Geocode(ctx, query)
	ds.metrics.GeocoderSeconds.WithLabelValues(ds.providerName).Observe(time.Since(startTime).Seconds())

	if err != nil {
		ds.metrics.PlaceSearches.WithLabelValues("failure").Inc()
		ds.log.WarnContext(ctx, "Place search failed", "query", query, "error", err)
		return nil, err
	}

	ds.metrics.PlaceSearches.WithLabelValues("success").Inc()

	return place, nil
}

// AddFavorite marks a business as a favorite of owner and reports whether it was new.
func (ds *DirectoryService) AddFavorite(ctx context.Context, owner string, businessID int) (bool, error) {
	added, err := ds.repo.AddFavorite(ctx, owner, businessID)
	if err != nil {
		return false, err
	}
	ds.log.DebugContext(ctx, "Favorite added", "owner", owner, "business_id", businessID, "new", added)

	return added, nil
}

// RemoveFavorite drops a favorite of owner.
func (ds *DirectoryService) RemoveFavorite(ctx context.Context, owner string, businessID int) error {
	return ds.repo.RemoveFavorite(ctx, owner, businessID)
}

// Favorites lists the favorite businesses of owner.
func (ds *DirectoryService) Favorites(ctx context.Context, owner string) ([]models.Business, error) {
	return ds.repo.FetchFavorites(ctx, owner)
}

// ClearFavorites drops every favorite of owner.
func (ds *DirectoryService) ClearFavorites(ctx context.Context, owner string) error {
	return ds.repo.ClearFavorites(ctx, owner)
}
