// Package session holds one map session per end user: its resolver state,
// map model, reported device position, business filter and last results.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/UnknownOlympus/compass/internal/geolocation"
	"github.com/UnknownOlympus/compass/internal/locator"
	"github.com/UnknownOlympus/compass/internal/mapview"
	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/UnknownOlympus/compass/internal/service"
	"github.com/jonboulle/clockwork"
)

// maxAnnouncements bounds the undelivered announcement queue of a session.
const maxAnnouncements = 50

// Directory is the business directory a session queries.
type Directory interface {
	Nearby(ctx context.Context, query service.NearbyQuery) ([]models.Business, error)
	Search(ctx context.Context, text string) ([]models.Business, error)
	FindPlace(ctx context.Context, query string) (*models.Place, error)
	AddFavorite(ctx context.Context, owner string, businessID int) (bool, error)
	RemoveFavorite(ctx context.Context, owner string, businessID int) error
	Favorites(ctx context.Context, owner string) ([]models.Business, error)
	ClearFavorites(ctx context.Context, owner string) error
}

// Announcement is a short status message for the user.
type Announcement struct {
	Level locator.Level `json:"level"`
	Text  string        `json:"text"`
	At    time.Time     `json:"at"`
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	ID            string            `json:"id"`
	CreatedAt     time.Time         `json:"created_at"`
	Location      locator.State     `json:"location"`
	LocatedAt     *time.Time        `json:"located_at,omitempty"`
	Filter        string            `json:"business_type"`
	Businesses    []models.Business `json:"businesses"`
	Announcements []Announcement    `json:"announcements"`
	Map           mapview.Snapshot  `json:"map"`
}

// SearchResult is the outcome of a session search.
type SearchResult struct {
	Place      *models.Place     `json:"place,omitempty"`
	Businesses []models.Business `json:"businesses"`
}

// Session is a single user's map view.
type Session struct {
	id        string
	createdAt time.Time
	radiusKm  float64
	zoom      int

	directory Directory
	resolver  *locator.Resolver
	view      *mapview.View
	device    *geolocation.ReportedSource
	clock     clockwork.Clock
	log       *slog.Logger

	mu            sync.Mutex
	epoch         uint64 // newest resolution cycle whose nearby results may apply
	filter        string
	businesses    []models.Business
	announcements []Announcement
	locatedAt     *time.Time
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Resolve starts a new resolution cycle and returns its epoch.
func (s *Session) Resolve(ctx context.Context, preferSilent bool) uint64 {
	epoch := s.resolver.Resolve(ctx, preferSilent)
	s.raiseEpoch(epoch)

	return epoch
}

func (s *Session) raiseEpoch(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch = max(s.epoch, epoch)
}

// ReportPosition feeds a device fix from the client.
func (s *Session) ReportPosition(pos geolocation.Position) error {
	if err := pos.Coordinates.Validate(); err != nil {
		return err
	}
	s.device.Report(pos)

	return nil
}

// ReportFailure feeds a device failure code from the client.
func (s *Session) ReportFailure(code string) error {
	err := geolocation.FailureFromCode(code)
	if err == nil {
		return fmt.Errorf("unknown failure code %q", code)
	}
	s.device.ReportFailure(err)

	return nil
}

// SetFilter changes the business type filter and reloads businesses around the
// current location, or every business when no location is known yet.
func (s *Session) SetFilter(ctx context.Context, businessType string) ([]models.Business, error) {
	businessType = strings.TrimSpace(businessType)
	if businessType == service.AllTypes {
		businessType = ""
	}

	s.mu.Lock()
	s.filter = businessType
	s.mu.Unlock()

	query := service.NearbyQuery{Coordinates: s.resolver.Snapshot().Coordinates}
	return s.load(ctx, query)
}

// SearchNearby loads businesses around c with the session radius and filter.
// Results of a superseded cycle are dropped.
func (s *Session) SearchNearby(ctx context.Context, c models.Coordinates, epoch uint64) error {
	businesses, err := s.nearby(ctx, service.NearbyQuery{Coordinates: &c})
	if err != nil {
		return err
	}

	if s.resolver.Epoch() != epoch {
		s.log.DebugContext(ctx, "Dropping nearby results of superseded resolution", "epoch", epoch)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch < s.epoch {
		s.log.DebugContext(ctx, "Dropping nearby results of superseded resolution", "epoch", epoch)
		return nil
	}
	s.epoch = epoch
	s.businesses = businesses
	s.view.SetBusinessMarkers(businesses)

	return nil
}

func (s *Session) load(ctx context.Context, query service.NearbyQuery) ([]models.Business, error) {
	businesses, err := s.nearby(ctx, query)
	if err != nil {
		return nil, err
	}
	s.setBusinesses(businesses)

	return businesses, nil
}

func (s *Session) nearby(ctx context.Context, query service.NearbyQuery) ([]models.Business, error) {
	s.mu.Lock()
	query.BusinessType = s.filter
	s.mu.Unlock()
	query.RadiusKm = s.radiusKm

	businesses, err := s.directory.Nearby(ctx, query)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to load nearby businesses", "error", err)
		return nil, err
	}

	return businesses, nil
}

// Search looks the query up as a place first and loads businesses around it.
// When no place matches it falls back to a name, address and type search.
// The resolved user location is left untouched.
func (s *Session) Search(ctx context.Context, query string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{Businesses: []models.Business{}}, nil
	}

	s.Announce(locator.LevelSuccess, "Searching...")

	place, err := s.directory.FindPlace(ctx, query)
	if err == nil {
		s.view.Recenter(place.Coordinates, s.zoom)
		s.Announce(locator.LevelSuccess, fmt.Sprintf("Found %s! Searching nearby...", place.Name))

		businesses, loadErr := s.load(ctx, service.NearbyQuery{Coordinates: &place.Coordinates})
		if loadErr != nil {
			s.Announce(locator.LevelError, "Search failed. Please try again.")
			return SearchResult{}, loadErr
		}

		return SearchResult{Place: place, Businesses: businesses}, nil
	}
	s.log.DebugContext(ctx, "No place found, falling back to business search", "query", query, "error", err)

	businesses, err := s.directory.Search(ctx, query)
	if err != nil {
		s.Announce(locator.LevelError, "Search failed. Please try again.")
		return SearchResult{}, err
	}

	if len(businesses) == 0 {
		s.Announce(locator.LevelError, "No businesses or locations found")
	} else {
		s.Announce(locator.LevelSuccess, fmt.Sprintf("Found %d businesses", len(businesses)))
	}
	s.setBusinesses(businesses)

	return SearchResult{Businesses: businesses}, nil
}

func (s *Session) setBusinesses(businesses []models.Business) {
	s.mu.Lock()
	s.businesses = businesses
	s.mu.Unlock()

	s.view.SetBusinessMarkers(businesses)
}

// Announce queues a status message, dropping the oldest one when the queue is full.
func (s *Session) Announce(level locator.Level, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.announcements) == maxAnnouncements {
		s.announcements = s.announcements[1:]
	}
	s.announcements = append(s.announcements, Announcement{Level: level, Text: text, At: s.clock.Now()})
}

// settled runs under the resolver's commit lock.
func (s *Session) settled(c models.Coordinates, attempt models.ResolutionAttempt) {
	now := s.clock.Now()

	s.mu.Lock()
	s.locatedAt = &now
	s.mu.Unlock()

	s.log.Debug("Session location settled", "session", s.id, "strategy", attempt.Strategy,
		"lat", c.Latitude, "lon", c.Longitude)
}

// Snapshot returns the session state and hands over the pending announcements.
func (s *Session) Snapshot() Snapshot {
	location := s.resolver.Snapshot()
	view := s.view.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.id,
		CreatedAt:     s.createdAt,
		Location:      location,
		Filter:        s.filter,
		Businesses:    s.businesses,
		Announcements: s.announcements,
		Map:           view,
	}
	if s.locatedAt != nil {
		at := *s.locatedAt
		snap.LocatedAt = &at
	}
	if snap.Businesses == nil {
		snap.Businesses = []models.Business{}
	}
	if snap.Announcements == nil {
		snap.Announcements = []Announcement{}
	}
	s.announcements = nil

	return snap
}

// Map returns the map snapshot.
func (s *Session) Map() mapview.Snapshot {
	return s.view.Snapshot()
}

// Wait blocks until every resolution cycle started so far has finished.
func (s *Session) Wait() {
	s.resolver.Wait()
}

// AddFavorite marks a business as a favorite of this session.
func (s *Session) AddFavorite(ctx context.Context, businessID int) (bool, error) {
	return s.directory.AddFavorite(ctx, s.id, businessID)
}

// RemoveFavorite drops a favorite of this session.
func (s *Session) RemoveFavorite(ctx context.Context, businessID int) error {
	return s.directory.RemoveFavorite(ctx, s.id, businessID)
}

// Favorites lists the favorite businesses of this session.
func (s *Session) Favorites(ctx context.Context) ([]models.Business, error) {
	return s.directory.Favorites(ctx, s.id)
}

// Close invalidates running cycles and clears everything the session learned,
// its favorites included.
func (s *Session) Close(ctx context.Context) {
	s.resolver.Reset()
	s.raiseEpoch(s.resolver.Epoch())
	s.device.Clear()
	s.view.ClearCurrentLocationMarker()
	s.view.SetBusinessMarkers(nil)

	if err := s.directory.ClearFavorites(ctx, s.id); err != nil {
		s.log.WarnContext(ctx, "Failed to clear favorites", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.businesses = nil
	s.announcements = nil
	s.locatedAt = nil
	s.filter = ""
}
