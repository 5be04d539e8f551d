package session_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/UnknownOlympus/compass/internal/geolocation"
	"github.com/UnknownOlympus/compass/internal/locator"
	"github.com/UnknownOlympus/compass/internal/mapview"
	"github.com/UnknownOlympus/compass/internal/metrics"
	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/UnknownOlympus/compass/internal/repository"
	"github.com/UnknownOlympus/compass/internal/service"
	"github.com/UnknownOlympus/compass/internal/session"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	toronto = models.Coordinates{Latitude: 43.6532, Longitude: -79.3832}
	ottawa  = models.Coordinates{Latitude: 45.4215, Longitude: -75.6972}
	spa     = models.Business{ID: 1, Name: "Toronto Glow Spa", Type: "Spa", Coordinates: toronto}
	clinic  = models.Business{ID: 4, Name: "Capital Skin Clinic", Type: "Skin Care", Coordinates: ottawa}
)

type fakeDirectory struct {
	mu        sync.Mutex
	nearby    []service.NearbyQuery
	texts     []string
	places    map[string]*models.Place
	results   []models.Business
	around    map[models.Coordinates][]models.Business
	gates     map[models.Coordinates]chan struct{}
	found     []models.Business
	favorites map[string][]int
}

// Nearby answers from around when the query point is listed there and blocks
// on the point's gate, if any, before returning.
func (d *fakeDirectory) Nearby(_ context.Context, query service.NearbyQuery) ([]models.Business, error) {
	d.mu.Lock()
	d.nearby = append(d.nearby, query)
	results := d.results
	var gate chan struct{}
	if query.Coordinates != nil {
		if r, ok := d.around[*query.Coordinates]; ok {
			results = r
		}
		gate = d.gates[*query.Coordinates]
	}
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return results, nil
}

func (d *fakeDirectory) AddFavorite(_ context.Context, owner string, businessID int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if businessID <= 0 {
		return false, repository.ErrBusinessNotFound
	}
	if d.favorites == nil {
		d.favorites = make(map[string][]int)
	}
	if slices.Contains(d.favorites[owner], businessID) {
		return false, nil
	}
	d.favorites[owner] = append(d.favorites[owner], businessID)
	return true, nil
}

func (d *fakeDirectory) RemoveFavorite(_ context.Context, owner string, businessID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.favorites == nil {
		return nil
	}
	d.favorites[owner] = slices.DeleteFunc(d.favorites[owner], func(id int) bool { return id == businessID })
	return nil
}

func (d *fakeDirectory) Favorites(_ context.Context, owner string) ([]models.Business, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []models.Business{}
	for _, id := range d.favorites[owner] {
		out = append(out, models.Business{ID: id})
	}
	return out, nil
}

func (d *fakeDirectory) ClearFavorites(_ context.Context, owner string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.favorites, owner)
	return nil
}

func (d *fakeDirectory) Search(_ context.Context, text string) ([]models.Business, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.texts = append(d.texts, text)
	return d.found, nil
}

func (d *fakeDirectory) FindPlace(_ context.Context, query string) (*models.Place, error) {
	place, ok := d.places[query]
	if !ok {
		return nil, assert.AnError
	}
	return place, nil
}

func (d *fakeDirectory) NearbyCalls() []service.NearbyQuery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]service.NearbyQuery(nil), d.nearby...)
}

type fakeIP struct {
	loc geolocation.IPLocation
	err error
}

func (f fakeIP) Locate(context.Context, string) (geolocation.IPLocation, error) {
	return f.loc, f.err
}

func newManager(dir *fakeDirectory, ip geolocation.IPLocator) *session.Manager {
	return session.NewManager(session.Config{
		Directory: dir,
		IP:        ip,
		Options:   locator.DefaultOptions(),
		RadiusKm:  10000,
		Metrics:   metrics.NewMetricsForTesting(),
		Clock:     clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)),
	})
}

func texts(anns []session.Announcement) []string {
	out := make([]string, 0, len(anns))
	for _, a := range anns {
		out = append(out, a.Text)
	}
	return out
}

func TestSession_DeviceFix(t *testing.T) {
	dir := &fakeDirectory{results: []models.Business{clinic}}
	manager := newManager(dir, fakeIP{err: geolocation.ErrNetwork})

	sess := manager.Create(t.Context(), "203.0.113.7")
	require.NoError(t, sess.ReportPosition(geolocation.Position{Coordinates: ottawa, Accuracy: 8}))
	sess.Wait()

	snap := sess.Snapshot()
	require.NotNil(t, snap.Location.Attempt)
	assert.Equal(t, models.StrategyDeviceGPS, snap.Location.Attempt.Strategy)
	assert.Equal(t, ottawa, *snap.Location.Coordinates)
	assert.NotNil(t, snap.LocatedAt)
	assert.Equal(t, []models.Business{clinic}, snap.Businesses)
	assert.Equal(t, []string{"Location found! (45.4215, -75.6972)"}, texts(snap.Announcements))

	calls := dir.NearbyCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, ottawa, *calls[0].Coordinates)
	assert.InDelta(t, 10000, calls[0].RadiusKm, 0)

	require.Len(t, snap.Map.Markers, 2)
	assert.Equal(t, mapview.MarkerCurrentLocation, snap.Map.Markers[0].Kind)
	assert.Equal(t, "You are here!", snap.Map.Markers[0].Label)
	assert.Equal(t, mapview.MarkerBusiness, snap.Map.Markers[1].Kind)
	assert.Equal(t, 13, snap.Map.Zoom)

	assert.Empty(t, sess.Snapshot().Announcements, "announcements are handed over once")
}

func TestSession_IPFallback(t *testing.T) {
	dir := &fakeDirectory{}
	ip := fakeIP{loc: geolocation.IPLocation{Coordinates: ottawa, Region: "Ontario", Country: "Canada"}}
	manager := newManager(dir, ip)

	sess := manager.Create(t.Context(), "")
	require.NoError(t, sess.ReportFailure("permission_denied"))
	sess.Wait()

	snap := sess.Snapshot()
	assert.Equal(t, models.ResolutionAttempt{Strategy: models.StrategyIPGeolocation, Label: "Ontario"}, *snap.Location.Attempt)
	assert.Equal(t, []string{
		"Location access denied. Trying IP-based location...",
		"Location detected: Ontario, Canada",
	}, texts(snap.Announcements))
	assert.Equal(t, 12, snap.Map.Zoom)
}

func TestSession_ExplicitResolveAnnounces(t *testing.T) {
	manager := newManager(&fakeDirectory{}, fakeIP{err: geolocation.ErrMalformedResponse})

	sess := manager.Create(t.Context(), "")
	require.NoError(t, sess.ReportFailure("unsupported"))
	sess.Wait()
	sess.Snapshot()

	epoch := sess.Resolve(t.Context(), false)
	require.NoError(t, sess.ReportFailure("timeout"))
	sess.Wait()

	snap := sess.Snapshot()
	assert.Equal(t, uint64(2), epoch)
	assert.Equal(t, models.StrategyDefaultFallback, snap.Location.Attempt.Strategy)
	assert.Equal(t, toronto, *snap.Location.Coordinates)
	assert.Equal(t, []string{
		"Requesting location access...",
		"Location request timed out. Trying IP-based location...",
		"Could not detect location. Using default (Toronto).",
	}, texts(snap.Announcements))
}

func TestSession_Search(t *testing.T) {
	t.Run("place hit recenters and loads nearby", func(t *testing.T) {
		dir := &fakeDirectory{
			places:  map[string]*models.Place{"Ottawa": {Name: "Ottawa", Coordinates: ottawa}},
			results: []models.Business{clinic},
		}
		manager := newManager(dir, fakeIP{err: geolocation.ErrNetwork})
		sess := manager.Create(t.Context(), "")
		require.NoError(t, sess.ReportPosition(geolocation.Position{Coordinates: toronto}))
		sess.Wait()
		sess.Snapshot()

		result, err := sess.Search(t.Context(), " Ottawa ")

		require.NoError(t, err)
		require.NotNil(t, result.Place)
		assert.Equal(t, []models.Business{clinic}, result.Businesses)

		snap := sess.Snapshot()
		assert.Equal(t, ottawa, *snap.Map.Center)
		assert.Equal(t, 13, snap.Map.Zoom)
		assert.Equal(t, toronto, *snap.Location.Coordinates, "search must not move the resolved location")
		assert.Equal(t, []string{"Searching...", "Found Ottawa! Searching nearby..."}, texts(snap.Announcements))

		calls := dir.NearbyCalls()
		require.Len(t, calls, 2)
		assert.Equal(t, ottawa, *calls[1].Coordinates)
	})

	t.Run("no place falls back to text search", func(t *testing.T) {
		dir := &fakeDirectory{found: []models.Business{spa}}
		manager := newManager(dir, fakeIP{err: geolocation.ErrNetwork})
		sess := manager.Create(t.Context(), "")
		require.NoError(t, sess.ReportFailure("unsupported"))
		sess.Wait()
		sess.Snapshot()

		result, err := sess.Search(t.Context(), "glow")

		require.NoError(t, err)
		assert.Nil(t, result.Place)
		assert.Equal(t, []models.Business{spa}, result.Businesses)
		assert.Equal(t, []string{"glow"}, dir.texts)
		assert.Equal(t, []string{"Searching...", "Found 1 businesses"}, texts(sess.Snapshot().Announcements))
	})

	t.Run("nothing found", func(t *testing.T) {
		dir := &fakeDirectory{}
		manager := newManager(dir, fakeIP{err: geolocation.ErrNetwork})
		sess := manager.Create(t.Context(), "")
		require.NoError(t, sess.ReportFailure("unsupported"))
		sess.Wait()
		sess.Snapshot()

		result, err := sess.Search(t.Context(), "zzz")

		require.NoError(t, err)
		assert.Empty(t, result.Businesses)
		assert.Contains(t, texts(sess.Snapshot().Announcements), "No businesses or locations found")
	})

	t.Run("blank query does nothing", func(t *testing.T) {
		dir := &fakeDirectory{}
		manager := newManager(dir, nil)
		sess := manager.Create(t.Context(), "")
		require.NoError(t, sess.ReportFailure("unsupported"))
		sess.Wait()

		result, err := sess.Search(t.Context(), "  ")

		require.NoError(t, err)
		assert.Empty(t, result.Businesses)
		assert.Empty(t, dir.texts)
	})
}

func TestSession_SetFilter(t *testing.T) {
	dir := &fakeDirectory{results: []models.Business{spa}}
	manager := newManager(dir, nil)
	sess := manager.Create(t.Context(), "")
	require.NoError(t, sess.ReportPosition(geolocation.Position{Coordinates: toronto}))
	sess.Wait()

	got, err := sess.SetFilter(t.Context(), "Spa")
	require.NoError(t, err)
	assert.Equal(t, []models.Business{spa}, got)

	_, err = sess.SetFilter(t.Context(), service.AllTypes)
	require.NoError(t, err)

	calls := dir.NearbyCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, "Spa", calls[1].BusinessType)
	assert.Equal(t, toronto, *calls[1].Coordinates)
	assert.Empty(t, calls[2].BusinessType)
	assert.Empty(t, sess.Snapshot().Filter)
}

func TestSession_Reports(t *testing.T) {
	manager := newManager(&fakeDirectory{}, nil)
	sess := manager.Create(t.Context(), "")
	defer func() {
		require.NoError(t, manager.Delete(t.Context(), sess.ID()))
		sess.Wait()
	}()

	require.Error(t, sess.ReportFailure("bogus"))
	require.ErrorIs(t,
		sess.ReportPosition(geolocation.Position{Coordinates: models.Coordinates{Latitude: 100}}),
		models.ErrInvalidCoordinates,
	)
}

func TestManager(t *testing.T) {
	manager := newManager(&fakeDirectory{}, nil)

	sess := manager.Create(t.Context(), "")
	require.NoError(t, sess.ReportPosition(geolocation.Position{Coordinates: toronto}))
	sess.Wait()
	assert.Equal(t, 1, manager.Len())

	got, err := manager.Get(sess.ID())
	require.NoError(t, err)
	assert.Same(t, sess, got)

	require.NoError(t, manager.Delete(t.Context(), sess.ID()))
	assert.Equal(t, 0, manager.Len())

	_, err = manager.Get(sess.ID())
	require.ErrorIs(t, err, session.ErrNotFound)
	require.ErrorIs(t, manager.Delete(t.Context(), sess.ID()), session.ErrNotFound)

	snap := sess.Snapshot()
	assert.Nil(t, snap.Location.Coordinates, "logout clears the resolved location")
	assert.Nil(t, snap.Location.Attempt)
	assert.Nil(t, snap.LocatedAt)
	assert.Empty(t, snap.Map.Markers)
}

func TestManager_CloseAll(t *testing.T) {
	manager := newManager(&fakeDirectory{}, nil)
	for range 3 {
		manager.Create(t.Context(), "")
	}

	manager.CloseAll(t.Context())

	assert.Equal(t, 0, manager.Len())
}

func TestSession_SupersededNearbyResultsAreDropped(t *testing.T) {
	release := make(chan struct{})
	dir := &fakeDirectory{
		around: map[models.Coordinates][]models.Business{ottawa: {clinic}, toronto: {spa}},
		gates:  map[models.Coordinates]chan struct{}{ottawa: release},
	}
	ip := fakeIP{loc: geolocation.IPLocation{Coordinates: toronto, City: "Toronto"}}
	manager := newManager(dir, ip)

	sess := manager.Create(t.Context(), "")
	require.NoError(t, sess.ReportPosition(geolocation.Position{Coordinates: ottawa}))
	require.Eventually(t, func() bool { return len(dir.NearbyCalls()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, sess.ReportFailure("permission_denied"))
	assert.Equal(t, uint64(2), sess.Resolve(t.Context(), true))
	require.Eventually(t, func() bool {
		got := sess.Snapshot().Businesses
		return len(got) == 1 && got[0].ID == spa.ID
	}, time.Second, time.Millisecond)

	close(release)
	sess.Wait()

	snap := sess.Snapshot()
	assert.Equal(t, toronto, *snap.Location.Coordinates)
	assert.Equal(t, []models.Business{spa}, snap.Businesses)
	require.Len(t, snap.Map.Markers, 2)
	assert.Equal(t, spa.ID, snap.Map.Markers[1].BusinessID)
}

func TestSession_Favorites(t *testing.T) {
	dir := &fakeDirectory{}
	manager := newManager(dir, nil)
	sess := manager.Create(t.Context(), "")

	added, err := sess.AddFavorite(t.Context(), 4)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = sess.AddFavorite(t.Context(), 4)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = sess.AddFavorite(t.Context(), 0)
	require.ErrorIs(t, err, repository.ErrBusinessNotFound)

	favorites, err := sess.Favorites(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []models.Business{{ID: 4}}, favorites)

	require.NoError(t, sess.RemoveFavorite(t.Context(), 4))
	favorites, err = sess.Favorites(t.Context())
	require.NoError(t, err)
	assert.Empty(t, favorites)

	_, err = sess.AddFavorite(t.Context(), 7)
	require.NoError(t, err)
	require.NoError(t, manager.Delete(t.Context(), sess.ID()))
	sess.Wait()

	favorites, err = sess.Favorites(t.Context())
	require.NoError(t, err)
	assert.Empty(t, favorites, "logout drops the session favorites")
}
