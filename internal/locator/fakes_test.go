package locator_test

import (
	"context"
	"sync"

	"github.com/UnknownOlympus/compass/internal/geolocation"
	"github.com/UnknownOlympus/compass/internal/locator"
	"github.com/UnknownOlympus/compass/internal/models"
)

type fakeDevice struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, call int, opts geolocation.PositionOptions) (geolocation.Position, error)
}

func (d *fakeDevice) CurrentPosition(
	ctx context.Context,
	opts geolocation.PositionOptions,
) (geolocation.Position, error) {
	d.mu.Lock()
	d.calls++
	call := d.calls
	d.mu.Unlock()

	return d.fn(ctx, call, opts)
}

func (d *fakeDevice) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func deviceReturning(c models.Coordinates) *fakeDevice {
	return &fakeDevice{fn: func(context.Context, int, geolocation.PositionOptions) (geolocation.Position, error) {
		return geolocation.Position{Coordinates: c, Accuracy: 5}, nil
	}}
}

func deviceFailing(err error) *fakeDevice {
	return &fakeDevice{fn: func(context.Context, int, geolocation.PositionOptions) (geolocation.Position, error) {
		return geolocation.Position{}, err
	}}
}

type fakeIP struct {
	mu    sync.Mutex
	calls int
	ips   []string
	fn    func(ctx context.Context) (geolocation.IPLocation, error)
}

func (f *fakeIP) Locate(ctx context.Context, ip string) (geolocation.IPLocation, error) {
	f.mu.Lock()
	f.calls++
	f.ips = append(f.ips, ip)
	f.mu.Unlock()

	return f.fn(ctx)
}

func (f *fakeIP) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func ipReturning(loc geolocation.IPLocation) *fakeIP {
	return &fakeIP{fn: func(context.Context) (geolocation.IPLocation, error) { return loc, nil }}
}

func ipFailing(err error) *fakeIP {
	return &fakeIP{fn: func(context.Context) (geolocation.IPLocation, error) {
		return geolocation.IPLocation{}, err
	}}
}

type recenter struct {
	coords models.Coordinates
	zoom   int
}

type recordingView struct {
	mu       sync.Mutex
	recents  []recenter
	markers  []string
	current  int
	setCalls int
}

func (v *recordingView) Recenter(c models.Coordinates, zoom int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.recents = append(v.recents, recenter{coords: c, zoom: zoom})
}

func (v *recordingView) SetCurrentLocationMarker(_ models.Coordinates, label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.markers = append(v.markers, label)
	v.current = 1
	v.setCalls++
}

func (v *recordingView) Recenters() []recenter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]recenter(nil), v.recents...)
}

func (v *recordingView) Markers() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.markers...)
}

type recordingSearch struct {
	mu     sync.Mutex
	coords []models.Coordinates
	epochs []uint64
	err    error
}

func (s *recordingSearch) SearchNearby(_ context.Context, c models.Coordinates, epoch uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coords = append(s.coords, c)
	s.epochs = append(s.epochs, epoch)
	return s.err
}

func (s *recordingSearch) Epochs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.epochs...)
}

func (s *recordingSearch) Calls() []models.Coordinates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Coordinates(nil), s.coords...)
}

type announcement struct {
	level locator.Level
	text  string
}

type recordingAnnouncer struct {
	mu   sync.Mutex
	msgs []announcement
}

func (a *recordingAnnouncer) Announce(level locator.Level, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, announcement{level: level, text: text})
}

func (a *recordingAnnouncer) Texts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.msgs))
	for _, m := range a.msgs {
		out = append(out, m.text)
	}
	return out
}

type settledCall struct {
	coords  models.Coordinates
	attempt models.ResolutionAttempt
}

type settledRecorder struct {
	mu    sync.Mutex
	calls []settledCall
}

func (s *settledRecorder) record(c models.Coordinates, attempt models.ResolutionAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, settledCall{coords: c, attempt: attempt})
}

func (s *settledRecorder) Calls() []settledCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]settledCall(nil), s.calls...)
}
