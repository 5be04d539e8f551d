package geolocation

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/jonboulle/clockwork"
)

// PositionOptions mirrors the options a device positioning request is made with.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration // Zero means wait until ctx is done.
	MaximumAge   time.Duration // Age of a cached fix that is still acceptable.
}

// Position is a single device reading.
type Position struct {
	Coordinates models.Coordinates `json:"coordinates"`
	Accuracy    float64            `json:"accuracy"` // Metres.
	Timestamp   time.Time          `json:"timestamp"`
}

// PositionSource obtains the current position of the user's device.
type PositionSource interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
}

type reading struct {
	pos Position
	err error
}

// ReportedSource is a PositionSource fed by fixes the client pushes to us.
// A request is answered from the last fix if it is younger than MaximumAge,
// otherwise it waits for the next report until Timeout.
type ReportedSource struct {
	clock clockwork.Clock

	mu      sync.Mutex
	last    *Position
	pending error // failure reported while nobody was waiting
	waiters []chan reading
}

// NewReportedSource creates an empty ReportedSource. A nil clock means the real clock.
func NewReportedSource(clock clockwork.Clock) *ReportedSource {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &ReportedSource{clock: clock}
}

// Report records a device fix and hands it to every waiting request.
// A zero or future timestamp is replaced with the current time.
func (s *ReportedSource) Report(pos Position) {
	if now := s.clock.Now(); pos.Timestamp.IsZero() || pos.Timestamp.After(now) {
		pos.Timestamp = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = &pos
	s.pending = nil
	s.wake(reading{pos: pos})
}

// ReportFailure hands a device failure to every waiting request. If nobody is
// waiting, the next request receives it instead.
func (s *ReportedSource) ReportFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.waiters) == 0 {
		s.pending = err
		return
	}
	s.wake(reading{err: err})
}

// Clear forgets the cached fix and any pending failure.
func (s *ReportedSource) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = nil
	s.pending = nil
}

// CurrentPosition implements PositionSource.
func (s *ReportedSource) CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error) {
	s.mu.Lock()
	if s.pending != nil {
		err := s.pending
		s.pending = nil
		s.mu.Unlock()
		return Position{}, err
	}
	if s.last != nil && opts.MaximumAge > 0 && s.clock.Since(s.last.Timestamp) <= opts.MaximumAge {
		pos := *s.last
		s.mu.Unlock()
		return pos, nil
	}
	ch := make(chan reading, 1)
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	var timeout <-chan time.Time
	if opts.Timeout > 0 {
		timer := s.clock.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeout = timer.Chan()
	}

	select {
	case r := <-ch:
		return r.pos, r.err
	case <-timeout:
		s.drop(ch)
		return Position{}, ErrTimeout
	case <-ctx.Done():
		s.drop(ch)
		return Position{}, ctx.Err()
	}
}

// wake must be called with mu held.
func (s *ReportedSource) wake(r reading) {
	for _, ch := range s.waiters {
		ch <- r
	}
	s.waiters = nil
}

func (s *ReportedSource) drop(ch chan reading) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.waiters = slices.DeleteFunc(s.waiters, func(c chan reading) bool { return c == ch })
}

// Waiting returns the number of requests currently blocked on a report.
func (s *ReportedSource) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.waiters)
}
