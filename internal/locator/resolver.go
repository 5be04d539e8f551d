// Package locator resolves the user's current coordinate through an ordered
// fallback chain: device positioning, then IP geolocation, then a fixed default.
//
// Each call to Resolver.Resolve starts a new cycle identified by an epoch. Only the
// newest cycle may commit its result; anything an older cycle produces afterwards
// is discarded without side effects.
package locator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/compass/internal/geolocation"
	"github.com/UnknownOlympus/compass/internal/metrics"
	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/jonboulle/clockwork"
)

// MapView is the map collaborator the resolver recenters and marks.
type MapView interface {
	Recenter(c models.Coordinates, zoom int)
	SetCurrentLocationMarker(c models.Coordinates, label string)
}

// SearchTrigger runs the nearby-business query once a coordinate settles.
// Implementations must drop results for an epoch that is no longer current.
type SearchTrigger interface {
	SearchNearby(ctx context.Context, c models.Coordinates, epoch uint64) error
}

// Level is the severity of a user-facing announcement.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Announcer shows short status messages to the user.
type Announcer interface {
	Announce(level Level, text string)
}

// SettledFunc is called once per settled, non-superseded cycle. It runs while the
// resolver holds its commit lock and must not call back into the resolver.
type SettledFunc func(c models.Coordinates, attempt models.ResolutionAttempt)

// State is the per-session resolver state.
type State struct {
	Coordinates *models.Coordinates       `json:"coordinates"`
	Attempt     *models.ResolutionAttempt `json:"attempt"`
	Epoch       uint64                    `json:"epoch"`
}

// Options tunes the fallback chain.
type Options struct {
	DeviceTimeout   time.Duration
	DeviceMaxAge    time.Duration
	IPTimeout       time.Duration
	Default         models.Coordinates
	DefaultLabel    string
	PreciseZoom     int // Zoom after a device fix.
	ApproximateZoom int // Zoom after an IP or default fix.
}

// DefaultOptions returns the stock chain settings.
func DefaultOptions() Options {
	const (
		deviceTimeout   = 30 * time.Second
		deviceMaxAge    = 5 * time.Minute
		ipTimeout       = 10 * time.Second
		preciseZoom     = 13
		approximateZoom = 12
	)

	return Options{
		DeviceTimeout:   deviceTimeout,
		DeviceMaxAge:    deviceMaxAge,
		IPTimeout:       ipTimeout,
		Default:         models.Coordinates{Latitude: 43.6532, Longitude: -79.3832},
		DefaultLabel:    "Toronto",
		PreciseZoom:     preciseZoom,
		ApproximateZoom: approximateZoom,
	}
}

// Deps are the resolver's collaborators. Metrics and View are required;
// Device, IP, Search, Announcer and OnSettled may be nil.
type Deps struct {
	Device    geolocation.PositionSource
	IP        geolocation.IPLocator
	View      MapView
	Search    SearchTrigger
	Announcer Announcer
	OnSettled SettledFunc
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Clock     clockwork.Clock
}

// Resolver owns one session's State and runs its resolution cycles.
type Resolver struct {
	deps Deps
	opts Options

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	clientIP string

	wg sync.WaitGroup
}

// New creates a Resolver with empty state.
func New(deps Deps, opts Options) *Resolver {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Resolver{deps: deps, opts: opts}
}

// SetClientIP sets the address used by the IP geolocation step of later cycles.
func (r *Resolver) SetClientIP(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clientIP = ip
}

// Resolve starts a new cycle, cancelling the previous one, and returns its epoch.
// The cycle runs in the background and keeps the values of ctx but not its deadline.
// With preferSilent set the initial "requesting" announcement is skipped.
func (r *Resolver) Resolve(ctx context.Context, preferSilent bool) uint64 {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.state.Epoch++
	epoch := r.state.Epoch
	cycleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	ip := r.clientIP
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer cancel()

		r.run(cycleCtx, epoch, preferSilent, ip)
	}()

	return epoch
}

// Reset invalidates any running cycle and clears coordinate and attempt.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.state.Epoch++
	r.state.Coordinates = nil
	r.state.Attempt = nil
}

// Epoch returns the epoch of the newest cycle.
func (r *Resolver) Epoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state.Epoch
}

// Snapshot returns a copy of the current state.
func (r *Resolver) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := State{Epoch: r.state.Epoch}
	if r.state.Coordinates != nil {
		c := *r.state.Coordinates
		snap.Coordinates = &c
	}
	if r.state.Attempt != nil {
		a := *r.state.Attempt
		snap.Attempt = &a
	}

	return snap
}

// Wait blocks until every started cycle has returned.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

func (r *Resolver) isCurrent(epoch uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state.Epoch == epoch
}

type outcome struct {
	coords  models.Coordinates
	attempt models.ResolutionAttempt
	zoom    int
	marker  string
	message string
}

func (r *Resolver) run(ctx context.Context, epoch uint64, preferSilent bool, ip string) {
	log := r.deps.Logger.With("epoch", epoch)
	start := r.deps.Clock.Now()

	if !preferSilent {
		r.announce(epoch, LevelSuccess, "Requesting location access...")
	}

	steps := []func(context.Context, *slog.Logger, uint64, string) (outcome, bool){
		r.tryDevice,
		r.tryIP,
	}
	for _, step := range steps {
		if !r.isCurrent(epoch) {
			r.discard(log)
			return
		}
		if out, ok := step(ctx, log, epoch, ip); ok {
			r.settle(ctx, log, epoch, start, out)
			return
		}
	}

	if !r.isCurrent(epoch) {
		r.discard(log)
		return
	}
	r.settle(ctx, log, epoch, start, outcome{
		coords:  r.opts.Default,
		attempt: models.ResolutionAttempt{Strategy: models.StrategyDefaultFallback, Label: r.opts.DefaultLabel},
		zoom:    r.opts.ApproximateZoom,
		marker:  r.opts.DefaultLabel + " (default)",
		message: fmt.Sprintf("Could not detect location. Using default (%s).", r.opts.DefaultLabel),
	})
}

func (r *Resolver) tryDevice(ctx context.Context, log *slog.Logger, epoch uint64, _ string) (outcome, bool) {
	var (
		pos geolocation.Position
		err error
	)

	if r.deps.Device == nil {
		err = geolocation.ErrUnsupported
	} else {
		pos, err = r.deps.Device.CurrentPosition(ctx, geolocation.PositionOptions{
			HighAccuracy: true,
			Timeout:      r.opts.DeviceTimeout,
			MaximumAge:   r.opts.DeviceMaxAge,
		})
		if err == nil {
			if verr := pos.Coordinates.Validate(); verr != nil {
				err = fmt.Errorf("%w: %w", geolocation.ErrPositionUnavailable, verr)
			}
		}
	}

	if err != nil {
		if !r.isCurrent(epoch) {
			return outcome{}, false
		}
		r.failed(log, models.StrategyDeviceGPS, err)
		r.announce(epoch, LevelWarning, geolocation.DeviceDiagnostic(err)+". Trying IP-based location...")
		return outcome{}, false
	}

	return outcome{
		coords:  pos.Coordinates,
		attempt: models.ResolutionAttempt{Strategy: models.StrategyDeviceGPS},
		zoom:    r.opts.PreciseZoom,
		marker:  "You are here!",
		message: fmt.Sprintf("Location found! (%.4f, %.4f)", pos.Coordinates.Latitude, pos.Coordinates.Longitude),
	}, true
}

func (r *Resolver) tryIP(ctx context.Context, log *slog.Logger, _ uint64, ip string) (outcome, bool) {
	if r.deps.IP == nil {
		r.failed(log, models.StrategyIPGeolocation, geolocation.ErrNetwork)
		return outcome{}, false
	}

	ipCtx, cancel := context.WithTimeout(ctx, r.opts.IPTimeout)
	defer cancel()

	started := r.deps.Clock.Now()
	loc, err := r.deps.IP.Locate(ipCtx, ip)
	r.deps.Metrics.IPRequestSeconds.Observe(r.deps.Clock.Since(started).Seconds())
	if err != nil {
		r.failed(log, models.StrategyIPGeolocation, err)
		return outcome{}, false
	}

	label := loc.Label()
	name := label
	if name == "" {
		name = "Unknown"
	}
	message := "Location detected: " + name
	if loc.Country != "" && loc.Country != name {
		message += ", " + loc.Country
	}

	return outcome{
		coords:  loc.Coordinates,
		attempt: models.ResolutionAttempt{Strategy: models.StrategyIPGeolocation, Label: label},
		zoom:    r.opts.ApproximateZoom,
		marker:  name + " (IP-based)",
		message: message,
	}, true
}

// settle commits out if epoch is still current and fans it out to the collaborators.
func (r *Resolver) settle(ctx context.Context, log *slog.Logger, epoch uint64, start time.Time, out outcome) {
	r.mu.Lock()
	if r.state.Epoch != epoch {
		r.mu.Unlock()
		r.discard(log)
		return
	}

	coords := out.coords
	attempt := out.attempt
	r.state.Coordinates = &coords
	r.state.Attempt = &attempt

	r.deps.View.Recenter(out.coords, out.zoom)
	r.deps.View.SetCurrentLocationMarker(out.coords, out.marker)
	if r.deps.OnSettled != nil {
		r.deps.OnSettled(out.coords, out.attempt)
	}
	r.mu.Unlock()

	strategy := string(out.attempt.Strategy)
	r.deps.Metrics.Resolutions.WithLabelValues(strategy).Inc()
	r.deps.Metrics.ResolveSeconds.WithLabelValues(strategy).Observe(r.deps.Clock.Since(start).Seconds())
	log.InfoContext(ctx, "Location settled",
		"strategy", strategy,
		"label", out.attempt.Label,
		"lat", out.coords.Latitude,
		"lon", out.coords.Longitude)

	level := LevelSuccess
	if out.attempt.Strategy == models.StrategyDefaultFallback {
		level = LevelWarning
	}
	r.announce(epoch, level, out.message)

	if r.deps.Search == nil || !r.isCurrent(epoch) {
		return
	}
	if err := r.deps.Search.SearchNearby(ctx, out.coords, epoch); err != nil {
		log.WarnContext(ctx, "Nearby search after settle failed", "error", err)
	}
}

func (r *Resolver) failed(log *slog.Logger, strategy models.Strategy, err error) {
	reason := geolocation.FailureReason(err)
	r.deps.Metrics.StrategyFailures.WithLabelValues(string(strategy), reason).Inc()
	log.Debug("Location strategy failed", "strategy", strategy, "reason", reason, "error", err)
}

func (r *Resolver) discard(log *slog.Logger) {
	r.deps.Metrics.StaleResults.Inc()
	log.Debug("Discarding result of superseded resolution")
}

// announce drops messages of superseded cycles.
func (r *Resolver) announce(epoch uint64, level Level, text string) {
	if r.deps.Announcer == nil || !r.isCurrent(epoch) {
		return
	}
	r.deps.Announcer.Announce(level, text)
}
