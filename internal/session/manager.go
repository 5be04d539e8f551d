package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/compass/internal/geolocation"
	"github.com/UnknownOlympus/compass/internal/locator"
	"github.com/UnknownOlympus/compass/internal/mapview"
	"github.com/UnknownOlympus/compass/internal/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/segmentio/ksuid"
)

// ErrNotFound is returned for unknown or closed session ids.
var ErrNotFound = errors.New("session not found")

// Config holds what every new session is built from.
type Config struct {
	Directory Directory
	IP        geolocation.IPLocator // may be nil to skip IP geolocation
	Options   locator.Options
	RadiusKm  float64 // nearby radius used after a location settles
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Clock     clockwork.Clock
}

// Manager keeps the open sessions.
type Manager struct {
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty Manager.
func NewManager(cfg Config) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Manager{cfg: cfg, sessions: make(map[string]*Session)}
}

// Create opens a session for a client and starts a silent resolution.
func (m *Manager) Create(ctx context.Context, clientIP string) *Session {
	id := ksuid.New().String()
	sess := &Session{
		id:        id,
		createdAt: m.cfg.Clock.Now(),
		radiusKm:  m.cfg.RadiusKm,
		zoom:      m.cfg.Options.PreciseZoom,
		directory: m.cfg.Directory,
		view:      mapview.New(m.cfg.Options.Default, m.cfg.Options.ApproximateZoom),
		device:    geolocation.NewReportedSource(m.cfg.Clock),
		clock:     m.cfg.Clock,
		log:       m.cfg.Logger.With("session", id),
	}
	sess.resolver = locator.New(locator.Deps{
		Device:    sess.device,
		IP:        m.cfg.IP,
		View:      sess.view,
		Search:    sess,
		Announcer: sess,
		OnSettled: sess.settled,
		Metrics:   m.cfg.Metrics,
		Logger:    sess.log,
		Clock:     m.cfg.Clock,
	}, m.cfg.Options)
	sess.resolver.SetClientIP(clientIP)

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()
	m.cfg.Metrics.ActiveSessions.Inc()

	sess.log.InfoContext(ctx, "Session opened", "client_ip", clientIP)
	sess.Resolve(ctx, true)

	return sess
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	return sess, nil
}

// Delete closes a session and forgets it.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	sess.Close(ctx)
	m.cfg.Metrics.ActiveSessions.Dec()
	sess.log.InfoContext(ctx, "Session closed")

	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// CloseAll closes every session and waits for their resolution cycles to return.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Close(ctx)
		m.cfg.Metrics.ActiveSessions.Dec()
	}
	for _, sess := range sessions {
		sess.Wait()
	}
}
