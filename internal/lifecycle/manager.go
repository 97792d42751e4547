package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"predictd/internal/config"
	"predictd/internal/registry"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 16
	defaultMaxWait       = 30 * time.Second
)

// RuntimeFactory builds the model capability for a resolved registry model.
// Swapped for a fake in tests so the suite runs without a live model.
type RuntimeFactory func(ctx context.Context, mdl registry.Model) (Runtime, error)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Registry *registry.Registry
	Profile  config.Profile

	LocalModel       string
	ConstrainedModel string
	// ModelOverride is honored only in the local profile. In the constrained
	// profile it is ignored with a logged warning, so a deployment cannot be
	// steered to an arbitrary model from the outside.
	ModelOverride string

	Factory RuntimeFactory

	MaxQueueDepth int
	MaxWait       time.Duration

	Logger *zerolog.Logger
}

// Manager is the process-wide owner of ModelState. All requests read it;
// only the Manager mutates it, under mu.
type Manager struct {
	mu        sync.Mutex
	status    Status
	modelName string
	lastErr   string
	rt        Runtime
	loadedAt  time.Time
	// loadDone is non-nil exactly while a load attempt is in flight; waiters
	// block on it and re-check status when it closes.
	loadDone chan struct{}

	cfg       Config
	log       zerolog.Logger
	startTime time.Time

	// Admission for the forward pass: one in flight, bounded queue.
	genCh   chan struct{}
	queueCh chan struct{}
	maxWait time.Duration
}

// New constructs a Manager from Config, applying package defaults.
func New(cfg Config) *Manager {
	m := &Manager{
		status:    StatusNotLoaded,
		cfg:       cfg,
		startTime: time.Now(),
	}
	depth := cfg.MaxQueueDepth
	if depth <= 0 {
		depth = defaultMaxQueueDepth
	}
	m.genCh = make(chan struct{}, 1)
	m.queueCh = make(chan struct{}, depth)
	if cfg.MaxWait > 0 {
		m.maxWait = cfg.MaxWait
	} else {
		m.maxWait = defaultMaxWait
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	} else {
		m.log = zerolog.Nop()
	}
	return m
}

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Status:    m.status,
		ModelName: m.modelName,
		Profile:   m.cfg.Profile,
		Err:       m.lastErr,
		LoadedAt:  m.loadedAt,
		StartedAt: m.startTime,
	}
}

// Runtime returns the capability handle, non-nil iff the state is Loaded.
func (m *Manager) Runtime() Runtime {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusLoaded {
		return nil
	}
	return m.rt
}

// Close stops the runtime, if any, and resets the state machine.
func (m *Manager) Close() error {
	m.mu.Lock()
	rt := m.rt
	m.rt = nil
	if m.status == StatusLoaded {
		m.status = StatusNotLoaded
	}
	m.mu.Unlock()
	if rt != nil {
		return rt.Close()
	}
	return nil
}
