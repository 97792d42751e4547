package lifecycle

import (
	"context"
	"fmt"
	"time"

	"predictd/internal/config"
)

// EnsureLoaded makes sure the model is available before a prediction runs.
// Loaded is a no-op; Loading waits for the in-flight attempt; NotLoaded
// starts a load; Error returns the stored failure without retrying. Only an
// explicit TriggerLoad restarts from Error.
func (m *Manager) EnsureLoaded(ctx context.Context) error {
	for {
		m.mu.Lock()
		switch m.status {
		case StatusLoaded:
			m.mu.Unlock()
			return nil
		case StatusError:
			msg := m.lastErr
			m.mu.Unlock()
			return ErrModelUnavailable("model load failed: " + msg)
		case StatusLoading:
			done := m.loadDone
			m.mu.Unlock()
			select {
			case <-done:
				// Re-check: the attempt ended in Loaded or Error.
			case <-ctx.Done():
				return ctx.Err()
			}
		default: // StatusNotLoaded
			done := m.beginLoadLocked()
			m.mu.Unlock()
			if err := m.runLoad(ctx, done); err != nil {
				return ErrModelUnavailable("model load failed: " + err.Error())
			}
			return nil
		}
	}
}

// TriggerLoad is the explicit load entry point behind POST /api/model/load.
// Unlike EnsureLoaded it retries from the Error state.
func (m *Manager) TriggerLoad(ctx context.Context) LoadOutcome {
	m.mu.Lock()
	switch m.status {
	case StatusLoaded:
		m.mu.Unlock()
		return LoadOutcome{Status: OutcomeAlreadyLoaded}
	case StatusLoading:
		m.mu.Unlock()
		return LoadOutcome{Status: OutcomeAlreadyLoading}
	}
	done := m.beginLoadLocked()
	m.mu.Unlock()
	if err := m.runLoad(ctx, done); err != nil {
		return LoadOutcome{Status: OutcomeError, Message: err.Error()}
	}
	return LoadOutcome{Status: OutcomeSuccess}
}

// beginLoadLocked transitions to Loading and installs the in-flight marker.
// Callers must hold mu.
func (m *Manager) beginLoadLocked() chan struct{} {
	m.status = StatusLoading
	m.lastErr = ""
	m.loadDone = make(chan struct{})
	return m.loadDone
}

// runLoad performs one load attempt and commits the outcome. The model name
// is resolved exactly once per attempt.
//
// The attempt runs detached from the caller's cancellation: the outcome is
// shared state observed by every waiter, so one client disconnecting must
// not commit Error for everyone else.
func (m *Manager) runLoad(ctx context.Context, done chan struct{}) error {
	name := m.resolveModelName()

	rt, err := m.buildRuntime(context.WithoutCancel(ctx), name)

	m.mu.Lock()
	m.modelName = name
	if err != nil {
		m.status = StatusError
		m.lastErr = err.Error()
		m.log.Error().Err(err).Str("model", name).Msg("model load failed")
	} else {
		m.rt = rt
		m.status = StatusLoaded
		m.loadedAt = time.Now()
		m.log.Info().Str("model", name).Msg("model loaded")
	}
	m.loadDone = nil
	close(done)
	m.mu.Unlock()
	return err
}

func (m *Manager) buildRuntime(ctx context.Context, name string) (Runtime, error) {
	if m.cfg.Registry == nil {
		return nil, fmt.Errorf("no model registry configured")
	}
	mdl, err := m.cfg.Registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	if m.cfg.Factory == nil {
		return nil, fmt.Errorf("no runtime factory configured")
	}
	return m.cfg.Factory(ctx, mdl)
}

// resolveModelName applies the deployment-profile selection policy.
func (m *Manager) resolveModelName() string {
	name := m.cfg.LocalModel
	if m.cfg.Profile == config.ProfileConstrained {
		name = m.cfg.ConstrainedModel
	}
	if m.cfg.ModelOverride != "" {
		if m.cfg.Profile == config.ProfileConstrained {
			m.log.Warn().
				Str("override", m.cfg.ModelOverride).
				Msg("model override ignored in constrained profile")
		} else {
			name = m.cfg.ModelOverride
		}
	}
	return name
}
