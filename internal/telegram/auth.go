package telegram

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// AuthEvent is a state change tagged with the session it belongs to.
type AuthEvent struct {
	SessionID string
	Change    StateChange
}

// AuthMonitor consumes the authorization state changes of every registered
// session and records the last observed state per session. It is an event
// sink for diagnostics, not a source of truth: the external client owns the
// authoritative authorization state, and advancing the persisted session
// status to ACTIVE stays the verification caller's responsibility.
//
// A transport-level error event is logged and remembered but does not touch
// the owning session's persisted status; that correction happens only in the
// explicit verification path when the code check fails.
type AuthMonitor struct {
	mu     sync.RWMutex
	states map[string]AuthState

	events chan AuthEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewAuthMonitor() *AuthMonitor {
	return &AuthMonitor{
		states: make(map[string]AuthState),
		events: make(chan AuthEvent, 64),
		done:   make(chan struct{}),
	}
}

// Start begins consuming events. Call exactly once.
func (m *AuthMonitor) Start() {
	m.wg.Add(1)
	go m.run()
}

// Stop ends consumption after the in-flight event is handled.
func (m *AuthMonitor) Stop() {
	close(m.done)
	m.wg.Wait()
}

// Events returns the channel state changes are fed into. The registry pumps
// each client's notifications here; tests feed synthetic sequences directly.
func (m *AuthMonitor) Events() chan<- AuthEvent {
	return m.events
}

// State returns the last observed authorization state for a session.
func (m *AuthMonitor) State(sessionID string) (AuthState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[sessionID]
	return state, ok
}

// Forget drops the recorded state for a session, on close.
func (m *AuthMonitor) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sessionID)
}

func (m *AuthMonitor) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case event := <-m.events:
			m.observe(event)
		}
	}
}

func (m *AuthMonitor) observe(event AuthEvent) {
	if event.Change.Err != nil {
		log.Error().
			Err(event.Change.Err).
			Str("sessionId", event.SessionID).
			Msg("external client error")
		m.record(event.SessionID, AuthStateError)
		return
	}

	m.mu.RLock()
	previous := m.states[event.SessionID]
	m.mu.RUnlock()

	log.Info().
		Str("sessionId", event.SessionID).
		Str("from", string(previous)).
		Str("to", string(event.Change.State)).
		Msg("authorization state changed")

	m.record(event.SessionID, event.Change.State)
}

func (m *AuthMonitor) record(sessionID string, state AuthState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[sessionID] = state
}
