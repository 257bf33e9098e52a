package telegram

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthMonitor(t *testing.T) {
	newMonitor := func(t *testing.T) *AuthMonitor {
		t.Helper()
		monitor := NewAuthMonitor()
		monitor.Start()
		t.Cleanup(monitor.Stop)
		return monitor
	}

	waitForState := func(t *testing.T, monitor *AuthMonitor, sessionID string, want AuthState) {
		t.Helper()
		assert.Eventually(t, func() bool {
			state, ok := monitor.State(sessionID)
			return ok && state == want
		}, time.Second, 5*time.Millisecond)
	}

	t.Run("records full handshake sequence", func(t *testing.T) {
		monitor := newMonitor(t)

		for _, state := range []AuthState{
			AuthStateWaitPhoneNumber,
			AuthStateWaitCode,
			AuthStateWaitPassword,
			AuthStateReady,
		} {
			monitor.Events() <- AuthEvent{SessionID: "session-1", Change: StateChange{State: state}}
		}

		waitForState(t, monitor, "session-1", AuthStateReady)
	})

	t.Run("skipping the password step is valid", func(t *testing.T) {
		monitor := newMonitor(t)

		monitor.Events() <- AuthEvent{SessionID: "session-1", Change: StateChange{State: AuthStateWaitCode}}
		monitor.Events() <- AuthEvent{SessionID: "session-1", Change: StateChange{State: AuthStateReady}}

		waitForState(t, monitor, "session-1", AuthStateReady)
	})

	t.Run("error events absorb into error state", func(t *testing.T) {
		monitor := newMonitor(t)

		monitor.Events() <- AuthEvent{SessionID: "session-1", Change: StateChange{State: AuthStateReady}}
		monitor.Events() <- AuthEvent{SessionID: "session-1", Change: StateChange{Err: errors.New("connection reset")}}

		waitForState(t, monitor, "session-1", AuthStateError)
	})

	t.Run("sessions are tracked independently", func(t *testing.T) {
		monitor := newMonitor(t)

		monitor.Events() <- AuthEvent{SessionID: "a", Change: StateChange{State: AuthStateReady}}
		monitor.Events() <- AuthEvent{SessionID: "b", Change: StateChange{State: AuthStateWaitCode}}

		waitForState(t, monitor, "a", AuthStateReady)
		waitForState(t, monitor, "b", AuthStateWaitCode)
	})

	t.Run("forget drops recorded state", func(t *testing.T) {
		monitor := newMonitor(t)

		monitor.Events() <- AuthEvent{SessionID: "session-1", Change: StateChange{State: AuthStateReady}}
		waitForState(t, monitor, "session-1", AuthStateReady)

		monitor.Forget("session-1")
		_, ok := monitor.State("session-1")
		assert.False(t, ok)
	})
}
