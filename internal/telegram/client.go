// Package telegram owns the live external-protocol client handles: one per
// authenticated session, created through an injected Factory and tracked by
// the Registry for the process lifetime. The protocol itself is opaque; this
// package depends only on the handful of calls the domain needs.
package telegram

import "context"

// AuthState is an authorization state reported by the external client.
type AuthState string

const (
	AuthStateWaitPhoneNumber AuthState = "WAIT_PHONE_NUMBER"
	AuthStateWaitCode        AuthState = "WAIT_CODE"
	AuthStateWaitPassword    AuthState = "WAIT_PASSWORD"
	AuthStateReady           AuthState = "READY"
	AuthStateClosed          AuthState = "CLOSED"
	AuthStateError           AuthState = "ERROR"
)

// StateChange is a push-style authorization notification from the external
// client. Err is set only for transport-level error callbacks.
type StateChange struct {
	State AuthState
	Err   error
}

// ClientConfig carries everything the external client needs at construction:
// API credentials and the per-session working directories for protocol state
// and downloaded files.
type ClientConfig struct {
	SessionID         string
	PhoneNumber       string
	APIID             string
	APIHash           string
	DatabaseDirectory string
	FilesDirectory    string
}

// Chat is a wire-level chat record. Type carries the remote type tag verbatim
// (e.g. "chatTypeSupergroup"); mapping to domain dialog types happens in the
// sync path.
type Chat struct {
	ID          int64
	Type        string
	Title       string
	Username    string
	MemberCount int
}

// User is a wire-level user record, already enriched by the client with the
// per-user detail the protocol requires separate lookups for. PhoneNumber is
// empty unless the remote side discloses it.
type User struct {
	ID          int64
	Username    string
	FirstName   string
	LastName    string
	PhoneNumber string
	IsContact   bool
	IsBot       bool
}

// Client is a live handle to the external protocol client for one session.
// Implementations must not be shared across sessions.
type Client interface {
	SetPhoneNumber(ctx context.Context, phoneNumber string) error
	CheckCode(ctx context.Context, code string) error
	CheckPassword(ctx context.Context, password string) error
	GetChats(ctx context.Context, limit int) ([]Chat, error)
	GetChatMembers(ctx context.Context, chatID int64, limit int) ([]User, error)
	GetContacts(ctx context.Context) ([]User, error)
	// AuthorizationStates emits authorization state changes pushed by the
	// remote side. The channel closes when the client shuts down.
	AuthorizationStates() <-chan StateChange
	Close(ctx context.Context) error
}

// Factory constructs clients. Injected so the registry never touches the
// concrete protocol library and tests can substitute fakes.
type Factory interface {
	NewClient(ctx context.Context, cfg ClientConfig) (Client, error)
}
