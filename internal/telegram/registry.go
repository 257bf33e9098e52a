package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	apperrors "github.com/telegram-manager/manager-server-go/internal/errors"
)

// Registry owns the session-id → client-handle mapping and the side-effecting
// lifecycle operations against the handles. Handles are ephemeral: only
// session metadata is persisted, so a restarted process starts with an empty
// registry.
//
// The map is guarded for structural mutation; individual handles are not
// serialized. Callers must not issue concurrent authentication-state-changing
// calls against the same session id.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client

	factory Factory
	monitor *AuthMonitor
	dbDir   string
	fileDir string
}

func NewRegistry(factory Factory, monitor *AuthMonitor, dbDir, fileDir string) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		factory: factory,
		monitor: monitor,
		dbDir:   dbDir,
		fileDir: fileDir,
	}
}

// SessionDescriptor identifies the account a new client handle is created
// for. Only USER sessions with both API credentials ever reach Open; BOT
// sessions never acquire a handle.
type SessionDescriptor struct {
	ID          string
	PhoneNumber string
	APIID       string
	APIHash     string
}

// Open allocates and registers a client handle for the session. The working
// directories are created if absent. Fails with CLIENT_INIT_FAILED when the
// external client cannot be constructed.
func (r *Registry) Open(ctx context.Context, desc SessionDescriptor) error {
	dbPath := filepath.Join(r.dbDir, desc.ID)
	filesPath := filepath.Join(r.fileDir, desc.ID)
	for _, dir := range []string{dbPath, filesPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.ClientInit(fmt.Errorf("create working directory %s: %w", dir, err))
		}
	}

	client, err := r.factory.NewClient(ctx, ClientConfig{
		SessionID:         desc.ID,
		PhoneNumber:       desc.PhoneNumber,
		APIID:             desc.APIID,
		APIHash:           desc.APIHash,
		DatabaseDirectory: dbPath,
		FilesDirectory:    filesPath,
	})
	if err != nil {
		return apperrors.ClientInit(err)
	}

	r.mu.Lock()
	r.clients[desc.ID] = client
	r.mu.Unlock()

	go r.pumpStates(desc.ID, client)

	log.Info().Str("sessionId", desc.ID).Msg("client session opened")
	return nil
}

// pumpStates forwards a client's push notifications into the monitor, tagged
// with the session id, until the client closes its channel.
func (r *Registry) pumpStates(sessionID string, client Client) {
	for change := range client.AuthorizationStates() {
		r.monitor.Events() <- AuthEvent{SessionID: sessionID, Change: change}
	}
}

func (r *Registry) client(sessionID string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[sessionID]
	if !ok {
		return nil, apperrors.SessionNotFound(sessionID)
	}
	return client, nil
}

func (r *Registry) SetPhoneNumber(ctx context.Context, sessionID, phoneNumber string) error {
	client, err := r.client(sessionID)
	if err != nil {
		return err
	}
	if err := client.SetPhoneNumber(ctx, phoneNumber); err != nil {
		return apperrors.ExternalClient(err)
	}
	return nil
}

func (r *Registry) CheckCode(ctx context.Context, sessionID, code string) error {
	client, err := r.client(sessionID)
	if err != nil {
		return err
	}
	if err := client.CheckCode(ctx, code); err != nil {
		return apperrors.ExternalClient(err)
	}
	return nil
}

func (r *Registry) CheckPassword(ctx context.Context, sessionID, password string) error {
	client, err := r.client(sessionID)
	if err != nil {
		return err
	}
	if err := client.CheckPassword(ctx, password); err != nil {
		return apperrors.ExternalClient(err)
	}
	return nil
}

func (r *Registry) GetChats(ctx context.Context, sessionID string, limit int) ([]Chat, error) {
	client, err := r.client(sessionID)
	if err != nil {
		return nil, err
	}
	chats, err := client.GetChats(ctx, limit)
	if err != nil {
		return nil, apperrors.ExternalClient(err)
	}
	return chats, nil
}

func (r *Registry) GetChatMembers(ctx context.Context, sessionID string, chatID int64, limit int) ([]User, error) {
	client, err := r.client(sessionID)
	if err != nil {
		return nil, err
	}
	members, err := client.GetChatMembers(ctx, chatID, limit)
	if err != nil {
		return nil, apperrors.ExternalClient(err)
	}
	return members, nil
}

func (r *Registry) GetContacts(ctx context.Context, sessionID string) ([]User, error) {
	client, err := r.client(sessionID)
	if err != nil {
		return nil, err
	}
	contacts, err := client.GetContacts(ctx)
	if err != nil {
		return nil, apperrors.ExternalClient(err)
	}
	return contacts, nil
}

// IsReady reports whether a client handle is registered for the session.
// Deliberately weaker than "authorized": a handle mid-handshake also counts.
// Sync orchestrators depend on this documented semantic; use the AuthMonitor
// for the last observed authorization state.
func (r *Registry) IsReady(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[sessionID]
	return ok
}

// Close releases the session's handle, drops its recorded auth state and
// removes its working directories. Closing an unknown or already-closed
// session is a no-op. In-flight calls against the handle are not interrupted.
func (r *Registry) Close(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	client, ok := r.clients[sessionID]
	delete(r.clients, sessionID)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	if err := client.Close(ctx); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to close client")
	}
	r.monitor.Forget(sessionID)

	for _, dir := range []string{filepath.Join(r.dbDir, sessionID), filepath.Join(r.fileDir, sessionID)} {
		if err := os.RemoveAll(dir); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("failed to remove working directory")
		}
	}

	log.Info().Str("sessionId", sessionID).Msg("client session closed")
	return nil
}

// CloseAll closes every registered handle, for shutdown.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Close(ctx, id)
	}
}
