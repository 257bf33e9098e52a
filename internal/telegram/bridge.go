package telegram

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const bridgeCloseTimeout = 5 * time.Second

// BridgeFactory launches one bridge subprocess per session. The bridge binary
// wraps the TDLib JSON interface and speaks newline-delimited JSON on
// stdin/stdout: requests carry an "@extra" correlation id, responses echo it
// back, and authorization updates arrive without one.
type BridgeFactory struct {
	cmd string
}

func NewBridgeFactory(cmd string) *BridgeFactory {
	return &BridgeFactory{cmd: cmd}
}

func (f *BridgeFactory) NewClient(ctx context.Context, cfg ClientConfig) (Client, error) {
	cmd := exec.Command(f.cmd,
		"--api-id", cfg.APIID,
		"--api-hash", cfg.APIHash,
		"--database-directory", cfg.DatabaseDirectory,
		"--files-directory", cfg.FilesDirectory,
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("bridge stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("bridge stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start bridge %s: %w", f.cmd, err)
	}

	c := &bridgeClient{
		sessionID: cfg.SessionID,
		proc:      cmd,
		stdin:     stdin,
		pending:   make(map[string]chan bridgeMessage),
		states:    make(chan StateChange, 16),
		done:      make(chan struct{}),
	}
	go c.readLoop(stdout)

	return c, nil
}

type bridgeMessage struct {
	Type    string `json:"@type"`
	Extra   string `json:"@extra,omitempty"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	AuthorizationState *struct {
		Type string `json:"@type"`
	} `json:"authorization_state,omitempty"`

	Chats []struct {
		ID          int64  `json:"id"`
		Type        string `json:"type"`
		Title       string `json:"title"`
		Username    string `json:"username"`
		MemberCount int    `json:"member_count"`
	} `json:"chats,omitempty"`

	Users []struct {
		ID          int64  `json:"id"`
		Username    string `json:"username"`
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		PhoneNumber string `json:"phone_number"`
		IsContact   bool   `json:"is_contact"`
		IsBot       bool   `json:"is_bot"`
	} `json:"users,omitempty"`
}

type bridgeClient struct {
	sessionID string
	proc      *exec.Cmd
	stdin     io.WriteCloser

	mu      sync.Mutex
	nextID  int64
	pending map[string]chan bridgeMessage

	states    chan StateChange
	done      chan struct{}
	closeOnce sync.Once
}

func (c *bridgeClient) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		var msg bridgeMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			log.Warn().Err(err).Str("sessionId", c.sessionID).Msg("unparseable bridge message")
			continue
		}

		if msg.Extra != "" {
			c.deliver(msg)
			continue
		}

		if msg.Type == "updateAuthorizationState" && msg.AuthorizationState != nil {
			if state, ok := mapAuthorizationState(msg.AuthorizationState.Type); ok {
				c.emitState(StateChange{State: state})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		c.emitState(StateChange{State: AuthStateError, Err: err})
	}
	c.shutdown()
}

func (c *bridgeClient) deliver(msg bridgeMessage) {
	c.mu.Lock()
	ch, ok := c.pending[msg.Extra]
	delete(c.pending, msg.Extra)
	c.mu.Unlock()
	if ok {
		ch <- msg
	}
}

func (c *bridgeClient) emitState(change StateChange) {
	select {
	case c.states <- change:
	default:
		log.Warn().Str("sessionId", c.sessionID).Msg("dropping authorization state, channel full")
	}
}

// shutdown closes the state channel and fails any in-flight calls. Safe to
// call from both Close and the read loop.
func (c *bridgeClient) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		for extra, ch := range c.pending {
			delete(c.pending, extra)
			close(ch)
		}
		c.mu.Unlock()
		close(c.states)
	})
}

// call sends one request and blocks until its correlated response, ctx
// cancellation, or bridge shutdown.
func (c *bridgeClient) call(ctx context.Context, req map[string]any) (bridgeMessage, error) {
	select {
	case <-c.done:
		return bridgeMessage{}, fmt.Errorf("bridge closed")
	default:
	}

	c.mu.Lock()
	c.nextID++
	extra := strconv.FormatInt(c.nextID, 10)
	ch := make(chan bridgeMessage, 1)
	c.pending[extra] = ch
	c.mu.Unlock()

	req["@extra"] = extra
	data, err := json.Marshal(req)
	if err != nil {
		c.abandon(extra)
		return bridgeMessage{}, fmt.Errorf("encode bridge request: %w", err)
	}

	if _, err := c.stdin.Write(append(data, '\n')); err != nil {
		c.abandon(extra)
		return bridgeMessage{}, fmt.Errorf("write bridge request: %w", err)
	}

	select {
	case <-ctx.Done():
		c.abandon(extra)
		return bridgeMessage{}, ctx.Err()
	case <-c.done:
		return bridgeMessage{}, fmt.Errorf("bridge closed")
	case msg, ok := <-ch:
		if !ok {
			return bridgeMessage{}, fmt.Errorf("bridge closed")
		}
		if msg.Type == "error" {
			return bridgeMessage{}, fmt.Errorf("%s", msg.Message)
		}
		return msg, nil
	}
}

func (c *bridgeClient) abandon(extra string) {
	c.mu.Lock()
	delete(c.pending, extra)
	c.mu.Unlock()
}

func (c *bridgeClient) SetPhoneNumber(ctx context.Context, phoneNumber string) error {
	_, err := c.call(ctx, map[string]any{
		"@type":        "setAuthenticationPhoneNumber",
		"phone_number": phoneNumber,
	})
	return err
}

func (c *bridgeClient) CheckCode(ctx context.Context, code string) error {
	_, err := c.call(ctx, map[string]any{
		"@type": "checkAuthenticationCode",
		"code":  code,
	})
	return err
}

func (c *bridgeClient) CheckPassword(ctx context.Context, password string) error {
	_, err := c.call(ctx, map[string]any{
		"@type":    "checkAuthenticationPassword",
		"password": password,
	})
	return err
}

func (c *bridgeClient) GetChats(ctx context.Context, limit int) ([]Chat, error) {
	msg, err := c.call(ctx, map[string]any{
		"@type": "getChats",
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}

	chats := make([]Chat, 0, len(msg.Chats))
	for _, ch := range msg.Chats {
		chats = append(chats, Chat{
			ID:          ch.ID,
			Type:        ch.Type,
			Title:       ch.Title,
			Username:    ch.Username,
			MemberCount: ch.MemberCount,
		})
	}
	return chats, nil
}

func (c *bridgeClient) GetChatMembers(ctx context.Context, chatID int64, limit int) ([]User, error) {
	msg, err := c.call(ctx, map[string]any{
		"@type":   "getChatMembers",
		"chat_id": chatID,
		"limit":   limit,
	})
	if err != nil {
		return nil, err
	}
	return mapBridgeUsers(msg), nil
}

func (c *bridgeClient) GetContacts(ctx context.Context) ([]User, error) {
	msg, err := c.call(ctx, map[string]any{
		"@type": "getContacts",
	})
	if err != nil {
		return nil, err
	}
	return mapBridgeUsers(msg), nil
}

func (c *bridgeClient) AuthorizationStates() <-chan StateChange {
	return c.states
}

// Close asks the bridge to shut down, then waits briefly before killing it.
func (c *bridgeClient) Close(ctx context.Context) error {
	c.call(ctx, map[string]any{"@type": "close"})
	c.stdin.Close()

	waited := make(chan error, 1)
	go func() { waited <- c.proc.Wait() }()

	select {
	case <-waited:
	case <-time.After(bridgeCloseTimeout):
		log.Warn().Str("sessionId", c.sessionID).Msg("bridge did not exit, killing")
		c.proc.Process.Kill()
		<-waited
	}

	c.shutdown()
	return nil
}

func mapBridgeUsers(msg bridgeMessage) []User {
	users := make([]User, 0, len(msg.Users))
	for _, u := range msg.Users {
		users = append(users, User{
			ID:          u.ID,
			Username:    u.Username,
			FirstName:   u.FirstName,
			LastName:    u.LastName,
			PhoneNumber: u.PhoneNumber,
			IsContact:   u.IsContact,
			IsBot:       u.IsBot,
		})
	}
	return users
}

func mapAuthorizationState(tag string) (AuthState, bool) {
	switch tag {
	case "authorizationStateWaitPhoneNumber":
		return AuthStateWaitPhoneNumber, true
	case "authorizationStateWaitCode":
		return AuthStateWaitCode, true
	case "authorizationStateWaitPassword":
		return AuthStateWaitPassword, true
	case "authorizationStateReady":
		return AuthStateReady, true
	case "authorizationStateClosed":
		return AuthStateClosed, true
	default:
		return "", false
	}
}
