// Package realtime owns the outbound control connection to the conversational
// AI session: dialing, the one-time configuration handshake, inbound event
// classification, and the outbound append / function-output envelopes.
package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const defaultDialTimeout = 15 * time.Second

// DialConfig carries the endpoint, deployment selector and credential for the
// session control connection.
type DialConfig struct {
	Endpoint    string
	Deployment  string
	APIKey      string
	APIVersion  string
	DialTimeout time.Duration

	// WriteTimeout bounds each frame write on the control connection.
	WriteTimeout time.Duration
}

// Client is one session control connection. Writes are serialized; reads
// happen from a single reader goroutine owned by the bridge.
type Client struct {
	conn *websocket.Conn

	writeMu      sync.Mutex
	writeTimeout time.Duration
	closed       atomic.Bool

	configSent atomic.Bool
}

// Dial opens the control connection. The URL is derived from the configured
// endpoint, API version and deployment; the API key rides an api-key header.
func Dial(ctx context.Context, cfg DialConfig) (*Client, error) {
	wsURL, err := sessionURL(cfg)
	if err != nil {
		return nil, err
	}

	headers := make(http.Header)
	headers.Set("api-key", cfg.APIKey)

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, dialTimeout)
		defer cancel()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial session endpoint (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial session endpoint: %w", err)
	}

	return &Client{
		conn:         conn,
		writeTimeout: cfg.WriteTimeout,
	}, nil
}

func sessionURL(cfg DialConfig) (string, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return "", fmt.Errorf("session endpoint is required")
	}
	if strings.TrimSpace(cfg.Deployment) == "" {
		return "", fmt.Errorf("session deployment is required")
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse session endpoint: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported session endpoint scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/openai/realtime"

	q := u.Query()
	q.Set("api-version", cfg.APIVersion)
	q.Set("deployment", cfg.Deployment)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Open reports whether the connection is still usable for outbound messages.
func (c *Client) Open() bool {
	return c != nil && !c.closed.Load()
}

// SendSessionUpdate transmits the session configuration. The protocol does
// not support idempotent resend; a second call is rejected here rather than
// risking an upstream re-handshake.
func (c *Client) SendSessionUpdate(settings SessionSettings) error {
	if c == nil {
		return fmt.Errorf("client must not be nil")
	}
	if !c.configSent.CompareAndSwap(false, true) {
		return fmt.Errorf("session configuration already sent")
	}
	return c.writeJSON(sessionUpdateMessage{Type: "session.update", Session: settings})
}

// AppendAudio wraps a base64 payload in the audio-append envelope. While the
// connection is closed the instruction is dropped, matching the relay's
// discard policy for media received with no session to carry it.
func (c *Client) AppendAudio(payload string) error {
	if !c.Open() {
		return nil
	}
	return c.writeJSON(audioAppendMessage{Type: "input_audio_buffer.append", Audio: payload})
}

// SendFunctionOutput answers a function call: a function_call_output item
// carrying the correlation identifier, then a response.create so the session
// resumes the turn.
func (c *Client) SendFunctionOutput(callID, output string) error {
	if c == nil {
		return fmt.Errorf("client must not be nil")
	}
	if err := c.writeJSON(itemCreateMessage{
		Type: "conversation.item.create",
		Item: functionItem{Type: "function_call_output", CallID: callID, Output: output},
	}); err != nil {
		return err
	}
	return c.writeJSON(responseCreateMessage{Type: "response.create"})
}

// ReadRaw blocks for the next inbound control message. The caller classifies
// it with DecodeServerEvent so parse failures can be logged with the payload.
func (c *Client) ReadRaw() ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("client must not be nil")
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.closed.Store(true)
		return nil, err
	}
	return data, nil
}

func (c *Client) writeJSON(v any) error {
	if c.closed.Load() {
		return fmt.Errorf("session connection is closed")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.conn.WriteJSON(v); err != nil {
		c.closed.Store(true)
		return err
	}
	return nil
}

// Close sends a close frame and tears down the connection. Safe to call from
// any goroutine and more than once.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}
