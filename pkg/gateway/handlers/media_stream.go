package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-go/callbridge/pkg/gateway/bridge"
	"github.com/vango-go/callbridge/pkg/gateway/bridge/sessions"
	"github.com/vango-go/callbridge/pkg/gateway/config"
	"github.com/vango-go/callbridge/pkg/gateway/mw"
	"github.com/vango-go/callbridge/pkg/gateway/realtime"
	"github.com/vango-go/callbridge/pkg/gateway/tools"
)

// MediaStreamHandler upgrades /media-stream and runs the call relay to
// completion on the request goroutine.
type MediaStreamHandler struct {
	Config   config.Config
	Logger   *slog.Logger
	Tools    *tools.Registry
	Sessions *sessions.Tracker

	// Dial overrides how the conversational session is reached; nil dials the
	// configured endpoint.
	Dial func(ctx context.Context) (bridge.Upstream, error)
}

func (h MediaStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dial := h.Dial
	if dial == nil {
		cfg := h.Config
		dial = func(ctx context.Context) (bridge.Upstream, error) {
			return realtime.Dial(ctx, realtime.DialConfig{
				Endpoint:     cfg.OpenAIEndpoint,
				Deployment:   cfg.OpenAIDeployment,
				APIKey:       cfg.OpenAIAPIKey,
				APIVersion:   cfg.OpenAIAPIVersion,
				DialTimeout:  cfg.DialTimeout,
				WriteTimeout: cfg.WSWriteTimeout,
			})
		}
	}

	upgrader := websocket.Upgrader{
		// The carrier does not send a browser Origin header.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("media stream upgrade failed", "error", err)
		return
	}

	reqID, _ := mw.RequestIDFrom(r.Context())
	if reqID == "" {
		reqID = newCallID()
	}

	sess, err := bridge.New(bridge.Dependencies{
		Conn:      conn,
		Dial:      dial,
		Tools:     h.Tools,
		Logger:    logger,
		RequestID: reqID,
		Config: bridge.Config{
			Voice:          h.Config.Voice,
			Temperature:    h.Config.Temperature,
			HandshakeDelay: h.Config.HandshakeDelay,
			WriteTimeout:   h.Config.WSWriteTimeout,
		},
	})
	if err != nil {
		logger.Error("call session rejected", "error", err, "request_id", reqID)
		_ = conn.Close()
		return
	}

	if h.Sessions != nil {
		unregister := h.Sessions.Register(reqID, sess.Cancel)
		defer unregister()
	}

	if err := sess.Run(); err != nil {
		logger.Error("call session ended with error", "error", err, "request_id", reqID)
	}
}

func newCallID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("call_%d", time.Now().UnixNano())
	}
	return "call_" + hex.EncodeToString(buf)
}
