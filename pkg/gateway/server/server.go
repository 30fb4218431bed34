// Package server assembles the relay's HTTP surface: routes, middleware
// chain, and the shared components every call session draws on.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/vango-go/callbridge/pkg/gateway/bridge"
	"github.com/vango-go/callbridge/pkg/gateway/bridge/sessions"
	"github.com/vango-go/callbridge/pkg/gateway/config"
	"github.com/vango-go/callbridge/pkg/gateway/handlers"
	"github.com/vango-go/callbridge/pkg/gateway/mw"
	"github.com/vango-go/callbridge/pkg/gateway/realtime"
	"github.com/vango-go/callbridge/pkg/gateway/tools"
	"github.com/vango-go/callbridge/pkg/gateway/tools/adapters/azsearch"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	tools    *tools.Registry
	sessions *sessions.Tracker
	dial     func(ctx context.Context) (bridge.Upstream, error)
}

func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	search := azsearch.NewClient(cfg.SearchEndpoint, cfg.SearchIndex, cfg.SearchAPIKey, &http.Client{
		Timeout: 15 * time.Second,
	}).WithAPIVersion(cfg.SearchAPIVersion)

	s := &Server{
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
		tools: tools.NewRegistry(
			tools.NewSearchExecutor(search),
			tools.NewGroundingExecutor(search),
		),
		sessions: sessions.NewTracker(),
	}
	s.dial = func(ctx context.Context) (bridge.Upstream, error) {
		return realtime.Dial(ctx, realtime.DialConfig{
			Endpoint:     cfg.OpenAIEndpoint,
			Deployment:   cfg.OpenAIDeployment,
			APIKey:       cfg.OpenAIAPIKey,
			APIVersion:   cfg.OpenAIAPIVersion,
			DialTimeout:  cfg.DialTimeout,
			WriteTimeout: cfg.WSWriteTimeout,
		})
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("GET /{$}", handlers.InfoHandler{})

	// The carrier webhook may be configured as GET or POST.
	s.mux.Handle("/incoming-call", handlers.IncomingCallHandler{})

	s.mux.Handle("/media-stream", handlers.MediaStreamHandler{
		Config:   s.cfg,
		Logger:   s.logger,
		Tools:    s.tools,
		Sessions: s.sessions,
		Dial:     s.dial,
	})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// SessionCount reports the number of live call sessions.
func (s *Server) SessionCount() int {
	return s.sessions.Count()
}

// WaitSessions blocks until every live call has drained or ctx expires.
func (s *Server) WaitSessions(ctx context.Context) bool {
	return s.sessions.Wait(ctx)
}

// CancelSessions aborts every live call.
func (s *Server) CancelSessions() int {
	return s.sessions.CancelAll()
}
