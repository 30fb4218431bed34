package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/vango-go/callbridge/pkg/gateway/config"
	gatewayserver "github.com/vango-go/callbridge/pkg/gateway/server"
)

func TestRunMain_ReturnsNonZeroWhenConfigLoadFails(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	exitCode := runMain(context.Background(), &stderr, relayDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, errors.New("boom")
		},
		newServer: func(cfg config.Config, logger *slog.Logger) *gatewayserver.Server {
			t.Fatalf("newServer should not be called when config load fails")
			return nil
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {},
		signalStop:   func(c chan<- os.Signal) {},
	})

	if exitCode != 1 {
		t.Fatalf("exitCode=%d, want 1", exitCode)
	}
	if got := stderr.String(); got == "" {
		t.Fatalf("expected stderr output for startup error")
	}
}

func TestBuildHTTPServer_UsesConfiguredAddress(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Addr:              "127.0.0.1:9999",
		ReadHeaderTimeout: 2 * time.Second,
	}

	srv := buildHTTPServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if srv.Addr != cfg.Addr {
		t.Fatalf("Addr=%q, want %q", srv.Addr, cfg.Addr)
	}
	if srv.ReadHeaderTimeout != cfg.ReadHeaderTimeout {
		t.Fatalf("ReadHeaderTimeout=%v, want %v", srv.ReadHeaderTimeout, cfg.ReadHeaderTimeout)
	}
	if srv.ReadTimeout != 0 {
		t.Fatalf("ReadTimeout=%v, want 0 for long-lived streams", srv.ReadTimeout)
	}
}

func TestRunRelay_MissingDependencies(t *testing.T) {
	t.Parallel()

	err := runRelay(context.Background(), nil, relayDeps{})
	if err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestRunRelay_ShutdownOnSignal(t *testing.T) {
	t.Parallel()

	sigRelay := make(chan chan<- os.Signal, 1)
	deps := relayDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{
				Addr:                "127.0.0.1:0",
				OpenAIEndpoint:      "https://example.openai.azure.com",
				OpenAIDeployment:    "gpt-4o-realtime-preview",
				OpenAIAPIKey:        "oai-key",
				SearchEndpoint:      "https://example.search.windows.net",
				SearchIndex:         "kb",
				SearchAPIKey:        "search-key",
				ReadHeaderTimeout:   time.Second,
				ShutdownGracePeriod: time.Second,
			}, nil
		},
		newServer: gatewayserver.New,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			sigRelay <- c
		},
		signalStop: func(c chan<- os.Signal) {},
	}

	done := make(chan error, 1)
	go func() {
		logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
		done <- runRelay(context.Background(), logger, deps)
	}()

	select {
	case c := <-sigRelay:
		c <- os.Interrupt
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for signal registration")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runRelay: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for shutdown")
	}
}
