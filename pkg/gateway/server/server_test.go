package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vango-go/callbridge/pkg/gateway/config"
	"github.com/vango-go/callbridge/pkg/gateway/tools"
)

func testConfig() config.Config {
	return config.Config{
		Addr:             ":0",
		OpenAIEndpoint:   "https://example.openai.azure.com",
		OpenAIDeployment: "gpt-4o-realtime-preview",
		OpenAIAPIKey:     "oai-key",
		SearchEndpoint:   "https://example.search.windows.net",
		SearchIndex:      "kb",
		SearchAPIKey:     "search-key",
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return New(testConfig(), logger)
}

func TestServer_RootRoute_ReturnsJSON(t *testing.T) {
	s := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%q", ct)
	}
	if !strings.Contains(rr.Body.String(), `"message"`) {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}

func TestServer_UnknownRoute_Returns404(t *testing.T) {
	s := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestServer_IncomingCallRoute_ReturnsTwiML(t *testing.T) {
	s := newTestServer(t)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(method, "/incoming-call", nil)
		s.Handler().ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%q", method, rr.Code, rr.Body.String())
		}
		if !strings.Contains(rr.Body.String(), "/media-stream") {
			t.Fatalf("%s body missing stream url: %q", method, rr.Body.String())
		}
	}
}

func TestServer_MediaStreamRoute_RequiresUpgrade(t *testing.T) {
	s := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media-stream", nil)
	s.Handler().ServeHTTP(rr, req)

	// Reachable but not upgradable without WebSocket headers.
	if rr.Code == http.StatusNotFound {
		t.Fatalf("/media-stream unexpectedly returned 404")
	}
	if rr.Code == http.StatusOK {
		t.Fatalf("plain GET must not succeed, status=%d", rr.Code)
	}
}

func TestServer_RegistersKnowledgeTools(t *testing.T) {
	s := newTestServer(t)

	names := s.tools.Names()
	want := []string{tools.ToolReportGrounding, tools.ToolSearch}
	if len(names) != len(want) {
		t.Fatalf("tools=%v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("tools=%v, want %v", names, want)
		}
	}
}

func TestServer_SessionDrainHelpers(t *testing.T) {
	s := newTestServer(t)
	if s.SessionCount() != 0 {
		t.Fatalf("count=%d, want 0", s.SessionCount())
	}
	if n := s.CancelSessions(); n != 0 {
		t.Fatalf("canceled=%d, want 0", n)
	}
	if !s.WaitSessions(nil) {
		t.Fatal("WaitSessions with no sessions should return immediately")
	}
}
