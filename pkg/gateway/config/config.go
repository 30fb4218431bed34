package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process-wide immutable configuration. It is constructed once
// at startup and passed by reference into every component; nothing mutates it
// at runtime.
type Config struct {
	Addr string

	// Realtime conversational AI endpoint (Azure OpenAI realtime API).
	OpenAIEndpoint   string
	OpenAIDeployment string
	OpenAIAPIKey     string
	OpenAIAPIVersion string

	// Knowledge backend (Azure AI Search).
	SearchEndpoint   string
	SearchIndex      string
	SearchAPIKey     string
	SearchAPIVersion string

	// Session behavior.
	Voice       string
	Temperature float64

	// HandshakeDelay is the wait between the session control connection
	// reporting open and the session configuration send. The upstream needs a
	// moment to stabilize after connect; this is a workaround, not a protocol
	// requirement.
	HandshakeDelay time.Duration

	DialTimeout    time.Duration
	WSWriteTimeout time.Duration

	// Operational defaults for the HTTP shell.
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
}

// LoadFromEnv builds a Config from the environment. Missing required
// credentials are fatal; the process must not accept connections without them.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("CALLBRIDGE_ADDR", ""),
		OpenAIEndpoint:      strings.TrimRight(envOr("AZURE_OPENAI_ENDPOINT", ""), "/"),
		OpenAIDeployment:    envOr("AZURE_OPENAI_DEPLOYMENT", ""),
		OpenAIAPIKey:        envOr("AZURE_OPENAI_API_KEY", ""),
		OpenAIAPIVersion:    envOr("AZURE_OPENAI_API_VERSION", "2024-10-01-preview"),
		SearchEndpoint:      strings.TrimRight(envOr("AZURE_SEARCH_ENDPOINT", ""), "/"),
		SearchIndex:         envOr("AZURE_SEARCH_INDEX", ""),
		SearchAPIKey:        envOr("AZURE_SEARCH_API_KEY", ""),
		SearchAPIVersion:    envOr("AZURE_SEARCH_API_VERSION", "2023-11-01"),
		Voice:               envOr("CALLBRIDGE_VOICE", "alloy"),
		Temperature:         envFloat64Or("CALLBRIDGE_TEMPERATURE", 0.8),
		HandshakeDelay:      envDurationOr("CALLBRIDGE_HANDSHAKE_DELAY", 250*time.Millisecond),
		DialTimeout:         envDurationOr("CALLBRIDGE_DIAL_TIMEOUT", 15*time.Second),
		WSWriteTimeout:      envDurationOr("CALLBRIDGE_WS_WRITE_TIMEOUT", 5*time.Second),
		ReadHeaderTimeout:   envDurationOr("CALLBRIDGE_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("CALLBRIDGE_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	if cfg.Addr == "" {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			cfg.Addr = ":" + port
		} else {
			cfg.Addr = ":8080"
		}
	}

	if cfg.OpenAIEndpoint == "" {
		return Config{}, fmt.Errorf("AZURE_OPENAI_ENDPOINT is required")
	}
	if _, err := url.Parse(cfg.OpenAIEndpoint); err != nil {
		return Config{}, fmt.Errorf("AZURE_OPENAI_ENDPOINT is not a valid URL: %w", err)
	}
	if cfg.OpenAIDeployment == "" {
		return Config{}, fmt.Errorf("AZURE_OPENAI_DEPLOYMENT is required")
	}
	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("AZURE_OPENAI_API_KEY is required")
	}
	if cfg.SearchEndpoint == "" {
		return Config{}, fmt.Errorf("AZURE_SEARCH_ENDPOINT is required")
	}
	if _, err := url.Parse(cfg.SearchEndpoint); err != nil {
		return Config{}, fmt.Errorf("AZURE_SEARCH_ENDPOINT is not a valid URL: %w", err)
	}
	if cfg.SearchIndex == "" {
		return Config{}, fmt.Errorf("AZURE_SEARCH_INDEX is required")
	}
	if cfg.SearchAPIKey == "" {
		return Config{}, fmt.Errorf("AZURE_SEARCH_API_KEY is required")
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return Config{}, fmt.Errorf("CALLBRIDGE_TEMPERATURE must be in [0, 2]")
	}
	if cfg.HandshakeDelay < 0 {
		return Config{}, fmt.Errorf("CALLBRIDGE_HANDSHAKE_DELAY must be >= 0")
	}
	if cfg.DialTimeout <= 0 {
		return Config{}, fmt.Errorf("CALLBRIDGE_DIAL_TIMEOUT must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("CALLBRIDGE_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("CALLBRIDGE_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("CALLBRIDGE_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
