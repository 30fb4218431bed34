package handlers

import (
	"encoding/xml"
	"net/http"
	"strings"
)

const defaultGreeting = "Please wait while we connect your call to the A I voice assistant."

// IncomingCallHandler answers the carrier's call webhook with instructions to
// speak a greeting and open a media stream back to this host. The carrier may
// use GET or POST depending on webhook configuration, so no method is
// rejected.
type IncomingCallHandler struct {
	// Greeting overrides the spoken connect message.
	Greeting string
}

type twimlStream struct {
	URL string `xml:"url,attr"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Say     string       `xml:"Say"`
	Connect twimlConnect `xml:"Connect"`
}

func (h IncomingCallHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	greeting := h.Greeting
	if strings.TrimSpace(greeting) == "" {
		greeting = defaultGreeting
	}

	doc := twimlResponse{
		Say:     greeting,
		Connect: twimlConnect{Stream: twimlStream{URL: streamURL(r)}},
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		http.Error(w, "failed to render response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

// streamURL derives the externally reachable media-stream address. The relay
// usually sits behind a TLS-terminating proxy, so forwarded headers win over
// the direct connection.
func streamURL(r *http.Request) string {
	host := strings.TrimSpace(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = r.Host
	}

	scheme := "wss"
	switch strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")) {
	case "http", "ws":
		scheme = "ws"
	case "https", "wss":
		scheme = "wss"
	default:
		if r.TLS == nil {
			scheme = "ws"
		}
	}
	return scheme + "://" + host + "/media-stream"
}
