package realtime

import (
	"encoding/json"
	"strings"
)

// Event is an inbound message on the session control connection, decoded once
// into a closed tagged union and dispatched exhaustively by the bridge.
type Event interface {
	realtimeEvent() string
}

// SessionCreatedEvent is emitted by the upstream when the session exists.
type SessionCreatedEvent struct {
	SessionID string
}

func (SessionCreatedEvent) realtimeEvent() string { return "session.created" }

// SessionUpdatedEvent confirms the session configuration handshake.
type SessionUpdatedEvent struct{}

func (SessionUpdatedEvent) realtimeEvent() string { return "session.updated" }

// AudioDeltaEvent carries one chunk of synthesized speech, base64-encoded in
// the telephony-compatible wire format.
type AudioDeltaEvent struct {
	Delta string
}

func (AudioDeltaEvent) realtimeEvent() string { return "response.audio.delta" }

// FunctionCallEvent is an out-of-band tool invocation. Arguments is the raw
// JSON argument object; CallID correlates the eventual response.
type FunctionCallEvent struct {
	Name      string
	CallID    string
	Arguments string
}

func (FunctionCallEvent) realtimeEvent() string { return "response.function_call_arguments.done" }

// DiagnosticEvent is one of the fixed set of event kinds the relay only logs.
type DiagnosticEvent struct {
	Kind string
	Raw  json.RawMessage
}

func (e DiagnosticEvent) realtimeEvent() string { return e.Kind }

// UnknownEvent is any event kind outside the closed set above.
type UnknownEvent struct {
	Kind string
	Raw  json.RawMessage
}

func (e UnknownEvent) realtimeEvent() string { return e.Kind }

// diagnosticKinds are logged and produce no other action.
var diagnosticKinds = map[string]struct{}{
	"response.content.done":             {},
	"rate_limits.updated":               {},
	"response.done":                     {},
	"input_audio_buffer.committed":      {},
	"input_audio_buffer.speech_started": {},
	"input_audio_buffer.speech_stopped": {},
	"error":                             {},
}

// DecodeServerEvent sniffs the {"type": …} envelope and decodes into the
// matching variant. Malformed payloads are an error for the caller to log
// with the raw bytes; classification failure never tears the connection down.
func DecodeServerEvent(data []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	kind := strings.TrimSpace(envelope.Type)

	switch kind {
	case "session.created":
		var msg struct {
			Session struct {
				ID string `json:"id"`
			} `json:"session"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return SessionCreatedEvent{SessionID: msg.Session.ID}, nil
	case "session.updated":
		return SessionUpdatedEvent{}, nil
	case "response.audio.delta":
		var msg struct {
			Delta string `json:"delta"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return AudioDeltaEvent{Delta: msg.Delta}, nil
	case "response.function_call_arguments.done":
		var msg struct {
			Name      string `json:"name"`
			CallID    string `json:"call_id"`
			Arguments string `json:"arguments"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, err
		}
		return FunctionCallEvent{Name: msg.Name, CallID: msg.CallID, Arguments: msg.Arguments}, nil
	}

	if _, ok := diagnosticKinds[kind]; ok {
		return DiagnosticEvent{Kind: kind, Raw: append(json.RawMessage(nil), data...)}, nil
	}
	return UnknownEvent{Kind: kind, Raw: append(json.RawMessage(nil), data...)}, nil
}
