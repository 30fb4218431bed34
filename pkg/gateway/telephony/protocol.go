// Package telephony defines the Twilio Media Streams wire protocol spoken on
// the /media-stream WebSocket: inbound call events decoded into a closed
// tagged union, and the outbound media frame envelope.
package telephony

import (
	"encoding/json"
	"strings"
)

// Event is an inbound message from the telephony side. Decode returns exactly
// one of the concrete types below.
type Event interface {
	telephonyEvent() string
}

// ConnectedEvent is the first message after the stream WebSocket opens.
type ConnectedEvent struct {
	Protocol string
	Version  string
}

func (ConnectedEvent) telephonyEvent() string { return "connected" }

// StartEvent assigns the stream identifier for the call. Every outbound media
// frame must carry this identifier.
type StartEvent struct {
	StreamSID string
	CallSID   string
}

func (StartEvent) telephonyEvent() string { return "start" }

// MediaEvent carries one chunk of caller audio, base64-encoded G.711 μ-law.
type MediaEvent struct {
	Payload string
}

func (MediaEvent) telephonyEvent() string { return "media" }

// StopEvent signals the carrier has ended the stream.
type StopEvent struct{}

func (StopEvent) telephonyEvent() string { return "stop" }

// UnknownEvent is any event kind the relay does not act on (mark, dtmf, …).
// It is logged and otherwise ignored.
type UnknownEvent struct {
	Kind string
	Raw  json.RawMessage
}

func (e UnknownEvent) telephonyEvent() string { return e.Kind }

type inboundEnvelope struct {
	Event    string `json:"event"`
	Protocol string `json:"protocol,omitempty"`
	Version  string `json:"version,omitempty"`
	Start    *struct {
		StreamSID string `json:"streamSid"`
		CallSID   string `json:"callSid"`
	} `json:"start,omitempty"`
	Media *struct {
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
}

// DecodeEvent classifies one inbound telephony message. A malformed payload
// is an error for the caller to log; it must not tear down the connection.
func DecodeEvent(data []byte) (Event, error) {
	var envelope inboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	switch strings.TrimSpace(envelope.Event) {
	case "connected":
		return ConnectedEvent{Protocol: envelope.Protocol, Version: envelope.Version}, nil
	case "start":
		var e StartEvent
		if envelope.Start != nil {
			e.StreamSID = envelope.Start.StreamSID
			e.CallSID = envelope.Start.CallSID
		}
		return e, nil
	case "media":
		var e MediaEvent
		if envelope.Media != nil {
			e.Payload = envelope.Media.Payload
		}
		return e, nil
	case "stop":
		return StopEvent{}, nil
	default:
		return UnknownEvent{
			Kind: envelope.Event,
			Raw:  append(json.RawMessage(nil), data...),
		}, nil
	}
}

// MediaFrame is the outbound envelope carrying AI audio back to the caller.
type MediaFrame struct {
	Event     string       `json:"event"`
	StreamSID string       `json:"streamSid"`
	Media     MediaPayload `json:"media"`
}

type MediaPayload struct {
	Payload string `json:"payload"`
}

// NewMediaFrame builds an outbound media frame. streamSID must be the
// identifier recorded from the start event; payload is base64 audio.
func NewMediaFrame(streamSID, payload string) MediaFrame {
	return MediaFrame{
		Event:     "media",
		StreamSID: streamSID,
		Media:     MediaPayload{Payload: payload},
	}
}
