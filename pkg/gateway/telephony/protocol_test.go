package telephony

import (
	"encoding/json"
	"testing"
)

func TestDecodeEvent_Start(t *testing.T) {
	raw := []byte(`{"event":"start","sequenceNumber":"1","start":{"streamSid":"MZ123","callSid":"CA456","accountSid":"AC789"}}`)

	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	start, ok := ev.(StartEvent)
	if !ok {
		t.Fatalf("decoded type = %T, want StartEvent", ev)
	}
	if start.StreamSID != "MZ123" {
		t.Fatalf("streamSid=%q, want MZ123", start.StreamSID)
	}
	if start.CallSID != "CA456" {
		t.Fatalf("callSid=%q, want CA456", start.CallSID)
	}
}

func TestDecodeEvent_Media(t *testing.T) {
	raw := []byte(`{"event":"media","media":{"track":"inbound","chunk":"2","timestamp":"5","payload":"Zm9v"}}`)

	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	media, ok := ev.(MediaEvent)
	if !ok {
		t.Fatalf("decoded type = %T, want MediaEvent", ev)
	}
	if media.Payload != "Zm9v" {
		t.Fatalf("payload=%q, want Zm9v", media.Payload)
	}
}

func TestDecodeEvent_ConnectedAndStop(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"event":"connected","protocol":"Call","version":"1.0.0"}`))
	if err != nil {
		t.Fatalf("DecodeEvent(connected) error = %v", err)
	}
	if _, ok := ev.(ConnectedEvent); !ok {
		t.Fatalf("decoded type = %T, want ConnectedEvent", ev)
	}

	ev, err = DecodeEvent([]byte(`{"event":"stop","stop":{"callSid":"CA456"}}`))
	if err != nil {
		t.Fatalf("DecodeEvent(stop) error = %v", err)
	}
	if _, ok := ev.(StopEvent); !ok {
		t.Fatalf("decoded type = %T, want StopEvent", ev)
	}
}

func TestDecodeEvent_UnknownKindKeepsRaw(t *testing.T) {
	raw := []byte(`{"event":"mark","mark":{"name":"greeting"}}`)

	ev, err := DecodeEvent(raw)
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	unknown, ok := ev.(UnknownEvent)
	if !ok {
		t.Fatalf("decoded type = %T, want UnknownEvent", ev)
	}
	if unknown.Kind != "mark" {
		t.Fatalf("kind=%q, want mark", unknown.Kind)
	}
	if string(unknown.Raw) != string(raw) {
		t.Fatalf("raw payload not preserved: %s", unknown.Raw)
	}
}

func TestDecodeEvent_MalformedIsError(t *testing.T) {
	if _, err := DecodeEvent([]byte(`{"event":`)); err == nil {
		t.Fatalf("DecodeEvent() = nil error, want parse failure")
	}
}

func TestNewMediaFrame_WireShape(t *testing.T) {
	frame := NewMediaFrame("MZ123", "Zm9v")

	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"event":"media","streamSid":"MZ123","media":{"payload":"Zm9v"}}`
	if string(data) != want {
		t.Fatalf("frame json = %s, want %s", data, want)
	}
}
