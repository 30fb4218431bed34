// Package bridge is the relay orchestrator: it owns one call session,
// pumping caller audio from the telephony stream into the conversational AI
// session, synthesized audio back, and dispatching function calls to the tool
// registry along the way.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-go/callbridge/pkg/gateway/realtime"
	"github.com/vango-go/callbridge/pkg/gateway/telephony"
	"github.com/vango-go/callbridge/pkg/gateway/tools"
)

const defaultHandshakeDelay = 250 * time.Millisecond

// TelephonyConn is the upgraded media-stream socket. *websocket.Conn
// satisfies it.
type TelephonyConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Upstream is the session control connection. *realtime.Client satisfies it.
type Upstream interface {
	Open() bool
	SendSessionUpdate(settings realtime.SessionSettings) error
	AppendAudio(payload string) error
	SendFunctionOutput(callID, output string) error
	ReadRaw() ([]byte, error)
	Close() error
}

// Config tunes one session. Zero values fall back to sensible defaults in
// New.
type Config struct {
	Voice        string
	Temperature  float64
	Instructions string

	// HandshakeDelay is the wait between the control connection opening and
	// the configuration send; the upstream drops configuration sent too soon
	// after connect.
	HandshakeDelay time.Duration

	// WriteTimeout bounds each outbound media frame write.
	WriteTimeout time.Duration
}

type Dependencies struct {
	Conn      TelephonyConn
	Dial      func(ctx context.Context) (Upstream, error)
	Tools     *tools.Registry
	Logger    *slog.Logger
	RequestID string
	Config    Config
}

// Session relays one call. Run drives it to completion; Cancel aborts it from
// another goroutine (shutdown drain).
type Session struct {
	conn   TelephonyConn
	dial   func(ctx context.Context) (Upstream, error)
	tools  *tools.Registry
	logger *slog.Logger
	cfg    Config

	ctx    context.Context
	cancel context.CancelFunc

	state stateVar

	// streamSID is assigned by the telephony start event and owned by the Run
	// loop; outbound media frames cannot be addressed before it arrives.
	streamSID string
}

func New(deps Dependencies) (*Session, error) {
	if deps.Conn == nil {
		return nil, fmt.Errorf("telephony connection is required")
	}
	if deps.Dial == nil {
		return nil, fmt.Errorf("session dialer is required")
	}
	if deps.Tools == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Config.Voice == "" {
		deps.Config.Voice = "alloy"
	}
	if deps.Config.Temperature <= 0 {
		deps.Config.Temperature = 0.8
	}
	if deps.Config.Instructions == "" {
		deps.Config.Instructions = systemInstructions
	}
	if deps.Config.HandshakeDelay <= 0 {
		deps.Config.HandshakeDelay = defaultHandshakeDelay
	}
	if deps.Config.WriteTimeout <= 0 {
		deps.Config.WriteTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		conn:   deps.Conn,
		dial:   deps.Dial,
		tools:  deps.Tools,
		logger: deps.Logger.With("request_id", deps.RequestID),
		cfg:    deps.Config,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Cancel aborts the session. Safe from any goroutine.
func (s *Session) Cancel() {
	s.cancel()
}

func (s *Session) State() State {
	return s.state.Load()
}

type inboundFrame struct {
	data []byte
	err  error
}

// Run relays until the caller hangs up, the stream stops, or the session is
// canceled. The AI leg dropping does not end the call: the caller stays
// connected and their audio is discarded until they hang up.
func (s *Session) Run() error {
	// Teardown order: close both legs and cancel the session context first,
	// then wait for in-flight tool goroutines; a pending knowledge query must
	// not keep the sockets open.
	var wg sync.WaitGroup
	defer s.state.advance(StateClosed)
	defer wg.Wait()
	defer s.cancel()
	defer s.conn.Close()

	ai, err := s.dial(s.ctx)
	if err != nil {
		s.logger.Error("session dial failed", "error", err)
		return fmt.Errorf("dial conversational session: %w", err)
	}
	defer ai.Close()
	s.state.advance(StateHandshaking)

	handshakeErrCh := make(chan error, 1)
	go func() {
		timer := time.NewTimer(s.cfg.HandshakeDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-s.ctx.Done():
			return
		}
		handshakeErrCh <- ai.SendSessionUpdate(s.sessionSettings())
	}()

	phoneCh := make(chan inboundFrame, 64)
	aiCh := make(chan inboundFrame, 64)
	go s.readTelephony(phoneCh)
	go s.readUpstream(ai, aiCh)

	for {
		select {
		case <-s.ctx.Done():
			s.state.advance(StateClosing)
			return nil

		case err := <-handshakeErrCh:
			handshakeErrCh = nil
			if err != nil {
				s.logger.Error("session handshake failed", "error", err)
				_ = ai.Close()
				continue
			}
			// Relay is live once the configuration is on the wire; the
			// updated confirmation is logged when it arrives.
			s.state.advance(StateActive)

		case frame, ok := <-phoneCh:
			if !ok || frame.err != nil {
				s.state.advance(StateClosing)
				if frame.err != nil {
					s.logger.Info("telephony stream closed", "error", frame.err)
				}
				return nil
			}
			if stop := s.handleTelephony(ai, frame.data); stop {
				s.state.advance(StateClosing)
				return nil
			}

		case frame, ok := <-aiCh:
			if !ok || frame.err != nil {
				if frame.err != nil {
					s.logger.Warn("session control connection closed", "error", frame.err)
				}
				aiCh = nil
				continue
			}
			if err := s.handleUpstream(ai, frame.data, &wg); err != nil {
				s.state.advance(StateClosing)
				return err
			}
		}
	}
}

func (s *Session) readTelephony(out chan<- inboundFrame) {
	defer close(out)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case out <- inboundFrame{err: err}:
			case <-s.ctx.Done():
			}
			return
		}
		select {
		case out <- inboundFrame{data: data}:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Session) readUpstream(ai Upstream, out chan<- inboundFrame) {
	defer close(out)
	for {
		data, err := ai.ReadRaw()
		if err != nil {
			select {
			case out <- inboundFrame{err: err}:
			case <-s.ctx.Done():
			}
			return
		}
		select {
		case out <- inboundFrame{data: data}:
		case <-s.ctx.Done():
			return
		}
	}
}

// handleTelephony processes one inbound call event. It reports stop=true when
// the carrier ends the stream.
func (s *Session) handleTelephony(ai Upstream, data []byte) (stop bool) {
	ev, err := telephony.DecodeEvent(data)
	if err != nil {
		s.logger.Warn("undecodable telephony event", "error", err, "payload", string(data))
		return false
	}

	switch ev := ev.(type) {
	case telephony.ConnectedEvent:
		s.logger.Info("telephony stream connected", "protocol", ev.Protocol, "version", ev.Version)
	case telephony.StartEvent:
		s.streamSID = ev.StreamSID
		s.logger.Info("telephony stream started", "stream_sid", ev.StreamSID, "call_sid", ev.CallSID)
	case telephony.MediaEvent:
		if !ai.Open() {
			return false
		}
		if err := ai.AppendAudio(ev.Payload); err != nil {
			s.logger.Warn("audio append failed", "error", err)
		}
	case telephony.StopEvent:
		s.logger.Info("telephony stream stopped", "stream_sid", s.streamSID)
		return true
	case telephony.UnknownEvent:
		s.logger.Debug("ignoring telephony event", "event", ev.Kind)
	}
	return false
}

// handleUpstream processes one session control event. A non-nil error means
// the telephony leg failed and the session must end.
func (s *Session) handleUpstream(ai Upstream, data []byte, wg *sync.WaitGroup) error {
	ev, err := realtime.DecodeServerEvent(data)
	if err != nil {
		s.logger.Warn("undecodable session event", "error", err, "payload", string(data))
		return nil
	}

	switch ev := ev.(type) {
	case realtime.SessionCreatedEvent:
		s.logger.Info("session created", "session_id", ev.SessionID)
	case realtime.SessionUpdatedEvent:
		s.logger.Info("session configuration confirmed")
	case realtime.AudioDeltaEvent:
		if ev.Delta == "" {
			return nil
		}
		if s.streamSID == "" {
			// No stream identifier to address the frame with yet; drop
			// rather than buffer.
			s.logger.Debug("dropping audio before stream start")
			return nil
		}
		if s.cfg.WriteTimeout > 0 {
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}
		if err := s.conn.WriteJSON(telephony.NewMediaFrame(s.streamSID, ev.Delta)); err != nil {
			return fmt.Errorf("write media frame: %w", err)
		}
	case realtime.FunctionCallEvent:
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.dispatchFunctionCall(ai, ev)
		}()
	case realtime.DiagnosticEvent:
		s.logger.Debug("session event", "event", ev.Kind)
	case realtime.UnknownEvent:
		s.logger.Debug("ignoring session event", "event", ev.Kind)
	}
	return nil
}

// dispatchFunctionCall executes one tool call and answers its correlation
// identifier. A failed or unrecognized tool still gets an answer, as an error
// payload, so the conversational turn never stalls.
func (s *Session) dispatchFunctionCall(ai Upstream, call realtime.FunctionCallEvent) {
	log := s.logger.With("tool", call.Name, "call_id", call.CallID)
	log.Info("function call received")

	output, err := s.executeTool(call)
	if err != nil {
		log.Warn("function call failed", "error", err)
		msg, merr := json.Marshal(map[string]string{"error": err.Error()})
		if merr != nil {
			msg = []byte(`{"error":"tool execution failed"}`)
		}
		output = string(msg)
	}
	if err := ai.SendFunctionOutput(call.CallID, output); err != nil {
		log.Warn("function output send failed", "error", err)
	}
}

func (s *Session) executeTool(call realtime.FunctionCallEvent) (string, error) {
	args := json.RawMessage(call.Arguments)
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	result, err := s.tools.Execute(s.ctx, call.Name, args)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(out), nil
}

func (s *Session) sessionSettings() realtime.SessionSettings {
	return realtime.SessionSettings{
		TurnDetection:     &realtime.TurnDetection{Type: realtime.TurnDetectionServerVAD},
		InputAudioFormat:  realtime.AudioFormatG711ULaw,
		OutputAudioFormat: realtime.AudioFormatG711ULaw,
		Voice:             s.cfg.Voice,
		Instructions:      s.cfg.Instructions,
		Modalities:        []string{"text", "audio"},
		Temperature:       s.cfg.Temperature,
		Tools:             s.tools.Definitions(),
		ToolChoice:        "auto",
	}
}
