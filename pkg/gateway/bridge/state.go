package bridge

import "sync/atomic"

// State is the lifecycle phase of one call session. Transitions are strictly
// forward; a session never re-enters an earlier phase.
type State int32

const (
	// StateConnecting covers the window between the telephony upgrade and the
	// session control connection being dialed.
	StateConnecting State = iota
	// StateHandshaking means the control connection is open but the session
	// configuration has not been acknowledged yet.
	StateHandshaking
	// StateActive means both legs are live and audio relays in both
	// directions.
	StateActive
	// StateClosing means teardown has begun.
	StateClosing
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type stateVar struct {
	v atomic.Int32
}

func (s *stateVar) Load() State {
	return State(s.v.Load())
}

// advance moves to next only if it is strictly later than the current phase.
func (s *stateVar) advance(next State) {
	for {
		cur := s.v.Load()
		if int32(next) <= cur {
			return
		}
		if s.v.CompareAndSwap(cur, int32(next)) {
			return
		}
	}
}
