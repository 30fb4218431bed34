package realtime

// TurnDetection selects the upstream's end-of-turn strategy. The relay always
// uses server-driven voice activity detection.
type TurnDetection struct {
	Type string `json:"type"`
}

// Tool declares a function the session may call out-of-band.
type Tool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// SessionSettings is the immutable session configuration sent exactly once
// per session, after the control connection reports open.
type SessionSettings struct {
	TurnDetection     *TurnDetection `json:"turn_detection,omitempty"`
	InputAudioFormat  string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat string         `json:"output_audio_format,omitempty"`
	Voice             string         `json:"voice,omitempty"`
	Instructions      string         `json:"instructions,omitempty"`
	Modalities        []string       `json:"modalities,omitempty"`
	Temperature       float64        `json:"temperature,omitempty"`
	Tools             []Tool         `json:"tools,omitempty"`
	ToolChoice        string         `json:"tool_choice,omitempty"`
}

const (
	// AudioFormatG711ULaw is the telephony-compatible encoding used on both
	// legs; audio passes through without transcoding.
	AudioFormatG711ULaw = "g711_ulaw"

	TurnDetectionServerVAD = "server_vad"
)

type sessionUpdateMessage struct {
	Type    string          `json:"type"`
	Session SessionSettings `json:"session"`
}

type audioAppendMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type itemCreateMessage struct {
	Type string       `json:"type"`
	Item functionItem `json:"item"`
}

type functionItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

type responseCreateMessage struct {
	Type string `json:"type"`
}
