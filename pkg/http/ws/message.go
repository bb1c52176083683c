package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeEnterStudio      = "enter_studio"
	TypeBack             = "back"
	TypeChooseDifficulty = "choose_difficulty"
	TypeSelectOption     = "select_option"
	TypeUseLifeline      = "use_lifeline"
	TypeDismissLifeline  = "dismiss_lifeline"
	TypeRestart          = "restart"
	TypeSetMuted         = "set_muted"

	// Server -> Client
	TypeSession           = "session"
	TypeState             = "state"
	TypeCue               = "cue"
	TypeCueStop           = "cue_stop"
	TypeMute              = "mute"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeError             = "error"
	TypePing              = "ping"
	TypePong              = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a message of the given type. A nil payload
// leaves Payload empty.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = raw
	return msg, nil
}

// Client Messages (incoming)

type ChooseDifficultyPayload struct {
	Tier string `json:"tier"`
}

type SelectOptionPayload struct {
	Index *int `json:"index"`
}

type UseLifelinePayload struct {
	Lifeline string `json:"lifeline"`
}

type SetMutedPayload struct {
	Muted bool `json:"muted"`
}

// Server Messages (outgoing)

type SessionPayload struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
	Resumed   bool   `json:"resumed"`
}

type CuePayload struct {
	Cue  string `json:"cue"`
	Loop bool   `json:"loop"`
}

type CueStopPayload struct {
	Cue string `json:"cue,omitempty"`
	All bool   `json:"all,omitempty"`
}

type MutePayload struct {
	Muted bool `json:"muted"`
}

type LeaderboardUpdatePayload struct {
	Window string             `json:"window"`
	Tier   string             `json:"tier,omitempty"`
	Top    []LeaderboardEntry `json:"top"`
}

type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	GameID     string `json:"game_id"`
	Tier       string `json:"tier"`
	Winnings   int    `json:"winnings"`
	Answered   int    `json:"answered"`
	Victory    bool   `json:"victory"`
	FinishedAt string `json:"finished_at"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
