package models

// Game action types sent by the client over a game session.
const (
	ActionToggle      = "toggle"
	ActionReset       = "reset"
	ActionPointer     = "pointer"
	ActionPop         = "pop"
	ActionColor       = "color"
	ActionBrush       = "brush"
	ActionEraser      = "eraser"
	ActionStrokeStart = "stroke_start"
	ActionStrokeMove  = "stroke_move"
	ActionStrokeEnd   = "stroke_end"
	ActionClear       = "clear"
	ActionTool        = "tool"
	ActionPlace       = "place"
	ActionMove        = "move"
)

// GameAction is a single user input event for a game engine.
// Fields that do not apply to the action type are ignored.
type GameAction struct {
	Type    string  `json:"type"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	DX      float64 `json:"dx,omitempty"`
	DY      float64 `json:"dy,omitempty"`
	ID      int64   `json:"id,omitempty"`
	Value   string  `json:"value,omitempty"`
	Size    float64 `json:"size,omitempty"`
	Enabled bool    `json:"enabled,omitempty"`
}

// GameMessage is pushed from the server to a game session client.
type GameMessage struct {
	Type  string      `json:"type"` // "state" or "error"
	Game  string      `json:"game,omitempty"`
	State interface{} `json:"state,omitempty"`
	Error string      `json:"error,omitempty"`
}

// GameNotFoundResponse answers a session request for an unknown game.
type GameNotFoundResponse struct {
	Error     string   `json:"error"`
	Available []string `json:"available"`
}
