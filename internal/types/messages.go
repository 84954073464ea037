// Package types defines the JSON wire protocol. Every frame carries a
// "type" discriminator used by the ws layer to pick the payload variant;
// frames with an unknown discriminator decode as a bare Base and are
// ignored by routing.
package types

// Frame type discriminators, client -> server.
const (
	TypeJoinRoomHandshake = "join_room_handshake"
	TypeDrawData          = "draw_data"
	TypeDrawAction        = "draw_action"
	TypeChosenWord        = "chosen_word"
	TypeChatMessage       = "chat_message"
	TypePing              = "ping"
	TypeDisconnectRequest = "disconnect_request"
)

// Frame type discriminators, server -> client. ChosenWord and ChatMessage
// flow both ways.
const (
	TypeGameError        = "game_error"
	TypePhaseChange      = "phase_change"
	TypeNewWords         = "new_words"
	TypeGameState        = "game_state"
	TypePlayersList      = "players_list"
	TypeAnnouncement     = "announcement"
	TypeCurRoundDrawInfo = "cur_round_draw_info"
)

type Base struct {
	Type string `json:"type"`
}

type JoinRoomHandshake struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	RoomName string `json:"roomName"`
	ClientID string `json:"clientId"`
}

// DrawData is one stroke segment of the drawing player's canvas. The
// server relays it untouched; only roomName is inspected.
type DrawData struct {
	Type        string  `json:"type"`
	RoomName    string  `json:"roomName"`
	FromX       float64 `json:"fromX"`
	FromY       float64 `json:"fromY"`
	ToX         float64 `json:"toX"`
	ToY         float64 `json:"toY"`
	Color       int     `json:"color"`
	Thickness   float64 `json:"thickness"`
	MotionEvent int     `json:"motionEvent"`
}

const ActionUndo = "ACTION_UNDO"

type DrawAction struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

type ChosenWord struct {
	Type       string `json:"type"`
	ChosenWord string `json:"chosenWord"`
	RoomName   string `json:"roomName"`
}

type ChatMessage struct {
	Type      string `json:"type"`
	From      string `json:"from"`
	RoomName  string `json:"roomName"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type Ping struct {
	Type string `json:"type"`
}

type DisconnectRequest struct {
	Type string `json:"type"`
}

const ErrorRoomNotFound = 0

type GameError struct {
	Type      string `json:"type"`
	ErrorType int    `json:"errorType"`
}

// PhaseChange is broadcast once per countdown tick. Phase and
// DrawingPlayer are set on the first tick of a countdown only; later
// ticks just carry the remaining time.
type PhaseChange struct {
	Type          string `json:"type"`
	Phase         string `json:"phase,omitempty"`
	Time          int64  `json:"time"` // remaining milliseconds
	DrawingPlayer string `json:"drawingPlayer,omitempty"`
}

// NewWords carries the three candidate words, sent privately to the
// drawing player on round start.
type NewWords struct {
	Type     string   `json:"type"`
	NewWords []string `json:"newWords"`
}

// GameState carries the word view: the plain secret for the drawing
// player, the underscore-masked rendering for everyone else.
type GameState struct {
	Type          string `json:"type"`
	DrawingPlayer string `json:"drawingPlayer"`
	Word          string `json:"word"`
}

type PlayerData struct {
	Username  string `json:"username"`
	IsDrawing bool   `json:"isDrawing"`
	Score     int    `json:"score"`
	Rank      int    `json:"rank"`
}

// PlayersList is ordered by descending score; Rank is the 1-based
// position after sorting.
type PlayersList struct {
	Type    string       `json:"type"`
	Players []PlayerData `json:"players"`
}

// Announcement kinds.
const (
	AnnouncementPlayerJoined     = 0
	AnnouncementPlayerLeft       = 1
	AnnouncementPlayerGuessed    = 2
	AnnouncementEverybodyGuessed = 3
)

type Announcement struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Kind      int    `json:"announcementType"`
}

// CurRoundDrawInfo replays the serialized draw frames of the current
// round to a player who joins or reconnects mid-round.
type CurRoundDrawInfo struct {
	Type string   `json:"type"`
	Data []string `json:"data"`
}
