package room

import (
	"time"

	"github.com/sketchparty/sketchparty-server/internal/game"
)

// Msg is anything that can land in a room's inbox. All room state is
// mutated by the single goroutine draining that inbox, so concurrent
// timer fires and client frames can never interleave.
type Msg interface{ isRoomMsg() }

// Join registers a player (or re-attaches a reconnecting one) with the
// outbox its connection wants broadcasts written to.
type Join struct {
	ClientID string
	Username string
	Outbox   chan []byte
}

func (Join) isRoomMsg() {}

// Leave detaches a player. An explicit leave drops the seat immediately;
// an implicit one (connection loss) parks it for the grace period.
type Leave struct {
	ClientID string
	Explicit bool
}

func (Leave) isRoomMsg() {}

// SubmitWord is the drawing player picking one of its candidate words,
// which starts the drawing phase right away.
type SubmitWord struct {
	ClientID string
	Word     string
}

func (SubmitWord) isRoomMsg() {}

// Chat is a chat frame; every chat line is also a guess attempt. Raw is
// the original frame, relayed untouched when the guess is wrong.
type Chat struct {
	ClientID string
	From     string
	Message  string
	Raw      []byte
}

func (Chat) isRoomMsg() {}

// Stroke is a serialized draw frame, relayed to everyone but the sender
// while the drawing phase runs.
type Stroke struct {
	ClientID string
	Raw      []byte
}

func (Stroke) isRoomMsg() {}

// StrokeAction is a canvas command (undo), relayed like a stroke.
type StrokeAction struct {
	ClientID string
	Action   string
	Raw      []byte
}

func (StrokeAction) isRoomMsg() {}

// GetState asks the room loop for a consistent snapshot, used by the
// HTTP listing and by tests.
type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

// Shutdown stops the room without notifying the registry; the registry
// sends it while tearing itself down.
type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

// timerTick and timerElapsed come from the countdown goroutine. The
// generation stamps let the loop drop fires from a timer that was
// already replaced.
type timerTick struct {
	gen       int
	remaining time.Duration
	first     bool
}

func (timerTick) isRoomMsg() {}

type timerElapsed struct {
	gen int
}

func (timerElapsed) isRoomMsg() {}

// removalDue fires when a disconnected player's grace period ran out.
type removalDue struct {
	clientID string
}

func (removalDue) isRoomMsg() {}

// PlayerView and View reflect room internals without data races.
type PlayerView struct {
	ClientID  string
	Username  string
	Score     int
	IsDrawing bool
	Connected bool
}

type View struct {
	Name            string
	MaxPlayers      int
	Phase           game.Phase
	Players         []PlayerView
	DrawingPlayer   string
	Word            string
	Candidates      []string
	Winners         int
	PendingRemovals int
}

// HasPlayer reports whether a username is currently seated.
func (v View) HasPlayer(username string) bool {
	for _, p := range v.Players {
		if p.Username == username {
			return true
		}
	}
	return false
}
