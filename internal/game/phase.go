package game

import (
	"errors"
	"time"
)

var ErrInvalidTransition = errors.New("invalid phase transition")

type Phase string

const (
	PhaseWaitingForPlayers Phase = "WAITING_FOR_PLAYERS"
	PhaseWaitingForStart   Phase = "WAITING_FOR_START"
	PhaseNewRound          Phase = "NEW_ROUND"
	PhaseGameRunning       Phase = "GAME_RUNNING"
	PhaseShowWord          Phase = "SHOW_WORD"
)

// Event is something that can move a room from one phase to the next:
// a timer running out, a player-count threshold being hit, or a manual
// override from the drawing player.
type Event string

const (
	EvtSecondPlayerJoined Event = "SecondPlayerJoined"
	EvtRoomFilled         Event = "RoomFilled"
	EvtTimerElapsed       Event = "TimerElapsed"
	EvtWordChosen         Event = "WordChosen"
	EvtAllGuessed         Event = "AllGuessed"
	EvtLastOpponentLeft   Event = "LastOpponentLeft"
)

// Effect is a side effect the caller must execute after a transition.
// The order within the returned slice matters.
type Effect string

const (
	EffectShufflePlayers Effect = "ShufflePlayers" // randomize player order
	EffectStartRound     Effect = "StartRound"     // rotate drawing player, deal candidate words
	EffectDealWords      Effect = "DealWords"      // clear winners, send secret/masked word views
	EffectRevealWord     Effect = "RevealWord"     // apply no-guess penalty, reveal the word
	EffectStartTimer     Effect = "StartTimer"     // arm the countdown for the new phase
	EffectStopTimer      Effect = "StopTimer"      // cancel any pending countdown
	EffectNotifyLobby    Effect = "NotifyLobby"    // single untimed phase broadcast
)

// Advance is the room state machine. It is pure: it never touches I/O or
// timers itself, it only tells the caller what the next phase is and which
// effects to run. Timer-driven and manually-overridden transitions go
// through the same table, so the emitted phase sequence can never diverge.
func Advance(phase Phase, ev Event) (Phase, []Effect, error) {
	if ev == EvtLastOpponentLeft {
		return PhaseWaitingForPlayers, []Effect{EffectStopTimer, EffectNotifyLobby}, nil
	}

	switch phase {
	case PhaseWaitingForPlayers:
		if ev == EvtSecondPlayerJoined {
			return PhaseWaitingForStart, []Effect{EffectShufflePlayers, EffectStartTimer}, nil
		}
	case PhaseWaitingForStart:
		switch ev {
		case EvtRoomFilled:
			return PhaseNewRound, []Effect{EffectShufflePlayers, EffectStartRound, EffectStartTimer}, nil
		case EvtTimerElapsed:
			return PhaseNewRound, []Effect{EffectStartRound, EffectStartTimer}, nil
		}
	case PhaseNewRound:
		switch ev {
		case EvtTimerElapsed:
			return PhaseGameRunning, []Effect{EffectDealWords, EffectStartTimer}, nil
		case EvtWordChosen:
			// Manual override: the caller's timer restart cancels the
			// pending NEW_ROUND countdown before it can fire.
			return PhaseGameRunning, []Effect{EffectStopTimer, EffectDealWords, EffectStartTimer}, nil
		}
	case PhaseGameRunning:
		switch ev {
		case EvtTimerElapsed:
			return PhaseShowWord, []Effect{EffectRevealWord, EffectStartTimer}, nil
		case EvtAllGuessed:
			return PhaseShowWord, []Effect{EffectStopTimer, EffectRevealWord, EffectStartTimer}, nil
		}
	case PhaseShowWord:
		if ev == EvtTimerElapsed {
			return PhaseNewRound, []Effect{EffectStartRound, EffectStartTimer}, nil
		}
	}
	return phase, nil, ErrInvalidTransition
}

// Timings holds every tunable duration of a room. Production rooms use
// DefaultTimings; tests shrink them.
type Timings struct {
	WaitingForStart time.Duration // lobby countdown once a second player is in
	NewRound        time.Duration // word-choosing window for the drawing player
	GameRunning     time.Duration // drawing/guessing window
	ShowWord        time.Duration // reveal screen before the next round
	Tick            time.Duration // countdown broadcast interval
	Grace           time.Duration // reconnect window after a disconnect
}

func DefaultTimings() Timings {
	return Timings{
		WaitingForStart: 10 * time.Second,
		NewRound:        20 * time.Second,
		GameRunning:     60 * time.Second,
		ShowWord:        60 * time.Second,
		Tick:            time.Second,
		Grace:           60 * time.Second,
	}
}

// PhaseDuration returns how long the countdown for a phase runs. Phases
// without a timer return zero.
func (t Timings) PhaseDuration(p Phase) time.Duration {
	switch p {
	case PhaseWaitingForStart:
		return t.WaitingForStart
	case PhaseNewRound:
		return t.NewRound
	case PhaseGameRunning:
		return t.GameRunning
	case PhaseShowWord:
		return t.ShowWord
	default:
		return 0
	}
}
