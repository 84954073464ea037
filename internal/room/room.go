// Package room runs one drawing-game session: the phase state machine,
// the countdown timer, turn rotation, scoring and the broadcast fan-out.
// Each room is a single goroutine owning all of its state; everything
// reaches it through the inbox, so no room field needs a lock.
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sketchparty/sketchparty-server/internal/game"
	"github.com/sketchparty/sketchparty-server/internal/types"
	"github.com/sketchparty/sketchparty-server/internal/words"
)

// Registrar is how a room reports lifecycle changes back to whoever owns
// the room map.
type Registrar interface {
	// RoomEmptied is called after the room tore itself down because its
	// last player left.
	RoomEmptied(name string)
	// ClientDeparted is called when a client is permanently dropped
	// (explicit leave, or grace period expired with no reconnect).
	ClientDeparted(clientID string)
}

type noopRegistrar struct{}

func (noopRegistrar) RoomEmptied(string)    {}
func (noopRegistrar) ClientDeparted(string) {}

type Config struct {
	Name       string
	MaxPlayers int
	Words      *words.List
	Timings    game.Timings // zero value means game.DefaultTimings()
	Registrar  Registrar
	Logger     *zap.Logger
}

type Room struct {
	name       string
	maxPlayers int

	inbox     chan Msg
	ctx       context.Context
	cancel    context.CancelFunc
	log       *zap.Logger
	words     *words.List
	timings   game.Timings
	registrar Registrar

	phase      game.Phase
	players    []*player
	drawingIdx int
	drawing    *player
	word       string
	candidates []string
	winners    map[string]bool
	left       map[string]*leftSeat
	removals   map[string]context.CancelFunc
	drawFrames [][]byte

	// Exactly one countdown may be live. startTimer bumps the generation
	// and cancels the previous goroutine; fires stamped with an older
	// generation are dropped, so a cancel racing a fire is a no-op.
	timerGen    int
	timerCancel context.CancelFunc
	timerStart  time.Time
	timerTotal  time.Duration
}

func New(parent context.Context, cfg Config) *Room {
	if cfg.Timings == (game.Timings{}) {
		cfg.Timings = game.DefaultTimings()
	}
	if cfg.Registrar == nil {
		cfg.Registrar = noopRegistrar{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		name:       cfg.Name,
		maxPlayers: cfg.MaxPlayers,
		inbox:      make(chan Msg, 64),
		ctx:        ctx,
		cancel:     cancel,
		log:        cfg.Logger.With(zap.String("room", cfg.Name)),
		words:      cfg.Words,
		timings:    cfg.Timings,
		registrar:  cfg.Registrar,
		phase:      game.PhaseWaitingForPlayers,
		winners:    make(map[string]bool),
		left:       make(map[string]*leftSeat),
		removals:   make(map[string]context.CancelFunc),
	}
	go r.loop()
	return r
}

func (r *Room) Name() string    { return r.name }
func (r *Room) MaxPlayers() int { return r.maxPlayers }

// Deliver posts a message to the room loop. It returns false once the
// room is torn down instead of blocking forever. The context check comes
// first: after teardown a buffered inbox send could still succeed, and
// the select alone would pick it about half the time.
func (r *Room) Deliver(m Msg) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// Snapshot asks the loop for a consistent view of the room.
func (r *Room) Snapshot(ctx context.Context) (View, bool) {
	reply := make(chan View, 1)
	if !r.Deliver(GetState{Reply: reply}) {
		return View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-ctx.Done():
		return View{}, false
	case <-r.ctx.Done():
		return View{}, false
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.teardown()
			return
		case m := <-r.inbox:
			if r.handle(m) {
				return
			}
		}
	}
}

// handle processes one message. A panic in a handler is contained here:
// the room logs it and keeps serving, other rooms are never affected.
func (r *Room) handle(m Msg) (done bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("room handler panicked",
				zap.Any("panic", rec),
				zap.Stack("stack"))
		}
	}()

	switch msg := m.(type) {
	case Join:
		r.handleJoin(msg)
	case Leave:
		done = r.handleLeave(msg)
	case SubmitWord:
		r.handleSubmitWord(msg)
	case Chat:
		r.handleChat(msg)
	case Stroke:
		if r.phase == game.PhaseGameRunning {
			r.broadcastExcept(msg.Raw, msg.ClientID)
			r.drawFrames = append(r.drawFrames, msg.Raw)
		}
	case StrokeAction:
		r.broadcastExcept(msg.Raw, msg.ClientID)
		r.drawFrames = append(r.drawFrames, msg.Raw)
	case timerTick:
		r.handleTimerTick(msg)
	case timerElapsed:
		if msg.gen == r.timerGen {
			r.applyEvent(game.EvtTimerElapsed)
		}
	case removalDue:
		r.handleRemovalDue(msg.clientID)
	case GetState:
		msg.Reply <- r.view()
	case Shutdown:
		r.teardown()
		done = true
	}
	return done
}

func (r *Room) handleJoin(m Join) {
	// Same client still seated: a reconnect raced the Leave (or the old
	// connection never signalled closure). Swap the handle in place.
	if p := r.playerByClientID(m.ClientID); p != nil {
		p.outbox = m.Outbox
		r.log.Info("connection replaced", zap.String("username", p.username))
		r.sendCatchUp(p)
		r.broadcastPlayersList()
		return
	}

	// Reconnect within the grace window: cancel the pending removal and
	// restore the seat with score and drawing flag intact.
	if seat, ok := r.left[m.ClientID]; ok {
		delete(r.left, m.ClientID)
		if cancel, ok := r.removals[m.ClientID]; ok {
			cancel()
			delete(r.removals, m.ClientID)
		}
		p := seat.player
		p.outbox = m.Outbox
		idx := seat.index
		if idx > len(r.players) {
			idx = len(r.players)
		}
		r.players = append(r.players[:idx], append([]*player{p}, r.players[idx:]...)...)
		r.log.Info("player reconnected", zap.String("username", p.username))
		r.applyJoinThresholds()
		r.announce(fmt.Sprintf("%s joined the party!", p.username), types.AnnouncementPlayerJoined)
		r.sendCatchUp(p)
		r.broadcastPlayersList()
		return
	}

	// Parked seats keep their slot reserved, so a reconnect is never
	// bumped by a newcomer.
	if len(r.players)+len(r.left) >= r.maxPlayers {
		r.log.Warn("join rejected, room full", zap.String("username", m.Username))
		return
	}

	p := &player{clientID: m.ClientID, username: m.Username, outbox: m.Outbox}
	r.players = append(r.players, p)
	r.log.Info("player joined", zap.String("username", m.Username), zap.Int("players", len(r.players)))

	r.applyJoinThresholds()
	r.announce(fmt.Sprintf("%s joined the party!", m.Username), types.AnnouncementPlayerJoined)
	r.sendCatchUp(p)
	r.broadcastPlayersList()
}

// applyJoinThresholds runs the player-count transitions after any seat
// gain, fresh join or grace-window rejoin alike. The checks cascade
// deliberately: the join that both brings the room to two players and
// fills it walks straight through WAITING_FOR_START into NEW_ROUND.
func (r *Room) applyJoinThresholds() {
	if len(r.players) == 1 {
		r.phase = game.PhaseWaitingForPlayers
		r.notifyLobby()
	}
	if len(r.players) == 2 && r.phase == game.PhaseWaitingForPlayers {
		r.applyEvent(game.EvtSecondPlayerJoined)
	}
	if len(r.players) == r.maxPlayers && r.phase == game.PhaseWaitingForStart {
		r.applyEvent(game.EvtRoomFilled)
	}
}

func (r *Room) handleLeave(m Leave) bool {
	idx := -1
	for i, p := range r.players {
		if p.clientID == m.ClientID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	p := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	p.outbox = nil

	if m.Explicit {
		r.dropPermanently(p)
		r.log.Info("player left", zap.String("username", p.username))
	} else {
		r.left[m.ClientID] = &leftSeat{player: p, index: idx}
		ctx, cancel := context.WithCancel(r.ctx)
		r.removals[m.ClientID] = cancel
		go r.scheduleRemoval(ctx, m.ClientID)
		r.log.Info("player disconnected, grace period started", zap.String("username", p.username))
	}

	r.announce(fmt.Sprintf("%s left the party :(", p.username), types.AnnouncementPlayerLeft)
	r.broadcastPlayersList()

	switch len(r.players) {
	case 1:
		r.applyEvent(game.EvtLastOpponentLeft)
	case 0:
		r.teardown()
		r.registrar.RoomEmptied(r.name)
		r.log.Info("room emptied, tearing down")
		return true
	}
	return false
}

func (r *Room) scheduleRemoval(ctx context.Context, clientID string) {
	t := time.NewTimer(r.timings.Grace)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
		select {
		case r.inbox <- removalDue{clientID: clientID}:
		case <-ctx.Done():
		}
	}
}

func (r *Room) handleRemovalDue(clientID string) {
	seat, ok := r.left[clientID]
	if !ok {
		// Reconnected in the meantime; the cancel raced the fire.
		return
	}
	delete(r.left, clientID)
	delete(r.removals, clientID)
	r.dropPermanently(seat.player)
	r.log.Info("grace period expired, player removed", zap.String("username", seat.player.username))
}

func (r *Room) dropPermanently(p *player) {
	if r.drawing == p {
		r.drawing = nil
		p.isDrawing = false
	}
	r.registrar.ClientDeparted(p.clientID)
}

func (r *Room) handleSubmitWord(m SubmitWord) {
	if r.drawing == nil || r.drawing.clientID != m.ClientID {
		r.log.Debug("chosen word from non-drawing player ignored")
		return
	}
	// Only the word-choice window accepts a submission; committing the
	// word before that check would let the drawing player swap it
	// mid-round while guessers still hold the old mask.
	if r.phase != game.PhaseNewRound {
		r.log.Debug("chosen word outside the choice window ignored")
		return
	}
	r.word = m.Word
	r.applyEvent(game.EvtWordChosen)
}

func (r *Room) handleChat(m Chat) {
	if !r.isCorrectGuess(m) {
		// Plain chat (or a wrong guess): relay to everyone else; the
		// sender renders its own line locally.
		r.broadcastExcept(m.Raw, m.ClientID)
		return
	}
	guesser := r.playerByClientID(m.ClientID)
	if guesser == nil || guesser.username != m.From {
		return
	}

	elapsed := time.Since(r.timerStart)
	guesser.score += game.GuessScore(elapsed, r.timerTotal)
	if r.drawing != nil && len(r.players) > 0 {
		r.drawing.score += game.DrawerGuessReward / len(r.players)
	}
	r.winners[m.From] = true

	r.broadcastPlayersList()
	r.announce(fmt.Sprintf("%s has guessed it!", m.From), types.AnnouncementPlayerGuessed)

	if len(r.winners) >= r.nonDrawingCount() {
		r.announce("Everybody guessed it! New round is starting...", types.AnnouncementEverybodyGuessed)
		r.applyEvent(game.EvtAllGuessed)
	}
}

func (r *Room) isCorrectGuess(m Chat) bool {
	if r.phase != game.PhaseGameRunning {
		return false
	}
	if r.winners[m.From] {
		return false
	}
	if r.drawing != nil && r.drawing.username == m.From {
		return false
	}
	return game.MatchesWord(m.Message, r.word)
}

// nonDrawingCount is the number of seated players who may still guess.
// Computed from the live list rather than assuming len(players)-1, since
// the drawing player can be mid-reconnect.
func (r *Room) nonDrawingCount() int {
	n := len(r.players)
	for _, p := range r.players {
		if p == r.drawing {
			n--
			break
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}

// applyEvent runs the pure state machine and executes its effects.
func (r *Room) applyEvent(ev game.Event) {
	next, effects, err := game.Advance(r.phase, ev)
	if err != nil {
		r.log.Debug("event ignored",
			zap.String("phase", string(r.phase)),
			zap.String("event", string(ev)))
		return
	}
	r.log.Info("phase transition",
		zap.String("from", string(r.phase)),
		zap.String("to", string(next)),
		zap.String("event", string(ev)))
	r.phase = next
	for _, ef := range effects {
		r.applyEffect(ef)
	}
}

func (r *Room) applyEffect(ef game.Effect) {
	switch ef {
	case game.EffectShufflePlayers:
		rand.Shuffle(len(r.players), func(i, j int) {
			r.players[i], r.players[j] = r.players[j], r.players[i]
		})
	case game.EffectStartRound:
		r.startRound()
	case game.EffectDealWords:
		r.dealWords()
	case game.EffectRevealWord:
		r.revealWord()
	case game.EffectStartTimer:
		r.startTimer(r.timings.PhaseDuration(r.phase))
	case game.EffectStopTimer:
		r.stopTimer()
	case game.EffectNotifyLobby:
		r.notifyLobby()
	}
}

// startRound runs on NEW_ROUND entry: rotate the drawing player, deal
// three candidate words privately, reset the per-round canvas.
func (r *Room) startRound() {
	r.word = ""
	r.drawFrames = nil
	r.rotateDrawingPlayer()
	r.candidates = r.words.Pick(3)
	if r.drawing != nil {
		r.sendTo(r.drawing, types.NewWords{Type: types.TypeNewWords, NewWords: r.candidates})
	}
	r.broadcastPlayersList()
}

func (r *Room) rotateDrawingPlayer() {
	if r.drawing != nil {
		r.drawing.isDrawing = false
	}
	if len(r.players) == 0 {
		r.drawing = nil
		return
	}
	// Departures can leave the cursor past the end; fall back to the
	// last player, then wrap.
	if r.drawingIdx > len(r.players)-1 {
		r.drawingIdx = len(r.players) - 1
	}
	r.drawing = r.players[r.drawingIdx]
	r.drawing.isDrawing = true
	if r.drawingIdx < len(r.players)-1 {
		r.drawingIdx++
	} else {
		r.drawingIdx = 0
	}
}

// dealWords runs on GAME_RUNNING entry: clear the winners of the last
// round and send each player its word view. If the drawing player never
// chose, a random candidate fills in.
func (r *Room) dealWords() {
	r.winners = make(map[string]bool)
	if r.word == "" {
		if len(r.candidates) > 0 {
			r.word = r.candidates[rand.Intn(len(r.candidates))]
		} else {
			r.word = r.words.Pick(1)[0]
		}
	}
	drawingName := ""
	if r.drawing != nil {
		drawingName = r.drawing.username
	}
	masked := game.MaskWord(r.word)
	for _, p := range r.players {
		view := masked
		if p == r.drawing {
			view = r.word
		}
		r.sendTo(p, types.GameState{Type: types.TypeGameState, DrawingPlayer: drawingName, Word: view})
	}
}

// revealWord runs on SHOW_WORD entry: penalize the drawing player if
// nobody guessed, then reveal the word to everyone.
func (r *Room) revealWord() {
	if len(r.winners) == 0 && r.drawing != nil {
		r.drawing.score -= game.NoGuessPenalty
	}
	r.broadcastPlayersList()
	if r.word != "" {
		r.broadcastJSON(types.ChosenWord{Type: types.TypeChosenWord, ChosenWord: r.word, RoomName: r.name})
	}
}

func (r *Room) notifyLobby() {
	r.broadcastJSON(types.PhaseChange{
		Type:  types.TypePhaseChange,
		Phase: string(game.PhaseWaitingForPlayers),
		Time:  r.timings.WaitingForStart.Milliseconds(),
	})
}

func (r *Room) startTimer(d time.Duration) {
	r.stopTimer()
	if d <= 0 {
		return
	}
	r.timerGen++
	ctx, cancel := context.WithCancel(r.ctx)
	r.timerCancel = cancel
	r.timerStart = time.Now()
	r.timerTotal = d
	go r.runTimer(ctx, r.timerGen, d)
	// The first tick goes out synchronously, so clients observe phase
	// notices in exactly the order transitions happened.
	r.handleTimerTick(timerTick{gen: r.timerGen, remaining: d, first: true})
}

func (r *Room) stopTimer() {
	if r.timerCancel != nil {
		r.timerCancel()
		r.timerCancel = nil
	}
	// Invalidate fires already in flight, not just future ones.
	r.timerGen++
}

func (r *Room) runTimer(ctx context.Context, gen int, total time.Duration) {
	done := time.NewTimer(total)
	defer done.Stop()
	ticker := time.NewTicker(r.timings.Tick)
	defer ticker.Stop()

	remaining := total
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining -= r.timings.Tick
			if remaining <= 0 {
				continue
			}
			if !r.post(ctx, timerTick{gen: gen, remaining: remaining}) {
				return
			}
		case <-done.C:
			r.post(ctx, timerElapsed{gen: gen})
			return
		}
	}
}

func (r *Room) post(ctx context.Context, m Msg) bool {
	select {
	case r.inbox <- m:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Room) handleTimerTick(m timerTick) {
	if m.gen != r.timerGen {
		return
	}
	pc := types.PhaseChange{Type: types.TypePhaseChange, Time: m.remaining.Milliseconds()}
	if m.first {
		pc.Phase = string(r.phase)
	}
	if r.drawing != nil {
		pc.DrawingPlayer = r.drawing.username
	}
	r.broadcastJSON(pc)
}

// sendCatchUp brings one (re)joining player up to date: current phase
// with remaining time, its word view mid-round, and the canvas so far.
func (r *Room) sendCatchUp(p *player) {
	pc := types.PhaseChange{Type: types.TypePhaseChange, Phase: string(r.phase)}
	if r.timerCancel != nil {
		pc.Time = time.Until(r.timerStart.Add(r.timerTotal)).Milliseconds()
	} else {
		pc.Time = r.timings.PhaseDuration(r.phase).Milliseconds()
	}
	if r.drawing != nil {
		pc.DrawingPlayer = r.drawing.username
	}
	r.sendTo(p, pc)

	if r.word != "" && r.drawing != nil &&
		(r.phase == game.PhaseGameRunning || r.phase == game.PhaseShowWord) {
		view := game.MaskWord(r.word)
		if p.isDrawing || r.phase == game.PhaseShowWord {
			view = r.word
		}
		r.sendTo(p, types.GameState{Type: types.TypeGameState, DrawingPlayer: r.drawing.username, Word: view})
	}

	if len(r.drawFrames) > 0 {
		data := make([]string, len(r.drawFrames))
		for i, f := range r.drawFrames {
			data[i] = string(f)
		}
		r.sendTo(p, types.CurRoundDrawInfo{Type: types.TypeCurRoundDrawInfo, Data: data})
	}
}

func (r *Room) broadcastPlayersList() {
	list := make([]types.PlayerData, 0, len(r.players))
	for _, p := range r.players {
		list = append(list, types.PlayerData{Username: p.username, IsDrawing: p.isDrawing, Score: p.score})
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Score > list[j].Score })
	for i := range list {
		list[i].Rank = i + 1
	}
	r.broadcastJSON(types.PlayersList{Type: types.TypePlayersList, Players: list})
}

func (r *Room) announce(text string, kind int) {
	r.broadcastJSON(types.Announcement{
		Type:      types.TypeAnnouncement,
		Message:   text,
		Timestamp: time.Now().UnixMilli(),
		Kind:      kind,
	})
}

func (r *Room) broadcastJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		r.log.Error("marshal broadcast", zap.Error(err))
		return
	}
	r.broadcast(payload)
}

func (r *Room) broadcast(msg []byte) {
	for _, p := range r.players {
		p.send(msg)
	}
}

func (r *Room) broadcastExcept(msg []byte, clientID string) {
	for _, p := range r.players {
		if p.clientID != clientID {
			p.send(msg)
		}
	}
}

func (r *Room) sendTo(p *player, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		r.log.Error("marshal message", zap.Error(err))
		return
	}
	p.send(payload)
}

func (r *Room) playerByClientID(clientID string) *player {
	for _, p := range r.players {
		if p.clientID == clientID {
			return p
		}
	}
	return nil
}

func (r *Room) view() View {
	v := View{
		Name:            r.name,
		MaxPlayers:      r.maxPlayers,
		Phase:           r.phase,
		Word:            r.word,
		Candidates:      append([]string(nil), r.candidates...),
		Winners:         len(r.winners),
		PendingRemovals: len(r.left),
	}
	if r.drawing != nil {
		v.DrawingPlayer = r.drawing.username
	}
	for _, p := range r.players {
		v.Players = append(v.Players, PlayerView{
			ClientID:  p.clientID,
			Username:  p.username,
			Score:     p.score,
			IsDrawing: p.isDrawing,
			Connected: p.outbox != nil,
		})
	}
	return v
}

// teardown releases every timer and pending removal, then stops the loop.
func (r *Room) teardown() {
	r.stopTimer()
	for id, cancel := range r.removals {
		cancel()
		delete(r.removals, id)
	}
	r.cancel()
}
