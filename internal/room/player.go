package room

// player is one seated identity. clientID is stable across reconnects;
// outbox is nil while a reconnect is pending.
type player struct {
	clientID  string
	username  string
	score     int
	isDrawing bool
	outbox    chan []byte
}

// send writes without ever blocking the room loop: a missing connection
// or a full outbox means the message is skipped, not retried. The
// keep-alive layer reconciles dead connections into a Leave.
func (p *player) send(msg []byte) bool {
	if p.outbox == nil {
		return false
	}
	select {
	case p.outbox <- msg:
		return true
	default:
		return false
	}
}

// leftSeat parks a disconnected player during the grace period, keeping
// its old position so a reconnect restores the turn order.
type leftSeat struct {
	player *player
	index  int
}
