// Package ws owns the websocket endpoint: it accepts connections,
// demultiplexes inbound frames by their type discriminator and dispatches
// them to the registry or the owning room. It never blocks a room: each
// connection gets a writer goroutine draining an outbox channel that the
// room writes into without waiting.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sketchparty/sketchparty-server/internal/registry"
	"github.com/sketchparty/sketchparty-server/internal/room"
	"github.com/sketchparty/sketchparty-server/internal/types"
)

const (
	// readTimeout bounds how long a connection may stay silent; clients
	// ping well inside it, so an expiry means the peer is gone.
	readTimeout  = 60 * time.Second
	writeTimeout = 3 * time.Second
	outboxSize   = 32
)

func Handler(reg *registry.Registry, origins []string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.URL.Query().Get("client_id")
		if clientID == "" {
			clientID = uuid.NewString()
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		s := &session{
			reg:      reg,
			log:      log.With(zap.String("clientId", clientID)),
			clientID: clientID,
			out:      make(chan []byte, outboxSize),
		}

		// Writer goroutine: the room fans out into s.out; this is the
		// only place that writes to the socket.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case <-writeCtx.Done():
					return
				case msg := <-s.out:
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err := conn.Write(ctx, websocket.MessageText, msg)
					cancel()
					if err != nil {
						return
					}
				}
			}
		}()

		// Connection loss is a leave with a grace period; the room keeps
		// the seat around for a reconnect.
		defer func() {
			if s.joined {
				reg.PlayerLeft(s.clientID, false)
			}
		}()

		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				return
			}
			s.route(data)
		}
	}
}

type session struct {
	reg      *registry.Registry
	log      *zap.Logger
	clientID string
	out      chan []byte
	joined   bool
}

// route decodes one frame by its discriminator and dispatches it.
// Malformed or unknown frames are dropped silently; they must never take
// the connection or the room down.
func (s *session) route(data []byte) {
	var base types.Base
	if err := json.Unmarshal(data, &base); err != nil {
		return
	}

	switch base.Type {
	case types.TypeJoinRoomHandshake:
		var m types.JoinRoomHandshake
		if err := json.Unmarshal(data, &m); err != nil {
			return
		}
		if m.ClientID != "" {
			s.clientID = m.ClientID
		}
		rm := s.reg.Room(m.RoomName)
		if rm == nil {
			s.sendJSON(types.GameError{Type: types.TypeGameError, ErrorType: types.ErrorRoomNotFound})
			return
		}
		s.reg.BindClient(s.clientID, m.RoomName)
		rm.Deliver(room.Join{ClientID: s.clientID, Username: m.Username, Outbox: s.out})
		s.joined = true

	case types.TypeDrawData:
		var m types.DrawData
		if err := json.Unmarshal(data, &m); err != nil {
			return
		}
		if rm := s.reg.Room(m.RoomName); rm != nil {
			rm.Deliver(room.Stroke{ClientID: s.clientID, Raw: data})
		}

	case types.TypeDrawAction:
		var m types.DrawAction
		if err := json.Unmarshal(data, &m); err != nil {
			return
		}
		// Draw actions carry no room name; resolve via the client binding.
		if rm := s.reg.RoomWithClient(s.clientID); rm != nil {
			rm.Deliver(room.StrokeAction{ClientID: s.clientID, Action: m.Action, Raw: data})
		}

	case types.TypeChosenWord:
		var m types.ChosenWord
		if err := json.Unmarshal(data, &m); err != nil {
			return
		}
		if rm := s.reg.Room(m.RoomName); rm != nil {
			rm.Deliver(room.SubmitWord{ClientID: s.clientID, Word: m.ChosenWord})
		}

	case types.TypeChatMessage:
		var m types.ChatMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return
		}
		if rm := s.reg.Room(m.RoomName); rm != nil {
			rm.Deliver(room.Chat{ClientID: s.clientID, From: m.From, Message: m.Message, Raw: data})
		}

	case types.TypePing:
		s.sendJSON(types.Ping{Type: types.TypePing})

	case types.TypeDisconnectRequest:
		s.reg.PlayerLeft(s.clientID, true)
		s.joined = false
	}
}

func (s *session) sendJSON(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Error("marshal frame", zap.Error(err))
		return
	}
	select {
	case s.out <- payload:
	default:
	}
}
