// Package registry owns the process-wide maps: room name -> room and
// client identity -> room name. It is the only state shared across room
// boundaries, so it carries its own lock; everything inside a room stays
// with the room's goroutine.
package registry

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sketchparty/sketchparty-server/internal/game"
	"github.com/sketchparty/sketchparty-server/internal/room"
	"github.com/sketchparty/sketchparty-server/internal/words"
)

var ErrRoomExists = errors.New("room already exists")

type Registry struct {
	ctx     context.Context
	log     *zap.Logger
	words   *words.List
	timings game.Timings

	mu      sync.RWMutex
	rooms   map[string]*room.Room
	clients map[string]string // clientID -> room name
}

type Config struct {
	Words   *words.List
	Timings game.Timings // zero value means game.DefaultTimings()
	Logger  *zap.Logger
}

func New(ctx context.Context, cfg Config) *Registry {
	if cfg.Timings == (game.Timings{}) {
		cfg.Timings = game.DefaultTimings()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Registry{
		ctx:     ctx,
		log:     cfg.Logger,
		words:   cfg.Words,
		timings: cfg.Timings,
		rooms:   make(map[string]*room.Room),
		clients: make(map[string]string),
	}
}

// CreateRoom spins up a new room goroutine. Name uniqueness is enforced
// here; size bounds are the HTTP layer's job.
func (s *Registry) CreateRoom(name string, maxPlayers int) (*room.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[name]; ok {
		return nil, ErrRoomExists
	}
	r := room.New(s.ctx, room.Config{
		Name:       name,
		MaxPlayers: maxPlayers,
		Words:      s.words,
		Timings:    s.timings,
		Registrar:  s,
		Logger:     s.log,
	})
	s.rooms[name] = r
	s.log.Info("room created", zap.String("room", name), zap.Int("maxPlayers", maxPlayers))
	return r, nil
}

func (s *Registry) Room(name string) *room.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[name]
}

// Rooms returns the rooms whose name contains the query
// (case-insensitive), sorted by name. An empty query matches everything.
func (s *Registry) Rooms(query string) []*room.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query = strings.ToLower(query)
	var out []*room.Room
	for name, r := range s.rooms {
		if strings.Contains(strings.ToLower(name), query) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// BindClient records which room a client identity belongs to, so frames
// that omit the room name (draw actions, disconnects) can be routed.
func (s *Registry) BindClient(clientID, roomName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[clientID] = roomName
}

// RoomWithClient resolves the room a client is known to be in, or nil.
func (s *Registry) RoomWithClient(clientID string) *room.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.clients[clientID]
	if !ok {
		return nil
	}
	return s.rooms[name]
}

// PlayerLeft routes a departure to the owning room. Explicit departures
// drop the seat immediately; implicit ones start the grace period.
func (s *Registry) PlayerLeft(clientID string, explicit bool) {
	r := s.RoomWithClient(clientID)
	if r == nil {
		return
	}
	r.Deliver(room.Leave{ClientID: clientID, Explicit: explicit})
}

// RoomEmptied implements room.Registrar: the room already tore itself
// down, drop it and every client binding pointing at it.
func (s *Registry) RoomEmptied(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, name)
	for cid, rn := range s.clients {
		if rn == name {
			delete(s.clients, cid)
		}
	}
	s.log.Info("room removed", zap.String("room", name))
}

// ClientDeparted implements room.Registrar.
func (s *Registry) ClientDeparted(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, clientID)
}

// Shutdown stops every room. Used on process exit.
func (s *Registry) Shutdown() {
	s.mu.Lock()
	rooms := make([]*room.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.rooms = make(map[string]*room.Room)
	s.clients = make(map[string]string)
	s.mu.Unlock()

	for _, r := range rooms {
		r.Deliver(room.Shutdown{})
	}
}
