package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sketchparty/sketchparty-server/internal/registry"
)

// MaxRoomSize caps room creation; the per-room invariant players <=
// maxPlayers is enforced by the room itself.
const MaxRoomSize = 8

type CreateRoomRequest struct {
	Name       string `json:"name"`
	MaxPlayers int    `json:"maxPlayers"`
}

type BasicResponse struct {
	Successful bool   `json:"successful"`
	Message    string `json:"message,omitempty"`
}

type RoomResponse struct {
	Name        string `json:"name"`
	MaxPlayers  int    `json:"maxPlayers"`
	PlayerCount int    `json:"playerCount"`
}

func CreateRoom(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			writeJSON(w, http.StatusOK, BasicResponse{false, "Room name is required."})
			return
		}
		if req.MaxPlayers < 2 {
			writeJSON(w, http.StatusOK, BasicResponse{false, "The minimum room size is 2."})
			return
		}
		if req.MaxPlayers > MaxRoomSize {
			writeJSON(w, http.StatusOK, BasicResponse{false, fmt.Sprintf("The maximum room size is %d.", MaxRoomSize)})
			return
		}

		if _, err := reg.CreateRoom(req.Name, req.MaxPlayers); err != nil {
			if errors.Is(err, registry.ErrRoomExists) {
				writeJSON(w, http.StatusOK, BasicResponse{false, "Room already exists."})
				return
			}
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}
		log.Info("room created via api", zap.String("room", req.Name))
		writeJSON(w, http.StatusOK, BasicResponse{Successful: true})
	}
}

func GetRooms(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !r.URL.Query().Has("searchQuery") {
			http.Error(w, "missing searchQuery", http.StatusBadRequest)
			return
		}
		query := r.URL.Query().Get("searchQuery")

		resp := make([]RoomResponse, 0)
		for _, rm := range reg.Rooms(query) {
			view, ok := rm.Snapshot(r.Context())
			if !ok {
				continue // room tore down mid-listing
			}
			resp = append(resp, RoomResponse{
				Name:        view.Name,
				MaxPlayers:  view.MaxPlayers,
				PlayerCount: len(view.Players),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// JoinRoom prechecks a join before the websocket handshake: the room must
// exist, have a free seat and no player with the same username.
func JoinRoom(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		roomName := r.URL.Query().Get("roomName")
		if username == "" || roomName == "" {
			http.Error(w, "missing username or roomName", http.StatusBadRequest)
			return
		}

		rm := reg.Room(roomName)
		if rm == nil {
			writeJSON(w, http.StatusOK, BasicResponse{false, "Room not found."})
			return
		}
		view, ok := rm.Snapshot(r.Context())
		if !ok {
			writeJSON(w, http.StatusOK, BasicResponse{false, "Room not found."})
			return
		}
		switch {
		case view.HasPlayer(username):
			writeJSON(w, http.StatusOK, BasicResponse{false, "A player with this username already joined."})
		case len(view.Players)+view.PendingRemovals >= view.MaxPlayers:
			// Disconnected players keep their seat for the grace period.
			writeJSON(w, http.StatusOK, BasicResponse{false, "This room is already full."})
		default:
			writeJSON(w, http.StatusOK, BasicResponse{Successful: true})
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
