package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sketchparty/sketchparty-server/internal/game"
	"github.com/sketchparty/sketchparty-server/internal/room"
	"github.com/sketchparty/sketchparty-server/internal/words"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	list, err := words.New([]string{"compiler", "laptop", "keyboard"})
	require.NoError(t, err)
	return New(ctx, Config{Words: list, Timings: game.Timings{
		WaitingForStart: time.Hour,
		NewRound:        time.Hour,
		GameRunning:     time.Hour,
		ShowWord:        time.Hour,
		Tick:            20 * time.Millisecond,
		Grace:           time.Hour,
	}})
}

func TestRegistry_CreateAndGetSamePointer(t *testing.T) {
	reg := testRegistry(t)

	r1, err := reg.CreateRoom("gophers", 4)
	require.NoError(t, err)
	r2 := reg.Room("gophers")
	assert.Same(t, r1, r2)
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	reg := testRegistry(t)

	_, err := reg.CreateRoom("gophers", 4)
	require.NoError(t, err)
	_, err = reg.CreateRoom("gophers", 2)
	assert.ErrorIs(t, err, ErrRoomExists)
}

func TestRegistry_SearchIsCaseInsensitiveSubstring(t *testing.T) {
	reg := testRegistry(t)

	for _, name := range []string{"Gophers", "rustaceans", "go nuts"} {
		_, err := reg.CreateRoom(name, 4)
		require.NoError(t, err)
	}

	names := func(rs []*room.Room) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.Name())
		}
		return out
	}

	assert.Equal(t, []string{"Gophers", "go nuts", "rustaceans"}, names(reg.Rooms("")))
	assert.Equal(t, []string{"Gophers", "go nuts"}, names(reg.Rooms("GO")))
	assert.Empty(t, reg.Rooms("draft"))
}

func TestRegistry_RoomWithClient(t *testing.T) {
	reg := testRegistry(t)

	r, err := reg.CreateRoom("gophers", 4)
	require.NoError(t, err)

	assert.Nil(t, reg.RoomWithClient("c-alice"))
	reg.BindClient("c-alice", "gophers")
	assert.Same(t, r, reg.RoomWithClient("c-alice"))
}

func TestRegistry_ExplicitLeaveUnbindsClient(t *testing.T) {
	reg := testRegistry(t)

	r, err := reg.CreateRoom("gophers", 4)
	require.NoError(t, err)

	out := make(chan []byte, 64)
	require.True(t, r.Deliver(room.Join{ClientID: "c-alice", Username: "alice", Outbox: out}))
	require.True(t, r.Deliver(room.Join{ClientID: "c-bob", Username: "bob", Outbox: make(chan []byte, 64)}))
	reg.BindClient("c-alice", "gophers")
	reg.BindClient("c-bob", "gophers")

	reg.PlayerLeft("c-alice", true)

	require.Eventually(t, func() bool {
		return reg.RoomWithClient("c-alice") == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Same(t, r, reg.RoomWithClient("c-bob"))
}

func TestRegistry_EmptiedRoomIsRemoved(t *testing.T) {
	reg := testRegistry(t)

	r, err := reg.CreateRoom("gophers", 4)
	require.NoError(t, err)

	require.True(t, r.Deliver(room.Join{ClientID: "c-alice", Username: "alice", Outbox: make(chan []byte, 64)}))
	reg.BindClient("c-alice", "gophers")
	reg.PlayerLeft("c-alice", true)

	require.Eventually(t, func() bool {
		return reg.Room("gophers") == nil && reg.RoomWithClient("c-alice") == nil
	}, 2*time.Second, 10*time.Millisecond)

	// The name is free again.
	_, err = reg.CreateRoom("gophers", 4)
	assert.NoError(t, err)
}
