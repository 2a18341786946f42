package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/typing-battle-backend/internal/registry"
	"github.com/DoyleJ11/typing-battle-backend/internal/room"
	"github.com/DoyleJ11/typing-battle-backend/internal/words"
	wire "github.com/DoyleJ11/typing-battle-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "hash:" + pw, nil }
func (plainHasher) Verify(hash, pw string) bool    { return hash != "" && hash == "hash:"+pw }

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestHub(t *testing.T, opts Options) (*Hub, *registry.Registry, *clock) {
	t.Helper()
	reg := registry.New(64, zap.NewNop())
	clk := &clock{now: t0}
	h := NewHub(context.Background(), Deps{
		Out:       reg,
		Passwords: plainHasher{},
		Words:     words.Default(),
		Logger:    zap.NewNop(),
		Now:       clk.Now,
	}, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	return h, reg, clk
}

func connect(t *testing.T, reg *registry.Registry, id string) *registry.Client {
	t.Helper()
	c, err := reg.Register(id)
	require.NoError(t, err)
	return c
}

// settle waits until the room has handled everything queued so far.
func settle(t *testing.T, h *Hub, name string) {
	t.Helper()
	r := h.Get(name)
	if r == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _ = r.State(ctx)
}

func join(t *testing.T, h *Hub, id string, msg wire.JoinRoom) {
	t.Helper()
	require.NoError(t, h.Join(context.Background(), id, msg))
	settle(t, h, msg.RoomName)
}

func drain(c *registry.Client) {
	for len(c.Outbox()) > 0 {
		<-c.Outbox()
	}
}

// lastRoomList returns the most recent roomList frame queued for c.
func lastRoomList(t *testing.T, c *registry.Client) (wire.RoomList, bool) {
	t.Helper()
	var (
		list  wire.RoomList
		found bool
	)
	for len(c.Outbox()) > 0 {
		var env struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(<-c.Outbox(), &env))
		if env.Type == wire.EvtRoomList {
			require.NoError(t, json.Unmarshal(env.Payload, &list))
			found = true
		}
	}
	return list, found
}

func TestHub_Ensure_SamePointerAfterNormalizing(t *testing.T) {
	h, _, _ := newTestHub(t, Options{})

	r1, err := h.Ensure(" Café ", "a", "", false)
	require.NoError(t, err)
	r2, err := h.Ensure("Café", "b", "", false)
	require.NoError(t, err)

	assert.Same(t, r1, r2)
	assert.Same(t, r1, h.Get("Café"))
	assert.Equal(t, 1, h.Len())

	_, err = h.Ensure("   ", "a", "", false)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestHub_Available_FiltersAndSorts(t *testing.T) {
	h, reg, _ := newTestHub(t, Options{MaxPlayers: 2})
	for _, id := range []string{"a", "b", "c", "d"} {
		connect(t, reg, id)
	}

	join(t, h, "a", wire.JoinRoom{RoomName: "zeta", PlayerName: "Ann"})
	join(t, h, "b", wire.JoinRoom{RoomName: "alpha", PlayerName: "Ben"})
	join(t, h, "c", wire.JoinRoom{RoomName: "alpha", PlayerName: "Cat"})
	join(t, h, "d", wire.JoinRoom{RoomName: "secret", PlayerName: "Dan", IsPrivate: true})

	got := h.Available()
	require.Len(t, got, 1, "full and private rooms are hidden")
	assert.Equal(t, wire.RoomInfo{Name: "zeta", HostName: "Ann", PlayerCount: 1, MaxPlayers: 2}, got[0])

	_, err := h.Ensure("beta", "x", "", false)
	require.NoError(t, err)
	got = h.Available()
	require.Len(t, got, 2)
	assert.Equal(t, "beta", got[0].Name)
	assert.Equal(t, "empty", got[0].HostName)
	assert.Equal(t, "zeta", got[1].Name)
}

func TestHub_RoomListPushedToLobbyless(t *testing.T) {
	h, reg, _ := newTestHub(t, Options{})
	watcher := connect(t, reg, "w")
	player := connect(t, reg, "p")

	join(t, h, "p", wire.JoinRoom{RoomName: "R1", PlayerName: "Pat"})

	list, ok := lastRoomList(t, watcher)
	require.True(t, ok)
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, "Pat", list.Rooms[0].HostName)
	assert.Equal(t, 1, list.Rooms[0].PlayerCount)

	_, ok = lastRoomList(t, player)
	assert.False(t, ok, "room members do not get the room list")
}

func TestHub_Join_MatchInProgressRejected(t *testing.T) {
	h, reg, _ := newTestHub(t, Options{})
	for _, id := range []string{"a", "b", "c"} {
		connect(t, reg, id)
	}
	join(t, h, "a", wire.JoinRoom{RoomName: "R1", PlayerName: "A"})
	join(t, h, "b", wire.JoinRoom{RoomName: "R1", PlayerName: "B"})
	require.NoError(t, h.Get("R1").Send(room.FromClient{ClientID: "a", Msg: wire.RequestStartGame{}}))
	settle(t, h, "R1")

	err := h.Join(context.Background(), "c", wire.JoinRoom{RoomName: "R1", PlayerName: "C"})
	assert.Error(t, err)
	_, in := reg.RoomOf("c")
	assert.False(t, in)
}

func TestHub_Join_ReplacesRetiredRoom(t *testing.T) {
	h, reg, clk := newTestHub(t, Options{IdleTimeout: time.Minute})
	connect(t, reg, "a")

	old, err := h.Ensure("R1", "x", "", false)
	require.NoError(t, err)
	// retire it behind the hub's back, as if eviction raced the join
	require.True(t, old.Retire(context.Background(), clk.Now().Add(time.Hour), time.Minute))
	<-old.Done()

	join(t, h, "a", wire.JoinRoom{RoomName: "R1", PlayerName: "A"})
	fresh := h.Get("R1")
	require.NotNil(t, fresh)
	assert.NotSame(t, old, fresh)
	current, _ := reg.RoomOf("a")
	assert.Equal(t, "R1", current)
}

func TestHub_EvictIdle(t *testing.T) {
	h, reg, clk := newTestHub(t, Options{IdleTimeout: time.Hour})
	connect(t, reg, "a")
	connect(t, reg, "b")
	watcher := connect(t, reg, "w")

	join(t, h, "a", wire.JoinRoom{RoomName: "busy", PlayerName: "A"})
	join(t, h, "b", wire.JoinRoom{RoomName: "idle", PlayerName: "B"})
	require.NoError(t, h.Get("idle").Send(room.Leave{ClientID: "b"}))
	settle(t, h, "idle")

	clk.Advance(30 * time.Minute)
	assert.Equal(t, 0, h.EvictIdle(clk.Now()))

	clk.Advance(31 * time.Minute)
	drain(watcher)
	assert.Equal(t, 1, h.EvictIdle(clk.Now()))
	assert.Nil(t, h.Get("idle"))
	assert.NotNil(t, h.Get("busy"), "occupied rooms are never evicted")

	list, ok := lastRoomList(t, watcher)
	require.True(t, ok)
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, "busy", list.Rooms[0].Name)
}

func TestHub_DeleteRoomDetachesMembers(t *testing.T) {
	h, reg, _ := newTestHub(t, Options{})
	a := connect(t, reg, "a")
	connect(t, reg, "b")

	join(t, h, "a", wire.JoinRoom{RoomName: "R1", PlayerName: "A", Password: "pw"})
	join(t, h, "b", wire.JoinRoom{RoomName: "R1", PlayerName: "B", Password: "ignored"})

	r := h.Get("R1")
	require.NoError(t, r.Send(room.FromClient{ClientID: "b", Msg: wire.DeleteRoom{Password: "wrong"}}))
	settle(t, h, "R1")
	assert.Same(t, r, h.Get("R1"))
	assert.Len(t, h.Available(), 1, "a failed delete keeps the room listed")

	require.NoError(t, r.Send(room.FromClient{ClientID: "b", Msg: wire.DeleteRoom{Password: "pw"}}))
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatalf("room did not stop")
	}

	assert.Nil(t, h.Get("R1"))
	assert.Empty(t, h.Available())
	for _, id := range []string{"a", "b"} {
		_, in := reg.RoomOf(id)
		assert.False(t, in, "%s should be back in the lobby", id)
	}

	list, ok := lastRoomList(t, a)
	require.True(t, ok)
	assert.Empty(t, list.Rooms)
}

func TestHub_Shutdown(t *testing.T) {
	h, _, _ := newTestHub(t, Options{})
	r, err := h.Ensure("R1", "a", "", false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.Shutdown(ctx))

	<-r.Done()
	assert.Equal(t, 0, h.Len())
}

func TestHub_RunReaperStopsWithContext(t *testing.T) {
	h, _, _ := newTestHub(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.RunReaper(ctx, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("reaper did not stop")
	}
}
