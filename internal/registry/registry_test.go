package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegister_Duplicate(t *testing.T) {
	r := New(4, zap.NewNop())
	_, err := r.Register("c1")
	require.NoError(t, err)
	_, err = r.Register("c1")
	assert.ErrorIs(t, err, ErrDuplicateClient)
	assert.Equal(t, 1, r.Len())
}

func TestSend_DropsWhenFull(t *testing.T) {
	r := New(1, zap.NewNop())
	c, err := r.Register("c1")
	require.NoError(t, err)

	assert.True(t, r.Send("c1", []byte("a")))
	assert.False(t, r.Send("c1", []byte("b")), "second frame should be dropped")
	assert.Equal(t, "a", string(<-c.Outbox()))
	assert.False(t, r.Send("nobody", []byte("x")))
}

func TestUnregister_ClosesOutboxAndReturnsRoom(t *testing.T) {
	r := New(4, zap.NewNop())
	c, err := r.Register("c1")
	require.NoError(t, err)
	require.True(t, r.SetRoom("c1", "R1"))

	room, ok := r.Unregister("c1")
	assert.True(t, ok)
	assert.Equal(t, "R1", room)

	_, open := <-c.Outbox()
	assert.False(t, open)
	assert.False(t, r.Send("c1", []byte("late")))
	assert.False(t, r.SetRoom("c1", "R1"))

	_, ok = r.Unregister("c1")
	assert.False(t, ok)
}

func TestSendLobbyless_SkipsRoomMembers(t *testing.T) {
	r := New(4, zap.NewNop())
	lobby, _ := r.Register("lobby")
	member, _ := r.Register("member")
	require.True(t, r.SetRoom("member", "R1"))

	n := r.SendLobbyless([]byte("list"))
	assert.Equal(t, 1, n)
	assert.Len(t, lobby.Outbox(), 1)
	assert.Len(t, member.Outbox(), 0)
}

func TestClearRoom_OnlyMatchingRoom(t *testing.T) {
	r := New(4, zap.NewNop())
	_, _ = r.Register("c1")
	r.SetRoom("c1", "R2")

	r.ClearRoom("c1", "R1")
	room, ok := r.RoomOf("c1")
	assert.True(t, ok)
	assert.Equal(t, "R2", room)

	r.ClearRoom("c1", "R2")
	_, ok = r.RoomOf("c1")
	assert.False(t, ok)
}

func TestSend_ConcurrentWithUnregister(t *testing.T) {
	r := New(8, zap.NewNop())
	c, _ := r.Register("c1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Send("c1", []byte("x"))
			}
		}()
	}
	go func() {
		for range c.Outbox() {
		}
	}()
	r.Unregister("c1")
	wg.Wait()
}
