package room

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/typing-battle-backend/internal/engine"
	wire "github.com/DoyleJ11/typing-battle-backend/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeOut struct {
	mu    sync.Mutex
	boxes map[string]chan []byte
	rooms map[string]string

	panicOnSetRoom bool
}

func newFakeOut() *fakeOut {
	return &fakeOut{boxes: map[string]chan []byte{}, rooms: map[string]string{}}
}

func (f *fakeOut) connect(id string) <-chan []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan []byte, 64)
	f.boxes[id] = ch
	return ch
}

func (f *fakeOut) disconnect(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.boxes, id)
	delete(f.rooms, id)
}

func (f *fakeOut) Send(id string, frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.boxes[id]
	if !ok {
		return false
	}
	select {
	case ch <- frame:
		return true
	default:
		return false
	}
}

func (f *fakeOut) SetRoom(id, room string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnSetRoom {
		panic("registry exploded")
	}
	if _, ok := f.boxes[id]; !ok {
		return false
	}
	f.rooms[id] = room
	return true
}

func (f *fakeOut) ClearRoom(id, room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rooms[id] == room {
		delete(f.rooms, id)
	}
}

func (f *fakeOut) roomOf(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms[id]
}

type fakeDir struct {
	mu        sync.Mutex
	published []Summary
	forgotten []string
}

func (d *fakeDir) Publish(_ *Room, s Summary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, s)
}

func (d *fakeDir) Forget(name string, _ *Room) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.forgotten = append(d.forgotten, name)
}

func (d *fakeDir) last() Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.published) == 0 {
		return Summary{}
	}
	return d.published[len(d.published)-1]
}

// plainVerifier treats "hash:<pw>" as the hash of pw.
type plainVerifier struct{}

func (plainVerifier) Verify(hash, password string) bool {
	return hash != "" && hash == "hash:"+password
}

type fixedWords struct{}

func (fixedWords) Sample(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "word"
	}
	return out
}

type fakeRecorder struct {
	got chan engine.Result
}

func (f *fakeRecorder) RecordMatch(_ context.Context, _ string, res engine.Result, _ int) error {
	f.got <- res
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	t     *testing.T
	room  *Room
	out   *fakeOut
	dir   *fakeDir
	clock *fakeClock
	rec   *fakeRecorder
}

// newHarness starts room "R1" created by client "a" (who still has to Join).
func newHarness(t *testing.T, passwordHash string) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		out:   newFakeOut(),
		dir:   &fakeDir{},
		clock: &fakeClock{now: t0},
		rec:   &fakeRecorder{got: make(chan engine.Result, 4)},
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := engine.NewRoom("R1", "a", passwordHash, false, t0)
	h.room = New(ctx, state, Deps{
		Out:       h.out,
		Directory: h.dir,
		Passwords: plainVerifier{},
		Words:     fixedWords{},
		Recorder:  h.rec,
		Logger:    zaptest.NewLogger(t),
		Now:       h.clock.Now,
	})
	t.Cleanup(func() {
		cancel()
		<-h.room.Done()
	})
	return h
}

func (h *harness) join(id, name string, level int) <-chan []byte {
	h.t.Helper()
	box := h.out.connect(id)
	require.NoError(h.t, h.room.Join(context.Background(), id, name, level))
	return box
}

func (h *harness) send(id string, m wire.ClientMessage) {
	h.t.Helper()
	require.NoError(h.t, h.room.Send(FromClient{ClientID: id, Msg: m}))
}

// view round-trips GetState, so everything sent before it has been handled.
func (h *harness) view() View {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := h.room.State(ctx)
	require.NoError(h.t, err)
	return v
}

// drain discards everything queued for a client so far.
func (h *harness) drain(boxes ...<-chan []byte) {
	h.t.Helper()
	h.view()
	for _, box := range boxes {
		for len(box) > 0 {
			<-box
		}
	}
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func recvFrame(t *testing.T, box <-chan []byte, within time.Duration) frame {
	t.Helper()
	select {
	case raw, ok := <-box:
		if !ok {
			t.Fatalf("outbox closed unexpectedly")
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("bad frame %s: %v", raw, err)
		}
		return f
	case <-time.After(within):
		t.Fatalf("timed out waiting for frame")
		return frame{}
	}
}

// recvEvent reads the next frame, checks its type and decodes the payload.
func recvEvent[T any](t *testing.T, box <-chan []byte, wantType string) T {
	t.Helper()
	f := recvFrame(t, box, time.Second)
	if f.Type != wantType {
		t.Fatalf("want %s frame, got %s: %s", wantType, f.Type, f.Payload)
	}
	var v T
	if err := json.Unmarshal(f.Payload, &v); err != nil {
		t.Fatalf("decode %s payload: %v", wantType, err)
	}
	return v
}

func recvNothing(t *testing.T, box <-chan []byte, within time.Duration) {
	t.Helper()
	select {
	case raw, ok := <-box:
		if !ok {
			return
		}
		t.Fatalf("expected no frame within %v, got %s", within, raw)
	case <-time.After(within):
	}
}
