package hub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/DoyleJ11/typing-battle-backend/internal/engine"
	"github.com/DoyleJ11/typing-battle-backend/internal/room"
	"github.com/DoyleJ11/typing-battle-backend/internal/types"
	wire "github.com/DoyleJ11/typing-battle-backend/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var ErrInvalidName = errors.New("room name is required")

const (
	MaxNameRunes = 64
	joinAttempts = 3
)

// Outbound is the connection registry as seen by the hub and its rooms.
type Outbound interface {
	room.Outbound
	SendLobbyless(frame []byte) int
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type Deps struct {
	Out       Outbound
	Passwords PasswordHasher
	Words     room.WordSampler
	Recorder  room.Recorder // optional
	Logger    *zap.Logger
	Now       func() time.Time
}

type Options struct {
	MaxPlayers          int
	IdleTimeout         time.Duration
	DefaultMatchSeconds int
}

// Hub is the directory of live rooms and the latest summary each one
// published. It never holds its lock while talking to a room.
type Hub struct {
	mu        sync.Mutex
	rooms     map[string]*room.Room
	summaries map[string]room.Summary

	deps   Deps
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, deps Deps, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = 8
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = time.Hour
	}
	return &Hub{
		rooms:     make(map[string]*room.Room),
		summaries: make(map[string]room.Summary),
		deps:      deps,
		opts:      opts,
		log:       deps.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// NormalizeName trims and NFC-normalizes a room name so visually equal names
// map to the same room.
func NormalizeName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if utf8.RuneCountInString(name) > MaxNameRunes {
		name = string([]rune(name)[:MaxNameRunes])
	}
	return name
}

// Ensure returns the room called name, creating it for creatorID if needed.
// password and private only matter on creation.
func (h *Hub) Ensure(name, creatorID, password string, private bool) (*room.Room, error) {
	name = NormalizeName(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if r := h.Get(name); r != nil {
		return r, nil
	}

	var hash string
	if password != "" {
		var err error
		if hash, err = h.deps.Passwords.Hash(password); err != nil {
			return nil, fmt.Errorf("hash room password: %w", err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if r := h.rooms[name]; r != nil {
		return r, nil
	}

	now := h.deps.Now()
	state := engine.NewRoom(name, creatorID, hash, private, now)
	r := room.New(h.ctx, state, room.Deps{
		Out:                 h.deps.Out,
		Directory:           h,
		Passwords:           h.deps.Passwords,
		Words:               h.deps.Words,
		Recorder:            h.deps.Recorder,
		Logger:              h.log,
		Now:                 h.deps.Now,
		DefaultMatchSeconds: h.opts.DefaultMatchSeconds,
	})
	h.rooms[name] = r
	h.summaries[name] = room.Summary{Name: name, HostName: "empty", Private: private, LastActivity: now}

	h.log.Info("room created",
		zap.String("room", name),
		zap.String("creator", creatorID),
		zap.Bool("private", private),
		zap.Bool("password", hash != ""))
	return r, nil
}

func (h *Hub) Get(name string) *room.Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rooms[NormalizeName(name)]
}

// Join puts clientID into the room named in msg, creating it on first use.
// A room that retires between lookup and join is replaced.
func (h *Hub) Join(ctx context.Context, clientID string, msg wire.JoinRoom) error {
	level := engine.ParseLevel(string(msg.Level))
	for range joinAttempts {
		r, err := h.Ensure(msg.RoomName, clientID, msg.Password, msg.IsPrivate)
		if err != nil {
			return err
		}
		err = r.Join(ctx, clientID, msg.PlayerName, level)
		if !errors.Is(err, room.ErrRoomClosed) {
			return err
		}
		h.drop(r)
	}
	return room.ErrRoomClosed
}

// Publish stores a room's new summary and pushes the room list to everyone
// browsing it.
func (h *Hub) Publish(r *room.Room, s room.Summary) {
	h.mu.Lock()
	if h.rooms[s.Name] != r {
		h.mu.Unlock()
		return
	}
	h.summaries[s.Name] = s
	h.mu.Unlock()

	h.BroadcastRoomList()
}

// Forget removes a room that deleted itself.
func (h *Hub) Forget(name string, r *room.Room) {
	if h.drop(r) {
		h.log.Info("room removed", zap.String("room", name))
	}
	h.BroadcastRoomList()
}

func (h *Hub) drop(r *room.Room) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	name := r.Name()
	if h.rooms[name] != r {
		return false
	}
	delete(h.rooms, name)
	delete(h.summaries, name)
	return true
}

// Available lists public rooms that still have space, sorted by name.
func (h *Hub) Available() []wire.RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]wire.RoomInfo, 0, len(h.summaries))
	for _, s := range h.summaries {
		if s.Private || s.PlayerCount >= h.opts.MaxPlayers {
			continue
		}
		out = append(out, wire.RoomInfo{
			Name:        s.Name,
			HostName:    s.HostName,
			PlayerCount: s.PlayerCount,
			MaxPlayers:  h.opts.MaxPlayers,
			IsGaming:    s.IsGaming,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (h *Hub) BroadcastRoomList() {
	frame, err := types.Encode(wire.RoomList{Rooms: h.Available()})
	if err != nil {
		h.log.Error("encode room list", zap.Error(err))
		return
	}
	h.deps.Out.SendLobbyless(frame)
}

// EvictIdle retires every empty room idle for longer than the idle timeout
// and returns how many went away.
func (h *Hub) EvictIdle(now time.Time) int {
	h.mu.Lock()
	var candidates []*room.Room
	for name, s := range h.summaries {
		if s.PlayerCount == 0 && now.Sub(s.LastActivity) > h.opts.IdleTimeout {
			candidates = append(candidates, h.rooms[name])
		}
	}
	h.mu.Unlock()

	removed := 0
	for _, r := range candidates {
		// the room makes the final call; someone may have just joined
		if !r.Retire(h.ctx, now, h.opts.IdleTimeout) {
			continue
		}
		if h.drop(r) {
			removed++
			h.log.Info("idle room evicted", zap.String("room", r.Name()))
		}
	}
	if removed > 0 {
		h.BroadcastRoomList()
	}
	return removed
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Shutdown stops every room and waits for them until ctx expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	rooms := make([]*room.Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	clear(h.rooms)
	clear(h.summaries)
	h.mu.Unlock()

	h.cancel()
	for _, r := range rooms {
		select {
		case <-r.Done():
		case <-ctx.Done():
			return fmt.Errorf("waiting for rooms: %w", ctx.Err())
		}
	}
	return nil
}
