package ws

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/typing-battle-backend/internal/engine"
	"github.com/DoyleJ11/typing-battle-backend/internal/hub"
	"github.com/DoyleJ11/typing-battle-backend/internal/registry"
	"github.com/DoyleJ11/typing-battle-backend/internal/room"
	"github.com/DoyleJ11/typing-battle-backend/internal/types"
	wire "github.com/DoyleJ11/typing-battle-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const tooManyAttempts = "Too many password attempts, try again shortly"

type DispatcherOptions struct {
	ChatRate  float64 // messages per second
	ChatBurst int

	// PasswordRate limits requestHost and deleteRoom, which each cost an
	// argon2id check on the room's loop.
	PasswordRate  float64
	PasswordBurst int
}

// Dispatcher turns decoded client frames into hub and room operations.
type Dispatcher struct {
	hub  *hub.Hub
	reg  *registry.Registry
	opts DispatcherOptions
	log  *zap.Logger
}

// Session is the per-connection state the dispatcher keeps.
type Session struct {
	ID     string
	Client *registry.Client

	chat     *rate.Limiter
	password *rate.Limiter
	log      *zap.Logger
}

func NewDispatcher(h *hub.Hub, reg *registry.Registry, opts DispatcherOptions, logger *zap.Logger) *Dispatcher {
	if opts.ChatRate <= 0 {
		opts.ChatRate = 2
	}
	if opts.ChatBurst <= 0 {
		opts.ChatBurst = 5
	}
	if opts.PasswordRate <= 0 {
		opts.PasswordRate = 0.5
	}
	if opts.PasswordBurst <= 0 {
		opts.PasswordBurst = 3
	}
	return &Dispatcher{hub: h, reg: reg, opts: opts, log: logger}
}

// Open registers a new connection and greets it with its id and the current
// room list.
func (d *Dispatcher) Open() (*Session, error) {
	id := uuid.NewString()
	client, err := d.reg.Register(id)
	if err != nil {
		return nil, fmt.Errorf("register client: %w", err)
	}

	s := &Session{
		ID:       id,
		Client:   client,
		chat:     rate.NewLimiter(rate.Limit(d.opts.ChatRate), d.opts.ChatBurst),
		password: rate.NewLimiter(rate.Limit(d.opts.PasswordRate), d.opts.PasswordBurst),
		log:      d.log.With(zap.String("client", id)),
	}
	s.log.Info("client connected", zap.Int("clients", d.reg.Len()))

	d.send(s, wire.Connected{ClientID: id})
	d.send(s, wire.RoomList{Rooms: d.hub.Available()})
	return s, nil
}

// Close unregisters the session and tells its room, if any.
func (d *Dispatcher) Close(s *Session) {
	name, ok := d.reg.Unregister(s.ID)
	if !ok {
		return
	}
	s.log.Info("client disconnected", zap.String("room", name))
	if name == "" {
		return
	}
	if r := d.hub.Get(name); r != nil {
		if err := r.Send(room.Leave{ClientID: s.ID}); err != nil {
			s.log.Debug("leave not delivered", zap.Error(err))
		}
	}
}

// Dispatch handles one inbound frame. A bad frame or a panicking handler
// never takes the connection down.
func (d *Dispatcher) Dispatch(ctx context.Context, s *Session, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("dispatch panicked", zap.Any("panic", rec), zap.Stack("stack"))
		}
	}()

	msg, err := types.Decode(data)
	if err != nil {
		s.log.Warn("dropping inbound frame", zap.Error(err))
		return
	}

	switch m := msg.(type) {
	case wire.GetRooms:
		d.send(s, wire.RoomList{Rooms: d.hub.Available()})
	case wire.JoinRoom:
		d.join(ctx, s, m)
	case wire.SendChatMessage:
		if !s.chat.Allow() {
			s.log.Debug("chat rate limited")
			return
		}
		d.forward(s, m)
	case wire.RequestHost:
		if !s.password.Allow() {
			d.send(s, wire.Error{Message: tooManyAttempts})
			return
		}
		d.forward(s, m)
	case wire.DeleteRoom:
		if !s.password.Allow() {
			d.send(s, wire.RoomDeletionError{Message: tooManyAttempts})
			return
		}
		d.forward(s, m)
	case wire.RequestStartGame, wire.CharTyped, wire.UpdateKPM, wire.ChangeTeam:
		d.forward(s, m)
	default:
		s.log.Warn("unhandled message type", zap.String("type", msg.MessageType()))
	}
}

func (d *Dispatcher) join(ctx context.Context, s *Session, m wire.JoinRoom) {
	if current, in := d.reg.RoomOf(s.ID); in {
		s.log.Debug("join ignored, already in a room", zap.String("room", current))
		return
	}

	err := d.hub.Join(ctx, s.ID, m)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrMatchInProgress):
		d.send(s, wire.Error{Message: "Game already in progress"})
	case errors.Is(err, hub.ErrInvalidName):
		d.send(s, wire.Error{Message: "Room name is required"})
	default:
		s.log.Warn("join failed", zap.String("room", m.RoomName), zap.Error(err))
		d.send(s, wire.Error{Message: "Could not join room"})
	}
}

// forward hands an in-room message to the client's room. Messages from
// clients outside any room are dropped.
func (d *Dispatcher) forward(s *Session, m wire.ClientMessage) {
	name, ok := d.reg.RoomOf(s.ID)
	if !ok {
		s.log.Debug("not in a room", zap.String("type", m.MessageType()))
		return
	}
	r := d.hub.Get(name)
	if r == nil {
		return
	}
	if err := r.Send(room.FromClient{ClientID: s.ID, Msg: m}); err != nil {
		s.log.Debug("room gone", zap.String("room", name), zap.Error(err))
	}
}

func (d *Dispatcher) send(s *Session, ev wire.ServerEvent) {
	frame, err := types.Encode(ev)
	if err != nil {
		s.log.Error("encode event", zap.String("type", ev.EventType()), zap.Error(err))
		return
	}
	d.reg.Send(s.ID, frame)
}
