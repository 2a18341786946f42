package room

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/typing-battle-backend/internal/engine"
	wire "github.com/DoyleJ11/typing-battle-backend/pkg/types"
	"go.uber.org/zap"
)

var (
	ErrRoomClosed = errors.New("room closed")
	ErrClientGone = errors.New("client disconnected")
	ErrJoinFailed = errors.New("join failed")
)

type Msg interface{ isRoomMsg() }

// Join adds a client to the room. Reply gets nil or the rejection.
type Join struct {
	ClientID string
	Name     string
	Level    int
	Reply    chan error
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

// FromClient carries a decoded in-room message from a member.
type FromClient struct {
	ClientID string
	Msg      wire.ClientMessage
}

func (FromClient) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

// Retire stops the room if it is empty and has been idle longer than
// IdleAfter. Reply reports whether it stopped.
type Retire struct {
	Now       time.Time
	IdleAfter time.Duration
	Reply     chan bool
}

func (Retire) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type matchTimeout struct{ matchID uint64 }

func (matchTimeout) isRoomMsg() {}

// Outbound delivers frames to clients and tracks which room they are in.
type Outbound interface {
	Send(clientID string, frame []byte) bool
	SetRoom(clientID, room string) bool
	ClearRoom(clientID, room string)
}

// Directory is told whenever the room's public summary changes, and when the
// room deletes itself.
type Directory interface {
	Publish(r *Room, s Summary)
	Forget(name string, r *Room)
}

type PasswordVerifier interface {
	Verify(hash, password string) bool
}

type WordSampler interface {
	Sample(n int) []string
}

type Recorder interface {
	RecordMatch(ctx context.Context, room string, res engine.Result, players int) error
}

type Deps struct {
	Out       Outbound
	Directory Directory
	Passwords PasswordVerifier
	Words     WordSampler
	Recorder  Recorder // optional
	Logger    *zap.Logger
	Now       func() time.Time

	DefaultMatchSeconds int
}

// Summary is what the room list needs to know about a room.
type Summary struct {
	Name         string
	HostName     string
	PlayerCount  int
	IsGaming     bool
	Private      bool
	LastActivity time.Time
}

// View is a copy of the room state for tests and diagnostics.
type View struct {
	Summary    Summary
	HostID     string
	Lobby      wire.GameLobby
	HP         wire.TeamHP
	MaxHP      wire.TeamHP
	MatchID    uint64
	Words      int
	ChatLen    int
	Membership error
}

// Room owns one engine.Room. All state changes happen on the loop goroutine.
type Room struct {
	name   string
	inbox  chan Msg
	state  *engine.Room
	deps   Deps
	log    *zap.Logger
	timer  *time.Timer
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func New(parent context.Context, state *engine.Room, deps Deps) *Room {
	ctx, cancel := context.WithCancel(parent)
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.DefaultMatchSeconds <= 0 {
		deps.DefaultMatchSeconds = 60
	}

	r := &Room{
		name:   state.Name,
		inbox:  make(chan Msg, 64),
		state:  state,
		deps:   deps,
		log:    deps.Logger.With(zap.String("room", state.Name)),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go r.loop()
	return r
}

func (r *Room) Name() string { return r.name }

// Done is closed once the loop has exited.
func (r *Room) Done() <-chan struct{} { return r.done }

// Send posts m to the room. ErrRoomClosed once the loop has exited.
func (r *Room) Send(m Msg) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}
	select {
	case r.inbox <- m:
		return nil
	case <-r.done:
		return ErrRoomClosed
	}
}

func (r *Room) Join(ctx context.Context, clientID, name string, level int) error {
	reply := make(chan error, 1)
	if err := r.Send(Join{ClientID: clientID, Name: name, Level: level, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		select {
		case err := <-reply:
			return err
		default:
			return ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retire asks the room to stop if it is idle. A room that already stopped
// counts as retired.
func (r *Room) Retire(ctx context.Context, now time.Time, idleAfter time.Duration) bool {
	reply := make(chan bool, 1)
	if err := r.Send(Retire{Now: now, IdleAfter: idleAfter, Reply: reply}); err != nil {
		return true
	}
	select {
	case ok := <-reply:
		return ok
	case <-r.done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Room) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := r.Send(GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-r.done:
		return View{}, ErrRoomClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (r *Room) loop() {
	defer close(r.done)
	defer r.cancel()
	defer r.stopTimer()

	for {
		select {
		case <-r.ctx.Done():
			return
		case m := <-r.inbox:
			if stop := r.handle(m); stop {
				r.log.Info("room closed")
				return
			}
		}
	}
}

func (r *Room) handle(m Msg) (stop bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("room handler panicked", zap.Any("panic", rec), zap.Stack("stack"))
			if j, ok := m.(Join); ok {
				if _, in := r.state.Players[j.ClientID]; in {
					_, _ = r.state.RemovePlayer(j.ClientID, r.deps.Now())
				}
				select {
				case j.Reply <- ErrJoinFailed:
				default:
				}
			}
			stop = false
		}
	}()

	switch msg := m.(type) {
	case Join:
		r.handleJoin(msg)
	case Leave:
		r.handleLeave(msg)
	case FromClient:
		return r.handleClient(msg)
	case matchTimeout:
		r.handleTimeout(msg)
	case GetState:
		msg.Reply <- r.view()
	case Retire:
		idle := len(r.state.Players) == 0 && msg.Now.Sub(r.state.LastActivity) > msg.IdleAfter
		msg.Reply <- idle
		return idle
	case Shutdown:
		return true
	}
	return false
}

func (r *Room) armTimer(s *engine.MatchState) {
	r.stopTimer()
	id := s.ID
	r.timer = time.AfterFunc(s.Duration, func() {
		_ = r.Send(matchTimeout{matchID: id})
	})
}

func (r *Room) stopTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}
