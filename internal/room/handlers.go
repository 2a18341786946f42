package room

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/typing-battle-backend/internal/engine"
	"github.com/DoyleJ11/typing-battle-backend/internal/types"
	wire "github.com/DoyleJ11/typing-battle-backend/pkg/types"
	"go.uber.org/zap"
)

const recordTimeout = 5 * time.Second

func (r *Room) handleJoin(msg Join) {
	now := r.deps.Now()
	p, err := r.state.AddPlayer(msg.ClientID, msg.Name, msg.Level, now)
	if err != nil {
		msg.Reply <- err
		return
	}
	if !r.deps.Out.SetRoom(msg.ClientID, r.name) {
		// Connection dropped while the join was queued.
		_, _ = r.state.RemovePlayer(msg.ClientID, now)
		msg.Reply <- ErrClientGone
		return
	}
	msg.Reply <- nil

	r.log.Info("player joined",
		zap.String("client", p.ID),
		zap.String("name", p.Name),
		zap.Int("team", int(p.Team)),
		zap.Int("players", len(r.state.Players)))

	r.broadcast(r.lobby())
	r.sendTo(msg.ClientID, r.chatHistory())
	r.publish()
}

func (r *Room) handleLeave(msg Leave) {
	d, err := r.state.RemovePlayer(msg.ClientID, r.deps.Now())
	if err != nil {
		return
	}
	r.deps.Out.ClearRoom(msg.ClientID, r.name)

	r.log.Info("player left",
		zap.String("client", msg.ClientID),
		zap.String("new_host", d.NewHostID),
		zap.Int("players", len(r.state.Players)))

	if d.Forfeit != nil {
		r.stopTimer()
		r.broadcast(matchResult(d.Forfeit))
		r.record(d.Forfeit)
	}
	r.broadcast(r.lobby())
	r.publish()
}

// handleClient routes an in-room message. Returns true when the room should
// stop.
func (r *Room) handleClient(msg FromClient) bool {
	id := msg.ClientID
	switch m := msg.Msg.(type) {
	case wire.RequestStartGame:
		r.startGame(id, m)
	case wire.CharTyped:
		r.charTyped(id, m)
	case wire.RequestHost:
		r.requestHost(id, m)
	case wire.UpdateKPM:
		r.updateKPM(id, m)
	case wire.ChangeTeam:
		r.changeTeam(id, m)
	case wire.DeleteRoom:
		return r.deleteRoom(id, m)
	case wire.SendChatMessage:
		r.chat(id, m)
	default:
		r.log.Warn("unexpected message for room", zap.String("type", msg.Msg.MessageType()))
	}
	return false
}

func (r *Room) startGame(id string, m wire.RequestStartGame) {
	if id != r.state.HostID {
		return
	}

	now := r.deps.Now()
	seconds := engine.ParseSeconds(string(m.TimeSetting), r.deps.DefaultMatchSeconds)
	s, err := r.state.StartMatch(id, seconds, m.SpaceToggle, r.deps.Words.Sample(engine.MaxWords), now)
	switch {
	case errors.Is(err, engine.ErrEmptyTeam):
		r.sendTo(id, wire.Error{Message: "Both teams need at least one player"})
		return
	case err != nil:
		r.log.Debug("start rejected", zap.Error(err))
		return
	}

	r.armTimer(s)
	r.log.Info("match started",
		zap.Uint64("match", s.ID),
		zap.Int("seconds", seconds),
		zap.Float64("hp_team1", s.HP[engine.TeamOne]),
		zap.Float64("hp_team2", s.HP[engine.TeamTwo]))

	r.broadcast(r.gameStarting(s))
	r.publish()
}

func (r *Room) charTyped(id string, m wire.CharTyped) {
	if !m.IsCorrect {
		return
	}
	shot, err := r.state.Hit(id, r.deps.Now())
	if err != nil {
		return
	}

	teammate := r.encode(wire.TeammateShot{ShooterID: id})
	opponent := r.encode(wire.OpponentShot{ShooterID: id})
	for pid, p := range r.state.Players {
		switch {
		case pid == id:
		case p.Team == shot.Shooter.Team:
			r.deps.Out.Send(pid, teammate)
		default:
			r.deps.Out.Send(pid, opponent)
		}
	}

	if shot.Result != nil {
		r.stopTimer()
		r.log.Info("match won", zap.Int("winner", int(shot.Result.Winner)))
		r.broadcast(matchResult(shot.Result))
		r.record(shot.Result)
		r.publish()
		return
	}
	r.broadcast(wire.HPUpdate{HP: teamHP(shot.HP)})
}

func (r *Room) handleTimeout(msg matchTimeout) {
	res, err := r.state.Expire(msg.matchID, r.deps.Now())
	if err != nil {
		return
	}
	r.timer = nil
	r.log.Info("match timed out", zap.Uint64("match", res.MatchID), zap.Int("winner", int(res.Winner)))
	r.broadcast(matchResult(res))
	r.record(res)
	r.publish()
}

func (r *Room) requestHost(id string, m wire.RequestHost) {
	if !r.state.HasPassword() {
		r.sendTo(id, wire.Error{Message: "This room has no password"})
		return
	}
	if !r.deps.Passwords.Verify(r.state.PasswordHash, m.Password) {
		r.sendTo(id, wire.Error{Message: "Incorrect password"})
		return
	}
	if err := r.state.ClaimHost(id); err != nil {
		return
	}
	r.log.Info("host reclaimed", zap.String("client", id))
	r.broadcast(r.lobby())
	r.publish()
}

func (r *Room) updateKPM(id string, m wire.UpdateKPM) {
	if _, err := r.state.SetLevel(id, m.PlayerID, string(m.KPM)); err != nil {
		return
	}
	r.broadcast(r.lobby())
}

func (r *Room) changeTeam(id string, m wire.ChangeTeam) {
	if err := r.state.ChangeTeam(id, m.PlayerID); err != nil {
		return
	}
	r.broadcast(r.lobby())
}

func (r *Room) deleteRoom(id string, m wire.DeleteRoom) bool {
	if !r.state.HasPassword() || !r.deps.Passwords.Verify(r.state.PasswordHash, m.Password) {
		r.sendTo(id, wire.RoomDeletionError{Message: "Incorrect password"})
		return false
	}

	r.stopTimer()
	for pid := range r.state.Players {
		r.deps.Out.ClearRoom(pid, r.name)
	}
	r.sendTo(id, wire.RoomDeletionSuccess{})
	r.log.Info("room deleted", zap.String("by", id))
	r.deps.Directory.Forget(r.name, r)
	return true
}

func (r *Room) chat(id string, m wire.SendChatMessage) {
	msg, err := r.state.Say(id, m.Message, r.deps.Now())
	if err != nil {
		return
	}
	r.broadcast(wire.NewChatMessage(chatMessage(msg)))
}

// record archives a finished match off the loop goroutine.
func (r *Room) record(res *engine.Result) {
	if r.deps.Recorder == nil || res == nil {
		return
	}
	rec, name, players, log := r.deps.Recorder, r.name, len(r.state.Players), r.log
	result := *res
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := rec.RecordMatch(ctx, name, result, players); err != nil {
			log.Warn("archive match failed", zap.Error(err))
		}
	}()
}

func (r *Room) publish() {
	if r.deps.Directory != nil {
		r.deps.Directory.Publish(r, r.summary())
	}
}

func (r *Room) encode(ev wire.ServerEvent) []byte {
	frame, err := types.Encode(ev)
	if err != nil {
		r.log.Error("encode event", zap.String("type", ev.EventType()), zap.Error(err))
		return nil
	}
	return frame
}

func (r *Room) sendTo(id string, ev wire.ServerEvent) {
	if frame := r.encode(ev); frame != nil {
		r.deps.Out.Send(id, frame)
	}
}

// broadcast sends ev to every member. Slow clients miss the frame; nobody
// blocks the loop.
func (r *Room) broadcast(ev wire.ServerEvent) {
	frame := r.encode(ev)
	if frame == nil {
		return
	}
	for id := range r.state.Players {
		r.deps.Out.Send(id, frame)
	}
}
