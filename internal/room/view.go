package room

import (
	"github.com/DoyleJ11/typing-battle-backend/internal/engine"
	wire "github.com/DoyleJ11/typing-battle-backend/pkg/types"
)

const (
	hostNameEmpty   = "empty"
	hostNameUnknown = "Unknown"
)

func (r *Room) summary() Summary {
	s := Summary{
		Name:         r.name,
		PlayerCount:  len(r.state.Players),
		IsGaming:     r.state.IsGaming(),
		Private:      r.state.Private,
		LastActivity: r.state.LastActivity,
	}
	switch host, ok := r.state.Host(); {
	case s.PlayerCount == 0:
		s.HostName = hostNameEmpty
	case ok:
		s.HostName = host.Name
	default:
		s.HostName = hostNameUnknown
	}
	return s
}

func (r *Room) view() View {
	v := View{
		Summary:    r.summary(),
		HostID:     r.state.HostID,
		Lobby:      r.lobby(),
		ChatLen:    r.state.Chat.Len(),
		Membership: r.state.CheckMembership(),
	}
	if g := r.state.Game; g != nil {
		v.Words = len(g.Words)
		if g.State != nil {
			v.MatchID = g.State.ID
			v.HP = teamHP(g.State.HP)
			v.MaxHP = teamHP(g.State.MaxHP)
		}
	}
	return v
}

func (r *Room) lobby() wire.GameLobby {
	return wire.GameLobby{
		GameID:         r.name,
		Host:           r.state.HostID,
		OriginalHostID: r.state.OriginalHostID,
		HasPassword:    r.state.HasPassword(),
		Settings:       r.settings(),
		Players:        r.players(),
		Teams:          r.teams(),
	}
}

func (r *Room) gameStarting(s *engine.MatchState) wire.GameStarting {
	return wire.GameStarting{
		Settings: r.settings(),
		Words:    r.state.Game.Words,
		Players:  r.players(),
		Teams:    r.teams(),
		HP:       teamHP(s.HP),
		MaxHP:    teamHP(s.MaxHP),
	}
}

func (r *Room) chatHistory() wire.ChatHistory {
	msgs := r.state.Chat.Messages()
	out := make([]wire.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chatMessage(m))
	}
	return wire.ChatHistory{Messages: out}
}

func (r *Room) settings() wire.Settings {
	if g := r.state.Game; g != nil && g.Settings.TimeSetting > 0 {
		return wire.Settings{SpaceToggle: g.Settings.SpaceToggle, TimeSetting: g.Settings.TimeSetting}
	}
	return wire.Settings{TimeSetting: r.deps.DefaultMatchSeconds}
}

func (r *Room) players() map[string]wire.Player {
	out := make(map[string]wire.Player, len(r.state.Players))
	for id, p := range r.state.Players {
		out[id] = player(p)
	}
	return out
}

func (r *Room) teams() wire.Teams {
	t := wire.Teams{
		One: make(map[string]wire.Player, len(r.state.Teams[engine.TeamOne])),
		Two: make(map[string]wire.Player, len(r.state.Teams[engine.TeamTwo])),
	}
	for id, p := range r.state.Teams[engine.TeamOne] {
		t.One[id] = player(p)
	}
	for id, p := range r.state.Teams[engine.TeamTwo] {
		t.Two[id] = player(p)
	}
	return t
}

func player(p *engine.Player) wire.Player {
	return wire.Player{
		ID:       p.ID,
		Name:     p.Name,
		Level:    p.Level,
		Team:     int(p.Team),
		JoinTime: p.JoinTime.UnixMilli(),
	}
}

func chatMessage(m engine.ChatMessage) wire.ChatMessage {
	return wire.ChatMessage{Sender: m.Sender, Message: m.Message, Timestamp: m.At.UnixMilli()}
}

func teamHP(hp map[engine.Team]float64) wire.TeamHP {
	return wire.TeamHP{One: hp[engine.TeamOne], Two: hp[engine.TeamTwo]}
}

func matchResult(res *engine.Result) wire.MatchResult {
	return wire.MatchResult{
		Result: wire.MatchOutcome{WinnerTeam: int(res.Winner), Reason: res.Reason},
		HP:     teamHP(res.HP),
	}
}
