package engine

import "time"

const (
	MaxWords         = 300
	HitDamage        = 1.0
	ReasonDisconnect = "disconnect"
	ReasonTimeout    = "timeout"
)

type Settings struct {
	SpaceToggle bool
	TimeSetting int // seconds
}

// Game lives as long as the room once two players have met. Only State is
// reset between matches.
type Game struct {
	ID       string
	Settings Settings
	Words    []string
	State    *MatchState

	lastMatchID uint64
}

type MatchState struct {
	ID        uint64
	HP        map[Team]float64
	MaxHP     map[Team]float64
	Damages   map[string]float64
	Over      bool
	StartedAt time.Time
	Duration  time.Duration
}

// Result is what is left of a MatchState after it ended.
type Result struct {
	MatchID   uint64
	Winner    Team
	Reason    string // empty when a team was shot down
	HP        map[Team]float64
	MaxHP     map[Team]float64
	StartedAt time.Time
	EndedAt   time.Time
}

// Shot is the outcome of one correct keystroke.
type Shot struct {
	Shooter *Player
	Target  Team
	HP      map[Team]float64
	Result  *Result // set when the shot ended the match
}

func NewGame(id string) *Game {
	return &Game{ID: id}
}

func (g *Game) Live() bool {
	return g.State != nil && !g.State.Over
}

func (g *Game) finish(winner Team, reason string, now time.Time) *Result {
	s := g.State
	s.Over = true
	res := &Result{
		MatchID:   s.ID,
		Winner:    winner,
		Reason:    reason,
		HP:        copyHP(s.HP),
		MaxHP:     copyHP(s.MaxHP),
		StartedAt: s.StartedAt,
		EndedAt:   now,
	}
	g.State = nil
	return res
}

// StartMatch sizes both HP pools and replaces any previous match.
//
// Each team's pool is the opponent's damage per second (team KPM / 60) times
// the match length, so a constant opponent empties it exactly at time-up.
func (r *Room) StartMatch(requester string, seconds int, spaceToggle bool, words []string, now time.Time) (*MatchState, error) {
	if requester != r.HostID {
		return nil, ErrNotHost
	}

	kpm1 := float64(r.TeamKPM(TeamOne))
	kpm2 := float64(r.TeamKPM(TeamTwo))
	if kpm1 <= 0 || kpm2 <= 0 {
		return nil, ErrEmptyTeam
	}

	dps1 := kpm1 / 60
	dps2 := kpm2 / 60
	t := float64(seconds)

	if r.Game == nil {
		r.Game = NewGame(r.Name)
	}
	g := r.Game

	damages := make(map[string]float64, len(r.Players))
	for id := range r.Players {
		damages[id] = HitDamage
	}

	g.lastMatchID++
	state := &MatchState{
		ID:        g.lastMatchID,
		HP:        map[Team]float64{TeamOne: dps2 * t, TeamTwo: dps1 * t},
		MaxHP:     map[Team]float64{TeamOne: dps2 * t, TeamTwo: dps1 * t},
		Damages:   damages,
		StartedAt: now,
		Duration:  time.Duration(seconds) * time.Second,
	}

	g.Settings = Settings{SpaceToggle: spaceToggle, TimeSetting: seconds}
	g.Words = words
	g.State = state
	r.Touch(now)
	return state, nil
}

// Hit applies one correct keystroke from shooter to the opposing team.
func (r *Room) Hit(shooter string, now time.Time) (Shot, error) {
	if !r.IsGaming() {
		return Shot{}, ErrNoLiveMatch
	}
	p, ok := r.Players[shooter]
	if !ok {
		return Shot{}, ErrPlayerNotFound
	}

	s := r.Game.State
	dmg, ok := s.Damages[shooter]
	if !ok {
		dmg = HitDamage
	}

	target := p.Team.Opponent()
	s.HP[target] -= dmg

	shot := Shot{Shooter: p, Target: target}
	if s.HP[target] <= 0 {
		s.HP[target] = 0
		shot.Result = r.Game.finish(p.Team, "", now)
		shot.HP = shot.Result.HP
		return shot, nil
	}

	shot.HP = copyHP(s.HP)
	return shot, nil
}

// Expire ends match matchID at time-up. The team holding the larger share of
// its pool wins; an exact tie has no winner.
func (r *Room) Expire(matchID uint64, now time.Time) (*Result, error) {
	if !r.IsGaming() || r.Game.State.ID != matchID {
		return nil, ErrStaleMatch
	}

	s := r.Game.State
	f1 := fraction(s.HP[TeamOne], s.MaxHP[TeamOne])
	f2 := fraction(s.HP[TeamTwo], s.MaxHP[TeamTwo])

	winner := TeamNone
	switch {
	case f1 > f2:
		winner = TeamOne
	case f2 > f1:
		winner = TeamTwo
	}
	return r.Game.finish(winner, ReasonTimeout, now), nil
}

func fraction(hp, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return hp / total
}

func copyHP(hp map[Team]float64) map[Team]float64 {
	out := make(map[Team]float64, len(hp))
	for k, v := range hp {
		out[k] = v
	}
	return out
}
