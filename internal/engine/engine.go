package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var ErrNotHost = errors.New("only the host can do that")
var ErrPlayerNotFound = errors.New("player not in room")
var ErrAlreadyInRoom = errors.New("player already in room")
var ErrMatchInProgress = errors.New("game already in progress")
var ErrEmptyTeam = errors.New("both teams need at least one player")
var ErrNoLiveMatch = errors.New("no match in progress")
var ErrStaleMatch = errors.New("stale match")
var ErrEmptyMessage = errors.New("empty chat message")

const (
	DefaultLevel   = 250
	MaxChatHistory = 100
	MaxChatRunes   = 500
	DefaultName    = "Player"

	MaxMatchSeconds = 3600
)

type Player struct {
	ID       string
	Name     string
	Level    int // typing speed proxy, only used to size HP pools
	Team     Team
	JoinTime time.Time
}

type Room struct {
	Name           string
	Players        map[string]*Player
	Teams          map[Team]map[string]*Player
	HostID         string
	OriginalHostID string
	PasswordHash   string // empty when the room has no password
	Private        bool
	Chat           *ChatLog
	LastActivity   time.Time
	Game           *Game
}

// Departure describes what a player leaving did to the room.
type Departure struct {
	Player    *Player
	NewHostID string  // set when the host moved to someone else
	Forfeit   *Result // set when a live match was ended by the departure
}

func NewRoom(name, creatorID, passwordHash string, private bool, now time.Time) *Room {
	return &Room{
		Name:           name,
		Players:        map[string]*Player{},
		Teams:          map[Team]map[string]*Player{TeamOne: {}, TeamTwo: {}},
		HostID:         creatorID,
		OriginalHostID: creatorID,
		PasswordHash:   passwordHash,
		Private:        private,
		Chat:           NewChatLog(MaxChatHistory),
		LastActivity:   now,
	}
}

func (r *Room) HasPassword() bool { return r.PasswordHash != "" }

// IsGaming reports whether a match is currently being fought.
func (r *Room) IsGaming() bool {
	return r.Game != nil && r.Game.Live()
}

func (r *Room) Touch(now time.Time) { r.LastActivity = now }

func (r *Room) Host() (*Player, bool) {
	p, ok := r.Players[r.HostID]
	return p, ok
}

func (r *Room) AddPlayer(id, name string, level int, now time.Time) (*Player, error) {
	if r.IsGaming() {
		return nil, ErrMatchInProgress
	}
	if _, exists := r.Players[id]; exists {
		return nil, ErrAlreadyInRoom
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	if level <= 0 {
		level = DefaultLevel
	}

	p := &Player{ID: id, Name: name, Level: level, Team: r.smallerTeam(), JoinTime: now}
	r.Players[id] = p
	r.Teams[p.Team][id] = p

	// Creator is host from construction; anyone joining a room whose host is
	// gone (empty room kept for the reaper) takes over.
	if _, ok := r.Players[r.HostID]; !ok {
		r.HostID = id
	}

	if len(r.Players) >= 2 && r.Game == nil {
		r.Game = NewGame(r.Name)
	}

	r.Touch(now)
	return p, nil
}

func (r *Room) RemovePlayer(id string, now time.Time) (Departure, error) {
	p, ok := r.Players[id]
	if !ok {
		return Departure{}, ErrPlayerNotFound
	}

	delete(r.Players, id)
	delete(r.Teams[p.Team], id)
	r.Touch(now)

	d := Departure{Player: p}

	if r.IsGaming() {
		d.Forfeit = r.Game.finish(p.Team.Opponent(), ReasonDisconnect, now)
	}

	if r.HostID == id && len(r.Players) > 0 {
		if next := longestTenured(r.Players); next != nil {
			r.HostID = next.ID
			d.NewHostID = next.ID
		}
	}

	return d, nil
}

// ChangeTeam moves target to the other team. Host only.
func (r *Room) ChangeTeam(requester, target string) error {
	if requester != r.HostID {
		return ErrNotHost
	}
	p, ok := r.Players[target]
	if !ok {
		return ErrPlayerNotFound
	}

	delete(r.Teams[p.Team], target)
	p.Team = p.Team.Opponent()
	r.Teams[p.Team][target] = p
	return nil
}

// SetLevel stores a new typing level for target. Host only. raw falls back
// to DefaultLevel when it does not parse to a positive integer.
func (r *Room) SetLevel(requester, target, raw string) (int, error) {
	if requester != r.HostID {
		return 0, ErrNotHost
	}
	p, ok := r.Players[target]
	if !ok {
		return 0, ErrPlayerNotFound
	}
	p.Level = ParseLevel(raw)
	return p.Level, nil
}

// ClaimHost makes id the host. Password checks happen before this is called.
func (r *Room) ClaimHost(id string) error {
	if _, ok := r.Players[id]; !ok {
		return ErrPlayerNotFound
	}
	r.HostID = id
	return nil
}

// Say appends a chat line from a member and returns what was stored.
func (r *Room) Say(id, text string, now time.Time) (ChatMessage, error) {
	p, ok := r.Players[id]
	if !ok {
		return ChatMessage{}, ErrPlayerNotFound
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxChatRunes {
		text = string([]rune(text)[:MaxChatRunes])
	}

	msg := ChatMessage{Sender: p.Name, Message: text, At: now}
	r.Chat.Append(msg)
	r.Touch(now)
	return msg, nil
}

// TeamKPM sums the levels of everyone on team.
func (r *Room) TeamKPM(team Team) int {
	total := 0
	for _, p := range r.Teams[team] {
		total += p.Level
	}
	return total
}

// CheckMembership verifies that the two teams partition the player set.
func (r *Room) CheckMembership() error {
	seen := 0
	for _, team := range []Team{TeamOne, TeamTwo} {
		for id, p := range r.Teams[team] {
			if r.Players[id] != p {
				return fmt.Errorf("team %d holds %q which is not a room player", team, id)
			}
			if p.Team != team {
				return fmt.Errorf("player %q is in team map %d but says team %d", id, team, p.Team)
			}
			seen++
		}
	}
	if seen != len(r.Players) {
		return fmt.Errorf("teams hold %d players, room has %d", seen, len(r.Players))
	}
	return nil
}

func (r *Room) smallerTeam() Team {
	if len(r.Teams[TeamTwo]) < len(r.Teams[TeamOne]) {
		return TeamTwo
	}
	return TeamOne
}
