package types

// Views shared by several server events. Team maps are keyed "1" and "2" on
// the wire, player maps by client id.

type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Level    int    `json:"level"`
	Team     int    `json:"team"`
	JoinTime int64  `json:"joinTime"` // unix millis
}

type Teams struct {
	One map[string]Player `json:"1"`
	Two map[string]Player `json:"2"`
}

type TeamHP struct {
	One float64 `json:"1"`
	Two float64 `json:"2"`
}

type Settings struct {
	SpaceToggle bool `json:"spaceToggle"`
	TimeSetting int  `json:"timeSetting"`
}

type ChatMessage struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// RoomInfo is one row of the public room list.
type RoomInfo struct {
	Name        string `json:"name"`
	HostName    string `json:"hostName"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	IsGaming    bool   `json:"isGaming"`
}

// MatchOutcome is the result block of a matchResult event.
//
// WinnerTeam is 1 or 2. It is 0 only when the match clock runs out with both
// teams holding the same fraction of their HP; Reason is then "timeout".
// Reason is "disconnect" for a forfeit and empty when a team's HP hit zero.
type MatchOutcome struct {
	WinnerTeam int    `json:"winnerTeam"` // 0 on a timeout draw
	Reason     string `json:"reason,omitempty"`
}
