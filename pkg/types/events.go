package types

// Server -> Client
// connected, roomList, gameLobby, chatHistory, gameStarting, teammateShot,
// opponentShot, hpUpdate, matchResult, newChatMessage, roomDeletionSuccess,
// roomDeletionError, error

const (
	EvtConnected           = "connected"
	EvtRoomList            = "roomList"
	EvtGameLobby           = "gameLobby"
	EvtChatHistory         = "chatHistory"
	EvtGameStarting        = "gameStarting"
	EvtTeammateShot        = "teammateShot"
	EvtOpponentShot        = "opponentShot"
	EvtHPUpdate            = "hpUpdate"
	EvtMatchResult         = "matchResult"
	EvtNewChatMessage      = "newChatMessage"
	EvtRoomDeletionSuccess = "roomDeletionSuccess"
	EvtRoomDeletionError   = "roomDeletionError"
	EvtError               = "error"
)

// ServerEvent is the closed set of payloads the server pushes.
type ServerEvent interface {
	EventType() string
	isServerEvent()
}

type Connected struct {
	ClientID string `json:"clientId"`
}

type RoomList struct {
	Rooms []RoomInfo `json:"rooms"`
}

type GameLobby struct {
	GameID         string            `json:"gameId"`
	Host           string            `json:"host"`
	OriginalHostID string            `json:"originalHostId"`
	HasPassword    bool              `json:"hasPassword"`
	Settings       Settings          `json:"settings"`
	Players        map[string]Player `json:"players"`
	Teams          Teams             `json:"teams"`
}

type ChatHistory struct {
	Messages []ChatMessage `json:"messages"`
}

type GameStarting struct {
	Settings Settings          `json:"settings"`
	Words    []string          `json:"words"`
	Players  map[string]Player `json:"players"`
	Teams    Teams             `json:"teams"`
	HP       TeamHP            `json:"hp"`
	MaxHP    TeamHP            `json:"maxHp"`
}

type TeammateShot struct {
	ShooterID string `json:"shooterId"`
}

type OpponentShot struct {
	ShooterID string `json:"shooterId"`
}

type HPUpdate struct {
	HP TeamHP `json:"hp"`
}

type MatchResult struct {
	Result MatchOutcome `json:"result"`
	HP     TeamHP       `json:"hp"`
}

type NewChatMessage ChatMessage

type RoomDeletionSuccess struct{}

type RoomDeletionError struct {
	Message string `json:"message"`
}

type Error struct {
	Message string `json:"message"`
}

func (Connected) EventType() string           { return EvtConnected }
func (RoomList) EventType() string            { return EvtRoomList }
func (GameLobby) EventType() string           { return EvtGameLobby }
func (ChatHistory) EventType() string         { return EvtChatHistory }
func (GameStarting) EventType() string        { return EvtGameStarting }
func (TeammateShot) EventType() string        { return EvtTeammateShot }
func (OpponentShot) EventType() string        { return EvtOpponentShot }
func (HPUpdate) EventType() string            { return EvtHPUpdate }
func (MatchResult) EventType() string         { return EvtMatchResult }
func (NewChatMessage) EventType() string      { return EvtNewChatMessage }
func (RoomDeletionSuccess) EventType() string { return EvtRoomDeletionSuccess }
func (RoomDeletionError) EventType() string   { return EvtRoomDeletionError }
func (Error) EventType() string               { return EvtError }

func (Connected) isServerEvent()           {}
func (RoomList) isServerEvent()            {}
func (GameLobby) isServerEvent()           {}
func (ChatHistory) isServerEvent()         {}
func (GameStarting) isServerEvent()        {}
func (TeammateShot) isServerEvent()        {}
func (OpponentShot) isServerEvent()        {}
func (HPUpdate) isServerEvent()            {}
func (MatchResult) isServerEvent()         {}
func (NewChatMessage) isServerEvent()      {}
func (RoomDeletionSuccess) isServerEvent() {}
func (RoomDeletionError) isServerEvent()   {}
func (Error) isServerEvent()               {}
