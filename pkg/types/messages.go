package types

import "encoding/json"

// Client -> Server
// getRooms: {}
//
// joinRoom:
//   roomName: string
//   playerName: string
//   isPrivate: boolean
//   level: number | string   (typing speed, falls back to 250)
//   password: string         (only used when the room is created)
//
// requestStartGame:
//   timeSetting: number | string (seconds)
//   spaceToggle: boolean
//
// charTyped:
//   isCorrect: boolean
//
// requestHost:    { password: string }
// updateKpm:      { playerId: string, kpm: number | string }
// changeTeam:     { playerId: string }
// deleteRoom:     { password: string }
// sendChatMessage:{ message: string }

const (
	MsgGetRooms         = "getRooms"
	MsgJoinRoom         = "joinRoom"
	MsgRequestStartGame = "requestStartGame"
	MsgCharTyped        = "charTyped"
	MsgRequestHost      = "requestHost"
	MsgUpdateKPM        = "updateKpm"
	MsgChangeTeam       = "changeTeam"
	MsgDeleteRoom       = "deleteRoom"
	MsgSendChatMessage  = "sendChatMessage"
)

// ClientMessage is the closed set of payloads a client may send.
type ClientMessage interface {
	MessageType() string
	isClientMessage()
}

type GetRooms struct{}

type JoinRoom struct {
	RoomName   string     `json:"roomName"`
	PlayerName string     `json:"playerName"`
	IsPrivate  bool       `json:"isPrivate"`
	Level      NumberText `json:"level"`
	Password   string     `json:"password"`
}

type RequestStartGame struct {
	TimeSetting NumberText `json:"timeSetting"`
	SpaceToggle bool       `json:"spaceToggle"`
}

type CharTyped struct {
	IsCorrect bool `json:"isCorrect"`
}

type RequestHost struct {
	Password string `json:"password"`
}

type UpdateKPM struct {
	PlayerID string     `json:"playerId"`
	KPM      NumberText `json:"kpm"`
}

type ChangeTeam struct {
	PlayerID string `json:"playerId"`
}

type DeleteRoom struct {
	Password string `json:"password"`
}

type SendChatMessage struct {
	Message string `json:"message"`
}

func (GetRooms) MessageType() string         { return MsgGetRooms }
func (JoinRoom) MessageType() string         { return MsgJoinRoom }
func (RequestStartGame) MessageType() string { return MsgRequestStartGame }
func (CharTyped) MessageType() string        { return MsgCharTyped }
func (RequestHost) MessageType() string      { return MsgRequestHost }
func (UpdateKPM) MessageType() string        { return MsgUpdateKPM }
func (ChangeTeam) MessageType() string       { return MsgChangeTeam }
func (DeleteRoom) MessageType() string       { return MsgDeleteRoom }
func (SendChatMessage) MessageType() string  { return MsgSendChatMessage }

func (GetRooms) isClientMessage()         {}
func (JoinRoom) isClientMessage()         {}
func (RequestStartGame) isClientMessage() {}
func (CharTyped) isClientMessage()        {}
func (RequestHost) isClientMessage()      {}
func (UpdateKPM) isClientMessage()        {}
func (ChangeTeam) isClientMessage()       {}
func (DeleteRoom) isClientMessage()       {}
func (SendChatMessage) isClientMessage()  {}

// NumberText keeps the raw text of a field that browsers send either as a
// JSON number or as a string. Parsing (and the fallback) is left to the engine.
type NumberText string

func (n *NumberText) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NumberText(s)
		return nil
	}
	if string(b) == "null" {
		*n = ""
		return nil
	}
	*n = NumberText(b)
	return nil
}
