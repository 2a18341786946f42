package types

import (
	"encoding/json"
	"errors"
	"fmt"

	wire "github.com/DoyleJ11/typing-battle-backend/pkg/types"
)

var ErrBadJSON = errors.New("bad json")
var ErrUnknownMessage = errors.New("unknown message type")

// ClientMessage is the inbound envelope. Payload is decoded once Type is known.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ServerMessage struct {
	Type    string           `json:"type"`
	Payload wire.ServerEvent `json:"payload"`
}

// Decode parses one inbound frame into its typed payload.
func Decode(data []byte) (wire.ClientMessage, error) {
	var env ClientMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}

	switch env.Type {
	case wire.MsgGetRooms:
		return decodeAs[wire.GetRooms](env.Payload)
	case wire.MsgJoinRoom:
		return decodeAs[wire.JoinRoom](env.Payload)
	case wire.MsgRequestStartGame:
		return decodeAs[wire.RequestStartGame](env.Payload)
	case wire.MsgCharTyped:
		return decodeAs[wire.CharTyped](env.Payload)
	case wire.MsgRequestHost:
		return decodeAs[wire.RequestHost](env.Payload)
	case wire.MsgUpdateKPM:
		return decodeAs[wire.UpdateKPM](env.Payload)
	case wire.MsgChangeTeam:
		return decodeAs[wire.ChangeTeam](env.Payload)
	case wire.MsgDeleteRoom:
		return decodeAs[wire.DeleteRoom](env.Payload)
	case wire.MsgSendChatMessage:
		return decodeAs[wire.SendChatMessage](env.Payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

func decodeAs[T wire.ClientMessage](raw json.RawMessage) (wire.ClientMessage, error) {
	var m T
	if len(raw) == 0 || string(raw) == "null" {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	return m, nil
}

// Encode wraps an event in the outbound envelope.
func Encode(ev wire.ServerEvent) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: ev.EventType(), Payload: ev})
}
