package game

import (
	"encoding/json"
)

const (
	ActionEstablishConnection = "establish_connection"
	ActionUpdateClient        = "update_client"
	ActionGamesListUpdate     = "games_list_update"
	ActionCreateGame          = "create_game"
	ActionJoinGame            = "join_game"
	ActionUpdateGameSettings  = "update_game_settings"
	ActionStartGame           = "start_game"
	ActionGameStateUpdate     = "game_state_update"
	ActionPlayCard            = "play_card"
	ActionPickCard            = "pick_card"
)

const (
	StatusOk    = "Ok"
	StatusError = "Error"
)

type Request struct {
	Id       json.RawMessage `json:"id"`
	Action   string          `json:"action"`
	ClientId string          `json:"clientId"`
	GameId   string          `json:"gameId"`
	Name     *string         `json:"name"`
	Settings *SettingsPatch  `json:"settings"`
	WhiteId  []string        `json:"whiteId"`
	WinnerId string          `json:"winnerId"`
}

type Response struct {
	Status    string          `json:"status"`
	RequestId json.RawMessage `json:"requestId"`
	Action    *string         `json:"action"`
	Data      any             `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Kind      ErrorKind       `json:"kind,omitempty"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func requestId(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func encodeOk(data any, reqId json.RawMessage, action string) ([]byte, error) {
	return json.Marshal(Response{
		Status:    StatusOk,
		RequestId: requestId(reqId),
		Action:    nullable(action),
		Data:      data,
	})
}

func encodeError(err *Error, reqId json.RawMessage, action string) ([]byte, error) {
	return json.Marshal(Response{
		Status:    StatusError,
		RequestId: requestId(reqId),
		Action:    nullable(action),
		Error:     err.Message,
		Kind:      err.Kind,
	})
}
