package server

import (
	"encoding/json"
	"errors"
	"log"

	"labyrinth-server/maze"
	"labyrinth-server/round"
)

// clientMessage represents the generic structure of messages from the client.
type clientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// clientVectorData carries a direction for "move" or a position for "player_position".
type clientVectorData struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

type clientPauseData struct {
	Paused *bool `json:"paused"` // Absent toggles
}

type clientHitData struct {
	AgentID string `json:"agent_id"`
}

type clientNameData struct {
	Name string `json:"name"`
}

// handleClientMessage decodes one client message and applies it to the client's session.
func (gs *GameServer) handleClientMessage(client *WebSocketClient, message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Client %s: ERROR unmarshaling incoming message: %v", client.sessionID, err)
		return
	}

	s, ok := gs.sessions.GetSession(client.sessionID)
	if !ok {
		log.Printf("Client %s: ERROR no session for client.", client.sessionID)
		return
	}

	var err error
	switch msg.Type {
	case "start":
		err = s.Start()
	case "restart":
		err = s.Restart()
	case "move":
		var data clientVectorData
		if err = decodeData(msg.Data, &data); err == nil {
			s.Move(data.X, data.Z)
		}
	case "player_position":
		var data clientVectorData
		if err = decodeData(msg.Data, &data); err == nil {
			err = s.SetPlayerPosition(maze.Point{X: data.X, Z: data.Z})
		}
	case "pause":
		var data clientPauseData
		if err = decodeData(msg.Data, &data); err == nil {
			err = s.SetPaused(data.Paused)
		}
	case "hit":
		var data clientHitData
		if err = decodeData(msg.Data, &data); err == nil {
			err = s.Hit(data.AgentID)
		}
	case "fire":
		_, err = s.Fire()
	case "set_name":
		var data clientNameData
		if err = decodeData(msg.Data, &data); err == nil {
			s.SetName(data.Name)
		}
	default:
		log.Printf("Client %s: WARNING unknown message type '%s'.", client.sessionID, msg.Type)
		s.sendMessage("Unknown message type: " + msg.Type)
		return
	}

	if err != nil {
		log.Printf("Client %s: WARNING %s rejected: %v", client.sessionID, msg.Type, err)
		s.sendMessage(userText(err))
	}
}

// decodeData unmarshals an optional data payload; a missing payload leaves v zero.
func decodeData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}

func userText(err error) string {
	switch {
	case errors.Is(err, round.ErrNotPlaying):
		return "The round is not in progress."
	case errors.Is(err, round.ErrAlreadyStarted):
		return "The round has already started. Restart to play again."
	case errors.Is(err, round.ErrUnknownAgent):
		return "That agent is no longer in the maze."
	case errors.Is(err, ErrInvalidPosition):
		return "Invalid player position."
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return "Malformed message data."
	}
	return "Request failed: " + err.Error()
}
