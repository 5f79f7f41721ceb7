package ws

import (
	"bytes"
	"encoding/json"

	"buzzin/internal/game"
)

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "player:buzz"
	Body  json.RawMessage `json:"body,omitempty"` // arbitrary JSON object
}

// frame is the outbound form of Envelope.
type frame struct {
	Event string `json:"event"`
	Body  any    `json:"body,omitempty"`
}

const EventErrorMessage = "error:message"

// ──────────────────────────── Request DTOs ────────────────────────────

type CreateRoomRequest struct {
	HostName string `json:"hostName" validate:"max=128"`
}

// RoomRequest is the body of every host event that only names a room.
type RoomRequest struct {
	Code string `json:"code" validate:"required,max=16"`
}

type SetTeamNamesRequest struct {
	Code      string  `json:"code" validate:"required,max=16"`
	TeamAName *string `json:"teamAName" validate:"omitempty,max=256"`
	TeamBName *string `json:"teamBName" validate:"omitempty,max=256"`
}

type AssignPlayerRequest struct {
	Code     string    `json:"code" validate:"required,max=16"`
	PlayerID string    `json:"playerId" validate:"required,max=64"`
	Team     TeamField `json:"team"`
}

type KickPlayerRequest struct {
	Code     string `json:"code" validate:"required,max=16"`
	PlayerID string `json:"playerId" validate:"required,max=64"`
}

type ReclaimRequest struct {
	Code      string `json:"code" validate:"required,max=16"`
	HostToken string `json:"hostToken" validate:"required,max=64"`
}

type JoinRoomRequest struct {
	Code       string `json:"code" validate:"required,max=16"`
	PlayerID   string `json:"playerId" validate:"max=64"`
	PlayerName string `json:"playerName" validate:"max=256"`
}

type BuzzRequest struct {
	Code     string `json:"code" validate:"required,max=16"`
	PlayerID string `json:"playerId" validate:"required,max=64"`
}

// TeamField is "A", "B" or null. Any other value fails to decode.
type TeamField struct {
	Key game.TeamKey
	Set bool
}

func (t *TeamField) UnmarshalJSON(b []byte) error {
	t.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		t.Key = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	k, ok := game.ParseTeamKey(s)
	if !ok {
		return ErrMalformed
	}
	t.Key = k
	return nil
}

// ──────────────────────────── Replies ────────────────────────────

// Ack is the body of every "<event>-ack" reply.
type Ack struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type CreateRoomAck struct {
	Ack
	Code      string `json:"code"`
	HostToken string `json:"hostToken"`
}

type JoinRoomAck struct {
	Ack
	Code     string `json:"code"`
	PlayerID string `json:"playerId"`
}

// MessageBody is the body of "error:message".
type MessageBody struct {
	Message string `json:"message"`
}

func okAck() Ack { return Ack{OK: true} }
