package game

import "errors"

var (
	ErrRoomNotFound    = errors.New("room_not_found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidState    = errors.New("invalid_state")
	ErrTeamsIncomplete = errors.New("teams_incomplete")
	ErrNoDecision      = errors.New("no_decision_pending")
	ErrQueueEmpty      = errors.New("queue_empty")
	ErrUnknownPlayer   = errors.New("unknown_player")
	ErrBuzzRejected    = errors.New("buzz_rejected")
	ErrNoCodeAvailable = errors.New("no_room_code_available")
	ErrBadHostToken    = errors.New("bad_host_token")
)

// visible maps the errors a caller is told about to their user-facing text.
// Anything absent here is only reported through a negative acknowledgement.
var visible = []struct {
	err error
	msg string
}{
	{ErrRoomNotFound, "Room not found."},
	{ErrTeamsIncomplete, "Need at least one player on each team."},
	{ErrNoDecision, "No player is waiting for a decision."},
	{ErrInvalidState, "That action is not available right now."},
	{ErrBadHostToken, "Invalid host token."},
	{ErrNoCodeAvailable, "No room codes are available, try again later."},
}

// Visible reports whether err should be surfaced to the caller as an error
// notification, and the message to show.
func Visible(err error) (string, bool) {
	for _, v := range visible {
		if errors.Is(err, v.err) {
			return v.msg, true
		}
	}
	return "", false
}
