package game

import (
	"crypto/subtle"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Kicked struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Join registers a player or reconnects an existing one under connID. An
// empty playerID gets a generated one. The id actually used is returned.
func (r *Room) Join(connID, playerID, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrRoomNotFound
	}
	if playerID == "" {
		playerID = uuid.NewString()
	}
	name = cleanName(name, defaultPlayer, maxPlayerName)

	r.notifier.Join(r.code, connID)
	p, ok := r.players[playerID]
	if ok {
		p.Connected = true
		p.ConnID = connID
		p.Name = name
	} else {
		p = &Player{ID: playerID, Name: name, ConnID: connID, Connected: true}
		r.players[playerID] = p
		r.joined = append(r.joined, playerID)
		zap.L().Info("room.player_joined", zap.String("code", r.code), zap.String("player", playerID))
	}
	r.ensureHotSeatsLiveLocked()
	r.touchLocked()
	r.journal.SavePlayer(r.playerRecordLocked(p))
	r.broadcastLocked()
	return playerID, nil
}

func (r *Room) SetTeamNames(connID string, teamA, teamB *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostOnlyLocked(connID); err != nil {
		return err
	}
	if teamA != nil {
		r.teams[TeamA].Name = cleanName(*teamA, "Team A", maxTeamName)
	}
	if teamB != nil {
		r.teams[TeamB].Name = cleanName(*teamB, "Team B", maxTeamName)
	}
	r.touchLocked()
	r.journal.SaveRoom(r.roomRecordLocked())
	r.broadcastLocked()
	return nil
}

// AssignPlayer moves a player onto team, or off both teams when team is "".
// The player is appended to the end of the new roster.
func (r *Room) AssignPlayer(connID, playerID string, team TeamKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostOnlyLocked(connID); err != nil {
		return err
	}
	if team != "" {
		if _, ok := ParseTeamKey(string(team)); !ok {
			return ErrInvalidState
		}
	}
	p, ok := r.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	for _, k := range teamKeys {
		r.teams[k].remove(p.ID)
	}
	p.Team = team
	if team != "" {
		r.teams[team].Players = append(r.teams[team].Players, p.ID)
	}
	r.ensureHotSeatsLiveLocked()
	r.touchLocked()
	r.journal.SavePlayer(r.playerRecordLocked(p))
	r.broadcastLocked()
	return nil
}

// KickPlayer removes a player from the room entirely and tells their
// connection.
func (r *Room) KickPlayer(connID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostOnlyLocked(connID); err != nil {
		return err
	}
	p, ok := r.players[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	for _, k := range teamKeys {
		r.teams[k].remove(p.ID)
	}
	delete(r.players, p.ID)
	for i, id := range r.joined {
		if id == p.ID {
			r.joined = append(r.joined[:i], r.joined[i+1:]...)
			break
		}
	}
	r.removeFromQueueLocked(p.ID)
	r.ensureHotSeatsLiveLocked()
	r.touchLocked()

	if p.Connected {
		r.notifier.Send(p.ConnID, EventKicked, Kicked{Code: r.code, Message: "You have been removed by the host."})
	}
	// the host may be playing from the same connection
	if p.ConnID != r.hostConn {
		r.notifier.Leave(r.code, p.ConnID)
	}
	r.journal.DeletePlayer(r.code, p.ID)
	zap.L().Info("room.player_kicked", zap.String("code", r.code), zap.String("player", p.ID))
	r.broadcastLocked()
	return nil
}

// disconnectLocked marks every player bound to connID as disconnected and
// reconciles the queue and hot seats. It reports whether anything changed.
func (r *Room) disconnectLocked(connID string) bool {
	changed := false
	for _, id := range r.joined {
		p := r.players[id]
		if p.ConnID != connID || !p.Connected {
			continue
		}
		p.Connected = false
		r.removeFromQueueLocked(p.ID)
		changed = true
	}
	if !changed {
		return false
	}
	r.ensureHotSeatsLiveLocked()
	r.touchLocked()
	r.broadcastLocked()
	return true
}

// Touch refreshes the idle timer without broadcasting.
func (r *Room) Touch() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	r.touchLocked()
	return nil
}

// Reclaim hands hostship to connID when token matches the room's host token.
// Rooms restored from a store have no host until this succeeds.
func (r *Room) Reclaim(connID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	if r.hostToken == "" || subtle.ConstantTimeCompare([]byte(r.hostToken), []byte(token)) != 1 {
		return ErrBadHostToken
	}
	r.hostConn = connID
	r.notifier.Join(r.code, connID)
	r.touchLocked()
	zap.L().Info("room.host_reclaimed", zap.String("code", r.code))
	r.broadcastLocked()
	return nil
}
