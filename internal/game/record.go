package game

import (
	"sort"
	"time"
)

// Journal receives the changes worth keeping across a restart. Calls are
// made with the room locked, so implementations must hand the work off
// rather than perform I/O inline.
type Journal interface {
	SaveRoom(RoomRecord)
	SavePlayer(PlayerRecord)
	DeletePlayer(code, playerID string)
	DeleteRoom(code string)
}

type nopJournal struct{}

func (nopJournal) SaveRoom(RoomRecord)      {}
func (nopJournal) SavePlayer(PlayerRecord)  {}
func (nopJournal) DeletePlayer(_, _ string) {}
func (nopJournal) DeleteRoom(string)        {}

type RoomRecord struct {
	Code       string
	HostName   string
	HostToken  string
	CreatedAt  time.Time
	TeamAName  string
	TeamBName  string
	TeamAScore int
	TeamBScore int
}

// PlayerRecord is one player of a room. Order is the join position and Seat
// the position in the team roster (-1 when unassigned).
type PlayerRecord struct {
	ID       string  `json:"id"`
	RoomCode string  `json:"roomCode"`
	Name     string  `json:"name"`
	Team     TeamKey `json:"team,omitempty"`
	Seat     int     `json:"seat"`
	Order    int     `json:"order"`
	Points   int     `json:"points"`
}

// RoomDump is a room record together with its players.
type RoomDump struct {
	Room    RoomRecord
	Players []PlayerRecord
}

func (r *Room) roomRecordLocked() RoomRecord {
	return RoomRecord{
		Code:       r.code,
		HostName:   r.hostName,
		HostToken:  r.hostToken,
		CreatedAt:  r.createdAt,
		TeamAName:  r.teams[TeamA].Name,
		TeamBName:  r.teams[TeamB].Name,
		TeamAScore: r.teams[TeamA].Score,
		TeamBScore: r.teams[TeamB].Score,
	}
}

func (r *Room) playerRecordLocked(p *Player) PlayerRecord {
	rec := PlayerRecord{
		ID:       p.ID,
		RoomCode: r.code,
		Name:     p.Name,
		Team:     p.Team,
		Seat:     -1,
		Points:   p.Points,
	}
	for i, id := range r.joined {
		if id == p.ID {
			rec.Order = i
			break
		}
	}
	if p.Team != "" {
		for i, id := range r.teams[p.Team].Players {
			if id == p.ID {
				rec.Seat = i
				break
			}
		}
	}
	return rec
}

func (r *Room) dumpLocked() RoomDump {
	d := RoomDump{Room: r.roomRecordLocked(), Players: make([]PlayerRecord, 0, len(r.joined))}
	for _, id := range r.joined {
		d.Players = append(d.Players, r.playerRecordLocked(r.players[id]))
	}
	return d
}

// restoreRoom rebuilds a lobby from a dump. Players come back disconnected
// and the room has no host connection until Reclaim.
func restoreRoom(dump RoomDump, d deps) *Room {
	rec := dump.Room
	r := newRoom(rec.Code, "", rec.HostName, rec.HostToken, d)
	if !rec.CreatedAt.IsZero() {
		r.createdAt = rec.CreatedAt
	}
	r.teams[TeamA].Name = cleanName(rec.TeamAName, "Team A", maxTeamName)
	r.teams[TeamB].Name = cleanName(rec.TeamBName, "Team B", maxTeamName)
	r.teams[TeamA].Score = rec.TeamAScore
	r.teams[TeamB].Score = rec.TeamBScore

	players := append([]PlayerRecord{}, dump.Players...)
	sort.SliceStable(players, func(i, j int) bool { return players[i].Order < players[j].Order })
	for _, pr := range players {
		if pr.ID == "" || r.players[pr.ID] != nil {
			continue
		}
		p := &Player{ID: pr.ID, Name: cleanName(pr.Name, defaultPlayer, maxPlayerName), Points: pr.Points}
		if team, ok := ParseTeamKey(string(pr.Team)); ok {
			p.Team = team
		}
		r.players[p.ID] = p
		r.joined = append(r.joined, p.ID)
	}

	sort.SliceStable(players, func(i, j int) bool { return players[i].Seat < players[j].Seat })
	for _, pr := range players {
		p := r.players[pr.ID]
		if p == nil || p.Team == "" || pr.Seat < 0 || contains(r.teams[p.Team].Players, p.ID) {
			continue
		}
		r.teams[p.Team].Players = append(r.teams[p.Team].Players, p.ID)
	}
	// players with a team but no recorded seat go to the back of the roster
	for _, id := range r.joined {
		p := r.players[id]
		if p.Team == "" {
			continue
		}
		if !contains(r.teams[p.Team].Players, id) {
			r.teams[p.Team].Players = append(r.teams[p.Team].Players, id)
		}
	}
	return r
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
