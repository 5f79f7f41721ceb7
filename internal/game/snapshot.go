package game

import "time"

// Snapshot is the public view of a room broadcast after every change. It
// never carries connection ids; clients derive countdowns from the deadlines
// and their own clock.
type Snapshot struct {
	Code                string               `json:"code"`
	HostName            string               `json:"hostName"`
	HostConnected       bool                 `json:"hostConnected"`
	State               State                `json:"state"`
	Round               int                  `json:"round"`
	Teams               map[TeamKey]TeamView `json:"teams"`
	Players             []PlayerView         `json:"players"`
	Queue               []string             `json:"queue"`
	HotSeats            map[TeamKey]*string  `json:"hotSeats"`
	BuzzLockedUntil     int64                `json:"buzzLockedUntil"`
	CurrentBuzzPlayer   *string              `json:"currentBuzzPlayer"`
	CurrentBuzzDeadline int64                `json:"currentBuzzDeadline"`
	ServerTime          int64                `json:"serverTime"`
}

type TeamView struct {
	Name     string   `json:"name"`
	Players  []string `json:"players"`
	Score    int      `json:"score"`
	HotIndex int      `json:"hotIndex"`
}

type PlayerView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Team      *TeamKey `json:"team"`
	Connected bool     `json:"connected"`
	Points    int      `json:"points"`
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() Snapshot {
	s := Snapshot{
		Code:                r.code,
		HostName:            r.hostName,
		HostConnected:       r.hostConn != "",
		State:               r.state,
		Round:               r.round,
		Teams:               make(map[TeamKey]TeamView, len(teamKeys)),
		Players:             make([]PlayerView, 0, len(r.joined)),
		Queue:               append([]string{}, r.queue...),
		HotSeats:            make(map[TeamKey]*string, len(teamKeys)),
		BuzzLockedUntil:     unixMilli(r.buzzLockedUntil),
		CurrentBuzzPlayer:   optional(r.currentBuzz),
		CurrentBuzzDeadline: unixMilli(r.decisionDeadline),
		ServerTime:          r.clock.Now().UnixMilli(),
	}
	for _, k := range teamKeys {
		t := r.teams[k]
		s.Teams[k] = TeamView{
			Name:     t.Name,
			Players:  append([]string{}, t.Players...),
			Score:    t.Score,
			HotIndex: t.HotIndex,
		}
		s.HotSeats[k] = optional(r.hotSeats[k])
	}
	for _, id := range r.joined {
		p := r.players[id]
		v := PlayerView{ID: p.ID, Name: p.Name, Connected: p.Connected, Points: p.Points}
		if p.Team != "" {
			team := p.Team
			v.Team = &team
		}
		s.Players = append(s.Players, v)
	}
	return s
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
