package game

// pickNext walks the roster from the rotation cursor and returns the first id
// accepted by eligible. The cursor moves one seat for every candidate looked
// at, skipped ones included, so a full unsuccessful pass leaves it where it
// started. Nothing but the cursor is modified. An empty roster returns ""
// without touching the cursor.
func (t *Team) pickNext(eligible func(id string) bool) string {
	n := len(t.Players)
	if n == 0 {
		return ""
	}
	for range n {
		id := t.Players[t.HotIndex%n]
		t.HotIndex = (t.HotIndex + 1) % n
		if eligible(id) {
			return id
		}
	}
	return ""
}

func (r *Room) eligibleLocked(team TeamKey) func(string) bool {
	return func(id string) bool {
		p, ok := r.players[id]
		return ok && p.Connected && p.Team == team
	}
}

// ensureHotSeatsLiveLocked replaces any hot seat that is empty, disconnected
// or no longer on its team.
func (r *Room) ensureHotSeatsLiveLocked() {
	for _, k := range teamKeys {
		eligible := r.eligibleLocked(k)
		if id := r.hotSeats[k]; id != "" && eligible(id) {
			continue
		}
		r.hotSeats[k] = r.teams[k].pickNext(eligible)
	}
}
