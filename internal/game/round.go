package game

import (
	"time"

	"go.uber.org/zap"
)

// armLocked schedules fire on the given slot, replacing whatever was armed
// there. The callback re-takes the room lock and only runs while the slot
// still holds the handle it was armed with, so a callback that lost a race
// with Stop does nothing.
func (r *Room) armLocked(slot **roomTimer, d time.Duration, fire func()) {
	r.cancelLocked(slot)
	r.timerSeq++
	seq := r.timerSeq
	rt := &roomTimer{seq: seq}
	*slot = rt
	rt.t = r.clock.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || *slot == nil || (*slot).seq != seq {
			return
		}
		*slot = nil
		fire()
	})
}

func (r *Room) cancelLocked(slot **roomTimer) {
	if *slot == nil {
		return
	}
	(*slot).t.Stop()
	*slot = nil
}

func (r *Room) cancelTimersLocked() {
	r.cancelLocked(&r.unlock)
	r.cancelLocked(&r.decision)
}

func (r *Room) clearDecisionLocked() {
	r.currentBuzz = ""
	r.decisionDeadline = time.Time{}
}

// advanceDecisionLocked makes the queue front the player awaiting a decision
// and opens a fresh decision window for them, or clears the decision when the
// queue is empty.
func (r *Room) advanceDecisionLocked() {
	r.cancelLocked(&r.decision)
	if len(r.queue) == 0 {
		r.clearDecisionLocked()
		return
	}
	front := r.queue[0]
	r.currentBuzz = front
	r.decisionDeadline = r.clock.Now().Add(r.timing.Decision)
	r.armLocked(&r.decision, r.timing.Decision, func() {
		r.decisionExpiredLocked(front)
	})
}

func (r *Room) decisionExpiredLocked(front string) {
	if len(r.queue) == 0 || r.queue[0] != front || r.currentBuzz != front {
		return
	}
	zap.L().Debug("room.decision_expired", zap.String("code", r.code), zap.String("player", front))
	r.queue = r.queue[1:]
	r.clearDecisionLocked()
	r.touchLocked()
	r.advanceDecisionLocked()
	r.broadcastLocked()
}

// removeFromQueueLocked drops id from the queue. If id was awaiting a
// decision the next entry takes over immediately.
func (r *Room) removeFromQueueLocked(id string) {
	if !r.inQueueLocked(id) {
		return
	}
	out := r.queue[:0]
	for _, q := range r.queue {
		if q != id {
			out = append(out, q)
		}
	}
	r.queue = out
	if r.currentBuzz == id {
		r.clearDecisionLocked()
		r.advanceDecisionLocked()
	}
}

func (r *Room) startRoundLocked() {
	r.cancelTimersLocked()
	for _, k := range teamKeys {
		r.hotSeats[k] = r.teams[k].pickNext(r.eligibleLocked(k))
	}
	r.queue = nil
	r.clearDecisionLocked()
	r.buzzLockedUntil = r.clock.Now().Add(r.timing.Lock)
	r.state = StateInRound
	r.round++
	r.touchLocked()

	// The lock lapses on its own; this only pushes a refresh so clients
	// re-render without polling.
	r.armLocked(&r.unlock, r.timing.Lock, r.broadcastLocked)

	zap.L().Info("room.round_started",
		zap.String("code", r.code),
		zap.Int("round", r.round),
		zap.String("hot_a", r.hotSeats[TeamA]),
		zap.String("hot_b", r.hotSeats[TeamB]),
	)
	r.broadcastLocked()
}

func (r *Room) endRoundToSummaryLocked() {
	r.cancelTimersLocked()
	r.state = StateSummary
	r.queue = nil
	r.clearDecisionLocked()
	r.touchLocked()
	r.broadcastLocked()
}

// StartGame moves a lobby into its first round. Both teams need at least one
// rostered player.
func (r *Room) StartGame(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostOnlyLocked(connID); err != nil {
		return err
	}
	if r.state != StateLobby {
		return ErrInvalidState
	}
	if len(r.teams[TeamA].Players) == 0 || len(r.teams[TeamB].Players) == 0 {
		return ErrTeamsIncomplete
	}
	r.startRoundLocked()
	return nil
}

// NextRound re-picks hot seats and reopens the lock window.
func (r *Room) NextRound(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostOnlyLocked(connID); err != nil {
		return err
	}
	if r.state == StateLobby {
		return ErrInvalidState
	}
	r.startRoundLocked()
	return nil
}

// SkipRound abandons the current round outright and starts the next one.
// Skipping a single buzz is MarkWrongOrSkip.
func (r *Room) SkipRound(connID string) error {
	return r.NextRound(connID)
}

// Buzz puts a player in the queue. While the round is locked only the two hot
// seats may buzz. Buzzing while already queued is a no-op.
func (r *Room) Buzz(connID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomNotFound
	}
	p, ok := r.players[playerID]
	if !ok || !p.Connected || p.ConnID != connID {
		return ErrBuzzRejected
	}
	if r.state != StateInRound {
		return ErrBuzzRejected
	}
	if r.clock.Now().Before(r.buzzLockedUntil) && !r.isHotSeatLocked(p.ID) {
		return ErrBuzzRejected
	}
	if r.inQueueLocked(p.ID) {
		return nil
	}

	r.queue = append(r.queue, p.ID)
	r.touchLocked()
	if len(r.queue) == 1 {
		r.advanceDecisionLocked()
	}
	r.broadcastLocked()
	return nil
}

// AwardPoint credits the player awaiting a decision and closes the round.
func (r *Room) AwardPoint(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostOnlyLocked(connID); err != nil {
		return err
	}
	pid := r.currentBuzz
	if pid == "" || len(r.queue) == 0 || r.queue[0] != pid {
		return ErrNoDecision
	}
	p, ok := r.players[pid]
	if !ok || p.Team == "" {
		return ErrNoDecision
	}
	r.teams[p.Team].Score++
	p.Points++
	r.journal.SaveRoom(r.roomRecordLocked())
	r.journal.SavePlayer(r.playerRecordLocked(p))
	zap.L().Info("room.point_awarded",
		zap.String("code", r.code),
		zap.String("player", p.ID),
		zap.String("team", string(p.Team)),
		zap.Int("score", r.teams[p.Team].Score),
	)
	r.endRoundToSummaryLocked()
	return nil
}

// MarkWrongOrSkip discards the queue front and hands the decision to the next
// player in line.
func (r *Room) MarkWrongOrSkip(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostOnlyLocked(connID); err != nil {
		return err
	}
	if len(r.queue) == 0 {
		return ErrQueueEmpty
	}
	r.queue = r.queue[1:]
	r.clearDecisionLocked()
	r.advanceDecisionLocked()
	r.touchLocked()
	r.broadcastLocked()
	return nil
}

func (r *Room) ClearScores(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.hostOnlyLocked(connID); err != nil {
		return err
	}
	for _, k := range teamKeys {
		r.teams[k].Score = 0
	}
	r.journal.SaveRoom(r.roomRecordLocked())
	for _, id := range r.joined {
		p := r.players[id]
		p.Points = 0
		r.journal.SavePlayer(r.playerRecordLocked(p))
	}
	r.touchLocked()
	r.broadcastLocked()
	return nil
}
