package game

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioBuzzAndAward(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1234", map[string]TeamKey{"p1": TeamA, "p2": TeamB}, "p1", "p2")
	start := f.clock.Now()

	snap := f.n.lastSnapshot(t)
	assert.Equal(t, StateInRound, snap.State)
	assert.Equal(t, "p1", *snap.HotSeats[TeamA])
	assert.Equal(t, "p2", *snap.HotSeats[TeamB])
	assert.Equal(t, start.UnixMilli()+20000, snap.BuzzLockedUntil)

	require.NoError(t, r.Buzz("c-p1", "p1"))
	snap = f.n.lastSnapshot(t)
	assert.Equal(t, []string{"p1"}, snap.Queue)
	require.NotNil(t, snap.CurrentBuzzPlayer)
	assert.Equal(t, "p1", *snap.CurrentBuzzPlayer)
	assert.Equal(t, start.UnixMilli()+ms(15*time.Second), snap.CurrentBuzzDeadline)

	require.NoError(t, r.AwardPoint("host"))
	snap = f.n.lastSnapshot(t)
	assert.Equal(t, StateSummary, snap.State)
	assert.Equal(t, 1, snap.Teams[TeamA].Score)
	assert.Equal(t, 0, snap.Teams[TeamB].Score)
	assert.Empty(t, snap.Queue)
	assert.Nil(t, snap.CurrentBuzzPlayer)
	assert.Equal(t, 1, snap.Players[0].Points)

	// nothing is left armed once the round is in summary
	assert.Equal(t, 0, f.clock.Pending())
}

func TestLockPhaseAdmitsOnlyHotSeats(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1100", map[string]TeamKey{"p1": TeamA, "p2": TeamB, "p3": TeamA}, "p1", "p2", "p3")

	before := f.n.broadcastCount()
	assert.ErrorIs(t, r.Buzz("c-p3", "p3"), ErrBuzzRejected)
	assert.Empty(t, r.Snapshot().Queue)
	assert.Equal(t, before, f.n.broadcastCount(), "a rejected buzz is silent")

	require.NoError(t, r.Buzz("c-p2", "p2"))
	assert.Equal(t, []string{"p2"}, r.Snapshot().Queue)
}

func TestBuzzAfterUnlockEnqueuesOnce(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1101", map[string]TeamKey{"p1": TeamA, "p2": TeamB, "p3": TeamA}, "p1", "p2", "p3")

	before := f.n.broadcastCount()
	f.clock.Advance(20 * time.Second)
	assert.Equal(t, before+1, f.n.broadcastCount(), "unlock pushes one refresh")

	require.NoError(t, r.Buzz("c-p3", "p3"))
	require.NoError(t, r.Buzz("c-p1", "p1"))
	require.NoError(t, r.Buzz("c-p3", "p3"))
	assert.Equal(t, []string{"p3", "p1"}, r.Snapshot().Queue)
}

func TestBuzzRejections(t *testing.T) {
	f := newFixture(t)
	r := f.withRoom(t, "1102")
	f.join(t, "p1", TeamA)
	f.join(t, "p2", TeamB)

	assert.ErrorIs(t, r.Buzz("c-p1", "p1"), ErrBuzzRejected, "lobby")

	require.NoError(t, r.StartGame("host"))
	assert.ErrorIs(t, r.Buzz("c-p1", "ghost"), ErrBuzzRejected, "unknown player")
	assert.ErrorIs(t, r.Buzz("c-p2", "p1"), ErrBuzzRejected, "someone else's connection")

	f.reg.Disconnect("1102", "c-p1")
	assert.ErrorIs(t, r.Buzz("c-p1", "p1"), ErrBuzzRejected, "disconnected")
}

func TestDecisionTimerAutoSkipsUntilEmpty(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1103", map[string]TeamKey{"p1": TeamA, "p2": TeamB, "p3": TeamA}, "p1", "p2", "p3")
	f.clock.Advance(20 * time.Second)

	require.NoError(t, r.Buzz("c-p1", "p1"))
	f.clock.Advance(5 * time.Second)
	require.NoError(t, r.Buzz("c-p2", "p2"))
	require.NoError(t, r.Buzz("c-p3", "p3"))

	f.clock.Advance(10 * time.Second)
	snap := f.n.lastSnapshot(t)
	assert.Equal(t, []string{"p2", "p3"}, snap.Queue)
	assert.Equal(t, "p2", *snap.CurrentBuzzPlayer)
	assert.Equal(t, f.clock.Now().Add(15*time.Second).UnixMilli(), snap.CurrentBuzzDeadline)

	f.clock.Advance(15 * time.Second)
	snap = f.n.lastSnapshot(t)
	assert.Equal(t, []string{"p3"}, snap.Queue)
	assert.Equal(t, "p3", *snap.CurrentBuzzPlayer)

	f.clock.Advance(15 * time.Second)
	snap = f.n.lastSnapshot(t)
	assert.Empty(t, snap.Queue)
	assert.Nil(t, snap.CurrentBuzzPlayer)
	assert.Zero(t, snap.CurrentBuzzDeadline)
	assert.Equal(t, StateInRound, snap.State)
	assert.Equal(t, 0, f.clock.Pending())
}

func TestAwardRejectedWithoutDecision(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1104", map[string]TeamKey{"p1": TeamA, "p2": TeamB}, "p1", "p2")

	err := r.AwardPoint("host")
	assert.ErrorIs(t, err, ErrNoDecision)
	_, shown := Visible(err)
	assert.True(t, shown)

	snap := r.Snapshot()
	assert.Equal(t, StateInRound, snap.State)
	assert.Zero(t, snap.Teams[TeamA].Score)
	assert.Zero(t, snap.Teams[TeamB].Score)
}

func TestAwardRequiresFrontOfQueue(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1105", map[string]TeamKey{"p1": TeamA, "p2": TeamB}, "p1", "p2")
	require.NoError(t, r.Buzz("c-p1", "p1"))

	// break the invariant by hand: the recorded decision is not the front
	r.mu.Lock()
	r.queue = []string{"p2", "p1"}
	r.mu.Unlock()

	assert.ErrorIs(t, r.AwardPoint("host"), ErrNoDecision)
	assert.Zero(t, r.Snapshot().Teams[TeamA].Score)
	assert.Equal(t, StateInRound, r.Snapshot().State)
}

func TestMarkWrongOrSkipHandsOverDecision(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1106", map[string]TeamKey{"p1": TeamA, "p2": TeamB}, "p1", "p2")
	require.NoError(t, r.Buzz("c-p1", "p1"))
	f.clock.Advance(10 * time.Second)
	require.NoError(t, r.Buzz("c-p2", "p2"))

	require.NoError(t, r.MarkWrongOrSkip("host"))
	snap := f.n.lastSnapshot(t)
	assert.Equal(t, []string{"p2"}, snap.Queue)
	assert.Equal(t, "p2", *snap.CurrentBuzzPlayer)
	assert.Equal(t, f.clock.Now().Add(15*time.Second).UnixMilli(), snap.CurrentBuzzDeadline)

	// p1's old window would have closed 5s from now; it must not touch p2
	f.clock.Advance(5 * time.Second)
	assert.Equal(t, []string{"p2"}, r.Snapshot().Queue)

	require.NoError(t, r.MarkWrongOrSkip("host"))
	assert.ErrorIs(t, r.MarkWrongOrSkip("host"), ErrQueueEmpty)
}

func TestDisconnectOfDecidingPlayerAdvancesImmediately(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1107", map[string]TeamKey{"p1": TeamA, "p2": TeamB}, "p1", "p2")
	require.NoError(t, r.Buzz("c-p1", "p1"))
	require.NoError(t, r.Buzz("c-p2", "p2"))
	f.clock.Advance(3 * time.Second)

	f.reg.Disconnect("1107", "c-p1")

	snap := f.n.lastSnapshot(t)
	assert.Equal(t, []string{"p2"}, snap.Queue)
	assert.Equal(t, "p2", *snap.CurrentBuzzPlayer)
	assert.Equal(t, f.clock.Now().Add(15*time.Second).UnixMilli(), snap.CurrentBuzzDeadline)
	assert.False(t, snap.Players[0].Connected)
}

func TestDisconnectOfQueuedPlayerKeepsDecision(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1108", map[string]TeamKey{"p1": TeamA, "p2": TeamB}, "p1", "p2")
	require.NoError(t, r.Buzz("c-p1", "p1"))
	require.NoError(t, r.Buzz("c-p2", "p2"))
	deadline := r.Snapshot().CurrentBuzzDeadline

	f.reg.Disconnect("1108", "c-p2")

	snap := r.Snapshot()
	assert.Equal(t, []string{"p1"}, snap.Queue)
	assert.Equal(t, "p1", *snap.CurrentBuzzPlayer)
	assert.Equal(t, deadline, snap.CurrentBuzzDeadline)
}

func TestNextRoundRearmsAndRotates(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1109", map[string]TeamKey{"p1": TeamA, "p2": TeamB, "p3": TeamA}, "p1", "p2", "p3")
	require.NoError(t, r.Buzz("c-p1", "p1"))
	require.NoError(t, r.AwardPoint("host"))

	f.clock.Advance(time.Minute)
	require.NoError(t, r.NextRound("host"))

	snap := f.n.lastSnapshot(t)
	assert.Equal(t, StateInRound, snap.State)
	assert.Equal(t, 2, snap.Round)
	assert.Equal(t, "p3", *snap.HotSeats[TeamA])
	assert.Equal(t, "p2", *snap.HotSeats[TeamB])
	assert.Equal(t, f.clock.Now().Add(20*time.Second).UnixMilli(), snap.BuzzLockedUntil)
	assert.Equal(t, 1, snap.Teams[TeamA].Score, "scores carry over")
}

func TestSkipRoundRestartsRound(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1110", map[string]TeamKey{"p1": TeamA, "p2": TeamB}, "p1", "p2")
	require.NoError(t, r.Buzz("c-p1", "p1"))

	require.NoError(t, r.SkipRound("host"))
	snap := r.Snapshot()
	assert.Equal(t, 2, snap.Round)
	assert.Empty(t, snap.Queue)
	assert.Nil(t, snap.CurrentBuzzPlayer)
	assert.Equal(t, StateInRound, snap.State)
}

func TestNextRoundNotFromLobby(t *testing.T) {
	f := newFixture(t)
	r := f.withRoom(t, "1111")
	assert.ErrorIs(t, r.NextRound("host"), ErrInvalidState)
	assert.ErrorIs(t, r.SkipRound("host"), ErrInvalidState)
}

func TestStartGameNeedsBothTeams(t *testing.T) {
	f := newFixture(t)
	r := f.withRoom(t, "1112")
	f.join(t, "p1", TeamA)

	err := r.StartGame("host")
	require.ErrorIs(t, err, ErrTeamsIncomplete)
	msg, shown := Visible(err)
	assert.True(t, shown)
	assert.Equal(t, "Need at least one player on each team.", msg)
	assert.Equal(t, StateLobby, r.Snapshot().State)

	f.join(t, "p2", TeamB)
	require.NoError(t, r.StartGame("host"))
	assert.ErrorIs(t, r.StartGame("host"), ErrInvalidState)
}

func TestHostOnlyOperations(t *testing.T) {
	f := newFixture(t)
	r := f.withRoom(t, "1113")
	f.join(t, "p1", TeamA)
	f.join(t, "p2", TeamB)
	name := "Owls"

	for label, err := range map[string]error{
		"setTeamNames": r.SetTeamNames("c-p1", &name, nil),
		"assign":       r.AssignPlayer("c-p1", "p2", TeamA),
		"startGame":    r.StartGame("c-p1"),
		"awardPoint":   r.AwardPoint("c-p1"),
		"markWrong":    r.MarkWrongOrSkip("c-p1"),
		"nextRound":    r.NextRound("c-p1"),
		"kick":         r.KickPlayer("c-p1", "p2"),
		"clearScores":  r.ClearScores("c-p1"),
	} {
		assert.ErrorIs(t, err, ErrUnauthorized, label)
		_, shown := Visible(err)
		assert.False(t, shown, label)
	}
	assert.Equal(t, "Team A", r.Snapshot().Teams[TeamA].Name)
}

func TestStaleTimerCallbackIsNoop(t *testing.T) {
	clock := &leakyClock{ManualClock: NewManualClock(epoch)}
	n := newRecorder()
	f := &fixture{reg: NewRegistry(Options{Clock: clock, Notifier: n}), clock: clock.ManualClock, n: n}
	r := f.started(t, "1114", map[string]TeamKey{"p1": TeamA, "p2": TeamB}, "p1", "p2")
	require.NoError(t, r.Buzz("c-p1", "p1"))

	// the unlock and decision timers of round one cannot be stopped
	require.NoError(t, r.NextRound("host"))
	require.NoError(t, r.Buzz("c-p2", "p2"))
	before := f.n.broadcastCount()

	f.clock.Advance(15 * time.Second)
	snap := r.Snapshot()
	assert.Empty(t, snap.Queue, "round two's own decision window expired")
	assert.Equal(t, before+1, f.n.broadcastCount(), "only round two's decision timer acted")

	f.clock.Advance(5 * time.Second)
	assert.Equal(t, before+2, f.n.broadcastCount(), "round two's unlock refresh")
}

// leakyClock hands out timers whose Stop never works.
type leakyClock struct{ *ManualClock }

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (c *leakyClock) AfterFunc(d time.Duration, f func()) Timer {
	c.ManualClock.AfterFunc(d, f)
	return leakyTimer{}
}

func TestClearScores(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1115", map[string]TeamKey{"p1": TeamA, "p2": TeamB}, "p1", "p2")
	require.NoError(t, r.Buzz("c-p1", "p1"))
	require.NoError(t, r.AwardPoint("host"))

	require.NoError(t, r.ClearScores("host"))
	snap := r.Snapshot()
	assert.Zero(t, snap.Teams[TeamA].Score)
	assert.Zero(t, snap.Players[0].Points)
	assert.Equal(t, StateSummary, snap.State)
}

func TestSnapshotOmitsConnectionIDs(t *testing.T) {
	f := newFixture(t)
	f.started(t, "1116", map[string]TeamKey{"p1": TeamA, "p2": TeamB}, "p1", "p2")

	raw, err := json.Marshal(f.n.lastSnapshot(t))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "c-p1")
	assert.NotContains(t, string(raw), `"host"`)
	assert.Contains(t, string(raw), `"hostName":"Quizmaster"`)
	assert.Contains(t, string(raw), `"currentBuzzPlayer":null`)
}
