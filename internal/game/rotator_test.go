package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func all(string) bool { return true }

func TestPickNextVisitsEachPlayerOnce(t *testing.T) {
	team := &Team{Players: []string{"a", "b", "c"}}

	var seen []string
	for range 3 {
		seen = append(seen, team.pickNext(all))
	}
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, 0, team.HotIndex, "three picks over three seats wrap the cursor")
	assert.Equal(t, "a", team.pickNext(all))
}

func TestPickNextSkipsIneligible(t *testing.T) {
	team := &Team{Players: []string{"a", "b", "c"}}
	notB := func(id string) bool { return id != "b" }

	assert.Equal(t, "a", team.pickNext(notB))
	assert.Equal(t, 1, team.HotIndex)
	assert.Equal(t, "c", team.pickNext(notB))
	assert.Equal(t, 0, team.HotIndex, "the skipped seat still advances the cursor")
	assert.Equal(t, "a", team.pickNext(notB))
}

func TestPickNextCursorAdvancesByRosterLength(t *testing.T) {
	// four seats, two eligible: two picks examine all four seats
	team := &Team{Players: []string{"a", "x", "b", "y"}, HotIndex: 1}
	eligible := func(id string) bool { return id == "a" || id == "b" }

	assert.Equal(t, "b", team.pickNext(eligible))
	assert.Equal(t, "a", team.pickNext(eligible))
	assert.Equal(t, 1, team.HotIndex)
}

func TestPickNextNoneEligible(t *testing.T) {
	team := &Team{Players: []string{"a", "b", "c"}, HotIndex: 2}
	none := func(string) bool { return false }

	assert.Equal(t, "", team.pickNext(none))
	assert.Equal(t, 2, team.HotIndex, "a fruitless full pass ends where it began")
}

func TestPickNextEmptyRoster(t *testing.T) {
	team := &Team{HotIndex: 3}
	assert.Equal(t, "", team.pickNext(all))
	assert.Equal(t, 3, team.HotIndex)
}

func TestPickNextCursorPastShrunkRoster(t *testing.T) {
	team := &Team{Players: []string{"a", "b"}, HotIndex: 5}
	assert.Equal(t, "b", team.pickNext(all))
	assert.Equal(t, 0, team.HotIndex)
}

func TestEnsureHotSeatsLiveReplacesDisconnected(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1000", map[string]TeamKey{"p1": TeamA, "p3": TeamA, "p2": TeamB}, "p1", "p2", "p3")

	snap := f.n.lastSnapshot(t)
	require.Equal(t, "p1", *snap.HotSeats[TeamA])

	f.reg.Disconnect(r.Code(), "c-p1")

	snap = f.n.lastSnapshot(t)
	require.NotNil(t, snap.HotSeats[TeamA])
	assert.Equal(t, "p3", *snap.HotSeats[TeamA])
	assert.Equal(t, "p2", *snap.HotSeats[TeamB])
}

func TestEnsureHotSeatsLiveEmptiesTeamWithNobodyEligible(t *testing.T) {
	f := newFixture(t)
	r := f.started(t, "1001", map[string]TeamKey{"p1": TeamA, "p2": TeamB}, "p1", "p2")

	require.NoError(t, r.AssignPlayer("host", "p2", ""))

	snap := f.n.lastSnapshot(t)
	assert.Nil(t, snap.HotSeats[TeamB])
	assert.Empty(t, snap.Teams[TeamB].Players)
}
