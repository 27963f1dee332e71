package leaderboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

var d0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var seq int

func entry(at time.Time, t core.EventType, actor, target string) core.AuditLogEntry {
	seq++
	return core.AuditLogEntry{
		ID:        fmt.Sprintf("gaud_%04d", seq),
		CreatedAt: at,
		GroupID:   "grp_test",
		ActorID:   actor,
		TargetID:  target,
		EventType: t,
	}
}

func at(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

// ranking reduces a leaderboard to what decides the order.
type ranking struct {
	Rank  int
	Actor string
	Total int
}

func rankingOf(b core.Leaderboard) []ranking {
	var res []ranking
	for _, e := range b.Entries {
		res = append(res, ranking{e.Rank, e.ActorID, e.Total})
	}
	return res
}

func TestBuild_UnbanCancelsBan(t *testing.T) {
	entries := []core.AuditLogEntry{
		entry(d0, core.EventBan, "usr_a", "usr_t1"),
		entry(d0, core.EventKick, "usr_a", "usr_t2"),
		entry(d0, core.EventBan, "usr_b", "usr_t3"),
		entry(d0.Add(time.Hour), core.EventUnban, "usr_a", "usr_t1"),
	}

	board := Build(entries, Options{Now: at(d0.Add(2 * time.Hour))})

	want := []ranking{
		{1, "usr_a", 1},
		{2, "usr_b", 1},
	}
	if diff := cmp.Diff(want, rankingOf(board)); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, core.ActionCounts{Kicks: 1}, board.Entries[0].All)
	assert.Equal(t, core.ActionCounts{Bans: 1}, board.Entries[1].All)
	assert.Equal(t, 2, board.Total)
}

func TestBuild_UnbanOnlyCancelsOwnBans(t *testing.T) {
	entries := []core.AuditLogEntry{
		entry(d0, core.EventBan, "usr_a", "usr_t"),
		entry(d0.Add(time.Minute), core.EventBan, "usr_b", "usr_t"),
		entry(d0.Add(2*time.Minute), core.EventKick, "usr_a", "usr_t"),
		entry(d0.Add(time.Hour), core.EventUnban, "usr_b", "usr_t"),
	}

	board := Build(entries, Options{Now: at(d0)})

	want := []ranking{{1, "usr_a", 2}}
	if diff := cmp.Diff(want, rankingOf(board)); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_UnbanWithoutBanIsNoop(t *testing.T) {
	entries := []core.AuditLogEntry{
		entry(d0, core.EventUnban, "usr_a", "usr_t"),
		entry(d0.Add(time.Minute), core.EventKick, "usr_b", "usr_t"),
		// unbans never cancel bans that come after them
		entry(d0.Add(2*time.Minute), core.EventUnban, "usr_b", "usr_x"),
		entry(d0.Add(3*time.Minute), core.EventBan, "usr_b", "usr_x"),
	}

	board := Build(entries, Options{Now: at(d0)})

	want := []ranking{{1, "usr_b", 2}}
	if diff := cmp.Diff(want, rankingOf(board)); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_FullyCancelledActorIsDropped(t *testing.T) {
	entries := []core.AuditLogEntry{
		entry(d0, core.EventBan, "usr_a", "usr_t"),
		entry(d0.Add(time.Hour), core.EventUnban, "usr_a", "usr_t"),
	}

	board := Build(entries, Options{Now: at(d0)})
	assert.Empty(t, board.Entries)
	assert.Zero(t, board.Total)
}

func TestBuild_AliasesMergeActors(t *testing.T) {
	aliases := AliasMap{
		"usr_alt":   "usr_main",
		"vrc_admin": "Vote Kick",
	}
	entries := []core.AuditLogEntry{
		entry(d0, core.EventKick, "vrc_admin", "usr_t1"),
		entry(d0.Add(time.Minute), core.EventBan, "usr_alt", "usr_t2"),
		entry(d0.Add(2*time.Minute), core.EventKick, "usr_main", "usr_t3"),
		// the canonical actor lifts the ban issued by its alias
		entry(d0.Add(3*time.Minute), core.EventUnban, "usr_main", "usr_t2"),
		entry(d0.Add(4*time.Minute), core.EventWarning, "usr_alt", "usr_t4"),
	}
	entries[2].ActorDisplayName = "Main"
	entries[4].ActorDisplayName = "Alt"

	board := Build(entries, Options{Aliases: aliases, Now: at(d0)})

	want := []core.LeaderboardEntry{
		{
			Rank:        1,
			ActorID:     "usr_main",
			DisplayName: "Main",
			All:         core.ActionCounts{Kicks: 1, Warnings: 1},
			Total:       2,
			Percent:     50,
		},
		{
			Rank:        2,
			ActorID:     "Vote Kick",
			DisplayName: "Vote Kick",
			All:         core.ActionCounts{Kicks: 1},
			Total:       1,
			Percent:     50,
		},
	}
	if diff := cmp.Diff(want, board.Entries, cmpopts.IgnoreFields(core.LeaderboardEntry{}, "Recent")); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	// same input, same output
	again := Build(entries, Options{Aliases: aliases, Now: at(d0)})
	if diff := cmp.Diff(board, again); diff != "" {
		t.Errorf("aggregation is not deterministic (-first +second):\n%s", diff)
	}
}

func TestBuild_StableRanking(t *testing.T) {
	var entries []core.AuditLogEntry
	for i, actor := range []string{"usr_c", "usr_a", "usr_d", "usr_b", "usr_a"} {
		entries = append(entries, entry(d0.Add(time.Duration(i)*time.Minute), core.EventKick, actor, "usr_t"))
	}

	board := Build(entries, Options{Now: at(d0)})

	want := []ranking{
		{1, "usr_a", 2},
		{2, "usr_c", 1},
		{3, "usr_d", 1},
		{4, "usr_b", 1},
	}
	if diff := cmp.Diff(want, rankingOf(board)); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_InputOrderDoesNotMatter(t *testing.T) {
	entries := []core.AuditLogEntry{
		entry(d0.Add(time.Hour), core.EventUnban, "usr_a", "usr_t"),
		entry(d0.Add(time.Minute), core.EventKick, "usr_b", "usr_t"),
		entry(d0, core.EventBan, "usr_a", "usr_t"),
	}

	board := Build(entries, Options{Now: at(d0)})

	want := []ranking{{1, "usr_b", 1}}
	if diff := cmp.Diff(want, rankingOf(board)); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_RecentWindow(t *testing.T) {
	now := d0.Add(48 * time.Hour)
	entries := []core.AuditLogEntry{
		entry(now.Add(-24*time.Hour), core.EventKick, "usr_a", "usr_t1"),
		entry(now.Add(-24*time.Hour-time.Second), core.EventBan, "usr_a", "usr_t2"),
		entry(now.Add(-time.Minute), core.EventWarning, "usr_a", "usr_t3"),
	}

	board := Build(entries, Options{Now: at(now)})
	require.Len(t, board.Entries, 1)

	e := board.Entries[0]
	assert.Equal(t, core.ActionCounts{Bans: 1, Kicks: 1, Warnings: 1}, e.All)
	assert.Equal(t, core.ActionCounts{Kicks: 1, Warnings: 1}, e.Recent)
	assert.Equal(t, e.Recent, board.Recent)
	assert.Equal(t, DefaultWindow, board.Window)

	board = Build(entries, Options{Now: at(now), Window: time.Hour})
	assert.Equal(t, core.ActionCounts{Warnings: 1}, board.Entries[0].Recent)
}

func TestBuild_IgnoresUntrackedAndActorless(t *testing.T) {
	entries := []core.AuditLogEntry{
		entry(d0, core.EventType("group.member.join"), "usr_a", "usr_t"),
		entry(d0, core.EventKick, "", "usr_t"),
		entry(d0, core.EventKick, "usr_b", "usr_t"),
	}

	board := Build(entries, Options{Now: at(d0)})

	want := []ranking{{1, "usr_b", 1}}
	if diff := cmp.Diff(want, rankingOf(board)); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_Percent(t *testing.T) {
	entries := []core.AuditLogEntry{
		entry(d0, core.EventBan, "usr_a", "usr_t1"),
		entry(d0, core.EventKick, "usr_a", "usr_t2"),
		entry(d0, core.EventWarning, "usr_a", "usr_t3"),
		entry(d0, core.EventBan, "usr_b", "usr_t4"),
		entry(d0, core.EventWarning, "usr_c", "usr_t5"),
	}

	board := Build(entries, Options{Now: at(d0), Policy: ExcludeWarnings})
	require.Len(t, board.Entries, 3)
	assert.InDelta(t, 66.67, board.Entries[0].Percent, 0.01)
	assert.InDelta(t, 33.33, board.Entries[1].Percent, 0.01)
	assert.InDelta(t, 0, board.Entries[2].Percent, 0.01)
	assert.Equal(t, string(ExcludeWarnings), board.Policy)

	board = Build(entries, Options{Now: at(d0), Policy: IncludeAll})
	assert.InDelta(t, 60, board.Entries[0].Percent, 0.01)
	assert.InDelta(t, 20, board.Entries[1].Percent, 0.01)
	assert.InDelta(t, 20, board.Entries[2].Percent, 0.01)
}

func TestBuild_PercentWithoutDenominator(t *testing.T) {
	entries := []core.AuditLogEntry{
		entry(d0, core.EventWarning, "usr_a", "usr_t"),
	}

	board := Build(entries, Options{Now: at(d0)})
	require.Len(t, board.Entries, 1)
	assert.Zero(t, board.Entries[0].Percent)

	board = Build(nil, Options{Now: at(d0)})
	assert.Empty(t, board.Entries)
	assert.Zero(t, board.Total)
}

func TestParsePercentPolicy(t *testing.T) {
	p, err := ParsePercentPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ExcludeWarnings, p)

	p, err = ParsePercentPolicy("include_all")
	require.NoError(t, err)
	assert.Equal(t, IncludeAll, p)

	_, err = ParsePercentPolicy("everything")
	assert.Error(t, err)
}

func TestAliasMap(t *testing.T) {
	m := DefaultAliases()
	assert.Equal(t, "Vote Kick", m.Canonical("vrc_admin"))
	assert.Equal(t, "usr_2e8e2b0c-df4e-499f-bbf0-ddc5f3841488", m.Canonical("usr_98139f06-9b7e-4a2c-b7b0-8459b51dddbb"))
	assert.Equal(t, "usr_other", m.Canonical("usr_other"))

	merged := m.Merge(AliasMap{"vrc_admin": "Votekick", "usr_x": "usr_y"})
	assert.Equal(t, "Votekick", merged.Canonical("vrc_admin"))
	assert.Equal(t, "usr_y", merged.Canonical("usr_x"))
	assert.Equal(t, "Vote Kick", m.Canonical("vrc_admin"))

	var empty AliasMap
	assert.Equal(t, "usr_a", empty.Canonical("usr_a"))
}
