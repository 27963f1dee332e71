package leaderboard

import (
	"fmt"
	"slices"
	"time"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

const DefaultWindow = 24 * time.Hour

// PercentPolicy decides which actions count towards an actor's share.
type PercentPolicy string

const (
	// ExcludeWarnings leaves warnings out of both the actor's count and the total.
	ExcludeWarnings PercentPolicy = "exclude_warnings"

	// IncludeAll divides the actor's total by the total of all actors.
	IncludeAll PercentPolicy = "include_all"
)

func ParsePercentPolicy(s string) (PercentPolicy, error) {
	switch p := PercentPolicy(s); p {
	case ExcludeWarnings, IncludeAll:
		return p, nil
	case "":
		return ExcludeWarnings, nil
	}
	return "", fmt.Errorf("unknown percent policy %q", s)
}

type Options struct {
	Aliases AliasMap

	// Window is the trailing window of the recent counts. Defaults to DefaultWindow.
	Window time.Duration

	Policy PercentPolicy

	// Now defaults to time.Now.
	Now func() time.Time
}

type group struct {
	actor       string
	displayName string
	entries     []core.AuditLogEntry
}

// Build ranks the actors of entries by their number of moderation actions.
//
// Bans that were later lifted by an unban of the same actor for the same target are not counted.
// Ties keep the order in which the actors first appeared.
func Build(entries []core.AuditLogEntry, opts Options) core.Leaderboard {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	policy := opts.Policy
	if policy == "" {
		policy = ExcludeWarnings
	}
	generatedAt := now().UTC()
	since := generatedAt.Add(-window)

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b core.AuditLogEntry) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	var order []*group
	groups := make(map[string]*group)
	for _, e := range sorted {
		if !e.EventType.Tracked() {
			continue
		}
		actor := opts.Aliases.Canonical(e.ActorID)
		if actor == "" {
			continue
		}
		g, ok := groups[actor]

		if e.EventType == core.EventUnban {
			if ok && e.TargetID != "" {
				g.entries = slices.DeleteFunc(g.entries, func(prev core.AuditLogEntry) bool {
					return prev.EventType == core.EventBan && prev.TargetID == e.TargetID
				})
			}
			continue
		}

		if !ok {
			g = &group{actor: actor}
			groups[actor] = g
			order = append(order, g)
		}
		g.entries = append(g.entries, e)
		if e.ActorID == actor && e.ActorDisplayName != "" {
			g.displayName = e.ActorDisplayName
		}
	}

	board := core.Leaderboard{
		GeneratedAt: generatedAt,
		Window:      window,
		Policy:      string(policy),
		Entries:     make([]core.LeaderboardEntry, 0, len(order)),
	}
	for _, g := range order {
		if len(g.entries) == 0 {
			continue
		}
		entry := core.LeaderboardEntry{
			ActorID:     g.actor,
			DisplayName: g.displayName,
		}
		if entry.DisplayName == "" && !IsAccount(g.actor) {
			entry.DisplayName = g.actor
		}
		for _, e := range g.entries {
			entry.All = count(entry.All, e.EventType)
			if !e.CreatedAt.Before(since) {
				entry.Recent = count(entry.Recent, e.EventType)
			}
		}
		entry.Total = entry.All.Total()

		board.Entries = append(board.Entries, entry)
		board.All = board.All.Add(entry.All)
		board.Recent = board.Recent.Add(entry.Recent)
	}
	board.Total = board.All.Total()

	for i := range board.Entries {
		board.Entries[i].Percent = percent(board.Entries[i].All, board.All, policy)
	}

	slices.SortStableFunc(board.Entries, func(a, b core.LeaderboardEntry) int {
		return b.Total - a.Total
	})
	for i := range board.Entries {
		board.Entries[i].Rank = i + 1
	}
	return board
}

func count(c core.ActionCounts, t core.EventType) core.ActionCounts {
	switch t {
	case core.EventBan:
		c.Bans++
	case core.EventKick:
		c.Kicks++
	case core.EventWarning:
		c.Warnings++
	}
	return c
}

// percent returns the share of actor in all, in percent. It is 0 if there is nothing to share.
func percent(actor, all core.ActionCounts, policy PercentPolicy) float64 {
	num, den := actor.Total(), all.Total()
	if policy == ExcludeWarnings {
		num -= actor.Warnings
		den -= all.Warnings
	}
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}
