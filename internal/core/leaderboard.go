package core

import "time"

// ActionCounts counts the tracked, non-reversing moderation actions.
type ActionCounts struct {
	Bans     int `json:"bans"`
	Kicks    int `json:"kicks"`
	Warnings int `json:"warnings"`
}

// Total is the sum of all counted actions.
func (c ActionCounts) Total() int {
	return c.Bans + c.Kicks + c.Warnings
}

// Add returns the element-wise sum of c and o.
func (c ActionCounts) Add(o ActionCounts) ActionCounts {
	return ActionCounts{
		Bans:     c.Bans + o.Bans,
		Kicks:    c.Kicks + o.Kicks,
		Warnings: c.Warnings + o.Warnings,
	}
}

// LeaderboardEntry is the derived statistic of a single canonical actor.
type LeaderboardEntry struct {
	// Rank is 1-based.
	Rank int `json:"rank"`

	// ActorID is the canonical actor identifier (or a label for system actors).
	ActorID     string `json:"actor_id"`
	DisplayName string `json:"display_name,omitempty"`

	// All counts over the full history, Recent over the trailing window.
	All    ActionCounts `json:"all"`
	Recent ActionCounts `json:"recent"`

	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// Leaderboard is a ranked view over a window of audit log entries. It is never persisted.
type Leaderboard struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Window      time.Duration `json:"window"`
	Policy      string        `json:"percent_policy"`

	Entries []LeaderboardEntry `json:"entries"`

	// All and Recent are the sums over every entry.
	All    ActionCounts `json:"all"`
	Recent ActionCounts `json:"recent"`
	Total  int          `json:"total"`
}
