package presence

import (
	"math"
	"sort"

	"github.com/roost-dev/roost/pkg/board"
)

// Leaderboard score weights. Scoring is a documented pure function of an
// agent's stats, not a tunable.
const (
	weightActions       = 1.0
	weightTasks         = 6.0
	weightLines         = 0.05
	weightCodingMinutes = 2.0
)

// LeaderboardEntry is one ranked row of the contribution leaderboard.
type LeaderboardEntry struct {
	AgentID string           `json:"agent_id"`
	Label   string           `json:"label"`
	Name    string           `json:"name"`
	Score   float64          `json:"score"`
	Stats   board.AgentStats `json:"stats"`
}

// Score computes the contribution score for a set of stats:
//
//	actions×1 + tasksCompleted×6 + linesWritten×0.05 + codingMinutes×2
//
// rounded to one decimal place.
func Score(stats board.AgentStats) float64 {
	minutes := float64(stats.ActiveMs) / float64(60_000)
	raw := float64(stats.Actions)*weightActions +
		float64(stats.TasksCompleted)*weightTasks +
		float64(stats.LinesWritten)*weightLines +
		minutes*weightCodingMinutes
	return math.Round(raw*10) / 10
}

// ComputeLeaderboard ranks all connected agents by score, descending.
// Ties keep registration order (the sort is stable). The result is
// truncated to limit entries; limit < 1 returns the full board.
func (r *Registry) ComputeLeaderboard(limit int) []LeaderboardEntry {
	agents := r.List()

	entries := make([]LeaderboardEntry, 0, len(agents))
	for _, a := range agents {
		entries = append(entries, LeaderboardEntry{
			AgentID: a.ID,
			Label:   a.Label,
			Name:    a.Name,
			Score:   Score(a.Stats),
			Stats:   a.Stats,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	if limit >= 1 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
