package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/roost-dev/roost/internal/presence"
)

var leaderboardLimit int

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the contribution leaderboard",
	Long: `Rank agents on the instance board by contribution score:

  actions×1 + tasks completed×6 + lines written×0.05 + coding minutes×2

Scores are computed from the stats flushed to the board, so they cover
both connected and departed agents.`,
	RunE: runLeaderboard,
}

func init() {
	leaderboardCmd.Flags().IntVar(&leaderboardLimit, "limit", 10, "Maximum rows to show")
	rootCmd.AddCommand(leaderboardCmd)
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	client, err := boardClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	agents, err := client.ListAgents(ctx)
	if err != nil {
		return err
	}

	if len(agents) == 0 {
		fmt.Println("No agents found.")
		return nil
	}

	// The board has no registration order, so ties break by ordinal.
	sort.Slice(agents, func(i, j int) bool {
		return agents[i].Ordinal < agents[j].Ordinal
	})
	sort.SliceStable(agents, func(i, j int) bool {
		return presence.Score(agents[i].Stats) > presence.Score(agents[j].Stats)
	})

	if leaderboardLimit >= 1 && len(agents) > leaderboardLimit {
		agents = agents[:leaderboardLimit]
	}

	fmt.Printf("%-4s %-10s %-20s %8s %8s %8s %8s\n", "#", "LABEL", "NAME", "SCORE", "ACTIONS", "TASKS", "LINES")
	for i, a := range agents {
		fmt.Printf("%-4d %-10s %-20s %8.1f %8d %8d %8d\n",
			i+1, a.Label, truncate(a.Name, 20), presence.Score(a.Stats),
			a.Stats.Actions, a.Stats.TasksCompleted, a.Stats.LinesWritten)
	}

	return nil
}
