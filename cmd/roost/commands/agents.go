package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/roost-dev/roost/pkg/board"
)

var agentsJSON bool

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agents known to the instance",
	Long: `List all agents on the instance board, in ordinal order.

Shows each agent's label, declared name, status, workspace and last-seen
age. Use --json for machine-readable output.`,
	RunE: runAgents,
}

func init() {
	agentsCmd.Flags().BoolVar(&agentsJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(agentsCmd)
}

func runAgents(cmd *cobra.Command, args []string) error {
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

	sort.Slice(agents, func(i, j int) bool {
		return agents[i].Ordinal < agents[j].Ordinal
	})

	if agentsJSON {
		data, err := json.MarshalIndent(agents, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal agents: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(agents) == 0 {
		fmt.Println("No agents found.")
		return nil
	}

	fmt.Printf("%-10s %-20s %-10s %-20s %s\n", "LABEL", "NAME", "STATUS", "WORKSPACE", "LAST SEEN")
	for _, a := range agents {
		fmt.Printf("%-10s %-20s %-10s %-20s %s\n",
			a.Label, truncate(a.Name, 20), agentStatus(a), truncate(a.WorkspaceID, 20),
			time.Since(time.UnixMilli(a.LastSeenMs)).Round(time.Second))
	}

	return nil
}

func agentStatus(a *board.Agent) string {
	if a.Stale {
		return "stale"
	}
	return a.Status
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-(max-3):]
}
