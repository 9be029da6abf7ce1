package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roost-dev/roost/internal/printer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check instance connectivity and recent activity",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := boardClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx); err != nil {
		return printer.Error(
			"Redis unreachable",
			err.Error(),
			[]string{"Check that Redis is running and REDIS_URL is correct"})
	}
	printer.Success("Redis reachable\n")

	agents, err := client.ListAgents(ctx)
	if err != nil {
		return err
	}
	tasks, err := client.ListTasks(ctx)
	if err != nil {
		return err
	}
	events, err := client.RecentEvents(ctx, 1)
	if err != nil {
		return err
	}

	printer.Info("Known agents:  %d\n", len(agents))
	printer.Info("Known tasks:   %d\n", len(tasks))
	if len(events) > 0 {
		age := time.Since(time.UnixMilli(events[0].CreatedAtMs)).Round(time.Second)
		printer.Info("Last activity: %s ago (%s)\n", age, events[0].Kind)
	} else {
		printer.Info("Last activity: none recorded\n")
	}

	return nil
}
