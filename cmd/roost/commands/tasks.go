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

var (
	tasksJSON bool
	tasksOpen bool
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List delegated tasks",
	Long: `List all tasks on the instance board, newest first.

Use --open to show only tasks still accepting bids, and --json for
machine-readable output.`,
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().BoolVar(&tasksJSON, "json", false, "Output in JSON format")
	tasksCmd.Flags().BoolVar(&tasksOpen, "open", false, "Show only open tasks")
	rootCmd.AddCommand(tasksCmd)
}

func runTasks(cmd *cobra.Command, args []string) error {
	client, err := boardClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tasks, err := client.ListTasks(ctx)
	if err != nil {
		return err
	}

	if tasksOpen {
		open := make([]*board.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Status == board.TaskStatusOpen {
				open = append(open, t)
			}
		}
		tasks = open
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAtMs > tasks[j].CreatedAtMs
	})

	if tasksJSON {
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal tasks: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}

	fmt.Printf("%-38s %-30s %-12s %-8s %5s\n", "ID", "TITLE", "STATUS", "PRIORITY", "BIDS")
	for _, t := range tasks {
		fmt.Printf("%-38s %-30s %-12s %-8s %5d\n",
			t.ID, truncate(t.Title, 30), t.Status, t.Priority, len(t.Bids))
	}

	return nil
}
