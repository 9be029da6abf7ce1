package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roost-dev/roost/internal/printer"
	"github.com/roost-dev/roost/internal/resolver"
)

var taskJSON bool

var taskCmd = &cobra.Command{
	Use:   "task <id>",
	Short: "Show one task in detail",
	Long: `Show a single task: lifecycle state, assignee, bids and result.

The ID may be a full UUID or a unique prefix of at least 6 characters.`,
	Args: cobra.ExactArgs(1),
	RunE: runTask,
}

func init() {
	taskCmd.Flags().BoolVar(&taskJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(taskCmd)
}

func runTask(cmd *cobra.Command, args []string) error {
	client, err := boardClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	taskID, err := resolver.ResolveTaskID(ctx, client, args[0])
	if err != nil {
		if ambiguous, ok := err.(*resolver.AmbiguousError); ok {
			return printer.Error(
				"Ambiguous task ID",
				resolver.FormatAmbiguousError(ambiguous),
				nil)
		}
		if resolver.IsNotFoundError(err) {
			return printer.Error(
				"Task not found",
				err.Error(),
				[]string{"Run 'roost tasks' to list known tasks"})
		}
		return err
	}

	task, err := client.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if taskJSON {
		data, err := json.MarshalIndent(task, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal task: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("%-12s %s\n", "ID:", task.ID)
	fmt.Printf("%-12s %s\n", "Title:", task.Title)
	if task.Description != "" {
		fmt.Printf("%-12s %s\n", "Description:", task.Description)
	}
	fmt.Printf("%-12s %s\n", "Status:", task.Status)
	if task.Priority != "" {
		fmt.Printf("%-12s %s\n", "Priority:", task.Priority)
	}
	if task.WorkspaceID != "" {
		fmt.Printf("%-12s %s\n", "Workspace:", task.WorkspaceID)
	}
	if task.AssignedTo != "" {
		fmt.Printf("%-12s %s\n", "Assigned:", task.AssignedTo)
	}
	if task.CompletedBy != "" {
		fmt.Printf("%-12s %s\n", "Finished by:", task.CompletedBy)
	}
	if task.Result != "" {
		fmt.Printf("%-12s %s\n", "Result:", task.Result)
	}
	fmt.Printf("%-12s %s\n", "Created:", time.UnixMilli(task.CreatedAtMs).Format(time.RFC3339))

	if len(task.Bids) > 0 {
		fmt.Printf("\nBids:\n")
		for _, b := range task.Bids {
			fmt.Printf("  %-38s %8.1f\n", b.AgentID, b.Score)
		}
	}

	return nil
}
