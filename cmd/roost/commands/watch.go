package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roost-dev/roost/internal/filter"
	"github.com/roost-dev/roost/internal/printer"
	"github.com/roost-dev/roost/pkg/board"
)

var (
	watchKind      string
	watchAgent     string
	watchWorkspace string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail the live coordination event feed",
	Long: `Subscribe to the instance's coordination events channel and print
events as they happen. Runs until interrupted.

Events can be narrowed with --kind (glob pattern, e.g. 'task_*'),
--agent and --workspace. Redis Pub/Sub is at-most-once: events
published while the watcher is down are visible via 'roost status',
not replayed here.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchKind, "kind", "", "Only events whose kind matches this glob")
	watchCmd.Flags().StringVar(&watchAgent, "agent", "", "Only events from this agent ID")
	watchCmd.Flags().StringVar(&watchWorkspace, "workspace", "", "Only events in this workspace")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	client, err := boardClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	sub, err := client.SubscribeEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}
	defer sub.Close()

	criteria := &filter.Criteria{
		KindGlob:    watchKind,
		AgentID:     watchAgent,
		WorkspaceID: watchWorkspace,
	}

	printer.Info("Watching coordination events (Ctrl-C to stop)...\n")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if !criteria.Matches(event) {
				continue
			}
			printEvent(event)
		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			printer.Warning("subscription error: %v\n", err)
		}
	}
}

func printEvent(e *board.Event) {
	ts := time.UnixMilli(e.CreatedAtMs).Format("15:04:05")
	printer.Highlight("%s ", ts)
	fmt.Printf("%-16s", e.Kind)
	if e.AgentID != "" {
		fmt.Printf(" agent=%s", e.AgentID)
	}
	if e.WorkspaceID != "" {
		fmt.Printf(" workspace=%s", e.WorkspaceID)
	}
	fmt.Println()
}
