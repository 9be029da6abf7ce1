package commands

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/roost-dev/roost/internal/instance"
	"github.com/roost-dev/roost/internal/printer"
	"github.com/roost-dev/roost/pkg/board"
)

var (
	version string
	commit  string
	date    string

	flagInstance string
	flagRedisURL string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "roost",
	Short: "Roost - realtime multi-agent coordination",
	Long: `Roost coordinates fleets of autonomous agents collaborating on shared
workspaces in real time: presence and identity tracking, versioned
operation/cursor sync, contract-net task delegation and skill-based
request routing.

The CLI observes a running instance through its Redis board.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagInstance, "instance", "",
		"Roost instance name (defaults to ROOST_INSTANCE_NAME)")
	rootCmd.PersistentFlags().StringVar(&flagRedisURL, "redis-url", "",
		"Redis URL (defaults to REDIS_URL, then the local default)")
}

// boardClient builds a board client from flags and environment.
func boardClient() (*board.Client, error) {
	instanceName := flagInstance
	if instanceName == "" {
		instanceName = os.Getenv("ROOST_INSTANCE_NAME")
	}
	if instanceName == "" {
		return nil, printer.Error(
			"No instance specified",
			"The CLI needs to know which Roost instance to observe.",
			[]string{
				"Pass --instance <name>",
				"Set the ROOST_INSTANCE_NAME environment variable",
			})
	}
	if err := instance.ValidateName(instanceName); err != nil {
		return nil, printer.Error(
			"Invalid instance name",
			err.Error(),
			[]string{"Use a lowercase alphanumeric name, hyphens allowed"})
	}

	redisURL := flagRedisURL
	if redisURL == "" {
		redisURL = os.Getenv("REDIS_URL")
	}
	if redisURL == "" {
		redisURL = instance.DefaultRedisURL()
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, printer.Error(
			"Invalid Redis URL",
			fmt.Sprintf("Could not parse %q: %v", redisURL, err),
			[]string{"Use the form redis://host:port"})
	}

	return board.NewClient(redisOpts, instanceName)
}
