// Package scaffold creates a starter Roost project: a commented roost.yml
// the daemon can run with unchanged.
package scaffold

import (
	"embed"
	"fmt"
	"os"

	"github.com/roost-dev/roost/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// ConfigFileName is the file Initialize writes in the current directory.
const ConfigFileName = "roost.yml"

// Initialize writes a starter roost.yml into the current directory.
// Refuses to overwrite an existing file unless force is set.
func Initialize(force bool) error {
	if _, err := os.Stat(ConfigFileName); err == nil {
		if !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", ConfigFileName)
		}
		fmt.Printf("⚠️  Overwriting existing %s...\n", ConfigFileName)
	}

	content, err := templatesFS.ReadFile("templates/roost.yml.tmpl")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if err := os.WriteFile(ConfigFileName, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ConfigFileName, err)
	}

	// The template must always produce a loadable configuration.
	if _, err := config.Load(ConfigFileName); err != nil {
		return fmt.Errorf("created %s is not valid: %w", ConfigFileName, err)
	}

	return nil
}

// PrintSuccess prints the post-init guidance.
func PrintSuccess() {
	fmt.Println("\n✅ Initialized Roost project!")
	fmt.Println("\nCreated:")
	fmt.Printf("  ✓ %s\n", ConfigFileName)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set ROOST_INSTANCE_NAME and REDIS_URL for your environment")
	fmt.Println("  2. Customize roost.yml tunables as needed")
	fmt.Println("  3. Run 'roostd' to start the coordination daemon")
}
