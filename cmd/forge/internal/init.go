package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Scaffold a new forge.toml in the current directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

const manifestTemplate = `[package]
name = %q
version = "0.1.0"
edition = "2020"
cxx-std = "c++20"

[dependencies]
`

func runInit(cmd *cobra.Command, args []string) error {
	name := args[0]

	manifestPath := filepath.Join(".", "forge.toml")
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("forge.toml already exists")
	}

	if err := os.WriteFile(manifestPath, []byte(fmt.Sprintf(manifestTemplate, name)), 0o644); err != nil {
		return fmt.Errorf("write forge.toml: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(".", "src"), 0o755); err != nil {
		return fmt.Errorf("create src directory: %w", err)
	}

	fmt.Printf("Initialized forge project %q\n", name)
	return nil
}
