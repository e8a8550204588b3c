package internal

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "forge is a C++ package manager and Ninja build driver",
	Long:  `forge resolves forge.toml dependencies, fetches their sources, and drives a Ninja build.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It only needs to happen once, from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
