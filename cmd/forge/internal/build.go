package internal

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forgepkg/forge/driver"
)

var (
	buildRelease bool
	buildVerbose bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Resolve dependencies and build the current project",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildRelease, "release", false, "build in release profile")
	buildCmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "print ninja's own command lines")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	profile := "debug"
	if buildRelease {
		profile = "release"
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	err = driver.Run(context.Background(), driver.Options{
		ProjectDir: wd,
		Profile:    profile,
		Verbose:    buildVerbose,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "forge:", err)
		os.Exit(driver.ExitCode(err))
	}
	return nil
}
