// Package cli implements the arm command line: reads against the models of a
// project file, printed as JSON.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/armapper/arm/config"
	"github.com/spf13/cobra"
)

// Version is injected during build
var Version = "dev"

type options struct {
	configPath string
	logOutput  io.Writer
}

// NewRootCommand returns the arm command with every subcommand attached
func NewRootCommand() *cobra.Command {
	opts := &options{logOutput: os.Stderr}

	rootCmd := &cobra.Command{
		Use:   "arm",
		Short: "arm reads records of the models declared in a project file",
		Long: `arm loads a project file (arm.yaml by default, or ARM_CONFIG) declaring
adapters and models, and prints the matching records as JSON.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to the project file")

	rootCmd.AddCommand(
		newFindCommand(opts),
		newGetCommand(opts),
		newCountCommand(opts),
		newSQLCommand(opts),
		newModelsCommand(opts),
	)
	return rootCmd
}

// Execute runs the arm command and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) project() (*config.Project, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	return cfg.Build(o.logOutput)
}
