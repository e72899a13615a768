// cmd/grader/root.go
package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"listing-grader/internal/common/config"
	"listing-grader/internal/common/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configFile string
	debug      bool
}

// Execute runs the grader CLI.
func Execute() error {
	return newRootCommand().ExecuteContext(context.Background())
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "grader",
		Short:         "Derive listing grading rules from a marketplace corpus",
		Long:          `Selects exemplar listings per category, mines their patterns and iterates until the exemplar set is stable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is ./configs/config.yaml)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "grader version %s\n", version)
		},
	})
	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newValidateCommand(opts))
	root.AddCommand(newWorkersCommand(opts))

	return root
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configFile != "" {
		return config.LoadFromFile(o.configFile)
	}
	return config.Load()
}

func (o *rootOptions) logger(cfg *config.Config) logger.Logger {
	level := cfg.Logging.Level
	if o.debug {
		level = "debug"
	}
	return logger.NewFromOptions(logger.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
		Service:     cfg.App.Name,
	})
}
