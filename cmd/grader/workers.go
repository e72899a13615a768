// cmd/grader/workers.go
package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"listing-grader/internal/common/config"
	"listing-grader/internal/workers/grading"
)

func newWorkersCommand(root *rootOptions) *cobra.Command {
	var export string

	cmd := &cobra.Command{
		Use:   "workers",
		Short: "List the grading job workers and their task types",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			reg := grading.Activities(cfg)
			if err := reg.Validate(); err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Task type", "Name", "Enabled", "Timeout", "Retries", "Error codes"})
			for _, a := range reg.Sorted() {
				t.AppendRow(table.Row{
					a.TaskType,
					a.DisplayName,
					config.IsWorkerEnabled(cfg, a.TaskType),
					a.Timeout,
					a.Retries,
					strings.Join(a.ErrorCodes, ", "),
				})
			}
			t.Render()

			if export != "" {
				if err := reg.Save(export); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registry written to %s\n", export)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&export, "export", "", "write the activity registry JSON to this path")
	return cmd
}
