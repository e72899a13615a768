// cmd/grader/validate.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"listing-grader/internal/common/logger"
	"listing-grader/internal/corpus"
)

func newValidateCommand(root *rootOptions) *cobra.Command {
	var bestSellers string

	cmd := &cobra.Command{
		Use:   "validate <corpus.json>",
		Short: "Check a corpus file against the listing schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var log logger.Logger
			if root.debug {
				log = logger.NewStructured("debug", "console")
			}

			c, err := corpus.NewFileLoader(args[0], bestSellers, true, log).Load(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d valid listings, %d rejected, %d best sellers\n",
				len(c.Listings), c.Skipped, len(c.BestSellers))
			if len(c.Listings) == 0 {
				return fmt.Errorf("no valid listings in %s", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&bestSellers, "best-sellers", "", "best-seller list file")
	return cmd
}
