// cmd/grader/run.go
package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"listing-grader/internal/bootstrap"
	"listing-grader/internal/common/observability"
	"listing-grader/internal/runner"
)

type runFlags struct {
	topN       int
	topPercent float64
	maxPasses  int
	threshold  float64
	connect    int
}

func newRunCommand(root *rootOptions) *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the convergence loop and publish the artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := root.logger(cfg)

			obs := observability.New(observability.Options{
				ServiceName:    "grader",
				TracingEnabled: cfg.Tracing.Enabled,
				SampleRatio:    cfg.Tracing.SampleRatio,
			}, log)
			defer obs.Shutdown()

			services, err := bootstrap.New(cmd.Context(), cfg, log, bootstrap.Options{
				ConnectAttempts: f.connect,
				Observability:   obs,
			})
			if err != nil {
				return err
			}
			defer services.Close()

			report, err := services.Runner.Run(cmd.Context(), f.overrides(cmd))
			if err != nil {
				return err
			}
			renderReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().IntVar(&f.topN, "top-n", 0, "exemplars per category (overrides engine.top_n)")
	cmd.Flags().Float64Var(&f.topPercent, "top-percent", 0, "exemplar share per category in percent (overrides engine.top_percent)")
	cmd.Flags().IntVar(&f.maxPasses, "max-passes", 0, "maximum convergence passes")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "stability needed to stop early, in (0,1]")
	cmd.Flags().IntVar(&f.connect, "connect-attempts", 5, "backend connection attempts")
	cmd.MarkFlagsMutuallyExclusive("top-n", "top-percent")

	return cmd
}

// overrides only carries flags the user actually set.
func (f *runFlags) overrides(cmd *cobra.Command) runner.Overrides {
	var o runner.Overrides
	if cmd.Flags().Changed("top-n") {
		v := f.topN
		o.TopN = &v
	}
	if cmd.Flags().Changed("top-percent") {
		v := f.topPercent
		o.TopPercent = &v
	}
	if cmd.Flags().Changed("max-passes") {
		v := f.maxPasses
		o.MaxPasses = &v
	}
	if cmd.Flags().Changed("threshold") {
		v := f.threshold
		o.ConvergenceThreshold = &v
	}
	return o
}

func renderReport(w io.Writer, report *runner.Report) {
	res := report.Result
	summary := res.Summary

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("Run %s", res.RunID))
	t.AppendHeader(table.Row{"Pass", "Exemplars", "Best sellers", "Avg score", "Added", "Removed", "Stability", "Rules", "Failed"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	for _, p := range summary.PassResults {
		added, removed, stability := "-", "-", "-"
		if p.ExemplarChanges != nil {
			added = fmt.Sprint(p.ExemplarChanges.Added)
			removed = fmt.Sprint(p.ExemplarChanges.Removed)
		}
		if p.StabilityMetric != nil {
			stability = fmt.Sprintf("%.4f", *p.StabilityMetric)
		}
		t.AppendRow(table.Row{
			p.Pass,
			p.ExemplarStats.TotalExemplars,
			p.ExemplarStats.TotalBestSellers,
			fmt.Sprintf("%.2f", p.ExemplarStats.AverageScore),
			added,
			removed,
			stability,
			p.GradingRulesStats.TotalCategories,
			len(p.GradingRulesStats.FailedCategories),
		})
	}
	t.AppendFooter(table.Row{
		"", "", "", "", "", "Outcome", string(summary.Outcome),
		"Metric", fmt.Sprintf("%.4f", summary.ConvergenceMetric),
	})
	t.Render()

	if report.Corpus != nil {
		fmt.Fprintf(w, "corpus: %s (%d listings, %d skipped, %d best sellers)\n",
			report.Corpus.Source, len(report.Corpus.Listings), report.Corpus.Skipped, len(report.Corpus.BestSellers))
	}
	if failed := res.FailedCategories(); len(failed) > 0 {
		fmt.Fprintf(w, "failed categories: %v\n", failed)
	}
	if pub := report.Publication; pub != nil {
		fmt.Fprintf(w, "published %d artifacts (notified: %t)\n", len(pub.Artifacts), pub.Notified)
	}
}
