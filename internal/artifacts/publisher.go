// internal/artifacts/publisher.go
package artifacts

import (
	"context"
	"fmt"
	"time"

	"listing-grader/internal/common/logger"
	"listing-grader/internal/engine/convergence"
	"listing-grader/internal/models"
)

// Artifact names.
const (
	ExemplarsFile          = "exemplars.json"
	GradingRulesFile       = "grading-rules.json"
	ConvergenceSummaryFile = "convergence-summary.json"
	VocabularySummaryFile  = "vocabulary-summary.json"
	PlaybookFile           = "playbook.json"
)

// PassSnapshotFile names the intermediate exemplar snapshot for a pass.
func PassSnapshotFile(pass int) string {
	return fmt.Sprintf("passes/pass-%d-exemplars.json", pass)
}

// Publication lists what Publish wrote.
type Publication struct {
	RunID     string   `json:"runId"`
	Artifacts []string `json:"artifacts"`
	Notified  bool     `json:"notified"`
}

// Publisher writes a run's artifact bundle and then notifies.
type Publisher struct {
	writer   Writer
	notifier *Notifier
	now      func() time.Time
	logger   logger.Logger
}

func NewPublisher(w Writer, n *Notifier, log logger.Logger) *Publisher {
	return &Publisher{
		writer:   w,
		notifier: n,
		now:      time.Now,
		logger:   logger.OrNop(log).WithFields(map[string]interface{}{"component": "publisher"}),
	}
}

// SnapshotObserver writes each pass's exemplars as it completes. Pass it to
// the orchestrator with convergence.WithPassObserver.
func (p *Publisher) SnapshotObserver() convergence.PassObserver {
	return func(ctx context.Context, pass int, snapshot models.ExemplarsArtifact) error {
		return p.writer.Write(ctx, PassSnapshotFile(pass), snapshot)
	}
}

// Publish writes the final artifacts in a fixed order. A write failure stops
// the publication before any notification; a notification failure is logged
// and leaves the written artifacts in place.
func (p *Publisher) Publish(ctx context.Context, res *convergence.Result) (*Publication, error) {
	bundle := []struct {
		name  string
		value interface{}
	}{
		{ExemplarsFile, res.ExemplarsDoc},
		{GradingRulesFile, res.GradingRules},
		{ConvergenceSummaryFile, res.Summary},
		{VocabularySummaryFile, res.Vocabulary},
		{PlaybookFile, res.Playbook},
	}

	pub := &Publication{RunID: res.RunID}
	for _, item := range bundle {
		if err := p.writer.Write(ctx, item.name, item.value); err != nil {
			p.logger.Error("artifact write failed", map[string]interface{}{
				"runId":    res.RunID,
				"artifact": item.name,
				"error":    err.Error(),
			})
			return pub, err
		}
		pub.Artifacts = append(pub.Artifacts, item.name)
	}

	p.logger.Info("artifacts published", map[string]interface{}{
		"runId":     res.RunID,
		"artifacts": len(pub.Artifacts),
		"outcome":   string(res.Outcome),
	})

	if p.notifier.Enabled() {
		note := Notification{
			RunID:             res.RunID,
			Outcome:           res.Outcome,
			Passes:            res.Summary.Passes,
			ConvergenceMetric: res.Summary.ConvergenceMetric,
			Categories:        len(res.Rules),
			FailedCategories:  res.FailedCategories(),
			Artifacts:         pub.Artifacts,
			PublishedAt:       p.now().UTC(),
		}
		if err := p.notifier.Notify(ctx, note); err != nil {
			p.logger.Warn("publication notification incomplete", map[string]interface{}{
				"runId": res.RunID,
				"error": err.Error(),
			})
		} else {
			pub.Notified = true
		}
	}
	return pub, nil
}
