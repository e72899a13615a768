// internal/artifacts/notifier.go
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"listing-grader/internal/common/config"
	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/common/logger"
	"listing-grader/internal/common/metrics"
	"listing-grader/internal/models"
)

// TopicPublisher is satisfied by aws.SNSClient.
type TopicPublisher interface {
	PublishJSON(ctx context.Context, topicARN, subject string, v interface{}) (string, error)
}

// EmailSender is satisfied by aws.SESClient.
type EmailSender interface {
	SendText(ctx context.Context, from string, to []string, subject, body string) (string, error)
}

// Notification announces a published artifact bundle.
type Notification struct {
	RunID             string            `json:"runId"`
	Outcome           models.RunOutcome `json:"outcome"`
	Passes            int               `json:"passes"`
	ConvergenceMetric float64           `json:"convergenceMetric"`
	Categories        int               `json:"categories"`
	FailedCategories  []string          `json:"failedCategories,omitempty"`
	Artifacts         []string          `json:"artifacts"`
	PublishedAt       time.Time         `json:"publishedAt"`
}

func (n Notification) subject() string {
	return fmt.Sprintf("Grading rules %s after %d passes (run %s)", n.Outcome, n.Passes, n.RunID)
}

func (n Notification) body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:         %s\n", n.RunID)
	fmt.Fprintf(&b, "Outcome:     %s\n", n.Outcome)
	fmt.Fprintf(&b, "Passes:      %d\n", n.Passes)
	fmt.Fprintf(&b, "Stability:   %.4f\n", n.ConvergenceMetric)
	fmt.Fprintf(&b, "Categories:  %d\n", n.Categories)
	if len(n.FailedCategories) > 0 {
		fmt.Fprintf(&b, "Failed:      %s\n", strings.Join(n.FailedCategories, ", "))
	}
	b.WriteString("\nArtifacts:\n")
	for _, a := range n.Artifacts {
		fmt.Fprintf(&b, "  - %s\n", a)
	}
	return b.String()
}

// Notifier announces publications on SNS and by SES email. Either channel may
// be absent.
type Notifier struct {
	topic    TopicPublisher
	topicARN string
	email    EmailSender
	from     string
	to       []string
	logger   logger.Logger
}

func NewNotifier(cfg config.NotificationConfig, topic TopicPublisher, email EmailSender, log logger.Logger) *Notifier {
	n := &Notifier{logger: logger.OrNop(log).WithFields(map[string]interface{}{"component": "notifier"})}
	if topic != nil && cfg.SNS.TopicARN != "" {
		n.topic = topic
		n.topicARN = cfg.SNS.TopicARN
	}
	if email != nil && cfg.SES.FromEmail != "" && len(cfg.SES.ToEmails) > 0 {
		n.email = email
		n.from = cfg.SES.FromEmail
		n.to = cfg.SES.ToEmails
	}
	return n
}

// Enabled reports whether at least one channel is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && (n.topic != nil || n.email != nil)
}

// Notify sends on every configured channel; failures are joined.
func (n *Notifier) Notify(ctx context.Context, note Notification) error {
	if !n.Enabled() {
		return nil
	}

	var errs []error
	if n.topic != nil {
		id, err := n.topic.PublishJSON(ctx, n.topicARN, note.subject(), note)
		errs = append(errs, n.result("sns", id, err))
	}
	if n.email != nil {
		id, err := n.email.SendText(ctx, n.from, n.to, note.subject(), note.body())
		errs = append(errs, n.result("ses", id, err))
	}
	return errors.Join(errs...)
}

func (n *Notifier) result(channel, id string, err error) error {
	if err != nil {
		metrics.NotificationsSentTotal.WithLabelValues(channel, "failure").Inc()
		n.logger.Error("notification failed", map[string]interface{}{
			"channel": channel,
			"error":   err.Error(),
		})
		return apperrors.NewNotificationSendFailedError(channel, err)
	}
	metrics.NotificationsSentTotal.WithLabelValues(channel, "success").Inc()
	n.logger.Info("notification sent", map[string]interface{}{
		"channel":   channel,
		"messageId": id,
	})
	return nil
}
