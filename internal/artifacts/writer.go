// internal/artifacts/writer.go
package artifacts

import (
	"context"
	"encoding/json"
	"errors"

	"listing-grader/internal/common/metrics"
)

// Writer persists one JSON-serializable artifact under a slash-separated name
// such as "grading-rules.json" or "passes/pass-2-exemplars.json".
type Writer interface {
	Write(ctx context.Context, name string, value interface{}) error
}

// MultiWriter fans a write out to every sink in order. All sinks are
// attempted; their failures are joined.
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(ctx context.Context, name string, value interface{}) error {
	var errs []error
	for _, w := range m.writers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write(ctx, name, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiWriter) Len() int {
	return len(m.writers)
}

func encode(value interface{}) ([]byte, error) {
	return json.MarshalIndent(value, "", "  ")
}

func record(sink string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.ArtifactWritesTotal.WithLabelValues(sink, status).Inc()
}
