// internal/common/camunda/instrument.go
package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// JobRecorder receives per-job telemetry. observability.Observability
// implements it.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType string)
	RecordJobDuration(ctx context.Context, d time.Duration, taskType string)
}

type instrumented struct {
	next     JobHandler
	taskType string
	recorder JobRecorder
	now      func() time.Time
}

// Instrument wraps h so every handled job is counted and timed under taskType.
// A nil recorder returns h unchanged.
func Instrument(taskType string, h JobHandler, rec JobRecorder) JobHandler {
	if rec == nil {
		return h
	}
	return &instrumented{next: h, taskType: taskType, recorder: rec, now: time.Now}
}

func (i *instrumented) Handle(client worker.JobClient, job entities.Job) {
	start := i.now()
	i.next.Handle(client, job)

	ctx := context.Background()
	i.recorder.RecordJobProcessed(ctx, i.taskType)
	i.recorder.RecordJobDuration(ctx, i.now().Sub(start), i.taskType)
}
