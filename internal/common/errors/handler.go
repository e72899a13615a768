// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler turns a failed grading job into a Zeebe fail command (retry
// left) or a thrown BPMN error (no retry left, or not retryable).
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError reports err on job. It returns true when the job was failed
// for a retry and false when a BPMN error was thrown.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) bool {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	vars := errorVariables(stdErr, bpmnErr)

	retry := stdErr.Retryable && bpmnErr.Retries > 0 && job.Retries > 1
	h.logError(job, stdErr, bpmnErr, retry)

	var sendErr error
	if retry {
		sendErr = h.failJob(ctx, client, job, bpmnErr, vars)
	} else {
		sendErr = h.throwBPMNError(ctx, client, job, bpmnErr, vars)
	}
	if sendErr != nil {
		h.logger.Error("failed to report job error", map[string]interface{}{
			"jobKey": job.Key,
			"retry":  retry,
			"error":  sendErr.Error(),
		})
	}
	return retry
}

// Normalize returns the StandardError in err's chain, or wraps err as an
// internal error.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// errorVariables merges the BPMN variables with the error metadata, so a
// boundary event sees e.g. the failing category and pass.
func errorVariables(stdErr *StandardError, bpmnErr *BPMNError) map[string]interface{} {
	vars := bpmnErr.ToErrorVariables()
	for k, v := range stdErr.Metadata {
		if _, taken := vars[k]; !taken {
			vars[k] = v
		}
	}
	return vars
}

func encodeVariables(vars map[string]interface{}) (string, error) {
	data, err := json.Marshal(vars)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// failJob leaves one fewer retry than the job had, capped by the code's budget.
func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, vars map[string]interface{}) error {
	varsJSON, err := encodeVariables(vars)
	if err != nil {
		return err
	}
	retries := int(job.Retries) - 1
	if retries > bpmnErr.Retries {
		retries = bpmnErr.Retries
	}

	cmd, err := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(retries)).
		ErrorMessage(bpmnErr.Message).
		VariablesFromString(varsJSON)
	if err != nil {
		return err
	}
	_, err = cmd.Send(ctx)
	return err
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, vars map[string]interface{}) error {
	varsJSON, err := encodeVariables(vars)
	if err != nil {
		return err
	}
	cmd, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message).
		VariablesFromString(varsJSON)
	if err != nil {
		return err
	}
	_, err = cmd.Send(ctx)
	return err
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError, retry bool) {
	fields := map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"bpmnErrorCode":    bpmnErr.Code,
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retry":            retry,
		"jobRetries":       job.Retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	}
	for k, v := range stdErr.Metadata {
		fields[k] = v
	}
	h.logger.Error("Job failed", fields)
}
