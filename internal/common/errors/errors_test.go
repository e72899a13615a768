// internal/common/errors/errors_test.go
package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCode_UnwrapsChain(t *testing.T) {
	base := NewConfigError("topN and topPercent are mutually exclusive")
	wrapped := fmt.Errorf("select exemplars: %w", base)

	assert.True(t, IsCode(wrapped, ErrCodeConfig))
	assert.False(t, IsCode(wrapped, ErrCodeEmptyCorpus))
	assert.False(t, IsCode(stderrors.New("plain"), ErrCodeConfig))
	assert.False(t, IsCode(nil, ErrCodeConfig))
}

func TestCategoryProcessingError_KeepsCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := NewCategoryProcessingError("Tools/Utilities", 2, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Tools/Utilities", err.Metadata["category"])
	assert.Equal(t, 2, err.Metadata["pass"])
	assert.Contains(t, err.Error(), "CATEGORY_PROCESSING_FAILED")
}

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name            string
		err             *StandardError
		expectedCode    string
		expectedRetries int
	}{
		{
			name:            "config error is terminal",
			err:             NewConfigError("bad"),
			expectedCode:    "GRADING_CONFIG_INVALID",
			expectedRetries: 0,
		},
		{
			name:            "corpus load retries",
			err:             NewCorpusLoadFailedError("postgres", stderrors.New("conn refused")),
			expectedCode:    "CORPUS_LOAD_FAILED",
			expectedRetries: 3,
		},
		{
			name:            "timeouts retry twice",
			err:             NewTimeoutError("elasticsearch", stderrors.New("deadline")),
			expectedCode:    "TIMEOUT_ERROR",
			expectedRetries: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.expectedCode, bpmn.Code)
			assert.Equal(t, tt.expectedRetries, bpmn.Retries)
			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestNormalize(t *testing.T) {
	std := NewEmptyCorpusError("0 valid listings")
	got := Normalize(fmt.Errorf("run: %w", std))
	require.Same(t, std, got)

	internal := Normalize(stderrors.New("unexpected"))
	assert.Equal(t, ErrCodeInternal, internal.Code)
	assert.False(t, internal.Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	cases := map[ErrorCode]string{
		ErrCodeConfig:                   "CONFIG",
		ErrCodeEmptyCorpus:              "CORPUS",
		ErrCodeInvalidListing:           "CORPUS",
		ErrCodeCategoryProcessingFailed: "ENGINE",
		ErrCodeArtifactWriteFailed:      "ARTIFACT",
		ErrCodeSearchQueryFailed:        "SEARCH",
		ErrCodeQueryExecutionFailed:     "DATABASE",
		ErrCodeNotificationSendFailed:   "NOTIFICATION",
		ErrCodeTimeout:                  "OTHER",
	}
	for code, category := range cases {
		assert.Equal(t, category, GetErrorCategory(code), string(code))
	}
}

func TestErrorVariables_CarryMetadata(t *testing.T) {
	stdErr := NewCategoryProcessingError("Tools/Grid", 2, fmt.Errorf("boom"))
	vars := errorVariables(stdErr, ConvertToBPMNError(stdErr))

	assert.Equal(t, "Tools/Grid", vars["category"])
	assert.Equal(t, 2, vars["pass"])
	assert.Equal(t, string(ErrCodeCategoryProcessingFailed), vars["originalErrorCode"])
	assert.Equal(t, false, vars["retryable"])

	encoded, err := encodeVariables(vars)
	require.NoError(t, err)
	assert.Contains(t, encoded, `"category":"Tools/Grid"`)
}

func TestErrorVariables_MetadataDoesNotOverrideErrorCode(t *testing.T) {
	stdErr := NewTimeoutError("zeebe", fmt.Errorf("deadline")).WithMetadata("errorCode", "spoofed")
	bpmnErr := ConvertToBPMNError(stdErr)
	vars := errorVariables(stdErr, bpmnErr)
	assert.Equal(t, bpmnErr.Code, vars["errorCode"])
	assert.NotEqual(t, "spoofed", vars["errorCode"])
}
