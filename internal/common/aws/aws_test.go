// internal/common/aws/aws_test.go
package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSNSService struct {
	mock.Mock
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

type MockSESService struct {
	mock.Mock
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ses.SendEmailOutput), args.Error(1)
}

func TestSNSClient_PublishJSON(t *testing.T) {
	svc := &MockSNSService{}
	svc.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		var body map[string]interface{}
		if err := json.Unmarshal([]byte(aws.ToString(in.Message)), &body); err != nil {
			return false
		}
		return aws.ToString(in.TopicArn) == "arn:topic" && aws.ToString(in.Subject) == "done" && body["runId"] == "r1"
	})).Return(&sns.PublishOutput{MessageId: aws.String("m-1")}, nil)

	id, err := NewSNSClientFromService(svc).PublishJSON(context.Background(), "arn:topic", "done", map[string]string{"runId": "r1"})
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)
	svc.AssertExpectations(t)
}

func TestSNSClient_PublishError(t *testing.T) {
	svc := &MockSNSService{}
	svc.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	_, err := NewSNSClientFromService(svc).PublishJSON(context.Background(), "arn:topic", "done", 1)
	assert.EqualError(t, err, "throttled")
}

func TestSESClient_SendText(t *testing.T) {
	svc := &MockSESService{}
	svc.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return aws.ToString(in.Source) == "grader@example.com" &&
			len(in.Destination.ToAddresses) == 2 &&
			aws.ToString(in.Message.Body.Text.Data) == "body"
	})).Return(&ses.SendEmailOutput{MessageId: aws.String("e-1")}, nil)

	id, err := NewSESClientFromService(svc).SendText(context.Background(), "grader@example.com",
		[]string{"a@example.com", "b@example.com"}, "subject", "body")
	require.NoError(t, err)
	assert.Equal(t, "e-1", id)
	svc.AssertExpectations(t)
}
