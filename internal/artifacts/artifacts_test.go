// internal/artifacts/artifacts_test.go
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"listing-grader/internal/common/config"
	"listing-grader/internal/common/database"
	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/common/logger"
	"listing-grader/internal/engine/convergence"
	"listing-grader/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type recordingWriter struct {
	mu     sync.Mutex
	names  []string
	values map[string]interface{}
	failOn string
}

func (r *recordingWriter) Write(_ context.Context, name string, value interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == r.failOn {
		return apperrors.NewArtifactWriteFailedError("memory", name, errors.New("disk full"))
	}
	if r.values == nil {
		r.values = map[string]interface{}{}
	}
	r.names = append(r.names, name)
	r.values[name] = value
	return nil
}

type MockTopicPublisher struct {
	mock.Mock
}

func (m *MockTopicPublisher) PublishJSON(ctx context.Context, topicARN, subject string, v interface{}) (string, error) {
	args := m.Called(ctx, topicARN, subject, v)
	return args.String(0), args.Error(1)
}

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendText(ctx context.Context, from string, to []string, subject, body string) (string, error) {
	args := m.Called(ctx, from, to, subject, body)
	return args.String(0), args.Error(1)
}

func notificationConfig() config.NotificationConfig {
	var cfg config.NotificationConfig
	cfg.Enabled = true
	cfg.SNS.TopicARN = "arn:aws:sns:eu-west-1:123:grading"
	cfg.SES.FromEmail = "grader@example.com"
	cfg.SES.ToEmails = []string{"team@example.com"}
	return cfg
}

func sampleResult() *convergence.Result {
	metric := 0.97
	return &convergence.Result{
		RunID:   "run-1",
		Outcome: models.OutcomeConverged,
		Rules: map[string]models.DynamicCategoryRules{
			"Tools/Grid": {Category: "Tools/Grid"},
			"Art/2D":     {Category: "Art/2D"},
		},
		Summary: models.ConvergenceSummary{
			RunID:             "run-1",
			Passes:            2,
			Converged:         true,
			Outcome:           models.OutcomeConverged,
			ConvergenceMetric: metric,
			PassResults: []models.PassResult{
				{Pass: 1},
				{Pass: 2, StabilityMetric: &metric, GradingRulesStats: models.GradingRulesStats{FailedCategories: []string{"Broken"}}},
			},
		},
		GradingRules: models.GradingRulesArtifact{
			Rules: map[string]models.DynamicCategoryRules{
				"Tools/Grid": {Category: "Tools/Grid"},
				"Art/2D":     {Category: "Art/2D"},
			},
			FallbackRules: models.DefaultStaticConfig(),
		},
	}
}

// ==========================
// File writer
// ==========================

func TestFileWriter_WritesNestedJSON(t *testing.T) {
	dir := t.TempDir()
	w := NewFileWriter(dir)

	require.NoError(t, w.Write(context.Background(), PassSnapshotFile(3), map[string]int{"pass": 3}))

	data, err := os.ReadFile(filepath.Join(dir, "passes", "pass-3-exemplars.json"))
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 3, got["pass"])

	entries, err := os.ReadDir(filepath.Join(dir, "passes"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not survive")
}

func TestFileWriter_Errors(t *testing.T) {
	err := NewFileWriter(t.TempDir()).Write(context.Background(), "bad.json", func() {})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeArtifactWriteFailed))

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	err = NewFileWriter(blocker).Write(context.Background(), "x.json", 1)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeArtifactWriteFailed))
}

// ==========================
// Multi writer
// ==========================

func TestMultiWriter_AttemptsEverySink(t *testing.T) {
	failing := &recordingWriter{failOn: "a.json"}
	ok := &recordingWriter{}
	m := NewMultiWriter(failing, ok)

	err := m.Write(context.Background(), "a.json", 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeArtifactWriteFailed))
	assert.Equal(t, []string{"a.json"}, ok.names)
	assert.Equal(t, 2, m.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Write(ctx, "b.json", 1), context.Canceled)
}

// ==========================
// Redis writer
// ==========================

func TestRedisWriter_SplitsRulesPerCategory(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	w := NewRedisWriter(database.NewRedisFromClient(client), "grading", time.Hour)

	require.NoError(t, w.Write(context.Background(), GradingRulesFile, sampleResult().GradingRules))

	assert.True(t, mr.Exists("grading:grading-rules"))
	assert.Equal(t, time.Hour, mr.TTL("grading:grading-rules"))

	raw, err := mr.Get(w.RulesKey("Tools/Grid"))
	require.NoError(t, err)
	var rules models.DynamicCategoryRules
	require.NoError(t, json.Unmarshal([]byte(raw), &rules))
	assert.Equal(t, "Tools/Grid", rules.Category)
	assert.True(t, mr.Exists("grading:rules:Art/2D"))

	require.NoError(t, w.Write(context.Background(), PlaybookFile, models.Playbook{RunID: "run-1"}))
	assert.True(t, mr.Exists("grading:playbook"))
	assert.Len(t, mr.Keys(), 4)

	latest, err := w.Rules(context.Background(), "Tools/Grid")
	require.NoError(t, err)
	assert.Equal(t, "Tools/Grid", latest.Category)

	_, err = w.Rules(context.Background(), "Audio")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeResourceNotFound))
}

func TestRedisWriter_Failure(t *testing.T) {
	client, _ := redismock.NewClientMock()
	w := NewRedisWriter(database.NewRedisFromClient(client), "grading", 0)

	err := w.Write(context.Background(), PlaybookFile, models.Playbook{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeArtifactWriteFailed))
}

// ==========================
// Elasticsearch writer
// ==========================

func TestElasticsearchWriter_CreatesIndexOnce(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []string
		bodies   []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		body, _ := io.ReadAll(r.Body)

		mu.Lock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		bodies = append(bodies, string(body))
		mu.Unlock()

		switch {
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/grading-artifacts":
			_, _ = io.WriteString(w, `{"acknowledged":true}`)
		default:
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"result":"created"}`)
		}
	}))
	defer srv.Close()

	es, err := database.NewElasticsearchWithTransport(srv.URL, http.DefaultTransport)
	require.NoError(t, err)
	w := NewElasticsearchWriter(es, "grading-artifacts")

	require.NoError(t, w.Write(context.Background(), PassSnapshotFile(1), map[string]int{"pass": 1}))
	require.NoError(t, w.Write(context.Background(), PlaybookFile, models.Playbook{RunID: "run-1"}))

	require.Len(t, requests, 4)
	assert.Equal(t, "HEAD /grading-artifacts", requests[0])
	assert.Equal(t, "PUT /grading-artifacts", requests[1])
	assert.Equal(t, "PUT /grading-artifacts/_doc/passes__pass-1-exemplars.json", requests[2])
	assert.True(t, strings.HasSuffix(requests[3], "/_doc/playbook.json"))
	assert.Contains(t, bodies[3], `"document":{"runId":"run-1"`)
}

func TestElasticsearchWriter_IndexError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		if r.Method == http.MethodHead {
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	es, err := database.NewElasticsearchWithTransport(srv.URL, http.DefaultTransport)
	require.NoError(t, err)
	err = NewElasticsearchWriter(es, "grading-artifacts").Write(context.Background(), PlaybookFile, 1)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeArtifactWriteFailed))
}

// ==========================
// Postgres writer
// ==========================

func TestPostgresWriter_Upserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "grading_artifacts"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	for _, name := range []string{GradingRulesFile, PlaybookFile} {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "grading_artifacts"`)).
			WithArgs(name, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	w := NewPostgresWriter(database.NewPostgresFromDB(db), "grading_artifacts")
	require.NoError(t, w.Write(context.Background(), GradingRulesFile, sampleResult().GradingRules))
	require.NoError(t, w.Write(context.Background(), PlaybookFile, models.Playbook{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriter_RollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO").WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err = NewPostgresWriter(database.NewPostgresFromDB(db), "grading_artifacts").
		Write(context.Background(), PlaybookFile, models.Playbook{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeArtifactWriteFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Notifier
// ==========================

func TestNotifier_SendsOnBothChannels(t *testing.T) {
	topic := &MockTopicPublisher{}
	email := &MockEmailSender{}
	topic.On("PublishJSON", mock.Anything, "arn:aws:sns:eu-west-1:123:grading", mock.AnythingOfType("string"), mock.Anything).
		Return("msg-1", nil)
	email.On("SendText", mock.Anything, "grader@example.com", []string{"team@example.com"},
		mock.AnythingOfType("string"), mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, "run-1") && strings.Contains(body, "grading-rules.json")
		})).Return("mail-1", nil)

	n := NewNotifier(notificationConfig(), topic, email, logger.NewTestLogger(t))
	require.True(t, n.Enabled())
	require.NoError(t, n.Notify(context.Background(), Notification{
		RunID:     "run-1",
		Outcome:   models.OutcomeConverged,
		Passes:    2,
		Artifacts: []string{GradingRulesFile},
	}))
	topic.AssertExpectations(t)
	email.AssertExpectations(t)
}

func TestNotifier_OneChannelFails(t *testing.T) {
	topic := &MockTopicPublisher{}
	email := &MockEmailSender{}
	topic.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("throttled"))
	email.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("mail-1", nil)

	err := NewNotifier(notificationConfig(), topic, email, nil).Notify(context.Background(), Notification{RunID: "r"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotificationSendFailed))
	email.AssertExpectations(t)
}

func TestNotifier_Disabled(t *testing.T) {
	var cfg config.NotificationConfig
	n := NewNotifier(cfg, &MockTopicPublisher{}, &MockEmailSender{}, nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Notify(context.Background(), Notification{}))

	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
}

// ==========================
// Publisher
// ==========================

func TestPublisher_WritesBundleInOrderAndNotifies(t *testing.T) {
	w := &recordingWriter{}
	topic := &MockTopicPublisher{}
	topic.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.MatchedBy(func(v interface{}) bool {
		note, ok := v.(Notification)
		return ok && note.Categories == 2 && len(note.FailedCategories) == 1 && len(note.Artifacts) == 5
	})).Return("msg-1", nil)

	cfg := notificationConfig()
	cfg.SES.FromEmail = ""
	p := NewPublisher(w, NewNotifier(cfg, topic, nil, nil), logger.NewTestLogger(t))

	pub, err := p.Publish(context.Background(), sampleResult())
	require.NoError(t, err)
	want := []string{ExemplarsFile, GradingRulesFile, ConvergenceSummaryFile, VocabularySummaryFile, PlaybookFile}
	assert.Equal(t, want, w.names)
	assert.Equal(t, want, pub.Artifacts)
	assert.True(t, pub.Notified)
	assert.Equal(t, "run-1", pub.RunID)
	topic.AssertExpectations(t)
}

func TestPublisher_WriteFailureSkipsNotification(t *testing.T) {
	w := &recordingWriter{failOn: ConvergenceSummaryFile}
	topic := &MockTopicPublisher{}
	p := NewPublisher(w, NewNotifier(notificationConfig(), topic, nil, nil), nil)

	pub, err := p.Publish(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Equal(t, []string{ExemplarsFile, GradingRulesFile}, pub.Artifacts)
	assert.False(t, pub.Notified)
	topic.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPublisher_NotificationFailureKeepsArtifacts(t *testing.T) {
	topic := &MockTopicPublisher{}
	topic.On("PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("down"))

	pub, err := NewPublisher(&recordingWriter{}, NewNotifier(notificationConfig(), topic, nil, nil), nil).
		Publish(context.Background(), sampleResult())
	require.NoError(t, err)
	assert.Len(t, pub.Artifacts, 5)
	assert.False(t, pub.Notified)
}

func TestPublisher_SnapshotObserver(t *testing.T) {
	w := &recordingWriter{}
	observe := NewPublisher(w, nil, nil).SnapshotObserver()

	snap := models.ExemplarsArtifact{Metadata: models.ExemplarsMetadata{Pass: 2}}
	require.NoError(t, observe(context.Background(), 2, snap))
	assert.Equal(t, []string{"passes/pass-2-exemplars.json"}, w.names)
	assert.Equal(t, snap, w.values["passes/pass-2-exemplars.json"])
}

// ==========================
// Factory
// ==========================

func TestNewWriter(t *testing.T) {
	w, err := NewWriter(config.ArtifactsConfig{Sinks: []string{config.SinkFile}, OutputDir: t.TempDir()}, Backends{})
	require.NoError(t, err)
	assert.Equal(t, 1, w.Len())

	tests := []struct {
		name  string
		sinks []string
	}{
		{"none", nil},
		{"redis without client", []string{config.SinkRedis}},
		{"elasticsearch without client", []string{config.SinkElasticsearch}},
		{"postgres without client", []string{config.SinkPostgres}},
		{"unknown", []string{"s3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWriter(config.ArtifactsConfig{Sinks: tt.sinks}, Backends{})
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfig))
		})
	}
}

func TestNewNotifierFromConfig_Disabled(t *testing.T) {
	n, err := NewNotifierFromConfig(context.Background(), config.NotificationConfig{}, nil)
	require.NoError(t, err)
	assert.False(t, n.Enabled())
}
