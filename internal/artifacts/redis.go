// internal/artifacts/redis.go
package artifacts

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"listing-grader/internal/common/database"
	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/models"
)

const sinkRedis = "redis"

// RedisWriter stores each artifact under <prefix>:<name without .json>.
// Grading rules are additionally split into <prefix>:rules:<category> so
// graders can fetch the latest rules for one category.
type RedisWriter struct {
	client *database.RedisClient
	prefix string
	ttl    time.Duration
}

func NewRedisWriter(client *database.RedisClient, prefix string, ttl time.Duration) *RedisWriter {
	return &RedisWriter{client: client, prefix: prefix, ttl: ttl}
}

// Key returns the redis key for an artifact name.
func (r *RedisWriter) Key(name string) string {
	return r.prefix + ":" + strings.TrimSuffix(name, ".json")
}

// RulesKey returns the per-category rules key.
func (r *RedisWriter) RulesKey(category string) string {
	return r.prefix + ":rules:" + category
}

func (r *RedisWriter) Write(ctx context.Context, name string, value interface{}) (err error) {
	defer func() { record(sinkRedis, err) }()

	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkRedis, r.Key(name), err)
	}

	entries := []database.KV{{Key: r.Key(name), Value: data}}
	rules := rulesOf(value)
	for _, category := range sortedCategories(rules) {
		doc, err := json.Marshal(rules[category])
		if err != nil {
			return apperrors.NewArtifactWriteFailedError(sinkRedis, r.RulesKey(category), err)
		}
		entries = append(entries, database.KV{Key: r.RulesKey(category), Value: doc})
	}

	if err := r.client.SetAll(ctx, entries, r.ttl); err != nil {
		return apperrors.NewArtifactWriteFailedError(sinkRedis, r.Key(name), err)
	}
	return nil
}

// Rules returns the most recently published rules for category.
func (r *RedisWriter) Rules(ctx context.Context, category string) (*models.DynamicCategoryRules, error) {
	var rules models.DynamicCategoryRules
	found, err := r.client.GetJSON(ctx, r.RulesKey(category), &rules)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("redis_get", err)
	}
	if !found {
		return nil, apperrors.NewResourceNotFoundError("redis", "no published rules for category "+category)
	}
	return &rules, nil
}

func rulesOf(value interface{}) map[string]models.DynamicCategoryRules {
	switch v := value.(type) {
	case models.GradingRulesArtifact:
		return v.Rules
	case *models.GradingRulesArtifact:
		if v != nil {
			return v.Rules
		}
	}
	return nil
}

func sortedCategories(rules map[string]models.DynamicCategoryRules) []string {
	out := make([]string, 0, len(rules))
	for c := range rules {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
