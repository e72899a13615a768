// internal/artifacts/factory.go
package artifacts

import (
	"context"
	"time"

	awsclients "listing-grader/internal/common/aws"
	"listing-grader/internal/common/config"
	"listing-grader/internal/common/database"
	apperrors "listing-grader/internal/common/errors"
	"listing-grader/internal/common/logger"
)

// Backends carries the clients the configured sinks need.
type Backends struct {
	Redis         *database.RedisClient
	Elasticsearch *database.ElasticsearchClient
	Postgres      *database.PostgresClient
}

// NewWriter builds a MultiWriter over cfg.Sinks, in configured order.
func NewWriter(cfg config.ArtifactsConfig, b Backends) (*MultiWriter, error) {
	var writers []Writer
	for _, sink := range cfg.Sinks {
		switch sink {
		case config.SinkFile:
			writers = append(writers, NewFileWriter(cfg.OutputDir))
		case config.SinkRedis:
			if b.Redis == nil {
				return nil, apperrors.NewConfigError("redis sink without a redis client")
			}
			writers = append(writers, NewRedisWriter(b.Redis, cfg.RedisPrefix, time.Duration(cfg.RedisTTL)*time.Second))
		case config.SinkElasticsearch:
			if b.Elasticsearch == nil {
				return nil, apperrors.NewConfigError("elasticsearch sink without a client")
			}
			writers = append(writers, NewElasticsearchWriter(b.Elasticsearch, cfg.ESIndex))
		case config.SinkPostgres:
			if b.Postgres == nil {
				return nil, apperrors.NewConfigError("postgres sink without a postgres client")
			}
			writers = append(writers, NewPostgresWriter(b.Postgres, cfg.PGTable))
		default:
			return nil, apperrors.NewConfigError("unknown artifact sink: " + sink)
		}
	}
	if len(writers) == 0 {
		return nil, apperrors.NewConfigError("no artifact sinks configured")
	}
	return NewMultiWriter(writers...), nil
}

// NewNotifierFromConfig builds the AWS clients for the configured channels.
// It returns a disabled notifier when notifications are off.
func NewNotifierFromConfig(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	if !cfg.Enabled {
		return NewNotifier(cfg, nil, nil, log), nil
	}

	var (
		topic TopicPublisher
		email EmailSender
	)
	if cfg.SNS.TopicARN != "" {
		c, err := awsclients.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, apperrors.NewExternalServiceError("sns", err)
		}
		topic = c
	}
	if cfg.SES.FromEmail != "" {
		c, err := awsclients.NewSESClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, apperrors.NewExternalServiceError("ses", err)
		}
		email = c
	}
	return NewNotifier(cfg, topic, email, log), nil
}
