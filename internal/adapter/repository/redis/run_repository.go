package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/logvault/internal/domain"
)

// defaultMaxLen caps the stream; older reports are trimmed approximately.
const defaultMaxLen = 10000

// RunRepository publishes backup run reports to a Redis Stream.
type RunRepository struct {
	client *redis.Client
	logger *slog.Logger
	stream string
	maxLen int64
}

// NewClient builds a client from either a redis:// URL or a host:port pair.
func NewClient(addr string) (*redis.Client, error) {
	if strings.Contains(addr, "://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

// NewRunRepository creates a Redis-backed domain.RunRecorder.
func NewRunRepository(client *redis.Client, logger *slog.Logger, stream string) *RunRepository {
	return &RunRepository{
		client: client,
		logger: logger.With("component", "redis_run_repository"),
		stream: stream,
		maxLen: defaultMaxLen,
	}
}

// RecordRun appends the report to the stream.
func (r *RunRepository) RecordRun(ctx context.Context, report domain.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"payload": payload,
			"run_id":  report.RunID,
			"outcome": string(report.Outcome),
		},
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD run report to redis stream: %w", err)
	}
	r.logger.Debug("Published run report", "run_id", report.RunID, "stream", r.stream)
	return nil
}

// RecentRuns returns up to count reports, newest first.
func (r *RunRepository) RecentRuns(ctx context.Context, count int64) ([]domain.RunReport, error) {
	msgs, err := r.client.XRevRangeN(ctx, r.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to XREVRANGE run reports: %w", err)
	}

	reports := make([]domain.RunReport, 0, len(msgs))
	for _, msg := range msgs {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			r.logger.Warn("Invalid message format in stream, skipping", "message_id", msg.ID)
			continue
		}
		var report domain.RunReport
		if err := json.Unmarshal([]byte(payload), &report); err != nil {
			r.logger.Warn("Failed to unmarshal run report, skipping", "message_id", msg.ID, "error", err)
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Close closes the underlying client.
func (r *RunRepository) Close() error {
	return r.client.Close()
}
