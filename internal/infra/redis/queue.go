package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dpuwatch/dpuwatch/internal/core/domain"
)

// entryTTL bounds how long a queued recovery body lives without being touched.
const entryTTL = 24 * time.Hour

// RecoveryQueue implements storage.RecoveryQueue using Redis. Entry bodies are
// stored as JSON values; a sorted set scored by retry count orders the queue
// so the least-retried entry is served first.
type RecoveryQueue struct {
	rdb *redis.Client
}

// NewRecoveryQueue creates a Redis-backed recovery queue.
func NewRecoveryQueue(client *Client) *RecoveryQueue {
	return &RecoveryQueue{rdb: client.rdb}
}

func (q *RecoveryQueue) queueKey() string {
	return "pending_recoveries"
}

func (q *RecoveryQueue) entryKey(id string) string {
	return fmt.Sprintf("pending_recovery:%s", id)
}

// Enqueue adds a pending recovery.
func (q *RecoveryQueue) Enqueue(ctx context.Context, pr *domain.PendingRecovery) error {
	data, err := json.Marshal(pr)
	if err != nil {
		return fmt.Errorf("failed to marshal pending recovery: %w", err)
	}

	if err := q.rdb.Set(ctx, q.entryKey(pr.ID), data, entryTTL).Err(); err != nil {
		return fmt.Errorf("failed to set pending recovery: %w", err)
	}

	// Score = retry count, lower retries first
	if err := q.rdb.ZAdd(ctx, q.queueKey(), redis.Z{
		Score:  float64(pr.RetryCount),
		Member: pr.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	return nil
}

// Next returns the next pending recovery, or nil when the queue is empty.
func (q *RecoveryQueue) Next(ctx context.Context) (*domain.PendingRecovery, error) {
	results, err := q.rdb.ZRange(ctx, q.queueKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	id := results[0]

	data, err := q.rdb.Get(ctx, q.entryKey(id)).Bytes()
	if err == redis.Nil {
		// Body expired but ID still in queue, drop the orphan
		q.rdb.ZRem(ctx, q.queueKey(), id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending recovery: %w", err)
	}

	var pr domain.PendingRecovery
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending recovery: %w", err)
	}
	return &pr, nil
}

// IncrementRetry bumps the retry count and last-attempt timestamp.
func (q *RecoveryQueue) IncrementRetry(ctx context.Context, id string) error {
	data, err := q.rdb.Get(ctx, q.entryKey(id)).Bytes()
	if err != nil {
		return fmt.Errorf("failed to get pending recovery: %w", err)
	}

	var pr domain.PendingRecovery
	if err := json.Unmarshal(data, &pr); err != nil {
		return fmt.Errorf("failed to unmarshal pending recovery: %w", err)
	}

	pr.RetryCount++
	pr.LastAttempt = time.Now()

	newData, err := json.Marshal(pr)
	if err != nil {
		return fmt.Errorf("failed to marshal pending recovery: %w", err)
	}
	if err := q.rdb.Set(ctx, q.entryKey(id), newData, entryTTL).Err(); err != nil {
		return fmt.Errorf("failed to set pending recovery: %w", err)
	}

	// Higher retry count pushes the entry back in the queue
	if err := q.rdb.ZAdd(ctx, q.queueKey(), redis.Z{
		Score:  float64(pr.RetryCount),
		Member: id,
	}).Err(); err != nil {
		return fmt.Errorf("failed to update queue: %w", err)
	}

	return nil
}

// MarkResolved removes a pending recovery after success.
func (q *RecoveryQueue) MarkResolved(ctx context.Context, id string) error {
	return q.remove(ctx, id)
}

// MarkExhausted removes a pending recovery after the retry budget ran out.
func (q *RecoveryQueue) MarkExhausted(ctx context.Context, id string) error {
	return q.remove(ctx, id)
}

func (q *RecoveryQueue) remove(ctx context.Context, id string) error {
	if err := q.rdb.ZRem(ctx, q.queueKey(), id).Err(); err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}
	if err := q.rdb.Del(ctx, q.entryKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete pending recovery: %w", err)
	}
	return nil
}

// Depth returns the number of pending entries.
func (q *RecoveryQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.rdb.ZCard(ctx, q.queueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}
