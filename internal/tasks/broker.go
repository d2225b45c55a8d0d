package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vogonweb/vogon/pkg/logger"
)

// Message is a task read from a stream together with its stream entry id.
// DecodeErr is set when the entry could not be decoded; Task then carries the
// entry id and the raw fields as payload so it can be dead-lettered.
type Message struct {
	EntryID   string
	Task      Task
	DecodeErr error
}

// Broker is the stream transport used by Client and Worker.
type Broker interface {
	Publish(ctx context.Context, stream string, t *Task) (string, error)
	EnsureGroup(ctx context.Context, stream, group string) error
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)
	Claim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int64) ([]Message, error)
	Ack(ctx context.Context, stream, group string, ids ...string) error
	Len(ctx context.Context, stream string) (int64, error)
	Pending(ctx context.Context, stream, group string) (int64, error)
	Trim(ctx context.Context, stream string, maxLen int64) error
	Ping(ctx context.Context) error
}

// RedisBroker implements Broker on Redis Streams.
type RedisBroker struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewRedisBroker wraps an existing client.
func NewRedisBroker(rdb *redis.Client, log *slog.Logger) *RedisBroker {
	return &RedisBroker{rdb: rdb, log: log.With(logger.Scope("tasks.broker"))}
}

// Publish appends a task to stream. The task is stored as JSON under the "data" field.
func (b *RedisBroker) Publish(ctx context.Context, stream string, t *Task) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}

	id, err := b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"data": string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}

	b.log.Debug("task published",
		slog.String("stream", stream),
		slog.String("task", t.Name),
		slog.String("task_id", t.ID),
		slog.String("entry_id", id),
	)
	return id, nil
}

// EnsureGroup creates the consumer group (and stream) if missing.
func (b *RedisBroker) EnsureGroup(ctx context.Context, stream, group string) error {
	err := b.rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", group, stream, err)
	}
	return nil
}

// Read fetches new entries for consumer, blocking up to block.
func (b *RedisBroker) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	res, err := b.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %s: %w", stream, err)
	}

	var out []Message
	for _, s := range res {
		out = append(out, b.decode(s.Messages)...)
	}
	return out, nil
}

// Claim takes over entries idle for at least minIdle from crashed consumers.
func (b *RedisBroker) Claim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, count int64) ([]Message, error) {
	msgs, _, err := b.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xautoclaim %s: %w", stream, err)
	}
	return b.decode(msgs), nil
}

func (b *RedisBroker) decode(entries []redis.XMessage) []Message {
	out := make([]Message, 0, len(entries))
	for _, e := range entries {
		data, ok := e.Values["data"].(string)
		if !ok {
			b.log.Warn("stream entry without data field", slog.String("entry_id", e.ID))
			out = append(out, undecodable(e, errors.New("stream entry without data field")))
			continue
		}
		var t Task
		if err := json.Unmarshal([]byte(data), &t); err != nil {
			b.log.Warn("undecodable stream entry", slog.String("entry_id", e.ID), logger.Error(err))
			out = append(out, undecodable(e, fmt.Errorf("decode task: %w", err)))
			continue
		}
		out = append(out, Message{EntryID: e.ID, Task: t})
	}
	return out
}

func undecodable(e redis.XMessage, err error) Message {
	raw, _ := json.Marshal(e.Values)
	return Message{
		EntryID: e.ID,
		Task: Task{
			ID:        e.ID,
			Payload:   raw,
			LastError: truncateError(err.Error()),
		},
		DecodeErr: err,
	}
}

// Ack acknowledges entries in group.
func (b *RedisBroker) Ack(ctx context.Context, stream, group string, ids ...string) error {
	return b.rdb.XAck(ctx, stream, group, ids...).Err()
}

// Len returns the number of entries in stream.
func (b *RedisBroker) Len(ctx context.Context, stream string) (int64, error) {
	return b.rdb.XLen(ctx, stream).Result()
}

// Pending returns the number of delivered but unacknowledged entries.
func (b *RedisBroker) Pending(ctx context.Context, stream, group string) (int64, error) {
	p, err := b.rdb.XPending(ctx, stream, group).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return p.Count, nil
}

// Trim caps stream at approximately maxLen entries.
func (b *RedisBroker) Trim(ctx context.Context, stream string, maxLen int64) error {
	return b.rdb.XTrimMaxLenApprox(ctx, stream, maxLen, 0).Err()
}

// Ping checks the connection.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}
