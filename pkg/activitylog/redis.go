package activitylog

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/coreflow-dev/agentcore/pkg/apierr"
)

// RedisLog maps Log directly onto Redis Streams commands.
type RedisLog struct {
	client *redis.Client
}

var _ Log = (*RedisLog)(nil)

// NewRedisLog wraps an existing client (itself built from miniredis in
// tests, or a real Redis endpoint in production).
func NewRedisLog(client *redis.Client) *RedisLog {
	return &RedisLog{client: client}
}

func (l *RedisLog) Append(ctx context.Context, stream string, fields map[string]any) (Entry, error) {
	id, err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: fields,
	}).Result()
	if err != nil {
		return Entry{}, apierr.Transient("activity_log", stream, err)
	}
	return Entry{ID: id, Timestamp: time.Now(), Fields: fields}, nil
}

func (l *RedisLog) Range(ctx context.Context, stream string, from, to string, count int64) ([]Entry, error) {
	from, to = defaultBounds(from, to)
	msgs, err := l.client.XRangeN(ctx, stream, from, to, count).Result()
	if err != nil {
		return nil, apierr.Transient("activity_log", stream, err)
	}
	return toEntries(msgs), nil
}

func (l *RedisLog) ReverseRange(ctx context.Context, stream string, from, to string, count int64) ([]Entry, error) {
	from, to = defaultBounds(from, to)
	msgs, err := l.client.XRevRangeN(ctx, stream, to, from, count).Result()
	if err != nil {
		return nil, apierr.Transient("activity_log", stream, err)
	}
	return toEntries(msgs), nil
}

func (l *RedisLog) ReadGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Entry, error) {
	// Best-effort group creation; "BUSYGROUP" means it already exists.
	_ = l.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()

	res, err := l.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, apierr.Transient("activity_log", stream, err)
	}
	if len(res) == 0 {
		return nil, nil
	}
	return toEntries(res[0].Messages), nil
}

func (l *RedisLog) Ack(ctx context.Context, stream, group string, ids ...string) error {
	if err := l.client.XAck(ctx, stream, group, ids...).Err(); err != nil {
		return apierr.Transient("activity_log", stream, err)
	}
	return nil
}

func (l *RedisLog) Trim(ctx context.Context, stream string, maxLen int64) error {
	if err := l.client.XTrimMaxLen(ctx, stream, maxLen).Err(); err != nil {
		return apierr.Transient("activity_log", stream, err)
	}
	return nil
}

func (l *RedisLog) Length(ctx context.Context, stream string) (int64, error) {
	n, err := l.client.XLen(ctx, stream).Result()
	if err != nil {
		return 0, apierr.Transient("activity_log", stream, err)
	}
	return n, nil
}

func defaultBounds(from, to string) (string, string) {
	if from == "" {
		from = "-"
	}
	if to == "" {
		to = "+"
	}
	return from, to
}

func toEntries(msgs []redis.XMessage) []Entry {
	out := make([]Entry, len(msgs))
	for i, m := range msgs {
		out[i] = Entry{ID: m.ID, Timestamp: timestampFromID(m.ID), Fields: m.Values}
	}
	return out
}

// timestampFromID recovers the millisecond timestamp Redis encodes in the
// leading component of a stream entry ID ("<ms>-<seq>").
func timestampFromID(id string) time.Time {
	for i := 0; i < len(id); i++ {
		if id[i] == '-' {
			ms, err := strconv.ParseInt(id[:i], 10, 64)
			if err != nil {
				return time.Time{}
			}
			return time.UnixMilli(ms)
		}
	}
	return time.Time{}
}
