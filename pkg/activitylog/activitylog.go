// Package activitylog implements the Activity log external interface (spec
// §6): Append/Range/ReverseRange/ReadGroup/Ack/Trim/Length over a per-agent
// (or per-tenant) append-only stream of activity entries.
//
// Grounded on itsneelabh-gomind's direct go-redis/v8 usage: RedisLog
// (redis.go) maps each operation onto the matching Redis Streams command
// (XADD/XRANGE/XREVRANGE/XREADGROUP/XACK/XTRIM/XLEN) one-for-one, so the
// interface below is deliberately shaped like the Streams API rather than a
// generic pub/sub log.
package activitylog

import (
	"context"
	"time"
)

// Entry is one appended activity record. ID is the stream-assigned
// identifier (opaque outside this package — callers treat it as a cursor).
type Entry struct {
	ID        string
	Timestamp time.Time
	Fields    map[string]any
}

// Log is the append-only activity stream contract, keyed by an arbitrary
// stream name (typically "agent:<agent_id>" or "tenant:<tenant_id>").
type Log interface {
	Append(ctx context.Context, stream string, fields map[string]any) (Entry, error)
	Range(ctx context.Context, stream string, from, to string, count int64) ([]Entry, error)
	ReverseRange(ctx context.Context, stream string, from, to string, count int64) ([]Entry, error)
	ReadGroup(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Entry, error)
	Ack(ctx context.Context, stream, group string, ids ...string) error
	Trim(ctx context.Context, stream string, maxLen int64) error
	Length(ctx context.Context, stream string) (int64, error)
}
