package activitylog

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLog is an in-process Log, useful for tests and deployments without
// Redis. ReadGroup/Ack are approximated with a simple per-group cursor
// rather than real consumer-group fencing.
type MemoryLog struct {
	mu       sync.Mutex
	entries  map[string][]Entry
	cursors  map[string]map[string]int // stream -> group -> next unread index
	seq      int64
}

var _ Log = (*MemoryLog)(nil)

// NewMemoryLog constructs an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{entries: map[string][]Entry{}, cursors: map[string]map[string]int{}}
}

func (l *MemoryLog) Append(_ context.Context, stream string, fields map[string]any) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	e := Entry{ID: fmt.Sprintf("%d-0", l.seq), Timestamp: time.Now(), Fields: fields}
	l.entries[stream] = append(l.entries[stream], e)
	return e, nil
}

func (l *MemoryLog) Range(_ context.Context, stream string, _, _ string, count int64) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := l.entries[stream]
	if count > 0 && int64(len(all)) > count {
		all = all[:count]
	}
	out := make([]Entry, len(all))
	copy(out, all)
	return out, nil
}

func (l *MemoryLog) ReverseRange(ctx context.Context, stream string, from, to string, count int64) ([]Entry, error) {
	fwd, err := l.Range(ctx, stream, from, to, 0)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(fwd))
	for i, e := range fwd {
		out[len(fwd)-1-i] = e
	}
	if count > 0 && int64(len(out)) > count {
		out = out[:count]
	}
	return out, nil
}

func (l *MemoryLog) ReadGroup(_ context.Context, stream, group, _ string, count int64, _ time.Duration) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cursors[stream] == nil {
		l.cursors[stream] = map[string]int{}
	}
	next := l.cursors[stream][group]
	all := l.entries[stream]
	if next >= len(all) {
		return nil, nil
	}
	end := len(all)
	if count > 0 && int64(end-next) > count {
		end = next + int(count)
	}
	out := make([]Entry, end-next)
	copy(out, all[next:end])
	l.cursors[stream][group] = end
	return out, nil
}

func (l *MemoryLog) Ack(_ context.Context, _, _ string, _ ...string) error {
	// MemoryLog's ReadGroup already advances the cursor on delivery; Ack is
	// a no-op kept to satisfy the interface for parity with the Redis
	// implementation, where delivery and acknowledgement are distinct.
	return nil
}

func (l *MemoryLog) Trim(_ context.Context, stream string, maxLen int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := l.entries[stream]
	if int64(len(all)) <= maxLen {
		return nil
	}
	l.entries[stream] = all[int64(len(all))-maxLen:]
	return nil
}

func (l *MemoryLog) Length(_ context.Context, stream string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int64(len(l.entries[stream])), nil
}
