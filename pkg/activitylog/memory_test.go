package activitylog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLog_AppendRangeReverseRange(t *testing.T) {
	l := NewMemoryLog()
	ctx := context.Background()

	_, err := l.Append(ctx, "agent:1", map[string]any{"event": "planning"})
	require.NoError(t, err)
	_, err = l.Append(ctx, "agent:1", map[string]any{"event": "acting"})
	require.NoError(t, err)

	fwd, err := l.Range(ctx, "agent:1", "", "", 0)
	require.NoError(t, err)
	require.Len(t, fwd, 2)
	assert.Equal(t, "planning", fwd[0].Fields["event"])

	rev, err := l.ReverseRange(ctx, "agent:1", "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "acting", rev[0].Fields["event"])
}

func TestMemoryLog_ReadGroupAdvancesPerGroupCursor(t *testing.T) {
	l := NewMemoryLog()
	ctx := context.Background()
	_, _ = l.Append(ctx, "s", map[string]any{"n": 1})
	_, _ = l.Append(ctx, "s", map[string]any{"n": 2})

	first, err := l.ReadGroup(ctx, "s", "g1", "c1", 1, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, float64(1), toFloat(first[0].Fields["n"]))

	second, err := l.ReadGroup(ctx, "s", "g1", "c1", 10, time.Millisecond)
	require.NoError(t, err)
	require.Len(t, second, 1)

	// a distinct group starts from the beginning again
	fromOtherGroup, err := l.ReadGroup(ctx, "s", "g2", "c1", 10, time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, fromOtherGroup, 2)
}

func TestMemoryLog_Trim(t *testing.T) {
	l := NewMemoryLog()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = l.Append(ctx, "s", map[string]any{"n": i})
	}
	require.NoError(t, l.Trim(ctx, "s", 2))
	n, err := l.Length(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func toFloat(v any) float64 {
	if f, ok := v.(int); ok {
		return float64(f)
	}
	return 0
}
