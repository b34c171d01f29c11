package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/jobmesh/history"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()

	sink, err := New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	t.Cleanup(func() { sink.Close() })

	return sink
}

func TestSink_AppendAndList(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, sink.Append(ctx, history.Record{
		SessionID: "sess-1",
		Role:      "user",
		Content:   "find Go jobs",
		Timestamp: now,
	}))
	require.NoError(t, sink.Append(ctx, history.Record{
		SessionID: "sess-1",
		Agent:     "job_searcher",
		Role:      "assistant",
		Content:   "Found 12 postings.",
		Timestamp: now,
	}))
	require.NoError(t, sink.Append(ctx, history.Record{
		SessionID: "sess-2",
		Role:      "user",
		Content:   "other session",
		Timestamp: now,
	}))

	records, err := sink.List(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "user", records[0].Role)
	assert.Equal(t, "find Go jobs", records[0].Content)
	assert.Equal(t, "job_searcher", records[1].Agent)
	assert.WithinDuration(t, now, records[1].Timestamp, time.Second)
}

func TestSink_ListKeepsInsertionOrder(t *testing.T) {
	sink := newTestSink(t)
	ctx := context.Background()

	// Identical timestamps must not disturb the order.
	ts := time.Now().UTC()
	for _, content := range []string{"first", "second", "third"} {
		require.NoError(t, sink.Append(ctx, history.Record{
			SessionID: "sess-1",
			Role:      "assistant",
			Content:   content,
			Timestamp: ts,
		}))
	}

	records, err := sink.List(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "first", records[0].Content)
	assert.Equal(t, "second", records[1].Content)
	assert.Equal(t, "third", records[2].Content)
}

func TestSink_UnknownSession(t *testing.T) {
	sink := newTestSink(t)

	records, err := sink.List(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSink_CustomTableName(t *testing.T) {
	sink, err := New(filepath.Join(t.TempDir(), "history.db"), func(o *Options) {
		o.TableName = "transcripts"
	})
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, history.Record{
		SessionID: "sess-1",
		Role:      "user",
		Content:   "hi",
		Timestamp: time.Now().UTC(),
	}))

	records, err := sink.List(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
