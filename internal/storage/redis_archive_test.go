package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/for-sale/internal/session"
	"github.com/palemoky/for-sale/internal/testutil"
)

func newTestArchive(t *testing.T, opts ArchiveOptions) (*SnapshotArchive, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewSnapshotArchive(client, opts), mr
}

func roundSnapshot(round int) session.Snapshot {
	return testutil.PlayingSnapshot("ABC123", round, "p1",
		testutil.NewPlayer("p1", "alice", true, true),
		testutil.NewPlayer("p2", "bob", false, true),
		testutil.NewPlayer("p3", "carol", false, true),
	)
}

func TestSnapshotArchive_RecordLastForget(t *testing.T) {
	t.Parallel()
	archive, mr := newTestArchive(t, ArchiveOptions{})
	ctx := context.Background()

	last, err := archive.Last(ctx, "ABC123")
	require.NoError(t, err)
	assert.Nil(t, last)

	snap := roundSnapshot(1)
	require.NoError(t, archive.Record(ctx, snap))

	last, err = archive.Last(ctx, "ABC123")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, snap, *last)

	assert.True(t, mr.Exists("forsale:room:ABC123:history"))
	assert.Equal(t, DefaultTTL, mr.TTL("forsale:room:ABC123:last"))

	require.NoError(t, archive.Forget(ctx, "ABC123"))
	assert.False(t, mr.Exists("forsale:room:ABC123:history"))
	assert.False(t, mr.Exists("forsale:room:ABC123:last"))
}

func TestSnapshotArchive_HistoryIsCapped(t *testing.T) {
	t.Parallel()
	archive, _ := newTestArchive(t, ArchiveOptions{History: 3})
	ctx := context.Background()

	for round := 1; round <= 5; round++ {
		require.NoError(t, archive.Record(ctx, roundSnapshot(round)))
	}

	history, err := archive.History(ctx, "ABC123")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 5, history[0].RoundNumber)
	assert.Equal(t, 3, history[2].RoundNumber)
}

func TestSnapshotArchive_Expires(t *testing.T) {
	t.Parallel()
	archive, mr := newTestArchive(t, ArchiveOptions{TTL: time.Minute})
	ctx := context.Background()

	require.NoError(t, archive.Record(ctx, roundSnapshot(1)))
	mr.FastForward(2 * time.Minute)

	last, err := archive.Last(ctx, "ABC123")
	require.NoError(t, err)
	assert.Nil(t, last)

	history, err := archive.History(ctx, "ABC123")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSnapshotArchive_IgnoresRoomless(t *testing.T) {
	t.Parallel()
	archive, mr := newTestArchive(t, ArchiveOptions{})

	require.NoError(t, archive.Record(context.Background(), session.Snapshot{}))
	assert.Empty(t, mr.Keys())
}

func TestSnapshotArchive_ServerDown(t *testing.T) {
	t.Parallel()
	archive, mr := newTestArchive(t, ArchiveOptions{})
	mr.Close()

	assert.Error(t, archive.Record(context.Background(), roundSnapshot(1)))
}
