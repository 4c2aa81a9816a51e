package orderstore

import (
	"context"
	"tarjomic-watch/internal/components/telemetry"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteBackend(t *testing.T) {
	backend, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	seen, err := backend.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, seen)

	store := NewStore(backend, &telemetry.Recorder{})
	require.NoError(t, store.Load(ctx))
	require.Equal(t, ids(5, 2, 7), store.DiffAndRecord("A", ids(5, 2, 7)))
	store.DiffAndRecord("B", []OrderID{StringID("x")})
	require.NoError(t, store.Save(ctx))

	// a second save replaces rather than appends
	require.Equal(t, ids(9), store.DiffAndRecord("A", ids(2, 9)))
	require.NoError(t, store.Save(ctx))

	seen, err = backend.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string][]OrderID{
		"A": ids(5, 2, 7, 9),
		"B": {StringID("x")},
	}, seen)
}

func TestSQLiteCorruptRow(t *testing.T) {
	backend, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer backend.Close()

	_, err = backend.db.Exec(
		"insert into seen_orders (account, position, order_id) values ('A', 0, '{bad')",
	)
	require.NoError(t, err)

	_, err = backend.Load(context.Background())
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestSQLiteLoadCancelledIsNotCorrupt(t *testing.T) {
	backend, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = backend.Load(ctx)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCorrupt)

	store := NewStore(backend, &telemetry.Recorder{})
	require.Error(t, store.Load(ctx))
	require.ErrorIs(t, store.Save(context.Background()), ErrNotLoaded)
}
