package orderstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"tarjomic-watch/internal/components/telemetry"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ids(values ...int64) []OrderID {
	out := make([]OrderID, len(values))
	for i, v := range values {
		out[i] = IntID(v)
	}
	return out
}

func newFileStore(t *testing.T) (*Store, string, *telemetry.Recorder) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "old_orders.json")
	tel := &telemetry.Recorder{}
	store := NewStore(NewJSONFile(path), tel)
	require.NoError(t, store.Load(context.Background()))
	return store, path, tel
}

func TestDiffIdempotent(t *testing.T) {
	store, _, _ := newFileStore(t)

	store.DiffAndRecord("A", ids(1, 2, 3))
	fresh := store.DiffAndRecord("A", ids(1, 2, 3))

	require.Empty(t, fresh)
	require.Equal(t, ids(1, 2, 3), store.Seen("A"))
}

func TestDiffMonotonic(t *testing.T) {
	store, _, _ := newFileStore(t)

	require.Equal(t, ids(1, 2, 3), store.DiffAndRecord("A", ids(1, 2, 3)))
	require.Equal(t, ids(4), store.DiffAndRecord("A", ids(2, 3, 4)))
	require.Equal(t, ids(1, 2, 3, 4), store.Seen("A"))
}

func TestDiffPreservesFetchOrder(t *testing.T) {
	store, _, _ := newFileStore(t)
	store.DiffAndRecord("A", ids(2))

	require.Equal(t, ids(5, 7), store.DiffAndRecord("A", ids(5, 2, 7)))
	require.Equal(t, ids(2, 5, 7), store.Seen("A"))
}

func TestDiffAccountsAreIndependent(t *testing.T) {
	store, _, _ := newFileStore(t)

	require.Equal(t, ids(1), store.DiffAndRecord("A", ids(1)))
	require.Equal(t, ids(1), store.DiffAndRecord("B", ids(1)))
}

func TestDiffSkipsZeroAndRepeatedIds(t *testing.T) {
	store, _, _ := newFileStore(t)

	fresh := store.DiffAndRecord("A", []OrderID{IntID(1), {}, IntID(1), StringID("1")})
	require.Equal(t, []OrderID{IntID(1), StringID("1")}, fresh)
}

func TestDiffEmptyFetchCreatesAccount(t *testing.T) {
	store, _, _ := newFileStore(t)

	require.Empty(t, store.DiffAndRecord("A", nil))
	snapshot := store.Snapshot()
	require.Contains(t, snapshot, "A")
	require.Empty(t, snapshot["A"])
}

func TestSaveAndReload(t *testing.T) {
	store, path, _ := newFileStore(t)
	store.DiffAndRecord("erfan", []OrderID{IntID(10), StringID("abc")})
	store.DiffAndRecord("ashkan", ids(7))
	require.NoError(t, store.Save(context.Background()))

	reloaded := NewStore(NewJSONFile(path), &telemetry.Recorder{})
	require.NoError(t, reloaded.Load(context.Background()))
	if diff := cmp.Diff(store.Snapshot(), reloaded.Snapshot(), cmp.AllowUnexported(OrderID{})); diff != "" {
		t.Fatalf("reloaded state differs (-want +got):\n%s", diff)
	}

	// ids that were saved are never new again, even after a restart
	require.Empty(t, reloaded.DiffAndRecord("erfan", []OrderID{StringID("abc"), IntID(10)}))

	var document map[string][]any
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(contents, &document))
	require.Equal(t, []any{float64(10), "abc"}, document["erfan"])
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	store, path, _ := newFileStore(t)
	store.DiffAndRecord("A", ids(1))
	require.NoError(t, store.Save(context.Background()))
	require.NoError(t, store.Save(context.Background()))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, filepath.Base(path), entries[0].Name())
}

func TestLoadCorruptState(t *testing.T) {
	for name, contents := range map[string]string{
		"truncated":   `{"A": [1, 2`,
		"not json":    `hello`,
		"wrong shape": `["A", "B"]`,
		"object ids":  `{"A": [{"id": 1}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "old_orders.json")
			require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

			tel := &telemetry.Recorder{}
			store := NewStore(NewJSONFile(path), tel)
			require.NoError(t, store.Load(context.Background()))

			require.Empty(t, store.Snapshot())
			require.True(t, tel.Has(telemetry.KindWarning, report_store_load))

			store.DiffAndRecord("A", ids(3))
			require.NoError(t, store.Save(context.Background()))

			contents, err := os.ReadFile(path)
			require.NoError(t, err)
			require.JSONEq(t, `{"A": [3]}`, string(contents))
		})
	}
}

func TestLoadMissingState(t *testing.T) {
	_, _, tel := newFileStore(t)
	require.Empty(t, tel.Reports(telemetry.KindWarning))
}

func TestLoadNullDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old_orders.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0600))

	seen, err := NewJSONFile(path).Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, seen)
}

func TestCheckWritable(t *testing.T) {
	require.NoError(t, NewJSONFile(filepath.Join(t.TempDir(), "state.json")).CheckWritable())
	require.Error(t, NewJSONFile(filepath.Join(t.TempDir(), "missing", "state.json")).CheckWritable())
}

func TestLoadCancelledKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old_orders.json")
	original := `{"A": [1, 2, 3], "B": [9]}`
	require.NoError(t, os.WriteFile(path, []byte(original), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tel := &telemetry.Recorder{}
	store := NewStore(NewJSONFile(path), tel)
	err := store.Load(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrCorrupt)
	require.Empty(t, tel.Reports(telemetry.KindWarning))

	store.DiffAndRecord("A", ids(1))
	require.ErrorIs(t, store.Save(context.Background()), ErrNotLoaded)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, string(contents))

	// a later successful load makes the store usable again
	require.NoError(t, store.Load(context.Background()))
	require.Empty(t, store.DiffAndRecord("A", ids(1, 2, 3)))
	require.NoError(t, store.Save(context.Background()))
}
