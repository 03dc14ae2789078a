// Package storetest holds the behavioral suite every recordstore backend
// must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/tenken/internal/recordstore"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) recordstore.Store

// Unencodable is a field value no backend can persist. Batches carrying it
// must fail without applying any of their writes.
var Unencodable = make(chan int)

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s recordstore.Store)
	}{
		{"GetMissing", testGetMissing},
		{"SetReplace", testSetReplace},
		{"SetMerge", testSetMerge},
		{"ListOrderedByID", testListOrdered},
		{"DeleteIdempotent", testDeleteIdempotent},
		{"BatchAppliesAll", testBatchAppliesAll},
		{"BatchAtomic", testBatchAtomic},
		{"CollectionsIsolated", testCollectionsIsolated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

func testGetMissing(t *testing.T, s recordstore.Store) {
	_, err := s.Get(context.Background(), "dailyChecks", "nope")
	assert.ErrorIs(t, err, recordstore.ErrNotFound)
}

func testSetReplace(t *testing.T, s recordstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "dailySettings", "t1", recordstore.Document{
		"item": "Filter", "place": "RoomA", "day": "月", "visible": true,
	}, false))
	require.NoError(t, s.Set(ctx, "dailySettings", "t1", recordstore.Document{
		"item": "Filter", "place": "RoomB", "day": "火",
	}, false))

	got, err := s.Get(ctx, "dailySettings", "t1")
	require.NoError(t, err)
	assert.Equal(t, "RoomB", got["place"])
	assert.Equal(t, "火", got["day"])
	assert.NotContains(t, got, "visible", "replace drops fields absent from the write")
}

func testSetMerge(t *testing.T, s recordstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "weeklyChecks", "t1", recordstore.Document{
		"timestamp": "2024-02-26", "user": "Ann", "note": "belt worn",
	}, false))
	require.NoError(t, s.Set(ctx, "weeklyChecks", "t1", recordstore.Document{
		"timestamp": "2024-03-04", "user": "Bob",
	}, true))

	got, err := s.Get(ctx, "weeklyChecks", "t1")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", got["timestamp"])
	assert.Equal(t, "Bob", got["user"])
	assert.Equal(t, "belt worn", got["note"])

	require.NoError(t, s.Set(ctx, "weeklyChecks", "t2", recordstore.Document{"user": "Bob"}, true))
	got, err = s.Get(ctx, "weeklyChecks", "t2")
	require.NoError(t, err)
	assert.Equal(t, "Bob", got["user"], "merge into an absent record creates it")
}

func testListOrdered(t *testing.T, s recordstore.Store) {
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Set(ctx, "monthlySettings", id, recordstore.Document{"item": id}, false))
	}

	records, err := s.List(ctx, "monthlySettings")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{records[0].ID, records[1].ID, records[2].ID})
	assert.Equal(t, "b", records[1].Fields["item"])

	empty, err := s.List(ctx, "yearlySettings")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testDeleteIdempotent(t *testing.T, s recordstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "yearlyChecks", "t1", recordstore.Document{"user": "Bob"}, false))
	require.NoError(t, s.Delete(ctx, "yearlyChecks", "t1"))
	require.NoError(t, s.Delete(ctx, "yearlyChecks", "t1"))

	_, err := s.Get(ctx, "yearlyChecks", "t1")
	assert.ErrorIs(t, err, recordstore.ErrNotFound)
}

func testBatchAppliesAll(t *testing.T, s recordstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "dailySettings", "old", recordstore.Document{"item": "Old"}, false))
	require.NoError(t, s.Set(ctx, "dailyChecks", "old", recordstore.Document{"user": "Ann", "note": "x"}, false))
	require.NoError(t, s.Set(ctx, "dailyChecks", "keep", recordstore.Document{"user": "Ann", "note": "kept"}, false))

	err := s.Batch(ctx, []recordstore.Write{
		recordstore.Set("dailySettings", "new", recordstore.Document{"item": "New"}),
		recordstore.Remove("dailySettings", "old"),
		recordstore.Remove("dailyChecks", "old"),
		recordstore.Remove("dailyChecks", "never-existed"),
		recordstore.MergeSet("dailyChecks", "keep", recordstore.Document{"user": "Bob", "timestamp": "2024-03-04"}),
	})
	require.NoError(t, err)

	_, err = s.Get(ctx, "dailySettings", "old")
	assert.ErrorIs(t, err, recordstore.ErrNotFound)
	_, err = s.Get(ctx, "dailyChecks", "old")
	assert.ErrorIs(t, err, recordstore.ErrNotFound)

	got, err := s.Get(ctx, "dailySettings", "new")
	require.NoError(t, err)
	assert.Equal(t, "New", got["item"])

	kept, err := s.Get(ctx, "dailyChecks", "keep")
	require.NoError(t, err)
	assert.Equal(t, "Bob", kept["user"])
	assert.Equal(t, "kept", kept["note"])
}

func testBatchAtomic(t *testing.T, s recordstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "weeklySettings", "t1", recordstore.Document{"item": "Belt"}, false))

	err := s.Batch(ctx, []recordstore.Write{
		recordstore.Set("weeklySettings", "t2", recordstore.Document{"item": "Pump"}),
		recordstore.Remove("weeklySettings", "t1"),
		recordstore.Set("weeklySettings", "t3", recordstore.Document{"bad": Unencodable}),
	})
	require.Error(t, err)

	_, err = s.Get(ctx, "weeklySettings", "t2")
	assert.ErrorIs(t, err, recordstore.ErrNotFound, "no write of a failed batch may persist")
	got, err := s.Get(ctx, "weeklySettings", "t1")
	require.NoError(t, err)
	assert.Equal(t, "Belt", got["item"])
}

func testCollectionsIsolated(t *testing.T, s recordstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "dailySettings", "t1", recordstore.Document{"item": "A"}, false))
	require.NoError(t, s.Set(ctx, "weeklySettings", "t1", recordstore.Document{"item": "B"}, false))

	daily, err := s.Get(ctx, "dailySettings", "t1")
	require.NoError(t, err)
	assert.Equal(t, "A", daily["item"])

	records, err := s.List(ctx, "weeklySettings")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "B", records[0].Fields["item"])
}
