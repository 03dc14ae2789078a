package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/recordstore/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) recordstore.Store {
		return New()
	})
}

func TestFail(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("unavailable")

	s.Fail(OpList, boom)
	if _, err := s.List(ctx, "dailySettings"); !errors.Is(err, boom) {
		t.Fatalf("List() error = %v, want %v", err, boom)
	}

	s.Fail(OpList, nil)
	if _, err := s.List(ctx, "dailySettings"); err != nil {
		t.Fatalf("List() after clearing fault error = %v", err)
	}
	if got := s.Calls(OpList); got != 2 {
		t.Errorf("Calls(OpList) = %d, want 2", got)
	}
}

func TestFailWrite_BatchAppliesNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("write rejected")
	s.FailWrite("weeklyChecks", "t2", boom)

	err := s.Batch(ctx, []recordstore.Write{
		recordstore.MergeSet("weeklyChecks", "t1", recordstore.Document{"user": "Bob"}),
		recordstore.MergeSet("weeklyChecks", "t2", recordstore.Document{"user": "Bob"}),
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Batch() error = %v, want %v", err, boom)
	}
	if _, err := s.Get(ctx, "weeklyChecks", "t1"); !errors.Is(err, recordstore.ErrNotFound) {
		t.Errorf("Get(t1) error = %v, want ErrNotFound", err)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := New().Set(ctx, "memos", "m", recordstore.Document{}, false); !errors.Is(err, context.Canceled) {
		t.Errorf("Set() error = %v, want context.Canceled", err)
	}
}
