package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/eventbridge-go/bridge/event"
)

var _ Archive = (*MemArchive)(nil)

func TestMemArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("records delivery outcome per batch", func(t *testing.T) {
		a := NewMemArchive()
		defer a.Close() //nolint:errcheck

		delivered := []event.Event{
			event.New("stdout", "one", "op-001"),
			event.New("stdout", "two", "op-001"),
		}
		lost := []event.Event{event.New("stderr", "boom", "op-001")}

		if err := a.RecordBatch(ctx, delivered, true); err != nil {
			t.Fatalf("record delivered batch: %v", err)
		}
		if err := a.RecordBatch(ctx, lost, false); err != nil {
			t.Fatalf("record lost batch: %v", err)
		}

		stored, err := a.ByOperation(ctx, "op-001")
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(stored) != 3 {
			t.Fatalf("expected 3 stored events, got %d", len(stored))
		}
		if !stored[0].Delivered || !stored[1].Delivered {
			t.Error("delivered batch recorded as lost")
		}
		if stored[2].Delivered {
			t.Error("lost batch recorded as delivered")
		}
		if stored[2].RecordedAt == 0 {
			t.Error("expected a recording timestamp")
		}
	})

	t.Run("operations are isolated", func(t *testing.T) {
		a := NewMemArchive()
		defer a.Close() //nolint:errcheck

		_ = a.RecordBatch(ctx, []event.Event{event.New("stdout", "a", "op-001")}, true)
		_ = a.RecordBatch(ctx, []event.Event{event.New("stdout", "b", "op-002")}, true)

		stored, err := a.ByOperation(ctx, "op-002")
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(stored) != 1 || stored[0].Event.Content != "b" {
			t.Errorf("unexpected events for op-002: %+v", stored)
		}
	})

	t.Run("unknown operation returns an empty slice", func(t *testing.T) {
		a := NewMemArchive()
		defer a.Close() //nolint:errcheck

		stored, err := a.ByOperation(ctx, "op-missing")
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(stored) != 0 {
			t.Errorf("expected no events, got %d", len(stored))
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		a := NewMemArchive()
		defer a.Close() //nolint:errcheck

		if err := a.RecordBatch(ctx, nil, true); err != nil {
			t.Fatalf("empty batch should be accepted: %v", err)
		}
	})

	t.Run("closed archive rejects all operations", func(t *testing.T) {
		a := NewMemArchive()
		if err := a.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		if err := a.RecordBatch(ctx, []event.Event{event.New("stdout", "x", "op-001")}, true); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
		if _, err := a.ByOperation(ctx, "op-001"); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
		if err := a.Close(); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed on double close, got %v", err)
		}
	})
}
