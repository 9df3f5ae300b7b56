package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dshills/eventbridge-go/bridge/event"
)

var _ Archive = (*SQLiteArchive)(nil)

func newTestSQLite(t *testing.T) *SQLiteArchive {
	t.Helper()
	a, err := NewSQLiteArchive(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestSQLiteArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips a batch with all fields", func(t *testing.T) {
		a := newTestSQLite(t)

		ev := event.New("tool_result", "22/tcp open", "op-001")
		ev.SessionID = "sess-1"
		ev.UserID = "analyst-7"
		ev.Metadata.Set("exit_code", event.Int(0))
		ev.Metadata.Set("duration_ms", event.Number(1234.5))
		ev.Metadata.Set("cached", event.Bool(false))

		if err := a.RecordBatch(ctx, []event.Event{ev}, true); err != nil {
			t.Fatalf("record failed: %v", err)
		}

		stored, err := a.ByOperation(ctx, "op-001")
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(stored) != 1 {
			t.Fatalf("expected 1 stored event, got %d", len(stored))
		}
		got := stored[0]
		if got.Event.ID != ev.ID || got.Event.Type != ev.Type || got.Event.Content != ev.Content {
			t.Errorf("identity fields lost: %+v", got.Event)
		}
		if got.Event.Timestamp != ev.Timestamp {
			t.Errorf("expected timestamp %d, got %d", ev.Timestamp, got.Event.Timestamp)
		}
		if got.Event.SessionID != "sess-1" || got.Event.UserID != "analyst-7" {
			t.Errorf("optional fields lost: %+v", got.Event)
		}
		if !got.Delivered {
			t.Error("expected delivered flag")
		}

		meta := got.Event.Metadata
		if v, ok := meta.Get("exit_code"); !ok || v.Num() != 0 {
			t.Errorf("exit_code lost: %+v ok=%v", v, ok)
		}
		if v, ok := meta.Get("duration_ms"); !ok || v.Num() != 1234.5 {
			t.Errorf("duration_ms lost: %+v ok=%v", v, ok)
		}
		if v, ok := meta.Get("cached"); !ok || v.Boolean() {
			t.Errorf("cached lost: %+v ok=%v", v, ok)
		}
	})

	t.Run("preserves record order across batches", func(t *testing.T) {
		a := newTestSQLite(t)

		for i, content := range []string{"first", "second", "third"} {
			delivered := i != 1
			if err := a.RecordBatch(ctx, []event.Event{event.New("stdout", content, "op-001")}, delivered); err != nil {
				t.Fatalf("record %d failed: %v", i, err)
			}
		}

		stored, err := a.ByOperation(ctx, "op-001")
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(stored) != 3 {
			t.Fatalf("expected 3 events, got %d", len(stored))
		}
		for i, want := range []string{"first", "second", "third"} {
			if stored[i].Event.Content != want {
				t.Errorf("position %d: expected %q, got %q", i, want, stored[i].Event.Content)
			}
		}
		if stored[1].Delivered {
			t.Error("middle batch should be recorded as lost")
		}
	})

	t.Run("operations are isolated", func(t *testing.T) {
		a := newTestSQLite(t)

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

	t.Run("in-memory database works", func(t *testing.T) {
		a, err := NewSQLiteArchive(":memory:")
		if err != nil {
			t.Fatalf("failed to open in-memory archive: %v", err)
		}
		defer a.Close() //nolint:errcheck

		if err := a.Ping(ctx); err != nil {
			t.Fatalf("ping failed: %v", err)
		}
		if err := a.RecordBatch(ctx, []event.Event{event.New("stdout", "x", "op-001")}, true); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	})

	t.Run("closed archive rejects all operations", func(t *testing.T) {
		a, err := NewSQLiteArchive(":memory:")
		if err != nil {
			t.Fatalf("failed to open archive: %v", err)
		}
		if err := a.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		if err := a.RecordBatch(ctx, []event.Event{event.New("stdout", "x", "op-001")}, true); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
		if _, err := a.ByOperation(ctx, "op-001"); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
		if err := a.Ping(ctx); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})
}
