package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m := NewManager(cfg, nil)
	t.Cleanup(m.Close)
	return m
}

func waitTerminal(t *testing.T, m *Manager, id string) Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := m.Get(id, true)
		if !ok {
			t.Fatalf("job %s disappeared before reaching a terminal state", id)
		}
		if rec.Status == StatusCompleted || rec.Status == StatusFailed {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return Record{}
}

func TestJobLifecycle(t *testing.T) {
	m := newTestManager(t, Config{})
	release := make(chan struct{})
	rec, ok := m.Submit(func(ctx context.Context) (any, error) {
		<-release
		return map[string]int{"enriched": 7}, nil
	})
	if !ok {
		t.Fatal("submit rejected")
	}
	if rec.Status != StatusQueued {
		t.Fatalf("submit status: want=queued got=%s", rec.Status)
	}
	if rec.SubmittedAt.IsZero() {
		t.Fatal("submitted_at not set")
	}

	mid, ok := m.Get(rec.ID, false)
	if !ok {
		t.Fatal("job not found mid-flight")
	}
	if mid.Status != StatusQueued && mid.Status != StatusRunning {
		t.Fatalf("mid-flight status: want queued|running got=%s", mid.Status)
	}

	close(release)
	final := waitTerminal(t, m, rec.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("final status: want=completed got=%s (error=%q)", final.Status, final.Error)
	}
	if final.Result == nil {
		t.Fatal("completed job has nil result")
	}
	if final.FinishedAt == nil {
		t.Fatal("completed job has nil finished_at")
	}
}

func TestJobFailureTruncatesError(t *testing.T) {
	m := newTestManager(t, Config{})
	rec, _ := m.Submit(func(ctx context.Context) (any, error) {
		return nil, errors.New(strings.Repeat("x", 600))
	})
	final := waitTerminal(t, m, rec.ID)
	if final.Status != StatusFailed {
		t.Fatalf("final status: want=failed got=%s", final.Status)
	}
	if len(final.Error) != maxErrorLen {
		t.Fatalf("error length: want=%d got=%d", maxErrorLen, len(final.Error))
	}
	if final.Result != nil {
		t.Fatal("failed job carries a result")
	}
}

func TestSubmitQueueFullReportsReason(t *testing.T) {
	m := newTestManager(t, Config{Concurrency: 1, QueueSize: 1})
	release := make(chan struct{})
	defer close(release)

	blocker := func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	}
	running, ok := m.Submit(blocker)
	if !ok {
		t.Fatal("first submit rejected")
	}
	// Wait until the worker has taken the first job off the channel so
	// the second submit deterministically occupies the only queue slot.
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec, found := m.Get(running.ID, false)
		if found && rec.Status == StatusRunning {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first job never started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := m.Submit(blocker); !ok {
		t.Fatal("second submit rejected")
	}

	rejected, ok := m.Submit(blocker)
	if ok {
		t.Fatal("third submit accepted with a full queue")
	}
	if rejected.Status != StatusFailed {
		t.Fatalf("rejected status: want=failed got=%s", rejected.Status)
	}
	if rejected.Error != "job queue full" {
		t.Fatalf("rejected error: want=%q got=%q", "job queue full", rejected.Error)
	}
}

func TestGetUnknownJob(t *testing.T) {
	m := newTestManager(t, Config{})
	if _, ok := m.Get("not-a-job", true); ok {
		t.Fatal("unknown job reported as found")
	}
}

func TestGetWithoutResultStripsPayload(t *testing.T) {
	m := newTestManager(t, Config{})
	rec, _ := m.Submit(func(ctx context.Context) (any, error) {
		return "payload", nil
	})
	waitTerminal(t, m, rec.ID)
	got, ok := m.Get(rec.ID, false)
	if !ok {
		t.Fatal("job not found")
	}
	if got.Result != nil {
		t.Fatalf("includeResult=false still returned a result: %v", got.Result)
	}
}

func TestLedgerPrunesByTTL(t *testing.T) {
	m := newTestManager(t, Config{RecordTTL: time.Minute})
	rec, _ := m.Submit(func(ctx context.Context) (any, error) {
		return "done", nil
	})
	waitTerminal(t, m, rec.ID)

	m.mu.Lock()
	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	m.mu.Unlock()

	// Any mutation triggers pruning.
	m.Submit(func(ctx context.Context) (any, error) { return nil, nil })
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := m.Get(rec.ID, false); !ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("terminal job survived past the record TTL")
}

func TestLedgerBoundedByMaxRecords(t *testing.T) {
	m := newTestManager(t, Config{MaxRecords: 3})
	ids := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		rec, _ := m.Submit(func(ctx context.Context) (any, error) {
			return nil, nil
		})
		ids = append(ids, rec.ID)
	}
	for _, id := range ids {
		waitTerminalOrPruned(m, id)
	}
	m.mu.Lock()
	n := len(m.records)
	m.mu.Unlock()
	if n > 3 {
		t.Fatalf("ledger size: want<=3 got=%d", n)
	}
}

func waitTerminalOrPruned(m *Manager, id string) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := m.Get(id, false)
		if !ok || rec.Status == StatusCompleted || rec.Status == StatusFailed {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}
