//go:build integration

package integration_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nateberkopec/chime/internal/bridge"
	"github.com/nateberkopec/chime/internal/persistence"
	"github.com/nateberkopec/chime/internal/reminder"
)

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) Notify(_, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

// TestReminderLoopRealTime runs the loop with real sleeps at the minimum
// interval, stops it through the status file and checks it goes quiet.
func TestReminderLoopRealTime(t *testing.T) {
	store, err := persistence.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.WriteConfig(persistence.MinIntervalSeconds); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	notifier := &countingNotifier{}
	loop := reminder.New(reminder.Config{
		Store:    store,
		Notifier: notifier,
		Logger:   zerolog.Nop(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(16 * time.Second)

	rec := store.ReadStatus()
	if rec == nil {
		t.Fatal("expected a status record while running")
	}
	if !rec.Running {
		t.Fatalf("expected running=true, got %+v", rec)
	}
	if rec.NoticeCount < 3 {
		t.Fatalf("expected at least 3 notices after 16s, got %d", rec.NoticeCount)
	}

	if err := bridge.New(store, nil).RequestStop(); err != nil {
		t.Fatalf("RequestStop: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(persistence.MinIntervalSeconds*time.Second + 3*time.Second):
		t.Fatal("loop did not exit within one interval of the stop request")
	}

	logs := store.ReadLogTail(0)
	if !strings.Contains(logs, "Stop requested externally; service exiting") {
		t.Fatalf("missing stop line in log:\n%s", logs)
	}
	calls := notifier.count()

	time.Sleep(persistence.MinIntervalSeconds*time.Second + time.Second)

	if after := store.ReadLogTail(0); after != logs {
		t.Fatalf("log grew after the loop exited:\n%s", after)
	}
	if notifier.count() != calls {
		t.Fatalf("notifier called after exit")
	}
	if rec := store.ReadStatus(); rec == nil || rec.Running {
		t.Fatalf("expected running=false after exit, got %+v", rec)
	}
}
