package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/garyjia/office-orders/internal/domain/event"
	"github.com/garyjia/office-orders/pkg/metrics"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, fmt.Sprint(append([]interface{}{msg}, keysAndValues...)...))
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func (m *mockLogger) HasInfo(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.infos {
		if info == msg {
			return true
		}
	}
	return false
}

func submitted() *event.Event {
	return event.NewEvent(event.TypeTaskSubmitted, "task-1", map[string]interface{}{
		event.KeyCoverPageNo: "OO/2025/1",
		event.KeyAssignedTo:  "u-rev",
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("auto-generated names are unique per type", func(t *testing.T) {
		d := NewDispatcher()
		noop := func(ctx context.Context, evt *event.Event) error { return nil }

		d.Subscribe(event.TypeTaskSubmitted, noop)
		d.Subscribe(event.TypeTaskSubmitted, noop)

		handlers := d.ListHandlers(event.TypeTaskSubmitted)
		if len(handlers) != 2 {
			t.Fatalf("expected 2 handlers, got %d", len(handlers))
		}
		if handlers[0].Name == handlers[1].Name {
			t.Errorf("expected distinct names, got %q twice", handlers[0].Name)
		}
	})

	t.Run("handlers only receive their own type", func(t *testing.T) {
		d := NewDispatcher()
		var approved, submittedCalls int

		d.Subscribe(event.TypeTaskApproved, func(ctx context.Context, evt *event.Event) error {
			approved++
			return nil
		})
		d.Subscribe(event.TypeTaskSubmitted, func(ctx context.Context, evt *event.Event) error {
			submittedCalls++
			return nil
		})

		if err := d.Dispatch(context.Background(), submitted()); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
		if approved != 0 || submittedCalls != 1 {
			t.Errorf("expected only the submitted handler, got approved=%d submitted=%d", approved, submittedCalls)
		}
	})
}

func TestSubscribeNamed(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))

	d.SubscribeNamed(event.TypeTaskApproved, "archiver", func(ctx context.Context, evt *event.Event) error {
		return nil
	}, Describe("stores the approved office order"))

	handlers := d.ListHandlers(event.TypeTaskApproved)
	if len(handlers) != 1 {
		t.Fatalf("expected 1 handler, got %d", len(handlers))
	}
	if handlers[0].Name != "archiver" || handlers[0].Description != "stores the approved office order" {
		t.Errorf("unexpected handler info %+v", handlers[0])
	}
	if handlers[0].Handler != nil {
		t.Error("expected handler function to be hidden")
	}
	if !logger.HasInfo("Handler registered") {
		t.Error("expected registration to be logged")
	}
}

func TestDispatch(t *testing.T) {
	t.Run("runs handlers in order", func(t *testing.T) {
		d := NewDispatcher()
		var order []int

		for i := 1; i <= 3; i++ {
			d.Subscribe(event.TypeTaskSaved, func(ctx context.Context, evt *event.Event) error {
				order = append(order, i)
				return nil
			})
		}

		evt := event.NewEvent(event.TypeTaskSaved, "task-1", nil)
		if err := d.Dispatch(context.Background(), evt); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
		if fmt.Sprint(order) != "[1 2 3]" {
			t.Errorf("expected handlers to run in order, got %v", order)
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		d := NewDispatcher()
		expectedErr := errors.New("lark unavailable")
		called := false

		d.SubscribeNamed(event.TypeTaskSubmitted, "notifier", func(ctx context.Context, evt *event.Event) error {
			return expectedErr
		})
		d.Subscribe(event.TypeTaskSubmitted, func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})

		before := testutil.ToFloat64(metrics.EventHandlersTotal.WithLabelValues("task.submitted", "notifier", "error"))
		err := d.Dispatch(context.Background(), submitted())

		if !errors.Is(err, expectedErr) {
			t.Fatalf("expected error to wrap %v, got %v", expectedErr, err)
		}
		if called {
			t.Error("expected second handler not to run after the first error")
		}
		after := testutil.ToFloat64(metrics.EventHandlersTotal.WithLabelValues("task.submitted", "notifier", "error"))
		if after-before != 1 {
			t.Errorf("expected one failed run to be counted, got %v", after-before)
		}
	})

	t.Run("recovers from handler panic", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))

		d.Subscribe(event.TypeTaskDeleted, func(ctx context.Context, evt *event.Event) error {
			panic("boom")
		})

		err := d.Dispatch(context.Background(), event.NewEvent(event.TypeTaskDeleted, "task-1", nil))
		if err == nil {
			t.Fatal("expected error from panic recovery")
		}
		if logger.ErrorCount() == 0 {
			t.Error("expected panic to be logged")
		}
	})

	t.Run("refuses after close", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if err := d.Dispatch(context.Background(), submitted()); err == nil {
			t.Fatal("expected error when dispatching to a closed dispatcher")
		}
		if err := d.Close(); err == nil {
			t.Error("expected second close to fail")
		}
	})
}

func TestDispatchAsync(t *testing.T) {
	t.Run("handlers outlive the publishing context", func(t *testing.T) {
		d := NewDispatcher()
		release := make(chan struct{})
		var ctxErr atomic.Value

		d.Subscribe(event.TypeTaskApproved, func(ctx context.Context, evt *event.Event) error {
			<-release
			ctxErr.Store(fmt.Sprint(ctx.Err()))
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		d.DispatchAsync(ctx, event.NewEvent(event.TypeTaskApproved, "task-1", nil))
		cancel()
		close(release)

		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if got := ctxErr.Load(); got != "<nil>" {
			t.Errorf("expected handler context to stay alive, got %v", got)
		}
	})

	t.Run("applies handler timeout", func(t *testing.T) {
		d := NewDispatcher(WithHandlerTimeout(20 * time.Millisecond))
		var timedOut atomic.Bool

		d.Subscribe(event.TypeTaskSaved, func(ctx context.Context, evt *event.Event) error {
			<-ctx.Done()
			timedOut.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
			return ctx.Err()
		})

		d.DispatchAsync(context.Background(), event.NewEvent(event.TypeTaskSaved, "task-1", nil))
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if !timedOut.Load() {
			t.Error("expected handler to hit its deadline")
		}
	})

	t.Run("errors are logged, not returned", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))

		d.Subscribe(event.TypeTaskReturned, func(ctx context.Context, evt *event.Event) error {
			return errors.New("failed")
		})

		d.DispatchAsync(context.Background(), event.NewEvent(event.TypeTaskReturned, "task-1", nil))
		_ = d.Close()

		if logger.ErrorCount() != 1 {
			t.Errorf("expected 1 logged error, got %d", logger.ErrorCount())
		}
	})

	t.Run("dropped after close", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		var called atomic.Bool
		d.Subscribe(event.TypeTaskSaved, func(ctx context.Context, evt *event.Event) error {
			called.Store(true)
			return nil
		})

		_ = d.Close()
		d.DispatchAsync(context.Background(), event.NewEvent(event.TypeTaskSaved, "task-1", nil))

		if called.Load() {
			t.Error("expected no handler to run after close")
		}
		if logger.ErrorCount() != 1 {
			t.Errorf("expected the dropped event to be logged, got %d errors", logger.ErrorCount())
		}
	})
}

func TestConcurrency(t *testing.T) {
	d := NewDispatcher()
	var count atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Subscribe(event.TypeTaskStatusChanged, func(ctx context.Context, evt *event.Event) error {
				count.Add(1)
				return nil
			})
		}()
	}
	wg.Wait()

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.DispatchAsync(context.Background(), event.NewEvent(event.TypeTaskStatusChanged, "task-1", nil))
		}()
	}
	wg.Wait()
	_ = d.Close()

	if got := count.Load(); got != 50 {
		t.Errorf("expected 50 handler runs, got %d", got)
	}
}
