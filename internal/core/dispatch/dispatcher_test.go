package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/markdave123-py/zapdesk/internal/models"
)

func TestDispatcher_PreservesPerPhoneOrder(t *testing.T) {
	var mu sync.Mutex
	seen := map[string][]string{}
	var inFlight sync.Map

	d := NewDispatcher(func(_ context.Context, msg models.InboundMessage) error {
		if _, busy := inFlight.LoadOrStore(msg.PhoneNumber, true); busy {
			t.Errorf("concurrent processing for %s", msg.PhoneNumber)
		}
		defer inFlight.Delete(msg.PhoneNumber)
		time.Sleep(time.Millisecond)

		mu.Lock()
		seen[msg.PhoneNumber] = append(seen[msg.PhoneNumber], msg.Text)
		mu.Unlock()
		return nil
	}, 8)
	d.Start(context.Background(), 4)

	phones := []string{"+551100000001", "+551100000002", "+551100000003"}
	for i := 0; i < 10; i++ {
		for _, p := range phones {
			if err := d.Enqueue(context.Background(), models.InboundMessage{PhoneNumber: p, Text: fmt.Sprint(i)}); err != nil {
				t.Fatalf("Enqueue: %v", err)
			}
		}
	}
	d.Stop()

	for _, p := range phones {
		got := seen[p]
		if len(got) != 10 {
			t.Fatalf("%s processed %d messages; want 10", p, len(got))
		}
		for i, text := range got {
			if text != fmt.Sprint(i) {
				t.Errorf("%s message %d = %s; want %d", p, i, text, i)
			}
		}
	}
}

func TestDispatcher_HandlerErrorDoesNotStopWorker(t *testing.T) {
	var calls int32
	d := NewDispatcher(func(_ context.Context, msg models.InboundMessage) error {
		atomic.AddInt32(&calls, 1)
		if msg.Text == "boom" {
			return errors.New("boom")
		}
		if msg.Text == "panic" {
			panic("panic")
		}
		return nil
	}, 4)
	d.Start(context.Background(), 1)

	for _, text := range []string{"boom", "panic", "ok"} {
		if err := d.Enqueue(context.Background(), models.InboundMessage{PhoneNumber: "+1", Text: text}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	d.Stop()

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d; want 3", got)
	}
}

func TestDispatcher_EnqueueLifecycle(t *testing.T) {
	d := NewDispatcher(func(context.Context, models.InboundMessage) error { return nil }, 1)

	if err := d.Enqueue(context.Background(), models.InboundMessage{PhoneNumber: "+1"}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Enqueue before Start = %v; want ErrNotStarted", err)
	}

	d.Start(context.Background(), 2)
	d.Stop()
	d.Stop()

	if err := d.Enqueue(context.Background(), models.InboundMessage{PhoneNumber: "+1"}); !errors.Is(err, ErrStopped) {
		t.Errorf("Enqueue after Stop = %v; want ErrStopped", err)
	}
}

func TestDispatcher_EnqueueRespectsContext(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(func(context.Context, models.InboundMessage) error {
		<-release
		return nil
	}, 1)
	d.Start(context.Background(), 1)
	defer func() {
		close(release)
		d.Stop()
	}()

	msg := models.InboundMessage{PhoneNumber: "+1"}
	// One message in flight, one buffered.
	for i := 0; i < 2; i++ {
		if err := d.Enqueue(context.Background(), msg); err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
	}
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Enqueue(ctx, msg); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Enqueue on full queue = %v; want DeadlineExceeded", err)
	}
}

func TestShardFor_Stable(t *testing.T) {
	for _, n := range []int{1, 3, 8} {
		a := shardFor("+5511999999999", n)
		if a < 0 || a >= n {
			t.Fatalf("shardFor out of range: %d (n=%d)", a, n)
		}
		if b := shardFor("+5511999999999", n); a != b {
			t.Errorf("shardFor not stable: %d vs %d", a, b)
		}
	}
}
