package dispatch

import (
	"context"
	"errors"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/markdave123-py/zapdesk/internal/models"
)

var (
	ErrNotStarted = errors.New("dispatcher not started")
	ErrStopped    = errors.New("dispatcher stopped")
)

// DefaultJobTimeout bounds a single message's processing.
const DefaultJobTimeout = 2 * time.Minute

// Dispatcher fans inbound messages out to a fixed set of workers. Each phone
// number hashes to one worker, so messages from the same sender are handled
// one at a time in arrival order.
type Dispatcher struct {
	handler    Handler
	queueSize  int
	JobTimeout time.Duration

	mu      sync.RWMutex
	shards  []chan models.InboundMessage
	stopped bool
	wg      sync.WaitGroup
}

var _ Queue = (*Dispatcher)(nil)

func NewDispatcher(handler Handler, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{handler: handler, queueSize: queueSize, JobTimeout: DefaultJobTimeout}
}

// Start launches numWorkers goroutines. Workers exit when ctx is cancelled or
// after Stop has drained their queue.
func (d *Dispatcher) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shards != nil {
		return
	}

	d.shards = make([]chan models.InboundMessage, numWorkers)
	for w := range d.shards {
		jobs := make(chan models.InboundMessage, d.queueSize)
		d.shards[w] = jobs
		d.wg.Add(1)
		go d.work(ctx, w+1, jobs)
	}
	log.Printf("[dispatch] started %d workers", numWorkers)
}

func (d *Dispatcher) work(ctx context.Context, w int, jobs <-chan models.InboundMessage) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[dispatch] worker %d shutting down", w)
			return
		case msg, ok := <-jobs:
			if !ok {
				return
			}
			d.processOne(w, msg)
		}
	}
}

func (d *Dispatcher) processOne(w int, msg models.InboundMessage) {
	// Processing outlives the webhook request that enqueued it.
	jobCtx, cancel := context.WithTimeout(context.Background(), d.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[dispatch] worker %d panic processing message from %s: %v", w, msg.PhoneNumber, r)
		}
	}()

	if err := d.handler(jobCtx, msg); err != nil {
		log.Printf("[dispatch] worker %d failed processing message from %s: %v", w, msg.PhoneNumber, err)
	}
}

// Enqueue schedules msg on its sender's worker. It blocks while that queue is
// full, until ctx is done.
func (d *Dispatcher) Enqueue(ctx context.Context, msg models.InboundMessage) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}
	if d.shards == nil {
		return ErrNotStarted
	}

	select {
	case d.shards[shardFor(msg.PhoneNumber, len(d.shards))] <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop refuses new messages and waits for queued ones to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, jobs := range d.shards {
		close(jobs)
	}
	d.mu.Unlock()

	d.wg.Wait()
	log.Println("[dispatch] stopped")
}

func shardFor(phone string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return int(h.Sum32() % uint32(n))
}
