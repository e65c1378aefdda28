package journal

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/crumbot/internal/trace"
)

// Sink persists a batch of records.
type Sink interface {
	Append(records ...Record) error
}

// Batcher accumulates purchase records and flushes them in batches so the
// buy loop never waits on disk.
type Batcher struct {
	sink       Sink
	session    string
	maxSize    int
	flushDelay time.Duration
	mu         sync.Mutex
	items      []Record
	timer      *time.Timer
	stopped    bool
	wg         sync.WaitGroup
	onFlush    func(n int, err error)
}

// NewBatcher creates a purchase batcher writing to sink under session.
func NewBatcher(sink Sink, session string, maxSize int, flushDelay time.Duration) *Batcher {
	if maxSize <= 0 {
		maxSize = DefaultBatchSize
	}
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	return &Batcher{
		sink:       sink,
		session:    session,
		maxSize:    maxSize,
		flushDelay: flushDelay,
		items:      make([]Record, 0, maxSize),
	}
}

// OnFlush registers a callback run after every flush attempt.
func (b *Batcher) OnFlush(fn func(n int, err error)) {
	b.mu.Lock()
	b.onFlush = fn
	b.mu.Unlock()
}

// Session returns the session id stamped on every record.
func (b *Batcher) Session() string { return b.session }

// Add queues a record. Records added after Stop are dropped.
func (b *Batcher) Add(r Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	if r.Session == "" {
		r.Session = b.session
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}
	b.items = append(b.items, r)

	if len(b.items) >= b.maxSize {
		b.flushLocked()
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.flushDelay, b.timerFlush)
	} else {
		b.timer.Reset(b.flushDelay)
	}
}

// Pending returns the number of queued records.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Batcher) timerFlush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *Batcher) flushLocked() {
	if len(b.items) == 0 {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	items := b.items
	b.items = make([]Record, 0, b.maxSize)
	onFlush := b.onFlush

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, span := trace.StartSpan(context.Background(), "journal_flush")
		defer span.End()
		span.SetAttr("count", len(items))

		log := trace.Logger(ctx)
		err := b.sink.Append(items...)
		if err != nil {
			span.SetAttr("error", err.Error())
			log.Warn("journal flush failed", "error", err, "count", len(items))
		} else {
			log.Debug("journal flushed", "count", len(items))
		}
		if onFlush != nil {
			onFlush(len(items), err)
		}
	}()
}

// Flush forces immediate flush of pending records.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Stop flushes remaining records and waits for in-flight writes.
func (b *Batcher) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.flushLocked()
	b.mu.Unlock()
	b.wg.Wait()
}
