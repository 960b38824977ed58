package pulsekit

import (
	"sync"
	"time"
)

// accumulator is the concurrent-safe buffer holding not-yet-sent records.
// Producers add records under a single mutex; the flush scheduler drains by
// atomically swapping the buffers out, so a record added concurrently with a
// drain lands in exactly one of the two generations.
//
// Records are bucketed by wire schema class (events, logs) preserving
// insertion order within each bucket; a drain yields at most one batch per
// class.
type accumulator struct {
	mu        sync.Mutex
	events    []Record
	logs      []Record
	count     int
	nbytes    [2]int // estimated pending bytes per schema class
	seq       uint64
	lastFlush time.Time

	batchSize  int
	maxPending int
	maxBytes   int

	// kick receives a non-blocking signal when a flush is due. Owned by the
	// flush scheduler; capacity 1, extra signals coalesce.
	kick chan<- struct{}
}

func newAccumulator(config *Config, kick chan<- struct{}) *accumulator {
	return &accumulator{
		batchSize:  config.BatchSize,
		maxPending: config.MaxPendingRecords,
		maxBytes:   config.MaxPendingBytes,
		kick:       kick,
		lastFlush:  time.Now(),
	}
}

// add appends a record to the pending buffer. It never blocks on I/O and
// never panics; the only failure is the absolute ceiling, returned as a
// QueueFull error for the caller to route to the error callback. The record
// content is the caller's responsibility; only form is checked here.
func (a *accumulator) add(r Record) error {
	if r == nil {
		return opErr(ErrKindUnknown, ErrNilRecord)
	}
	a.mu.Lock()
	if a.count >= a.maxPending {
		a.mu.Unlock()
		return opErr(ErrKindQueueFull, ErrQueueFull)
	}
	switch r.Kind().schema() {
	case SchemaLogs:
		a.logs = append(a.logs, r)
		a.nbytes[1] += r.WireSize()
	default:
		a.events = append(a.events, r)
		a.nbytes[0] += r.WireSize()
	}
	a.count++
	due := a.count >= a.batchSize || a.nbytes[0]+a.nbytes[1] >= a.maxBytes
	a.mu.Unlock()
	if due {
		a.signal()
	}
	return nil
}

// signal requests an asynchronous flush without ever blocking the producer.
func (a *accumulator) signal() {
	select {
	case a.kick <- struct{}{}:
	default:
	}
}

// drain atomically swaps the pending buffers for fresh empty ones and
// returns the previous contents as immutable batches, at most one per schema
// class, events first. Sequence numbers are assigned in drain order. An
// empty accumulator drains to nil; draining cannot fail.
func (a *accumulator) drain() []*Batch {
	a.mu.Lock()
	events, logs := a.events, a.logs
	eventBytes, logBytes := a.nbytes[0], a.nbytes[1]
	a.events, a.logs = nil, nil
	a.nbytes[0], a.nbytes[1] = 0, 0
	a.count = 0
	a.lastFlush = time.Now()

	var batches []*Batch
	if len(events) > 0 {
		a.seq++
		batches = append(batches, &Batch{
			Seq:     a.seq,
			Schema:  SchemaEvents,
			Records: events,
			Bytes:   eventBytes,
		})
	}
	if len(logs) > 0 {
		a.seq++
		batches = append(batches, &Batch{
			Seq:     a.seq,
			Schema:  SchemaLogs,
			Records: logs,
			Bytes:   logBytes,
		})
	}
	a.mu.Unlock()
	return batches
}

// pendingCount returns the number of buffered records.
func (a *accumulator) pendingCount() int {
	a.mu.Lock()
	n := a.count
	a.mu.Unlock()
	return n
}

// sinceLastFlush reports how long ago the buffer was last drained.
func (a *accumulator) sinceLastFlush() time.Duration {
	a.mu.Lock()
	t := a.lastFlush
	a.mu.Unlock()
	return time.Since(t)
}
