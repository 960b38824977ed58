package pulsekit

import (
	"time"
)

// flushScheduler owns the send lifecycle end to end: it is the only caller
// of accumulator.drain and the only user of the transport. One goroutine
// runs the loop, so at most one flush cycle is ever in flight; triggers that
// arrive mid-cycle coalesce in the capacity-1 kick channel instead of
// spawning parallel cycles.
type flushScheduler struct {
	*Config
	acc       *accumulator
	transport Transport
	policy    *retryPolicy

	// kick is signaled by the accumulator when a size threshold is crossed.
	kick chan struct{}
	// flushReq carries manual flush requests; the reply channel lets the
	// caller block until the cycle resolves.
	flushReq chan chan error
	// done is closed on shutdown. It stops the loop and interrupts any
	// in-flight retry sleep.
	done chan struct{}
	// stopped is closed when the loop goroutine exits.
	stopped chan struct{}
	// inflight gates the single send slot shared by the loop and the final
	// close-time flush.
	inflight semaphore
}

func newFlushScheduler(config *Config, acc *accumulator, transport Transport, kick chan struct{}) *flushScheduler {
	return &flushScheduler{
		Config:    config,
		acc:       acc,
		transport: transport,
		policy:    newRetryPolicy(config),
		kick:      kick,
		flushReq:  make(chan chan error),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		inflight:  make(semaphore, 1),
	}
}

func (s *flushScheduler) start() {
	go s.loop()
}

// loop flushes at the configured interval, when the accumulator crosses a
// threshold, or on manual request, until shutdown.
func (s *flushScheduler) loop() {
	ticker := time.NewTicker(s.FlushInterval)
	defer ticker.Stop()
	defer close(s.stopped)

	for {
		select {
		case <-s.kick:
			s.runCycles("batch threshold")
		case <-ticker.C:
			if s.Verbose {
				s.Logger.Info("interval flush", LogValue{"idle", s.acc.sinceLastFlush().String()})
			}
			s.runCycles("interval")
		case reply := <-s.flushReq:
			reply <- s.runCycles("manual")
		case <-s.done:
			return
		}
	}
}

// runCycles runs one cycle, then keeps going while the accumulator still
// holds a full batch, so backlog built up during a slow send drains without
// waiting for the next trigger.
func (s *flushScheduler) runCycles(reason string) error {
	err := s.runCycle(reason, s.done)
	for s.acc.pendingCount() >= s.BatchSize {
		select {
		case <-s.done:
			return err
		default:
		}
		if e := s.runCycle("pending backlog", s.done); err == nil {
			err = e
		}
	}
	return err
}

// runCycle drains the accumulator and sends the resulting batches in
// sequence order. An empty drain performs no network I/O. abort interrupts
// retry waits.
func (s *flushScheduler) runCycle(reason string, abort <-chan struct{}) error {
	s.inflight.acquire()
	defer s.inflight.release()

	batches := s.acc.drain()
	if len(batches) == 0 {
		return nil
	}
	var firstErr error
	for _, batch := range batches {
		if err := s.sendBatch(batch, reason, abort); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// sendBatch encodes and transmits one batch, applying the retry policy on
// transient failures. On give-up the batch is dropped and reported; pending
// records in the accumulator are unaffected.
func (s *flushScheduler) sendBatch(b *Batch, reason string, abort <-chan struct{}) error {
	s.Logger.Info("flushing records",
		LogValue{"reason", reason},
		LogValue{"batch", b.Seq},
		LogValue{"schema", b.Schema},
		LogValue{"records", len(b.Records)},
	)

	frame, err := encodeFrame(s.APIKey, b)
	if err != nil {
		s.fail(b, 0, err)
		return err
	}

	attempt := 0
	for {
		attempt++
		err = s.attemptSend(frame)
		if err == nil {
			if s.Verbose {
				s.Logger.Info("batch sent",
					LogValue{"batch", b.Seq},
					LogValue{"bytes", len(frame)},
					LogValue{"attempts", attempt},
				)
			}
			return nil
		}

		action := s.policy.nextAction(attempt, kindOf(err))
		if !action.retry {
			s.fail(b, attempt, err)
			return err
		}
		s.Logger.Info("send failure",
			LogValue{"batch", b.Seq},
			LogValue{"attempt", attempt},
			LogValue{"backoff", action.delay.String()},
		)
		if !s.wait(action.delay, abort) {
			s.fail(b, attempt, opErr(ErrKindClientClosed, ErrClientClosed))
			return opErr(ErrKindClientClosed, ErrClientClosed)
		}
	}
}

// attemptSend lazily reconnects before each send; a failed send leaves the
// transport disconnected for the next attempt to re-establish.
func (s *flushScheduler) attemptSend(frame []byte) error {
	if err := s.transport.Connect(s.ConnectTimeout); err != nil {
		return err
	}
	return s.transport.Send(frame, s.SendTimeout)
}

// wait sleeps for the backoff delay. Reports false if aborted by shutdown.
func (s *flushScheduler) wait(d time.Duration, abort <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-abort:
		return false
	}
}

func (s *flushScheduler) fail(b *Batch, attempts int, err error) {
	s.Logger.Error("dropping batch", err,
		LogValue{"batch", b.Seq},
		LogValue{"records", len(b.Records)},
		LogValue{"attempts", attempts},
	)
	notifyFailure(s.Config, &FailureRecord{
		Err:         err,
		Kind:        kindOf(err),
		BatchSeq:    b.Seq,
		RecordCount: len(b.Records),
		Attempts:    attempts,
	})
}

// flush triggers a cycle and blocks the caller until it resolves.
func (s *flushScheduler) flush() error {
	reply := make(chan error, 1)
	select {
	case s.flushReq <- reply:
		select {
		case err := <-reply:
			return err
		case <-s.stopped:
			return opErr(ErrKindClientClosed, ErrClientClosed)
		}
	case <-s.stopped:
		return opErr(ErrKindClientClosed, ErrClientClosed)
	}
}

// close stops the loop and attempts one final flush bounded by CloseTimeout.
// It never hangs shutdown: if the final flush cannot complete in time it is
// abandoned and reported.
func (s *flushScheduler) close() error {
	close(s.done)
	<-s.stopped

	abort := make(chan struct{})
	timer := time.AfterFunc(s.CloseTimeout, func() { close(abort) })
	defer timer.Stop()

	result := make(chan error, 1)
	go func() { result <- s.runCycle("close", abort) }()

	select {
	case err := <-result:
		return err
	case <-abort:
		err := opErrf(ErrKindClientClosed, "final flush timed out after %s", s.CloseTimeout)
		s.Logger.Error("close", err)
		return err
	}
}
