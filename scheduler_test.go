package pulsekit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stuckTransport blocks every send until released, to exercise the bounded
// shutdown path.
type stuckTransport struct {
	release chan struct{}
	once    sync.Once
}

func newStuckTransport() *stuckTransport {
	return &stuckTransport{release: make(chan struct{})}
}

func (s *stuckTransport) Connect(time.Duration) error { return nil }

func (s *stuckTransport) Send([]byte, time.Duration) error {
	<-s.release
	return nil
}

func (s *stuckTransport) Close() error {
	s.once.Do(func() { close(s.release) })
	return nil
}

func TestCloseNeverHangs(t *testing.T) {
	stuck := newStuckTransport()
	config := &Config{
		APIKey:       testAPIKey(),
		BatchSize:    50,
		CloseTimeout: 50 * time.Millisecond,
		Transport:    stuck,
		BaseDelay:    time.Millisecond,
	}
	c, err := New(config)
	require.NoError(t, err)

	c.Track("signup", "u1", nil)

	start := time.Now()
	err = c.Close()
	require.Error(t, err)
	require.Equal(t, ErrKindClientClosed, kindOf(err))
	require.True(t, time.Since(start) < 2*time.Second, "close must not hang")
}

func TestRetryWaitInterruptedByClose(t *testing.T) {
	failures := make(chan *FailureRecord, 8)
	mock := &transportMock{responses: []error{
		errReset(), errReset(), errReset(), errReset(),
	}}
	config := &Config{
		APIKey:        testAPIKey(),
		BatchSize:     2,
		FlushInterval: time.Hour,
		MaxRetries:    4,
		BaseDelay:     time.Hour, // retries would stall forever without the abort
		OnError:       func(f *FailureRecord) { failures <- f },
		Transport:     mock,
	}
	c, err := New(config)
	require.NoError(t, err)

	c.Track("signup", "u1", nil)
	c.Track("login", "u2", nil)

	// wait for the first attempt so the cycle is parked in its backoff wait
	waitFor(t, 2*time.Second, func() bool {
		_, sends := mock.stats()
		return sends >= 1
	}, "first send attempt never happened")

	start := time.Now()
	c.Close()
	require.True(t, time.Since(start) < 5*time.Second, "close must interrupt the backoff wait")

	select {
	case f := <-failures:
		require.Equal(t, ErrKindClientClosed, f.Kind)
		require.Equal(t, 2, f.RecordCount)
	case <-time.After(2 * time.Second):
		t.Fatal("expected the parked batch to be reported")
	}
}

func TestBacklogDrainsWithoutNewTriggers(t *testing.T) {
	mock := &transportMock{}
	config := &Config{
		APIKey:        testAPIKey(),
		BatchSize:     2,
		FlushInterval: time.Hour,
		BaseDelay:     time.Millisecond,
		Transport:     mock,
	}
	c, err := New(config)
	require.NoError(t, err)
	defer c.Close()

	// More than one batch worth before the loop gets going; the kick
	// channel coalesces, so draining the backlog must not depend on one
	// signal per batch.
	for i := 0; i < 6; i++ {
		c.Track("signup", "u", nil)
	}

	waitFor(t, 2*time.Second, func() bool {
		total := 0
		for _, f := range mock.sent() {
			total += len(decodeFrame(t, f).events)
		}
		return total == 6
	}, "backlog was not fully drained")
}
