package pulsekit

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestAccumulator(batchSize, maxPending int) (*accumulator, chan struct{}) {
	kick := make(chan struct{}, 1)
	config := &Config{
		BatchSize:         batchSize,
		MaxPendingRecords: maxPending,
		MaxPendingBytes:   defaultMaxPendingBytes,
	}
	return newAccumulator(config, kick), kick
}

func TestThresholdTriggersFlush(t *testing.T) {
	a, kick := newTestAccumulator(3, 30)

	for i := 0; i < 2; i++ {
		require.NoError(t, a.add(mustEvent(t, KindTrack, "u1", nil)))
	}
	select {
	case <-kick:
		t.Fatal("flush signaled below threshold")
	default:
	}

	require.NoError(t, a.add(mustEvent(t, KindTrack, "u1", nil)))
	select {
	case <-kick:
	default:
		t.Fatal("expected flush signal at threshold")
	}
}

func TestDrainPreservesOrder(t *testing.T) {
	a, _ := newTestAccumulator(50, 500)
	ids := []string{"r1", "r2", "r3"}
	for _, id := range ids {
		require.NoError(t, a.add(mustEvent(t, KindTrack, id, nil)))
	}

	batches := a.drain()
	require.Len(t, batches, 1)
	require.Equal(t, SchemaEvents, batches[0].Schema)
	require.Len(t, batches[0].Records, 3)
	for i, r := range batches[0].Records {
		require.Equal(t, ids[i], r.Identity())
	}
}

func TestDrainEmptyAccumulator(t *testing.T) {
	a, _ := newTestAccumulator(50, 500)
	require.Empty(t, a.drain())
	require.Equal(t, 0, a.pendingCount())
}

func TestDrainSplitsSchemaClasses(t *testing.T) {
	a, _ := newTestAccumulator(50, 500)
	require.NoError(t, a.add(mustEvent(t, KindTrack, "u1", nil)))
	require.NoError(t, a.add(mustLog(t, LevelInfo, "s1", "hello")))
	require.NoError(t, a.add(mustEvent(t, KindRevenue, "u2", nil)))

	batches := a.drain()
	require.Len(t, batches, 2)
	require.Equal(t, SchemaEvents, batches[0].Schema)
	require.Equal(t, SchemaLogs, batches[1].Schema)
	require.Equal(t, uint64(1), batches[0].Seq)
	require.Equal(t, uint64(2), batches[1].Seq)
	require.Len(t, batches[0].Records, 2)
	require.Len(t, batches[1].Records, 1)
	// order within the event class survives the log in between
	require.Equal(t, "u1", batches[0].Records[0].Identity())
	require.Equal(t, "u2", batches[0].Records[1].Identity())
}

func TestQueueFullCeiling(t *testing.T) {
	a, _ := newTestAccumulator(100, 10)
	for i := 0; i < 10; i++ {
		require.NoError(t, a.add(mustEvent(t, KindTrack, "u", nil)))
	}

	err := a.add(mustEvent(t, KindTrack, "u", nil))
	require.Error(t, err)
	require.Equal(t, ErrKindQueueFull, kindOf(err))
	require.Equal(t, 10, a.pendingCount())
}

func TestNilRecordRejected(t *testing.T) {
	a, _ := newTestAccumulator(50, 500)
	require.Error(t, a.add(nil))
	require.Equal(t, 0, a.pendingCount())
}

func TestByteCapTriggersFlush(t *testing.T) {
	kick := make(chan struct{}, 1)
	a := newAccumulator(&Config{
		BatchSize:         1000,
		MaxPendingRecords: 1000,
		MaxPendingBytes:   256,
	}, kick)

	props := Map{"blob": String(string(make([]byte, 300)))}
	require.NoError(t, a.add(mustEvent(t, KindTrack, "u", props)))
	select {
	case <-kick:
	default:
		t.Fatal("expected flush signal when byte cap crossed")
	}
}

// Concurrent adds racing one drain must neither lose nor duplicate records:
// every record lands in exactly one generation.
func TestConcurrentAddDrainNoLoss(t *testing.T) {
	const producers = 8
	const perProducer = 250

	a, _ := newTestAccumulator(1<<30, 1<<30)

	var wg sync.WaitGroup
	wg.Add(producers)
	drained := make(chan []*Batch, 64)
	stop := make(chan struct{})

	go func() {
		for {
			select {
			case <-stop:
				drained <- a.drain()
				close(drained)
				return
			default:
				drained <- a.drain()
			}
		}
	}()

	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				id := fmt.Sprintf("p%d-%d", p, i)
				ev, err := NewEvent(KindTrack, id, nil)
				if err == nil {
					err = a.add(ev)
				}
				if err != nil {
					t.Error(err)
					return
				}
			}
		}(p)
	}
	wg.Wait()
	close(stop)

	seen := make(map[string]bool)
	for batches := range drained {
		for _, b := range batches {
			for _, r := range b.Records {
				id := r.Identity()
				if seen[id] {
					t.Fatalf("record %s drained twice", id)
				}
				seen[id] = true
			}
		}
	}
	require.Len(t, seen, producers*perProducer)
	require.Equal(t, 0, a.pendingCount())
}
