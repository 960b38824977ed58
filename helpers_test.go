package pulsekit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func mustEvent(t *testing.T, kind RecordKind, userID string, properties Value) *Event {
	t.Helper()
	e, err := NewEvent(kind, userID, properties)
	require.NoError(t, err)
	return e
}

func mustLog(t *testing.T, level Level, sessionID, message string) *LogEntry {
	t.Helper()
	l, err := NewLogEntry(KindLog, level, sessionID, "app", "api", message, nil)
	require.NoError(t, err)
	return l
}

func testAPIKey() []byte {
	key := uuid.MustParse("0102030405060708090a0b0c0d0e0f10")
	return key[:]
}

// waitFor polls cond until it holds or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}
