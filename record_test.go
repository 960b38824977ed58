package pulsekit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindSchemaMapping(t *testing.T) {
	for _, kind := range []RecordKind{KindTrack, KindIdentify, KindGroup, KindRevenue} {
		require.Equal(t, SchemaEvents, kind.schema(), kind.String())
	}
	for _, kind := range []RecordKind{KindLog, KindEnrich} {
		require.Equal(t, SchemaLogs, kind.schema(), kind.String())
	}
}

func TestKindWireTypes(t *testing.T) {
	require.Equal(t, uint8(1), KindTrack.wireType())
	require.Equal(t, uint8(2), KindIdentify.wireType())
	require.Equal(t, uint8(3), KindGroup.wireType())
	require.Equal(t, uint8(4), KindRevenue.wireType())
	require.Equal(t, uint8(1), KindLog.wireType())
	require.Equal(t, uint8(2), KindEnrich.wireType())
}

func TestEventKindValidation(t *testing.T) {
	_, err := NewEvent(KindLog, "u1", nil)
	require.Error(t, err)
	_, err = NewLogEntry(KindTrack, LevelInfo, "s", "src", "svc", "m", nil)
	require.Error(t, err)
	_, err = NewLogEntry(KindLog, Level(9), "s", "src", "svc", "m", nil)
	require.Error(t, err)
}

func TestTimestampsNonDecreasing(t *testing.T) {
	var prev uint64
	for i := 0; i < 1000; i++ {
		e := mustEvent(t, KindTrack, "u", nil)
		require.True(t, e.Timestamp() >= prev, "timestamps must follow creation order")
		prev = e.Timestamp()
	}
}

func TestRecordImmutableAccessors(t *testing.T) {
	e := mustEvent(t, KindIdentify, "user-1", Map{"name": String("Ada")})
	require.Equal(t, KindIdentify, e.Kind())
	require.Equal(t, "user-1", e.Identity())
	require.Equal(t, `{"name":"Ada"}`, string(e.Payload()))

	l, err := NewLogEntry(KindLog, LevelError, "sess-1", "db", "api", "boom", nil)
	require.NoError(t, err)
	require.Equal(t, KindLog, l.Kind())
	require.Equal(t, "sess-1", l.Identity())
	require.Equal(t, LevelError, l.Level())
	require.Equal(t, "db", l.Source())
	require.Equal(t, "api", l.Service())
	require.Equal(t, "boom", l.Message())
	require.Nil(t, l.Payload())
}
