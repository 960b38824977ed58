package pulsekit

import (
	"fmt"
	"sync/atomic"
	"time"
)

// RecordKind tags a record with how it is represented on the wire.
type RecordKind uint8

const (
	KindTrack RecordKind = iota + 1
	KindIdentify
	KindGroup
	KindRevenue
	KindLog
	KindEnrich
)

// schema returns the wire schema class the kind belongs to. Track, identify,
// group and revenue records travel in event batches; log and enrich records
// in log batches.
func (k RecordKind) schema() SchemaType {
	if k == KindLog || k == KindEnrich {
		return SchemaLogs
	}
	return SchemaEvents
}

// wireType is the type discriminant written for the record on the wire.
// Event side: track=1, identify=2, group=3, revenue=4. Log side: log=1,
// enrich=2.
func (k RecordKind) wireType() uint8 {
	switch k {
	case KindLog:
		return 1
	case KindEnrich:
		return 2
	}
	return uint8(k)
}

func (k RecordKind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindIdentify:
		return "identify"
	case KindGroup:
		return "group"
	case KindRevenue:
		return "revenue"
	case KindLog:
		return "log"
	case KindEnrich:
		return "enrich"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Level is the severity of a log record, syslog-style.
type Level uint8

const (
	LevelEmergency Level = iota
	LevelAlert
	LevelCritical
	LevelError
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
	LevelTrace
)

func (l Level) String() string {
	names := [...]string{
		"emergency", "alert", "critical", "error", "warning",
		"notice", "info", "debug", "trace",
	}
	if int(l) < len(names) {
		return names[l]
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}

// Record represents an individual telemetry record ready for batching.
// Records are validated and immutable at construction; the accumulator and
// codec never mutate them.
type Record interface {
	// Kind returns the record's kind tag.
	Kind() RecordKind
	// Timestamp is the record creation time in milliseconds since epoch.
	// Timestamps are non-decreasing in record creation order.
	Timestamp() uint64
	// Identity returns the user or session identifier source string. On the
	// wire it becomes a fixed 16-byte field.
	Identity() string
	// Payload returns the record's pre-serialized property bytes.
	Payload() []byte
	// WireSize is the estimated encoded size of the record in bytes,
	// including its per-record framing. Computed without serializing.
	WireSize() int
}

// lastTimestamp holds the most recently issued record timestamp so that
// creation order implies timestamp order even across a wall clock step back.
var lastTimestamp uint64

func nowMillis() uint64 {
	now := uint64(time.Now().UnixMilli())
	for {
		last := atomic.LoadUint64(&lastTimestamp)
		if now < last {
			now = last
		}
		if atomic.CompareAndSwapUint64(&lastTimestamp, last, now) {
			return now
		}
	}
}

// Event is an analytics record: a track, identify, group or revenue call.
type Event struct {
	kind      RecordKind
	timestamp uint64
	userID    string
	payload   []byte
}

// NewEvent creates an immutable event record. The properties are serialized
// here, once, so the accumulator's size estimate is cheap.
func NewEvent(kind RecordKind, userID string, properties Value) (*Event, error) {
	if kind.schema() != SchemaEvents {
		return nil, fmt.Errorf("kind %s is not an event kind", kind)
	}
	payload, err := marshalValue(properties)
	if err != nil {
		return nil, err
	}
	return &Event{
		kind:      kind,
		timestamp: nowMillis(),
		userID:    userID,
		payload:   payload,
	}, nil
}

func (e *Event) Kind() RecordKind  { return e.kind }
func (e *Event) Timestamp() uint64 { return e.timestamp }
func (e *Event) Identity() string  { return e.userID }
func (e *Event) Payload() []byte   { return e.payload }
func (e *Event) WireSize() int     { return eventWireSize(len(e.payload)) }

// LogEntry is a structured log record, or an enrich record attaching
// context to a session.
type LogEntry struct {
	kind      RecordKind
	timestamp uint64
	level     Level
	sessionID string
	source    string
	service   string
	message   string
	payload   []byte
}

// NewLogEntry creates an immutable log record. kind must be KindLog or
// KindEnrich.
func NewLogEntry(kind RecordKind, level Level, sessionID, source, service, message string, payload Value) (*LogEntry, error) {
	if kind.schema() != SchemaLogs {
		return nil, fmt.Errorf("kind %s is not a log kind", kind)
	}
	if level > LevelTrace {
		return nil, fmt.Errorf("invalid log level %d", uint8(level))
	}
	data, err := marshalValue(payload)
	if err != nil {
		return nil, err
	}
	return &LogEntry{
		kind:      kind,
		timestamp: nowMillis(),
		level:     level,
		sessionID: sessionID,
		source:    source,
		service:   service,
		message:   message,
		payload:   data,
	}, nil
}

func (l *LogEntry) Kind() RecordKind  { return l.kind }
func (l *LogEntry) Timestamp() uint64 { return l.timestamp }
func (l *LogEntry) Identity() string  { return l.sessionID }
func (l *LogEntry) Payload() []byte   { return l.payload }
func (l *LogEntry) Level() Level      { return l.level }
func (l *LogEntry) Source() string    { return l.source }
func (l *LogEntry) Service() string   { return l.service }
func (l *LogEntry) Message() string   { return l.message }

func (l *LogEntry) WireSize() int {
	return logWireSize(len(l.source), len(l.service), len(l.message), len(l.payload))
}
