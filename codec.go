package pulsekit

import (
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	// maxPayloadBytes caps the encoded envelope. Batches that would exceed
	// it are rejected, never truncated.
	maxPayloadBytes = 10 << 20

	// lengthPrefixSize is the outer big-endian frame prefix added on top of
	// the envelope. Independent of the little-endian fixed-width integers
	// inside the payload.
	lengthPrefixSize = 4

	apiKeySize = 16
	idSize     = 16
)

// Wire field numbers. Stable once shipped and never reused; new optional
// fields are appended with fresh numbers.
const (
	envFieldAPIKey protowire.Number = iota + 1
	envFieldBatchID
	envFieldSchemaType
	envFieldData
)

const (
	dataFieldEvents protowire.Number = iota + 1
	dataFieldLogs
)

const (
	eventFieldTimestamp protowire.Number = iota + 1
	eventFieldType
	eventFieldUserID
	eventFieldPayload
)

const (
	logFieldTimestamp protowire.Number = iota + 1
	logFieldLevel
	logFieldType
	logFieldSessionID
	logFieldSource
	logFieldService
	logFieldMessage
	logFieldPayload
)

// encodeFrame encodes a batch into a complete transport frame: the 4-byte
// big-endian length prefix followed by exactly that many payload bytes.
func encodeFrame(apiKey []byte, b *Batch) ([]byte, error) {
	payload, err := encodeBatch(apiKey, b)
	if err != nil {
		return nil, err
	}
	return frame(payload), nil
}

// frame prepends the big-endian length prefix to a payload.
func frame(payload []byte) []byte {
	out := make([]byte, lengthPrefixSize, lengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

// encodeBatch is a pure, stateless transformation from a batch to the
// envelope payload. The size check here is authoritative; the accumulator's
// estimate only keeps batches from growing this big in the first place.
func encodeBatch(apiKey []byte, b *Batch) ([]byte, error) {
	if len(b.Records) == 0 {
		return nil, opErr(ErrKindEmptyBatch, ErrEmptyBatch)
	}

	data := make([]byte, 0, b.Bytes)
	for _, r := range b.Records {
		switch rec := r.(type) {
		case *Event:
			data = protowire.AppendTag(data, dataFieldEvents, protowire.BytesType)
			data = protowire.AppendBytes(data, encodeEvent(rec))
		case *LogEntry:
			data = protowire.AppendTag(data, dataFieldLogs, protowire.BytesType)
			data = protowire.AppendBytes(data, encodeLogEntry(rec))
		default:
			return nil, opErrf(ErrKindUnknown, "unsupported record type %T", r)
		}
	}

	env := make([]byte, 0, len(data)+apiKeySize+16)
	env = protowire.AppendTag(env, envFieldAPIKey, protowire.BytesType)
	env = protowire.AppendBytes(env, apiKey)
	env = protowire.AppendTag(env, envFieldBatchID, protowire.Fixed64Type)
	env = protowire.AppendFixed64(env, b.Seq)
	env = protowire.AppendTag(env, envFieldSchemaType, protowire.VarintType)
	env = protowire.AppendVarint(env, uint64(b.Schema))
	env = protowire.AppendTag(env, envFieldData, protowire.BytesType)
	env = protowire.AppendBytes(env, data)

	if len(env) > maxPayloadBytes {
		return nil, opErr(ErrKindBatchTooLarge, ErrBatchTooLarge)
	}
	return env, nil
}

func encodeEvent(e *Event) []byte {
	buf := make([]byte, 0, eventWireSize(len(e.payload)))
	buf = protowire.AppendTag(buf, eventFieldTimestamp, protowire.Fixed64Type)
	buf = protowire.AppendFixed64(buf, e.timestamp)
	buf = protowire.AppendTag(buf, eventFieldType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(e.kind.wireType()))
	buf = protowire.AppendTag(buf, eventFieldUserID, protowire.BytesType)
	buf = protowire.AppendBytes(buf, idBytes(e.userID))
	buf = protowire.AppendTag(buf, eventFieldPayload, protowire.BytesType)
	buf = protowire.AppendBytes(buf, e.payload)
	return buf
}

func encodeLogEntry(l *LogEntry) []byte {
	buf := make([]byte, 0, logWireSize(len(l.source), len(l.service), len(l.message), len(l.payload)))
	buf = protowire.AppendTag(buf, logFieldTimestamp, protowire.Fixed64Type)
	buf = protowire.AppendFixed64(buf, l.timestamp)
	buf = protowire.AppendTag(buf, logFieldLevel, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(l.level))
	buf = protowire.AppendTag(buf, logFieldType, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(l.kind.wireType()))
	buf = protowire.AppendTag(buf, logFieldSessionID, protowire.BytesType)
	buf = protowire.AppendBytes(buf, idBytes(l.sessionID))
	buf = protowire.AppendTag(buf, logFieldSource, protowire.BytesType)
	buf = protowire.AppendString(buf, l.source)
	buf = protowire.AppendTag(buf, logFieldService, protowire.BytesType)
	buf = protowire.AppendString(buf, l.service)
	buf = protowire.AppendTag(buf, logFieldMessage, protowire.BytesType)
	buf = protowire.AppendString(buf, l.message)
	buf = protowire.AppendTag(buf, logFieldPayload, protowire.BytesType)
	buf = protowire.AppendBytes(buf, l.payload)
	return buf
}

// idBytes converts an identifier string to the fixed 16-byte wire field.
// Shorter ids are right-padded with zero bytes; longer ids keep only the
// first 16 bytes. The slicing is byte-wise, so a multi-byte UTF-8 sequence
// crossing the boundary is split. Lossy and deterministic.
func idBytes(id string) []byte {
	out := make([]byte, idSize)
	copy(out, id)
	return out
}

// eventWireSize estimates the encoded size of one event record including its
// per-record framing inside the data submessage. Cheap: no serialization.
func eventWireSize(payloadLen int) int {
	size := protowire.SizeTag(eventFieldTimestamp) + protowire.SizeFixed64()
	size += protowire.SizeTag(eventFieldType) + 1
	size += protowire.SizeTag(eventFieldUserID) + protowire.SizeBytes(idSize)
	size += protowire.SizeTag(eventFieldPayload) + protowire.SizeBytes(payloadLen)
	return protowire.SizeTag(dataFieldEvents) + protowire.SizeBytes(size)
}

// logWireSize is the log-record counterpart of eventWireSize.
func logWireSize(sourceLen, serviceLen, messageLen, payloadLen int) int {
	size := protowire.SizeTag(logFieldTimestamp) + protowire.SizeFixed64()
	size += protowire.SizeTag(logFieldLevel) + 1
	size += protowire.SizeTag(logFieldType) + 1
	size += protowire.SizeTag(logFieldSessionID) + protowire.SizeBytes(idSize)
	size += protowire.SizeTag(logFieldSource) + protowire.SizeBytes(sourceLen)
	size += protowire.SizeTag(logFieldService) + protowire.SizeBytes(serviceLen)
	size += protowire.SizeTag(logFieldMessage) + protowire.SizeBytes(messageLen)
	size += protowire.SizeTag(logFieldPayload) + protowire.SizeBytes(payloadLen)
	return protowire.SizeTag(dataFieldLogs) + protowire.SizeBytes(size)
}
