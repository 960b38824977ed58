package pulsekit

// SchemaType discriminates the envelope payload on the wire. Other values
// are reserved.
type SchemaType uint8

const (
	SchemaEvents SchemaType = 1
	SchemaLogs   SchemaType = 2
)

func (s SchemaType) String() string {
	switch s {
	case SchemaEvents:
		return "events"
	case SchemaLogs:
		return "logs"
	}
	return "reserved"
}

// Batch is an immutable, ordered group of records drained from the
// accumulator for a single transmission. Record order equals insertion
// order; downstream consumers rely on timestamp monotonicity within a batch
// for session reconstruction.
type Batch struct {
	// Seq is the monotonically increasing batch sequence number.
	Seq uint64
	// Schema is the wire schema class every record in the batch shares.
	Schema SchemaType
	// Records in insertion order.
	Records []Record
	// Bytes is the estimated encoded size of the records.
	Bytes int
}
