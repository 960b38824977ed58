package pulsekit

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrClientClosed    = errors.New("Unable to accept record. Client is already closed")
	ErrQueueFull       = errors.New("Pending record ceiling reached. Record dropped")
	ErrEmptyBatch      = errors.New("Batch contains no records")
	ErrBatchTooLarge   = errors.New("Encoded batch exceeds the 10 MiB frame limit")
	ErrInvalidAPIKey   = errors.New("API key must be exactly 16 bytes")
	ErrInvalidEndpoint = errors.New("Endpoint must be in host:port form")
	ErrNilRecord       = errors.New("Record must not be nil")
)

// ErrorKind classifies a failure for retry decisions and callback consumers.
type ErrorKind int

const (
	ErrKindUnknown ErrorKind = iota

	// Encode errors. Logic errors, never retried.
	ErrKindBatchTooLarge
	ErrKindEmptyBatch

	// Connection errors. Transient, governed by the retry policy.
	ErrKindConnectionTimeout
	ErrKindConnectionFailed
	ErrKindDNSResolutionFailed
	ErrKindConnectionReset
	ErrKindWriteFailed

	// Capacity errors. Producer-side backpressure, record dropped.
	ErrKindQueueFull

	// Lifecycle errors. Terminal, all subsequent operations short-circuit.
	ErrKindClientClosed

	// Authentication errors. Retrying with the same key cannot succeed.
	ErrKindAuth
)

// Retryable reports whether a failed send of this kind may succeed on a
// later attempt. Encode, capacity, lifecycle and auth failures are final.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrKindConnectionTimeout,
		ErrKindConnectionFailed,
		ErrKindDNSResolutionFailed,
		ErrKindConnectionReset,
		ErrKindWriteFailed:
		return true
	}
	return false
}

func (k ErrorKind) String() string {
	switch k {
	case ErrKindBatchTooLarge:
		return "batch too large"
	case ErrKindEmptyBatch:
		return "empty batch"
	case ErrKindConnectionTimeout:
		return "connection timeout"
	case ErrKindConnectionFailed:
		return "connection failed"
	case ErrKindDNSResolutionFailed:
		return "dns resolution failed"
	case ErrKindConnectionReset:
		return "connection reset"
	case ErrKindWriteFailed:
		return "write failed"
	case ErrKindQueueFull:
		return "queue full"
	case ErrKindClientClosed:
		return "client closed"
	case ErrKindAuth:
		return "authentication failed"
	}
	return "unknown"
}

// OpError couples an underlying error with its taxonomy kind.
type OpError struct {
	Kind ErrorKind
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func opErr(kind ErrorKind, err error) *OpError {
	return &OpError{Kind: kind, Err: err}
}

func opErrf(kind ErrorKind, format string, args ...interface{}) *OpError {
	return &OpError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// kindOf extracts the ErrorKind from err, or ErrKindUnknown if it does not
// carry one.
func kindOf(err error) ErrorKind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return ErrKindUnknown
}

// FailureRecord is delivered to the error callback when an operation fails.
// Failures are reported at most once per operation and never thrown back
// into producer call sites.
type FailureRecord struct {
	Err  error
	Kind ErrorKind
	// BatchSeq is the sequence number of the dropped batch. Zero for
	// failures that happen before a batch exists (QueueFull, closed client).
	BatchSeq uint64
	// RecordCount is the number of records affected by the failure.
	RecordCount int
	// Attempts is the number of send attempts made before giving up.
	Attempts int
}

func (e *FailureRecord) Error() string {
	return e.Err.Error()
}
