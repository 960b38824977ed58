package pulsekit

import (
	"net"
	"time"
)

// Defaults
const (
	defaultBatchSize       = 50
	defaultFlushInterval   = 30 * time.Second
	defaultConnectTimeout  = 5 * time.Second
	defaultSendTimeout     = 5 * time.Second
	defaultMaxRetries      = 3
	defaultBaseDelay       = time.Second
	defaultMultiplier      = 2.0
	defaultMaxDelay        = 30 * time.Second
	defaultMaxPendingBytes = 1 << 20
	defaultCloseTimeout    = 5 * time.Second

	// maxPendingFactor sets the absolute record ceiling relative to the
	// batch size when MaxPendingRecords is not configured.
	maxPendingFactor = 10
)

// Config holds the client configuration. Zero fields are filled with
// defaults by New; Endpoint and APIKey are required.
type Config struct {
	// Endpoint is the collector address in host:port form.
	Endpoint string

	// APIKey authenticates the client to the collector.
	// Must be exactly 16 raw bytes.
	APIKey []byte

	// BatchSize is the pending record count that triggers a flush.
	BatchSize int

	// FlushInterval bounds how long a record can sit in the accumulator
	// before a periodic flush picks it up, regardless of volume.
	FlushInterval time.Duration

	// ConnectTimeout bounds TCP connection establishment.
	ConnectTimeout time.Duration

	// SendTimeout bounds a single frame write.
	SendTimeout time.Duration

	// MaxRetries is the total number of send attempts per batch for
	// retryable failures. After the budget is spent the batch is dropped
	// and reported through OnError.
	MaxRetries int

	// BaseDelay, Multiplier and MaxDelay shape the exponential backoff
	// between retry attempts: min(BaseDelay * Multiplier^(attempt-1), MaxDelay).
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration

	// MaxPendingRecords is the absolute accumulator ceiling. Records added
	// past it are dropped with a QueueFull failure. Defaults to 10x BatchSize.
	MaxPendingRecords int

	// MaxPendingBytes triggers an early flush when the estimated pending
	// wire size crosses it, keeping batches well under the frame limit.
	MaxPendingBytes int

	// CloseTimeout bounds the final flush performed by Close. Close never
	// hangs process exit past this.
	CloseTimeout time.Duration

	// OnError, if set, receives a notification for every failed operation.
	// It may be invoked concurrently from multiple contexts and must not
	// block for long. With no callback, failures are visible only through
	// Logger.
	OnError func(*FailureRecord)

	// Transport overrides the TCP transport. Mainly used in tests.
	Transport Transport

	// Logger is the internal diagnostic logger. Defaults to NopLogger.
	Logger Logger

	// Verbose adds per-batch success logging.
	Verbose bool
}

// defaults fills zero fields and validates the required ones.
func (c *Config) defaults() error {
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = defaultSendTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.Multiplier == 0 {
		c.Multiplier = defaultMultiplier
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.MaxPendingRecords == 0 {
		c.MaxPendingRecords = maxPendingFactor * c.BatchSize
	}
	if c.MaxPendingBytes == 0 {
		c.MaxPendingBytes = defaultMaxPendingBytes
	}
	if c.CloseTimeout == 0 {
		c.CloseTimeout = defaultCloseTimeout
	}
	if len(c.APIKey) != apiKeySize {
		return opErr(ErrKindAuth, ErrInvalidAPIKey)
	}
	if c.Transport == nil {
		if _, _, err := net.SplitHostPort(c.Endpoint); err != nil {
			return opErr(ErrKindConnectionFailed, ErrInvalidEndpoint)
		}
	}
	return nil
}
