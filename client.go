// Pulsekit telemetry client
// A fire-and-forget analytics and structured-logging SDK that batches
// records in memory and ships them over a persistent TCP connection to a
// collector, as compact length-prefixed binary frames.
//
// Producer calls never block and never return errors; every failure funnels
// through the optional Config.OnError callback and the diagnostic Logger.
package pulsekit

import (
	"sync"
)

// Client batches telemetry records and transmits them to the collector.
// All methods are safe for concurrent use.
type Client struct {
	sync.RWMutex
	*Config
	acc       *accumulator
	scheduler *flushScheduler
	transport Transport

	// closed set to true after Close. This makes further producer calls
	// drop their records with a client-closed notification.
	closed bool
}

// New creates a client with the given config and starts its flush loop.
func New(config *Config) (*Client, error) {
	if err := config.defaults(); err != nil {
		return nil, err
	}
	transport := config.Transport
	if transport == nil {
		transport = newConnTransport(config.Endpoint, config.Logger)
	}
	kick := make(chan struct{}, 1)
	acc := newAccumulator(config, kick)
	c := &Client{
		Config:    config,
		acc:       acc,
		scheduler: newFlushScheduler(config, acc, transport, kick),
		transport: transport,
	}
	c.scheduler.start()
	c.Logger.Info("client started",
		LogValue{"endpoint", config.Endpoint},
		LogValue{"batch_size", config.BatchSize},
		LogValue{"flush_interval", config.FlushInterval.String()},
	)
	return c, nil
}

// Track records an analytics event for a user. Fire-and-forget.
func (c *Client) Track(event, userID string, properties Value) {
	payload := Map{"event": String(event)}
	if properties != nil {
		payload["properties"] = properties
	}
	record, err := NewEvent(KindTrack, userID, payload)
	c.put(record, err)
}

// Identify records identity traits for a user. Fire-and-forget.
func (c *Client) Identify(userID string, traits Value) {
	record, err := NewEvent(KindIdentify, userID, traits)
	c.put(record, err)
}

// Group associates a user with a group. Fire-and-forget.
func (c *Client) Group(userID, groupID string, traits Value) {
	payload := Map{"group_id": String(groupID)}
	if traits != nil {
		payload["traits"] = traits
	}
	record, err := NewEvent(KindGroup, userID, payload)
	c.put(record, err)
}

// Revenue records a revenue amount for a user. Fire-and-forget.
func (c *Client) Revenue(userID string, amount float64, properties Value) {
	payload := Map{"amount": Float(amount)}
	if properties != nil {
		payload["properties"] = properties
	}
	record, err := NewEvent(KindRevenue, userID, payload)
	c.put(record, err)
}

// Log records a structured log line for a session. Fire-and-forget.
func (c *Client) Log(level Level, sessionID, source, service, message string, payload Value) {
	record, err := NewLogEntry(KindLog, level, sessionID, source, service, message, payload)
	c.put(record, err)
}

// Enrich attaches context to a session's log stream. Fire-and-forget.
func (c *Client) Enrich(sessionID, source, service string, payload Value) {
	record, err := NewLogEntry(KindEnrich, LevelInfo, sessionID, source, service, "", payload)
	c.put(record, err)
}

// PutRecord adds an already-constructed record. Fire-and-forget, like the
// convenience methods built on it.
func (c *Client) PutRecord(record Record) {
	c.put(record, nil)
}

// put routes a record into the accumulator. Nothing here ever reaches the
// producer call site: construction errors, a closed client and a full queue
// all turn into callback notifications.
func (c *Client) put(record Record, err error) {
	if err != nil {
		notifyFailure(c.Config, &FailureRecord{Err: err, Kind: kindOf(err), RecordCount: 1})
		return
	}

	c.RLock()
	closed := c.closed
	c.RUnlock()
	if closed {
		notifyFailure(c.Config, &FailureRecord{
			Err:         opErr(ErrKindClientClosed, ErrClientClosed),
			Kind:        ErrKindClientClosed,
			RecordCount: 1,
		})
		return
	}

	if err := c.acc.add(record); err != nil {
		notifyFailure(c.Config, &FailureRecord{Err: err, Kind: kindOf(err), RecordCount: 1})
	}
}

// Flush drains pending records and blocks until the cycle completes or the
// retry budget is spent. With nothing pending it returns immediately
// without network I/O.
func (c *Client) Flush() error {
	c.RLock()
	closed := c.closed
	c.RUnlock()
	if closed {
		return opErr(ErrKindClientClosed, ErrClientClosed)
	}
	return c.scheduler.flush()
}

// Close stops the flush loop, attempts one final bounded flush, and shuts
// the transport down. Safe to call multiple times. Records produced after
// Close are dropped with a client-closed notification.
func (c *Client) Close() error {
	c.Lock()
	if c.closed {
		c.Unlock()
		return nil
	}
	c.closed = true
	c.Unlock()

	c.Logger.Info("closing client", LogValue{"pending", c.acc.pendingCount()})
	err := c.scheduler.close()
	if terr := c.transport.Close(); err == nil {
		err = terr
	}
	c.Logger.Info("client closed")
	return err
}

// notifyFailure logs a failure and dispatches it to the error callback when
// one is registered. The callback runs on its own goroutine so a slow
// consumer can never stall a producer or the flush loop.
func notifyFailure(config *Config, f *FailureRecord) {
	config.Logger.Error("telemetry failure", f.Err,
		LogValue{"kind", f.Kind},
		LogValue{"records", f.RecordCount},
	)
	if config.OnError != nil {
		go config.OnError(f)
	}
}

// Shared instance plumbing. The core stays a plain instantiable type; this
// is a convenience accessor behind an init-once guard.
var (
	sharedMu sync.Mutex
	shared   *Client
)

// Init creates the process-wide shared client. It errors if called twice.
func Init(config *Config) error {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if shared != nil {
		return opErrf(ErrKindUnknown, "shared client already initialized")
	}
	c, err := New(config)
	if err != nil {
		return err
	}
	shared = c
	return nil
}

// Shared returns the client created by Init, or nil before Init.
func Shared() *Client {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	return shared
}
