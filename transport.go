package pulsekit

import (
	"errors"
	"net"
	"sync"
	"syscall"
	"time"
)

// Transport delivers encoded frames to the collector. Sends must be
// externally serialized: the flush scheduler is the only sender, one frame
// in flight at a time. Implementations never read from the connection;
// success means the write completed without a socket error, not that the
// collector acknowledged anything.
type Transport interface {
	// Connect establishes the connection if there is none. Idempotent:
	// calling it while connected is a no-op success.
	Connect(timeout time.Duration) error
	// Send writes one complete frame. On failure the connection is torn
	// down; the caller decides whether to reconnect and retry.
	Send(frame []byte, timeout time.Duration) error
	// Close shuts the transport down for good. Idempotent. All operations
	// after Close fail fast with a client-closed error.
	Close() error
}

type connState int

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
	stateDraining
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateDisconnected:
		return "disconnected"
	case stateConnecting:
		return "connecting"
	case stateConnected:
		return "connected"
	case stateDraining:
		return "draining"
	case stateClosed:
		return "closed"
	}
	return "invalid"
}

// connTransport owns exactly one outbound TCP connection. There is no
// background reconnection: a dead socket stays dead until the next send
// needs it, so idle periods hold no resources and nothing busy-loops.
type connTransport struct {
	endpoint string
	logger   Logger

	mu    sync.Mutex
	conn  net.Conn
	state connState
}

func newConnTransport(endpoint string, logger Logger) *connTransport {
	return &connTransport{
		endpoint: endpoint,
		logger:   logger,
		state:    stateDisconnected,
	}
}

func (t *connTransport) Connect(timeout time.Duration) error {
	t.mu.Lock()
	switch t.state {
	case stateClosed, stateDraining:
		t.mu.Unlock()
		return opErr(ErrKindClientClosed, ErrClientClosed)
	case stateConnected:
		t.mu.Unlock()
		return nil
	case stateConnecting:
		t.mu.Unlock()
		return opErrf(ErrKindConnectionFailed, "connect already in progress")
	}
	t.state = stateConnecting
	t.mu.Unlock()

	d := net.Dialer{Timeout: timeout}
	conn, err := d.Dial("tcp", t.endpoint)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == stateClosed {
		// closed while dialing
		if conn != nil {
			conn.Close()
		}
		return opErr(ErrKindClientClosed, ErrClientClosed)
	}
	if err != nil {
		t.state = stateDisconnected
		t.logger.Error("connect", err, LogValue{"endpoint", t.endpoint})
		return opErr(classifyDialError(err), err)
	}
	t.conn = conn
	t.state = stateConnected
	t.logger.Info("connected", LogValue{"endpoint", t.endpoint})
	return nil
}

func (t *connTransport) Send(frame []byte, timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case stateClosed, stateDraining:
		return opErr(ErrKindClientClosed, ErrClientClosed)
	case stateConnected:
	default:
		return opErrf(ErrKindConnectionFailed, "not connected")
	}

	if err := t.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		t.dropConn()
		return opErr(ErrKindWriteFailed, err)
	}
	// The frame already carries its length prefix, so one Write covers the
	// whole logical unit and cannot interleave with another send.
	if _, err := t.conn.Write(frame); err != nil {
		t.dropConn()
		t.logger.Error("send", err, LogValue{"bytes", len(frame)})
		return opErr(classifyWriteError(err), err)
	}
	t.conn.SetWriteDeadline(time.Time{})
	return nil
}

func (t *connTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == stateClosed {
		return nil
	}
	t.state = stateDraining
	var err error
	if t.conn != nil {
		err = t.conn.Close()
		t.conn = nil
	}
	t.state = stateClosed
	return err
}

// dropConn tears down a broken connection. Caller holds the mutex.
func (t *connTransport) dropConn() {
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.state = stateDisconnected
}

func (t *connTransport) connState() connState {
	t.mu.Lock()
	s := t.state
	t.mu.Unlock()
	return s
}

func classifyDialError(err error) ErrorKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrKindDNSResolutionFailed
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrKindConnectionTimeout
	}
	return ErrKindConnectionFailed
}

func classifyWriteError(err error) ErrorKind {
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return ErrKindConnectionReset
	}
	return ErrKindWriteFailed
}
