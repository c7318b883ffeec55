// Package tcp is the plain-text command socket. It is polled once per simulation tick
// and never blocks waiting for a client to connect.
package tcp

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"colonylink.ai/internal/protocol"
)

const (
	DefaultAddr              = ":12345"
	DefaultReceiveBufferSize = 8192
	DefaultAcceptWindow      = time.Millisecond
)

type Config struct {
	Addr string
	// ReceiveBufferSize sizes the single read per connection.
	ReceiveBufferSize int
	// AcceptWindow is how long PollOnce waits for a pending connection. It must be
	// positive: a deadline already in the past fails every accept.
	AcceptWindow time.Duration
	// ReadTimeout bounds the payload read. Zero blocks until the peer sends or closes.
	ReadTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ReceiveBufferSize <= 0 {
		c.ReceiveBufferSize = DefaultReceiveBufferSize
	}
	if c.AcceptWindow <= 0 {
		c.AcceptWindow = DefaultAcceptWindow
	}
}

// Payload is the bytes read from one connection. Err is set, and Data empty, when
// the read failed; it wraps protocol.ErrRead.
type Payload struct {
	Data   []byte
	Remote string
	Err    error
}

type Listener struct {
	cfg Config
	ln  *net.TCPListener
	log *log.Logger
}

// Start binds cfg.Addr. A bind failure wraps protocol.ErrBind and is not retried.
func Start(cfg Config, logger *log.Logger) (*Listener, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = log.Default()
	}
	addr, err := net.ResolveTCPAddr("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w: %v", cfg.Addr, protocol.ErrBind, err)
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w: %v", cfg.Addr, protocol.ErrBind, err)
	}
	l := &Listener{cfg: cfg, ln: ln, log: logger}
	l.log.Printf("TCP listener started on %s", ln.Addr())
	return l, nil
}

func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) Close() error { return l.ln.Close() }

// PollOnce accepts at most one pending connection, reads once from it and closes it.
// It returns nil when no client is waiting, when the peer closed without sending, or
// when accept failed. A failed read is logged and returned as a Payload with Err set.
func (l *Listener) PollOnce() *Payload {
	if err := l.ln.SetDeadline(time.Now().Add(l.cfg.AcceptWindow)); err != nil {
		l.log.Printf("set accept deadline: %v", err)
		return nil
	}
	conn, err := l.ln.AcceptTCP()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil
		}
		l.log.Printf("accept: %v", err)
		return nil
	}
	defer conn.Close()

	if l.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(l.cfg.ReadTimeout))
	}
	buf := make([]byte, l.cfg.ReceiveBufferSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err == nil || isEOF(err) {
			return nil
		}
		remote := conn.RemoteAddr().String()
		l.log.Printf("read from %s: %v", remote, err)
		return &Payload{Remote: remote, Err: fmt.Errorf("read from %s: %w: %v", remote, protocol.ErrRead, err)}
	}
	return &Payload{Data: buf[:n], Remote: conn.RemoteAddr().String()}
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}
