package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
)

// DialTimeout bounds connection setup for network transports.
const DialTimeout = 5 * time.Second

// TCP is a raw TCP byte stream transport.
type TCP struct {
	address string

	mu   sync.Mutex
	conn net.Conn
	buf  []byte
}

// NewTCP creates a transport that dials address ("host:port").
func NewTCP(address string) *TCP {
	return &TCP{address: address, buf: make([]byte, readBufferSize)}
}

func (t *TCP) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return ErrAlreadyOpen
	}
	conn, err := net.DialTimeout("tcp", t.address, DialTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.address, err)
	}
	t.conn = conn
	logging.LogTransport(t.address, "open")
	return nil
}

func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return ErrNotOpen
	}
	err := t.conn.Close()
	t.conn = nil
	logging.LogTransport(t.address, "close")
	return err
}

func (t *TCP) Read() ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil, ErrNotOpen
	}
	if err := conn.SetReadDeadline(time.Now().Add(PollInterval)); err != nil {
		return nil, err
	}
	n, err := conn.Read(t.buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, nil
		}
		return nil, err
	}
	out := make([]byte, n)
	copy(out, t.buf[:n])
	return out, nil
}

func (t *TCP) Write(b []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrNotOpen
	}
	if err := conn.SetWriteDeadline(time.Now().Add(DialTimeout)); err != nil {
		return err
	}
	_, err := conn.Write(b)
	return err
}
