package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Received messages buffered between the read pump and Read
	wsQueueSize = 256
)

// WebSocket connects to an icsneo bridge. Each binary message carries a
// chunk of the device byte stream.
type WebSocket struct {
	url    string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
	rx   chan []byte
	errc chan error
	done chan struct{}
	wmu  sync.Mutex
	wg   sync.WaitGroup
}

// NewWebSocket creates a transport for a bridge URL such as
// "ws://bridge.local:8765/device".
func NewWebSocket(url string) *WebSocket {
	return &WebSocket{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: DialTimeout,
		},
	}
}

func (w *WebSocket) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		return ErrAlreadyOpen
	}
	conn, _, err := w.dialer.Dial(w.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to bridge %s: %w", w.url, err)
	}

	w.conn = conn
	w.rx = make(chan []byte, wsQueueSize)
	w.errc = make(chan error, 1)
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.readPump(conn, w.rx, w.errc, w.done)

	logging.LogTransport(w.url, "open")
	return nil
}

// readPump moves binary messages from the connection to rx until the
// connection fails or Close is called.
func (w *WebSocket) readPump(conn *websocket.Conn, rx chan<- []byte, errc chan<- error, done <-chan struct{}) {
	defer w.wg.Done()
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
			default:
				logging.Debug("Bridge read failed", zap.String("url", w.url), zap.Error(err))
				errc <- err
			}
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		select {
		case rx <- data:
		case <-done:
			return
		}
	}
}

func (w *WebSocket) Close() error {
	w.mu.Lock()
	conn := w.conn
	if conn == nil {
		w.mu.Unlock()
		return ErrNotOpen
	}
	w.conn = nil
	close(w.done)
	w.mu.Unlock()

	w.wmu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	w.wmu.Unlock()

	err := conn.Close()
	w.wg.Wait()
	logging.LogTransport(w.url, "close")
	return err
}

func (w *WebSocket) Read() ([]byte, error) {
	w.mu.Lock()
	conn, rx, errc := w.conn, w.rx, w.errc
	w.mu.Unlock()

	if conn == nil {
		return nil, ErrNotOpen
	}

	timer := time.NewTimer(PollInterval)
	defer timer.Stop()

	select {
	case b := <-rx:
		return b, nil
	case err := <-errc:
		// Keep reporting the failure on later reads.
		errc <- err
		return nil, err
	case <-timer.C:
		return nil, nil
	}
}

func (w *WebSocket) Write(b []byte) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()

	if conn == nil {
		return ErrNotOpen
	}

	w.wmu.Lock()
	defer w.wmu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, b)
}
