package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	readBufferSize = 4096
)

// session is one client holding the device.
type session struct {
	conn   *websocket.Conn
	remote string
	done   chan struct{}
	once   sync.Once
	wmu    sync.Mutex
}

func (ss *session) stop() {
	ss.once.Do(func() {
		close(ss.done)
		_ = ss.conn.Close()
	})
}

func (ss *session) write(messageType int, data []byte) error {
	ss.wmu.Lock()
	defer ss.wmu.Unlock()
	if err := ss.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return ss.conn.WriteMessage(messageType, data)
}

// acquire reserves the device for one client.
func (s *Server) acquire(remote string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return false
	}
	s.session = &session{remote: remote, done: make(chan struct{})}
	return true
}

func (s *Server) release() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

// handleDevice upgrades the request and bridges the device until either
// side goes away.
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	remote := r.RemoteAddr

	if !s.acquire(remote) {
		s.logger.Warn("Rejecting client, device busy", zap.String("remote_addr", remote))
		http.Error(w, "device is in use by another client", http.StatusConflict)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		s.logger.Error("WebSocket upgrade failed", zap.String("remote_addr", remote), zap.Error(err))
		s.release()
		return
	}

	if err := s.device.Open(); err != nil {
		s.logger.Error("Failed to open device", zap.String("remote_addr", remote), zap.Error(err))
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "failed to open device")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = conn.Close()
		s.release()
		return
	}

	s.mu.Lock()
	ss := s.session
	ss.conn = conn
	closing := s.closing
	s.mu.Unlock()

	if closing {
		_ = conn.Close()
		_ = s.device.Close()
		s.release()
		return
	}

	s.sessions.Add(1)
	s.wg.Add(1)
	defer s.wg.Done()

	logging.LogTransport("bridge:"+remote, "session_started")
	s.run(ss)

	if err := s.device.Close(); err != nil {
		s.logger.Warn("Failed to close device", zap.Error(err))
	}
	s.release()
	logging.LogTransport("bridge:"+remote, "session_closed")
}

// run pumps bytes both ways and returns once the session has stopped and
// every pump has exited.
func (s *Server) run(ss *session) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer ss.stop()
		s.deviceToClient(ss)
	}()

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ss.done:
				return
			case <-ticker.C:
				ss.wmu.Lock()
				err := ss.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				ss.wmu.Unlock()
				if err != nil {
					s.logger.Debug("Ping failed", zap.Error(err))
					ss.stop()
					return
				}
			}
		}
	}()

	s.clientToDevice(ss)
	ss.stop()
	wg.Wait()
}

func (s *Server) deviceToClient(ss *session) {
	for {
		select {
		case <-ss.done:
			return
		default:
		}

		data, err := s.device.Read()
		if err != nil {
			s.logger.Error("Device read failed", zap.String("remote_addr", ss.remote), zap.Error(err))
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "device read failed")
			ss.wmu.Lock()
			_ = ss.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			ss.wmu.Unlock()
			return
		}
		if len(data) == 0 {
			continue
		}

		logging.LogRawBytes("bridge rx", data)
		if err := ss.write(websocket.BinaryMessage, data); err != nil {
			s.logger.Debug("Client write failed", zap.String("remote_addr", ss.remote), zap.Error(err))
			return
		}
		s.rxBytes.Add(int64(len(data)))
	}
}

func (s *Server) clientToDevice(ss *session) {
	ss.conn.SetReadLimit(maxMessageSize)
	_ = ss.conn.SetReadDeadline(time.Now().Add(pongWait))
	ss.conn.SetPongHandler(func(string) error {
		return ss.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := ss.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("Client connection closed unexpectedly", zap.String("remote_addr", ss.remote), zap.Error(err))
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			s.logger.Debug("Ignoring non-binary message", zap.Int("type", messageType))
			continue
		}

		logging.LogRawBytes("bridge tx", data)
		if err := s.device.Write(data); err != nil {
			s.logger.Error("Device write failed", zap.String("remote_addr", ss.remote), zap.Error(err))
			return
		}
		s.txBytes.Add(int64(len(data)))
	}
}
