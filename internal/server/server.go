package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/discovery"
	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
	"github.com/intrepidcs/libicsneo-sub002/internal/version"
)

// Device is the local byte stream the bridge shares.
type Device interface {
	Open() error
	Close() error
	Read() ([]byte, error)
	Write(b []byte) error
}

// Config holds the server configuration
type Config struct {
	Host      string
	Port      int
	Path      string       // WebSocket path of the device stream (default /device)
	CertPath  string       // TLS certificate; plain ws:// when empty
	KeyPath   string       // TLS private key
	Serial    string       // Serial number of the shared device
	Advertise bool         // Register the bridge over mDNS
	Metrics   http.Handler // Served at /metrics when set
}

// Server is the icsneo network bridge
type Server struct {
	config    *Config
	device    Device
	tlsConfig *tls.Config
	upgrader  websocket.Upgrader
	logger    *zap.Logger

	httpServer *http.Server
	advert     *discovery.Advertisement

	mu      sync.Mutex
	session *session
	closing bool
	wg      sync.WaitGroup

	sessions atomic.Int64
	rxBytes  atomic.Int64
	txBytes  atomic.Int64
	started  time.Time
}

// New creates a new Server instance
func New(config *Config, device Device) (*Server, error) {
	if device == nil {
		return nil, errors.New("bridge requires a device")
	}
	if config.Path == "" {
		config.Path = discovery.DefaultPath
	}
	if config.Port == 0 {
		config.Port = discovery.DefaultPort
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" || config.KeyPath != "" {
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	return &Server{
		config:    config,
		device:    device,
		tlsConfig: tlsConfig,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  readBufferSize,
			WriteBufferSize: readBufferSize,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logging.Named("bridge"),
		started: time.Now(),
	}, nil
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	addr := s.Addr()

	s.logger.Info("Starting icsneo bridge",
		zap.String("addr", addr),
		zap.String("path", s.config.Path),
		zap.String("serial", s.config.Serial),
		zap.Any("tls_info", GetTLSInfo(s.tlsConfig)),
	)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	if s.config.Advertise {
		if s.config.Serial == "" {
			s.logger.Warn("Not advertising bridge without a device serial")
		} else {
			advert, err := discovery.Advertise(s.config.Serial, s.config.Port, s.config.Path, version.Version)
			if err != nil {
				_ = listener.Close()
				return err
			}
			s.advert = advert
			s.logger.Info("Bridge advertised", zap.String("instance", discovery.InstanceName(s.config.Serial)))
		}
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve(listener)
	}()

	select {
	case <-sigChan:
		s.logger.Info("Shutdown signal received, stopping bridge...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.advert.Shutdown()
		return err
	}
}

// Serve accepts connections on listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("Bridge listening for connections", zap.String("addr", listener.Addr().String()))
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("bridge server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down bridge...")

	s.advert.Shutdown()

	s.mu.Lock()
	s.closing = true
	srv := s.httpServer
	var active *session
	if s.session != nil && s.session.conn != nil {
		active = s.session
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		if serr := srv.Shutdown(ctx); serr != nil {
			s.logger.Error("Error closing listener", zap.Error(serr))
			err = serr
		}
	}

	// Hijacked WebSocket connections are not tracked by http.Server.
	if active != nil {
		active.stop()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("All sessions closed gracefully")
	case <-ctx.Done():
		s.logger.Warn("Shutdown timeout, forcing close")
	case <-time.After(10 * time.Second):
		s.logger.Warn("Shutdown timeout after 10 seconds, forcing close")
	}

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of active sessions (0 or 1)
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return 1
	}
	return 0
}
