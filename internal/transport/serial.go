package transport

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
)

// DefaultBaudRate is used when a serial transport has no baud rate set.
// USB CDC devices ignore it.
const DefaultBaudRate = 115200

// Serial is a serial port transport.
type Serial struct {
	path     string
	baudRate int

	mu   sync.Mutex
	port serial.Port
	buf  []byte
}

// NewSerial creates a transport for the port at path.
func NewSerial(path string, baudRate int) *Serial {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	return &Serial{path: path, baudRate: baudRate, buf: make([]byte, readBufferSize)}
}

// ListSerialPorts returns the serial ports present on the system.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

func (s *Serial) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil {
		return ErrAlreadyOpen
	}

	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.path, mode)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	if err := port.SetReadTimeout(PollInterval); err != nil {
		_ = port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	s.port = port
	logging.LogTransport(s.path, "open")
	logging.Debug("Serial port opened", zap.String("port", s.path), zap.Int("baud", s.baudRate))
	return nil
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return ErrNotOpen
	}
	err := s.port.Close()
	s.port = nil
	logging.LogTransport(s.path, "close")
	return err
}

// Read returns whatever arrived within PollInterval.
func (s *Serial) Read() ([]byte, error) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()

	if port == nil {
		return nil, ErrNotOpen
	}
	n, err := port.Read(s.buf)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, s.buf[:n])
	return out, nil
}

func (s *Serial) Write(b []byte) error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()

	if port == nil {
		return ErrNotOpen
	}
	for len(b) > 0 {
		n, err := port.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
