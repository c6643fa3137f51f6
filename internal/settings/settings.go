package settings

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/events"
	"github.com/intrepidcs/libicsneo-sub002/internal/filter"
	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
	"github.com/intrepidcs/libicsneo-sub002/internal/message"
)

const (
	// EnvelopeSize is the {version, length, checksum} header of a reply.
	EnvelopeSize = 6

	DefaultAckTimeout  = 1000 * time.Millisecond
	DefaultSaveTimeout = 5000 * time.Millisecond
	DefaultReadTimeout = 500 * time.Millisecond
)

var errNAck = errors.New("device refused the command")

// Commander is the part of a Communication that settings need.
type Commander interface {
	SendCommand(cmd message.Command, args ...byte) error
	WaitForMessageSync(send func() error, f filter.Filter, timeout time.Duration) (*message.Message, error)
	GetSettingsSync(timeout time.Duration) ([]byte, error)
}

// Option configures a DeviceSettings.
type Option func(*DeviceSettings)

// WithTimeouts overrides the acknowledgement, save and read timeouts.
// Zero values keep the defaults.
func WithTimeouts(ack, save, read time.Duration) Option {
	return func(s *DeviceSettings) {
		if ack > 0 {
			s.ackTimeout = ack
		}
		if save > 0 {
			s.saveTimeout = save
		}
		if read > 0 {
			s.readTimeout = read
		}
	}
}

// WithReadonly rejects every write.
func WithReadonly() Option {
	return func(s *DeviceSettings) {
		s.readonly = true
	}
}

// WithoutGSChecksum skips checksum verification on refresh, for device
// families whose firmware does not maintain it.
func WithoutGSChecksum() Option {
	return func(s *DeviceSettings) {
		s.disableGSChecksum = true
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *DeviceSettings) {
		s.logger = l
	}
}

// DeviceSettings holds the pending and confirmed copies of the settings
// structure and runs the read and write protocols against the device.
type DeviceSettings struct {
	com    Commander
	layout Layout
	report events.Reporter
	logger *zap.Logger

	ackTimeout  time.Duration
	saveTimeout time.Duration
	readTimeout time.Duration

	readonly          bool
	disableGSChecksum bool

	// op serializes round trips; mu guards the buffers.
	op        sync.Mutex
	mu        sync.RWMutex
	pending   []byte
	deviceRAM []byte
	loaded    bool
	applying  atomic.Bool
}

// New creates a DeviceSettings for the structure described by layout. Both
// buffers start zero filled and Loaded reports false until the first
// successful Refresh.
func New(com Commander, layout Layout, report events.Reporter, opts ...Option) *DeviceSettings {
	if report == nil {
		report = events.Discard
	}
	size := layout.StructSize()
	s := &DeviceSettings{
		com:         com,
		layout:      layout,
		report:      report,
		logger:      logging.Named("settings"),
		ackTimeout:  DefaultAckTimeout,
		saveTimeout: DefaultSaveTimeout,
		readTimeout: DefaultReadTimeout,
		pending:     make([]byte, size),
		deviceRAM:   make([]byte, size),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Layout returns the structure layout.
func (s *DeviceSettings) Layout() Layout {
	return s.layout
}

// Loaded reports whether a Refresh has succeeded.
func (s *DeviceSettings) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Readonly reports whether writes are rejected.
func (s *DeviceSettings) Readonly() bool {
	return s.readonly
}

// Applying reports whether an Apply or ApplyDefaults is in progress.
func (s *DeviceSettings) Applying() bool {
	return s.applying.Load()
}

// Pending returns a copy of the locally edited structure.
func (s *DeviceSettings) Pending() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bytes.Clone(s.pending)
}

// DeviceRAM returns a copy of the last structure confirmed by the device.
func (s *DeviceSettings) DeviceRAM() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bytes.Clone(s.deviceRAM)
}

// Dirty reports whether pending differs from deviceRAM.
func (s *DeviceSettings) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !bytes.Equal(s.pending, s.deviceRAM)
}

// ApplyStructure replaces pending with b. Nothing is sent to the device.
func (s *DeviceSettings) ApplyStructure(b []byte) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if len(b) != s.layout.StructSize() {
		return s.fail(newError(ErrTypeLength, nil, "structure is %d bytes, expected %d", len(b), s.layout.StructSize()))
	}
	s.mu.Lock()
	copy(s.pending, b)
	s.mu.Unlock()
	return nil
}

// Refresh reads the structure from the device. On success both buffers
// hold the device's payload. On failure neither buffer changes.
func (s *DeviceSettings) Refresh(ignoreChecksum bool) error {
	s.op.Lock()
	defer s.op.Unlock()
	return s.refresh(ignoreChecksum)
}

func (s *DeviceSettings) refresh(ignoreChecksum bool) error {
	raw, err := s.com.GetSettingsSync(s.readTimeout)
	if err != nil {
		return s.fail(newError(ErrTypeRead, err, "no settings reply"))
	}
	if len(raw) < EnvelopeSize {
		return s.fail(newError(ErrTypeRead, nil, "settings reply is %d bytes, shorter than its envelope", len(raw)))
	}

	version := binary.LittleEndian.Uint16(raw[0:2])
	length := int(binary.LittleEndian.Uint16(raw[2:4]))
	checksum := binary.LittleEndian.Uint16(raw[4:6])
	payload := raw[EnvelopeSize:]

	if version != GSVersion {
		return s.fail(newError(ErrTypeVersion, nil, "device reported version %d, expected %d", version, GSVersion))
	}
	if length != len(payload) {
		return s.fail(newError(ErrTypeLength, nil, "envelope declares %d bytes but carries %d", length, len(payload)))
	}
	if length != s.layout.StructSize() {
		return s.fail(newError(ErrTypeLength, nil, "device structure is %d bytes, layout expects %d", length, s.layout.StructSize()))
	}
	if !ignoreChecksum && !s.disableGSChecksum {
		if got := CalculateGSChecksum(payload); got != checksum {
			return s.fail(newError(ErrTypeChecksum, nil, "checksum 0x%04X does not match payload checksum 0x%04X", checksum, got))
		}
	}

	s.mu.Lock()
	copy(s.pending, payload)
	copy(s.deviceRAM, payload)
	s.loaded = true
	s.mu.Unlock()

	s.logger.Debug("Settings refreshed", zap.Int("length", length), zap.Bool("ignoreChecksum", ignoreChecksum))
	return nil
}

// Apply writes pending to the device. With temporary set the device keeps
// the settings in RAM only; otherwise they are saved to non-volatile memory.
// Local state always ends up equal to what the device reports.
func (s *DeviceSettings) Apply(temporary bool) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if !s.Loaded() {
		return s.fail(newError(ErrTypeNotAvailable, nil, "settings were never read from the device"))
	}

	s.op.Lock()
	defer s.op.Unlock()
	s.applying.Store(true)
	defer s.applying.Store(false)

	if err := s.command(message.CmdSetSettings, s.envelope(), s.ackTimeout); err != nil {
		return s.recover(err)
	}
	return s.commit(temporary)
}

// ApplyDefaults asks the device to restore its default settings, then runs
// the same confirmation round as Apply.
func (s *DeviceSettings) ApplyDefaults(temporary bool) error {
	if err := s.checkWritable(); err != nil {
		return err
	}

	s.op.Lock()
	defer s.op.Unlock()
	s.applying.Store(true)
	defer s.applying.Store(false)

	if err := s.command(message.CmdSetDefaultSettings, nil, s.ackTimeout); err != nil {
		return s.recover(err)
	}
	return s.commit(temporary)
}

// commit runs after an acknowledged write: re-read ignoring the checksum,
// write the device's own state back with a fresh checksum, optionally save,
// then refresh.
func (s *DeviceSettings) commit(temporary bool) error {
	if err := s.refresh(true); err != nil {
		return s.recover(err)
	}
	if err := s.command(message.CmdSetSettings, s.envelope(), s.ackTimeout); err != nil {
		return s.recover(err)
	}

	var saveErr error
	if !temporary {
		if err := s.command(message.CmdSaveSettings, nil, s.saveTimeout); err != nil {
			saveErr = s.fail(newError(ErrTypeWrite, err, "settings were not saved"))
		}
	}

	if err := s.refresh(false); err != nil {
		return err
	}
	return saveErr
}

// recover re-reads the device after a failed write so local state matches
// it, and classifies the failure by whether the device still answers.
func (s *DeviceSettings) recover(cause error) error {
	if err := s.refresh(false); err != nil {
		return s.fail(newError(ErrTypeNoResponse, cause, "device did not acknowledge settings and could not be re-read"))
	}
	return s.fail(newError(ErrTypeWrite, cause, "device did not acknowledge settings but is in sync"))
}

// command sends cmd and waits for its acknowledgement.
func (s *DeviceSettings) command(cmd message.Command, args []byte, timeout time.Duration) error {
	msg, err := s.com.WaitForMessageSync(func() error {
		return s.com.SendCommand(cmd, args...)
	}, filter.NewMain51Filter(cmd), timeout)
	if err != nil {
		s.logger.Debug("Command not acknowledged", zap.Stringer("command", cmd), zap.Error(err))
		return err
	}
	if !msg.Acked() {
		return errNAck
	}
	return nil
}

// envelope frames pending for a SetSettings write.
func (s *DeviceSettings) envelope() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := make([]byte, 0, 1+EnvelopeSize+len(s.pending))
	b = append(b, 0x00)
	b = binary.LittleEndian.AppendUint16(b, GSVersion)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(s.pending)))
	b = binary.LittleEndian.AppendUint16(b, CalculateGSChecksum(s.pending))
	return append(b, s.pending...)
}

func (s *DeviceSettings) checkWritable() error {
	if s.readonly {
		return s.fail(newError(ErrTypeReadOnly, nil, "settings are read only"))
	}
	return nil
}

// fail reports e and returns it.
func (s *DeviceSettings) fail(e *Error) error {
	s.logger.Debug("Settings operation failed", zap.Error(e))
	s.report(e.Type.Event(), events.Error)
	return e
}
