package communication

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/codec"
	"github.com/intrepidcs/libicsneo-sub002/internal/events"
	"github.com/intrepidcs/libicsneo-sub002/internal/filter"
	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/metrics"
	"github.com/intrepidcs/libicsneo-sub002/internal/packetizer"
)

const (
	// DefaultSyncTimeout bounds WaitForMessageSync when no timeout is given.
	DefaultSyncTimeout = 500 * time.Millisecond

	// DefaultPollingLimit is the polling queue size.
	DefaultPollingLimit = 20000

	readErrorBackoff = 50 * time.Millisecond
)

var (
	ErrNotOpen     = errors.New("communication is not open")
	ErrAlreadyOpen = errors.New("communication is already open")
	ErrTimeout     = errors.New("timed out waiting for device response")
	ErrNoResponse  = errors.New("device response was malformed")
)

// Transport moves raw bytes to and from a device.
//
// Read blocks for at most a short, bounded interval and may return an empty
// slice when nothing arrived; the reader goroutine relies on this to notice
// Close promptly.
type Transport interface {
	Open() error
	Close() error
	Read() ([]byte, error)
	Write(b []byte) error
}

type config struct {
	packetizer   packetizer.Options
	resolution   uint64
	report       events.Reporter
	metrics      *metrics.Metrics
	logger       *zap.Logger
	pollingLimit int
}

// Option configures a Communication.
type Option func(*config)

// WithPacketizerOptions sets the framing quirks of the device family.
func WithPacketizerOptions(opts packetizer.Options) Option {
	return func(c *config) {
		c.packetizer = opts
	}
}

// WithTimestampResolution sets the device tick length in nanoseconds.
func WithTimestampResolution(ns uint64) Option {
	return func(c *config) {
		if ns > 0 {
			c.resolution = ns
		}
	}
}

// WithReporter sets the event sink.
func WithReporter(r events.Reporter) Option {
	return func(c *config) {
		c.report = r
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithPollingLimit sets the default polling queue size.
func WithPollingLimit(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.pollingLimit = n
		}
	}
}

func defaultConfig() config {
	return config{
		resolution:   codec.DefaultTimestampResolution,
		report:       events.Discard,
		logger:       logging.Named("communication"),
		pollingLimit: DefaultPollingLimit,
	}
}

// Communication is the link to one device.
type Communication struct {
	transport  Transport
	packetizer *packetizer.Packetizer
	encoder    *codec.Encoder
	decoder    *codec.Decoder
	callbacks  *filter.Registry
	metrics    *metrics.Metrics
	logger     *zap.Logger
	userReport events.Reporter

	lifecycle sync.Mutex
	open      atomic.Bool
	closing   atomic.Bool
	wg        sync.WaitGroup

	writeMu sync.Mutex

	pollMu       sync.Mutex
	pollLimit    int
	pollQueue    []*message.Message
	pollCallback int
	polling      bool
}

// New creates a Communication over t. It does not open the transport.
func New(t Transport, opts ...Option) *Communication {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.report == nil {
		cfg.report = events.Discard
	}

	c := &Communication{
		transport:  t,
		callbacks:  filter.NewRegistry(),
		metrics:    cfg.metrics,
		logger:     cfg.logger,
		userReport: cfg.report,
		pollLimit:  cfg.pollingLimit,
	}
	c.packetizer = packetizer.New(cfg.packetizer, c.report)
	c.encoder = codec.NewEncoder(c.packetizer)
	c.encoder.TimestampResolution = cfg.resolution
	c.decoder = codec.NewDecoder(c.report)
	c.decoder.TimestampResolution = cfg.resolution
	return c
}

func (c *Communication) report(t events.Type, s events.Severity) {
	c.metrics.Event(t.String(), s.String())
	c.userReport(t, s)
}

// Report forwards an event to the configured sink. Layers built on top of
// a Communication (device settings) report through it.
func (c *Communication) Report(t events.Type, s events.Severity) {
	c.report(t, s)
}

// Encoder returns the encoder bound to this link's framing options.
func (c *Communication) Encoder() *codec.Encoder {
	return c.encoder
}

// FramingStats counts what the packetizer threw away.
type FramingStats struct {
	Discarded        uint64
	ChecksumFailures uint64
}

// FramingStats returns the framing losses since New.
func (c *Communication) FramingStats() FramingStats {
	return FramingStats{
		Discarded:        c.packetizer.Discarded(),
		ChecksumFailures: c.packetizer.ChecksumFailures(),
	}
}

// IsOpen reports whether the reader goroutine is running.
func (c *Communication) IsOpen() bool {
	return c.open.Load()
}

// Open opens the transport and starts the reader goroutine.
func (c *Communication) Open() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.open.Load() {
		c.report(events.DeviceCurrentlyOpen, events.Error)
		return ErrAlreadyOpen
	}
	if err := c.transport.Open(); err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}

	c.packetizer.Reset()
	c.closing.Store(false)
	c.open.Store(true)
	c.wg.Add(1)
	go c.readLoop()

	c.logger.Info("Communication opened")
	return nil
}

// Close stops the reader goroutine and closes the transport.
func (c *Communication) Close() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if !c.open.Load() {
		c.report(events.DeviceCurrentlyClosed, events.Error)
		return ErrNotOpen
	}

	c.closing.Store(true)
	c.wg.Wait()
	c.open.Store(false)

	if err := c.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	c.logger.Info("Communication closed")
	return nil
}

func (c *Communication) readLoop() {
	defer c.wg.Done()

	for !c.closing.Load() {
		b, err := c.transport.Read()
		if err != nil {
			if c.closing.Load() {
				return
			}
			c.logger.Warn("Transport read failed", zap.Error(err))
			c.report(events.FailedToRead, events.Error)
			time.Sleep(readErrorBackoff)
			continue
		}
		if len(b) == 0 {
			continue
		}

		c.metrics.BytesRead(len(b))
		logging.LogRawBytes("rx", b)

		if !c.packetizer.Input(b) {
			continue
		}
		pkts := c.packetizer.Output()
		c.metrics.PacketsFramed(len(pkts))

		for _, pkt := range pkts {
			logging.LogPacket("rx packet", pkt.Network.String(), pkt.Data)
			msg := c.decoder.Decode(pkt)
			if msg == nil {
				c.metrics.DecodeFailed()
				continue
			}
			c.metrics.MessageDecoded(msg.Kind.String())
			c.callbacks.Dispatch(msg)
		}
	}
}

// AddMessageCallback registers cb and returns its id.
func (c *Communication) AddMessageCallback(cb *filter.Callback) int {
	return c.callbacks.Add(cb)
}

// RemoveMessageCallback unregisters a callback.
func (c *Communication) RemoveMessageCallback(id int) bool {
	return c.callbacks.Remove(id)
}

// RawWrite writes already framed bytes to the transport.
func (c *Communication) RawWrite(b []byte) error {
	if !c.open.Load() {
		return ErrNotOpen
	}

	c.writeMu.Lock()
	err := c.transport.Write(b)
	c.writeMu.Unlock()

	if err != nil {
		c.logger.Warn("Transport write failed", zap.Error(err))
		c.report(events.FailedToWrite, events.Error)
		return fmt.Errorf("failed to write to transport: %w", err)
	}
	c.metrics.BytesWritten(len(b))
	logging.LogRawBytes("tx", b)
	return nil
}

// SendCommand sends a Main51 command.
func (c *Communication) SendCommand(cmd message.Command, args ...byte) error {
	b, err := c.encoder.EncodeCommand(cmd, args)
	if err != nil {
		c.report(events.MessageFormattingError, events.Error)
		return fmt.Errorf("failed to encode %s: %w", cmd, err)
	}
	return c.RawWrite(b)
}

// SendExtendedCommand sends an extended command.
func (c *Communication) SendExtendedCommand(cmd message.ExtendedCommand, args []byte) error {
	b, err := c.encoder.EncodeExtendedCommand(cmd, args)
	if err != nil {
		c.report(events.MessageFormattingError, events.Error)
		return fmt.Errorf("failed to encode %s: %w", cmd, err)
	}
	return c.RawWrite(b)
}

// Transmit encodes and sends a message, typically a CAN frame.
func (c *Communication) Transmit(msg *message.Message) error {
	b, err := c.encoder.Encode(msg)
	if err != nil {
		c.report(events.MessageFormattingError, events.Error)
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return c.RawWrite(b)
}

// WaitForMessageSync runs send, then waits up to timeout for the first
// message matching f. The matching callback is registered before send runs.
// If send fails its error is returned immediately.
func (c *Communication) WaitForMessageSync(send func() error, f filter.Filter, timeout time.Duration) (*message.Message, error) {
	if timeout <= 0 {
		timeout = DefaultSyncTimeout
	}

	ch := make(chan *message.Message, 1)
	id := c.callbacks.Add(filter.NewCallback(f, func(msg *message.Message) {
		select {
		case ch <- msg:
		default:
		}
	}))
	defer c.callbacks.Remove(id)

	start := time.Now()
	if send != nil {
		if err := send(); err != nil {
			return nil, err
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-ch:
		c.metrics.SyncWait(time.Since(start), false)
		return msg, nil
	case <-timer.C:
		c.metrics.SyncWait(time.Since(start), true)
		c.logger.Debug("Timed out waiting for response", zap.Duration("timeout", timeout))
		c.report(events.SyncTimeout, events.Warning)
		return nil, ErrTimeout
	}
}
