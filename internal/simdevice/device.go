package simdevice

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/codec"
	"github.com/intrepidcs/libicsneo-sub002/internal/events"
	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
	"github.com/intrepidcs/libicsneo-sub002/internal/packetizer"
	"github.com/intrepidcs/libicsneo-sub002/internal/settings"
)

var (
	ErrClosed      = errors.New("simulated device is closed")
	ErrAlreadyOpen = errors.New("simulated device is already open")
)

const (
	defaultReadTimeout = 10 * time.Millisecond
	rxQueueSize        = 1024
)

// Config describes the simulated device.
type Config struct {
	Serial       string
	Layout       *settings.OffsetLayout
	Packetizer   packetizer.Options
	HardwareInfo message.HardwareInfo
	Components   []message.ComponentVersion

	// SettingsNetID carries settings replies. Defaults to network.ReadSettings.
	SettingsNetID network.NetID

	// EchoTransmit sends a TX receipt for every CAN frame the host sends.
	EchoTransmit bool

	ReadTimeout time.Duration
}

// DefaultConfig returns a device with serial "SIM001" and the default
// settings layout.
func DefaultConfig() Config {
	return Config{
		Serial: "SIM001",
		Layout: settings.DefaultLayout(),
		HardwareInfo: message.HardwareInfo{
			ManufactureDate:   time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC),
			HardwareRevision:  message.Version{Major: 2, Minor: 1},
			BootloaderVersion: message.Version{Major: 1, Minor: 4},
			DeviceID:          0x0C,
		},
		Components: []message.ComponentVersion{
			{Valid: true, Slot: 0, Identifier: 0x01, DotVersion: 0x00030002, CommitHash: 0xC0FFEE01},
		},
		SettingsNetID: network.ReadSettings,
		EchoTransmit:  true,
	}
}

// Device is a simulated device.
type Device struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex
	open    bool
	rx      chan []byte
	done    chan struct{}
	in      *packetizer.Packetizer
	out     *packetizer.Packetizer
	decoder *codec.Decoder
	encoder *codec.Encoder

	ram      []byte
	flash    []byte
	defaults []byte

	mutate          func(b []byte)
	nack            map[message.Command]bool
	silent          map[message.Command]bool
	settingsVersion uint16
	corruptChecksum bool
	staleChecksum   bool
	storedChecksum  uint16
	networkEnabled  bool
	commands        []message.Command
}

// New creates a simulated device. Its settings start at DefaultSettings.
func New(cfg Config) *Device {
	if cfg.Layout == nil {
		cfg.Layout = settings.DefaultLayout()
	}
	if cfg.SettingsNetID == 0 {
		cfg.SettingsNetID = network.ReadSettings
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}

	out := packetizer.New(cfg.Packetizer, events.Discard)
	initial := DefaultSettings(cfg.Layout)
	return &Device{
		cfg:             cfg,
		logger:          logging.Named("simdevice"),
		in:              packetizer.New(cfg.Packetizer, events.Discard),
		out:             out,
		decoder:         codec.NewDecoder(events.Discard),
		encoder:         codec.NewEncoder(out),
		ram:             bytes.Clone(initial),
		flash:           bytes.Clone(initial),
		defaults:        initial,
		nack:            make(map[message.Command]bool),
		silent:          make(map[message.Command]bool),
		settingsVersion: settings.GSVersion,
		storedChecksum:  settings.CalculateGSChecksum(initial),
	}
}

// DefaultSettings builds the factory settings for layout: every CAN channel
// at 500 kbit/s and every FD channel at 2 Mbit/s with bit rate switching.
func DefaultSettings(layout *settings.OffsetLayout) []byte {
	b := make([]byte, layout.StructSize())
	for name := range layout.CAN {
		id, err := network.ParseNetID(name)
		if err != nil {
			continue
		}
		off, _ := layout.CANOffset(id)
		code, _ := settings.BaudrateToEnum(500000)
		_ = settings.CANSettings{
			Mode:     settings.ModeNormal,
			Baudrate: code,
			TqSeg1:   0x0D,
			TqSeg2:   0x02,
			TqSync:   0x01,
			BRP:      0x0001,
		}.Encode(b[off:])
	}
	for name := range layout.CANFD {
		id, err := network.ParseNetID(name)
		if err != nil {
			continue
		}
		off, _ := layout.CANFDOffset(id)
		code, _ := settings.BaudrateToEnum(2000000)
		_ = settings.CANFDSettings{
			FDMode:     settings.FDModeBRSEnabledISO,
			FDBaudrate: code,
			FDTqSeg1:   0x0F,
			FDTqSeg2:   0x04,
			FDTqSync:   0x04,
			FDBRP:      0x0001,
		}.Encode(b[off:])
	}
	return b
}

// Open implements the Transport interface.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return ErrAlreadyOpen
	}
	d.open = true
	d.rx = make(chan []byte, rxQueueSize)
	d.done = make(chan struct{})
	d.in.Reset()
	logging.LogTransport("sim", "open")
	return nil
}

// Close implements the Transport interface.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return ErrClosed
	}
	d.open = false
	close(d.done)
	logging.LogTransport("sim", "close")
	return nil
}

// Read returns the next chunk the device sent, or nothing after the read
// timeout.
func (d *Device) Read() ([]byte, error) {
	d.mu.Lock()
	open, rx, done := d.open, d.rx, d.done
	d.mu.Unlock()

	if !open {
		return nil, ErrClosed
	}

	timer := time.NewTimer(d.cfg.ReadTimeout)
	defer timer.Stop()

	select {
	case b := <-rx:
		return b, nil
	case <-done:
		return nil, ErrClosed
	case <-timer.C:
		return nil, nil
	}
}

// Write feeds host bytes to the device.
func (d *Device) Write(b []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return ErrClosed
	}
	if !d.in.Input(b) {
		return nil
	}
	for _, pkt := range d.in.Output() {
		d.handle(pkt)
	}
	return nil
}

// Inject queues raw bytes for the host, exactly as given.
func (d *Device) Inject(b []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.push(bytes.Clone(b))
}

// InjectMessage encodes msg and queues it for the host.
func (d *Device) InjectMessage(msg *message.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, err := d.encoder.Encode(msg)
	if err != nil {
		return err
	}
	d.push(b)
	return nil
}

// push must be called with mu held.
func (d *Device) push(b []byte) {
	if !d.open {
		return
	}
	select {
	case d.rx <- b:
	default:
		d.logger.Warn("Simulated device receive queue full, dropping", zap.Int("bytes", len(b)))
	}
}

func (d *Device) send(net network.NetID, body []byte) {
	b, err := d.out.Wrap(net, body)
	if err != nil {
		d.logger.Warn("Failed to frame reply", zap.Error(err))
		return
	}
	d.push(b)
}

func (d *Device) handle(pkt *packetizer.Packet) {
	switch {
	case pkt.Network.ID == network.Main51:
		d.handleCommand(pkt.Data)
	case pkt.Network.Type() == network.TypeCAN:
		d.handleTransmit(pkt)
	default:
		d.logger.Debug("Ignoring host packet", zap.Stringer("network", pkt.Network))
	}
}

func (d *Device) handleTransmit(pkt *packetizer.Packet) {
	if !d.cfg.EchoTransmit {
		return
	}
	msg := d.decoder.Decode(pkt)
	if msg == nil || msg.CAN == nil {
		return
	}
	msg.CAN.Transmitted = true
	msg.Timestamp = uint64(time.Since(message.Epoch))
	b, err := d.encoder.Encode(msg)
	if err != nil {
		d.logger.Warn("Failed to encode TX receipt", zap.Error(err))
		return
	}
	d.push(b)
}

func (d *Device) handleCommand(body []byte) {
	if len(body) == 0 {
		return
	}
	cmd := message.Command(body[0])
	args := body[1:]
	d.commands = append(d.commands, cmd)

	if d.silent[cmd] {
		return
	}

	switch cmd {
	case message.CmdRequestSerialNumber:
		serial := make([]byte, 6)
		copy(serial, d.cfg.Serial)
		d.send(network.Main51, append([]byte{byte(cmd)}, serial...))

	case message.CmdGetHardwareInfo:
		d.send(network.Main51, append([]byte{byte(cmd)}, d.hardwareInfo()...))

	case message.CmdGetSettings:
		d.send(d.cfg.SettingsNetID, d.settingsReply())

	case message.CmdSetSettings:
		d.ack(cmd, d.setSettings(args))

	case message.CmdSaveSettings:
		d.flash = bytes.Clone(d.ram)
		d.ack(cmd, true)

	case message.CmdSetDefaultSettings:
		d.ram = bytes.Clone(d.defaults)
		d.storedChecksum = settings.CalculateGSChecksum(d.ram)
		d.ack(cmd, true)

	case message.CmdEnableNetworkCommunication:
		d.networkEnabled = len(args) > 0 && args[0] != 0

	case message.CmdExtended:
		d.handleExtended(args)

	default:
		d.logger.Debug("Unhandled command", zap.Stringer("command", cmd))
	}
}

func (d *Device) ack(cmd message.Command, ok bool) {
	status := byte(1)
	if !ok || d.nack[cmd] {
		status = 0
	}
	d.send(network.Main51, []byte{byte(cmd), status})
}

func (d *Device) settingsReply() []byte {
	checksum := settings.CalculateGSChecksum(d.ram)
	if d.staleChecksum {
		checksum = d.storedChecksum
	}
	if d.corruptChecksum {
		checksum ^= 0xFFFF
	}
	b := make([]byte, 0, settings.EnvelopeSize+len(d.ram))
	b = binary.LittleEndian.AppendUint16(b, d.settingsVersion)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(d.ram)))
	b = binary.LittleEndian.AppendUint16(b, checksum)
	return append(b, d.ram...)
}

// setSettings validates a write envelope and stores its payload.
func (d *Device) setSettings(args []byte) bool {
	if d.nack[message.CmdSetSettings] {
		return false
	}
	if len(args) < 1+settings.EnvelopeSize {
		return false
	}
	env := args[1:]
	version := binary.LittleEndian.Uint16(env[0:2])
	length := int(binary.LittleEndian.Uint16(env[2:4]))
	checksum := binary.LittleEndian.Uint16(env[4:6])
	payload := env[settings.EnvelopeSize:]

	if version != settings.GSVersion || length != len(payload) || length != len(d.ram) {
		return false
	}
	if checksum != settings.CalculateGSChecksum(payload) {
		return false
	}

	copy(d.ram, payload)
	d.storedChecksum = checksum
	if d.mutate != nil {
		d.mutate(d.ram)
	}
	return true
}

func (d *Device) hardwareInfo() []byte {
	info := d.cfg.HardwareInfo
	b := make([]byte, 10)
	if !info.ManufactureDate.IsZero() {
		b[0] = 1
		b[1] = byte(info.ManufactureDate.Day())
		b[2] = byte(info.ManufactureDate.Month())
		binary.LittleEndian.PutUint16(b[3:5], uint16(info.ManufactureDate.Year()))
	}
	b[5] = info.HardwareRevision.Major
	b[6] = info.HardwareRevision.Minor
	b[7] = info.DeviceID
	b[8] = info.BootloaderVersion.Major
	b[9] = info.BootloaderVersion.Minor
	return b
}

func (d *Device) handleExtended(args []byte) {
	if len(args) < 4 {
		return
	}
	cmd := message.ExtendedCommand(binary.LittleEndian.Uint16(args[0:2]))
	if cmd != message.ExtGetComponentVersions {
		d.logger.Debug("Unhandled extended command", zap.Stringer("command", cmd))
		return
	}

	body := binary.LittleEndian.AppendUint16(nil, uint16(len(d.cfg.Components)))
	for _, c := range d.cfg.Components {
		entry := make([]byte, 16)
		if c.Valid {
			entry[0] = 1
		}
		entry[1] = c.Slot
		entry[2] = c.Info
		binary.LittleEndian.PutUint32(entry[4:8], c.Identifier)
		binary.LittleEndian.PutUint32(entry[8:12], c.DotVersion)
		binary.LittleEndian.PutUint32(entry[12:16], c.CommitHash)
		body = append(body, entry...)
	}

	reply := binary.LittleEndian.AppendUint16(nil, uint16(cmd))
	reply = binary.LittleEndian.AppendUint16(reply, uint16(len(body)))
	d.send(network.ExtendedCommand, append(reply, body...))
}
