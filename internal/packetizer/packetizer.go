package packetizer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/events"
	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

const (
	// SyncByte starts every packet.
	SyncByte = 0xAA
	// PadByte follows odd-length packets on 16-bit aligned links.
	PadByte = 'A'

	// MaxShortPayload is the largest payload the short form can carry.
	MaxShortPayload = 15
	// MaxPayload bounds long-form payloads.
	MaxPayload = 4000

	shortHeaderSize = 2
	longHeaderSize  = 6
)

var (
	ErrEmptyBody    = errors.New("packet body is empty")
	ErrBodyTooLarge = errors.New("packet body exceeds maximum payload")
)

// Packet is one framed unit: a NetID plus its payload.
type Packet struct {
	Network network.Network
	Data    []byte
}

func (p *Packet) String() string {
	return fmt.Sprintf("Packet{Network=%s, Length=%d}", p.Network, len(p.Data))
}

// Options select per-product framing quirks.
type Options struct {
	DisableChecksum bool `yaml:"disable_checksum"`
	Align16Bit      bool `yaml:"align_16bit"`
}

type readState int

const (
	searchForHeader readState = iota
	parseHeader
	parseLongStylePacketHeader
	getData
)

// Packetizer is the framing state machine. It is not safe for concurrent
// use; Communication drives it from the reader goroutine only. The loss
// counters may be read from any goroutine.
type Packetizer struct {
	opts   Options
	report events.Reporter
	logger *zap.Logger

	buf []byte
	pos int

	state       readState
	headerSize  int
	payloadLen  int
	netID       network.NetID
	skipPad     bool
	gotGoodPkt  bool
	ready       []*Packet
	discarded   atomic.Uint64
	checksumErr atomic.Uint64
}

// New creates a Packetizer. A nil reporter discards events.
func New(opts Options, report events.Reporter) *Packetizer {
	if report == nil {
		report = events.Discard
	}
	return &Packetizer{
		opts:   opts,
		report: report,
		logger: logging.Named("packetizer"),
	}
}

// Options returns the framing options in effect.
func (p *Packetizer) Options() Options {
	return p.opts
}

// Input appends bytes to the stream and frames as many packets as possible.
// It returns true if at least one packet is ready for Output.
func (p *Packetizer) Input(b []byte) bool {
	p.buf = append(p.buf, b...)

	for p.step() {
	}

	p.compact()
	return len(p.ready) > 0
}

// Output drains the ready packets in arrival order.
func (p *Packetizer) Output() []*Packet {
	out := p.ready
	p.ready = nil
	return out
}

// Reset discards all buffered bytes and returns to SearchForHeader.
func (p *Packetizer) Reset() {
	p.buf = p.buf[:0]
	p.pos = 0
	p.state = searchForHeader
	p.skipPad = false
	p.gotGoodPkt = false
	p.ready = nil
}

// Discarded returns the number of bytes dropped while resynchronizing.
func (p *Packetizer) Discarded() uint64 {
	return p.discarded.Load()
}

// ChecksumFailures returns the number of candidates rejected on checksum.
func (p *Packetizer) ChecksumFailures() uint64 {
	return p.checksumErr.Load()
}

func (p *Packetizer) avail() []byte {
	return p.buf[p.pos:]
}

func (p *Packetizer) drop(n int) {
	p.pos += n
}

// step advances the state machine once. It returns false when more input
// is required.
func (p *Packetizer) step() bool {
	data := p.avail()

	switch p.state {
	case searchForHeader:
		if len(data) < 1 {
			return false
		}
		if p.skipPad {
			p.skipPad = false
			p.drop(1)
			return true
		}
		if data[0] != SyncByte {
			p.drop(1)
			p.discarded.Add(1)
			return true
		}
		p.state = parseHeader
		return true

	case parseHeader:
		if len(data) < shortHeaderSize {
			return false
		}
		length := int(data[1] & 0x0F)
		if length == 0 {
			p.state = parseLongStylePacketHeader
			return true
		}
		p.payloadLen = length
		p.netID = network.NetID(data[1] >> 4)
		p.headerSize = shortHeaderSize
		p.state = getData
		return true

	case parseLongStylePacketHeader:
		if len(data) < longHeaderSize {
			return false
		}
		length := int(binary.LittleEndian.Uint16(data[2:4]))
		if length < 1 || length > MaxPayload {
			p.logger.Debug("Rejected long packet header", zap.Int("length", length))
			p.resync()
			p.report(events.FailedToRead, events.Error)
			return true
		}
		p.payloadLen = length
		p.netID = network.NetID(binary.LittleEndian.Uint16(data[4:6]))
		p.headerSize = longHeaderSize
		p.state = getData
		return true

	case getData:
		total := p.headerSize + p.payloadLen + 1
		if len(data) < total {
			return false
		}
		if !p.opts.DisableChecksum && Checksum(data[1:total-1]) != data[total-1] {
			p.checksumErr.Add(1)
			p.logger.Debug("Packet checksum mismatch",
				zap.Stringer("network", p.netID),
				zap.Int("length", p.payloadLen),
			)
			// Starting mid-stream routinely produces one bad candidate.
			if p.gotGoodPkt {
				p.report(events.PacketChecksumError, events.Warning)
			}
			p.resync()
			return true
		}

		payload := make([]byte, p.payloadLen)
		copy(payload, data[p.headerSize:p.headerSize+p.payloadLen])
		p.ready = append(p.ready, &Packet{Network: network.New(p.netID), Data: payload})
		p.gotGoodPkt = true
		p.drop(total)
		if p.opts.Align16Bit && total%2 == 1 {
			p.skipPad = true
		}
		p.state = searchForHeader
		return true
	}

	return false
}

// resync drops the sync byte of the current candidate and rescans.
func (p *Packetizer) resync() {
	p.drop(1)
	p.discarded.Add(1)
	p.state = searchForHeader
}

func (p *Packetizer) compact() {
	if p.pos == 0 {
		return
	}
	n := copy(p.buf, p.buf[p.pos:])
	p.buf = p.buf[:n]
	p.pos = 0
}

// Wrap frames a packet body for transmission on netid, choosing the short
// form when the body and NetID fit and the long form otherwise.
func (p *Packetizer) Wrap(netid network.NetID, body []byte) ([]byte, error) {
	if len(body) == 0 {
		return nil, ErrEmptyBody
	}
	if len(body) > MaxPayload {
		return nil, fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, len(body), MaxPayload)
	}

	var out []byte
	if len(body) <= MaxShortPayload && netid < 0x10 {
		out = make([]byte, 0, shortHeaderSize+len(body)+2)
		out = append(out, SyncByte, byte(netid)<<4|byte(len(body)))
	} else {
		out = make([]byte, 0, longHeaderSize+len(body)+2)
		out = append(out, SyncByte, byte(netid&0x0F)<<4)
		out = binary.LittleEndian.AppendUint16(out, uint16(len(body)))
		out = binary.LittleEndian.AppendUint16(out, uint16(netid))
	}
	out = append(out, body...)

	if p.opts.DisableChecksum {
		out = append(out, 0x00)
	} else {
		out = append(out, Checksum(out[1:]))
	}

	if p.opts.Align16Bit && len(out)%2 == 1 {
		out = append(out, PadByte)
	}
	return out, nil
}

// Checksum is the additive 8-bit packet checksum.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return sum
}
