package codec

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/events"
	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
	"github.com/intrepidcs/libicsneo-sub002/internal/packetizer"
)

// Decoder turns packets into messages.
type Decoder struct {
	// TimestampResolution is the length of one device timestamp tick in
	// nanoseconds.
	TimestampResolution uint64

	report events.Reporter
	logger *zap.Logger
}

// NewDecoder creates a Decoder with the default timestamp resolution.
func NewDecoder(report events.Reporter) *Decoder {
	if report == nil {
		report = events.Discard
	}
	return &Decoder{
		TimestampResolution: DefaultTimestampResolution,
		report:              report,
		logger:              logging.Named("decoder"),
	}
}

// Decode returns the message carried by p, or nil if p is malformed.
func (d *Decoder) Decode(p *packetizer.Packet) *message.Message {
	if p == nil {
		return nil
	}
	msg := d.decode(p.Network, p.Data, 0)
	if msg == nil {
		d.logger.Debug("Dropped malformed packet",
			zap.Stringer("network", p.Network),
			logging.HexField("data", p.Data),
		)
		d.report(events.PacketDecodingError, events.Warning)
	}
	return msg
}

func (d *Decoder) decode(net network.Network, b []byte, depth int) *message.Message {
	switch net.Type() {
	case network.TypeCAN:
		return decodeCANFrame(net, b, d.TimestampResolution)

	case network.TypeInternal:
		switch net.ID {
		case network.Main51:
			return decodeMain51(net, b)
		case network.RedReadBaudSettings, network.ReadSettings:
			return &message.Message{Kind: message.KindReadSettings, Network: net, Data: b}
		case network.ResetStatus:
			return decodeResetStatus(net, b)
		case network.RedAppError:
			return decodeAppError(net, b)
		case network.CANErrBits:
			return decodeCANErrorCount(net, b)
		case network.EthernetStatus:
			return decodeEthernetStatus(net, b)
		case network.TextAPIToHost, network.DataToHost:
			return decodeLogData(net, b)
		case network.RedIntMemoryRead:
			return decodeFlashMemory(net, b)
		case network.ExtendedCommand:
			return decodeExtendedResponse(net, b)
		case network.ExtendedData:
			return decodeExtendedData(net, b)
		case network.RedOldFormat:
			return d.decodeOldFormat(b, depth)
		}
	}

	return &message.Message{Kind: message.KindRaw, Network: net, Data: b}
}

// decodeOldFormat unwraps a short-style packet carried inside a long one:
// {length u16, header byte whose low nibble is the NetID, payload}. The
// inner packet is decoded again under its own NetID.
func (d *Decoder) decodeOldFormat(b []byte, depth int) *message.Message {
	if depth > 0 || len(b) < oldFormatHeaderSize {
		return nil
	}
	length := int(binary.LittleEndian.Uint16(b[0:2]))
	inner := network.New(network.NetID(b[2] & 0x0F))
	payload := b[oldFormatHeaderSize:]
	if length > len(payload) {
		return nil
	}
	return d.decode(inner, payload[:length], depth+1)
}
