package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
	"github.com/intrepidcs/libicsneo-sub002/internal/packetizer"
)

var ErrEmptyMessage = errors.New("message has no data to encode")

// Encoder turns messages and commands into wire bytes.
type Encoder struct {
	// TimestampResolution converts Message.Timestamp back to device ticks.
	TimestampResolution uint64

	p *packetizer.Packetizer
}

// NewEncoder creates an Encoder that frames through p.
func NewEncoder(p *packetizer.Packetizer) *Encoder {
	return &Encoder{
		TimestampResolution: DefaultTimestampResolution,
		p:                   p,
	}
}

// Encode returns the framed bytes for msg.
func (e *Encoder) Encode(msg *message.Message) ([]byte, error) {
	if msg == nil {
		return nil, ErrEmptyMessage
	}

	var body []byte
	switch msg.Kind {
	case message.KindCAN:
		if msg.Network.Type() != network.TypeCAN {
			return nil, fmt.Errorf("CAN message on non-CAN network %s", msg.Network)
		}
		b, err := encodeCANFrame(msg, e.TimestampResolution)
		if err != nil {
			return nil, err
		}
		body = b
	case message.KindMain51:
		body = append([]byte{byte(msg.Command)}, msg.Data...)
	default:
		if len(msg.Data) == 0 {
			return nil, ErrEmptyMessage
		}
		body = msg.Data
	}

	return e.p.Wrap(msg.Network.ID, body)
}

// EncodeCommand frames a Main51 command with its arguments.
func (e *Encoder) EncodeCommand(cmd message.Command, args []byte) ([]byte, error) {
	body := make([]byte, 0, 1+len(args))
	body = append(body, byte(cmd))
	body = append(body, args...)
	return e.p.Wrap(network.Main51, body)
}

// EncodeExtendedCommand frames an extended command:
// {CmdExtended, sub-command u16, length u16, args}.
func (e *Encoder) EncodeExtendedCommand(cmd message.ExtendedCommand, args []byte) ([]byte, error) {
	if len(args) > 0xFFFF {
		return nil, fmt.Errorf("extended command arguments too long: %d", len(args))
	}
	body := make([]byte, 0, 5+len(args))
	body = append(body, byte(message.CmdExtended))
	body = binary.LittleEndian.AppendUint16(body, uint16(cmd))
	body = binary.LittleEndian.AppendUint16(body, uint16(len(args)))
	body = append(body, args...)
	return e.p.Wrap(network.Main51, body)
}
