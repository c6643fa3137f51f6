package capture

import (
	"time"

	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

// Flags mirror the CAN frame bits worth keeping.
type Flags uint8

const (
	FlagExtended Flags = 1 << iota
	FlagRemote
	FlagCANFD
	FlagBRS
	FlagESI
	FlagTransmitted
)

// Record is one captured message.
type Record struct {
	Session   string    `cbor:"1,keyasint"`
	Seq       uint64    `cbor:"2,keyasint"`
	Captured  time.Time `cbor:"3,keyasint"`
	Kind      string    `cbor:"4,keyasint"`
	NetID     uint16    `cbor:"5,keyasint"`
	Timestamp uint64    `cbor:"6,keyasint,omitempty"`
	ArbID     uint32    `cbor:"7,keyasint,omitempty"`
	Flags     Flags     `cbor:"8,keyasint,omitempty"`
	Data      []byte    `cbor:"9,keyasint,omitempty"`
}

// FromMessage builds a record from a decoded message. Session, Seq and
// Captured are left for the Writer.
func FromMessage(msg *message.Message) Record {
	rec := Record{
		Kind:      msg.Kind.String(),
		NetID:     uint16(msg.Network.ID),
		Timestamp: msg.Timestamp,
		Data:      append([]byte(nil), msg.Data...),
	}
	if f := msg.CAN; f != nil {
		rec.ArbID = f.ArbID
		if f.IsExtended {
			rec.Flags |= FlagExtended
		}
		if f.IsRemote {
			rec.Flags |= FlagRemote
		}
		if f.IsCANFD {
			rec.Flags |= FlagCANFD
		}
		if f.BRS {
			rec.Flags |= FlagBRS
		}
		if f.ESI {
			rec.Flags |= FlagESI
		}
		if f.Transmitted {
			rec.Flags |= FlagTransmitted
		}
	}
	return rec
}

// IsCAN reports whether the record holds a CAN frame.
func (r Record) IsCAN() bool {
	return r.Kind == message.KindCAN.String()
}

// Message rebuilds a message suitable for transmission. CAN records become
// CAN messages; anything else is returned as raw data on its network.
func (r Record) Message() *message.Message {
	net := network.NetID(r.NetID)
	if !r.IsCAN() {
		msg := message.NewRaw(net, append([]byte(nil), r.Data...))
		msg.Timestamp = r.Timestamp
		return msg
	}
	msg := message.NewCAN(net, r.ArbID, append([]byte(nil), r.Data...))
	msg.Timestamp = r.Timestamp
	msg.CAN.IsExtended = r.Flags&FlagExtended != 0
	msg.CAN.IsRemote = r.Flags&FlagRemote != 0
	msg.CAN.IsCANFD = r.Flags&FlagCANFD != 0
	msg.CAN.BRS = r.Flags&FlagBRS != 0
	msg.CAN.ESI = r.Flags&FlagESI != 0
	return msg
}
