package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

// HardwareCANFrameSize is the fixed part of a CAN frame.
const HardwareCANFrameSize = 24

// DefaultTimestampResolution is the tick length in nanoseconds of most
// device families.
const DefaultTimestampResolution = 25

const (
	tsMask        = 1<<60 - 1
	tsExtendedBit = 1 << 63
	fdExtHeader   = 4
)

var (
	ErrMissingCANFrame = errors.New("CAN message has no frame fields")
	ErrInvalidArbID    = errors.New("arbitration ID out of range")
	ErrDataTooLong     = errors.New("too much data for CAN frame")
	ErrRemoteFD        = errors.New("remote frames cannot be CAN FD")
)

// word0
const (
	bitIDE   = 0
	bitSRR   = 1
	shiftSID = 2
	bitEDL   = 13
	bitBRS   = 14
	bitESI   = 15
)

// word1
const (
	maskEID      = 0x0FFF
	bitTXMsg     = 12
	bitTXAborted = 13
	bitTXLostArb = 14
	bitTXError   = 15
)

// word2
const (
	maskDLC   = 0x000F
	bitRTR    = 9
	shiftEID2 = 10
)

func bit(w uint16, n uint) bool {
	return w>>n&1 == 1
}

func setBit(w *uint16, n uint, v bool) {
	if v {
		*w |= 1 << n
	}
}

// decodeCANFrame decodes the hardware frame. It returns nil when the buffer
// is too short for the declared length.
func decodeCANFrame(net network.Network, b []byte, resolution uint64) *message.Message {
	if len(b) < HardwareCANFrameSize {
		return nil
	}

	w0 := binary.LittleEndian.Uint16(b[0:2])
	w1 := binary.LittleEndian.Uint16(b[2:4])
	w2 := binary.LittleEndian.Uint16(b[4:6])
	ts := binary.LittleEndian.Uint64(b[16:24])

	ide := bit(w0, bitIDE)
	srr := bit(w0, bitSRR)
	sid := uint32(w0>>shiftSID) & message.MaxStandardArbID
	rtr := bit(w2, bitRTR)
	dlc := uint8(w2 & maskDLC)

	f := &message.CANFrame{
		IsExtended:  ide,
		DLCOnWire:   dlc,
		Transmitted: bit(w1, bitTXMsg),
		TxAborted:   bit(w1, bitTXAborted),
		TxLostArb:   bit(w1, bitTXLostArb),
		TxError:     bit(w1, bitTXError),
	}

	if ide {
		eid := uint32(w1 & maskEID)
		eid2 := uint32(w2 >> shiftEID2)
		f.ArbID = sid<<18 | eid<<6 | eid2
	} else {
		f.ArbID = sid
	}

	if bit(w0, bitEDL) && ts&tsExtendedBit != 0 {
		f.IsCANFD = true
		f.BRS = bit(w0, bitBRS)
		f.ESI = bit(w0, bitESI)
	}

	length := message.DLCToLength(dlc, f.IsCANFD)

	var data []byte
	if !f.IsCANFD && ((rtr && ide) || (!ide && srr)) {
		f.IsRemote = true
		data = make([]byte, length)
	} else {
		data = make([]byte, 0, length)
		data = append(data, b[6:6+min(length, 8)]...)
		if length > 8 {
			ext := b[HardwareCANFrameSize:]
			if len(ext) < fdExtHeader {
				return nil
			}
			extLen := int(binary.LittleEndian.Uint16(ext[2:4]))
			ext = ext[fdExtHeader:]
			if extLen < length-8 || len(ext) < length-8 {
				return nil
			}
			data = append(data, ext[:length-8]...)
		}
	}

	return &message.Message{
		Kind:      message.KindCAN,
		Network:   net,
		Data:      data,
		Timestamp: (ts & tsMask) * resolution,
		CAN:       f,
	}
}

// encodeCANFrame builds the hardware frame for msg.
func encodeCANFrame(msg *message.Message, resolution uint64) ([]byte, error) {
	f := msg.CAN
	if f == nil {
		return nil, ErrMissingCANFrame
	}
	if f.IsCANFD && f.IsRemote {
		return nil, ErrRemoteFD
	}

	n := len(msg.Data)
	if n > 64 || (n > 8 && !f.IsCANFD) {
		return nil, fmt.Errorf("%w: %d bytes", ErrDataTooLong, n)
	}
	if f.IsExtended && f.ArbID > message.MaxExtendedArbID {
		return nil, fmt.Errorf("%w: 0x%X is not a 29-bit ID", ErrInvalidArbID, f.ArbID)
	}
	if !f.IsExtended && f.ArbID > message.MaxStandardArbID {
		return nil, fmt.Errorf("%w: 0x%X is not an 11-bit ID", ErrInvalidArbID, f.ArbID)
	}

	// FD lengths that fall between DLC steps are padded up to the next step.
	size := n
	dlc := uint8(n)
	if n > 8 {
		for size <= 64 {
			if code, ok := message.LengthToDLC(size); ok {
				dlc = code
				break
			}
			size++
		}
	}

	var w0, w1, w2 uint16
	setBit(&w0, bitIDE, f.IsExtended)
	if f.IsExtended {
		w0 |= uint16(f.ArbID>>18&message.MaxStandardArbID) << shiftSID
		w1 |= uint16(f.ArbID>>6) & maskEID
		w2 |= uint16(f.ArbID&0x3F) << shiftEID2
		setBit(&w2, bitRTR, f.IsRemote)
	} else {
		w0 |= uint16(f.ArbID) << shiftSID
		setBit(&w0, bitSRR, f.IsRemote)
	}
	setBit(&w0, bitEDL, f.IsCANFD)
	setBit(&w0, bitBRS, f.IsCANFD && f.BRS)
	setBit(&w0, bitESI, f.IsCANFD && f.ESI)

	setBit(&w1, bitTXMsg, f.Transmitted)
	setBit(&w1, bitTXAborted, f.TxAborted)
	setBit(&w1, bitTXLostArb, f.TxLostArb)
	setBit(&w1, bitTXError, f.TxError)

	w2 |= uint16(dlc) & maskDLC

	ts := msg.Timestamp
	if resolution > 0 {
		ts /= resolution
	}
	ts &= tsMask
	if f.IsCANFD {
		ts |= tsExtendedBit
	}

	out := make([]byte, HardwareCANFrameSize, HardwareCANFrameSize+fdExtHeader+size)
	binary.LittleEndian.PutUint16(out[0:2], w0)
	binary.LittleEndian.PutUint16(out[2:4], w1)
	binary.LittleEndian.PutUint16(out[4:6], w2)
	if !f.IsRemote {
		copy(out[6:14], msg.Data)
	}
	binary.LittleEndian.PutUint64(out[16:24], ts)

	if size > 8 {
		out = binary.LittleEndian.AppendUint16(out, uint16(msg.Network.ID))
		out = binary.LittleEndian.AppendUint16(out, uint16(size-8))
		out = append(out, msg.Data[8:]...)
		out = append(out, make([]byte, size-n)...)
	}
	return out, nil
}
