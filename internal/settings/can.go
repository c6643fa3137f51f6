package settings

import (
	"encoding/binary"
	"fmt"
)

// Sizes of the encoded sub-structures.
const (
	CANSettingsSize   = 12
	CANFDSettingsSize = 10
)

// CANMode is the Mode field of CANSettings.
type CANMode uint8

const (
	ModeNormal     CANMode = 0
	ModeDisable    CANMode = 1
	ModeLoopback   CANMode = 2
	ModeListenOnly CANMode = 3
	ModeListenAll  CANMode = 7
)

func (m CANMode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeDisable:
		return "disabled"
	case ModeLoopback:
		return "loopback"
	case ModeListenOnly:
		return "listen-only"
	case ModeListenAll:
		return "listen-all"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// SetBaudrate values. With BaudrateAuto the device derives timing from the
// Baudrate enum; with BaudrateUseTQ it uses the explicit TQ fields.
const (
	BaudrateAuto  uint8 = 0
	BaudrateUseTQ uint8 = 1
)

// FDMode is the FDMode field of CANFDSettings.
type FDMode uint8

const (
	FDModeOff FDMode = iota
	FDModeEnabled
	FDModeBRSEnabled
	FDModeEnabledISO
	FDModeBRSEnabledISO
)

func (m FDMode) String() string {
	switch m {
	case FDModeOff:
		return "off"
	case FDModeEnabled:
		return "fd"
	case FDModeBRSEnabled:
		return "fd+brs"
	case FDModeEnabledISO:
		return "fd-iso"
	case FDModeBRSEnabledISO:
		return "fd-iso+brs"
	}
	return fmt.Sprintf("fdmode(%d)", uint8(m))
}

// CANSettings is the per-network CAN configuration.
//
//	0 Mode  1 SetBaudrate  2 Baudrate  3 TransceiverMode
//	4 TqSeg1  5 TqSeg2  6 TqProp  7 TqSync
//	8 BRP u16  10 AutoBaud  11 InnerFrameDelay25us
type CANSettings struct {
	Mode                CANMode
	SetBaudrate         uint8
	Baudrate            uint8
	TransceiverMode     uint8
	TqSeg1              uint8
	TqSeg2              uint8
	TqProp              uint8
	TqSync              uint8
	BRP                 uint16
	AutoBaud            uint8
	InnerFrameDelay25us uint8
}

// DecodeCANSettings reads a CANSettings from the front of b.
func DecodeCANSettings(b []byte) (CANSettings, error) {
	if len(b) < CANSettingsSize {
		return CANSettings{}, fmt.Errorf("CAN settings need %d bytes, have %d", CANSettingsSize, len(b))
	}
	return CANSettings{
		Mode:                CANMode(b[0]),
		SetBaudrate:         b[1],
		Baudrate:            b[2],
		TransceiverMode:     b[3],
		TqSeg1:              b[4],
		TqSeg2:              b[5],
		TqProp:              b[6],
		TqSync:              b[7],
		BRP:                 binary.LittleEndian.Uint16(b[8:10]),
		AutoBaud:            b[10],
		InnerFrameDelay25us: b[11],
	}, nil
}

// Encode writes s to the front of b.
func (s CANSettings) Encode(b []byte) error {
	if len(b) < CANSettingsSize {
		return fmt.Errorf("CAN settings need %d bytes, have %d", CANSettingsSize, len(b))
	}
	b[0] = byte(s.Mode)
	b[1] = s.SetBaudrate
	b[2] = s.Baudrate
	b[3] = s.TransceiverMode
	b[4] = s.TqSeg1
	b[5] = s.TqSeg2
	b[6] = s.TqProp
	b[7] = s.TqSync
	binary.LittleEndian.PutUint16(b[8:10], s.BRP)
	b[10] = s.AutoBaud
	b[11] = s.InnerFrameDelay25us
	return nil
}

// CANFDSettings is the per-network CAN FD data phase configuration.
//
//	0 FDMode  1 FDBaudrate  2 FDTqSeg1  3 FDTqSeg2  4 FDTqProp  5 FDTqSync
//	6 FDBRP u16  8 FDTDC  9 reserved
type CANFDSettings struct {
	FDMode     FDMode
	FDBaudrate uint8
	FDTqSeg1   uint8
	FDTqSeg2   uint8
	FDTqProp   uint8
	FDTqSync   uint8
	FDBRP      uint16
	FDTDC      uint8
	Reserved   uint8
}

// DecodeCANFDSettings reads a CANFDSettings from the front of b.
func DecodeCANFDSettings(b []byte) (CANFDSettings, error) {
	if len(b) < CANFDSettingsSize {
		return CANFDSettings{}, fmt.Errorf("CAN FD settings need %d bytes, have %d", CANFDSettingsSize, len(b))
	}
	return CANFDSettings{
		FDMode:     FDMode(b[0]),
		FDBaudrate: b[1],
		FDTqSeg1:   b[2],
		FDTqSeg2:   b[3],
		FDTqProp:   b[4],
		FDTqSync:   b[5],
		FDBRP:      binary.LittleEndian.Uint16(b[6:8]),
		FDTDC:      b[8],
		Reserved:   b[9],
	}, nil
}

// Encode writes s to the front of b.
func (s CANFDSettings) Encode(b []byte) error {
	if len(b) < CANFDSettingsSize {
		return fmt.Errorf("CAN FD settings need %d bytes, have %d", CANFDSettingsSize, len(b))
	}
	b[0] = byte(s.FDMode)
	b[1] = s.FDBaudrate
	b[2] = s.FDTqSeg1
	b[3] = s.FDTqSeg2
	b[4] = s.FDTqProp
	b[5] = s.FDTqSync
	binary.LittleEndian.PutUint16(b[6:8], s.FDBRP)
	b[8] = s.FDTDC
	b[9] = s.Reserved
	return nil
}
