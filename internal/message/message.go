package message

import (
	"fmt"
	"time"

	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

// Epoch is the zero point of device timestamps.
var Epoch = time.Date(2007, time.January, 1, 0, 0, 0, 0, time.UTC)

// Kind discriminates the Message variants.
type Kind uint8

const (
	KindAny Kind = iota
	KindRaw
	KindCAN
	KindCANErrorCount
	KindEthernetStatus
	KindSerialNumber
	KindResetStatus
	KindHardwareInfo
	KindAppError
	KindLogData
	KindExtendedData
	KindMain51
	KindReadSettings
	KindComponentVersions
	KindFlashMemory
	KindExtendedResponse
)

var kindNames = [...]string{
	KindAny:               "Any",
	KindRaw:               "Raw",
	KindCAN:               "CAN",
	KindCANErrorCount:     "CANErrorCount",
	KindEthernetStatus:    "EthernetStatus",
	KindSerialNumber:      "SerialNumber",
	KindResetStatus:       "ResetStatus",
	KindHardwareInfo:      "HardwareInfo",
	KindAppError:          "AppError",
	KindLogData:           "LogData",
	KindExtendedData:      "ExtendedData",
	KindMain51:            "Main51",
	KindReadSettings:      "ReadSettings",
	KindComponentVersions: "ComponentVersions",
	KindFlashMemory:       "FlashMemory",
	KindExtendedResponse:  "ExtendedResponse",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Message is one decoded (or to-be-encoded) unit of traffic.
type Message struct {
	Kind      Kind
	Network   network.Network
	Data      []byte
	Timestamp uint64

	// Command is set for every message that answers a Main51 command:
	// KindMain51, KindSerialNumber and KindHardwareInfo.
	Command    Command
	HasCommand bool

	CAN               *CANFrame
	CANErrorCount     *CANErrorCount
	EthernetStatus    *EthernetStatus
	SerialNumber      *SerialNumber
	ResetStatus       *ResetStatus
	HardwareInfo      *HardwareInfo
	AppError          *AppError
	LogData           *LogData
	ExtendedData      *ExtendedData
	ComponentVersions []ComponentVersion
	FlashMemory       *FlashMemory
	ExtendedResponse  *ExtendedResponse
}

// NewRaw returns a raw message carrying data on net.
func NewRaw(net network.NetID, data []byte) *Message {
	return &Message{Kind: KindRaw, Network: network.New(net), Data: data}
}

// NewCAN returns a CAN message ready for encoding.
func NewCAN(net network.NetID, arbID uint32, data []byte) *Message {
	return &Message{
		Kind:    KindCAN,
		Network: network.New(net),
		Data:    data,
		CAN:     &CANFrame{ArbID: arbID, IsExtended: arbID > MaxStandardArbID},
	}
}

// Time converts the device timestamp to wall-clock time.
func (m *Message) Time() time.Time {
	return Epoch.Add(time.Duration(m.Timestamp))
}

// Acked reports whether a Main51 command reply signals success.
func (m *Message) Acked() bool {
	return m != nil && len(m.Data) > 0 && m.Data[0] == 1
}

func (m *Message) String() string {
	switch m.Kind {
	case KindCAN:
		return fmt.Sprintf("CAN{%s, %s}", m.Network, m.CAN)
	case KindSerialNumber:
		return fmt.Sprintf("SerialNumber{%s}", m.SerialNumber.DeviceSerial)
	case KindMain51:
		return fmt.Sprintf("Main51{%s, Data=% X}", m.Command, m.Data)
	default:
		return fmt.Sprintf("%s{%s, Length=%d}", m.Kind, m.Network, len(m.Data))
	}
}
