package network

import (
	"fmt"
	"strconv"
	"strings"
)

// NetID is the 16-bit network identifier used by device firmware.
type NetID uint16

// Device firmware network identifiers.
const (
	Device              NetID = 0
	HSCAN               NetID = 1
	MSCAN               NetID = 2
	SWCAN               NetID = 3
	LSFTCAN             NetID = 4
	FordSCP             NetID = 5
	J1708               NetID = 6
	Aux                 NetID = 7
	J1850VPW            NetID = 8
	ISO9141             NetID = 9
	DiskData            NetID = 10
	Main51              NetID = 11
	RED                 NetID = 12
	SCI                 NetID = 13
	ISO9141_2           NetID = 14
	ISO14230            NetID = 15
	LIN                 NetID = 16
	OPEthernet1         NetID = 17
	OPEthernet2         NetID = 18
	OPEthernet3         NetID = 19
	RedIntMemoryRead    NetID = 21
	CANErrBits          NetID = 24
	RedReadBaudSettings NetID = 36
	RedOldFormat        NetID = 37
	HSCAN2              NetID = 42
	HSCAN3              NetID = 44
	OPEthernet4         NetID = 45
	OPEthernet5         NetID = 46
	LIN2                NetID = 48
	LIN3                NetID = 49
	LIN4                NetID = 50
	RedAppError         NetID = 52
	ResetStatus         NetID = 54
	ReadSettings        NetID = 60
	HSCAN4              NetID = 61
	HSCAN5              NetID = 62
	SWCAN2              NetID = 68
	DataToHost          NetID = 70
	TextAPIToHost       NetID = 71
	FlexRay1a           NetID = 80
	FlexRay1b           NetID = 81
	LIN5                NetID = 84
	FlexRay             NetID = 85
	MOST25              NetID = 90
	MOST50              NetID = 91
	MOST150             NetID = 92
	Ethernet            NetID = 93
	HSCAN6              NetID = 96
	HSCAN7              NetID = 97
	LIN6                NetID = 98
	LSFTCAN2            NetID = 99
	EthPHYControl       NetID = 239
	ExtendedCommand     NetID = 240
	ExtendedData        NetID = 242
	DeviceStatus        NetID = 513
	Ethernet2           NetID = 520
	Ethernet3           NetID = 524

	// EthernetStatus carries link state reports for the automotive Ethernet ports.
	EthernetStatus NetID = EthPHYControl

	// Any matches every NetID in a filter. It is never sent on the wire.
	Any NetID = 0xFFFE
	// Invalid marks an unset or unknown network.
	Invalid NetID = 0xFFFF
)

// Type is the broad class of a network.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeInternal
	TypeCAN
	TypeLIN
	TypeFlexRay
	TypeMOST
	TypeEthernet
	TypeOther
	TypeAny
)

var netIDNames = map[NetID]string{
	Device:              "Device",
	HSCAN:               "HSCAN",
	MSCAN:               "MSCAN",
	SWCAN:               "SWCAN",
	LSFTCAN:             "LSFTCAN",
	FordSCP:             "FordSCP",
	J1708:               "J1708",
	Aux:                 "Aux",
	J1850VPW:            "J1850VPW",
	ISO9141:             "ISO9141",
	DiskData:            "DiskData",
	Main51:              "Main51",
	RED:                 "RED",
	SCI:                 "SCI",
	ISO9141_2:           "ISO9141_2",
	ISO14230:            "ISO14230",
	LIN:                 "LIN",
	OPEthernet1:         "OP_Ethernet1",
	OPEthernet2:         "OP_Ethernet2",
	OPEthernet3:         "OP_Ethernet3",
	RedIntMemoryRead:    "RED_INT_MEMORYREAD",
	CANErrBits:          "CAN_ERRBITS",
	RedReadBaudSettings: "RED_READ_BAUD_SETTINGS",
	RedOldFormat:        "RED_OLDFORMAT",
	HSCAN2:              "HSCAN2",
	HSCAN3:              "HSCAN3",
	OPEthernet4:         "OP_Ethernet4",
	OPEthernet5:         "OP_Ethernet5",
	LIN2:                "LIN2",
	LIN3:                "LIN3",
	LIN4:                "LIN4",
	RedAppError:         "RED_App_Error",
	ResetStatus:         "Reset_Status",
	ReadSettings:        "ReadSettings",
	HSCAN4:              "HSCAN4",
	HSCAN5:              "HSCAN5",
	SWCAN2:              "SWCAN2",
	DataToHost:          "Data_To_Host",
	TextAPIToHost:       "TextAPI_To_Host",
	FlexRay1a:           "FlexRay1a",
	FlexRay1b:           "FlexRay1b",
	LIN5:                "LIN5",
	FlexRay:             "FlexRay",
	MOST25:              "MOST25",
	MOST50:              "MOST50",
	MOST150:             "MOST150",
	Ethernet:            "Ethernet",
	HSCAN6:              "HSCAN6",
	HSCAN7:              "HSCAN7",
	LIN6:                "LIN6",
	LSFTCAN2:            "LSFTCAN2",
	EthPHYControl:       "EthPHYControl",
	ExtendedCommand:     "ExtendedCommand",
	ExtendedData:        "ExtendedData",
	DeviceStatus:        "DeviceStatus",
	Ethernet2:           "Ethernet2",
	Ethernet3:           "Ethernet3",
	Any:                 "Any",
	Invalid:             "Invalid",
}

// TypeOf returns the network type for a NetID.
func TypeOf(id NetID) Type {
	switch id {
	case HSCAN, MSCAN, SWCAN, LSFTCAN, HSCAN2, HSCAN3, HSCAN4, HSCAN5,
		SWCAN2, HSCAN6, HSCAN7, LSFTCAN2:
		return TypeCAN
	case LIN, LIN2, LIN3, LIN4, LIN5, LIN6:
		return TypeLIN
	case FlexRay, FlexRay1a, FlexRay1b:
		return TypeFlexRay
	case MOST25, MOST50, MOST150:
		return TypeMOST
	case Ethernet, Ethernet2, Ethernet3, OPEthernet1, OPEthernet2, OPEthernet3,
		OPEthernet4, OPEthernet5:
		return TypeEthernet
	case Device, Main51, RED, DiskData, RedIntMemoryRead, CANErrBits,
		RedReadBaudSettings, RedOldFormat, RedAppError, ResetStatus,
		ReadSettings, DataToHost, TextAPIToHost, EthPHYControl,
		ExtendedCommand, ExtendedData, DeviceStatus:
		return TypeInternal
	case Any:
		return TypeAny
	case Invalid:
		return TypeInvalid
	default:
		return TypeOther
	}
}

// String returns the firmware name of the NetID, or its number if unnamed.
func (id NetID) String() string {
	if name, ok := netIDNames[id]; ok {
		return name
	}
	return fmt.Sprintf("NetID(%d)", uint16(id))
}

// ParseNetID accepts a NetID name (case-insensitive) or a decimal/hex number.
func ParseNetID(s string) (NetID, error) {
	s = strings.TrimSpace(s)
	for id, name := range netIDNames {
		if strings.EqualFold(name, s) {
			return id, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return Invalid, fmt.Errorf("unknown network %q", s)
	}
	return NetID(n), nil
}

func (t Type) String() string {
	switch t {
	case TypeInvalid:
		return "Invalid"
	case TypeInternal:
		return "Internal"
	case TypeCAN:
		return "CAN"
	case TypeLIN:
		return "LIN"
	case TypeFlexRay:
		return "FlexRay"
	case TypeMOST:
		return "MOST"
	case TypeEthernet:
		return "Ethernet"
	case TypeOther:
		return "Other"
	case TypeAny:
		return "Any"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Network wraps a NetID with its derived type.
type Network struct {
	ID NetID
}

// New returns the Network for a NetID.
func New(id NetID) Network {
	return Network{ID: id}
}

// Type returns the class of the network.
func (n Network) Type() Type {
	return TypeOf(n.ID)
}

func (n Network) String() string {
	return n.ID.String()
}
