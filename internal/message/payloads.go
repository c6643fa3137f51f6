package message

import (
	"fmt"
	"net"
	"time"

	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

// MaxStandardArbID is the largest 11-bit identifier.
const MaxStandardArbID = 0x7FF

// MaxExtendedArbID is the largest 29-bit identifier.
const MaxExtendedArbID = 0x1FFFFFFF

// CANFrame carries the CAN-specific fields of a KindCAN message. The payload
// lives in Message.Data.
type CANFrame struct {
	ArbID      uint32
	IsExtended bool
	IsRemote   bool
	IsCANFD    bool
	BRS        bool
	ESI        bool
	// DLCOnWire is the 4-bit DLC code as seen on the bus.
	DLCOnWire uint8

	Transmitted bool
	TxAborted   bool
	TxLostArb   bool
	TxError     bool
}

func (f *CANFrame) String() string {
	if f == nil {
		return "<nil>"
	}
	id := fmt.Sprintf("%03X", f.ArbID)
	if f.IsExtended {
		id = fmt.Sprintf("%08X", f.ArbID)
	}
	flags := ""
	if f.IsCANFD {
		flags += " FD"
		if f.BRS {
			flags += " BRS"
		}
	}
	if f.IsRemote {
		flags += " RTR"
	}
	if f.Transmitted {
		flags += " TX"
	}
	return fmt.Sprintf("ID=%s DLC=%d%s", id, f.DLCOnWire, flags)
}

var fdLengths = [16]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 12, 16, 20, 24, 32, 48, 64}

// DLCToLength maps a DLC code to its data length. Classic CAN clamps codes
// above 8 to 8 bytes.
func DLCToLength(dlc uint8, fd bool) int {
	dlc &= 0x0F
	if !fd && dlc > 8 {
		return 8
	}
	return fdLengths[dlc]
}

// LengthToDLC returns the DLC code for an exact CAN FD data length.
func LengthToDLC(n int) (uint8, bool) {
	for dlc, l := range fdLengths {
		if l == n {
			return uint8(dlc), true
		}
	}
	return 0, false
}

// CANErrorCount is the controller error state reported on CAN_ERRBITS.
type CANErrorCount struct {
	ErrorCode     uint8
	DataErrorCode uint8
	TEC           uint8
	REC           uint8
	ErrorWarn     bool
	ErrorPassive  bool
	BusOff        bool
}

// EthernetStatus reports the link state of one Ethernet port.
type EthernetStatus struct {
	Network network.NetID
	LinkUp  bool
	Speed   EthernetSpeed
	Duplex  bool
	Mode    EthernetMode
}

type EthernetSpeed uint8

const (
	Speed10 EthernetSpeed = iota
	Speed100
	Speed1000
	Speed2500
	Speed5000
	Speed10000
)

func (s EthernetSpeed) String() string {
	switch s {
	case Speed10:
		return "10M"
	case Speed100:
		return "100M"
	case Speed1000:
		return "1G"
	case Speed2500:
		return "2.5G"
	case Speed5000:
		return "5G"
	case Speed10000:
		return "10G"
	default:
		return fmt.Sprintf("Speed(%d)", uint8(s))
	}
}

type EthernetMode uint8

const (
	ModeAuto EthernetMode = iota
	ModeMaster
	ModeSlave
)

// SerialNumber is the reply to CmdRequestSerialNumber.
type SerialNumber struct {
	DeviceSerial string
	MACAddress   net.HardwareAddr
	PCBSerial    string
	HasMAC       bool
	HasPCBSerial bool
}

// ResetStatus is the periodic firmware health report.
type ResetStatus struct {
	MainLoopTime    uint16
	MaxMainLoopTime uint16

	JustReset       bool
	ComEnabled      bool
	CoreMiniRunning bool
	CANBusOff       bool
	DeviceBusy      bool
	LowVoltage      bool
	USBInterrupt    bool
	HardwareFailure bool

	Histogram [6]uint8
	SPI1Kbps  uint16
	InitBits  uint16
	CPUMIPS   uint32

	BusVoltage        uint16
	DeviceTemperature uint16
}

// HardwareInfo is the reply to CmdGetHardwareInfo.
type HardwareInfo struct {
	ManufactureDate   time.Time
	HardwareRevision  Version
	BootloaderVersion Version
	DeviceID          uint8
}

// Version is a major.minor pair.
type Version struct {
	Major uint8
	Minor uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AppError is an application error raised by device firmware.
type AppError struct {
	ErrorType     AppErrorType
	ErrorNetwork  network.NetID
	Timestamp10us uint64
}

type AppErrorType uint16

const (
	AppErrRxMessagesFull      AppErrorType = 0
	AppErrTxMessagesFull      AppErrorType = 1
	AppErrTxReportBufferFull  AppErrorType = 2
	AppErrBadCommWithDspIC    AppErrorType = 3
	AppErrDriverOverflow      AppErrorType = 4
	AppErrPCBuffOverflow      AppErrorType = 5
	AppErrPCChksumError       AppErrorType = 6
	AppErrPCMissedByte        AppErrorType = 7
	AppErrPCOverrunError      AppErrorType = 8
	AppErrSettingFailure      AppErrorType = 9
	AppErrTooManySelectedNets AppErrorType = 10
	AppErrNetworkNotEnabled   AppErrorType = 11
)

func (t AppErrorType) String() string {
	switch t {
	case AppErrRxMessagesFull:
		return "RxMessagesFull"
	case AppErrTxMessagesFull:
		return "TxMessagesFull"
	case AppErrTxReportBufferFull:
		return "TxReportBufferFull"
	case AppErrBadCommWithDspIC:
		return "BadCommWithDspIC"
	case AppErrDriverOverflow:
		return "DriverOverflow"
	case AppErrPCBuffOverflow:
		return "PCBuffOverflow"
	case AppErrPCChksumError:
		return "PCChecksumError"
	case AppErrPCMissedByte:
		return "PCMissedByte"
	case AppErrPCOverrunError:
		return "PCOverrunError"
	case AppErrSettingFailure:
		return "SettingFailure"
	case AppErrTooManySelectedNets:
		return "TooManySelectedNetworks"
	case AppErrNetworkNotEnabled:
		return "NetworkNotEnabled"
	default:
		return fmt.Sprintf("AppErrorType(%d)", uint16(t))
	}
}

// LogData is free-form text the firmware sends to the host.
type LogData struct {
	Text string
}

// ExtendedData is one chunk of a multi-part extended data transfer.
type ExtendedData struct {
	SubCommand uint32
	Offset     uint32
	Length     uint32
}

// ComponentVersion describes one firmware component.
type ComponentVersion struct {
	Valid      bool
	Slot       uint8
	Info       uint8
	Identifier uint32
	DotVersion uint32
	CommitHash uint32
}

func (c ComponentVersion) String() string {
	return fmt.Sprintf("%08X v%d.%d.%d.%d (%08x)", c.Identifier,
		c.DotVersion>>24, (c.DotVersion>>16)&0xFF, (c.DotVersion>>8)&0xFF, c.DotVersion&0xFF, c.CommitHash)
}

// FlashMemory is a block read back from device memory.
type FlashMemory struct {
	Address uint32
}

// ExtendedResponse is the generic reply to an extended command.
type ExtendedResponse struct {
	Command  ExtendedCommand
	Response ExtendedResponseCode
}

type ExtendedResponseCode int32

const (
	ExtOK               ExtendedResponseCode = 0
	ExtInvalidCommand   ExtendedResponseCode = -1
	ExtInvalidState     ExtendedResponseCode = -2
	ExtOperationFailed  ExtendedResponseCode = -3
	ExtOperationPending ExtendedResponseCode = -4
	ExtInvalidParameter ExtendedResponseCode = -5
)
