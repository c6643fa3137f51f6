package message

import "fmt"

// Command is the Main51 opcode that starts a command packet.
type Command uint8

const (
	CmdEnableNetworkCommunication   Command = 0x07
	CmdEnableNetworkCommunicationEx Command = 0x08
	CmdNeoReadMemory                Command = 0x40
	CmdRequestSerialNumber          Command = 0xA1
	CmdGetMainVersion               Command = 0xA3
	CmdSetSettings                  Command = 0xA4
	CmdGetSettings                  Command = 0xA5
	CmdSaveSettings                 Command = 0xA6
	CmdSetDefaultSettings           Command = 0xA8
	CmdGetHardwareInfo              Command = 0xB7
	CmdRequestStatusUpdate          Command = 0xBC
	CmdExtended                     Command = 0xF0
	CmdExtendedData                 Command = 0xF2
)

func (c Command) String() string {
	switch c {
	case CmdEnableNetworkCommunication:
		return "EnableNetworkCommunication"
	case CmdEnableNetworkCommunicationEx:
		return "EnableNetworkCommunicationEx"
	case CmdNeoReadMemory:
		return "NeoReadMemory"
	case CmdRequestSerialNumber:
		return "RequestSerialNumber"
	case CmdGetMainVersion:
		return "GetMainVersion"
	case CmdSetSettings:
		return "SetSettings"
	case CmdGetSettings:
		return "GetSettings"
	case CmdSaveSettings:
		return "SaveSettings"
	case CmdSetDefaultSettings:
		return "SetDefaultSettings"
	case CmdGetHardwareInfo:
		return "GetHardwareInfo"
	case CmdRequestStatusUpdate:
		return "RequestStatusUpdate"
	case CmdExtended:
		return "Extended"
	case CmdExtendedData:
		return "ExtendedData"
	default:
		return fmt.Sprintf("Command(0x%02X)", uint8(c))
	}
}

// ExtendedCommand is the 16-bit sub-command carried by CmdExtended.
type ExtendedCommand uint16

const (
	ExtGenericReturn        ExtendedCommand = 0x0000
	ExtGetComponentVersions ExtendedCommand = 0x001A
	ExtReboot               ExtendedCommand = 0x001C
)

func (c ExtendedCommand) String() string {
	switch c {
	case ExtGenericReturn:
		return "GenericReturn"
	case ExtGetComponentVersions:
		return "GetComponentVersions"
	case ExtReboot:
		return "Reboot"
	default:
		return fmt.Sprintf("ExtendedCommand(0x%04X)", uint16(c))
	}
}
