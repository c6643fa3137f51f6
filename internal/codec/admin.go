package codec

import (
	"bytes"
	"encoding/binary"
	"net"
	"time"

	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

// Fixed layout sizes of device replies, excluding any leading command byte.
const (
	serialNumberSize     = 6
	serialWithMACSize    = serialNumberSize + 6
	serialWithPCBSize    = serialWithMACSize + 16
	hardwareInfoSize     = 10
	resetStatusSize      = 26
	appErrorSize         = 12
	canErrorCountSize    = 9
	ethernetStatusSize   = 6
	extendedHeaderSize   = 4
	extendedDataHdrSize  = 12
	componentVersionSize = 16
	flashMemoryHdrSize   = 4
	oldFormatHeaderSize  = 3
)

// CAN error count flag bits.
const (
	canErrorWarn    = 0x01
	canErrorPassive = 0x08
	canBusOff       = 0x20
)

func trimNUL(b []byte) string {
	return string(bytes.TrimRight(b, "\x00 "))
}

// decodeMain51 handles replies on the Main51 network. b[0] is the command
// being answered.
func decodeMain51(pkt network.Network, b []byte) *message.Message {
	if len(b) < 1 {
		return nil
	}
	cmd := message.Command(b[0])
	body := b[1:]
	msg := &message.Message{
		Kind:       message.KindMain51,
		Network:    pkt,
		Data:       body,
		Command:    cmd,
		HasCommand: true,
	}

	switch cmd {
	case message.CmdRequestSerialNumber:
		if len(body) < serialNumberSize {
			return nil
		}
		sn := &message.SerialNumber{DeviceSerial: trimNUL(body[:serialNumberSize])}
		if len(body) >= serialWithMACSize {
			sn.HasMAC = true
			sn.MACAddress = net.HardwareAddr(bytes.Clone(body[serialNumberSize:serialWithMACSize]))
		}
		if len(body) >= serialWithPCBSize {
			sn.HasPCBSerial = true
			sn.PCBSerial = trimNUL(body[serialWithMACSize:serialWithPCBSize])
		}
		msg.Kind = message.KindSerialNumber
		msg.SerialNumber = sn

	case message.CmdGetHardwareInfo:
		// A bare acknowledgement carries only the status byte.
		if len(body) < hardwareInfoSize {
			return msg
		}
		info := &message.HardwareInfo{
			HardwareRevision:  message.Version{Major: body[5], Minor: body[6]},
			DeviceID:          body[7],
			BootloaderVersion: message.Version{Major: body[8], Minor: body[9]},
		}
		if body[0] != 0 {
			day, month := int(body[1]), time.Month(body[2])
			year := int(binary.LittleEndian.Uint16(body[3:5]))
			info.ManufactureDate = time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		}
		msg.Kind = message.KindHardwareInfo
		msg.HardwareInfo = info
	}

	return msg
}

func decodeResetStatus(pkt network.Network, b []byte) *message.Message {
	if len(b) < resetStatusSize {
		return nil
	}
	status := binary.LittleEndian.Uint32(b[4:8])
	rs := &message.ResetStatus{
		MainLoopTime:    binary.LittleEndian.Uint16(b[0:2]),
		MaxMainLoopTime: binary.LittleEndian.Uint16(b[2:4]),

		JustReset:       status&(1<<0) != 0,
		ComEnabled:      status&(1<<1) != 0,
		CoreMiniRunning: status&(1<<2) != 0,
		CANBusOff:       status&(1<<3) != 0,
		DeviceBusy:      status&(1<<4) != 0,
		LowVoltage:      status&(1<<5) != 0,
		USBInterrupt:    status&(1<<6) != 0,
		HardwareFailure: status&(1<<7) != 0,

		SPI1Kbps:          binary.LittleEndian.Uint16(b[14:16]),
		InitBits:          binary.LittleEndian.Uint16(b[16:18]),
		CPUMIPS:           uint32(binary.LittleEndian.Uint16(b[18:20]))<<16 | uint32(binary.LittleEndian.Uint16(b[20:22])),
		BusVoltage:        binary.LittleEndian.Uint16(b[22:24]),
		DeviceTemperature: binary.LittleEndian.Uint16(b[24:26]),
	}
	copy(rs.Histogram[:], b[8:14])

	return &message.Message{
		Kind:        message.KindResetStatus,
		Network:     pkt,
		Data:        b,
		ResetStatus: rs,
	}
}

func decodeAppError(pkt network.Network, b []byte) *message.Message {
	if len(b) < appErrorSize {
		return nil
	}
	ts := uint64(binary.LittleEndian.Uint32(b[8:12]))<<32 | uint64(binary.LittleEndian.Uint32(b[4:8]))
	return &message.Message{
		Kind:      message.KindAppError,
		Network:   pkt,
		Data:      b,
		Timestamp: ts * 10000,
		AppError: &message.AppError{
			ErrorType:     message.AppErrorType(binary.LittleEndian.Uint16(b[0:2])),
			ErrorNetwork:  network.NetID(binary.LittleEndian.Uint16(b[2:4])),
			Timestamp10us: ts,
		},
	}
}

func decodeCANErrorCount(pkt network.Network, b []byte) *message.Message {
	if len(b) < canErrorCountSize {
		return nil
	}
	flags := b[6]
	return &message.Message{
		Kind:    message.KindCANErrorCount,
		Network: pkt,
		Data:    b,
		CANErrorCount: &message.CANErrorCount{
			ErrorCode:     b[0],
			DataErrorCode: b[1],
			REC:           b[7],
			TEC:           b[8],
			ErrorWarn:     flags&canErrorWarn != 0,
			ErrorPassive:  flags&canErrorPassive != 0,
			BusOff:        flags&canBusOff != 0,
		},
	}
}

func decodeEthernetStatus(pkt network.Network, b []byte) *message.Message {
	if len(b) < ethernetStatusSize {
		return nil
	}
	return &message.Message{
		Kind:    message.KindEthernetStatus,
		Network: pkt,
		Data:    b,
		EthernetStatus: &message.EthernetStatus{
			LinkUp:  b[0] != 0,
			Speed:   message.EthernetSpeed(b[1]),
			Duplex:  b[2] != 0,
			Network: network.NetID(binary.LittleEndian.Uint16(b[3:5])),
			Mode:    message.EthernetMode(b[5]),
		},
	}
}

func decodeLogData(pkt network.Network, b []byte) *message.Message {
	if len(b) < 1 {
		return nil
	}
	return &message.Message{
		Kind:    message.KindLogData,
		Network: pkt,
		Data:    b,
		LogData: &message.LogData{Text: trimNUL(b)},
	}
}

func decodeFlashMemory(pkt network.Network, b []byte) *message.Message {
	if len(b) < flashMemoryHdrSize {
		return nil
	}
	return &message.Message{
		Kind:        message.KindFlashMemory,
		Network:     pkt,
		Data:        b[flashMemoryHdrSize:],
		FlashMemory: &message.FlashMemory{Address: binary.LittleEndian.Uint32(b[0:4])},
	}
}

func decodeExtendedData(pkt network.Network, b []byte) *message.Message {
	if len(b) < extendedDataHdrSize {
		return nil
	}
	ed := &message.ExtendedData{
		SubCommand: binary.LittleEndian.Uint32(b[0:4]),
		Offset:     binary.LittleEndian.Uint32(b[4:8]),
		Length:     binary.LittleEndian.Uint32(b[8:12]),
	}
	payload := b[extendedDataHdrSize:]
	if uint64(ed.Length) > uint64(len(payload)) {
		return nil
	}
	return &message.Message{
		Kind:         message.KindExtendedData,
		Network:      pkt,
		Data:         payload[:ed.Length],
		ExtendedData: ed,
	}
}

// decodeExtendedResponse handles replies on the ExtendedCommand network:
// {command u16, length u16} followed by a command-specific body.
func decodeExtendedResponse(pkt network.Network, b []byte) *message.Message {
	if len(b) < extendedHeaderSize {
		return nil
	}
	cmd := message.ExtendedCommand(binary.LittleEndian.Uint16(b[0:2]))
	length := int(binary.LittleEndian.Uint16(b[2:4]))
	body := b[extendedHeaderSize:]
	if length > len(body) {
		return nil
	}
	body = body[:length]

	if cmd == message.ExtGetComponentVersions {
		if len(body) < 2 {
			return nil
		}
		count := int(binary.LittleEndian.Uint16(body[0:2]))
		entries := body[2:]
		if count*componentVersionSize > len(entries) {
			return nil
		}
		versions := make([]message.ComponentVersion, count)
		for i := range versions {
			e := entries[i*componentVersionSize:]
			versions[i] = message.ComponentVersion{
				Valid:      e[0] != 0,
				Slot:       e[1],
				Info:       e[2],
				Identifier: binary.LittleEndian.Uint32(e[4:8]),
				DotVersion: binary.LittleEndian.Uint32(e[8:12]),
				CommitHash: binary.LittleEndian.Uint32(e[12:16]),
			}
		}
		return &message.Message{
			Kind:              message.KindComponentVersions,
			Network:           pkt,
			Data:              body,
			ComponentVersions: versions,
		}
	}

	if len(body) < 4 {
		return nil
	}
	return &message.Message{
		Kind:    message.KindExtendedResponse,
		Network: pkt,
		Data:    body,
		ExtendedResponse: &message.ExtendedResponse{
			Command:  cmd,
			Response: message.ExtendedResponseCode(int32(binary.LittleEndian.Uint32(body[0:4]))),
		},
	}
}
