package codec

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrepidcs/libicsneo-sub002/internal/events"
	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
	"github.com/intrepidcs/libicsneo-sub002/internal/packetizer"
)

// roundTrip encodes msg, frames it, and decodes the single resulting packet.
func roundTrip(t *testing.T, msg *message.Message) *message.Message {
	t.Helper()
	p := packetizer.New(packetizer.Options{}, nil)
	enc := NewEncoder(p)
	dec := NewDecoder(nil)

	wire, err := enc.Encode(msg)
	require.NoError(t, err)
	require.True(t, p.Input(wire))
	pkts := p.Output()
	require.Len(t, pkts, 1)

	got := dec.Decode(pkts[0])
	require.NotNil(t, got)
	return got
}

func TestCANRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		frame message.CANFrame
		data  []byte
	}{
		{
			name:  "standard",
			frame: message.CANFrame{ArbID: 0x123},
			data:  []byte{0xDE, 0xAD, 0xBE, 0xEF},
		},
		{
			name:  "standard max id, empty",
			frame: message.CANFrame{ArbID: 0x7FF},
			data:  []byte{},
		},
		{
			name:  "extended",
			frame: message.CANFrame{ArbID: 0x18DAF110, IsExtended: true},
			data:  []byte{1, 2, 3, 4, 5, 6, 7, 8},
		},
		{
			name:  "extended max id",
			frame: message.CANFrame{ArbID: message.MaxExtendedArbID, IsExtended: true},
			data:  []byte{0xFF},
		},
		{
			name:  "standard remote",
			frame: message.CANFrame{ArbID: 0x321, IsRemote: true},
			data:  make([]byte, 3),
		},
		{
			name:  "extended remote",
			frame: message.CANFrame{ArbID: 0x1ABCDE, IsExtended: true, IsRemote: true},
			data:  make([]byte, 8),
		},
		{
			name:  "fd short with brs",
			frame: message.CANFrame{ArbID: 0x100, IsCANFD: true, BRS: true},
			data:  []byte{9, 8, 7},
		},
		{
			name:  "fd 64 bytes extended",
			frame: message.CANFrame{ArbID: 0x1FFFF000, IsExtended: true, IsCANFD: true, BRS: true, ESI: true},
			data:  bytes.Repeat([]byte{0x5A}, 64),
		},
		{
			name:  "transmit receipt flags",
			frame: message.CANFrame{ArbID: 0x7E0, Transmitted: true, TxLostArb: true},
			data:  []byte{0x02, 0x10, 0x03},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := tt.frame
			msg := &message.Message{
				Kind:      message.KindCAN,
				Network:   network.New(network.HSCAN),
				Data:      tt.data,
				Timestamp: 123456 * DefaultTimestampResolution,
				CAN:       &frame,
			}
			got := roundTrip(t, msg)

			assert.Equal(t, message.KindCAN, got.Kind)
			assert.Equal(t, network.HSCAN, got.Network.ID)
			assert.Equal(t, tt.frame.ArbID, got.CAN.ArbID)
			assert.Equal(t, tt.frame.IsExtended, got.CAN.IsExtended)
			assert.Equal(t, tt.frame.IsRemote, got.CAN.IsRemote)
			assert.Equal(t, tt.frame.IsCANFD, got.CAN.IsCANFD)
			assert.Equal(t, tt.frame.BRS, got.CAN.BRS)
			assert.Equal(t, tt.frame.ESI, got.CAN.ESI)
			assert.Equal(t, tt.frame.Transmitted, got.CAN.Transmitted)
			assert.Equal(t, tt.frame.TxLostArb, got.CAN.TxLostArb)
			assert.Equal(t, tt.data, got.Data)
			assert.Equal(t, msg.Timestamp, got.Timestamp)
		})
	}
}

func TestCANRoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		extended := r.Intn(2) == 1
		fd := r.Intn(2) == 1
		id := uint32(r.Intn(message.MaxStandardArbID + 1))
		if extended {
			id = uint32(r.Int63n(message.MaxExtendedArbID + 1))
		}
		n := r.Intn(9)
		if fd {
			n = []int{0, 5, 8, 12, 16, 20, 24, 32, 48, 64}[r.Intn(10)]
		}
		data := make([]byte, n)
		r.Read(data)

		msg := &message.Message{
			Kind:    message.KindCAN,
			Network: network.New(network.HSCAN2),
			Data:    data,
			CAN:     &message.CANFrame{ArbID: id, IsExtended: extended, IsCANFD: fd},
		}
		got := roundTrip(t, msg)
		require.Equal(t, id, got.CAN.ArbID, "iteration %d", i)
		require.Equal(t, data, got.Data, "iteration %d", i)
		require.Equal(t, fd, got.CAN.IsCANFD, "iteration %d", i)
	}
}

func TestCANFDPadsToNextDLC(t *testing.T) {
	msg := message.NewCAN(network.HSCAN, 0x10, bytes.Repeat([]byte{1}, 10))
	msg.CAN.IsCANFD = true
	got := roundTrip(t, msg)

	require.Len(t, got.Data, 12)
	assert.Equal(t, uint8(9), got.CAN.DLCOnWire)
	assert.Equal(t, []byte{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0}, got.Data)
}

func TestCANEncodeErrors(t *testing.T) {
	enc := NewEncoder(packetizer.New(packetizer.Options{}, nil))

	tests := []struct {
		name    string
		msg     *message.Message
		wantErr error
	}{
		{
			name:    "standard id too large",
			msg:     &message.Message{Kind: message.KindCAN, Network: network.New(network.HSCAN), CAN: &message.CANFrame{ArbID: 0x800}},
			wantErr: ErrInvalidArbID,
		},
		{
			name:    "extended id too large",
			msg:     &message.Message{Kind: message.KindCAN, Network: network.New(network.HSCAN), CAN: &message.CANFrame{ArbID: 0x20000000, IsExtended: true}},
			wantErr: ErrInvalidArbID,
		},
		{
			name:    "classic data too long",
			msg:     &message.Message{Kind: message.KindCAN, Network: network.New(network.HSCAN), Data: make([]byte, 9), CAN: &message.CANFrame{ArbID: 1}},
			wantErr: ErrDataTooLong,
		},
		{
			name:    "fd data too long",
			msg:     &message.Message{Kind: message.KindCAN, Network: network.New(network.HSCAN), Data: make([]byte, 65), CAN: &message.CANFrame{ArbID: 1, IsCANFD: true}},
			wantErr: ErrDataTooLong,
		},
		{
			name:    "remote fd",
			msg:     &message.Message{Kind: message.KindCAN, Network: network.New(network.HSCAN), CAN: &message.CANFrame{ArbID: 1, IsCANFD: true, IsRemote: true}},
			wantErr: ErrRemoteFD,
		},
		{
			name:    "missing frame",
			msg:     &message.Message{Kind: message.KindCAN, Network: network.New(network.HSCAN)},
			wantErr: ErrMissingCANFrame,
		},
		{
			name:    "raw without data",
			msg:     message.NewRaw(network.Ethernet, nil),
			wantErr: ErrEmptyMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := enc.Encode(tt.msg)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, b)
		})
	}

	_, err := enc.Encode(message.NewCAN(network.Main51, 0x100, nil))
	assert.Error(t, err, "CAN kind on a non-CAN network")
}

func TestDecodeClassicDLCClamp(t *testing.T) {
	frame := make([]byte, HardwareCANFrameSize)
	binary.LittleEndian.PutUint16(frame[0:2], 0x55<<2)
	binary.LittleEndian.PutUint16(frame[4:6], 0x0F)
	copy(frame[6:14], []byte{1, 2, 3, 4, 5, 6, 7, 8})

	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.HSCAN), Data: frame})
	require.NotNil(t, msg)
	assert.Equal(t, uint8(15), msg.CAN.DLCOnWire)
	assert.Len(t, msg.Data, 8)
	assert.Equal(t, uint32(0x55), msg.CAN.ArbID)
}

func TestDecodeMalformedReportsEvent(t *testing.T) {
	var reported []events.Type
	dec := NewDecoder(func(typ events.Type, _ events.Severity) {
		reported = append(reported, typ)
	})

	tests := []struct {
		name string
		pkt  *packetizer.Packet
	}{
		{"short CAN", &packetizer.Packet{Network: network.New(network.HSCAN), Data: make([]byte, 23)}},
		{"fd without extension", func() *packetizer.Packet {
			b := make([]byte, HardwareCANFrameSize)
			binary.LittleEndian.PutUint16(b[0:2], 1<<bitEDL)
			binary.LittleEndian.PutUint16(b[4:6], 0x0F)
			binary.LittleEndian.PutUint64(b[16:24], tsExtendedBit)
			return &packetizer.Packet{Network: network.New(network.HSCAN), Data: b}
		}()},
		{"empty Main51", &packetizer.Packet{Network: network.New(network.Main51), Data: []byte{}}},
		{"short serial", &packetizer.Packet{Network: network.New(network.Main51), Data: []byte{0xA1, 'A', 'B'}}},
		{"short reset status", &packetizer.Packet{Network: network.New(network.ResetStatus), Data: make([]byte, 25)}},
		{"short app error", &packetizer.Packet{Network: network.New(network.RedAppError), Data: make([]byte, 11)}},
		{"short error count", &packetizer.Packet{Network: network.New(network.CANErrBits), Data: make([]byte, 8)}},
		{"short ethernet status", &packetizer.Packet{Network: network.New(network.EthernetStatus), Data: make([]byte, 5)}},
		{"short extended data", &packetizer.Packet{Network: network.New(network.ExtendedData), Data: make([]byte, 11)}},
		{"old format overrun", &packetizer.Packet{Network: network.New(network.RedOldFormat), Data: []byte{0x10, 0x00, 0xB0, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reported = nil
			assert.Nil(t, dec.Decode(tt.pkt))
			assert.Equal(t, []events.Type{events.PacketDecodingError}, reported)
		})
	}
}

func TestSerialNumberEndToEnd(t *testing.T) {
	p := packetizer.New(packetizer.Options{}, nil)
	enc := NewEncoder(p)
	dec := NewDecoder(nil)

	req, err := enc.EncodeCommand(message.CmdRequestSerialNumber, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xB1, 0xA1, 0xB1 + 0xA1 - 0x100}, req)

	reply := []byte{0xAA, 0xB7, 0xA1, 'A', 'B', '1', '2', '3', '4'}
	reply = append(reply, packetizer.Checksum(reply[1:]))

	require.True(t, p.Input(reply))
	pkts := p.Output()
	require.Len(t, pkts, 1)

	msg := dec.Decode(pkts[0])
	require.NotNil(t, msg)
	assert.Equal(t, message.KindSerialNumber, msg.Kind)
	assert.Equal(t, "AB1234", msg.SerialNumber.DeviceSerial)
	assert.False(t, msg.SerialNumber.HasMAC)
	assert.Equal(t, message.CmdRequestSerialNumber, msg.Command)
}

func TestDecodeSerialWithMACAndPCB(t *testing.T) {
	body := []byte{0xA1, 'C', 'Y', '0', '0', '0', '1', 0x00, 0xFC, 0x70, 0x01, 0x02, 0x03}
	body = append(body, []byte("PCB-1234\x00\x00\x00\x00\x00\x00\x00\x00")...)

	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.Main51), Data: body})
	require.NotNil(t, msg)
	require.True(t, msg.SerialNumber.HasMAC)
	require.True(t, msg.SerialNumber.HasPCBSerial)
	assert.Equal(t, "00:fc:70:01:02:03", msg.SerialNumber.MACAddress.String())
	assert.Equal(t, "PCB-1234", msg.SerialNumber.PCBSerial)
}

func TestDecodeMain51Ack(t *testing.T) {
	dec := NewDecoder(nil)
	msg := dec.Decode(&packetizer.Packet{Network: network.New(network.Main51), Data: []byte{byte(message.CmdSetSettings), 0x01}})
	require.NotNil(t, msg)
	assert.Equal(t, message.KindMain51, msg.Kind)
	assert.Equal(t, message.CmdSetSettings, msg.Command)
	assert.True(t, msg.Acked())

	msg = dec.Decode(&packetizer.Packet{Network: network.New(network.Main51), Data: []byte{byte(message.CmdSaveSettings), 0x00}})
	require.NotNil(t, msg)
	assert.False(t, msg.Acked())
}

func TestDecodeHardwareInfo(t *testing.T) {
	body := []byte{byte(message.CmdGetHardwareInfo), 1, 15, 3, 0xE8, 0x07, 2, 1, 0x0C, 4, 7}
	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.Main51), Data: body})
	require.NotNil(t, msg)
	require.Equal(t, message.KindHardwareInfo, msg.Kind)
	assert.Equal(t, "2024-03-15", msg.HardwareInfo.ManufactureDate.Format("2006-01-02"))
	assert.Equal(t, "2.1", msg.HardwareInfo.HardwareRevision.String())
	assert.Equal(t, "4.7", msg.HardwareInfo.BootloaderVersion.String())
	assert.Equal(t, uint8(0x0C), msg.HardwareInfo.DeviceID)
}

func TestDecodeResetStatus(t *testing.T) {
	b := make([]byte, resetStatusSize)
	binary.LittleEndian.PutUint16(b[0:2], 100)
	binary.LittleEndian.PutUint16(b[2:4], 900)
	binary.LittleEndian.PutUint32(b[4:8], 0b101)
	b[8] = 7
	binary.LittleEndian.PutUint16(b[18:20], 0x0001)
	binary.LittleEndian.PutUint16(b[20:22], 0x0002)
	binary.LittleEndian.PutUint16(b[22:24], 12000)
	binary.LittleEndian.PutUint16(b[24:26], 41)

	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.ResetStatus), Data: b})
	require.NotNil(t, msg)
	rs := msg.ResetStatus
	assert.Equal(t, uint16(100), rs.MainLoopTime)
	assert.Equal(t, uint16(900), rs.MaxMainLoopTime)
	assert.True(t, rs.JustReset)
	assert.False(t, rs.ComEnabled)
	assert.True(t, rs.CoreMiniRunning)
	assert.Equal(t, uint8(7), rs.Histogram[0])
	assert.Equal(t, uint32(0x00010002), rs.CPUMIPS)
	assert.Equal(t, uint16(12000), rs.BusVoltage)
	assert.Equal(t, uint16(41), rs.DeviceTemperature)
}

func TestDecodeAppError(t *testing.T) {
	b := make([]byte, appErrorSize)
	binary.LittleEndian.PutUint16(b[0:2], uint16(message.AppErrNetworkNotEnabled))
	binary.LittleEndian.PutUint16(b[2:4], uint16(network.HSCAN2))
	binary.LittleEndian.PutUint32(b[4:8], 5)
	binary.LittleEndian.PutUint32(b[8:12], 1)

	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.RedAppError), Data: b})
	require.NotNil(t, msg)
	assert.Equal(t, message.AppErrNetworkNotEnabled, msg.AppError.ErrorType)
	assert.Equal(t, network.HSCAN2, msg.AppError.ErrorNetwork)
	assert.Equal(t, uint64(1)<<32|5, msg.AppError.Timestamp10us)
}

func TestDecodeCANErrorCount(t *testing.T) {
	b := []byte{3, 0, 0, 0, 0, 0, canErrorPassive | canBusOff, 96, 255}
	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.CANErrBits), Data: b})
	require.NotNil(t, msg)
	ec := msg.CANErrorCount
	assert.Equal(t, uint8(96), ec.REC)
	assert.Equal(t, uint8(255), ec.TEC)
	assert.True(t, ec.BusOff)
	assert.True(t, ec.ErrorPassive)
	assert.False(t, ec.ErrorWarn)
}

func TestDecodeEthernetStatus(t *testing.T) {
	b := []byte{1, byte(message.Speed1000), 1, byte(network.OPEthernet2), 0, byte(message.ModeMaster)}
	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.EthernetStatus), Data: b})
	require.NotNil(t, msg)
	es := msg.EthernetStatus
	assert.True(t, es.LinkUp)
	assert.Equal(t, "1G", es.Speed.String())
	assert.Equal(t, network.OPEthernet2, es.Network)
	assert.Equal(t, message.ModeMaster, es.Mode)
}

func TestDecodeComponentVersions(t *testing.T) {
	body := binary.LittleEndian.AppendUint16(nil, 2)
	for i := 0; i < 2; i++ {
		entry := make([]byte, componentVersionSize)
		entry[0] = 1
		entry[1] = byte(i)
		binary.LittleEndian.PutUint32(entry[4:8], 0x1000+uint32(i))
		binary.LittleEndian.PutUint32(entry[8:12], 0x01020304)
		body = append(body, entry...)
	}
	b := binary.LittleEndian.AppendUint16(nil, uint16(message.ExtGetComponentVersions))
	b = binary.LittleEndian.AppendUint16(b, uint16(len(body)))
	b = append(b, body...)

	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.ExtendedCommand), Data: b})
	require.NotNil(t, msg)
	require.Equal(t, message.KindComponentVersions, msg.Kind)
	require.Len(t, msg.ComponentVersions, 2)
	assert.Equal(t, uint8(1), msg.ComponentVersions[1].Slot)
	assert.Equal(t, uint32(0x1001), msg.ComponentVersions[1].Identifier)
}

func TestDecodeExtendedResponse(t *testing.T) {
	b := binary.LittleEndian.AppendUint16(nil, uint16(message.ExtReboot))
	b = binary.LittleEndian.AppendUint16(b, 4)
	b = binary.LittleEndian.AppendUint32(b, uint32(0xFFFFFFFD))

	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.ExtendedCommand), Data: b})
	require.NotNil(t, msg)
	assert.Equal(t, message.ExtReboot, msg.ExtendedResponse.Command)
	assert.Equal(t, message.ExtOperationFailed, msg.ExtendedResponse.Response)
}

func TestDecodeExtendedDataAndFlash(t *testing.T) {
	b := binary.LittleEndian.AppendUint32(nil, 7)
	b = binary.LittleEndian.AppendUint32(b, 512)
	b = binary.LittleEndian.AppendUint32(b, 3)
	b = append(b, 0xA, 0xB, 0xC, 0xD)

	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.ExtendedData), Data: b})
	require.NotNil(t, msg)
	assert.Equal(t, uint32(512), msg.ExtendedData.Offset)
	assert.Equal(t, []byte{0xA, 0xB, 0xC}, msg.Data)

	fm := binary.LittleEndian.AppendUint32(nil, 0x08000000)
	fm = append(fm, 1, 2, 3)
	msg = NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.RedIntMemoryRead), Data: fm})
	require.NotNil(t, msg)
	assert.Equal(t, uint32(0x08000000), msg.FlashMemory.Address)
	assert.Equal(t, []byte{1, 2, 3}, msg.Data)
}

func TestDecodeLogData(t *testing.T) {
	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.TextAPIToHost), Data: []byte("boot ok\x00")})
	require.NotNil(t, msg)
	assert.Equal(t, "boot ok", msg.LogData.Text)
}

func TestDecodeOldFormatUnwraps(t *testing.T) {
	inner := []byte{0xA1, 'X', 'Y', '9', '8', '7', '6'}
	b := binary.LittleEndian.AppendUint16(nil, uint16(len(inner)))
	b = append(b, 0x7B) // upper nibble ignored, NetID Main51
	b = append(b, inner...)
	b = append(b, 0xEE) // trailing byte beyond the declared length

	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.RedOldFormat), Data: b})
	require.NotNil(t, msg)
	assert.Equal(t, network.Main51, msg.Network.ID)
	assert.Equal(t, "XY9876", msg.SerialNumber.DeviceSerial)
}

func TestDecodeUnknownIsRaw(t *testing.T) {
	msg := NewDecoder(nil).Decode(&packetizer.Packet{Network: network.New(network.Ethernet), Data: []byte{1, 2}})
	require.NotNil(t, msg)
	assert.Equal(t, message.KindRaw, msg.Kind)
	assert.Equal(t, []byte{1, 2}, msg.Data)
}

func TestTimestampResolution(t *testing.T) {
	b := make([]byte, HardwareCANFrameSize)
	binary.LittleEndian.PutUint64(b[16:24], 1000)
	dec := NewDecoder(nil)
	dec.TimestampResolution = 10
	msg := dec.Decode(&packetizer.Packet{Network: network.New(network.HSCAN), Data: b})
	require.NotNil(t, msg)
	assert.Equal(t, uint64(10000), msg.Timestamp)
}

func TestEncodeExtendedCommand(t *testing.T) {
	p := packetizer.New(packetizer.Options{}, nil)
	wire, err := NewEncoder(p).EncodeExtendedCommand(message.ExtGetComponentVersions, nil)
	require.NoError(t, err)
	require.True(t, p.Input(wire))
	pkt := p.Output()[0]
	assert.Equal(t, network.Main51, pkt.Network.ID)
	assert.Equal(t, []byte{0xF0, 0x1A, 0x00, 0x00, 0x00}, pkt.Data)
}
