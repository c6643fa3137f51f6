package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

func TestSerialNumRoundTrip(t *testing.T) {
	tests := []struct {
		num uint32
		str string
	}{
		{0, "0"},
		{1234, "1234"},
		{16796159, "16796159"},
		{minBase36Serial, "0A0000"},
		{SerialStringToNum("CY1234"), "CY1234"},
		{maxSerial, "ZZZZZZ"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.str, SerialNumToString(tt.num))
			if tt.num != 0 {
				assert.Equal(t, tt.num, SerialStringToNum(tt.str))
			}
		})
	}
}

func TestSerialStringToNumRejects(t *testing.T) {
	assert.Zero(t, SerialStringToNum(""))
	assert.Zero(t, SerialStringToNum("ABC"))
	assert.Equal(t, SerialStringToNum("ab1234"), SerialStringToNum("AB1234"))
}

func TestDLCToLength(t *testing.T) {
	assert.Equal(t, 8, DLCToLength(8, false))
	assert.Equal(t, 8, DLCToLength(15, false), "classic CAN clamps")
	assert.Equal(t, 12, DLCToLength(9, true))
	assert.Equal(t, 64, DLCToLength(15, true))

	dlc, ok := LengthToDLC(48)
	assert.True(t, ok)
	assert.Equal(t, uint8(14), dlc)

	_, ok = LengthToDLC(9)
	assert.False(t, ok)
}

func TestMessageTime(t *testing.T) {
	m := &Message{Timestamp: uint64(24 * time.Hour)}
	assert.Equal(t, time.Date(2007, time.January, 2, 0, 0, 0, 0, time.UTC), m.Time())
}

func TestAcked(t *testing.T) {
	var nilMsg *Message
	assert.False(t, nilMsg.Acked())
	assert.False(t, (&Message{Kind: KindMain51}).Acked())
	assert.False(t, (&Message{Kind: KindMain51, Data: []byte{0}}).Acked())
	assert.True(t, (&Message{Kind: KindMain51, Data: []byte{1}}).Acked())
}

func TestNewCANInfersExtended(t *testing.T) {
	assert.False(t, NewCAN(network.HSCAN, 0x7FF, nil).CAN.IsExtended)
	assert.True(t, NewCAN(network.HSCAN, 0x800, nil).CAN.IsExtended)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "SerialNumber", KindSerialNumber.String())
	assert.Equal(t, "Kind(200)", Kind(200).String())
	assert.Equal(t, "SetSettings", CmdSetSettings.String())
	assert.Equal(t, "Command(0x01)", Command(1).String())
}
