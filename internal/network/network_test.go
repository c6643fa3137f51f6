package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		id   NetID
		want Type
	}{
		{HSCAN, TypeCAN},
		{HSCAN7, TypeCAN},
		{LSFTCAN2, TypeCAN},
		{LIN4, TypeLIN},
		{Ethernet, TypeEthernet},
		{OPEthernet2, TypeEthernet},
		{FlexRay, TypeFlexRay},
		{Main51, TypeInternal},
		{RedReadBaudSettings, TypeInternal},
		{ResetStatus, TypeInternal},
		{NetID(4000), TypeOther},
		{Any, TypeAny},
		{Invalid, TypeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.id))
			assert.Equal(t, tt.want, New(tt.id).Type())
		})
	}
}

func TestParseNetID(t *testing.T) {
	id, err := ParseNetID("hscan2")
	require.NoError(t, err)
	assert.Equal(t, HSCAN2, id)

	id, err = ParseNetID("0x0B")
	require.NoError(t, err)
	assert.Equal(t, Main51, id)

	id, err = ParseNetID("513")
	require.NoError(t, err)
	assert.Equal(t, DeviceStatus, id)

	_, err = ParseNetID("not-a-network")
	assert.Error(t, err)
}

func TestNetIDString(t *testing.T) {
	assert.Equal(t, "Main51", Main51.String())
	assert.Equal(t, "NetID(4000)", NetID(4000).String())
	assert.Equal(t, "CAN", TypeCAN.String())
}
