package settings

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateGSChecksumVectors(t *testing.T) {
	seq := make([]byte, 64)
	for i := range seq {
		seq[i] = byte(i)
	}

	tests := []struct {
		name    string
		payload []byte
		want    uint16
	}{
		{"empty", nil, 0x0000},
		{"single low bit", []byte{0x01, 0x00}, 0x09D3},
		{"two words", []byte{0x01, 0x02, 0x03, 0x04}, 0x9B4B},
		{"sequence", seq, 0x180C},
		{"odd length", []byte{0x01, 0x02, 0x03}, InvalidChecksum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateGSChecksum(tt.payload))
		})
	}
}

func TestCalculateGSChecksumSingleBitSensitivity(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	for i := 0; i < 1000; i++ {
		payload := make([]byte, 2*(1+rng.Intn(64)))
		rng.Read(payload)
		base := CalculateGSChecksum(payload)
		assert.Equal(t, base, CalculateGSChecksum(payload), "checksum must be deterministic")

		bit := rng.Intn(len(payload) * 8)
		payload[bit/8] ^= 1 << (bit % 8)
		if !assert.NotEqual(t, base, CalculateGSChecksum(payload), "payload %d bit %d", i, bit) {
			return
		}
	}
}

func TestCalculateGSChecksumEveryBit(t *testing.T) {
	payload := make([]byte, 32)
	rand.New(rand.NewSource(9)).Read(payload)
	base := CalculateGSChecksum(payload)

	for bit := 0; bit < len(payload)*8; bit++ {
		payload[bit/8] ^= 1 << (bit % 8)
		assert.NotEqual(t, base, CalculateGSChecksum(payload), "bit %d", bit)
		payload[bit/8] ^= 1 << (bit % 8)
	}
}
