package settings

import "encoding/binary"

// GSVersion is the only envelope version this package understands.
const GSVersion = 5

// InvalidChecksum is returned by CalculateGSChecksum for odd-length input.
const InvalidChecksum uint16 = 0xFFFF

const gsPoly = 0xA001

// CalculateGSChecksum computes the 16-bit shift register checksum that
// protects the settings envelope. The payload is consumed one little-endian
// word at a time, least significant bit first. It must match the firmware
// bit for bit.
func CalculateGSChecksum(payload []byte) uint16 {
	if len(payload)%2 != 0 {
		return InvalidChecksum
	}

	var crc uint16
	for i := 0; i < len(payload); i += 2 {
		word := binary.LittleEndian.Uint16(payload[i:])
		for range 16 {
			next := (word ^ crc>>15) & 1
			crc = crc << 1 & 0xFFFE
			if next != 0 {
				crc ^= gsPoly
			}
			word >>= 1
		}
	}
	return crc
}
