package message

import (
	"strconv"
	"strings"
)

const (
	minBase36Serial = 16796160
	maxSerial       = 2176782335
)

var base36Powers = [6]uint32{1, 36, 1296, 46656, 1679616, 60466176}

// SerialNumToString renders a numeric device serial. Serials at or above
// the base-36 threshold print as six alphanumeric characters, older serials
// print in decimal. Out-of-range values render as "0".
func SerialNumToString(serial uint32) string {
	if serial == 0 || uint64(serial) > maxSerial {
		return "0"
	}
	if serial < minBase36Serial {
		return strconv.FormatUint(uint64(serial), 10)
	}

	var sb strings.Builder
	for i := 5; i >= 0; i-- {
		sb.WriteByte(toBase36(serial / base36Powers[i]))
		serial %= base36Powers[i]
	}
	return sb.String()
}

// SerialStringToNum is the inverse of SerialNumToString. It returns 0 for
// strings that are neither numeric nor six base-36 characters.
func SerialStringToNum(s string) uint32 {
	if serialIsNumeric(s) {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0
		}
		return uint32(n)
	}
	if len(s) != 6 {
		return 0
	}

	var n uint32
	for i := 0; i < 6; i++ {
		n = n*36 + uint32(fromBase36(s[i]))
	}
	return n
}

// serialIsNumeric treats a serial as decimal when its first two characters
// are digits; base-36 serials always carry a letter in that position.
func serialIsNumeric(s string) bool {
	switch len(s) {
	case 0:
		return false
	case 1:
		return isDigit(s[0])
	default:
		return isDigit(s[0]) && isDigit(s[1])
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func toBase36(v uint32) byte {
	if v < 10 {
		return byte('0' + v)
	}
	return byte('A' + v - 10)
}

func fromBase36(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'Z':
		return c - 'A' + 10
	case c >= 'a' && c <= 'z':
		return c - 'a' + 10
	default:
		return 0
	}
}
