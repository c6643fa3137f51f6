package settings

// MaxClassicBaudrate separates classic CAN rates from CAN FD data rates.
const MaxClassicBaudrate = 1000000

// baudTable maps the Baudrate enum used by CANSettings and CANFDSettings to
// bits per second. The index is the enum value.
var baudTable = [...]int64{
	20000,
	33333,
	50000,
	62500,
	83333,
	100000,
	125000,
	250000,
	500000,
	800000,
	1000000,
	666666,
	2000000,
	4000000,
	5000000,
	6666666,
	8000000,
	10000000,
}

// BaudrateToEnum returns the enum value for a rate in bits per second.
func BaudrateToEnum(bps int64) (uint8, bool) {
	for i, v := range baudTable {
		if v == bps {
			return uint8(i), true
		}
	}
	return 0, false
}

// EnumToBaudrate returns the rate in bits per second for an enum value.
func EnumToBaudrate(e uint8) (int64, bool) {
	if int(e) >= len(baudTable) {
		return 0, false
	}
	return baudTable[e], true
}

// SupportedBaudrates lists the classic or FD rates, in table order.
func SupportedBaudrates(fd bool) []int64 {
	var out []int64
	for _, v := range baudTable {
		if fd || v <= MaxClassicBaudrate {
			out = append(out, v)
		}
	}
	return out
}
