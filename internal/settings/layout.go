package settings

import (
	"fmt"

	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

// Layout describes where sub-structures live inside a device family's
// settings structure.
type Layout interface {
	// StructSize is the exact payload length of the settings structure.
	StructSize() int
	// CANOffset returns the offset of the CANSettings for net.
	CANOffset(net network.NetID) (int, bool)
	// CANFDOffset returns the offset of the CANFDSettings for net.
	CANFDOffset(net network.NetID) (int, bool)
}

// OffsetLayout is a table-driven Layout. Network keys are names or numbers
// accepted by network.ParseNetID, so a layout can be written in YAML:
//
//	struct_size: 64
//	can:
//	  HSCAN: 0
//	  MSCAN: 12
//	canfd:
//	  HSCAN: 36
type OffsetLayout struct {
	Size  int            `yaml:"struct_size"`
	CAN   map[string]int `yaml:"can,omitempty"`
	CANFD map[string]int `yaml:"canfd,omitempty"`

	can   map[network.NetID]int
	canfd map[network.NetID]int
}

// DefaultLayout is the layout of the simulated device and the default
// profile: three classic CAN channels and two FD-capable ones.
func DefaultLayout() *OffsetLayout {
	l := &OffsetLayout{
		Size: 64,
		CAN: map[string]int{
			"HSCAN":  0,
			"MSCAN":  12,
			"HSCAN2": 24,
		},
		CANFD: map[string]int{
			"HSCAN":  36,
			"HSCAN2": 46,
		},
	}
	if err := l.Resolve(); err != nil {
		panic(err)
	}
	return l
}

// Resolve parses the network keys and checks every sub-structure fits.
// It must be called after loading a layout from YAML.
func (l *OffsetLayout) Resolve() error {
	if l.Size <= 0 || l.Size%2 != 0 {
		return fmt.Errorf("settings struct size must be positive and even, got %d", l.Size)
	}
	can, err := resolveOffsets(l.CAN, CANSettingsSize, l.Size)
	if err != nil {
		return fmt.Errorf("can layout: %w", err)
	}
	canfd, err := resolveOffsets(l.CANFD, CANFDSettingsSize, l.Size)
	if err != nil {
		return fmt.Errorf("canfd layout: %w", err)
	}
	l.can, l.canfd = can, canfd
	return nil
}

func resolveOffsets(in map[string]int, size, structSize int) (map[network.NetID]int, error) {
	out := make(map[network.NetID]int, len(in))
	for name, off := range in {
		id, err := network.ParseNetID(name)
		if err != nil {
			return nil, err
		}
		if off < 0 || off+size > structSize {
			return nil, fmt.Errorf("%s at offset %d overruns a %d byte structure", name, off, structSize)
		}
		out[id] = off
	}
	return out, nil
}

func (l *OffsetLayout) StructSize() int {
	return l.Size
}

func (l *OffsetLayout) CANOffset(net network.NetID) (int, bool) {
	off, ok := l.can[net]
	return off, ok
}

func (l *OffsetLayout) CANFDOffset(net network.NetID) (int, bool) {
	off, ok := l.canfd[net]
	return off, ok
}
