package filter

import (
	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

// Filter decides whether a message is of interest.
type Filter interface {
	Match(msg *message.Message) bool
}

// MessageFilter matches on message kind, network type and NetID. The zero
// value of each field other than NetID is a wildcard; use network.Any for a
// NetID wildcard or build filters with the constructors below.
type MessageFilter struct {
	Kind  message.Kind
	Type  network.Type
	NetID network.NetID
}

// Any matches every message.
func Any() MessageFilter {
	return MessageFilter{Kind: message.KindAny, Type: network.TypeAny, NetID: network.Any}
}

// ByKind matches one message kind.
func ByKind(k message.Kind) MessageFilter {
	f := Any()
	f.Kind = k
	return f
}

// ByType matches every network of one type.
func ByType(t network.Type) MessageFilter {
	f := Any()
	f.Type = t
	return f
}

// ByNetID matches one network.
func ByNetID(id network.NetID) MessageFilter {
	f := Any()
	f.NetID = id
	return f
}

// Match reports whether msg satisfies every non-wildcard field.
func (f MessageFilter) Match(msg *message.Message) bool {
	if msg == nil {
		return false
	}
	if f.Kind != message.KindAny && f.Kind != msg.Kind {
		return false
	}
	if f.Type != network.TypeAny && f.Type != network.TypeInvalid && f.Type != msg.Network.Type() {
		return false
	}
	if f.NetID != network.Any && f.NetID != msg.Network.ID {
		return false
	}
	return true
}

// AnyArbID matches every arbitration ID in a CANFilter.
const AnyArbID = ^uint32(0)

// CANFilter matches CAN messages, optionally restricted to one network and
// one arbitration ID.
type CANFilter struct {
	NetID network.NetID
	ArbID uint32
}

// NewCANFilter matches arbID on any CAN network.
func NewCANFilter(arbID uint32) CANFilter {
	return CANFilter{NetID: network.Any, ArbID: arbID}
}

func (f CANFilter) Match(msg *message.Message) bool {
	base := MessageFilter{Kind: message.KindCAN, Type: network.TypeCAN, NetID: f.NetID}
	if f.NetID == 0 {
		base.NetID = network.Any
	}
	if !base.Match(msg) || msg.CAN == nil {
		return false
	}
	return f.ArbID == AnyArbID || f.ArbID == msg.CAN.ArbID
}

// AnyCommand is the Main51Filter wildcard.
const AnyCommand = -1

// Main51Filter matches replies to Main51 commands.
type Main51Filter struct {
	Command int
}

// NewMain51Filter matches replies to cmd.
func NewMain51Filter(cmd message.Command) Main51Filter {
	return Main51Filter{Command: int(cmd)}
}

func (f Main51Filter) Match(msg *message.Message) bool {
	if msg == nil || msg.Network.ID != network.Main51 || !msg.HasCommand {
		return false
	}
	return f.Command == AnyCommand || message.Command(f.Command) == msg.Command
}

// Func adapts an ordinary function to a Filter.
type Func func(msg *message.Message) bool

func (fn Func) Match(msg *message.Message) bool {
	return fn(msg)
}
