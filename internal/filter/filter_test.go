package filter

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

func canMsg(net network.NetID, id uint32) *message.Message {
	return message.NewCAN(net, id, []byte{1})
}

func main51Msg(cmd message.Command, ack byte) *message.Message {
	return &message.Message{
		Kind:       message.KindMain51,
		Network:    network.New(network.Main51),
		Data:       []byte{ack},
		Command:    cmd,
		HasCommand: true,
	}
}

func TestMessageFilterMatch(t *testing.T) {
	can1 := canMsg(network.HSCAN, 0x100)
	can2 := canMsg(network.HSCAN2, 0x200)
	raw := message.NewRaw(network.Ethernet, []byte{1})
	ack := main51Msg(message.CmdSetSettings, 1)

	tests := []struct {
		name   string
		filter Filter
		msg    *message.Message
		want   bool
	}{
		{"any matches CAN", Any(), can1, true},
		{"any matches raw", Any(), raw, true},
		{"zero value matches device network only", MessageFilter{}, raw, false},
		{"any rejects nil", Any(), nil, false},
		{"by type CAN", ByType(network.TypeCAN), can2, true},
		{"by type CAN rejects ethernet", ByType(network.TypeCAN), raw, false},
		{"by netid", ByNetID(network.HSCAN2), can2, true},
		{"by netid rejects other", ByNetID(network.HSCAN2), can1, false},
		{"by kind", ByKind(message.KindMain51), ack, true},
		{"by kind rejects", ByKind(message.KindCAN), ack, false},
		{"can filter arbid", NewCANFilter(0x100), can1, true},
		{"can filter other arbid", NewCANFilter(0x100), can2, false},
		{"can filter any arbid", NewCANFilter(AnyArbID), can2, true},
		{"can filter zero netid is wildcard", CANFilter{ArbID: 0x200}, can2, true},
		{"can filter netid", CANFilter{NetID: network.HSCAN, ArbID: AnyArbID}, can2, false},
		{"can filter rejects non-CAN", NewCANFilter(AnyArbID), raw, false},
		{"main51 command", NewMain51Filter(message.CmdSetSettings), ack, true},
		{"main51 other command", NewMain51Filter(message.CmdSaveSettings), ack, false},
		{"main51 wildcard", Main51Filter{Command: AnyCommand}, ack, true},
		{"main51 rejects CAN", Main51Filter{Command: AnyCommand}, can1, false},
		{"func filter", Func(func(m *message.Message) bool { return len(m.Data) == 1 }), raw, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.msg))
		})
	}
}

func TestMain51FilterMatchesSerialNumberReply(t *testing.T) {
	msg := &message.Message{
		Kind:         message.KindSerialNumber,
		Network:      network.New(network.Main51),
		Command:      message.CmdRequestSerialNumber,
		HasCommand:   true,
		SerialNumber: &message.SerialNumber{DeviceSerial: "AB1234"},
	}
	assert.True(t, NewMain51Filter(message.CmdRequestSerialNumber).Match(msg))
}

func TestCallIfMatch(t *testing.T) {
	var got []*message.Message
	cb := NewCallback(NewCANFilter(0x100), func(m *message.Message) { got = append(got, m) })

	assert.True(t, cb.CallIfMatch(canMsg(network.HSCAN, 0x100)))
	assert.False(t, cb.CallIfMatch(canMsg(network.HSCAN, 0x101)))
	assert.Len(t, got, 1)

	nilFilter := NewCallback(nil, func(*message.Message) {})
	assert.True(t, nilFilter.CallIfMatch(message.NewRaw(network.Ethernet, []byte{1})))
}

func TestRegistryIDsAreStable(t *testing.T) {
	r := NewRegistry()
	noop := func(*message.Message) {}

	a := r.Add(NewCallback(nil, noop))
	b := r.Add(NewCallback(nil, noop))
	c := r.Add(NewCallback(nil, noop))
	assert.Equal(t, []int{0, 1, 2}, []int{a, b, c})

	require.True(t, r.Remove(b))
	assert.False(t, r.Remove(b), "double remove")
	assert.Equal(t, 2, r.Len())

	d := r.Add(NewCallback(nil, noop))
	assert.Equal(t, 3, d, "ids are never reused")
	assert.Len(t, r.slots, 3, "freed slot is reused")

	assert.True(t, r.Remove(a))
	assert.True(t, r.Remove(c))
	assert.True(t, r.Remove(d))
	assert.Zero(t, r.Len())
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	var canHits, allHits int
	r.Add(NewCallback(ByType(network.TypeCAN), func(*message.Message) { canHits++ }))
	r.Add(NewCallback(Any(), func(*message.Message) { allHits++ }))

	assert.Equal(t, 2, r.Dispatch(canMsg(network.HSCAN, 1)))
	assert.Equal(t, 1, r.Dispatch(message.NewRaw(network.Ethernet, []byte{1})))
	assert.Equal(t, 1, canHits)
	assert.Equal(t, 2, allHits)
}

func TestRegistryDispatchFollowsRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	record := func(name string) *Callback {
		return NewCallback(nil, func(*message.Message) { order = append(order, name) })
	}

	first := r.Add(record("first"))
	r.Add(record("second"))
	r.Add(record("third"))
	require.True(t, r.Remove(first))
	// Lands in the slot "first" used to occupy.
	r.Add(record("fourth"))

	r.Dispatch(canMsg(network.HSCAN, 1))
	assert.Equal(t, []string{"second", "third", "fourth"}, order)
}

func TestRegistryCallbackMayRemoveItself(t *testing.T) {
	r := NewRegistry()
	var id int
	var calls int
	id = r.Add(NewCallback(nil, func(*message.Message) {
		calls++
		r.Remove(id)
	}))

	r.Dispatch(canMsg(network.HSCAN, 1))
	r.Dispatch(canMsg(network.HSCAN, 1))
	assert.Equal(t, 1, calls)
	assert.Zero(t, r.Len())
}

func TestRegistryConcurrentUse(t *testing.T) {
	r := NewRegistry()
	var hits atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				id := r.Add(NewCallback(nil, func(*message.Message) { hits.Add(1) }))
				r.Remove(id)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 500; j++ {
			r.Dispatch(canMsg(network.HSCAN, 1))
		}
	}()
	wg.Wait()

	assert.Zero(t, r.Len())
}
