package packetizer

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrepidcs/libicsneo-sub002/internal/events"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

func mustWrap(t *testing.T, p *Packetizer, netid network.NetID, body []byte) []byte {
	t.Helper()
	b, err := p.Wrap(netid, body)
	require.NoError(t, err)
	return b
}

func TestWrapShortForm(t *testing.T) {
	p := New(Options{}, nil)
	got := mustWrap(t, p, network.Main51, []byte{0xA1, 'A', 'B', '1', '2', '3', '4'})

	want := []byte{0xAA, 0xB7, 0xA1, 'A', 'B', '1', '2', '3', '4'}
	want = append(want, Checksum(want[1:]))
	assert.Equal(t, want, got)
}

func TestWrapLongForm(t *testing.T) {
	p := New(Options{}, nil)
	body := bytes.Repeat([]byte{0x11}, 24)
	got := mustWrap(t, p, network.HSCAN2, body)

	require.Len(t, got, 6+24+1)
	assert.Equal(t, byte(SyncByte), got[0])
	assert.Equal(t, byte(0xA0), got[1], "long header carries NetID low nibble, length nibble zero")
	assert.Equal(t, []byte{24, 0}, got[2:4])
	assert.Equal(t, []byte{42, 0}, got[4:6])
	assert.Equal(t, Checksum(got[1:len(got)-1]), got[len(got)-1])
}

func TestWrapErrors(t *testing.T) {
	p := New(Options{}, nil)

	_, err := p.Wrap(network.HSCAN, nil)
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = p.Wrap(network.HSCAN, make([]byte, MaxPayload+1))
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestWrapDisableChecksumAndAlign(t *testing.T) {
	p := New(Options{DisableChecksum: true, Align16Bit: true}, nil)
	got := mustWrap(t, p, network.HSCAN, []byte{0x01, 0x02})

	// 0xAA, header, 2 bytes, checksum = 5 bytes, padded to 6
	assert.Equal(t, []byte{0xAA, 0x12, 0x01, 0x02, 0x00, PadByte}, got)
}

func TestInputSinglePacket(t *testing.T) {
	p := New(Options{}, nil)
	wire := mustWrap(t, p, network.Main51, []byte{0xA1, 'A', 'B', '1', '2', '3', '4'})

	require.True(t, p.Input(wire))
	pkts := p.Output()
	require.Len(t, pkts, 1)
	assert.Equal(t, network.Main51, pkts[0].Network.ID)
	assert.Equal(t, []byte{0xA1, 'A', 'B', '1', '2', '3', '4'}, pkts[0].Data)
	assert.Empty(t, p.Output(), "packets are emitted once")
}

type framed struct {
	netid network.NetID
	body  []byte
}

func randomPackets(r *rand.Rand, n int) []framed {
	nets := []network.NetID{network.HSCAN, network.Main51, network.MSCAN, network.HSCAN2, network.Ethernet, network.RedReadBaudSettings}
	out := make([]framed, n)
	for i := range out {
		size := 1 + r.Intn(64)
		if r.Intn(10) == 0 {
			size = 1 + r.Intn(MaxPayload)
		}
		body := make([]byte, size)
		r.Read(body)
		out[i] = framed{netid: nets[r.Intn(len(nets))], body: body}
	}
	return out
}

func TestRoundTripArbitraryChunking(t *testing.T) {
	for _, opts := range []Options{{}, {Align16Bit: true}, {DisableChecksum: true}, {DisableChecksum: true, Align16Bit: true}} {
		r := rand.New(rand.NewSource(42))
		wrapper := New(opts, nil)
		pkts := randomPackets(r, 200)

		var stream []byte
		for _, f := range pkts {
			stream = append(stream, mustWrap(t, wrapper, f.netid, f.body)...)
		}

		var checksumEvents int
		p := New(opts, func(typ events.Type, _ events.Severity) {
			if typ == events.PacketChecksumError {
				checksumEvents++
			}
		})
		var got []*Packet
		for len(stream) > 0 {
			n := 1 + r.Intn(37)
			if n > len(stream) {
				n = len(stream)
			}
			p.Input(stream[:n])
			got = append(got, p.Output()...)
			stream = stream[n:]
		}

		require.Len(t, got, len(pkts), "options %+v", opts)
		for i := range pkts {
			assert.Equal(t, pkts[i].netid, got[i].Network.ID)
			assert.Equal(t, pkts[i].body, got[i].Data)
		}
		assert.Zero(t, checksumEvents)
	}
}

func TestResyncAfterGarbage(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	p := New(Options{}, nil)

	garbage := make([]byte, 513)
	for i := range garbage {
		b := byte(r.Intn(256))
		if b == SyncByte {
			b = 0x55
		}
		garbage[i] = b
	}

	body := []byte{0x10, 0x20, 0x30}
	stream := append(garbage, mustWrap(t, p, network.HSCAN, body)...)
	require.True(t, p.Input(stream))

	pkts := p.Output()
	require.Len(t, pkts, 1)
	assert.Equal(t, body, pkts[0].Data)
	assert.Equal(t, uint64(len(garbage)), p.Discarded())
}

func TestResyncAfterFalseShortHeaders(t *testing.T) {
	p := New(Options{}, nil)

	// Every 0xAA here starts a short header whose checksum cannot match.
	stream := []byte{0x13, SyncByte, 0x23, 0x07, SyncByte, 0x41, 0xFE, SyncByte}
	garbage := len(stream)
	stream = append(stream, mustWrap(t, p, network.HSCAN, []byte{0x01, 0x02})...)
	stream = append(stream, mustWrap(t, p, network.MSCAN, []byte{0x03})...)
	stream = append(stream, mustWrap(t, p, network.HSCAN, []byte{0x04, 0x05, 0x06})...)

	require.True(t, p.Input(stream))
	pkts := p.Output()
	require.Len(t, pkts, 3)
	assert.Equal(t, []byte{0x01, 0x02}, pkts[0].Data)
	assert.Equal(t, network.MSCAN, pkts[1].Network.ID)
	assert.Equal(t, []byte{0x04, 0x05, 0x06}, pkts[2].Data)
	assert.Equal(t, uint64(3), p.ChecksumFailures())
	assert.Equal(t, uint64(garbage), p.Discarded())
}

func TestFalseLongHeaderHoldsTrafficUntilLengthArrives(t *testing.T) {
	p := New(Options{}, nil)

	// Claims a 64 byte payload on HSCAN; the real packets behind it stay
	// buffered until 6+64+1 bytes are available to reject it.
	stream := []byte{SyncByte, 0x00, 0x40, 0x00, 0x01, 0x00}
	var bodies [][]byte
	for i := 0; i < 12; i++ {
		body := []byte{byte(i), byte(i + 1), byte(i + 2)}
		bodies = append(bodies, body)
		stream = append(stream, mustWrap(t, p, network.HSCAN, body)...)
	}

	assert.False(t, p.Input(stream[:21]), "three packets stay behind the false header")
	require.True(t, p.Input(stream[21:]))

	pkts := p.Output()
	require.Len(t, pkts, len(bodies))
	for i, pkt := range pkts {
		assert.Equal(t, bodies[i], pkt.Data)
	}
	assert.Equal(t, uint64(1), p.ChecksumFailures())
}

func TestChecksumFailureRecoversHiddenPacket(t *testing.T) {
	p := New(Options{}, nil)
	real := mustWrap(t, p, network.HSCAN, []byte{0x05})

	// A false short header claiming 15 bytes swallows the real packet.
	stream := []byte{SyncByte, 0x1F}
	stream = append(stream, real...)
	for len(stream) < 2+15+1 {
		stream = append(stream, 0x01)
	}
	require.NotEqual(t, Checksum(stream[1:17]), stream[17], "test stream must carry a bad checksum")

	p.Input(stream)
	pkts := p.Output()
	require.Len(t, pkts, 1)
	assert.Equal(t, network.HSCAN, pkts[0].Network.ID)
	assert.Equal(t, []byte{0x05}, pkts[0].Data)
	assert.Equal(t, uint64(1), p.ChecksumFailures())
}

func TestChecksumErrorReportedOnlyAfterGoodPacket(t *testing.T) {
	var reported []events.Type
	p := New(Options{}, func(typ events.Type, _ events.Severity) {
		reported = append(reported, typ)
	})

	bad := mustWrap(t, p, network.HSCAN, []byte{0x01, 0x02})
	bad[len(bad)-1]++

	p.Input(bad)
	assert.Empty(t, p.Output())
	assert.Empty(t, reported, "mid-stream start is quiet")

	p.Input(mustWrap(t, p, network.HSCAN, []byte{0x03}))
	require.Len(t, p.Output(), 1)

	p.Input(bad)
	assert.Empty(t, p.Output())
	assert.Equal(t, []events.Type{events.PacketChecksumError}, reported)
}

func TestLongHeaderLengthBounds(t *testing.T) {
	tests := []struct {
		name   string
		length uint16
	}{
		{"zero length", 0},
		{"over maximum", MaxPayload + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reported []events.Type
			p := New(Options{}, func(typ events.Type, _ events.Severity) {
				reported = append(reported, typ)
			})
			stream := []byte{SyncByte, 0x00, byte(tt.length), byte(tt.length >> 8), 0x01, 0x00}
			good := mustWrap(t, p, network.HSCAN, []byte{0x42})
			stream = append(stream, good...)

			require.True(t, p.Input(stream))
			pkts := p.Output()
			require.Len(t, pkts, 1)
			assert.Equal(t, []byte{0x42}, pkts[0].Data)
			assert.Contains(t, reported, events.FailedToRead)
		})
	}
}

func TestDisableChecksumAcceptsAnyTrailer(t *testing.T) {
	p := New(Options{DisableChecksum: true}, nil)
	p.Input([]byte{SyncByte, 0x12, 0x01, 0x02, 0x77})
	pkts := p.Output()
	require.Len(t, pkts, 1)
	assert.Equal(t, []byte{0x01, 0x02}, pkts[0].Data)
}

func TestAlign16BitDropsPadding(t *testing.T) {
	p := New(Options{Align16Bit: true}, nil)
	first := mustWrap(t, p, network.HSCAN, []byte{0x01, 0x02})
	require.Equal(t, byte(PadByte), first[len(first)-1])

	// The padding byte would otherwise be scanned as garbage.
	stream := append(first, mustWrap(t, p, network.MSCAN, []byte{0x03, 0x04, 0x05})...)
	p.Input(stream)
	pkts := p.Output()
	require.Len(t, pkts, 2)
	assert.Equal(t, network.MSCAN, pkts[1].Network.ID)
	assert.Zero(t, p.Discarded())
}

func TestPartialPacketPersists(t *testing.T) {
	p := New(Options{}, nil)
	wire := mustWrap(t, p, network.Ethernet, bytes.Repeat([]byte{0x99}, 100))

	assert.False(t, p.Input(wire[:3]))
	assert.False(t, p.Input(wire[3:50]))
	assert.True(t, p.Input(wire[50:]))
	pkts := p.Output()
	require.Len(t, pkts, 1)
	assert.Len(t, pkts[0].Data, 100)
}

func TestReset(t *testing.T) {
	p := New(Options{}, nil)
	wire := mustWrap(t, p, network.HSCAN, []byte{0x01, 0x02, 0x03})
	p.Input(wire[:3])
	p.Reset()
	p.Input(wire)
	require.Len(t, p.Output(), 1)
}
