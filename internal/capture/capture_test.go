package capture

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

func fdFrame() *message.Message {
	msg := message.NewCAN(network.HSCAN2, 0x18DAF110, make([]byte, 12))
	msg.CAN.IsCANFD = true
	msg.CAN.BRS = true
	msg.CAN.Transmitted = true
	msg.Timestamp = 123456
	return msg
}

func TestWriterReaderStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	w.now = func() time.Time { return fixed }

	_, err := uuid.Parse(w.Session())
	require.NoError(t, err)

	require.NoError(t, w.Write(message.NewCAN(network.HSCAN, 0x123, []byte{1, 2, 3})))
	require.NoError(t, w.Write(fdFrame()))
	require.NoError(t, w.Write(message.NewRaw(network.NetID(0x20), []byte{0xFF})))
	assert.Equal(t, uint64(3), w.Count())

	recs, err := NewReader(&buf, Filter{}).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, w.Session(), recs[0].Session)
	assert.Equal(t, uint64(0), recs[0].Seq)
	assert.Equal(t, uint64(2), recs[2].Seq)
	assert.True(t, fixed.Equal(recs[0].Captured))
	assert.Equal(t, "CAN", recs[0].Kind)
	assert.Equal(t, uint16(network.HSCAN), recs[0].NetID)
	assert.Equal(t, uint32(0x123), recs[0].ArbID)
	assert.Equal(t, Flags(0), recs[0].Flags)
	assert.Equal(t, []byte{1, 2, 3}, recs[0].Data)

	assert.Equal(t, FlagExtended|FlagCANFD|FlagBRS|FlagTransmitted, recs[1].Flags)
	assert.Equal(t, uint64(123456), recs[1].Timestamp)

	assert.Equal(t, "Raw", recs[2].Kind)
	assert.False(t, recs[2].IsCAN())
}

func TestRecordMessageRebuildsCAN(t *testing.T) {
	rec := FromMessage(fdFrame())
	msg := rec.Message()

	require.NotNil(t, msg.CAN)
	assert.Equal(t, message.KindCAN, msg.Kind)
	assert.Equal(t, network.HSCAN2, msg.Network.ID)
	assert.Equal(t, uint32(0x18DAF110), msg.CAN.ArbID)
	assert.True(t, msg.CAN.IsExtended)
	assert.True(t, msg.CAN.IsCANFD)
	assert.True(t, msg.CAN.BRS)
	assert.False(t, msg.CAN.ESI)
	// Replayed frames are outgoing; the receipt flag is not carried over.
	assert.False(t, msg.CAN.Transmitted)
	assert.Len(t, msg.Data, 12)
}

func TestRecordMessageRaw(t *testing.T) {
	rec := Record{Kind: "Raw", NetID: 5, Data: []byte{9}}
	msg := rec.Message()
	assert.Equal(t, message.KindRaw, msg.Kind)
	assert.Nil(t, msg.CAN)
	assert.Equal(t, []byte{9}, msg.Data)
}

func TestEncodeDecodeRecordUsesIntegerKeys(t *testing.T) {
	data, err := EncodeRecord(Record{Session: "s", Kind: "CAN"})
	require.NoError(t, err)
	// Map header followed by key 1.
	assert.Equal(t, byte(0x01), data[1])

	rec, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, "s", rec.Session)

	_, err = DecodeRecord([]byte{0xFF})
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	var buf bytes.Buffer
	a := NewWriter(&buf)
	b := NewWriter(&buf)
	require.NoError(t, a.Write(message.NewCAN(network.HSCAN, 0x100, nil)))
	require.NoError(t, b.Write(message.NewCAN(network.MSCAN, 0x200, nil)))
	require.NoError(t, a.Write(message.NewRaw(network.HSCAN, []byte{1})))
	data := buf.Bytes()

	read := func(f Filter) []Record {
		recs, err := NewReader(bytes.NewReader(data), f).ReadAll()
		require.NoError(t, err)
		return recs
	}

	assert.Len(t, read(Filter{}), 3)
	assert.Len(t, read(Filter{Session: a.Session()}), 2)
	assert.Len(t, read(Filter{Kind: "CAN"}), 2)

	net := uint16(network.MSCAN)
	assert.Len(t, read(Filter{NetID: &net}), 1)

	id := uint32(0x100)
	recs := read(Filter{ArbID: &id})
	require.Len(t, recs, 1)
	assert.Equal(t, a.Session(), recs[0].Session)
}

func TestCreateAppendsSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus.cbor")

	for i := 0; i < 2; i++ {
		w, err := Create(path)
		require.NoError(t, err)
		w.Callback()(message.NewCAN(network.HSCAN, uint32(i), nil))
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())
		assert.ErrorIs(t, w.Write(message.NewCAN(network.HSCAN, 0, nil)), ErrClosed)
	}

	r, err := Open(path, Filter{})
	require.NoError(t, err)
	defer r.Close()
	recs, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.NotEqual(t, recs[0].Session, recs[1].Session)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.cbor"), Filter{})
	assert.Error(t, err)
}

func TestReaderTruncatedStream(t *testing.T) {
	data, err := EncodeRecord(Record{Session: "s", Kind: "CAN", Data: []byte{1, 2, 3}})
	require.NoError(t, err)

	_, err = NewReader(bytes.NewReader(data[:len(data)-2]), Filter{}).Next()
	assert.Error(t, err)
}
