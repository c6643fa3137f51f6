package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerHistoryBound(t *testing.T) {
	m := NewManager(3)
	m.Report(FailedToRead, Error)
	m.Report(PacketChecksumError, Warning)
	m.Report(PacketDecodingError, Warning)
	m.Report(SyncTimeout, Info)

	assert.Equal(t, uint64(1), m.Dropped())
	assert.Equal(t, 0, m.Count(FailedToRead))

	evs := m.Events()
	require.Len(t, evs, 3)
	assert.Equal(t, PacketChecksumError, evs[0].Type)
	assert.Equal(t, SyncTimeout, evs[2].Type)
	assert.Empty(t, m.Events())
}

func TestManagerLastError(t *testing.T) {
	m := NewManager(0)
	_, ok := m.LastError()
	assert.False(t, ok)

	m.Report(SettingsChecksumError, Error)
	m.Report(PollingMessageOverflow, Warning)

	ev, ok := m.LastError()
	require.True(t, ok)
	assert.Equal(t, SettingsChecksumError, ev.Type)

	_, ok = m.LastError()
	assert.False(t, ok, "LastError clears the stored error")
}

func TestManagerConcurrentReport(t *testing.T) {
	m := NewManager(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Report(FailedToRead, Warning)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, m.Count(FailedToRead))
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "NoDeviceResponse", NoDeviceResponse.String())
	assert.Equal(t, "Type(999)", Type(999).String())
	assert.Equal(t, "error", Error.String())
}
