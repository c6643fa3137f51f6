package events

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/logging"
)

// Type identifies what happened.
type Type uint32

const (
	TypeUnknown Type = iota
	FailedToRead
	FailedToWrite
	PacketChecksumError
	PacketDecodingError
	MessageFormattingError
	PollingMessageOverflow
	SyncTimeout
	DeviceCurrentlyOpen
	DeviceCurrentlyClosed
	SettingsVersionError
	SettingsLengthError
	SettingsChecksumError
	SettingsReadError
	SettingsNotAvailable
	SettingsReadOnly
	NoDeviceResponse
	BaudrateNotFound
	CANSettingsNotAvailable
	CANFDSettingsNotAvailable
)

var typeNames = map[Type]string{
	TypeUnknown:               "Unknown",
	FailedToRead:              "FailedToRead",
	FailedToWrite:             "FailedToWrite",
	PacketChecksumError:       "PacketChecksumError",
	PacketDecodingError:       "PacketDecodingError",
	MessageFormattingError:    "MessageFormattingError",
	PollingMessageOverflow:    "PollingMessageOverflow",
	SyncTimeout:               "SyncTimeout",
	DeviceCurrentlyOpen:       "DeviceCurrentlyOpen",
	DeviceCurrentlyClosed:     "DeviceCurrentlyClosed",
	SettingsVersionError:      "SettingsVersionError",
	SettingsLengthError:       "SettingsLengthError",
	SettingsChecksumError:     "SettingsChecksumError",
	SettingsReadError:         "SettingsReadError",
	SettingsNotAvailable:      "SettingsNotAvailable",
	SettingsReadOnly:          "SettingsReadOnly",
	NoDeviceResponse:          "NoDeviceResponse",
	BaudrateNotFound:          "BaudrateNotFound",
	CANSettingsNotAvailable:   "CANSettingsNotAvailable",
	CANFDSettingsNotAvailable: "CANFDSettingsNotAvailable",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", uint32(t))
}

// Severity of an event.
type Severity uint8

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", uint8(s))
	}
}

// Event is one reported occurrence.
type Event struct {
	Type      Type
	Severity  Severity
	Timestamp time.Time
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s: %s", e.Timestamp.Format(time.RFC3339Nano), e.Severity, e.Type)
}

// Reporter is the sink every layer reports through.
type Reporter func(Type, Severity)

// Discard drops every event.
func Discard(Type, Severity) {}

// DefaultHistory is the number of events a Manager keeps.
const DefaultHistory = 10000

// Manager keeps a bounded history of events.
type Manager struct {
	mu        sync.Mutex
	events    []Event
	limit     int
	lastError *Event
	dropped   uint64
	logger    *zap.Logger
}

// NewManager creates a Manager that keeps at most limit events.
func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &Manager{
		limit:  limit,
		logger: logging.Named("events"),
	}
}

// Report records an event. It satisfies Reporter.
func (m *Manager) Report(t Type, s Severity) {
	ev := Event{Type: t, Severity: s, Timestamp: time.Now()}

	m.mu.Lock()
	if len(m.events) >= m.limit {
		m.events = m.events[1:]
		m.dropped++
	}
	m.events = append(m.events, ev)
	if s == Error {
		m.lastError = &ev
	}
	m.mu.Unlock()

	fields := []zap.Field{zap.Stringer("event", t), zap.Stringer("severity", s)}
	switch s {
	case Error:
		m.logger.Error("Event reported", fields...)
	case Warning:
		m.logger.Warn("Event reported", fields...)
	default:
		m.logger.Debug("Event reported", fields...)
	}
}

// Events returns and clears the history.
func (m *Manager) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.events
	m.events = nil
	return out
}

// Count returns the number of stored events of the given type.
func (m *Manager) Count(t Type) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// LastError returns the most recent Error-severity event and clears it.
func (m *Manager) LastError() (Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastError == nil {
		return Event{}, false
	}
	ev := *m.lastError
	m.lastError = nil
	return ev, true
}

// Dropped returns how many events were evicted from a full history.
func (m *Manager) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
