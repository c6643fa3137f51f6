package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/intrepidcs/libicsneo-sub002/internal/packetizer"
	"github.com/intrepidcs/libicsneo-sub002/internal/settings"
)

// CurrentVersion is the config file format version.
const CurrentVersion = 1

// Transport types a profile may name.
const (
	TransportSerial    = "serial"
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
	TransportSim       = "sim"
)

// SimProfile is the built-in profile that talks to the simulated device.
const SimProfile = "sim"

// Registry represents the entire user configuration file.
type Registry struct {
	Version        int                 `yaml:"version"`
	DefaultProfile string              `yaml:"default_profile,omitempty"`
	Profiles       map[string]*Profile `yaml:"profiles,omitempty"` // Keyed by profile name
	Preferences    *Preferences        `yaml:"preferences,omitempty"`
}

// Profile describes how to reach and talk to one device.
type Profile struct {
	Description string                 `yaml:"description,omitempty"`
	Serial      string                 `yaml:"serial,omitempty"` // Last serial number seen through this profile
	Transport   Transport              `yaml:"transport"`
	Packetizer  packetizer.Options     `yaml:"packetizer,omitempty"`
	Layout      *settings.OffsetLayout `yaml:"layout,omitempty"` // Default layout when unset
	Readonly    bool                   `yaml:"readonly,omitempty"`

	// TimestampResolution is the device tick in nanoseconds; 0 keeps the
	// default.
	TimestampResolution uint64 `yaml:"timestamp_resolution_ns,omitempty"`

	// DisableGSChecksum skips settings checksum verification on refresh.
	DisableGSChecksum bool      `yaml:"disable_gs_checksum,omitempty"`
	LastSeen          time.Time `yaml:"last_seen,omitempty"`
}

// Transport selects and parameterizes the byte stream to the device.
type Transport struct {
	Type     string `yaml:"type"`                // serial, tcp, websocket or sim
	Port     string `yaml:"port,omitempty"`      // serial device path
	BaudRate int    `yaml:"baud_rate,omitempty"` // serial line rate; USB devices ignore it
	Address  string `yaml:"address,omitempty"`   // tcp host:port
	URL      string `yaml:"url,omitempty"`       // websocket bridge URL
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	ScanTimeout    int    `yaml:"scan_timeout"`              // mDNS discovery timeout in seconds
	SyncTimeoutMs  int    `yaml:"sync_timeout_ms"`           // request/response wait
	PollingLimit   int    `yaml:"polling_limit"`             // message polling queue bound
	LogLevel       string `yaml:"log_level,omitempty"`       // default log level for the CLI
	MetricsAddress string `yaml:"metrics_address,omitempty"` // e.g. ":9100"; disabled when empty
}

func defaultPreferences() *Preferences {
	return &Preferences{
		ScanTimeout:   5,
		SyncTimeoutMs: 500,
		PollingLimit:  20000,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Profiles:    make(map[string]*Profile),
		Preferences: defaultPreferences(),
	}
}

// SyncTimeout returns the configured request/response wait.
func (p *Preferences) SyncTimeout() time.Duration {
	if p == nil || p.SyncTimeoutMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(p.SyncTimeoutMs) * time.Millisecond
}

// GetProfile retrieves a profile by name.
// Returns nil if the profile doesn't exist in the registry.
func (r *Registry) GetProfile(name string) *Profile {
	return r.Profiles[name]
}

// EnsureProfile ensures a profile entry exists in the registry.
// New entries default to the simulated device.
func (r *Registry) EnsureProfile(name string) *Profile {
	if r.Profiles == nil {
		r.Profiles = make(map[string]*Profile)
	}
	if p, exists := r.Profiles[name]; exists {
		return p
	}
	p := &Profile{Transport: Transport{Type: TransportSim}}
	r.Profiles[name] = p
	return p
}

// SetProfile stores a profile after validating it.
func (r *Registry) SetProfile(name string, p *Profile) error {
	if name == "" {
		return fmt.Errorf("profile name is required")
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", name, err)
	}
	if r.Profiles == nil {
		r.Profiles = make(map[string]*Profile)
	}
	r.Profiles[name] = p
	return nil
}

// RemoveProfile deletes a profile, clearing the default if it pointed there.
func (r *Registry) RemoveProfile(name string) bool {
	if _, ok := r.Profiles[name]; !ok {
		return false
	}
	delete(r.Profiles, name)
	if r.DefaultProfile == name {
		r.DefaultProfile = ""
	}
	return true
}

// ProfileNames returns the profile names in sorted order.
func (r *Registry) ProfileNames() []string {
	names := make([]string, 0, len(r.Profiles))
	for name := range r.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the named profile. An empty name selects the default
// profile, and "sim" always resolves even when not stored.
func (r *Registry) Resolve(name string) (*Profile, error) {
	if name == "" {
		name = r.DefaultProfile
	}
	if name == "" {
		name = SimProfile
	}
	if p := r.Profiles[name]; p != nil {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		return p, nil
	}
	if name == SimProfile {
		return &Profile{Description: "simulated device", Transport: Transport{Type: TransportSim}}, nil
	}
	return nil, fmt.Errorf("unknown profile %q", name)
}

// UpdateProfileLastSeen records the serial number seen through a profile.
func (r *Registry) UpdateProfileLastSeen(name, serial string) {
	p := r.EnsureProfile(name)
	p.Serial = serial
	p.LastSeen = time.Now()
}

// Validate checks that the transport is fully specified and the layout, if
// any, resolves.
func (p *Profile) Validate() error {
	if err := p.Transport.Validate(); err != nil {
		return err
	}
	if p.Layout != nil {
		if err := p.Layout.Resolve(); err != nil {
			return fmt.Errorf("invalid settings layout: %w", err)
		}
	}
	return nil
}

// SettingsLayout returns the profile's layout or the default one.
func (p *Profile) SettingsLayout() *settings.OffsetLayout {
	if p.Layout != nil {
		return p.Layout
	}
	return settings.DefaultLayout()
}

// Validate checks the fields the transport type requires.
func (t Transport) Validate() error {
	switch t.Type {
	case TransportSerial:
		if t.Port == "" {
			return fmt.Errorf("serial transport requires a port")
		}
	case TransportTCP:
		if t.Address == "" {
			return fmt.Errorf("tcp transport requires an address")
		}
	case TransportWebSocket:
		if t.URL == "" {
			return fmt.Errorf("websocket transport requires a url")
		}
	case TransportSim:
	case "":
		return fmt.Errorf("transport type is required")
	default:
		return fmt.Errorf("unknown transport type %q", t.Type)
	}
	if t.BaudRate < 0 {
		return fmt.Errorf("invalid baud rate %d", t.BaudRate)
	}
	return nil
}

func (t Transport) String() string {
	switch t.Type {
	case TransportSerial:
		return "serial:" + t.Port
	case TransportTCP:
		return "tcp:" + t.Address
	case TransportWebSocket:
		return t.URL
	default:
		return t.Type
	}
}
