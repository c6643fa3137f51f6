package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/intrepidcs/libicsneo-sub002/internal/packetizer"
)

const (
	appName    = "icsneo"
	configFile = "config.yaml"
)

var (
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
	globalRegistryErr  error

	// fileMutex serialises SaveTo within the process.
	fileMutex sync.Mutex
)

// ConfigPathEnvVar overrides the configuration file location.
const ConfigPathEnvVar = "ICSNEO_CONFIG"

// GetConfigDir returns the directory icsneo keeps its configuration in:
//   - Linux: $XDG_CONFIG_HOME/icsneo or $HOME/.config/icsneo
//   - macOS: $HOME/.config/icsneo
//   - Windows: %LOCALAPPDATA%\icsneo
func GetConfigDir() (string, error) {
	base, err := userConfigBase()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

// userConfigBase is the per-user configuration root. Unlike
// os.UserConfigDir, macOS uses ~/.config.
func userConfigBase() (string, error) {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir, nil
		}
		profile := os.Getenv("USERPROFILE")
		if profile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(profile, "AppData", "Local"), nil
	}

	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" && runtime.GOOS != "darwin" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config"), nil
}

// GetConfigPath returns the configuration file path, honouring
// ICSNEO_CONFIG when it is set.
func GetConfigPath() (string, error) {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// LoadRegistry returns the registry at GetConfigPath, read once per
// process. A missing file yields an empty registry.
func LoadRegistry() (*Registry, error) {
	globalRegistryOnce.Do(func() {
		globalRegistry, globalRegistryErr = loadRegistryFromDisk()
	})
	return globalRegistry, globalRegistryErr
}

func loadRegistryFromDisk() (*Registry, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadRegistryFrom(path)
}

// LoadRegistryFrom loads a registry from an explicit path.
// If the file doesn't exist, returns a new default registry.
func LoadRegistryFrom(configPath string) (*Registry, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return NewRegistry(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if registry.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", registry.Version, CurrentVersion)
	}

	if registry.Profiles == nil {
		registry.Profiles = make(map[string]*Profile)
	}
	if registry.Preferences == nil {
		registry.Preferences = defaultPreferences()
	}
	for name, p := range registry.Profiles {
		if p == nil {
			return nil, fmt.Errorf("profile %q is empty", name)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
	}

	return &registry, nil
}

// SaveTo saves the registry to configPath atomically.
func (r *Registry) SaveTo(configPath string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# icsneo configuration file
# Device profiles: transport, framing options and settings layout.
#
# Location: ` + configPath + `

`)
	data = append(header, data...)

	// Rename over the old file so a crash never leaves half a config.
	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// ExampleRegistry returns a registry with one profile per transport type.
func ExampleRegistry() *Registry {
	registry := NewRegistry()
	registry.DefaultProfile = SimProfile
	registry.Profiles[SimProfile] = &Profile{
		Description: "Simulated device",
		Transport:   Transport{Type: TransportSim},
	}
	registry.Profiles["usb"] = &Profile{
		Description: "Device on the first USB serial port",
		Transport:   Transport{Type: TransportSerial, Port: "/dev/ttyACM0"},
	}
	registry.Profiles["bridge"] = &Profile{
		Description: "Device shared by icsneo serve",
		Transport:   Transport{Type: TransportWebSocket, URL: "ws://localhost:8765/device"},
	}
	registry.Profiles["ethernet"] = &Profile{
		Description: "Device reachable over TCP",
		Transport:   Transport{Type: TransportTCP, Address: "192.168.69.10:16000"},
		Packetizer:  packetizer.Options{DisableChecksum: true},
	}
	return registry
}
