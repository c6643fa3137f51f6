// Package config manages icsneo device profiles.
//
// Profiles are stored in a YAML file and name everything needed to reach and
// talk to one device: the transport, packetizer framing options and the
// settings structure layout. The configuration follows OS-specific
// conventions for storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/icsneo/config.yaml or $HOME/.config/icsneo/config.yaml
//   - macOS: $HOME/.config/icsneo/config.yaml
//   - Windows: %LOCALAPPDATA%\icsneo\config.yaml
//
// ICSNEO_CONFIG names a different file outright.
//
// # Example
//
//	version: 1
//	default_profile: bench
//	profiles:
//	  bench:
//	    transport:
//	      type: serial
//	      port: /dev/ttyACM0
//	  remote:
//	    transport:
//	      type: websocket
//	      url: ws://bench-pc.local:8765/device
//	    packetizer:
//	      disable_checksum: true
//	    layout:
//	      struct_size: 64
//	      can: {HSCAN: 0, MSCAN: 12}
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	profile, err := registry.Resolve("")
//
// # Thread Safety
//
// LoadRegistry uses sync.Once, so every caller shares one registry.
// File operations are protected by a mutex to ensure atomic writes.
package config
