package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device represents a discovered bridge and the device behind it
type Device struct {
	// Serial is the device serial number (e.g., "AB1234")
	Serial string

	// Instance is the mDNS instance name (e.g., "icsneo-AB1234")
	Instance string

	// Hostname is the mDNS hostname of the bridge host
	Hostname string

	// IP is the bridge address, IPv4 preferred
	IP string

	// Port is the bridge HTTP port
	Port int

	// Path is the WebSocket path of the device stream
	Path string

	// Metadata contains the raw mDNS TXT record data
	Metadata map[string]string

	// DiscoveredAt is when the bridge was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("icsneo bridge %s (%s) at %s", d.Serial, d.Hostname, d.hostPort())
}

// URL returns the WebSocket URL of the device stream
func (d *Device) URL() string {
	path := d.Path
	if path == "" {
		path = DefaultPath
	}
	return fmt.Sprintf("ws://%s%s", d.hostPort(), path)
}

// BaseURL returns the HTTP base URL of the bridge
func (d *Device) BaseURL() string {
	return fmt.Sprintf("http://%s", d.hostPort())
}

func (d *Device) hostPort() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
