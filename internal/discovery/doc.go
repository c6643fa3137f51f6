// Package discovery finds icsneo network bridges with mDNS.
//
// A bridge (see package server) shares a locally attached device over
// WebSocket and advertises itself as an "_icsneo._tcp" service. The
// instance name is "icsneo-<serial>" and the TXT record carries:
//
//	serial=<device serial>
//	path=<WebSocket path, usually /device>
//	version=<bridge build version>
//
// # Usage Example
//
//	bridges, err := discovery.ScanForDevices(3 * time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, b := range bridges {
//	    fmt.Println(b.Serial, b.URL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Bridges must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
