package discovery

import (
	"net"
	"testing"

	"github.com/grandcat/zeroconf"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name       string
		entry      *zeroconf.ServiceEntry
		wantNil    bool
		wantSerial string
		wantIP     string
		wantPort   int
		wantPath   string
	}{
		{
			name: "bridge with TXT serial and IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "icsneo-AB1234"},
				HostName:      "bench-pc.local.",
				Port:          8765,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"serial=AB1234", "path=/device", "version=1.0.0"},
			},
			wantSerial: "AB1234",
			wantIP:     "192.168.4.16",
			wantPort:   8765,
			wantPath:   "/device",
		},
		{
			name: "serial taken from instance name",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "icsneo-cy0042"},
				HostName:      "lab.local",
				Port:          9000,
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantSerial: "CY0042",
			wantIP:     "10.0.0.5",
			wantPort:   9000,
			wantPath:   DefaultPath,
		},
		{
			name: "no port falls back to default",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "icsneo-SIM001"},
				AddrIPv4:      []net.IP{net.ParseIP("172.16.0.1")},
				Text:          []string{"path=/custom"},
			},
			wantSerial: "SIM001",
			wantIP:     "172.16.0.1",
			wantPort:   DefaultPort,
			wantPath:   "/custom",
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "icsneo-AB1234"},
				Port:          8765,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantSerial: "AB1234",
			wantIP:     "fe80::1",
			wantPort:   8765,
			wantPath:   DefaultPath,
		},
		{
			name: "foreign service without serial",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "printer"},
				Port:          631,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "icsneo-AB1234"},
				Port:          8765,
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}

			if device == nil {
				t.Fatal("parseServiceEntry() = nil, want device")
			}
			if device.Serial != tt.wantSerial {
				t.Errorf("Serial = %v, want %v", device.Serial, tt.wantSerial)
			}
			if device.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", device.IP, tt.wantIP)
			}
			if device.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", device.Port, tt.wantPort)
			}
			if device.Path != tt.wantPath {
				t.Errorf("Path = %v, want %v", device.Path, tt.wantPath)
			}
			if device.DiscoveredAt.IsZero() {
				t.Error("DiscoveredAt should be set")
			}
		})
	}
}

func TestScanner_metadataParsing(t *testing.T) {
	scanner := NewScanner()
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "icsneo-AB1234"},
		Port:          8765,
		AddrIPv4:      []net.IP{net.ParseIP("192.168.1.2")},
		Text:          []string{"version=2.0", "flag", "path=/a=b"},
	}

	device := scanner.parseServiceEntry(entry)
	if device == nil {
		t.Fatal("expected device")
	}
	if got := device.GetMetadata("version"); got != "2.0" {
		t.Errorf("version = %q, want 2.0", got)
	}
	if _, ok := device.Metadata["flag"]; !ok {
		t.Error("flag key should be present")
	}
	if device.Path != "/a=b" {
		t.Errorf("Path = %q, want /a=b", device.Path)
	}
}

func TestInstanceName(t *testing.T) {
	if got := InstanceName("AB1234"); got != "icsneo-AB1234" {
		t.Errorf("InstanceName() = %q", got)
	}
	if !instancePattern.MatchString(InstanceName("SIM001")) {
		t.Error("instance name should match the instance pattern")
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestAdvertisement_ShutdownNil(t *testing.T) {
	var a *Advertisement
	a.Shutdown()
	(&Advertisement{}).Shutdown()
}
