package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/intrepidcs/libicsneo-sub002/internal/discovery"
	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/metrics"
	"github.com/intrepidcs/libicsneo-sub002/internal/server"
)

// Bridge command flags
var (
	serveHost      string
	servePort      int
	servePath      string
	serveCert      string
	serveKey       string
	serveAdvertise bool
	serveMetrics   bool
	scanTimeout    int
	scanSerial     string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", discovery.DefaultPort, "Listen port")
	serveCmd.Flags().StringVar(&servePath, "path", discovery.DefaultPath, "WebSocket path of the device stream")
	serveCmd.Flags().StringVar(&serveCert, "cert", "", "TLS certificate file (plain ws:// when omitted)")
	serveCmd.Flags().StringVar(&serveKey, "key", "", "TLS private key file")
	serveCmd.Flags().BoolVar(&serveAdvertise, "advertise", true, "Announce the bridge over mDNS")
	serveCmd.Flags().BoolVar(&serveMetrics, "metrics", true, "Serve Prometheus metrics at /metrics")

	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Scan timeout in seconds (default from preferences)")
	scanCmd.Flags().StringVar(&scanSerial, "serial", "", "Wait for the bridge of one device serial and print its URL")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Share the profile's device over the network",
	Long: `Open the profile's device and relay its byte stream to one WebSocket
client at a time. Other hosts reach the device with a websocket profile
pointing at the printed URL, or find it with 'icsneo scan'.

Device bytes are relayed unmodified; the bridge never interprets traffic.`,
	Example: `  # Share a USB device on the default port
  icsneo serve -p usb

  # Share over TLS without mDNS
  icsneo serve -p usb --cert cert.pem --key key.pem --advertise=false`,
	RunE: runServe,
}

// meteredDevice counts the bytes the bridge relays.
type meteredDevice struct {
	server.Device
	metrics *metrics.Metrics
}

func (d meteredDevice) Read() ([]byte, error) {
	b, err := d.Device.Read()
	d.metrics.BytesRead(len(b))
	return b, err
}

func (d meteredDevice) Write(b []byte) error {
	err := d.Device.Write(b)
	if err == nil {
		d.metrics.BytesWritten(len(b))
	}
	return err
}

func runServe(cmd *cobra.Command, args []string) error {
	if (serveCert == "") != (serveKey == "") {
		return fmt.Errorf("both --cert and --key must be provided together")
	}

	// Identify the device first; the serial names the mDNS instance.
	ds, err := openDevice()
	if err != nil {
		return err
	}
	sn, err := ds.com.GetSerialNumberSync(ds.timeout())
	ds.Close()
	if err != nil {
		return fmt.Errorf("failed to read serial number: %w", err)
	}
	ds.rememberSerial(sn.DeviceSerial)

	t, err := newTransport(ds.profile)
	if err != nil {
		return err
	}
	var device server.Device = t

	cfg := &server.Config{
		Host:      serveHost,
		Port:      servePort,
		Path:      servePath,
		CertPath:  serveCert,
		KeyPath:   serveKey,
		Serial:    sn.DeviceSerial,
		Advertise: serveAdvertise,
	}
	if serveMetrics {
		reg := prometheus.NewRegistry()
		device = meteredDevice{Device: t, metrics: metrics.New(metrics.WithRegistry(reg))}
		cfg.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	srv, err := server.New(cfg, device)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	scheme := "ws"
	if serveCert != "" {
		scheme = "wss"
	}
	fmt.Fprintf(os.Stderr, "Sharing %s at %s://%s%s (Ctrl+C to stop)\n", sn.DeviceSerial, scheme, srv.Addr(), cfg.Path)
	return srv.Start()
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find network bridges over mDNS",
	Long: `Listen for bridges announced by 'icsneo serve' and list them with the
URL a websocket profile should use.`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanSerial != "" {
		serial, err := canonicalSerial(scanSerial)
		if err != nil {
			return err
		}
		d, err := discovery.FindDevice(serial)
		if err != nil {
			return err
		}
		fmt.Println(d.URL())
		return nil
	}

	timeout := scanTimeout
	if timeout <= 0 {
		if reg, _, err := loadRegistry(); err == nil && reg.Preferences != nil {
			timeout = reg.Preferences.ScanTimeout
		}
	}
	if timeout <= 0 {
		timeout = int(discovery.DefaultScanTimeout / time.Second)
	}

	fmt.Printf("Scanning for bridges (timeout: %ds)...\n\n", timeout)
	devices, err := discovery.ScanForDevices(time.Duration(timeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No bridges found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure 'icsneo serve' is running with --advertise")
		fmt.Println("  - Check that both hosts are on the same network segment")
		fmt.Println("  - Try increasing --timeout")
		return nil
	}

	fmt.Printf("Found %d bridge(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Printf("%d. %s\n", i+1, d.Serial)
		fmt.Printf("   URL:      %s\n", d.URL())
		fmt.Printf("   Hostname: %s\n", d.Hostname)
		if v := d.GetMetadata("version"); v != "" {
			fmt.Printf("   Version:  %s\n", v)
		}
		fmt.Println()
	}
	fmt.Println("Use a websocket profile with the URL above to connect.")
	return nil
}

// canonicalSerial checks a serial typed by the user and returns it the way
// devices report it, e.g. "ab1234" becomes "AB1234".
func canonicalSerial(s string) (string, error) {
	n := message.SerialStringToNum(s)
	canonical := message.SerialNumToString(n)
	if n == 0 || !strings.EqualFold(canonical, s) {
		return "", fmt.Errorf("invalid device serial %q", s)
	}
	return canonical, nil
}
