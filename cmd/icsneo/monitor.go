package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/capture"
	"github.com/intrepidcs/libicsneo-sub002/internal/communication"
	"github.com/intrepidcs/libicsneo-sub002/internal/filter"
	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/metrics"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
	"github.com/intrepidcs/libicsneo-sub002/internal/ui"
)

const pollInterval = 50 * time.Millisecond

// Monitor command flags
var (
	monitorNetwork     string
	monitorDuration    time.Duration
	monitorCount       int
	monitorTUI         bool
	monitorCapture     string
	monitorMetricsAddr string
	monitorPoll        bool
)

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringVarP(&monitorNetwork, "network", "n", "", "Only show traffic on this network (e.g. HSCAN)")
	monitorCmd.Flags().DurationVarP(&monitorDuration, "duration", "d", 0, "Stop after this long (0 = until interrupted)")
	monitorCmd.Flags().IntVar(&monitorCount, "count", 0, "Stop after this many messages (0 = unlimited)")
	monitorCmd.Flags().BoolVar(&monitorTUI, "tui", false, "Show traffic in an interactive table")
	monitorCmd.Flags().StringVar(&monitorCapture, "capture", "", "Append received traffic to this capture file")
	monitorCmd.Flags().StringVar(&monitorMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")
	monitorCmd.Flags().BoolVar(&monitorPoll, "poll", false, "Read traffic through the polling queue instead of a callback")
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Show live bus traffic",
	Long: `Enable network communication on the device and show every message it
reports. Traffic can be appended to a capture file for later replay, and
the host-side counters can be exported to Prometheus while monitoring.`,
	Example: `  # Print all traffic until Ctrl+C
  icsneo monitor

  # Interactive table of HSCAN traffic
  icsneo monitor --network HSCAN --tui

  # Record ten seconds of traffic and expose metrics
  icsneo monitor -d 10s --capture bus.cbor --metrics-addr :9100`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	match := filter.Filter(filter.Any())
	if monitorNetwork != "" {
		id, err := network.ParseNetID(monitorNetwork)
		if err != nil {
			return err
		}
		match = filter.ByNetID(id)
	}

	var opts []communication.Option
	var metricsServer *http.Server
	addr := monitorMetricsAddr
	if addr == "" {
		if reg, _, err := loadRegistry(); err == nil && reg.Preferences != nil {
			addr = reg.Preferences.MetricsAddress
		}
	}
	if addr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, communication.WithMetrics(metrics.New(metrics.WithRegistry(reg))))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	ds, err := openDevice(opts...)
	if err != nil {
		return err
	}
	defer ds.Close()
	defer func() {
		if stats := ds.com.FramingStats(); stats != (communication.FramingStats{}) {
			fmt.Fprintln(os.Stderr, formatFramingStats(stats))
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				ds.logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
		defer metricsServer.Close()
		fmt.Fprintf(os.Stderr, "Serving metrics on %s/metrics\n", addr)
	}

	var recorder *capture.Writer
	if monitorCapture != "" {
		recorder, err = capture.Create(monitorCapture)
		if err != nil {
			return err
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				ds.logger.Warn("Capture close failed", zap.Error(err))
			}
			fmt.Fprintf(os.Stderr, "Captured %d messages to %s (session %s)\n",
				recorder.Count(), monitorCapture, recorder.Session())
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if monitorDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, monitorDuration)
		defer cancel()
	}
	ctx, finish := context.WithCancel(ctx)
	defer finish()

	feed := make(chan *message.Message, 256)
	seen := 0
	deliver := func(msg *message.Message) {
		if !match.Match(msg) {
			return
		}
		if recorder != nil {
			if err := recorder.Write(msg); err != nil {
				ds.logger.Warn("Capture write failed", zap.Error(err))
			}
		}
		seen++
		if monitorCount > 0 && seen >= monitorCount {
			finish()
		}
		select {
		case feed <- msg:
		default:
			// The display is behind; the capture still has it.
		}
	}

	if monitorPoll {
		ds.com.EnableMessagePolling(0)
		defer ds.com.DisableMessagePolling()
		go pollMessages(ctx, ds, deliver)
	} else {
		id := ds.com.AddMessageCallback(filter.NewCallback(match, deliver))
		defer ds.com.RemoveMessageCallback(id)
	}

	if err := ds.com.EnableNetworkCommunication(true); err != nil {
		return fmt.Errorf("failed to enable network communication: %w", err)
	}
	defer func() {
		if err := ds.com.EnableNetworkCommunication(false); err != nil {
			ds.logger.Debug("Disable network communication failed", zap.Error(err))
		}
	}()

	if monitorTUI {
		return runMonitorTUI(ctx, ds, feed)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-feed:
			fmt.Println(formatMessage(msg))
		}
	}
}

// pollMessages drains the polling queue until ctx ends or polling is
// switched off.
func pollMessages(ctx context.Context, ds *deviceSession, deliver func(*message.Message)) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !ds.com.IsMessagePollingEnabled() {
				return
			}
			if n := ds.com.PollingCount(); n > 0 {
				ds.logger.Debug("Draining polling queue", zap.Int("queued", n))
			}
			for _, msg := range ds.com.GetMessages(0) {
				deliver(msg)
			}
		}
	}
}

func runMonitorTUI(ctx context.Context, ds *deviceSession, feed <-chan *message.Message) error {
	// The table stays up after ctx ends; only its feed stops.
	view := make(chan *message.Message, cap(feed))
	go func() {
		defer close(view)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-feed:
				select {
				case view <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	title := ds.profile.Transport.String()
	if ds.profile.Serial != "" {
		title = ds.profile.Serial + " via " + title
	}
	return ui.RunMonitor(ui.MonitorConfig{Title: title}, view)
}

// formatFramingStats summarises what the link lost to framing errors.
func formatFramingStats(stats communication.FramingStats) string {
	return fmt.Sprintf("Framing: %d bytes discarded, %d checksum failures", stats.Discarded, stats.ChecksumFailures)
}

// formatMessage renders one line of plain monitor output.
func formatMessage(msg *message.Message) string {
	return strings.Join(ui.MessageRow(msg), "  ")
}
