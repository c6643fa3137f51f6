package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/intrepidcs/libicsneo-sub002/internal/capture"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

// Capture command flags
var (
	captureSession  string
	captureNetwork  string
	captureArbID    string
	captureRealtime bool
	captureLimit    int
)

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.AddCommand(captureShowCmd)
	captureCmd.AddCommand(captureReplayCmd)

	captureCmd.PersistentFlags().StringVar(&captureSession, "session", "", "Only records from this capture session")
	captureCmd.PersistentFlags().StringVarP(&captureNetwork, "network", "n", "", "Only records from this network")
	captureCmd.PersistentFlags().StringVar(&captureArbID, "id", "", "Only CAN frames with this hex arbitration ID")
	captureCmd.PersistentFlags().IntVar(&captureLimit, "limit", 0, "Stop after this many records (0 = all)")

	captureReplayCmd.Flags().BoolVar(&captureRealtime, "realtime", false, "Keep the original spacing between frames")
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Inspect and replay traffic recorded by 'icsneo monitor --capture'",
}

var captureShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the records of a capture file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaptureShow,
}

var captureReplayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Transmit the CAN frames of a capture file",
	Long: `Transmit every captured CAN frame on the network it was received on.
Records that are not CAN frames are skipped.`,
	Example: `  # Replay HSCAN traffic with its original timing
  icsneo capture replay bus.cbor -n HSCAN --realtime`,
	Args: cobra.ExactArgs(1),
	RunE: runCaptureReplay,
}

func captureFilter() (capture.Filter, error) {
	f := capture.Filter{Session: captureSession}
	if captureNetwork != "" {
		id, err := network.ParseNetID(captureNetwork)
		if err != nil {
			return f, err
		}
		n := uint16(id)
		f.NetID = &n
	}
	if captureArbID != "" {
		id, err := parseArbID(captureArbID)
		if err != nil {
			return f, err
		}
		f.ArbID = &id
	}
	return f, nil
}

// eachRecord calls fn for every matching record, honoring --limit.
func eachRecord(path string, fn func(capture.Record) error) (int, error) {
	f, err := captureFilter()
	if err != nil {
		return 0, err
	}
	r, err := capture.Open(path, f)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n := 0
	for captureLimit <= 0 || n < captureLimit {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("record %d: %w", n+1, err)
		}
		if err := fn(rec); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func runCaptureShow(cmd *cobra.Command, args []string) error {
	n, err := eachRecord(args[0], func(rec capture.Record) error {
		fmt.Println(formatRecord(rec))
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Printf("\n%d record(s)\n", n)
	return nil
}

func formatRecord(rec capture.Record) string {
	line := fmt.Sprintf("%s %6d  %-12s %-10s", rec.Captured.Format("15:04:05.000000"), rec.Seq, rec.Kind, network.NetID(rec.NetID))
	if rec.IsCAN() {
		line += fmt.Sprintf(" %8X", rec.ArbID)
	}
	return line + fmt.Sprintf("  % X", rec.Data)
}

func runCaptureReplay(cmd *cobra.Command, args []string) error {
	ds, err := openDevice()
	if err != nil {
		return err
	}
	defer ds.Close()

	var last time.Time
	skipped := 0
	n, err := eachRecord(args[0], func(rec capture.Record) error {
		if !rec.IsCAN() {
			skipped++
			return nil
		}
		if captureRealtime && !last.IsZero() {
			if gap := rec.Captured.Sub(last); gap > 0 {
				time.Sleep(gap)
			}
		}
		last = rec.Captured
		if err := ds.com.Transmit(rec.Message()); err != nil {
			return fmt.Errorf("record %d: %w", rec.Seq, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ds.logger.Debug("Replay finished", zap.Int("records", n), zap.Int("skipped", skipped))
	fmt.Printf("Replayed %d frame(s), skipped %d non-CAN record(s)\n", n-skipped, skipped)
	return nil
}
