package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/intrepidcs/libicsneo-sub002/internal/filter"
	"github.com/intrepidcs/libicsneo-sub002/internal/message"
	"github.com/intrepidcs/libicsneo-sub002/internal/network"
)

// Transmit command flags
var (
	transmitFD       bool
	transmitBRS      bool
	transmitExtended bool
	transmitRepeat   int
	transmitInterval time.Duration
	transmitReceipt  bool
)

func init() {
	rootCmd.AddCommand(transmitCmd)

	transmitCmd.Flags().BoolVar(&transmitFD, "fd", false, "Send as a CAN FD frame")
	transmitCmd.Flags().BoolVar(&transmitBRS, "brs", false, "Switch bit rate for the data phase (CAN FD only)")
	transmitCmd.Flags().BoolVarP(&transmitExtended, "extended", "x", false, "Force a 29-bit identifier")
	transmitCmd.Flags().IntVar(&transmitRepeat, "repeat", 1, "Number of times to send the frame")
	transmitCmd.Flags().DurationVar(&transmitInterval, "interval", 0, "Delay between repeated frames")
	transmitCmd.Flags().BoolVar(&transmitReceipt, "receipt", false, "Wait for the device to confirm each frame went out")
}

var transmitCmd = &cobra.Command{
	Use:   "transmit <network> <arb-id> [data]",
	Short: "Send a CAN frame",
	Long: `Send a CAN frame on a device network. The arbitration ID is hex, with or
without a 0x prefix. Data is hex, optionally separated by spaces, colons or
dots.`,
	Example: `  # Classic frame
  icsneo transmit HSCAN 123 DEADBEEF

  # 29-bit FD frame with bit rate switching, waiting for the TX receipt
  icsneo transmit HSCAN2 0x18DAF110 "00 11 22 33 44 55 66 77 88" --fd --brs -x --receipt`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runTransmit,
}

// parseArbID reads a hex arbitration ID.
func parseArbID(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	id, err := strconv.ParseUint(s, 16, 32)
	if err != nil || id > 0x1FFFFFFF {
		return 0, fmt.Errorf("invalid arbitration ID %q", s)
	}
	return uint32(id), nil
}

// parseData reads hex payload bytes.
func parseData(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", ".", "", "-", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid data %q: %w", s, err)
	}
	return data, nil
}

func buildFrame(args []string) (*message.Message, error) {
	net, err := network.ParseNetID(args[0])
	if err != nil {
		return nil, err
	}
	if network.TypeOf(net) != network.TypeCAN {
		return nil, fmt.Errorf("%s is not a CAN network", net)
	}
	id, err := parseArbID(args[1])
	if err != nil {
		return nil, err
	}
	var data []byte
	if len(args) == 3 {
		if data, err = parseData(args[2]); err != nil {
			return nil, err
		}
	}

	msg := message.NewCAN(net, id, data)
	msg.CAN.IsExtended = msg.CAN.IsExtended || transmitExtended
	msg.CAN.IsCANFD = transmitFD
	msg.CAN.BRS = transmitFD && transmitBRS
	return msg, nil
}

func runTransmit(cmd *cobra.Command, args []string) error {
	msg, err := buildFrame(args)
	if err != nil {
		return err
	}
	if transmitBRS && !transmitFD {
		return fmt.Errorf("--brs requires --fd")
	}

	ds, err := openDevice()
	if err != nil {
		return err
	}
	defer ds.Close()

	receipt := filter.Func(func(m *message.Message) bool {
		return m.Kind == message.KindCAN && m.CAN != nil && m.CAN.Transmitted &&
			m.Network.ID == msg.Network.ID && m.CAN.ArbID == msg.CAN.ArbID
	})

	for i := 0; i < max(transmitRepeat, 1); i++ {
		if i > 0 && transmitInterval > 0 {
			time.Sleep(transmitInterval)
		}
		if !transmitReceipt {
			if err := ds.com.Transmit(msg); err != nil {
				return err
			}
			continue
		}
		got, err := ds.com.WaitForMessageSync(func() error { return ds.com.Transmit(msg) }, receipt, ds.timeout())
		if err != nil {
			return fmt.Errorf("frame %d: %w", i+1, err)
		}
		if got.CAN.TxError || got.CAN.TxAborted || got.CAN.TxLostArb {
			return fmt.Errorf("frame %d: device reported a transmit failure", i+1)
		}
	}

	fmt.Printf("Sent %d frame(s) on %s\n", max(transmitRepeat, 1), msg.Network)
	return nil
}
