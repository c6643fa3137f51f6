package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/intrepidcs/libicsneo-sub002/internal/transport"
	"github.com/intrepidcs/libicsneo-sub002/internal/ui"
)

func init() {
	rootCmd.AddCommand(serialCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(portsCmd)
}

var serialCmd = &cobra.Command{
	Use:   "serial",
	Short: "Read the device serial number",
	Example: `  # Against the simulator
  icsneo serial --profile sim

  # Against a saved profile
  icsneo serial -p usb`,
	RunE: runSerial,
}

func runSerial(cmd *cobra.Command, args []string) error {
	ds, err := openDevice()
	if err != nil {
		return err
	}
	defer ds.Close()

	sn, err := ds.com.GetSerialNumberSync(ds.timeout())
	if err != nil {
		return fmt.Errorf("failed to read serial number: %w", err)
	}
	ds.rememberSerial(sn.DeviceSerial)
	fmt.Println(sn.DeviceSerial)
	return nil
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show device identity, hardware and firmware details",
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	ds, err := openDevice()
	if err != nil {
		return err
	}
	defer ds.Close()

	p := ui.NewPrinter(os.Stdout)
	details := map[string]string{
		"Profile":   ds.name,
		"Transport": ds.profile.Transport.String(),
	}
	p.PrintHeader("Device Information", "icsneo info", details)

	sn, err := ds.com.GetSerialNumberSync(ds.timeout())
	if err != nil {
		p.PrintError("Device did not identify itself", err, []string{
			"Check the profile's transport settings",
			"Run with --log-level debug to see the raw traffic",
		})
		return err
	}
	ds.rememberSerial(sn.DeviceSerial)
	details["Serial"] = sn.DeviceSerial

	// Older firmware answers neither request; the serial number is enough
	// to call the device present.
	missing := map[string]string{}
	hw, err := ds.com.GetHardwareInfoSync(ds.timeout())
	if err == nil {
		details["Hardware revision"] = fmt.Sprintf("%d.%d", hw.HardwareRevision.Major, hw.HardwareRevision.Minor)
		details["Bootloader"] = fmt.Sprintf("%d.%d", hw.BootloaderVersion.Major, hw.BootloaderVersion.Minor)
		details["Manufactured"] = hw.ManufactureDate.Format("2006-01-02")
		details["Device ID"] = fmt.Sprintf("0x%02X", hw.DeviceID)
	} else {
		missing["Hardware info"] = err.Error()
	}
	versions, err := ds.com.GetComponentVersionsSync(ds.timeout())
	if err == nil {
		for _, v := range versions {
			if !v.Valid {
				continue
			}
			details["Component "+strconv.Itoa(int(v.Slot))] = v.String()
		}
	} else {
		missing["Component versions"] = err.Error()
	}
	if len(missing) > 0 {
		p.PrintWarning("Some details are unavailable", missing)
	}

	p.PrintSuccess("Device "+sn.DeviceSerial, details)
	return nil
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports a device may be attached to",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := transport.ListSerialPorts()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found.")
			return nil
		}
		for _, port := range ports {
			fmt.Println(port)
		}
		return nil
	},
}
