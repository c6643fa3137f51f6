package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/intrepidcs/libicsneo-sub002/internal/network"
	"github.com/intrepidcs/libicsneo-sub002/internal/settings"
	"github.com/intrepidcs/libicsneo-sub002/internal/ui"
)

// Settings command flags
var (
	settingsRaw       bool
	settingsFD        bool
	settingsTemporary bool
	settingsSafe      bool
	settingsYes       bool
	settingsNoVerify  bool
)

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsBaudCmd)
	settingsCmd.AddCommand(settingsModeCmd)
	settingsCmd.AddCommand(settingsDefaultsCmd)
	settingsCmd.AddCommand(settingsRatesCmd)

	settingsShowCmd.Flags().BoolVar(&settingsRaw, "raw", false, "Also print the structure as a hex dump")

	settingsBaudCmd.Flags().BoolVar(&settingsFD, "fd", false, "Set the CAN FD data phase rate instead of the arbitration rate")
	settingsRatesCmd.Flags().BoolVar(&settingsFD, "fd", false, "List CAN FD data phase rates")
	settingsModeCmd.Flags().BoolVar(&settingsFD, "fd", false, "Set the CAN FD mode instead of the CAN mode")

	for _, c := range []*cobra.Command{settingsBaudCmd, settingsModeCmd, settingsDefaultsCmd} {
		c.Flags().BoolVar(&settingsTemporary, "temporary", false, "Apply to device RAM only; do not save to flash")
		c.Flags().BoolVar(&settingsSafe, "safe", false, "Snapshot the current settings and roll back if the apply fails")
		c.Flags().BoolVarP(&settingsYes, "yes", "y", false, "Skip the confirmation prompt for persistent writes")
	}
	settingsShowCmd.Flags().BoolVar(&settingsNoVerify, "no-verify", false, "Accept the structure even if its checksum is wrong")
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect and change the device settings structure",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Read and display the device settings",
	RunE:  runSettingsShow,
}

var settingsBaudCmd = &cobra.Command{
	Use:   "set-baud <network> <bits-per-second>",
	Short: "Change the baud rate of a CAN network",
	Long: `Change the baud rate of a CAN network and apply it to the device.

Without --temporary the new settings are saved to the device flash and
survive power cycles, so you will be asked to confirm.`,
	Example: `  # Try 250k on HSCAN until the next power cycle
  icsneo settings set-baud HSCAN 250000 --temporary

  # Persistently set a 2M FD data rate, rolling back on failure
  icsneo settings set-baud HSCAN 2000000 --fd --safe`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsBaud,
}

var settingsModeCmd = &cobra.Command{
	Use:   "set-mode <network> <mode>",
	Short: "Change the operating mode of a CAN network",
	Long: `Change the operating mode of a CAN network and apply it to the device.

CAN modes: normal, disabled, loopback, listen-only, listen-all.
With --fd, FD modes: off, fd, fd+brs, fd-iso, fd-iso+brs.`,
	Example: `  # Listen without acknowledging frames
  icsneo settings set-mode HSCAN listen-only --temporary

  # Enable ISO CAN FD with bit rate switching
  icsneo settings set-mode HSCAN fd-iso+brs --fd`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsMode,
}

var settingsDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Restore the device's factory settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsDefaults,
}

var settingsRatesCmd = &cobra.Command{
	Use:   "rates",
	Short: "List the supported baud rates",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, bps := range settings.SupportedBaudrates(settingsFD) {
			fmt.Println(bps)
		}
	},
}

// settingsState says what a failed settings operation left behind on the
// device, or "" when the error is not a settings error.
func settingsState(err error) string {
	switch {
	case settings.IsReadOnly(err):
		return "Nothing was sent: this profile's settings are read only"
	case settings.IsBaudrateError(err):
		return "Nothing was sent: the rate is not in the device's baud table"
	case settings.IsNotAvailable(err):
		return "Nothing was sent: the device has no such settings"
	case settings.IsWriteError(err):
		return "The device refused the write; the local copy was reloaded and matches it"
	case settings.IsNoResponse(err):
		return "Device state is unknown; read the settings again before retrying"
	case settings.IsChecksumError(err):
		return "The structure arrived with a bad checksum; 'settings show --no-verify' reads it anyway"
	case settings.IsReadError(err):
		return "The settings could not be read; nothing was written"
	default:
		return ""
	}
}

// settingsTips turns a settings troubleshooting hint into result box lines,
// led by what the failure left on the device.
func settingsTips(err error) []string {
	var tips []string
	if state := settingsState(err); state != "" {
		tips = append(tips, state)
	}
	for _, line := range strings.Split(settings.GetTroubleshootingHint(err), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "•"))
		if line == "" || line == "Troubleshooting:" {
			continue
		}
		tips = append(tips, line)
	}
	return tips
}

// layoutNetworks lists the CAN and CAN FD networks a layout describes,
// sorted by NetID.
func layoutNetworks(l *settings.OffsetLayout) (classic, fd []network.NetID) {
	parse := func(keys map[string]int) []network.NetID {
		var out []network.NetID
		for name := range keys {
			if id, err := network.ParseNetID(name); err == nil {
				out = append(out, id)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}
	return parse(l.CAN), parse(l.CANFD)
}

func formatRate(bps int64) string {
	switch {
	case bps >= 1000000 && bps%1000000 == 0:
		return fmt.Sprintf("%d Mbit/s", bps/1000000)
	case bps >= 1000 && bps%1000 == 0:
		return fmt.Sprintf("%d kbit/s", bps/1000)
	default:
		return fmt.Sprintf("%d bit/s", bps)
	}
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	ds, err := openDevice()
	if err != nil {
		return err
	}
	defer ds.Close()

	p := ui.NewPrinter(os.Stdout)
	s := ds.newSettings()
	if err := s.Refresh(settingsNoVerify); err != nil {
		p.PrintError("Failed to read settings", err, settingsTips(err))
		return err
	}

	details := map[string]string{
		"Profile":   ds.name,
		"Size":      strconv.Itoa(len(s.DeviceRAM())) + " bytes",
		"Read-only": strconv.FormatBool(s.Readonly()),
	}
	classic, fd := layoutNetworks(ds.profile.SettingsLayout())
	for _, net := range classic {
		cfg, err := s.CANSettingsFor(net)
		if err != nil {
			continue
		}
		value := cfg.Mode.String()
		if bps, err := s.GetBaudrateFor(net); err == nil {
			value = formatRate(bps) + ", " + value
		}
		details[net.String()] = value
	}
	for _, net := range fd {
		cfg, err := s.CANFDSettingsFor(net)
		if err != nil {
			continue
		}
		value := cfg.FDMode.String()
		if bps, err := s.GetFDBaudrateFor(net); err == nil {
			value = formatRate(bps) + ", " + value
		}
		details[net.String()+" FD"] = value
	}
	p.PrintSuccess("Device settings", details)

	if settingsRaw {
		p.PrintDump("Settings structure", s.DeviceRAM(), nil)
	}
	return nil
}

// confirmPersistent asks before a flash write unless --temporary or --yes.
func confirmPersistent(ds *deviceSession) (bool, error) {
	if settingsTemporary || settingsYes {
		return true, nil
	}
	sn, err := ds.com.GetSerialNumberSync(ds.timeout())
	if err != nil {
		return false, fmt.Errorf("failed to read serial number: %w", err)
	}
	return ui.SettingsSaveConfirmation(os.Stdin, os.Stdout, sn.DeviceSerial), nil
}

// applySettings applies pending, through a snapshot when --safe is set, and
// reports the result as step details.
func applySettings(s *settings.DeviceSettings, description string, details map[string]string) error {
	if !settingsSafe {
		requested := s.Pending()
		if err := s.Apply(settingsTemporary); err != nil {
			return err
		}
		details["Adjusted by device"] = settings.FormatMismatches(settings.Diff(requested, s.DeviceRAM()))
		return nil
	}

	result := settings.NewSnapshotManager(s).SafeApply(description, settingsTemporary)
	details["Adjusted by device"] = settings.FormatMismatches(result.Adjusted)
	if result.RollbackAttempted {
		details["Rolled back"] = strconv.FormatBool(result.RollbackSucceeded)
	}
	if !result.Success {
		return result.Error
	}
	return nil
}

func runSettingsBaud(cmd *cobra.Command, args []string) error {
	net, err := network.ParseNetID(args[0])
	if err != nil {
		return err
	}
	bps, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || bps <= 0 {
		return fmt.Errorf("invalid baud rate %q", args[1])
	}

	kind := "baud rate"
	if settingsFD {
		kind = "FD baud rate"
	}
	return changeSettings(settingsChange{
		title:       "Set " + kind,
		command:     "icsneo settings set-baud",
		description: fmt.Sprintf("%s %s %s", net, kind, formatRate(bps)),
		params: map[string]string{
			"Network": net.String(),
			"Rate":    formatRate(bps),
		},
		edit: func(s *settings.DeviceSettings) error {
			if settingsFD {
				return s.SetFDBaudrateFor(net, bps)
			}
			return s.SetBaudrateFor(net, bps)
		},
	})
}

var canModes = map[string]settings.CANMode{
	"normal":      settings.ModeNormal,
	"disabled":    settings.ModeDisable,
	"loopback":    settings.ModeLoopback,
	"listen-only": settings.ModeListenOnly,
	"listen-all":  settings.ModeListenAll,
}

var fdModes = map[string]settings.FDMode{
	"off":        settings.FDModeOff,
	"fd":         settings.FDModeEnabled,
	"fd+brs":     settings.FDModeBRSEnabled,
	"fd-iso":     settings.FDModeEnabledISO,
	"fd-iso+brs": settings.FDModeBRSEnabledISO,
}

func modeNames[M any](modes map[string]M) string {
	names := make([]string, 0, len(modes))
	for name := range modes {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func runSettingsMode(cmd *cobra.Command, args []string) error {
	net, err := network.ParseNetID(args[0])
	if err != nil {
		return err
	}
	name := strings.ToLower(args[1])

	change := settingsChange{
		command:     "icsneo settings set-mode",
		description: fmt.Sprintf("%s mode %s", net, name),
		params: map[string]string{
			"Network": net.String(),
			"Mode":    name,
		},
	}
	if settingsFD {
		mode, ok := fdModes[name]
		if !ok {
			return fmt.Errorf("unknown FD mode %q (want one of %s)", args[1], modeNames(fdModes))
		}
		change.title = "Set FD mode"
		change.edit = func(s *settings.DeviceSettings) error {
			cfg, err := s.PendingCANFDSettingsFor(net)
			if err != nil {
				return err
			}
			cfg.FDMode = mode
			return s.SetCANFDSettingsFor(net, cfg)
		}
	} else {
		mode, ok := canModes[name]
		if !ok {
			return fmt.Errorf("unknown CAN mode %q (want one of %s)", args[1], modeNames(canModes))
		}
		change.title = "Set CAN mode"
		change.edit = func(s *settings.DeviceSettings) error {
			cfg, err := s.PendingCANSettingsFor(net)
			if err != nil {
				return err
			}
			cfg.Mode = mode
			return s.SetCANSettingsFor(net, cfg)
		}
	}
	return changeSettings(change)
}

// settingsChange is one read-modify-apply edit of the settings structure.
type settingsChange struct {
	title       string
	command     string
	description string
	params      map[string]string
	edit        func(s *settings.DeviceSettings) error
}

func changeSettings(change settingsChange) error {
	ds, err := openDevice()
	if err != nil {
		return err
	}
	defer ds.Close()

	ok, err := confirmPersistent(ds)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	change.params["Temporary"] = strconv.FormatBool(settingsTemporary)
	change.params["Safe"] = strconv.FormatBool(settingsSafe)
	s := ds.newSettings()

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:           change.title,
		Command:         change.command,
		Params:          change.params,
		StepNames:       []string{"Read settings", "Update structure", "Apply to device"},
		Troubleshooting: settingsTips,
	})

	return runner.Run(func(onStep ui.StepCallback) (map[string]string, error) {
		details := map[string]string{"Change": change.description}

		onStep(1, "", ui.StepRunning, "")
		if err := s.Refresh(false); err != nil {
			onStep(1, "", ui.StepFailed, err.Error())
			return details, err
		}
		onStep(1, "", ui.StepComplete, strconv.Itoa(len(s.DeviceRAM()))+" bytes")

		onStep(2, "", ui.StepRunning, "")
		if err := change.edit(s); err != nil {
			onStep(2, "", ui.StepFailed, err.Error())
			return details, err
		}
		if !s.Dirty() {
			onStep(2, "", ui.StepSkipped, "already set")
			onStep(3, "", ui.StepSkipped, "")
			return details, nil
		}
		onStep(2, "", ui.StepComplete, "")

		onStep(3, "", ui.StepRunning, "")
		if err := applySettings(s, change.description, details); err != nil {
			onStep(3, "", ui.StepFailed, err.Error())
			return details, err
		}
		onStep(3, "", ui.StepComplete, "")
		return details, nil
	})
}

func runSettingsDefaults(cmd *cobra.Command, args []string) error {
	ds, err := openDevice()
	if err != nil {
		return err
	}
	defer ds.Close()

	ok, err := confirmPersistent(ds)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s := ds.newSettings()
	runner := ui.NewRunner(ui.RunnerConfig{
		Title:           "Restore default settings",
		Command:         "icsneo settings defaults",
		Params:          map[string]string{"Temporary": strconv.FormatBool(settingsTemporary)},
		StepNames:       []string{"Read settings", "Restore defaults"},
		Troubleshooting: settingsTips,
	})

	return runner.Run(func(onStep ui.StepCallback) (map[string]string, error) {
		details := map[string]string{}

		// A structure that cannot be read is a reason to restore defaults,
		// not a reason to stop.
		onStep(1, "", ui.StepRunning, "")
		var before []byte
		if err := s.Refresh(false); err != nil {
			onStep(1, "", ui.StepSkipped, err.Error())
		} else {
			before = s.DeviceRAM()
			onStep(1, "", ui.StepComplete, "")
		}

		onStep(2, "", ui.StepRunning, "")
		if err := s.ApplyDefaults(settingsTemporary); err != nil {
			onStep(2, "", ui.StepFailed, err.Error())
			return details, err
		}
		if before == nil {
			onStep(2, "", ui.StepComplete, "")
			return details, nil
		}
		changed := settings.Diff(before, s.DeviceRAM())
		onStep(2, "", ui.StepComplete, strconv.Itoa(len(changed))+" bytes changed")
		details["Changed"] = settings.FormatMismatches(changed)
		return details, nil
	})
}
