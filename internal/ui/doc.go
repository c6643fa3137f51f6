// Package ui provides terminal UI components for the icsneo CLI.
//
// This package uses Bubble Tea, Bubbles and Lipgloss. Most components follow
// a "render once" pattern: commands print a header, report step progress and
// finish with a result box. The bus monitor is the one interactive program.
//
// # Components
//
//   - Header: Command banner showing operation name and parameters
//   - Progress: Step list with a progress bar for multi-step operations
//   - Result: Success, failure and warning boxes
//   - Dump: Hex dump box for settings structures, with changed bytes marked
//   - Monitor: Live scrolling table of bus traffic
//
// Multi-step device operations (settings apply, defaults) go through a
// Runner, which manages the header, progress and result flow:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Apply Settings",
//	    Command:   "icsneo settings apply",
//	    Params:    map[string]string{"Device": "SIM001"},
//	    StepNames: []string{"Write", "Verify", "Save"},
//	})
//
//	err := runner.Run(func(onStep ui.StepCallback) error {
//	    onStep(1, "", ui.StepRunning, "")
//	    ...
//	})
//
// # Logging Integration
//
// Logging is controlled via the ICSNEO_LOG_LEVEL environment variable. When
// unset, zap is silent so the curated output stays clean.
package ui
