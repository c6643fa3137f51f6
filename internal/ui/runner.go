package ui

import (
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig holds configuration for a multi-step device operation
type RunnerConfig struct {
	Title     string            // e.g., "Apply Settings"
	Command   string            // e.g., "icsneo settings apply"
	Params    map[string]string // Parameters to display in header
	StepNames []string          // Names for each step
	Output    io.Writer         // Output writer (default: os.Stdout)

	// Troubleshooting returns tips for a failure. Optional.
	Troubleshooting func(err error) []string
}

// Runner orchestrates the header, progress and result output of one
// operation.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	output   io.Writer
	width    int
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	width := GetTerminalWidth()

	r := &Runner{
		config: config,
		header: NewHeader(config.Title, config.Command, config.Params).SetWidth(width),
		output: config.Output,
		width:  width,
	}
	if len(config.StepNames) > 0 {
		r.progress = NewProgress(config.StepNames).SetWidth(width)
	}
	return r
}

// Operation is the work a Runner wraps. It returns extra result details.
type Operation func(onStep StepCallback) (map[string]string, error)

// Run prints the header, executes op while printing step updates, then
// prints the result box. It returns op's error.
func (r *Runner) Run(op Operation) error {
	start := time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := op(r.onStep)
	duration := time.Since(start).Round(time.Millisecond).String()
	_, _ = fmt.Fprintln(r.output)

	if err != nil {
		var tips []string
		if r.config.Troubleshooting != nil {
			tips = r.config.Troubleshooting(err)
		}
		result := NewFailureResult(r.config.Title+" failed", err, tips).SetWidth(r.width)
		for k, v := range details {
			result.AddDetail(k, v)
		}
		result.AddDetail("Duration", duration)
		_, _ = fmt.Fprintln(r.output, result.Render())
		return err
	}

	result := NewSuccessResult(r.config.Title+" complete", details).SetWidth(r.width)
	result.AddDetail("Duration", duration)
	_, _ = fmt.Fprintln(r.output, result.Render())
	return nil
}

func (r *Runner) onStep(number int, name string, status StepStatus, message string) {
	if r.progress == nil || number < 1 || number > len(r.progress.Steps) {
		return
	}
	if name != "" {
		r.progress.Steps[number-1].Name = name
	}
	r.progress.UpdateStep(number, status, message)

	line := r.progress.renderStepLine(r.progress.Steps[number-1])
	if status == StepRunning {
		// Overwritten by the final status of the step.
		_, _ = fmt.Fprint(r.output, line+"\r")
		return
	}
	_, _ = fmt.Fprintln(r.output, line)
}

// Progress returns the step tracker, or nil when the runner has no steps
func (r *Runner) Progress() *Progress {
	return r.progress
}
