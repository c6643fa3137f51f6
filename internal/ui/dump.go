package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const dumpBytesPerLine = 16

// Dump renders a byte buffer as a hex dump box. Bytes that differ from
// Reference are highlighted.
type Dump struct {
	Title     string
	Data      []byte
	Reference []byte // optional
	Width     int
}

// NewDump creates a hex dump box
func NewDump(title string, data []byte) *Dump {
	return &Dump{Title: title, Data: data, Width: GetTerminalWidth()}
}

// Compare sets the buffer changed bytes are measured against
func (d *Dump) Compare(reference []byte) *Dump {
	d.Reference = reference
	return d
}

// SetWidth sets the terminal width for responsive rendering
func (d *Dump) SetWidth(width int) *Dump {
	d.Width = width
	return d
}

// Changed returns the number of bytes that differ from the reference
func (d *Dump) Changed() int {
	if d.Reference == nil {
		return 0
	}
	n := 0
	for i, b := range d.Data {
		if i >= len(d.Reference) || d.Reference[i] != b {
			n++
		}
	}
	return n
}

func (d *Dump) changed(i int) bool {
	return d.Reference != nil && (i >= len(d.Reference) || d.Reference[i] != d.Data[i])
}

// Lines returns the dump body without the box
func (d *Dump) Lines() []string {
	lines := make([]string, 0, len(d.Data)/dumpBytesPerLine+1)
	for off := 0; off < len(d.Data); off += dumpBytesPerLine {
		end := off + dumpBytesPerLine
		if end > len(d.Data) {
			end = len(d.Data)
		}
		var b strings.Builder
		b.WriteString(DumpOffsetStyle.Render(fmt.Sprintf("%04X", off)))
		b.WriteString("  ")
		for i := off; i < end; i++ {
			cell := fmt.Sprintf("%02X", d.Data[i])
			if d.changed(i) {
				cell = DumpChangedStyle.Render(cell)
			}
			b.WriteString(cell)
			if i < end-1 {
				b.WriteString(" ")
			}
		}
		lines = append(lines, b.String())
	}
	return lines
}

// Render returns the styled dump box
func (d *Dump) Render() string {
	width := d.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	title := d.Title
	if n := d.Changed(); n > 0 {
		title = fmt.Sprintf("%s (%d changed)", title, n)
	}
	body := append([]string{TroubleshootingTitleStyle.Render(title)}, d.Lines()...)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width - 4).
		Padding(0, 1).
		Render(strings.Join(body, "\n"))
}

// String implements fmt.Stringer
func (d *Dump) String() string {
	return d.Render()
}
