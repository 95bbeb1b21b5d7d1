package command

import (
	"fmt"
	"github.com/jwalton/gchalk"
	"github.com/tigerwill90/derive/graph"
	"io"
	"strings"
	"time"
)

const (
	red    = "#c62828"
	yellow = "#fdd835"
	green  = "#43a047"
	grey   = "#9e9e9e"
)

type ui struct {
	stdout io.Writer
	stderr io.Writer
}

func newUi(stdout, stderr io.Writer) *ui {
	return &ui{
		stdout: stdout,
		stderr: stderr,
	}
}

func (ui *ui) Errorf(format string, a ...interface{}) {
	if _, err := fmt.Fprint(ui.stderr, gchalk.WithHex(red).Sprintf(format, a...)); err != nil {
		panic(err)
	}
}

func (ui *ui) Infof(format string, a ...interface{}) {
	if _, err := fmt.Fprintf(ui.stdout, format, a...); err != nil {
		panic(err)
	}
}

func (ui *ui) Warnf(format string, a ...interface{}) {
	if _, err := fmt.Fprint(ui.stdout, gchalk.WithHex(yellow).Sprintf(format, a...)); err != nil {
		panic(err)
	}
}

func (ui *ui) Successf(format string, a ...interface{}) {
	if _, err := fmt.Fprint(ui.stdout, gchalk.WithHex(green).Sprintf(format, a...)); err != nil {
		panic(err)
	}
}

// Field prints one labelled value followed by its validation state.
func (ui *ui) Field(label, value string, v graph.Validation) {
	if value == "" {
		value = gchalk.WithHex(grey).Paint("(empty)")
	}
	var state string
	switch v.Status {
	case graph.Valid:
		state = gchalk.WithHex(green).Paint(" ✓")
	case graph.Invalid:
		state = gchalk.WithHex(red).Sprintf(" ✗ %s", v.Err)
	}
	ui.Infof("%-14s: %s%s\n", label, value, state)
}

func mask(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("*", 8)
}

func formatDuration(d time.Duration) string {
	scale := 100 * time.Second
	// look for the max scale that is smaller than d
	for scale > d {
		scale = scale / 10
	}
	return fmt.Sprintf("%6s", d.Round(scale/100).String())
}
