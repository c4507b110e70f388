// Package ui prints the step-by-step progress of a provisioning run.
package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Console writes user-facing status lines.
type Console struct {
	out    io.Writer
	step   *color.Color
	muted  *color.Color
	ok     *color.Color
	warn   *color.Color
	fail   *color.Color
	strong *color.Color
}

// NewConsole creates a Console on f, with colour only when f is a terminal
// and NO_COLOR is unset.
func NewConsole(f *os.File) *Console {
	colored := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	if os.Getenv("NO_COLOR") != "" {
		colored = false
	}
	return New(f, colored)
}

// New creates a Console on w.
func New(w io.Writer, colored bool) *Console {
	c := &Console{
		out:    w,
		step:   color.New(color.FgBlue),
		muted:  color.New(color.FgHiBlack),
		ok:     color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		fail:   color.New(color.FgRed),
		strong: color.New(color.Bold),
	}

	for _, col := range []*color.Color{c.step, c.muted, c.ok, c.warn, c.fail, c.strong} {
		if colored {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}

	return c
}

// Writer returns the underlying writer, for progress output.
func (c *Console) Writer() io.Writer {
	return c.out
}

// Title prints a bold heading followed by a blank line.
func (c *Console) Title(format string, args ...interface{}) {
	fmt.Fprintf(c.out, "%s\n\n", c.strong.Sprintf(format, args...))
}

// Step announces a unit of work.
func (c *Console) Step(format string, args ...interface{}) {
	fmt.Fprintln(c.out, c.step.Sprint(" •"), c.muted.Sprintf(format, args...))
}

// Detail prints a line nested under the current step.
func (c *Console) Detail(format string, args ...interface{}) {
	fmt.Fprintln(c.out, c.muted.Sprint("   └"), c.muted.Sprintf(format, args...))
}

// Success reports a completed step.
func (c *Console) Success(format string, args ...interface{}) {
	fmt.Fprintln(c.out, c.ok.Sprintf("   ✔ "+format, args...))
}

// Warn reports a recoverable problem.
func (c *Console) Warn(format string, args ...interface{}) {
	fmt.Fprintln(c.out, c.warn.Sprintf(" ! "+format, args...))
}

// Fail reports an unrecoverable problem.
func (c *Console) Fail(format string, args ...interface{}) {
	fmt.Fprintln(c.out, c.fail.Sprintf(" ✘ "+format, args...))
}

// Done prints the closing line of a run.
func (c *Console) Done(elapsed time.Duration, err error) {
	elapsed = elapsed.Round(time.Millisecond)
	if err != nil {
		fmt.Fprintf(c.out, "%s\n\n", c.fail.Sprintf(" ✘ finished with errors after %s", elapsed))
		return
	}
	fmt.Fprintf(c.out, "%s\n\n", c.ok.Sprintf(" ✔ all good after %s", elapsed))
}

// Println prints an undecorated line.
func (c *Console) Println(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format+"\n", args...)
}
