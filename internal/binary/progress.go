package binary

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Progress wraps a transfer body of the given size (-1 when unknown) and
// returns the reader to consume plus a func to call once the transfer ends.
type Progress func(r io.Reader, size int64) (io.Reader, func())

// NoProgress reports nothing.
func NoProgress(r io.Reader, size int64) (io.Reader, func()) {
	return r, func() {}
}

// TerminalProgress picks a progress bar when f is a terminal and plain
// percentage lines otherwise.
func TerminalProgress(f *os.File) Progress {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return BarProgress(f)
	}
	return PercentProgress(f)
}

// BarProgress draws a pb progress bar on w. Transfers of unknown size fall
// back to PercentProgress.
func BarProgress(w io.Writer) Progress {
	return func(r io.Reader, size int64) (io.Reader, func()) {
		if size <= 0 {
			return PercentProgress(w)(r, size)
		}

		tmpl := color.New(color.FgHiBlack).Sprint(`   └ {{counters . }} {{bar . "[" "=" ">" " " "]" }} {{percent . }} {{speed . }}`)
		bar := pb.New64(size).
			SetTemplate(pb.ProgressBarTemplate(tmpl)).
			SetWriter(w).
			SetRefreshRate(time.Second / 60).
			SetMaxWidth(100).
			Start()

		return bar.NewProxyReader(r), func() { bar.Finish() }
	}
}

// PercentProgress writes "Downloading: N%" to w each time the completed
// percentage grows. With an unknown size only the final byte count is
// written.
func PercentProgress(w io.Writer) Progress {
	return func(r io.Reader, size int64) (io.Reader, func()) {
		pr := &percentReader{r: r, w: w, size: size, last: -1}
		return pr, pr.finish
	}
}

// percentReader counts bytes read and reports whole-percent increments.
type percentReader struct {
	r    io.Reader
	w    io.Writer
	size int64
	read int64
	last int
}

func (p *percentReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)

	if p.size > 0 {
		pct := int(p.read * 100 / p.size)
		if pct > 100 {
			pct = 100
		}
		if pct > p.last {
			p.last = pct
			fmt.Fprintf(p.w, "\rDownloading: %d%%", pct)
		}
	}
	return n, err
}

func (p *percentReader) finish() {
	if p.size > 0 {
		if p.last >= 0 {
			fmt.Fprintln(p.w)
		}
		return
	}
	fmt.Fprintf(p.w, "Downloaded %d bytes\n", p.read)
}
