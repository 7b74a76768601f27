package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// Printer writes operator notices. Every line it emits carries the instance
// tag, so a watcher whose output ends up in the watched file can recognise
// and skip its own lines.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	tag    string
	color  bool
}

// NewPrinter creates a Printer stamping tag onto every line. Colour is used
// only when out is a terminal and NO_COLOR is unset.
func NewPrinter(out, errOut io.Writer, tag string) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{
		out:    out,
		errOut: errOut,
		tag:    tag,
		color:  os.Getenv("NO_COLOR") == "" && writerIsTTY(out),
	}
}

// Info prints a tagged notice.
func (p *Printer) Info(format string, args ...any) {
	p.write(p.out, "", format, args...)
}

// Warn prints a tagged notice prefixed with [warn].
func (p *Printer) Warn(format string, args ...any) {
	p.write(p.out, p.paint(colorYellow, "[warn]")+" ", format, args...)
}

// Stdout prints captured command stdout, one tagged line per output line.
func (p *Printer) Stdout(text string) {
	p.block(p.out, "Command stdout: ", text)
}

// Stderr prints captured command stderr to the error stream.
func (p *Printer) Stderr(text string) {
	p.block(p.errOut, p.paint(colorRed, "Command stderr: "), text)
}

func (p *Printer) write(w io.Writer, prefix, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(w, "%s%s %s\n", prefix, p.tag, fmt.Sprintf(format, args...))
}

func (p *Printer) block(w io.Writer, label, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(w, "%s %s%s\n", p.tag, label, line)
	}
}

func (p *Printer) paint(color, text string) string {
	if !p.color {
		return text
	}
	return color + text + colorReset
}
