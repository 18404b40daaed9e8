package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	userColor    = color.New(color.FgGreen, color.Bold)
	modelColor   = color.New(color.FgCyan, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.Faint)
)

// printer writes REPL output. Colors follow color.NoColor, which is set when
// stdout is not a terminal or NO_COLOR is present.
type printer struct {
	out io.Writer
}

func (p printer) prompt() {
	userColor.Fprint(p.out, "you> ")
}

func (p printer) modelLabel() {
	modelColor.Fprint(p.out, "model> ")
}

func (p printer) text(s string) {
	fmt.Fprint(p.out, s)
}

func (p printer) line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p printer) info(format string, args ...any) {
	infoColor.Fprintf(p.out, format+"\n", args...)
}

func (p printer) warn(format string, args ...any) {
	warningColor.Fprintf(p.out, "! "+format+"\n", args...)
}

func (p printer) error(format string, args ...any) {
	errorColor.Fprintf(p.out, "✗ "+format+"\n", args...)
}
