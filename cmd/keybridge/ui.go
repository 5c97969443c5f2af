package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Formatter colours a kind of output, falling back to plain text when
// NO_COLOR is set.
type Formatter struct {
	color *color.Color
}

func (f Formatter) Sprint(a ...any) string {
	text := fmt.Sprint(a...)
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return text
	}
	return f.color.Sprint(text)
}

var (
	Success   = Formatter{color.New(color.FgGreen)}
	Error     = Formatter{color.New(color.FgRed)}
	Info      = Formatter{color.New(color.FgCyan)}
	Highlight = Formatter{color.New(color.FgYellow)}
)

// status prints a labelled result line to stdout.
func status(label, value string) {
	fmt.Printf("%s %s %s\n", Success.Sprint("✓"), label, Highlight.Sprint(value))
}
