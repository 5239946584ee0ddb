// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package terminal provides prompts and line clearing for interactive commands.
package terminal

import (
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/term"
)

// Width returns the width of f's terminal, or 80 when unknown.
func Width(f *os.File) int {
	if f != nil {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

// LinesFor returns how many terminal lines textLength characters occupy at width.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	n := int(math.Ceil(float64(textLength) / float64(width)))
	if n < 1 {
		n = 1
	}
	return n
}

// ClearPreviousLines erases text the user just submitted with Enter.
// textLength is prompt plus input; one extra line accounts for the Enter itself.
func ClearPreviousLines(w io.Writer, textLength, width int) {
	linesToClear := LinesFor(textLength, width) + 1
	for i := 0; i < linesToClear; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < linesToClear-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}
