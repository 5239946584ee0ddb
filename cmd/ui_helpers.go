// Copyright (c) 2026 SmartEco
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"golang.org/x/term"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// startInlineSpinner shows frames followed by text on one line until the
// returned stop function is called. Nothing is drawn when w is not a terminal.
func startInlineSpinner(w io.Writer, text string) func() {
	if !isTerminal(w) {
		return func() {}
	}

	cursor.Hide()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		for {
			line := fmt.Sprintf("%s %s", spinnerFrames[i%len(spinnerFrames)], text)
			select {
			case <-stop:
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s", line)
				i++
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
			cursor.Show()
		})
	}
}

// withSpinner runs fn while a spinner with text is shown.
func withSpinner[T any](w io.Writer, text string, fn func() (T, error)) (T, error) {
	stop := startInlineSpinner(w, text)
	defer stop()
	return fn()
}
