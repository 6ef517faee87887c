// SPDX-License-Identifier: GPL-2.0-or-later

package host

import (
	"bufio"
	"os"
	"strings"

	"goquake2/conlog"
)

type consoleReader struct {
	textChan chan string
}

func newConsoleReader() *consoleReader {
	cr := &consoleReader{
		textChan: make(chan string, 1),
	}
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			cr.textChan <- scanner.Text()
		}
	}()
	return cr
}

// consoleCommands adds the lines typed at a dedicated server console
// exactly as if they had been typed at the in game console.
func (h *Host) consoleCommands() {
	if h.console == nil {
		return
	}
	for {
		select {
		case s := <-h.console.textChan:
			h.typed(s)
		default:
			return
		}
	}
}

func (h *Host) typed(s string) {
	complete := strings.HasSuffix(s, "\t")
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if complete && !strings.Contains(s, " ") {
		// a tab typed behind a single word completes it
		if c, ok := h.CompleteCommand(s); ok {
			conlog.Printf("]%s\n", c)
			s = c
		}
	}
	h.history.Add(s)
	h.Cbuf.AddText(s + "\n")
}
