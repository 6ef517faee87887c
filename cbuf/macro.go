// SPDX-License-Identifier: GPL-2.0-or-later

package cbuf

import (
	"strings"

	"goquake2/conlog"
)

const (
	MaxStringChars = 1024
	macroLoopLimit = 100
)

// MacroExpand replaces every $name outside of quotes with the value returned
// by lookup. Substituted text is scanned again, so the number of
// substitutions is bounded. It returns false when the line must be
// discarded.
func MacroExpand(text string, lookup func(name string) string) (string, bool) {
	if len(text) >= MaxStringChars {
		conlog.Printf("Line exceeded %d chars, discarded.\n", MaxStringChars)
		return "", false
	}
	if lookup == nil || !strings.Contains(text, "$") {
		if strings.Count(text, `"`)%2 != 0 {
			conlog.Printf("Line has unmatched quote, discarded.\n")
			return "", false
		}
		return text, true
	}

	count := 0
	inquote := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '"' {
			inquote = !inquote
		}
		if inquote || c != '$' {
			continue
		}
		end := i + 1
		for end < len(text) && text[end] > ' ' && text[end] != '"' && text[end] != '$' {
			end++
		}
		if end == i+1 {
			continue
		}
		value := lookup(text[i+1 : end])
		if len(text)-(end-i)+len(value) >= MaxStringChars {
			conlog.Printf("Expanded line exceeded %d chars, discarded.\n", MaxStringChars)
			return "", false
		}
		text = text[:i] + value + text[end:]
		// rescan the substituted value
		i--

		count++
		if count == macroLoopLimit {
			conlog.Printf("Macro expansion loop, discarded.\n")
			return "", false
		}
	}
	if inquote {
		conlog.Printf("Line has unmatched quote, discarded.\n")
		return "", false
	}
	return text, true
}
