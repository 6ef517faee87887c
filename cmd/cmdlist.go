// SPDX-License-Identifier: GPL-2.0-or-later

package cmd

import (
	"strings"

	"goquake2/cbuf"
	"goquake2/conlog"
)

// Register adds the commands that inspect the command table itself.
func (c *Commands) Register() error {
	return c.Add("cmdlist", c.printCmdList)
}

func (c *Commands) printCmdList(a cbuf.Arguments) error {
	if a.Argc() > 1 {
		printPartialCmdList(c.names, a.Argv(1).String())
		return nil
	}
	printFullCmdList(c.names)
	return nil
}

func printFullCmdList(names []string) {
	for _, c := range names {
		conlog.SafePrintf("  %s\n", c)
	}
	conlog.SafePrintf("%v commands\n", len(names))
}

func printPartialCmdList(names []string, part string) {
	count := 0
	for _, c := range names {
		if strings.HasPrefix(c, part) {
			conlog.SafePrintf("  %s\n", c)
			count++
		}
	}
	conlog.SafePrintf("%v commands beginning with \"%v\"\n", count, part)
}
