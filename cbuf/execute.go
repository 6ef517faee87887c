// SPDX-License-Identifier: GPL-2.0-or-later

package cbuf

import (
	"github.com/rs/zerolog/log"

	"goquake2/conlog"
)

// Efunc tries to handle a line. It reports whether the line was consumed.
type Efunc func(*CommandBuffer, Arguments) (bool, error)

type executors []Efunc

func (ex *executors) execute(c *CommandBuffer, a Arguments) error {
	for _, e := range *ex {
		if ok, err := e(c, a); err != nil {
			return err
		} else if ok {
			return nil
		}
	}

	name := a.Argv(0).String()
	log.Debug().Str("ctx", "cbuf").Str("cmd", name).Msg("unknown command")
	conlog.Printf("Unknown command \"%s\"\n", name)
	return nil
}
