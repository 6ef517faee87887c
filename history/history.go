// SPDX-License-Identifier: GPL-2.0-or-later

// Package history keeps the lines typed at the dedicated server console.
package history

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// add a max size to prevent the file from growing indefinitely
	maxHistory = 32
)

type History struct {
	txt []string
	idx int
}

func (h *History) String() string {
	if len(h.txt) == h.idx {
		return ""
	}
	return h.txt[h.idx]
}

func (h *History) Up() {
	if h.idx > 0 {
		h.idx--
	}
}

func (h *History) Down() {
	if h.idx < len(h.txt) {
		h.idx++
	}
}

func (h *History) Add(s string) {
	h.txt = append(h.txt, s)
	h.idx = len(h.txt)
}

// Lines returns the lines that would be saved, oldest first.
func (h *History) Lines() []string {
	return h.txt[len(h.txt)-min(len(h.txt), maxHistory):]
}

const (
	historyFilename = "history.pb"
)

// Load reads the history saved in dir. A missing file is no error.
func (h *History) Load(dir string) error {
	in, err := os.ReadFile(filepath.Join(dir, historyFilename))
	if err != nil {
		// assume no history file
		return nil
	}
	data := &structpb.ListValue{}
	if err := proto.Unmarshal(in, data); err != nil {
		return errors.Wrap(err, "failed to decode history")
	}
	h.txt = h.txt[:0]
	for _, v := range data.GetValues() {
		h.txt = append(h.txt, v.GetStringValue())
	}
	h.idx = len(h.txt)
	return nil
}

// Save writes the newest lines to dir.
func (h *History) Save(dir string) error {
	lines := h.Lines()
	data := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(lines))}
	for _, l := range lines {
		data.Values = append(data.Values, structpb.NewStringValue(l))
	}
	out, err := proto.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "failed to encode history")
	}
	if err := os.WriteFile(filepath.Join(dir, historyFilename), out, 0660); err != nil {
		return errors.Wrap(err, "failed to write history file")
	}
	return nil
}
