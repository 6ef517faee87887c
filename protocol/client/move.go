// SPDX-License-Identifier: GPL-2.0-or-later

package client

import (
	"github.com/pkg/errors"

	"goquake2/crc"
	"goquake2/qmsg"
)

// Move is the content of one clc_move. The last three commands are sent
// every packet so the server can recover from up to two lost packets.
type Move struct {
	// LastFrame is the last server frame the client received, -1 if the
	// server should not delta compress.
	LastFrame int32
	Oldest    UserCmd
	Old       UserCmd
	New       UserCmd
}

// WriteMove appends a clc_move to w. The checksum binds the command bytes
// to sequence, the outgoing packet sequence.
func WriteMove(w *qmsg.Writer, m *Move, sequence int32) {
	w.WriteByte(Move)
	checksumIndex := w.Len()
	w.WriteByte(0)
	w.WriteLong(int(m.LastFrame))

	var null UserCmd
	WriteDeltaUsercmd(w, &null, &m.Oldest)
	WriteDeltaUsercmd(w, &m.Oldest, &m.Old)
	WriteDeltaUsercmd(w, &m.Old, &m.New)

	b := w.Bytes()
	b[checksumIndex] = crc.BlockSequenceByte(b[checksumIndex+1:], sequence)
}

// ReadMove parses a clc_move whose opcode was already consumed. The returned
// bool reports whether the checksum matched sequence.
func ReadMove(r *qmsg.Reader, sequence int32) (Move, bool, error) {
	var m Move
	checksumIndex := r.Pos()
	checksum, err := r.ReadByte()
	if err != nil {
		return m, false, errors.Wrap(err, "move checksum")
	}
	if m.LastFrame, err = r.ReadLong(); err != nil {
		return m, false, errors.Wrap(err, "move lastframe")
	}
	var null UserCmd
	if m.Oldest, err = ReadDeltaUsercmd(r, &null); err != nil {
		return m, false, err
	}
	if m.Old, err = ReadDeltaUsercmd(r, &m.Oldest); err != nil {
		return m, false, err
	}
	if m.New, err = ReadDeltaUsercmd(r, &m.Old); err != nil {
		return m, false, err
	}
	calculated := crc.BlockSequenceByte(r.Span(checksumIndex+1, r.Pos()), sequence)
	return m, calculated == checksum, nil
}
