// SPDX-License-Identifier: GPL-2.0-or-later

package qmsg

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// OverflowError is raised when a buffer without AllowOverflow runs out of
// space. It aborts the current frame.
type OverflowError struct {
	Size, Need int
}

func (e OverflowError) Error() string {
	return fmt.Sprintf("SZ_GetSpace: overflow without allowoverflow set (%d + %d)", e.Size, e.Need)
}

// Writer is a fixed capacity message buffer. A writer with AllowOverflow
// set is cleared on overflow and remembers that it overflowed, otherwise
// overflow panics with OverflowError.
type Writer struct {
	buf           bytes.Buffer
	maxSize       int
	AllowOverflow bool
	overflowed    bool
}

func NewWriter(maxSize int) *Writer {
	w := &Writer{maxSize: maxSize}
	w.buf.Grow(maxSize)
	return w
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) Len() int {
	return w.buf.Len()
}

func (w *Writer) Cap() int {
	return w.maxSize
}

// Remaining returns how many bytes can still be written.
func (w *Writer) Remaining() int {
	return w.maxSize - w.buf.Len()
}

func (w *Writer) Overflowed() bool {
	return w.overflowed
}

func (w *Writer) Clear() {
	w.buf.Reset()
	w.overflowed = false
}

func (w *Writer) reserve(n int) {
	if w.buf.Len()+n <= w.maxSize {
		return
	}
	if !w.AllowOverflow || n > w.maxSize {
		panic(OverflowError{w.buf.Len(), n})
	}
	w.buf.Reset()
	w.overflowed = true
}

func (w *Writer) write(n int, data interface{}) {
	w.reserve(n)
	binary.Write(&w.buf, binary.LittleEndian, data)
}

func (w *Writer) WriteChar(c int) {
	w.write(1, int8(c))
}

// WriteByte writes the low 8 bits of c.
func (w *Writer) WriteByte(c int) {
	w.write(1, uint8(c))
}

func (w *Writer) WriteShort(c int) {
	w.write(2, int16(c))
}

func (w *Writer) WriteLong(c int) {
	w.write(4, int32(c))
}

func (w *Writer) WriteFloat(f float32) {
	w.write(4, f)
}

func (w *Writer) WriteString(s string) {
	w.reserve(len(s) + 1)
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// Print appends s to a string already in the buffer by overwriting its
// terminating zero.
func (w *Writer) Print(s string) {
	b := w.buf.Bytes()
	if len(b) > 0 && b[len(b)-1] == 0 {
		w.buf.Truncate(len(b) - 1)
	}
	w.WriteString(s)
}

func (w *Writer) Write(p []byte) (int, error) {
	w.reserve(len(p))
	return w.buf.Write(p)
}

// WriteCoord writes 13.3 fixed point coords.
func (w *Writer) WriteCoord(f float32) {
	w.WriteShort(int(f * 8))
}

// WriteAngle writes an angle quantized to 8 bits.
func (w *Writer) WriteAngle(f float32) {
	w.WriteByte(int(f*256/360) & 255)
}

// WriteAngle16 writes an angle quantized to 16 bits.
func (w *Writer) WriteAngle16(f float32) {
	w.WriteShort(int(f*65536/360) & 65535)
}
