// SPDX-License-Identifier: GPL-2.0-or-later

package qmsg

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
)

// Reader reads little endian message data. Every read past the end returns
// an error, callers treat that as a bad message.
type Reader struct {
	data []byte
	r    *bytes.Reader
}

func NewReader(data []byte) *Reader {
	return &Reader{data, bytes.NewReader(data)}
}

// Span returns the raw message bytes in [from, to).
func (q *Reader) Span(from, to int) []byte {
	return q.data[from:to]
}

func (q *Reader) read(data interface{}) error {
	return binary.Read(q.r, binary.LittleEndian, data)
}

func (q *Reader) ReadByte() (byte, error) {
	return q.r.ReadByte()
}

func (q *Reader) ReadChar() (int8, error) {
	var r int8
	err := q.read(&r)
	return r, err
}

func (q *Reader) ReadShort() (int16, error) {
	var r int16
	err := q.read(&r)
	return r, err
}

func (q *Reader) ReadLong() (int32, error) {
	var r int32
	err := q.read(&r)
	return r, err
}

func (q *Reader) ReadFloat() (float32, error) {
	var r float32
	err := q.read(&r)
	return r, err
}

// ReadCoord reads 13.3 fixed point coords, max range +-4096
func (q *Reader) ReadCoord() (float32, error) {
	i, err := q.ReadShort()
	return float32(i) * (1.0 / 8.0), err
}

func (q *Reader) ReadAngle() (float32, error) {
	i, err := q.ReadChar()
	return float32(i) * (360.0 / 256.0), err
}

func (q *Reader) ReadAngle16() (float32, error) {
	i, err := q.ReadShort()
	return float32(i) * (360.0 / 65536.0), err
}

// ReadString reads up to the next zero byte.
func (q *Reader) ReadString() (string, error) {
	sb := strings.Builder{}
	for {
		b, err := q.r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		sb.WriteByte(b)
	}
	return sb.String(), nil
}

// ReadStringLine reads up to a newline, a zero byte or the end of the data.
func (q *Reader) ReadStringLine() string {
	sb := strings.Builder{}
	for {
		b, err := q.r.ReadByte()
		if err != nil || b == 0 || b == '\n' {
			break
		}
		sb.WriteByte(b)
	}
	return sb.String()
}

func (q *Reader) ReadData(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(q.r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Len returns the number of bytes of the unread portion.
func (q *Reader) Len() int {
	return q.r.Len()
}

// Pos returns the read offset from the start of the data.
func (q *Reader) Pos() int {
	return int(q.r.Size()) - q.r.Len()
}
