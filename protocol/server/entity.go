// SPDX-License-Identifier: GPL-2.0-or-later

package server

import (
	"github.com/pkg/errors"

	"goquake2/math/vec"
	"goquake2/protocol"
	"goquake2/qmsg"
)

// entity_state_t delta bits
const (
	// first byte
	UOrigin1   = 1 << 0
	UOrigin2   = 1 << 1
	UAngle2    = 1 << 2
	UAngle3    = 1 << 3
	UFrame8    = 1 << 4 // frame is a byte
	UEvent     = 1 << 5
	URemove    = 1 << 6 // REMOVE this entity, don't add it
	UMoreBits1 = 1 << 7 // read one additional byte

	// second byte
	UNumber16  = 1 << 8 // NUMBER8 is implicit if not set
	UOrigin3   = 1 << 9
	UAngle1    = 1 << 10
	UModel     = 1 << 11
	URenderFx8 = 1 << 12 // fullbright, etc
	UEffects8  = 1 << 14 // autorotate, trails, etc
	UMoreBits2 = 1 << 15 // read one additional byte

	// third byte
	USkin8      = 1 << 16
	UFrame16    = 1 << 17 // frame is a short
	URenderFx16 = 1 << 18 // 8 + 16 = 32
	UEffects16  = 1 << 19 // 8 + 16 = 32
	UModel2     = 1 << 20 // weapons, flags, etc
	UModel3     = 1 << 21
	UModel4     = 1 << 22
	UMoreBits3  = 1 << 23 // read one additional byte

	// fourth byte
	UOldOrigin = 1 << 24 // FRAMELERP, BEAM and new entities
	USkin16    = 1 << 25
	USound     = 1 << 26
	USolid     = 1 << 27
)

// EntityState is the part of an entity that is sent to clients.
type EntityState struct {
	Number    int
	Origin    vec.Vec3
	Angles    vec.Vec3
	OldOrigin vec.Vec3 // for lerping
	Model     [4]int   // weapons, CTF flags, etc
	Frame     int
	Skin      uint32
	Effects   uint32
	RenderFx  uint32
	Solid     int
	Sound     int // for looping sounds, to guarantee shutoff
	Event     int // impulse events, cleared after each frame
}

// Visible reports whether the entity carries anything a client could see or
// hear.
func (s *EntityState) Visible() bool {
	return s.Model[0] != 0 || s.Sound != 0 || s.Effects != 0
}

func sizeBits(v uint32, b8, b16 uint32) uint32 {
	switch {
	case v < 256:
		return b8
	case v < 0x8000:
		return b16
	default:
		return b8 | b16
	}
}

// DeltaBits returns the bits WriteDeltaEntity would use. Zero means the
// entity is unchanged.
func DeltaBits(from, to *EntityState, newEntity bool) uint32 {
	var bits uint32
	if to.Origin.X != from.Origin.X {
		bits |= UOrigin1
	}
	if to.Origin.Y != from.Origin.Y {
		bits |= UOrigin2
	}
	if to.Origin.Z != from.Origin.Z {
		bits |= UOrigin3
	}
	if to.Angles.X != from.Angles.X {
		bits |= UAngle1
	}
	if to.Angles.Y != from.Angles.Y {
		bits |= UAngle2
	}
	if to.Angles.Z != from.Angles.Z {
		bits |= UAngle3
	}
	if to.Skin != from.Skin {
		switch {
		case to.Skin < 256:
			bits |= USkin8
		case to.Skin < 0x10000:
			bits |= USkin16
		default:
			bits |= USkin8 | USkin16
		}
	}
	if to.Frame != from.Frame {
		if to.Frame < 256 {
			bits |= UFrame8
		} else {
			bits |= UFrame16
		}
	}
	if to.Effects != from.Effects {
		bits |= sizeBits(to.Effects, UEffects8, UEffects16)
	}
	if to.RenderFx != from.RenderFx {
		bits |= sizeBits(to.RenderFx, URenderFx8, URenderFx16)
	}
	if to.Solid != from.Solid {
		bits |= USolid
	}
	// event is not delta compressed, just 0 compressed
	if to.Event != 0 {
		bits |= UEvent
	}
	for i, b := range []uint32{UModel, UModel2, UModel3, UModel4} {
		if to.Model[i] != from.Model[i] {
			bits |= b
		}
	}
	if to.Sound != from.Sound {
		bits |= USound
	}
	if newEntity || to.RenderFx&protocol.RfBeam != 0 {
		bits |= UOldOrigin
	}
	return bits
}

func writeHeader(w *qmsg.Writer, bits uint32, number int) {
	if number >= 256 {
		bits |= UNumber16
	}
	switch {
	case bits&0xff000000 != 0:
		bits |= UMoreBits3 | UMoreBits2 | UMoreBits1
	case bits&0x00ff0000 != 0:
		bits |= UMoreBits2 | UMoreBits1
	case bits&0x0000ff00 != 0:
		bits |= UMoreBits1
	}
	w.WriteByte(int(bits & 255))
	if bits&UMoreBits1 != 0 {
		w.WriteByte(int(bits >> 8 & 255))
	}
	if bits&UMoreBits2 != 0 {
		w.WriteByte(int(bits >> 16 & 255))
	}
	if bits&UMoreBits3 != 0 {
		w.WriteByte(int(bits >> 24 & 255))
	}
	if bits&UNumber16 != 0 {
		w.WriteShort(number)
	} else {
		w.WriteByte(number)
	}
}

func writeSized(w *qmsg.Writer, bits, b8, b16, v uint32) {
	switch {
	case bits&(b8|b16) == b8|b16:
		w.WriteLong(int(v))
	case bits&b8 != 0:
		w.WriteByte(int(v))
	case bits&b16 != 0:
		w.WriteShort(int(v))
	}
}

// WriteDeltaEntity writes the difference between from and to. Nothing is
// written for an unchanged entity unless force is set. It panics on an
// entity number out of range.
func WriteDeltaEntity(w *qmsg.Writer, from, to *EntityState, force, newEntity bool) {
	if to.Number <= 0 || to.Number >= protocol.MaxEdicts {
		panic(errors.Errorf("WriteDeltaEntity: bad entity number %d", to.Number))
	}
	bits := DeltaBits(from, to, newEntity)
	if bits == 0 && !force {
		return // nothing to send
	}
	writeHeader(w, bits, to.Number)

	for i, b := range []uint32{UModel, UModel2, UModel3, UModel4} {
		if bits&b != 0 {
			w.WriteByte(to.Model[i])
		}
	}
	if bits&UFrame8 != 0 {
		w.WriteByte(to.Frame)
	}
	if bits&UFrame16 != 0 {
		w.WriteShort(to.Frame)
	}
	writeSized(w, bits, USkin8, USkin16, to.Skin)
	writeSized(w, bits, UEffects8, UEffects16, to.Effects)
	writeSized(w, bits, URenderFx8, URenderFx16, to.RenderFx)

	if bits&UOrigin1 != 0 {
		w.WriteCoord(to.Origin.X)
	}
	if bits&UOrigin2 != 0 {
		w.WriteCoord(to.Origin.Y)
	}
	if bits&UOrigin3 != 0 {
		w.WriteCoord(to.Origin.Z)
	}
	if bits&UAngle1 != 0 {
		w.WriteAngle(to.Angles.X)
	}
	if bits&UAngle2 != 0 {
		w.WriteAngle(to.Angles.Y)
	}
	if bits&UAngle3 != 0 {
		w.WriteAngle(to.Angles.Z)
	}
	if bits&UOldOrigin != 0 {
		w.WriteCoord(to.OldOrigin.X)
		w.WriteCoord(to.OldOrigin.Y)
		w.WriteCoord(to.OldOrigin.Z)
	}
	if bits&USound != 0 {
		w.WriteByte(to.Sound)
	}
	if bits&UEvent != 0 {
		w.WriteByte(to.Event)
	}
	if bits&USolid != 0 {
		w.WriteShort(to.Solid)
	}
}

// WriteRemove tells the client to drop entity number.
func WriteRemove(w *qmsg.Writer, number int) {
	writeHeader(w, URemove, number)
}

// ReadEntityBits reads the bit header and entity number of one entity.
func ReadEntityBits(r *qmsg.Reader) (bits uint32, number int, err error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	bits = uint32(b)
	for _, more := range []struct {
		flag  uint32
		shift uint
	}{{UMoreBits1, 8}, {UMoreBits2, 16}, {UMoreBits3, 24}} {
		if bits&more.flag == 0 {
			break
		}
		if b, err = r.ReadByte(); err != nil {
			return 0, 0, err
		}
		bits |= uint32(b) << more.shift
	}
	if bits&UNumber16 != 0 {
		n, err := r.ReadShort()
		return bits, int(n), err
	}
	n, err := r.ReadByte()
	return bits, int(n), err
}

func readSized(r *qmsg.Reader, bits, b8, b16 uint32, dst *uint32) error {
	switch {
	case bits&(b8|b16) == b8|b16:
		v, err := r.ReadLong()
		*dst = uint32(v)
		return err
	case bits&b8 != 0:
		v, err := r.ReadByte()
		*dst = uint32(v)
		return err
	case bits&b16 != 0:
		v, err := r.ReadShort()
		*dst = uint32(uint16(v))
		return err
	}
	return nil
}

// ReadDelta applies the fields announced in bits to a copy of from.
func ReadDelta(r *qmsg.Reader, from *EntityState, number int, bits uint32) (EntityState, error) {
	to := *from
	to.Number = number
	// events are not delta compressed
	to.Event = 0
	// the previous origin is where lerping starts
	to.OldOrigin = from.Origin

	var err error
	readByte := func(dst *int) {
		if err != nil {
			return
		}
		var b byte
		b, err = r.ReadByte()
		*dst = int(b)
	}
	readShort := func(dst *int) {
		if err != nil {
			return
		}
		var s int16
		s, err = r.ReadShort()
		*dst = int(s)
	}
	readCoord := func(dst *float32) {
		if err != nil {
			return
		}
		*dst, err = r.ReadCoord()
	}
	readAngle := func(dst *float32) {
		if err != nil {
			return
		}
		*dst, err = r.ReadAngle()
	}

	for i, b := range []uint32{UModel, UModel2, UModel3, UModel4} {
		if bits&b != 0 {
			readByte(&to.Model[i])
		}
	}
	if bits&UFrame8 != 0 {
		readByte(&to.Frame)
	}
	if bits&UFrame16 != 0 {
		readShort(&to.Frame)
	}
	if err == nil {
		err = readSized(r, bits, USkin8, USkin16, &to.Skin)
	}
	if err == nil {
		err = readSized(r, bits, UEffects8, UEffects16, &to.Effects)
	}
	if err == nil {
		err = readSized(r, bits, URenderFx8, URenderFx16, &to.RenderFx)
	}
	if bits&UOrigin1 != 0 {
		readCoord(&to.Origin.X)
	}
	if bits&UOrigin2 != 0 {
		readCoord(&to.Origin.Y)
	}
	if bits&UOrigin3 != 0 {
		readCoord(&to.Origin.Z)
	}
	if bits&UAngle1 != 0 {
		readAngle(&to.Angles.X)
	}
	if bits&UAngle2 != 0 {
		readAngle(&to.Angles.Y)
	}
	if bits&UAngle3 != 0 {
		readAngle(&to.Angles.Z)
	}
	if bits&UOldOrigin != 0 {
		readCoord(&to.OldOrigin.X)
		readCoord(&to.OldOrigin.Y)
		readCoord(&to.OldOrigin.Z)
	}
	if bits&USound != 0 {
		readByte(&to.Sound)
	}
	if bits&UEvent != 0 {
		readByte(&to.Event)
	}
	if bits&USolid != 0 {
		readShort(&to.Solid)
	}
	if err != nil {
		return to, errors.Wrapf(err, "entity %d delta", number)
	}
	return to, nil
}
