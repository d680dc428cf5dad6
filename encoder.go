package dewberry

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Buffer growth tuning. Small payloads grow geometrically so repeated
// small writes amortize; once a payload is past growThreshold the policy
// switches to additive growth of a quarter of each new increment, so a
// multi-megabyte payload never doubles its footprint for one more write.
const (
	initialCap    = 256
	growThreshold = 4096
	growMargin    = 64
)

// Encoder builds one encoded payload. Write methods choose the minimal
// tag/width for each value, append to a growable owned buffer, and return
// the encoder itself so calls chain:
//
//	data, err := dewberry.NewEncoder().
//		WriteMapHeader(2).
//		WriteString("op").WriteString("transfer").
//		WriteString("amount").WriteUint64(1000).
//		Finalize()
//
// The first failed write sticks: every later write is a no-op and
// Finalize reports that first error. Structural headers only reserve a
// count; emitting exactly that many values afterwards is the caller's
// contract and is deliberately not checked.
//
// An Encoder is single-goroutine; independent encoders share nothing.
type Encoder struct {
	buf []byte // backing store, len(buf) is the current capacity
	pos int    // logical length, pos <= len(buf)
	err error
}

// NewEncoder returns an empty encoder ready to write.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, initialCap)}
}

func (e *Encoder) checkWrite() bool { return e.err == nil }

func (e *Encoder) setError(err error) {
	if e.err == nil {
		e.err = err
	}
}

// grow ensures room for n more bytes. A fresh buffer is always allocated
// and the live prefix copied over; the old buffer is never aliased.
func (e *Encoder) grow(n int) {
	need := e.pos + n
	if need <= len(e.buf) {
		return
	}
	var next int
	if need < growThreshold {
		next = len(e.buf)
		for next < need {
			step := next / 2
			if step < growMargin {
				step = growMargin
			}
			next += step
		}
	} else {
		pad := (need - len(e.buf)) / 4
		if pad < growMargin {
			pad = growMargin
		}
		next = need + pad
	}
	nb := make([]byte, next)
	copy(nb, e.buf[:e.pos])
	e.buf = nb
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return e.pos }

// Err returns the first write error, if any.
func (e *Encoder) Err() error { return e.err }

// Finalize returns a fresh buffer holding exactly the bytes written, or
// the first write error. The encoder stays usable; no capacity slack ever
// reaches the caller.
func (e *Encoder) Finalize() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([]byte, e.pos)
	copy(out, e.buf[:e.pos])
	return out, nil
}

// ---------------------------------------------------------------------------
// Scalar writes
// ---------------------------------------------------------------------------

// WriteNil appends the nil value.
func (e *Encoder) WriteNil() *Encoder {
	if !e.checkWrite() {
		return e
	}
	e.grow(1)
	e.buf[e.pos] = tagNil
	e.pos++
	return e
}

// WriteBool appends a boolean.
func (e *Encoder) WriteBool(v bool) *Encoder {
	if !e.checkWrite() {
		return e
	}
	e.grow(1)
	if v {
		e.buf[e.pos] = tagTrue
	} else {
		e.buf[e.pos] = tagFalse
	}
	e.pos++
	return e
}

// WriteUint64 appends an unsigned integer in its minimal form: fixint for
// 0-127, then the smallest of uint8/uint16/uint32/uint64 that fits.
func (e *Encoder) WriteUint64(v uint64) *Encoder {
	if !e.checkWrite() {
		return e
	}
	switch {
	case v <= posFixintMax:
		e.grow(1)
		e.buf[e.pos] = byte(v)
		e.pos++
	case v <= 0xFF:
		e.grow(2)
		e.buf[e.pos] = tagUint8
		e.buf[e.pos+1] = byte(v)
		e.pos += 2
	case v <= 0xFFFF:
		e.grow(3)
		e.buf[e.pos] = tagUint16
		binary.BigEndian.PutUint16(e.buf[e.pos+1:], uint16(v))
		e.pos += 3
	case v <= 0xFFFFFFFF:
		e.grow(5)
		e.buf[e.pos] = tagUint32
		binary.BigEndian.PutUint32(e.buf[e.pos+1:], uint32(v))
		e.pos += 5
	default:
		e.grow(9)
		e.buf[e.pos] = tagUint64
		binary.BigEndian.PutUint64(e.buf[e.pos+1:], v)
		e.pos += 9
	}
	return e
}

// WriteUint256 appends an unsigned integer of up to 256 bits in its
// minimal form, dropping to the 64-bit path when the magnitude allows.
// nil means zero.
func (e *Encoder) WriteUint256(v *uint256.Int) *Encoder {
	if !e.checkWrite() {
		return e
	}
	if v == nil {
		return e.WriteUint64(0)
	}
	if v.IsUint64() {
		return e.WriteUint64(v.Uint64())
	}
	full := v.Bytes32()
	if v.BitLen() <= 128 {
		e.grow(17)
		e.buf[e.pos] = tagUint128
		copy(e.buf[e.pos+1:], full[16:])
		e.pos += 17
		return e
	}
	e.grow(33)
	e.buf[e.pos] = tagUint256
	copy(e.buf[e.pos+1:], full[:])
	e.pos += 33
	return e
}

// WriteInt64 appends a signed integer in its minimal form. Non-negative
// values take the unsigned forms; -32..-1 fold into the negative fixint
// tag; anything lower picks the smallest of int8/int16/int32/int64.
func (e *Encoder) WriteInt64(v int64) *Encoder {
	if !e.checkWrite() {
		return e
	}
	if v >= 0 {
		return e.WriteUint64(uint64(v))
	}
	switch {
	case v >= -32:
		e.grow(1)
		e.buf[e.pos] = byte(v)
		e.pos++
	case v >= -128:
		e.grow(2)
		e.buf[e.pos] = tagInt8
		e.buf[e.pos+1] = byte(v)
		e.pos += 2
	case v >= -32768:
		e.grow(3)
		e.buf[e.pos] = tagInt16
		binary.BigEndian.PutUint16(e.buf[e.pos+1:], uint16(v))
		e.pos += 3
	case v >= -1<<31:
		e.grow(5)
		e.buf[e.pos] = tagInt32
		binary.BigEndian.PutUint32(e.buf[e.pos+1:], uint32(v))
		e.pos += 5
	default:
		e.grow(9)
		e.buf[e.pos] = tagInt64
		binary.BigEndian.PutUint64(e.buf[e.pos+1:], uint64(v))
		e.pos += 9
	}
	return e
}

// WriteBigInt appends a signed integer of any magnitude the wire can
// carry. Values representable in 64 bits reuse the narrow paths; wider
// negatives encode as 16- or 32-byte two's complement. Magnitudes beyond
// 256 bits fail with ErrOverflow. nil means zero.
func (e *Encoder) WriteBigInt(v *big.Int) *Encoder {
	if !e.checkWrite() {
		return e
	}
	if v == nil {
		return e.WriteUint64(0)
	}
	if v.Sign() >= 0 {
		if v.IsUint64() {
			return e.WriteUint64(v.Uint64())
		}
		w, overflow := uint256.FromBig(v)
		if overflow {
			e.setError(fmt.Errorf("%w: integer needs %d bits, wire maximum is 256", ErrOverflow, v.BitLen()))
			return e
		}
		return e.WriteUint256(w)
	}
	if v.IsInt64() {
		return e.WriteInt64(v.Int64())
	}
	switch {
	case v.Cmp(minInt128) >= 0:
		e.grow(17)
		e.buf[e.pos] = tagInt128
		writeTwos(e.buf[e.pos+1:e.pos+17], v, twoPow128)
		e.pos += 17
	case v.Cmp(minInt256) >= 0:
		e.grow(33)
		e.buf[e.pos] = tagInt256
		writeTwos(e.buf[e.pos+1:e.pos+33], v, twoPow256)
		e.pos += 33
	default:
		e.setError(fmt.Errorf("%w: integer below the int256 range", ErrOverflow))
	}
	return e
}

// writeTwos fills dst with the two's-complement form of the negative v.
func writeTwos(dst []byte, v, modulus *big.Int) {
	t := new(big.Int).Add(modulus, v)
	t.FillBytes(dst)
}

var (
	twoPow128 = new(big.Int).Lsh(big.NewInt(1), 128)
	twoPow256 = new(big.Int).Lsh(big.NewInt(1), 256)
	minInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	minInt256 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))
)

// WriteString appends a UTF-8 string: fixstr up to 31 bytes, then str8,
// then str16. Longer than MaxLen fails with ErrOverflow.
func (e *Encoder) WriteString(s string) *Encoder {
	if !e.checkWrite() {
		return e
	}
	n := len(s)
	switch {
	case n <= fixstrMaxLen:
		e.grow(1 + n)
		e.buf[e.pos] = fixstrBase | byte(n)
		copy(e.buf[e.pos+1:], s)
		e.pos += 1 + n
	case n <= 0xFF:
		e.grow(2 + n)
		e.buf[e.pos] = tagStr8
		e.buf[e.pos+1] = byte(n)
		copy(e.buf[e.pos+2:], s)
		e.pos += 2 + n
	case n <= MaxLen:
		e.grow(3 + n)
		e.buf[e.pos] = tagStr16
		binary.BigEndian.PutUint16(e.buf[e.pos+1:], uint16(n))
		copy(e.buf[e.pos+3:], s)
		e.pos += 3 + n
	default:
		e.setError(fmt.Errorf("%w: string length %d exceeds %d", ErrOverflow, n, MaxLen))
	}
	return e
}

// WriteBytes appends a raw byte blob: bin8 up to 255 bytes, then bin16.
// Longer than MaxLen fails with ErrOverflow. A nil slice encodes as an
// empty blob; use WriteNil for an absent value.
func (e *Encoder) WriteBytes(p []byte) *Encoder {
	if !e.checkWrite() {
		return e
	}
	n := len(p)
	switch {
	case n <= 0xFF:
		e.grow(2 + n)
		e.buf[e.pos] = tagBin8
		e.buf[e.pos+1] = byte(n)
		copy(e.buf[e.pos+2:], p)
		e.pos += 2 + n
	case n <= MaxLen:
		e.grow(3 + n)
		e.buf[e.pos] = tagBin16
		binary.BigEndian.PutUint16(e.buf[e.pos+1:], uint16(n))
		copy(e.buf[e.pos+3:], p)
		e.pos += 3 + n
	default:
		e.setError(fmt.Errorf("%w: blob length %d exceeds %d", ErrOverflow, n, MaxLen))
	}
	return e
}

// WriteAddress appends an address with its dedicated tag. Addresses never
// fall back to a generic bin encoding, whatever their byte pattern.
func (e *Encoder) WriteAddress(a Address) *Encoder {
	if !e.checkWrite() {
		return e
	}
	e.grow(1 + AddressLen)
	e.buf[e.pos] = tagAddress
	copy(e.buf[e.pos+1:], a[:])
	e.pos += 1 + AddressLen
	return e
}

// WriteHash appends a 32-byte fixed block with its dedicated tag.
func (e *Encoder) WriteHash(h Hash) *Encoder {
	if !e.checkWrite() {
		return e
	}
	e.grow(1 + HashLen)
	e.buf[e.pos] = tagBlock32
	copy(e.buf[e.pos+1:], h[:])
	e.pos += 1 + HashLen
	return e
}

// ---------------------------------------------------------------------------
// Structural writes
// ---------------------------------------------------------------------------

// WriteArrayHeader reserves an array of count elements. The caller must
// then write exactly count values.
func (e *Encoder) WriteArrayHeader(count int) *Encoder {
	return e.writeHeader(count, fixarrayBase, tagArray8, tagArray16, "array")
}

// WriteMapHeader reserves a map of count key/value pairs. The caller must
// then write exactly count pairs, string key first each time.
func (e *Encoder) WriteMapHeader(count int) *Encoder {
	return e.writeHeader(count, fixmapBase, tagMap8, tagMap16, "map")
}

func (e *Encoder) writeHeader(count int, fixBase, tag8, tag16 byte, what string) *Encoder {
	if !e.checkWrite() {
		return e
	}
	switch {
	case count < 0:
		e.setError(fmt.Errorf("%w: negative %s count %d", ErrUnsupportedValue, what, count))
	case count <= fixCountMax:
		e.grow(1)
		e.buf[e.pos] = fixBase | byte(count)
		e.pos++
	case count <= 0xFF:
		e.grow(2)
		e.buf[e.pos] = tag8
		e.buf[e.pos+1] = byte(count)
		e.pos += 2
	case count <= MaxLen:
		e.grow(3)
		e.buf[e.pos] = tag16
		binary.BigEndian.PutUint16(e.buf[e.pos+1:], uint16(count))
		e.pos += 3
	default:
		e.setError(fmt.Errorf("%w: %s count %d exceeds %d", ErrOverflow, what, count, MaxLen))
	}
	return e
}

// WriteValue appends a whole Value tree, recursing through arrays and
// maps. Invalid values fail with ErrUnsupportedValue; integers beyond the
// 256-bit range fail with ErrOverflow.
func (e *Encoder) WriteValue(v Value) *Encoder {
	if !e.checkWrite() {
		return e
	}
	switch v.kind {
	case KindNil:
		return e.WriteNil()
	case KindBool:
		return e.WriteBool(v.b)
	case KindUint:
		switch {
		case v.big != nil:
			e.setError(fmt.Errorf("%w: integer needs %d bits, wire maximum is 256", ErrOverflow, v.big.BitLen()))
		case v.wide != nil:
			return e.WriteUint256(v.wide)
		default:
			return e.WriteUint64(v.u)
		}
	case KindInt:
		if v.big != nil {
			return e.WriteBigInt(v.big)
		}
		return e.WriteInt64(v.i)
	case KindString:
		return e.WriteString(v.s)
	case KindBytes:
		return e.WriteBytes(v.p)
	case KindAddress:
		var a Address
		copy(a[:], v.p)
		return e.WriteAddress(a)
	case KindHash:
		var h Hash
		copy(h[:], v.p)
		return e.WriteHash(h)
	case KindArray:
		e.WriteArrayHeader(len(v.arr))
		for i := range v.arr {
			e.WriteValue(v.arr[i])
		}
	case KindMap:
		e.WriteMapHeader(len(v.ents))
		for i := range v.ents {
			e.WriteString(v.ents[i].Key)
			e.WriteValue(v.ents[i].Value)
		}
	default:
		e.setError(fmt.Errorf("%w: cannot encode %s value", ErrUnsupportedValue, v.kind))
	}
	return e
}
