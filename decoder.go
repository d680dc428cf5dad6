package dewberry

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Decoder reads values back out of one encoded buffer. It holds exactly
// one piece of state: a cursor that only moves forward. PeekKind looks at
// the next tag without moving it; Skip discards one whole value, nested
// children included, consuming exactly the bytes the matching read would.
//
// Width never comes from guesswork: every read derives the byte count
// from the tag, and a decoder accepts any width an encoder could legally
// have chosen, minimal or not. Reads into a narrower Go form than the
// wire value carries fail with ErrOverflow.
//
// Errors are fail-fast: no partial value is returned, and after an error
// the decoder should be discarded. Single-value reads leave the cursor
// untouched when they fail; a failed ReadValue or Skip may leave it
// mid-value.
//
// A Decoder is single-goroutine; independent decoders share nothing.
type Decoder struct {
	data []byte
	pos  int
}

// NewDecoder returns a decoder positioned at the start of data. The
// buffer is not copied; the caller must not mutate it while the decoder
// is in use.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// More reports whether any bytes remain. A buffer written as a flat
// sequence of values is drained by reading until More is false.
func (d *Decoder) More() bool { return d.pos < len(d.data) }

// Pos returns the cursor offset into the buffer.
func (d *Decoder) Pos() int { return d.pos }

// need reports a TruncatedError unless n bytes are available at off.
func (d *Decoder) need(off, n int) error {
	if off+n > len(d.data) {
		return &TruncatedError{Offset: off, Need: n, Have: len(d.data) - off}
	}
	return nil
}

// readMismatch builds the error for a typed read that found tag instead
// of the requested kind.
func (d *Decoder) readMismatch(tag byte, want Kind) error {
	if tagKind(tag) == KindInvalid {
		return &UnknownTagError{Offset: d.pos, Tag: tag}
	}
	return &TypeError{Offset: d.pos, Tag: tag, Want: want}
}

// PeekKind classifies the next value without advancing the cursor.
func (d *Decoder) PeekKind() (Kind, error) {
	if err := d.need(d.pos, 1); err != nil {
		return KindInvalid, err
	}
	k := tagKind(d.data[d.pos])
	if k == KindInvalid {
		return KindInvalid, &UnknownTagError{Offset: d.pos, Tag: d.data[d.pos]}
	}
	return k, nil
}

// ---------------------------------------------------------------------------
// Typed reads
// ---------------------------------------------------------------------------

// ReadNil consumes a nil value.
func (d *Decoder) ReadNil() error {
	if err := d.need(d.pos, 1); err != nil {
		return err
	}
	if tag := d.data[d.pos]; tag != tagNil {
		return d.readMismatch(tag, KindNil)
	}
	d.pos++
	return nil
}

// ReadBool consumes a boolean.
func (d *Decoder) ReadBool() (bool, error) {
	if err := d.need(d.pos, 1); err != nil {
		return false, err
	}
	switch tag := d.data[d.pos]; tag {
	case tagTrue:
		d.pos++
		return true, nil
	case tagFalse:
		d.pos++
		return false, nil
	default:
		return false, d.readMismatch(tag, KindBool)
	}
}

// ReadUint64 consumes an unsigned integer that fits 64 bits. Wider wire
// forms are accepted when their value fits; otherwise ErrOverflow.
func (d *Decoder) ReadUint64() (uint64, error) {
	if err := d.need(d.pos, 1); err != nil {
		return 0, err
	}
	tag := d.data[d.pos]
	if tag <= posFixintMax {
		d.pos++
		return uint64(tag), nil
	}
	var v uint64
	var n int
	switch tag {
	case tagUint8:
		if err := d.need(d.pos+1, 1); err != nil {
			return 0, err
		}
		v, n = uint64(d.data[d.pos+1]), 2
	case tagUint16:
		if err := d.need(d.pos+1, 2); err != nil {
			return 0, err
		}
		v, n = uint64(binary.BigEndian.Uint16(d.data[d.pos+1:])), 3
	case tagUint32:
		if err := d.need(d.pos+1, 4); err != nil {
			return 0, err
		}
		v, n = uint64(binary.BigEndian.Uint32(d.data[d.pos+1:])), 5
	case tagUint64:
		if err := d.need(d.pos+1, 8); err != nil {
			return 0, err
		}
		v, n = binary.BigEndian.Uint64(d.data[d.pos+1:]), 9
	case tagUint128, tagUint256:
		w := 16
		if tag == tagUint256 {
			w = 32
		}
		if err := d.need(d.pos+1, w); err != nil {
			return 0, err
		}
		p := d.data[d.pos+1 : d.pos+1+w]
		if !allZero(p[:w-8]) {
			return 0, fmt.Errorf("%w: value at offset %d does not fit in 64 bits", ErrOverflow, d.pos)
		}
		v, n = binary.BigEndian.Uint64(p[w-8:]), 1+w
	default:
		return 0, d.readMismatch(tag, KindUint)
	}
	d.pos += n
	return v, nil
}

// ReadUint256 consumes an unsigned integer of any width the wire defines.
func (d *Decoder) ReadUint256() (*uint256.Int, error) {
	if err := d.need(d.pos, 1); err != nil {
		return nil, err
	}
	tag := d.data[d.pos]
	if tag <= posFixintMax {
		d.pos++
		return uint256.NewInt(uint64(tag)), nil
	}
	var w int
	switch tag {
	case tagUint8:
		w = 1
	case tagUint16:
		w = 2
	case tagUint32:
		w = 4
	case tagUint64:
		w = 8
	case tagUint128:
		w = 16
	case tagUint256:
		w = 32
	default:
		return nil, d.readMismatch(tag, KindUint)
	}
	if err := d.need(d.pos+1, w); err != nil {
		return nil, err
	}
	v := new(uint256.Int).SetBytes(d.data[d.pos+1 : d.pos+1+w])
	d.pos += 1 + w
	return v, nil
}

// ReadInt64 consumes an integer that fits int64. Unsigned forms are
// accepted when their value fits; ErrOverflow otherwise.
func (d *Decoder) ReadInt64() (int64, error) {
	if err := d.need(d.pos, 1); err != nil {
		return 0, err
	}
	tag := d.data[d.pos]
	switch {
	case tag <= posFixintMax:
		d.pos++
		return int64(tag), nil
	case tag >= negFixintMin:
		d.pos++
		return int64(int8(tag)), nil
	}
	var v int64
	var n int
	switch tag {
	case tagInt8:
		if err := d.need(d.pos+1, 1); err != nil {
			return 0, err
		}
		v, n = int64(int8(d.data[d.pos+1])), 2
	case tagInt16:
		if err := d.need(d.pos+1, 2); err != nil {
			return 0, err
		}
		v, n = int64(int16(binary.BigEndian.Uint16(d.data[d.pos+1:]))), 3
	case tagInt32:
		if err := d.need(d.pos+1, 4); err != nil {
			return 0, err
		}
		v, n = int64(int32(binary.BigEndian.Uint32(d.data[d.pos+1:]))), 5
	case tagInt64:
		if err := d.need(d.pos+1, 8); err != nil {
			return 0, err
		}
		v, n = int64(binary.BigEndian.Uint64(d.data[d.pos+1:])), 9
	case tagInt128, tagInt256:
		w := 16
		if tag == tagInt256 {
			w = 32
		}
		if err := d.need(d.pos+1, w); err != nil {
			return 0, err
		}
		fit, ok := twosFitsInt64(d.data[d.pos+1 : d.pos+1+w])
		if !ok {
			return 0, fmt.Errorf("%w: value at offset %d does not fit in 64 bits", ErrOverflow, d.pos)
		}
		v, n = fit, 1+w
	case tagUint8, tagUint16, tagUint32, tagUint64, tagUint128, tagUint256:
		u, err := d.ReadUint64()
		if err != nil {
			return 0, err
		}
		if u > maxInt64 {
			d.pos -= uintWidth(tag) + 1
			return 0, fmt.Errorf("%w: value at offset %d does not fit in int64", ErrOverflow, d.pos)
		}
		return int64(u), nil
	default:
		return 0, d.readMismatch(tag, KindInt)
	}
	d.pos += n
	return v, nil
}

// ReadBigInt consumes an integer of any kind and width, exact.
func (d *Decoder) ReadBigInt() (*big.Int, error) {
	if err := d.need(d.pos, 1); err != nil {
		return nil, err
	}
	tag := d.data[d.pos]
	if tagKind(tag) == KindUint {
		u, err := d.ReadUint256()
		if err != nil {
			return nil, err
		}
		return u.ToBig(), nil
	}
	if tag >= negFixintMin {
		d.pos++
		return big.NewInt(int64(int8(tag))), nil
	}
	var v *big.Int
	var n int
	switch tag {
	case tagInt8:
		if err := d.need(d.pos+1, 1); err != nil {
			return nil, err
		}
		v, n = big.NewInt(int64(int8(d.data[d.pos+1]))), 2
	case tagInt16:
		if err := d.need(d.pos+1, 2); err != nil {
			return nil, err
		}
		v, n = big.NewInt(int64(int16(binary.BigEndian.Uint16(d.data[d.pos+1:])))), 3
	case tagInt32:
		if err := d.need(d.pos+1, 4); err != nil {
			return nil, err
		}
		v, n = big.NewInt(int64(int32(binary.BigEndian.Uint32(d.data[d.pos+1:])))), 5
	case tagInt64:
		if err := d.need(d.pos+1, 8); err != nil {
			return nil, err
		}
		v, n = big.NewInt(int64(binary.BigEndian.Uint64(d.data[d.pos+1:]))), 9
	case tagInt128, tagInt256:
		w, modulus := 16, twoPow128
		if tag == tagInt256 {
			w, modulus = 32, twoPow256
		}
		if err := d.need(d.pos+1, w); err != nil {
			return nil, err
		}
		p := d.data[d.pos+1 : d.pos+1+w]
		v = new(big.Int).SetBytes(p)
		if p[0]&0x80 != 0 {
			v.Sub(v, modulus)
		}
		n = 1 + w
	default:
		return nil, d.readMismatch(tag, KindInt)
	}
	d.pos += n
	return v, nil
}

// ReadString consumes a string of any width form.
func (d *Decoder) ReadString() (string, error) {
	if err := d.need(d.pos, 1); err != nil {
		return "", err
	}
	tag := d.data[d.pos]
	var hdr, n int
	switch {
	case tag >= fixstrBase && tag <= fixstrBase|fixstrMaxLen:
		hdr, n = 1, int(tag&fixstrMaxLen)
	case tag == tagStr8:
		if err := d.need(d.pos+1, 1); err != nil {
			return "", err
		}
		hdr, n = 2, int(d.data[d.pos+1])
	case tag == tagStr16:
		if err := d.need(d.pos+1, 2); err != nil {
			return "", err
		}
		hdr, n = 3, int(binary.BigEndian.Uint16(d.data[d.pos+1:]))
	default:
		return "", d.readMismatch(tag, KindString)
	}
	if err := d.need(d.pos+hdr, n); err != nil {
		return "", err
	}
	s := string(d.data[d.pos+hdr : d.pos+hdr+n])
	d.pos += hdr + n
	return s, nil
}

// ReadBytes consumes a byte blob and returns a copy of its payload.
func (d *Decoder) ReadBytes() ([]byte, error) {
	if err := d.need(d.pos, 1); err != nil {
		return nil, err
	}
	tag := d.data[d.pos]
	var hdr, n int
	switch tag {
	case tagBin8:
		if err := d.need(d.pos+1, 1); err != nil {
			return nil, err
		}
		hdr, n = 2, int(d.data[d.pos+1])
	case tagBin16:
		if err := d.need(d.pos+1, 2); err != nil {
			return nil, err
		}
		hdr, n = 3, int(binary.BigEndian.Uint16(d.data[d.pos+1:]))
	default:
		return nil, d.readMismatch(tag, KindBytes)
	}
	if err := d.need(d.pos+hdr, n); err != nil {
		return nil, err
	}
	p := append([]byte(nil), d.data[d.pos+hdr:d.pos+hdr+n]...)
	d.pos += hdr + n
	return p, nil
}

// ReadAddress consumes an address.
func (d *Decoder) ReadAddress() (Address, error) {
	var a Address
	if err := d.need(d.pos, 1); err != nil {
		return a, err
	}
	if tag := d.data[d.pos]; tag != tagAddress {
		return a, d.readMismatch(tag, KindAddress)
	}
	if err := d.need(d.pos+1, AddressLen); err != nil {
		return a, err
	}
	copy(a[:], d.data[d.pos+1:])
	d.pos += 1 + AddressLen
	return a, nil
}

// ReadHash consumes a 32-byte fixed block.
func (d *Decoder) ReadHash() (Hash, error) {
	var h Hash
	if err := d.need(d.pos, 1); err != nil {
		return h, err
	}
	if tag := d.data[d.pos]; tag != tagBlock32 {
		return h, d.readMismatch(tag, KindHash)
	}
	if err := d.need(d.pos+1, HashLen); err != nil {
		return h, err
	}
	copy(h[:], d.data[d.pos+1:])
	d.pos += 1 + HashLen
	return h, nil
}

// ReadArrayHeader consumes an array header and returns its element count.
// The caller must then read or skip exactly that many values; the decoder
// does not track how many remain.
func (d *Decoder) ReadArrayHeader() (int, error) {
	return d.readHeader(fixarrayBase, tagArray8, tagArray16, KindArray)
}

// ReadMapHeader consumes a map header and returns its pair count. The
// caller must then read or skip exactly count pairs, key before value.
func (d *Decoder) ReadMapHeader() (int, error) {
	return d.readHeader(fixmapBase, tagMap8, tagMap16, KindMap)
}

func (d *Decoder) readHeader(fixBase, tag8, tag16 byte, want Kind) (int, error) {
	if err := d.need(d.pos, 1); err != nil {
		return 0, err
	}
	tag := d.data[d.pos]
	switch {
	case tag >= fixBase && tag <= fixBase|fixCountMax:
		d.pos++
		return int(tag & fixCountMax), nil
	case tag == tag8:
		if err := d.need(d.pos+1, 1); err != nil {
			return 0, err
		}
		n := int(d.data[d.pos+1])
		d.pos += 2
		return n, nil
	case tag == tag16:
		if err := d.need(d.pos+1, 2); err != nil {
			return 0, err
		}
		n := int(binary.BigEndian.Uint16(d.data[d.pos+1:]))
		d.pos += 3
		return n, nil
	default:
		return 0, d.readMismatch(tag, want)
	}
}

// ---------------------------------------------------------------------------
// Skip and generic decode
// ---------------------------------------------------------------------------

// Skip consumes and discards exactly one value, recursing through arrays
// and maps, without materializing anything. Its byte consumption is
// identical to the matching typed read's.
func (d *Decoder) Skip() error {
	end, err := d.skipValue(d.pos)
	if err != nil {
		return err
	}
	d.pos = end
	return nil
}

// skipValue returns the offset just past the value that starts at off.
func (d *Decoder) skipValue(off int) (int, error) {
	if err := d.need(off, 1); err != nil {
		return 0, err
	}
	tag := d.data[off]
	off++
	switch {
	case tag <= posFixintMax, tag >= negFixintMin:
		return off, nil
	case tag >= fixstrBase && tag <= fixstrBase|fixstrMaxLen:
		n := int(tag & fixstrMaxLen)
		if err := d.need(off, n); err != nil {
			return 0, err
		}
		return off + n, nil
	case tag >= fixarrayBase && tag <= fixarrayBase|fixCountMax:
		return d.skipN(off, int(tag&fixCountMax))
	case tag >= fixmapBase && tag <= fixmapBase|fixCountMax:
		return d.skipN(off, 2*int(tag&fixCountMax))
	}

	var w int
	switch tag {
	case tagNil, tagFalse, tagTrue:
		return off, nil
	case tagUint8, tagInt8:
		w = 1
	case tagUint16, tagInt16:
		w = 2
	case tagUint32, tagInt32:
		w = 4
	case tagUint64, tagInt64:
		w = 8
	case tagUint128, tagInt128:
		w = 16
	case tagUint256, tagInt256:
		w = 32
	case tagAddress:
		w = AddressLen
	case tagBlock32:
		w = HashLen
	case tagStr8, tagBin8:
		if err := d.need(off, 1); err != nil {
			return 0, err
		}
		w = 1 + int(d.data[off])
	case tagStr16, tagBin16:
		if err := d.need(off, 2); err != nil {
			return 0, err
		}
		w = 2 + int(binary.BigEndian.Uint16(d.data[off:]))
	case tagArray8:
		if err := d.need(off, 1); err != nil {
			return 0, err
		}
		return d.skipN(off+1, int(d.data[off]))
	case tagArray16:
		if err := d.need(off, 2); err != nil {
			return 0, err
		}
		return d.skipN(off+2, int(binary.BigEndian.Uint16(d.data[off:])))
	case tagMap8:
		if err := d.need(off, 1); err != nil {
			return 0, err
		}
		return d.skipN(off+1, 2*int(d.data[off]))
	case tagMap16:
		if err := d.need(off, 2); err != nil {
			return 0, err
		}
		return d.skipN(off+2, 2*int(binary.BigEndian.Uint16(d.data[off:])))
	default:
		return 0, &UnknownTagError{Offset: off - 1, Tag: tag}
	}
	if err := d.need(off, w); err != nil {
		return 0, err
	}
	return off + w, nil
}

func (d *Decoder) skipN(off, count int) (int, error) {
	for i := 0; i < count; i++ {
		var err error
		off, err = d.skipValue(off)
		if err != nil {
			return 0, err
		}
	}
	return off, nil
}

// ReadValue consumes one value of any kind and materializes it as a Value
// tree, recursing through arrays and maps in wire order.
func (d *Decoder) ReadValue() (Value, error) {
	k, err := d.PeekKind()
	if err != nil {
		return Value{}, err
	}
	switch k {
	case KindNil:
		return Nil(), d.ReadNil()
	case KindBool:
		b, err := d.ReadBool()
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case KindUint:
		u, err := d.ReadUint256()
		if err != nil {
			return Value{}, err
		}
		return Uint256(u), nil
	case KindInt:
		b, err := d.ReadBigInt()
		if err != nil {
			return Value{}, err
		}
		return BigInt(b), nil
	case KindString:
		s, err := d.ReadString()
		if err != nil {
			return Value{}, err
		}
		return Str(s), nil
	case KindBytes:
		p, err := d.ReadBytes()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindBytes, p: p}, nil
	case KindAddress:
		a, err := d.ReadAddress()
		if err != nil {
			return Value{}, err
		}
		return Addr(a), nil
	case KindHash:
		h, err := d.ReadHash()
		if err != nil {
			return Value{}, err
		}
		return Block(h), nil
	case KindArray:
		n, err := d.ReadArrayHeader()
		if err != nil {
			return Value{}, err
		}
		// Cap the preallocation; the count is wire-claimed, not verified.
		elems := make([]Value, 0, min(n, 64))
		for i := 0; i < n; i++ {
			el, err := d.ReadValue()
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, el)
		}
		return Value{kind: KindArray, arr: elems}, nil
	case KindMap:
		n, err := d.ReadMapHeader()
		if err != nil {
			return Value{}, err
		}
		ents := make([]MapEntry, 0, min(n, 64))
		for i := 0; i < n; i++ {
			key, err := d.ReadString()
			if err != nil {
				return Value{}, err
			}
			val, err := d.ReadValue()
			if err != nil {
				return Value{}, err
			}
			ents = append(ents, MapEntry{Key: key, Value: val})
		}
		return Value{kind: KindMap, ents: ents}, nil
	}
	return Value{}, &UnknownTagError{Offset: d.pos, Tag: d.data[d.pos]}
}

// uintWidth returns the payload width of an unsigned tag.
func uintWidth(tag byte) int {
	switch tag {
	case tagUint8:
		return 1
	case tagUint16:
		return 2
	case tagUint32:
		return 4
	case tagUint64:
		return 8
	case tagUint128:
		return 16
	case tagUint256:
		return 32
	}
	return 0
}

// twosFitsInt64 reports whether a 16- or 32-byte two's-complement value
// fits int64, and returns it when it does.
func twosFitsInt64(p []byte) (int64, bool) {
	n := len(p)
	lo := binary.BigEndian.Uint64(p[n-8:])
	neg := p[0]&0x80 != 0
	for _, b := range p[:n-8] {
		if neg && b != 0xFF || !neg && b != 0 {
			return 0, false
		}
	}
	v := int64(lo)
	if neg && v >= 0 || !neg && v < 0 {
		return 0, false
	}
	return v, true
}

func allZero(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}
