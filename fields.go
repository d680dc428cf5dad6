package dewberry

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Field helpers fold the key write and the value write of one map entry
// into a single call. They are pure composition: output is byte-identical
// to the two-call sequence, and the map-header contract is unchanged:
// each helper emits exactly one of the pairs the header promised.

// WriteNilField writes key then nil.
func (e *Encoder) WriteNilField(key string) *Encoder {
	return e.WriteString(key).WriteNil()
}

// WriteBoolField writes key then a boolean.
func (e *Encoder) WriteBoolField(key string, v bool) *Encoder {
	return e.WriteString(key).WriteBool(v)
}

// WriteUint64Field writes key then an unsigned integer.
func (e *Encoder) WriteUint64Field(key string, v uint64) *Encoder {
	return e.WriteString(key).WriteUint64(v)
}

// WriteUint256Field writes key then a wide unsigned integer.
func (e *Encoder) WriteUint256Field(key string, v *uint256.Int) *Encoder {
	return e.WriteString(key).WriteUint256(v)
}

// WriteInt64Field writes key then a signed integer.
func (e *Encoder) WriteInt64Field(key string, v int64) *Encoder {
	return e.WriteString(key).WriteInt64(v)
}

// WriteBigIntField writes key then an arbitrary-precision integer.
func (e *Encoder) WriteBigIntField(key string, v *big.Int) *Encoder {
	return e.WriteString(key).WriteBigInt(v)
}

// WriteStringField writes key then a string.
func (e *Encoder) WriteStringField(key, v string) *Encoder {
	return e.WriteString(key).WriteString(v)
}

// WriteBytesField writes key then a byte blob.
func (e *Encoder) WriteBytesField(key string, v []byte) *Encoder {
	return e.WriteString(key).WriteBytes(v)
}

// WriteAddressField writes key then an address.
func (e *Encoder) WriteAddressField(key string, v Address) *Encoder {
	return e.WriteString(key).WriteAddress(v)
}

// WriteHashField writes key then a fixed block.
func (e *Encoder) WriteHashField(key string, v Hash) *Encoder {
	return e.WriteString(key).WriteHash(v)
}

// WriteValueField writes key then a whole Value tree.
func (e *Encoder) WriteValueField(key string, v Value) *Encoder {
	return e.WriteString(key).WriteValue(v)
}

// Homogeneous array helpers: a header plus one write per element.

// WriteStringArray writes vals as an array of strings.
func (e *Encoder) WriteStringArray(vals []string) *Encoder {
	e.WriteArrayHeader(len(vals))
	for _, s := range vals {
		e.WriteString(s)
	}
	return e
}

// WriteUint64Array writes vals as an array of unsigned integers.
func (e *Encoder) WriteUint64Array(vals []uint64) *Encoder {
	e.WriteArrayHeader(len(vals))
	for _, v := range vals {
		e.WriteUint64(v)
	}
	return e
}

// WriteAddressArray writes vals as an array of addresses.
func (e *Encoder) WriteAddressArray(vals []Address) *Encoder {
	e.WriteArrayHeader(len(vals))
	for _, a := range vals {
		e.WriteAddress(a)
	}
	return e
}

// SkipField discards one key/value pair of a map whose header has already
// been consumed.
func (d *Decoder) SkipField() error {
	if err := d.Skip(); err != nil {
		return err
	}
	return d.Skip()
}

// ReadStringArray consumes an array of strings.
func (d *Decoder) ReadStringArray() ([]string, error) {
	n, err := d.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, min(n, 64))
	for i := 0; i < n; i++ {
		s, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadUint64Array consumes an array of unsigned integers that fit 64 bits.
func (d *Decoder) ReadUint64Array() ([]uint64, error) {
	n, err := d.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, min(n, 64))
	for i := 0; i < n; i++ {
		v, err := d.ReadUint64()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ReadAddressArray consumes an array of addresses.
func (d *Decoder) ReadAddressArray() ([]Address, error) {
	n, err := d.ReadArrayHeader()
	if err != nil {
		return nil, err
	}
	out := make([]Address, 0, min(n, 64))
	for i := 0; i < n; i++ {
		a, err := d.ReadAddress()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
