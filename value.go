package dewberry

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// Address is a 20-byte chain account identifier. It encodes with its own
// dedicated tag, never as generic binary.
type Address [20]byte

// String returns the 0x-prefixed hex form of the address.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Hash is a 32-byte fixed-size identifier, typically a cryptographic hash
// or block id. Like Address it has its own dedicated tag on the wire.
type Hash [32]byte

// String returns the 0x-prefixed hex form of the hash.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Kind identifies which variant a Value holds. The decoder's PeekKind
// reports the same classification for the upcoming wire value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNil
	KindBool
	KindUint
	KindInt
	KindString
	KindBytes
	KindAddress
	KindHash
	KindArray
	KindMap
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindNil:     "nil",
	KindBool:    "bool",
	KindUint:    "uint",
	KindInt:     "int",
	KindString:  "string",
	KindBytes:   "bytes",
	KindAddress: "address",
	KindHash:    "hash",
	KindArray:   "array",
	KindMap:     "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// MapEntry is one key/value pair of a map Value. Pair order is preserved
// end to end: maps encode in the order their entries were given and decode
// in the order they appear on the wire.
type MapEntry struct {
	Key   string
	Value Value
}

// Entry builds a MapEntry.
func Entry(key string, v Value) MapEntry {
	return MapEntry{Key: key, Value: v}
}

// Value is the decoded form of one wire value: a tagged union over all
// kinds the format defines. Values are immutable once constructed;
// constructors copy their arguments and accessors copy on the way out.
//
// Integers are normalized so that structural equality matches semantic
// equality: non-negative integers are always KindUint (the wire has no
// signed form for them either), a magnitude that fits 64 bits uses the
// fast path, and wider magnitudes move to a 256-bit or arbitrary-precision
// slot. KindInt values are therefore always negative. An integer beyond
// the 256-bit wire range can be held but is rejected at encode time with
// ErrOverflow.
//
// The zero Value is KindInvalid and cannot be encoded.
type Value struct {
	kind Kind
	b    bool
	u    uint64       // KindUint magnitude when it fits 64 bits
	i    int64        // KindInt value when it fits int64
	wide *uint256.Int // KindUint magnitude, 65..256 bits
	big  *big.Int     // overflow slot: KindUint >256 bits, KindInt below int64
	s    string
	p    []byte // KindBytes payload, or the 20/32 bytes of an address/hash
	arr  []Value
	ents []MapEntry
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Nil returns the nil Value.
func Nil() Value { return Value{kind: KindNil} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Uint64 returns an unsigned integer Value.
func Uint64(v uint64) Value { return Value{kind: KindUint, u: v} }

// Uint256 returns an unsigned integer Value from a 256-bit magnitude.
// The argument is copied; nil means zero.
func Uint256(v *uint256.Int) Value {
	if v == nil || v.IsUint64() {
		if v == nil {
			return Uint64(0)
		}
		return Uint64(v.Uint64())
	}
	return Value{kind: KindUint, wide: new(uint256.Int).Set(v)}
}

// Int64 returns an integer Value. Non-negative inputs normalize to
// KindUint, matching what the wire round-trips them as.
func Int64(v int64) Value {
	if v >= 0 {
		return Uint64(uint64(v))
	}
	return Value{kind: KindInt, i: v}
}

// BigInt returns an integer Value from an arbitrary-precision integer.
// The argument is copied; nil means zero. Magnitudes beyond the 256-bit
// wire range are held as-is and fail at encode time.
func BigInt(v *big.Int) Value {
	if v == nil {
		return Uint64(0)
	}
	if v.Sign() >= 0 {
		if v.IsUint64() {
			return Uint64(v.Uint64())
		}
		if w, overflow := uint256.FromBig(v); !overflow {
			return Value{kind: KindUint, wide: w}
		}
		return Value{kind: KindUint, big: new(big.Int).Set(v)}
	}
	if v.IsInt64() {
		return Value{kind: KindInt, i: v.Int64()}
	}
	return Value{kind: KindInt, big: new(big.Int).Set(v)}
}

// Str returns a string Value. The string must be valid UTF-8 to be
// meaningful to other decoders; the codec does not verify it.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Bin returns a byte-blob Value. The bytes are copied.
func Bin(p []byte) Value {
	return Value{kind: KindBytes, p: append([]byte(nil), p...)}
}

// Addr returns an address Value.
func Addr(a Address) Value {
	return Value{kind: KindAddress, p: append([]byte(nil), a[:]...)}
}

// Block returns a fixed-block Value holding a 32-byte hash or identifier.
func Block(h Hash) Value {
	return Value{kind: KindHash, p: append([]byte(nil), h[:]...)}
}

// Array returns an array Value. The elements are copied.
func Array(elems ...Value) Value {
	return Value{kind: KindArray, arr: append([]Value(nil), elems...)}
}

// Map returns a map Value from ordered entries. The entries are copied
// and their order is preserved on the wire. Key uniqueness is a caller
// contract; the codec does not check it.
func Map(entries ...MapEntry) Value {
	return Value{kind: KindMap, ents: append([]MapEntry(nil), entries...)}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is the nil Value.
func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) wrongKind(op string) {
	panic(fmt.Sprintf("github.com/blockberries/dewberry: %s called on %s value", op, v.kind))
}

// Bool returns the boolean. Panics unless v is KindBool.
func (v Value) Bool() bool {
	if v.kind != KindBool {
		v.wrongKind("Bool")
	}
	return v.b
}

// Uint64 returns the unsigned integer. Panics unless v is KindUint with a
// magnitude that fits 64 bits.
func (v Value) Uint64() uint64 {
	if v.kind != KindUint || v.wide != nil || v.big != nil {
		v.wrongKind("Uint64")
	}
	return v.u
}

// Uint returns the unsigned integer as a fresh 256-bit value. Panics
// unless v is KindUint within the 256-bit range.
func (v Value) Uint() *uint256.Int {
	if v.kind != KindUint || v.big != nil {
		v.wrongKind("Uint")
	}
	if v.wide != nil {
		return new(uint256.Int).Set(v.wide)
	}
	return uint256.NewInt(v.u)
}

// Int64 returns the integer. KindUint values are accepted when they fit.
// Panics when the value does not fit int64 or is not an integer.
func (v Value) Int64() int64 {
	switch v.kind {
	case KindInt:
		if v.big != nil {
			v.wrongKind("Int64")
		}
		return v.i
	case KindUint:
		if v.wide != nil || v.big != nil || v.u > maxInt64 {
			v.wrongKind("Int64")
		}
		return int64(v.u)
	}
	v.wrongKind("Int64")
	return 0
}

// Big returns the integer as a fresh arbitrary-precision value, for either
// integer kind and any magnitude. Panics unless v is KindUint or KindInt.
func (v Value) Big() *big.Int {
	switch v.kind {
	case KindUint:
		switch {
		case v.big != nil:
			return new(big.Int).Set(v.big)
		case v.wide != nil:
			return v.wide.ToBig()
		default:
			return new(big.Int).SetUint64(v.u)
		}
	case KindInt:
		if v.big != nil {
			return new(big.Int).Set(v.big)
		}
		return big.NewInt(v.i)
	}
	v.wrongKind("Big")
	return nil
}

// Str returns the string. Panics unless v is KindString.
func (v Value) Str() string {
	if v.kind != KindString {
		v.wrongKind("Str")
	}
	return v.s
}

// Bin returns a copy of the byte blob. Panics unless v is KindBytes.
func (v Value) Bin() []byte {
	if v.kind != KindBytes {
		v.wrongKind("Bin")
	}
	return append([]byte(nil), v.p...)
}

// Addr returns the address. Panics unless v is KindAddress.
func (v Value) Addr() Address {
	if v.kind != KindAddress {
		v.wrongKind("Addr")
	}
	var a Address
	copy(a[:], v.p)
	return a
}

// Hash returns the fixed block. Panics unless v is KindHash.
func (v Value) Hash() Hash {
	if v.kind != KindHash {
		v.wrongKind("Hash")
	}
	var h Hash
	copy(h[:], v.p)
	return h
}

// Len returns the byte length of a string or blob, or the element/pair
// count of an array or map. Panics for other kinds.
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return len(v.s)
	case KindBytes:
		return len(v.p)
	case KindArray:
		return len(v.arr)
	case KindMap:
		return len(v.ents)
	}
	v.wrongKind("Len")
	return 0
}

// At returns the i-th element of an array. Panics unless v is KindArray
// and i is in range.
func (v Value) At(i int) Value {
	if v.kind != KindArray {
		v.wrongKind("At")
	}
	return v.arr[i]
}

// Entries returns a copy of the map's entries in wire order. Panics
// unless v is KindMap.
func (v Value) Entries() []MapEntry {
	if v.kind != KindMap {
		v.wrongKind("Entries")
	}
	return append([]MapEntry(nil), v.ents...)
}

// Get returns the value of the first entry with the given key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		v.wrongKind("Get")
	}
	for _, e := range v.ents {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Equal reports deep semantic equality. Thanks to integer normalization
// this is plain structural comparison; invalid values compare unequal to
// everything, themselves included.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == o.b
	case KindUint:
		switch {
		case v.big != nil || o.big != nil:
			return v.big != nil && o.big != nil && v.big.Cmp(o.big) == 0
		case v.wide != nil || o.wide != nil:
			return v.wide != nil && o.wide != nil && v.wide.Eq(o.wide)
		default:
			return v.u == o.u
		}
	case KindInt:
		if v.big != nil || o.big != nil {
			return v.big != nil && o.big != nil && v.big.Cmp(o.big) == 0
		}
		return v.i == o.i
	case KindString:
		return v.s == o.s
	case KindBytes, KindAddress, KindHash:
		return bytes.Equal(v.p, o.p)
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.ents) != len(o.ents) {
			return false
		}
		for i := range v.ents {
			if v.ents[i].Key != o.ents[i].Key || !v.ents[i].Value.Equal(o.ents[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v in a compact JSON-like diagnostic form. Byte blobs,
// addresses and hashes render as 0x-prefixed hex.
func (v Value) String() string {
	var b strings.Builder
	v.render(&b)
	return b.String()
}

func (v Value) render(b *strings.Builder) {
	switch v.kind {
	case KindNil:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindUint, KindInt:
		b.WriteString(v.decimal())
	case KindString:
		b.WriteString(strconv.Quote(v.s))
	case KindBytes, KindAddress, KindHash:
		b.WriteString("0x")
		b.WriteString(hex.EncodeToString(v.p))
	case KindArray:
		b.WriteByte('[')
		for i := range v.arr {
			if i > 0 {
				b.WriteString(", ")
			}
			v.arr[i].render(b)
		}
		b.WriteByte(']')
	case KindMap:
		b.WriteByte('{')
		for i := range v.ents {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(v.ents[i].Key))
			b.WriteString(": ")
			v.ents[i].Value.render(b)
		}
		b.WriteByte('}')
	default:
		b.WriteString("<invalid>")
	}
}

func (v Value) decimal() string {
	switch {
	case v.big != nil:
		return v.big.String()
	case v.wide != nil:
		return v.wide.Dec()
	case v.kind == KindInt:
		return strconv.FormatInt(v.i, 10)
	default:
		return strconv.FormatUint(v.u, 10)
	}
}

const maxInt64 = 1<<63 - 1
