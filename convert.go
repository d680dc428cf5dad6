package dewberry

import (
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/holiman/uint256"
)

// FromNative converts a plain Go representation into a Value. It accepts
// nil, bool, every built-in integer width, float32/float64 carrying an
// integral value, string, []byte, Address, Hash, *big.Int, *uint256.Int,
// Value itself, []any, []Value, []MapEntry, map[string]any, and
// map[string]Value.
//
// The wire has no floating point: a non-integral, infinite, or NaN number
// fails with ErrUnsupportedValue. Integral floats convert exactly, however
// large. Go maps have no insertion order, so their keys are sorted before
// conversion; pass []MapEntry to control entry order.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Nil(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int64(int64(t)), nil
	case int8:
		return Int64(int64(t)), nil
	case int16:
		return Int64(int64(t)), nil
	case int32:
		return Int64(int64(t)), nil
	case int64:
		return Int64(t), nil
	case uint:
		return Uint64(uint64(t)), nil
	case uint8:
		return Uint64(uint64(t)), nil
	case uint16:
		return Uint64(uint64(t)), nil
	case uint32:
		return Uint64(uint64(t)), nil
	case uint64:
		return Uint64(t), nil
	case float32:
		return FromNative(float64(t))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) {
			return Value{}, fmt.Errorf("%w: non-integral number %v", ErrUnsupportedValue, t)
		}
		i, _ := big.NewFloat(t).Int(nil)
		return BigInt(i), nil
	case string:
		return Str(t), nil
	case []byte:
		return Bin(t), nil
	case Address:
		return Addr(t), nil
	case Hash:
		return Block(t), nil
	case *big.Int:
		return BigInt(t), nil
	case *uint256.Int:
		return Uint256(t), nil
	case []any:
		elems := make([]Value, len(t))
		for i, el := range t {
			v, err := FromNative(el)
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return Value{kind: KindArray, arr: elems}, nil
	case []Value:
		return Array(t...), nil
	case []MapEntry:
		return Map(t...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys) // Go map order is randomized; sort for determinism.
		ents := make([]MapEntry, 0, len(t))
		for _, k := range keys {
			v, err := FromNative(t[k])
			if err != nil {
				return Value{}, err
			}
			ents = append(ents, MapEntry{Key: k, Value: v})
		}
		return Value{kind: KindMap, ents: ents}, nil
	case map[string]Value:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ents := make([]MapEntry, 0, len(t))
		for _, k := range keys {
			ents = append(ents, MapEntry{Key: k, Value: t[k]})
		}
		return Value{kind: KindMap, ents: ents}, nil
	}
	return Value{}, fmt.Errorf("%w: cannot convert %T", ErrUnsupportedValue, x)
}

// Native converts v back into plain Go containers: nil, bool, uint64 or
// *uint256.Int or *big.Int depending on magnitude, int64 or *big.Int,
// string, []byte, Address, Hash, []any, map[string]any.
//
// Converting a map loses entry order and keeps the last value of any
// duplicated key; use Entries when either matters. An invalid Value
// converts to nil.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindUint:
		switch {
		case v.big != nil:
			return new(big.Int).Set(v.big)
		case v.wide != nil:
			return new(uint256.Int).Set(v.wide)
		default:
			return v.u
		}
	case KindInt:
		if v.big != nil {
			return new(big.Int).Set(v.big)
		}
		return v.i
	case KindString:
		return v.s
	case KindBytes:
		return append([]byte(nil), v.p...)
	case KindAddress:
		var a Address
		copy(a[:], v.p)
		return a
	case KindHash:
		var h Hash
		copy(h[:], v.p)
		return h
	case KindArray:
		out := make([]any, len(v.arr))
		for i := range v.arr {
			out[i] = v.arr[i].Native()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.ents))
		for i := range v.ents {
			out[v.ents[i].Key] = v.ents[i].Value.Native()
		}
		return out
	}
	return nil
}
