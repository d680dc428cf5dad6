// Package dewtest provides shared test material for the dewberry
// codec: golden wire vectors, a deterministic value generator, and a
// conformance suite that any change to the codec must keep passing.
package dewtest

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/blockberries/dewberry"

	"github.com/holiman/uint256"
)

// Vector pairs a value with its canonical wire encoding. Encoding
// Value must produce exactly the bytes of Hex; decoding Hex must
// produce a value equal to Value.
type Vector struct {
	Name  string
	Hex   string // canonical wire bytes, lowercase hex, no separators
	Value dewberry.Value
}

// Bytes decodes the vector's wire form. Panics on a malformed table
// entry; vectors are compile-time constants in spirit.
func (v Vector) Bytes() []byte {
	data, err := hex.DecodeString(v.Hex)
	if err != nil {
		panic("dewtest: bad vector hex for " + v.Name + ": " + err.Error())
	}
	return data
}

// Vectors returns the golden vector table. Every tag family appears at
// least once, including its boundary widths.
func Vectors() []Vector {
	wide128 := new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	max256 := new(uint256.Int).Not(uint256.NewInt(0))
	min128 := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	min256 := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255))

	return []Vector{
		{"nil", "c0", dewberry.Nil()},
		{"false", "c2", dewberry.Bool(false)},
		{"true", "c3", dewberry.Bool(true)},

		{"fixint_zero", "00", dewberry.Uint64(0)},
		{"fixint_max", "7f", dewberry.Uint64(127)},
		{"uint8_min", "c480", dewberry.Uint64(128)},
		{"uint8_max", "c4ff", dewberry.Uint64(255)},
		{"uint16_min", "c50100", dewberry.Uint64(256)},
		{"uint16_max", "c5ffff", dewberry.Uint64(65535)},
		{"uint32_min", "c600010000", dewberry.Uint64(65536)},
		{"uint32_max", "c6ffffffff", dewberry.Uint64(1<<32 - 1)},
		{"uint64_min", "c70000000100000000", dewberry.Uint64(1 << 32)},
		{"uint64_wei_scale", "c714d1120d7b160000", dewberry.Uint64(1500000000000000000)},
		{"uint128_min", "c800000000000000010000000000000000", dewberry.Uint256(wide128)},
		{"uint256_max", "c9" + strings.Repeat("ff", 32), dewberry.Uint256(max256)},

		{"negfixint_hi", "ff", dewberry.Int64(-1)},
		{"negfixint_lo", "e0", dewberry.Int64(-32)},
		{"int8_hi", "cadf", dewberry.Int64(-33)},
		{"int8_lo", "ca80", dewberry.Int64(-128)},
		{"int16_hi", "cbff7f", dewberry.Int64(-129)},
		{"int16_lo", "cb8000", dewberry.Int64(-32768)},
		{"int32_hi", "ccffff7fff", dewberry.Int64(-32769)},
		{"int32_lo", "cc80000000", dewberry.Int64(-1 << 31)},
		{"int64_hi", "cdffffffff7fffffff", dewberry.Int64(-1<<31 - 1)},
		{"int64_lo", "cd8000000000000000", dewberry.Int64(-1 << 63)},
		{"int128_lo", "ce80" + strings.Repeat("00", 15), dewberry.BigInt(min128)},
		{"int256_lo", "cf80" + strings.Repeat("00", 31), dewberry.BigInt(min256)},

		{"fixstr_empty", "a0", dewberry.Str("")},
		{"fixstr_alice", "a5416c696365", dewberry.Str("Alice")},
		{"fixstr_max", "bf" + strings.Repeat("61", 31), dewberry.Str(strings.Repeat("a", 31))},
		{"str8_min", "d220" + strings.Repeat("61", 32), dewberry.Str(strings.Repeat("a", 32))},
		{"str16_min", "d30100" + strings.Repeat("61", 256), dewberry.Str(strings.Repeat("a", 256))},
		{"str_utf8", "a6e4bda0e5a5bd", dewberry.Str("你好")},

		{"bin8_empty", "d000", dewberry.Bin(nil)},
		{"bin8_small", "d003beadde", dewberry.Bin([]byte{0xBE, 0xAD, 0xDE})},
		{"bin16_min", "d10100" + strings.Repeat("ab", 256), dewberry.Bin(bytesRepeat(0xAB, 256))},

		{
			"address",
			"d4" + "00112233445566778899aabbccddeeff00010203",
			dewberry.Addr(dewberry.Address{
				0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99,
				0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x01, 0x02, 0x03,
			}),
		},
		{
			"fixedblock32",
			"d5" + strings.Repeat("cd", 32),
			dewberry.Block(hashRepeat(0xCD)),
		},

		{"fixarray_empty", "90", dewberry.Array()},
		{
			"fixarray_mixed",
			"93c0c32a",
			dewberry.Array(dewberry.Nil(), dewberry.Bool(true), dewberry.Uint64(42)),
		},
		{"array8_min", "d610" + "000102030405060708090a0b0c0d0e0f", countingArray(16)},

		{"fixmap_empty", "80", dewberry.Map()},
		{
			"fixmap_spec_example",
			"82a4746573742aa5746573743290",
			dewberry.Map(
				dewberry.Entry("test", dewberry.Uint64(42)),
				dewberry.Entry("test2", dewberry.Array()),
			),
		},
		{
			"map_nested",
			"81a3746f6b81a3776569c80000000000000001" + strings.Repeat("00", 8),
			dewberry.Map(dewberry.Entry("tok", dewberry.Map(
				dewberry.Entry("wei", dewberry.Uint256(wide128)),
			))),
		},
	}
}

func bytesRepeat(b byte, n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = b
	}
	return p
}

func hashRepeat(b byte) dewberry.Hash {
	var h dewberry.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func countingArray(n int) dewberry.Value {
	elems := make([]dewberry.Value, n)
	for i := range elems {
		elems[i] = dewberry.Uint64(uint64(i))
	}
	return dewberry.Array(elems...)
}
