package dewberry

import (
	"bytes"
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestReadUint64_AcceptsAnyFittingWidth(t *testing.T) {
	// The same value in every legal width: a decoder never guesses the
	// width from the value, only from the tag.
	forms := [][]byte{
		{0x2A},
		{0xC4, 0x2A},
		{0xC5, 0x00, 0x2A},
		{0xC6, 0x00, 0x00, 0x00, 0x2A},
		{0xC7, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x2A},
		append(append([]byte{0xC8}, make([]byte, 15)...), 0x2A),
		append(append([]byte{0xC9}, make([]byte, 31)...), 0x2A),
	}
	for _, form := range forms {
		d := NewDecoder(form)
		v, err := d.ReadUint64()
		if err != nil {
			t.Errorf("form % X: %v", form[:min(len(form), 3)], err)
			continue
		}
		if v != 42 {
			t.Errorf("form % X: got %d, want 42", form[:min(len(form), 3)], v)
		}
		if d.More() {
			t.Errorf("form % X: cursor did not consume the full value", form[:min(len(form), 3)])
		}
	}
}

func TestReadUint64_OverflowAndMismatch(t *testing.T) {
	wide := enc(t, func(e *Encoder) { e.WriteUint256(pow2(64)) })
	if _, err := NewDecoder(wide).ReadUint64(); !errors.Is(err, ErrOverflow) {
		t.Errorf("2^64 into uint64: expected ErrOverflow, got %v", err)
	}

	// Unsigned reads reject signed tags outright, even for values that
	// would fit.
	neg := enc(t, func(e *Encoder) { e.WriteInt64(-5) })
	if _, err := NewDecoder(neg).ReadUint64(); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("negative fixint into uint64: expected ErrTypeMismatch, got %v", err)
	}
	wideNeg := enc(t, func(e *Encoder) { e.WriteInt64(-4000) })
	if _, err := NewDecoder(wideNeg).ReadUint64(); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("int16 into uint64: expected ErrTypeMismatch, got %v", err)
	}
}

func TestReadInt64_AcceptsUnsignedThatFits(t *testing.T) {
	cases := []int64{0, 1, 127, 128, 300, 70000, math.MaxInt64, -1, -32, -33, -129, -32769, math.MinInt32, math.MinInt64}
	for _, want := range cases {
		data := enc(t, func(e *Encoder) { e.WriteInt64(want) })
		got, err := NewDecoder(data).ReadInt64()
		if err != nil {
			t.Errorf("ReadInt64(%d): %v", want, err)
			continue
		}
		if got != want {
			t.Errorf("ReadInt64 = %d, want %d", got, want)
		}
	}

	// An unsigned value above MaxInt64 must not silently wrap.
	big := enc(t, func(e *Encoder) { e.WriteUint64(math.MaxInt64 + 1) })
	if _, err := NewDecoder(big).ReadInt64(); !errors.Is(err, ErrOverflow) {
		t.Errorf("2^63 into int64: expected ErrOverflow, got %v", err)
	}
}

func TestReadInt64_WideTwosComplement(t *testing.T) {
	// int128/int256 forms carrying values that do fit int64.
	v := big.NewInt(-77)
	data := append([]byte{0xCE}, bytes.Repeat([]byte{0xFF}, 16)...)
	new(big.Int).Add(twoPow128, v).FillBytes(data[1:])
	got, err := NewDecoder(data).ReadInt64()
	if err != nil || got != -77 {
		t.Errorf("int128(-77) = %d, %v", got, err)
	}

	// And one that does not.
	minus2to100 := new(big.Int).Neg(bigPow2(100))
	data = enc(t, func(e *Encoder) { e.WriteBigInt(minus2to100) })
	if _, err := NewDecoder(data).ReadInt64(); !errors.Is(err, ErrOverflow) {
		t.Errorf("-2^100 into int64: expected ErrOverflow, got %v", err)
	}
}

func TestReadUint256_RoundTrip(t *testing.T) {
	cases := []*uint256.Int{
		uint256.NewInt(0),
		uint256.NewInt(127),
		uint256.NewInt(128),
		uint256.NewInt(1 << 20),
		uint256.NewInt(math.MaxUint64),
		pow2(64),
		pow2(127),
		new(uint256.Int).Sub(pow2(128), uint256.NewInt(1)),
		pow2(128),
		new(uint256.Int).Not(uint256.NewInt(0)), // 2^256-1
	}
	for _, want := range cases {
		data := enc(t, func(e *Encoder) { e.WriteUint256(want) })
		got, err := NewDecoder(data).ReadUint256()
		if err != nil {
			t.Errorf("ReadUint256(%s): %v", want.Dec(), err)
			continue
		}
		if !got.Eq(want) {
			t.Errorf("ReadUint256 = %s, want %s", got.Dec(), want.Dec())
		}
	}
}

func TestReadBigInt_RoundTrip(t *testing.T) {
	cases := []*big.Int{
		big.NewInt(0),
		big.NewInt(42),
		big.NewInt(-1),
		big.NewInt(math.MinInt64),
		new(big.Int).Sub(big.NewInt(math.MinInt64), big.NewInt(1)),
		new(big.Int).Neg(bigPow2(127)),
		new(big.Int).Sub(new(big.Int).Neg(bigPow2(127)), big.NewInt(1)),
		new(big.Int).Neg(bigPow2(255)),
		new(big.Int).Sub(bigPow2(256), big.NewInt(1)),
	}
	for _, want := range cases {
		data := enc(t, func(e *Encoder) { e.WriteBigInt(want) })
		got, err := NewDecoder(data).ReadBigInt()
		if err != nil {
			t.Errorf("ReadBigInt(%s): %v", want, err)
			continue
		}
		if got.Cmp(want) != 0 {
			t.Errorf("ReadBigInt = %s, want %s", got, want)
		}
	}
}

func TestPeekKind_NeverAdvances(t *testing.T) {
	data := enc(t, func(e *Encoder) {
		e.WriteMapHeader(1).
			WriteString("k").
			WriteArrayHeader(2).WriteUint64(1).WriteAddress(Address{0x01})
	})
	d := NewDecoder(data)

	for i := 0; i < 3; i++ {
		k, err := d.PeekKind()
		if err != nil {
			t.Fatalf("PeekKind: %v", err)
		}
		if k != KindMap {
			t.Fatalf("PeekKind = %s, want map", k)
		}
		if d.Pos() != 0 {
			t.Fatalf("peek moved the cursor to %d", d.Pos())
		}
	}

	// Peek-then-read consumes the same bytes as read alone.
	plain := NewDecoder(data)
	vPlain, err := plain.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	vPeeked, err := d.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue after peeks: %v", err)
	}
	if plain.Pos() != d.Pos() || !vPlain.Equal(vPeeked) {
		t.Fatal("peeking changed what a read consumed")
	}
}

// deepValue builds a nested structure touching every kind.
func deepValue() Value {
	wei := new(uint256.Int).Mul(uint256.NewInt(1_500_000), pow2(96))
	return Map(
		Entry("nil", Nil()),
		Entry("ok", Bool(true)),
		Entry("n", Uint64(1500000000000000000)),
		Entry("wei", Uint256(wei)),
		Entry("neg", BigInt(new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(3), 130)))),
		Entry("name", Str("Alice")),
		Entry("blob", Bin(bytes.Repeat([]byte{0xAB}, 300))),
		Entry("addr", Addr(Address{0xDE, 0xAD})),
		Entry("block", Block(Hash{0xBE, 0xEF})),
		Entry("list", Array(
			Uint64(1),
			Str("two"),
			Array(),
			Map(Entry("inner", Int64(-300))),
		)),
	)
}

func TestSkip_ByteExactWithRead(t *testing.T) {
	values := []Value{
		Nil(),
		Bool(false),
		Uint64(127),
		Uint64(128),
		Int64(-33),
		Str("Alice"),
		Bin(make([]byte, 256)),
		Addr(Address{}),
		Block(Hash{}),
		Array(),
		Map(),
		deepValue(),
	}
	for _, v := range values {
		data, err := Encode(v)
		if err != nil {
			t.Fatalf("Encode(%s): %v", v.Kind(), err)
		}

		reader := NewDecoder(data)
		if _, err := reader.ReadValue(); err != nil {
			t.Fatalf("ReadValue(%s): %v", v.Kind(), err)
		}

		skipper := NewDecoder(data)
		if err := skipper.Skip(); err != nil {
			t.Fatalf("Skip(%s): %v", v.Kind(), err)
		}

		if reader.Pos() != skipper.Pos() {
			t.Errorf("%s: read consumed %d bytes, skip consumed %d", v.Kind(), reader.Pos(), skipper.Pos())
		}
		if skipper.More() {
			t.Errorf("%s: skip left %d trailing byte(s)", v.Kind(), len(data)-skipper.Pos())
		}
	}
}

func TestSkip_WideHeaders(t *testing.T) {
	// array16 and map8 forms, to exercise the non-fix header paths.
	data := enc(t, func(e *Encoder) {
		e.WriteArrayHeader(300)
		for i := 0; i < 300; i++ {
			e.WriteUint64(uint64(i))
		}
	})
	d := NewDecoder(data)
	if err := d.Skip(); err != nil {
		t.Fatalf("Skip(array16): %v", err)
	}
	if d.More() {
		t.Fatal("skip did not drain the array16")
	}

	data = enc(t, func(e *Encoder) {
		e.WriteMapHeader(20)
		for i := 0; i < 20; i++ {
			e.WriteString("key").WriteBool(i%2 == 0)
		}
	})
	d = NewDecoder(data)
	if err := d.Skip(); err != nil {
		t.Fatalf("Skip(map8): %v", err)
	}
	if d.More() {
		t.Fatal("skip did not drain the map8")
	}
}

func TestRoundTrip_GenericDecode(t *testing.T) {
	values := []Value{
		Nil(),
		Bool(true),
		Bool(false),
		Uint64(0),
		Uint64(math.MaxUint64),
		Uint256(pow2(200)),
		Int64(-1),
		BigInt(new(big.Int).Neg(bigPow2(255))),
		Str(""),
		Str("héllo wörld"),
		Bin(nil),
		Addr(Address{0x11}),
		Block(Hash{0x22}),
		Array(Nil(), Bool(true)),
		Map(Entry("a", Uint64(1)), Entry("a", Uint64(2))), // duplicate keys survive the wire
		deepValue(),
	}
	for _, want := range values {
		data, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(%s): %v", want.Kind(), err)
		}
		if !got.Equal(want) {
			t.Errorf("round trip changed the value: %s -> %s", want, got)
		}
	}
}

func TestTruncation_EveryStrictPrefix(t *testing.T) {
	data, err := Encode(deepValue())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for n := 0; n < len(data); n++ {
		d := NewDecoder(data[:n])
		if _, err := d.ReadValue(); !errors.Is(err, ErrTruncated) {
			t.Fatalf("prefix of %d/%d bytes: expected ErrTruncated, got %v", n, len(data), err)
		}
		if err := NewDecoder(data[:n]).Skip(); !errors.Is(err, ErrTruncated) {
			t.Fatalf("skip on prefix of %d bytes: expected ErrTruncated, got %v", n, err)
		}
	}
}

func TestDecoder_SequentialValues(t *testing.T) {
	data := enc(t, func(e *Encoder) {
		e.WriteUint64(1).WriteString("two").WriteBool(true)
	})
	d := NewDecoder(data)

	var kinds []Kind
	for d.More() {
		v, err := d.ReadValue()
		if err != nil {
			t.Fatalf("ReadValue: %v", err)
		}
		kinds = append(kinds, v.Kind())
	}
	want := []Kind{KindUint, KindString, KindBool}
	if len(kinds) != len(want) {
		t.Fatalf("decoded %d values, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("value %d: kind %s, want %s", i, kinds[i], want[i])
		}
	}
	if d.Pos() != len(data) {
		t.Errorf("cursor at %d, want %d", d.Pos(), len(data))
	}
}

func TestDecode_TrailingData(t *testing.T) {
	data := append(enc(t, func(e *Encoder) { e.WriteUint64(1) }), 0x00)
	if _, err := Decode(data); err == nil {
		t.Fatal("Decode accepted trailing data")
	}

	vals, err := DecodeAll(data)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(vals) != 2 {
		t.Fatalf("DecodeAll returned %d values, want 2", len(vals))
	}
}

func TestDecoder_TypedReadsLeaveCursorOnMismatch(t *testing.T) {
	data := enc(t, func(e *Encoder) { e.WriteString("x").WriteUint64(9) })
	d := NewDecoder(data)

	if _, err := d.ReadUint64(); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if d.Pos() != 0 {
		t.Fatalf("failed typed read moved the cursor to %d", d.Pos())
	}

	// Recovery with the right read still works.
	if s, err := d.ReadString(); err != nil || s != "x" {
		t.Fatalf("ReadString after mismatch = %q, %v", s, err)
	}
	if v, err := d.ReadUint64(); err != nil || v != 9 {
		t.Fatalf("ReadUint64 = %d, %v", v, err)
	}
}

func FuzzDecode(f *testing.F) {
	seeds := [][]byte{
		{0xC0},
		{0x2A},
		{0x82, 0xA4, 't', 'e', 's', 't', 0x2A, 0xA5, 't', 'e', 's', 't', '2', 0x90},
		append([]byte{0xD4}, make([]byte, 20)...),
		append([]byte{0xD5}, make([]byte, 32)...),
		{0xC9, 0xFF},
		{0x91, 0x91, 0x91, 0xC0},
	}
	if data, err := Encode(deepValue()); err == nil {
		seeds = append(seeds, data)
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		d := NewDecoder(data)
		v, err := d.ReadValue()
		if err != nil {
			return
		}
		// Whatever decoded must skip to the same offset and re-encode to
		// something that decodes back equal.
		s := NewDecoder(data)
		if err := s.Skip(); err != nil {
			t.Fatalf("read succeeded but skip failed: %v", err)
		}
		if s.Pos() != d.Pos() {
			t.Fatalf("skip consumed %d bytes, read consumed %d", s.Pos(), d.Pos())
		}
		re, err := Encode(v)
		if err != nil {
			t.Fatalf("re-encode of decoded value failed: %v", err)
		}
		back, err := Decode(re)
		if err != nil {
			t.Fatalf("decode of re-encoded value failed: %v", err)
		}
		if !back.Equal(v) {
			t.Fatalf("re-encode round trip changed the value: %s -> %s", v, back)
		}
	})
}
