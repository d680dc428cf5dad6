package dewberry

import (
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/holiman/uint256"
)

func TestValue_IntegerNormalization(t *testing.T) {
	// Non-negative integers are always KindUint, whatever constructor
	// built them, so structural equality matches semantic equality.
	if k := Int64(42).Kind(); k != KindUint {
		t.Errorf("Int64(42).Kind() = %s, want uint", k)
	}
	if k := BigInt(big.NewInt(1000)).Kind(); k != KindUint {
		t.Errorf("BigInt(1000).Kind() = %s, want uint", k)
	}
	if k := Int64(-1).Kind(); k != KindInt {
		t.Errorf("Int64(-1).Kind() = %s, want int", k)
	}

	if !Int64(42).Equal(Uint64(42)) {
		t.Error("Int64(42) != Uint64(42)")
	}
	if !Uint256(uint256.NewInt(42)).Equal(Uint64(42)) {
		t.Error("Uint256(42) != Uint64(42)")
	}
	if !BigInt(big.NewInt(42)).Equal(Uint64(42)) {
		t.Error("BigInt(42) != Uint64(42)")
	}
	if !BigInt(big.NewInt(-9)).Equal(Int64(-9)) {
		t.Error("BigInt(-9) != Int64(-9)")
	}

	// Wide magnitudes normalize down when they fit 64 bits.
	narrow := new(uint256.Int).SetUint64(77)
	if !Uint256(narrow).Equal(Uint64(77)) {
		t.Error("narrow Uint256 did not fold into the fast path")
	}
}

func TestValue_Equal(t *testing.T) {
	wide := pow2(100)
	pairs := []struct {
		a, b  Value
		equal bool
	}{
		{Nil(), Nil(), true},
		{Nil(), Bool(false), false},
		{Bool(true), Bool(true), true},
		{Bool(true), Bool(false), false},
		{Uint256(wide), Uint256(wide), true},
		{Uint256(wide), Uint64(100), false},
		{Str("a"), Str("a"), true},
		{Str("a"), Bin([]byte("a")), false},
		{Addr(Address{1}), Addr(Address{1}), true},
		{Addr(Address{1}), Addr(Address{2}), false},
		{Block(Hash{3}), Block(Hash{3}), true},
		{Array(Uint64(1)), Array(Uint64(1)), true},
		{Array(Uint64(1)), Array(Uint64(1), Uint64(2)), false},
		{Map(Entry("k", Nil())), Map(Entry("k", Nil())), true},
		// Order matters: maps are ordered sequences on the wire.
		{
			Map(Entry("a", Uint64(1)), Entry("b", Uint64(2))),
			Map(Entry("b", Uint64(2)), Entry("a", Uint64(1))),
			false,
		},
		{Value{}, Value{}, false}, // invalid never equals anything
	}
	for i, p := range pairs {
		if got := p.a.Equal(p.b); got != p.equal {
			t.Errorf("case %d: Equal(%s, %s) = %v, want %v", i, p.a, p.b, got, p.equal)
		}
		if got := p.b.Equal(p.a); got != p.equal {
			t.Errorf("case %d: Equal not symmetric", i)
		}
	}
}

func TestValue_AccessorsCopy(t *testing.T) {
	src := []byte{1, 2, 3}
	v := Bin(src)
	src[0] = 99
	if v.Bin()[0] != 1 {
		t.Error("Bin constructor aliased its argument")
	}
	out := v.Bin()
	out[1] = 99
	if v.Bin()[1] != 2 {
		t.Error("Bin accessor aliased the payload")
	}

	w := uint256.NewInt(5)
	uv := Uint256(pow2(70))
	got := uv.Uint()
	got.Set(w)
	if !uv.Uint().Eq(pow2(70)) {
		t.Error("Uint accessor aliased the magnitude")
	}

	ents := []MapEntry{Entry("k", Nil())}
	mv := Map(ents...)
	ents[0].Key = "changed"
	if mv.Entries()[0].Key != "k" {
		t.Error("Map constructor aliased its entries")
	}
}

func TestValue_Get(t *testing.T) {
	m := Map(
		Entry("a", Uint64(1)),
		Entry("b", Str("two")),
		Entry("a", Uint64(3)), // duplicate: Get returns the first
	)
	if v, ok := m.Get("a"); !ok || v.Uint64() != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if v, ok := m.Get("b"); !ok || v.Str() != "two" {
		t.Errorf("Get(b) = %v, %v", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get found a missing key")
	}
}

func TestValue_WrongKindPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected a panic")
		}
		msg, ok := r.(string)
		if !ok || !strings.HasPrefix(msg, "github.com/blockberries/dewberry: ") {
			t.Fatalf("unexpected panic value: %v", r)
		}
	}()
	Str("nope").Uint64()
}

func TestValue_Int64AcceptsFittingUint(t *testing.T) {
	if got := Uint64(100).Int64(); got != 100 {
		t.Errorf("Uint64(100).Int64() = %d", got)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for uint beyond int64")
		}
	}()
	Uint64(math.MaxUint64).Int64()
}

func TestValue_String(t *testing.T) {
	v := Map(
		Entry("n", Uint64(42)),
		Entry("who", Str("Alice")),
		Entry("raw", Bin([]byte{0xDE, 0xAD})),
		Entry("more", Array(Nil(), Bool(true), Int64(-5))),
	)
	want := `{"n": 42, "who": "Alice", "raw": 0xdead, "more": [null, true, -5]}`
	if got := v.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}

	if got := Uint256(pow2(128)).String(); got != pow2(128).Dec() {
		t.Errorf("wide uint String() = %s", got)
	}
	if got := (Value{}).String(); got != "<invalid>" {
		t.Errorf("invalid String() = %s", got)
	}
}

func TestAddressHash_Hex(t *testing.T) {
	a := Address{0xAB, 0xCD}
	if got := a.String(); !strings.HasPrefix(got, "0xabcd") || len(got) != 2+40 {
		t.Errorf("Address.String() = %s", got)
	}
	h := Hash{0x01}
	if got := h.String(); !strings.HasPrefix(got, "0x01") || len(got) != 2+64 {
		t.Errorf("Hash.String() = %s", got)
	}
}
