package dewberry

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestFieldHelpers_ByteIdentical(t *testing.T) {
	addr := Address{0xAA}
	hash := Hash{0xBB}
	wei := pow2(80)
	neg := new(big.Int).Neg(bigPow2(140))

	cases := []struct {
		name   string
		helper func(e *Encoder)
		manual func(e *Encoder)
	}{
		{
			"nil",
			func(e *Encoder) { e.WriteNilField("k") },
			func(e *Encoder) { e.WriteString("k").WriteNil() },
		},
		{
			"bool",
			func(e *Encoder) { e.WriteBoolField("k", true) },
			func(e *Encoder) { e.WriteString("k").WriteBool(true) },
		},
		{
			"uint64",
			func(e *Encoder) { e.WriteUint64Field("amount", 1000) },
			func(e *Encoder) { e.WriteString("amount").WriteUint64(1000) },
		},
		{
			"uint256",
			func(e *Encoder) { e.WriteUint256Field("wei", wei) },
			func(e *Encoder) { e.WriteString("wei").WriteUint256(wei) },
		},
		{
			"int64",
			func(e *Encoder) { e.WriteInt64Field("delta", -500) },
			func(e *Encoder) { e.WriteString("delta").WriteInt64(-500) },
		},
		{
			"bigint",
			func(e *Encoder) { e.WriteBigIntField("big", neg) },
			func(e *Encoder) { e.WriteString("big").WriteBigInt(neg) },
		},
		{
			"string",
			func(e *Encoder) { e.WriteStringField("op", "transfer") },
			func(e *Encoder) { e.WriteString("op").WriteString("transfer") },
		},
		{
			"bytes",
			func(e *Encoder) { e.WriteBytesField("raw", []byte{1, 2, 3}) },
			func(e *Encoder) { e.WriteString("raw").WriteBytes([]byte{1, 2, 3}) },
		},
		{
			"address",
			func(e *Encoder) { e.WriteAddressField("to", addr) },
			func(e *Encoder) { e.WriteString("to").WriteAddress(addr) },
		},
		{
			"hash",
			func(e *Encoder) { e.WriteHashField("id", hash) },
			func(e *Encoder) { e.WriteString("id").WriteHash(hash) },
		},
		{
			"value",
			func(e *Encoder) { e.WriteValueField("v", Array(Uint64(1), Nil())) },
			func(e *Encoder) { e.WriteString("v").WriteValue(Array(Uint64(1), Nil())) },
		},
	}
	for _, c := range cases {
		got := enc(t, c.helper)
		want := enc(t, c.manual)
		if !bytes.Equal(got, want) {
			t.Errorf("%s field helper: % X != % X", c.name, got, want)
		}
	}
}

func TestArrayHelpers_ByteIdentical(t *testing.T) {
	strs := []string{"a", "bb", "ccc"}
	got := enc(t, func(e *Encoder) { e.WriteStringArray(strs) })
	want := enc(t, func(e *Encoder) {
		e.WriteArrayHeader(len(strs))
		for _, s := range strs {
			e.WriteString(s)
		}
	})
	if !bytes.Equal(got, want) {
		t.Errorf("WriteStringArray: % X != % X", got, want)
	}

	nums := []uint64{0, 127, 128, 1 << 40}
	got = enc(t, func(e *Encoder) { e.WriteUint64Array(nums) })
	want = enc(t, func(e *Encoder) {
		e.WriteArrayHeader(len(nums))
		for _, v := range nums {
			e.WriteUint64(v)
		}
	})
	if !bytes.Equal(got, want) {
		t.Errorf("WriteUint64Array: % X != % X", got, want)
	}

	addrs := []Address{{0x01}, {0x02}}
	got = enc(t, func(e *Encoder) { e.WriteAddressArray(addrs) })
	want = enc(t, func(e *Encoder) {
		e.WriteArrayHeader(len(addrs))
		for _, a := range addrs {
			e.WriteAddress(a)
		}
	})
	if !bytes.Equal(got, want) {
		t.Errorf("WriteAddressArray: % X != % X", got, want)
	}
}

func TestArrayReaders_RoundTrip(t *testing.T) {
	strs := []string{"x", "yy"}
	data := enc(t, func(e *Encoder) { e.WriteStringArray(strs) })
	gotStrs, err := NewDecoder(data).ReadStringArray()
	if err != nil {
		t.Fatalf("ReadStringArray: %v", err)
	}
	if len(gotStrs) != 2 || gotStrs[0] != "x" || gotStrs[1] != "yy" {
		t.Errorf("ReadStringArray = %v", gotStrs)
	}

	nums := []uint64{5, 500, 1 << 50}
	data = enc(t, func(e *Encoder) { e.WriteUint64Array(nums) })
	gotNums, err := NewDecoder(data).ReadUint64Array()
	if err != nil {
		t.Fatalf("ReadUint64Array: %v", err)
	}
	for i := range nums {
		if gotNums[i] != nums[i] {
			t.Errorf("ReadUint64Array[%d] = %d, want %d", i, gotNums[i], nums[i])
		}
	}

	addrs := []Address{{0xEE}, {0xFF}}
	data = enc(t, func(e *Encoder) { e.WriteAddressArray(addrs) })
	gotAddrs, err := NewDecoder(data).ReadAddressArray()
	if err != nil {
		t.Fatalf("ReadAddressArray: %v", err)
	}
	if len(gotAddrs) != 2 || gotAddrs[0] != addrs[0] || gotAddrs[1] != addrs[1] {
		t.Errorf("ReadAddressArray = %v", gotAddrs)
	}
}

func TestSkipField_SelectiveDecode(t *testing.T) {
	// A three-field map, read one field, skip the other two; the cursor
	// must land exactly at the end of the buffer.
	data := enc(t, func(e *Encoder) {
		e.WriteMapHeader(3).
			WriteUint256Field("balance", new(uint256.Int).Mul(uint256.NewInt(7), pow2(90))).
			WriteStringField("owner", "Alice").
			WriteValueField("meta", Map(Entry("v", Uint64(2))))
	})
	d := NewDecoder(data)

	n, err := d.ReadMapHeader()
	if err != nil || n != 3 {
		t.Fatalf("ReadMapHeader = %d, %v", n, err)
	}

	key, err := d.ReadString()
	if err != nil || key != "balance" {
		t.Fatalf("first key = %q, %v", key, err)
	}
	if _, err := d.ReadUint256(); err != nil {
		t.Fatalf("ReadUint256: %v", err)
	}

	if err := d.SkipField(); err != nil {
		t.Fatalf("SkipField 1: %v", err)
	}
	if err := d.SkipField(); err != nil {
		t.Fatalf("SkipField 2: %v", err)
	}

	if d.Pos() != len(data) || d.More() {
		t.Fatalf("cursor at %d after selective decode, want %d", d.Pos(), len(data))
	}
}
