package token

import (
	"bytes"
	"errors"
	"testing"

	"github.com/blockberries/dewberry"
	"github.com/holiman/uint256"
)

func addr(b byte) dewberry.Address {
	var a dewberry.Address
	a[19] = b
	return a
}

// wei converts whole tokens to wei (1e18 per token).
func wei(tokens uint64) *uint256.Int {
	scale := uint256.NewInt(1_000_000_000_000_000_000)
	return new(uint256.Int).Mul(uint256.NewInt(tokens), scale)
}

func mustApply(t *testing.T, l *Ledger, tx []byte) []byte {
	t.Helper()
	ev, err := l.Apply(tx)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return ev
}

func TestMintTransferBurn(t *testing.T) {
	l := New()
	alice, bob := addr(1), addr(2)

	mustApply(t, l, MintTx(alice, wei(100)))
	mustApply(t, l, TransferTx(alice, bob, wei(30)))
	mustApply(t, l, BurnTx(bob, wei(10)))

	if got := l.BalanceOf(alice); !got.Eq(wei(70)) {
		t.Errorf("alice balance = %s, want %s", got, wei(70))
	}
	if got := l.BalanceOf(bob); !got.Eq(wei(20)) {
		t.Errorf("bob balance = %s, want %s", got, wei(20))
	}
	if got := l.TotalSupply(); !got.Eq(wei(90)) {
		t.Errorf("supply = %s, want %s", got, wei(90))
	}
	if l.Height() != 3 {
		t.Errorf("height = %d, want 3", l.Height())
	}
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	l := New()
	alice, bob := addr(1), addr(2)
	mustApply(t, l, MintTx(alice, wei(5)))

	if _, err := l.Apply(TransferTx(alice, bob, wei(6))); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if !l.BalanceOf(alice).Eq(wei(5)) {
		t.Error("rejected transfer changed the sender balance")
	}
	if !l.BalanceOf(bob).IsZero() {
		t.Error("rejected transfer credited the recipient")
	}
	if l.Height() != 1 {
		t.Errorf("rejected tx advanced height to %d", l.Height())
	}
}

func TestApproveAndTransferFrom(t *testing.T) {
	l := New()
	owner, spender, dest := addr(1), addr(2), addr(3)
	mustApply(t, l, MintTx(owner, wei(50)))
	mustApply(t, l, ApproveTx(owner, spender, wei(20)))

	if got := l.Allowance(owner, spender); !got.Eq(wei(20)) {
		t.Fatalf("allowance = %s, want %s", got, wei(20))
	}

	mustApply(t, l, TransferFromTx(spender, owner, dest, wei(15)))
	if got := l.Allowance(owner, spender); !got.Eq(wei(5)) {
		t.Errorf("allowance after spend = %s, want %s", got, wei(5))
	}
	if got := l.BalanceOf(dest); !got.Eq(wei(15)) {
		t.Errorf("dest balance = %s, want %s", got, wei(15))
	}

	if _, err := l.Apply(TransferFromTx(spender, owner, dest, wei(6))); !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("expected ErrInsufficientAllowance, got %v", err)
	}

	// Spending the exact remainder clears the allowance entry.
	mustApply(t, l, TransferFromTx(spender, owner, dest, wei(5)))
	if got := l.Allowance(owner, spender); !got.IsZero() {
		t.Errorf("exhausted allowance = %s, want 0", got)
	}
}

func TestMint_SupplyOverflow(t *testing.T) {
	l := New()
	max := new(uint256.Int).SetAllOne()
	mustApply(t, l, MintTx(addr(1), max))

	if _, err := l.Apply(MintTx(addr(2), uint256.NewInt(1))); !errors.Is(err, ErrSupplyOverflow) {
		t.Errorf("expected ErrSupplyOverflow, got %v", err)
	}
	if !l.TotalSupply().Eq(max) {
		t.Error("failed mint changed the supply")
	}
}

func TestApply_Rejections(t *testing.T) {
	l := New()

	if _, err := l.Apply([]byte{0xFF}); !errors.Is(err, ErrBadTx) {
		t.Errorf("garbage: expected ErrBadTx, got %v", err)
	}

	bad := finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(1).
		WriteStringField("op", "stake"))
	if _, err := l.Apply(bad); !errors.Is(err, ErrUnknownOp) {
		t.Errorf("unknown op: expected ErrUnknownOp, got %v", err)
	}

	missing := finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(2).
		WriteStringField("op", "mint").
		WriteAddressField("to", addr(1)))
	if _, err := l.Apply(missing); !errors.Is(err, ErrBadTx) {
		t.Errorf("missing amount: expected ErrBadTx, got %v", err)
	}
}

func TestApply_SkipsUnknownFields(t *testing.T) {
	l := New()
	tx := finalizeTx(dewberry.NewEncoder().
		WriteMapHeader(4).
		WriteStringField("op", "mint").
		WriteAddressField("to", addr(1)).
		WriteUint256Field("amount", wei(7)).
		WriteStringField("memo", "airdrop"))
	mustApply(t, l, tx)
	if !l.BalanceOf(addr(1)).Eq(wei(7)) {
		t.Error("tx with extra field not applied")
	}
}

func TestEventPayloads(t *testing.T) {
	l := New()
	alice, bob := addr(1), addr(2)
	mustApply(t, l, MintTx(alice, wei(10)))

	ev := mustApply(t, l, TransferTx(alice, bob, wei(4)))
	v, err := dewberry.Decode(ev)
	if err != nil {
		t.Fatalf("event is not a valid payload: %v", err)
	}
	if kind, _ := v.Get("kind"); kind.Str() != "transfer" {
		t.Errorf("kind = %s", kind)
	}
	if from, _ := v.Get("from"); from.Addr() != alice {
		t.Errorf("from = %s", from)
	}
	if amount, _ := v.Get("amount"); !amount.Uint().Eq(wei(4)) {
		t.Errorf("amount = %s", amount)
	}
}

func TestSnapshotRestore(t *testing.T) {
	l := New()
	mustApply(t, l, MintTx(addr(1), wei(100)))
	mustApply(t, l, TransferTx(addr(1), addr(2), wei(30)))
	mustApply(t, l, ApproveTx(addr(1), addr(3), wei(5)))

	data, err := l.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	restored, err := RestoreLedger(data)
	if err != nil {
		t.Fatalf("RestoreLedger: %v", err)
	}

	if !restored.BalanceOf(addr(1)).Eq(l.BalanceOf(addr(1))) {
		t.Error("restored balance differs")
	}
	if !restored.Allowance(addr(1), addr(3)).Eq(wei(5)) {
		t.Error("restored allowance differs")
	}
	if restored.Height() != l.Height() {
		t.Error("restored height differs")
	}
	if restored.StateRoot() != l.StateRoot() {
		t.Error("restored state root differs")
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	build := func(order []byte) *Ledger {
		l := New()
		for _, b := range order {
			mustApply(t, l, MintTx(addr(b), wei(uint64(b))))
		}
		return l
	}
	a := build([]byte{3, 1, 2})
	b := build([]byte{2, 3, 1})

	snapA, err := a.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	snapB, err := b.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(snapA, snapB) {
		t.Error("snapshot bytes depend on tx order")
	}
	if a.StateRoot() != b.StateRoot() {
		t.Error("state root depends on tx order")
	}
}

func TestRestore_BadData(t *testing.T) {
	if _, err := RestoreLedger([]byte{0xFF, 0xFF, 0xFF}); err == nil {
		t.Error("expected error restoring garbage")
	}
}
