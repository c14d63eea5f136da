package ledger

import (
	"math/rand"
	"testing"

	"dompet/internal/core"
)

func rm(v int64) core.Money { return core.MoneyFromInt(v) }

func TestApplyAdd(t *testing.T) {
	tests := []struct {
		name      string
		balance   core.Money
		amount    core.Money
		isExpense bool
		want      core.Money
	}{
		{"expense reduces balance", rm(1000), rm(100), true, rm(900)},
		{"income increases balance", rm(1000), rm(200), false, rm(1200)},
		{"overdraft allowed", rm(50), rm(80), true, rm(-30)},
		{"sen precision", core.MoneyFromCents(1000), core.MoneyFromCents(1), true, core.MoneyFromCents(999)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyAdd(tt.balance, tt.amount, tt.isExpense)
			if !got.Equal(tt.want) {
				t.Errorf("ApplyAdd() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestApplyDelete(t *testing.T) {
	if got := ApplyDelete(rm(900), rm(100), true); !got.Equal(rm(1000)) {
		t.Errorf("deleting an expense: got %s, want 1000", got)
	}
	if got := ApplyDelete(rm(1200), rm(200), false); !got.Equal(rm(1000)) {
		t.Errorf("deleting an income: got %s, want 1000", got)
	}
	if got := ApplyDelete(rm(100), rm(300), false); !got.Equal(rm(-200)) {
		t.Errorf("deleting an income into overdraft: got %s, want -200", got)
	}
}

func TestApplyEdit(t *testing.T) {
	tests := []struct {
		name          string
		balance       core.Money
		oldAmount     core.Money
		oldWasExpense bool
		newAmount     core.Money
		newIsExpense  bool
		want          core.Money
	}{
		{"larger expense", rm(900), rm(100), true, rm(150), true, rm(850)},
		{"expense to income", rm(900), rm(100), true, rm(100), false, rm(1100)},
		{"income to expense", rm(1200), rm(200), false, rm(200), true, rm(800)},
		{"smaller income", rm(1200), rm(200), false, rm(50), false, rm(1050)},
		{"unchanged", rm(900), rm(100), true, rm(100), true, rm(900)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyEdit(tt.balance, tt.oldAmount, tt.oldWasExpense, tt.newAmount, tt.newIsExpense)
			if !got.Equal(tt.want) {
				t.Errorf("ApplyEdit() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMove(t *testing.T) {
	old := Effect{Amount: rm(100), IsExpense: true}
	next := Effect{Amount: rm(150), IsExpense: true}

	source, target := Move(rm(900), rm(500), old, next)
	if !source.Equal(rm(1000)) {
		t.Errorf("source = %s, want 1000", source)
	}
	if !target.Equal(rm(350)) {
		t.Errorf("target = %s, want 350", target)
	}
}

func TestEffectOf(t *testing.T) {
	e := EffectOf(core.Transaction{Amount: rm(42), IsExpense: true})
	if !e.Signed().Equal(rm(-42)) || !e.Reverse().Equal(rm(42)) {
		t.Fatalf("unexpected effect %+v", e)
	}
}

func randomMoney(r *rand.Rand, signed bool) core.Money {
	cents := r.Int63n(10_000_000)
	if signed && r.Intn(2) == 0 {
		cents = -cents
	}
	return core.MoneyFromCents(cents)
}

func TestReconcilerLaws(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		balance := randomMoney(r, true)
		a := randomMoney(r, false)
		b := randomMoney(r, false)
		e1 := r.Intn(2) == 0
		e2 := r.Intn(2) == 0

		if got := ApplyDelete(ApplyAdd(balance, a, e1), a, e1); !got.Equal(balance) {
			t.Fatalf("add/delete not inverse: balance=%s amount=%s expense=%v got=%s", balance, a, e1, got)
		}
		if got := ApplyEdit(balance, a, e1, a, e1); !got.Equal(balance) {
			t.Fatalf("identity edit changed balance: %s -> %s", balance, got)
		}

		edited := ApplyEdit(balance, a, e1, b, e2)
		if got := ApplyEdit(edited, b, e2, a, e1); !got.Equal(balance) {
			t.Fatalf("inverse edit did not restore balance: %s -> %s", balance, got)
		}

		// Editing equals deleting the old transaction and adding the new one.
		viaDeleteAdd := ApplyAdd(ApplyDelete(balance, a, e1), b, e2)
		if !edited.Equal(viaDeleteAdd) {
			t.Fatalf("edit %s != delete+add %s", edited, viaDeleteAdd)
		}
	}
}
