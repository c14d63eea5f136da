// Package ledger computes how recording, editing or deleting a transaction
// changes an account balance.
//
// The functions are pure: they take the current balance snapshot and return
// the next one. Serializing the read-modify-write against stored balances is
// the job of the store that calls them. Balances have no lower bound.
package ledger

import "dompet/internal/core"

// Effect is the directional impact of one recorded transaction.
// Amount is a magnitude; IsExpense selects the sign.
type Effect struct {
	Amount    core.Money
	IsExpense bool
}

// EffectOf returns the effect a stored transaction has on its account.
func EffectOf(t core.Transaction) Effect {
	return Effect{Amount: t.Amount, IsExpense: t.IsExpense}
}

// Signed is the change the effect applies to a balance.
func (e Effect) Signed() core.Money {
	if e.IsExpense {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Reverse is the change that undoes the effect.
func (e Effect) Reverse() core.Money {
	return e.Signed().Neg()
}

// ApplyAdd records a new transaction against balance.
func ApplyAdd(balance, amount core.Money, isExpense bool) core.Money {
	return balance.Add(Effect{Amount: amount, IsExpense: isExpense}.Signed())
}

// ApplyDelete undoes a previously recorded transaction.
func ApplyDelete(balance, amount core.Money, wasExpense bool) core.Money {
	return balance.Add(Effect{Amount: amount, IsExpense: wasExpense}.Reverse())
}

// ApplyEdit replaces an old transaction with a new one in two steps: the old
// effect is fully reversed, then the new effect is applied.
// ApplyEdit(b, a, e, a, e) == b.
func ApplyEdit(balance, oldAmount core.Money, oldWasExpense bool, newAmount core.Money, newIsExpense bool) core.Money {
	old := Effect{Amount: oldAmount, IsExpense: oldWasExpense}
	next := Effect{Amount: newAmount, IsExpense: newIsExpense}
	return balance.Add(old.Reverse()).Add(next.Signed())
}

// Move handles an edit that also changes the account: the old effect is
// removed from source and the new effect is recorded on target.
func Move(source, target core.Money, old, next Effect) (core.Money, core.Money) {
	return source.Add(old.Reverse()), target.Add(next.Signed())
}
