// Package balance implements pure delta arithmetic on account balances.
//
// All functions are side-effect free and round every output to two decimal
// places with banker's rounding. The zero value of Balance is a valid
// all-zero balance.
package balance

import "github.com/shopspring/decimal"

// Balance is the triple of derived balances an account carries.
// Working is always Cleared + Uncleared.
type Balance struct {
	Cleared   decimal.Decimal
	Uncleared decimal.Decimal
	Working   decimal.Decimal
}

// New returns a Balance with all fields rounded to cents.
func New(cleared, uncleared decimal.Decimal) Balance {
	b := Balance{
		Cleared:   cleared.RoundBank(2),
		Uncleared: uncleared.RoundBank(2),
	}
	b.Working = b.Cleared.Add(b.Uncleared).RoundBank(2)
	return b
}

// ApplyTransaction adds a transaction amount to the cleared or uncleared
// bucket and recomputes the working balance.
func ApplyTransaction(b Balance, amount decimal.Decimal, cleared bool) Balance {
	amount = amount.RoundBank(2)

	if cleared {
		return New(b.Cleared.Add(amount), b.Uncleared)
	}
	return New(b.Cleared, b.Uncleared.Add(amount))
}

// RevertTransaction is the inverse of ApplyTransaction.
func RevertTransaction(b Balance, amount decimal.Decimal, cleared bool) Balance {
	return ApplyTransaction(b, amount.Neg(), cleared)
}

// ToggleCleared moves an amount between the cleared and uncleared buckets
// when the cleared flag of a transaction changes. It is the identity when
// the flag does not change.
func ToggleCleared(b Balance, amount decimal.Decimal, wasCleared, isCleared bool) Balance {
	if wasCleared == isCleared {
		return New(b.Cleared, b.Uncleared)
	}

	amount = amount.RoundBank(2)
	if isCleared {
		return New(b.Cleared.Add(amount), b.Uncleared.Sub(amount))
	}
	return New(b.Cleared.Sub(amount), b.Uncleared.Add(amount))
}
