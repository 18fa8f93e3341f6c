package services

import (
	"github.com/dinoventures/wallet-backend/internal/errors"
	"github.com/dinoventures/wallet-backend/internal/models"
)

// BalanceRules decides whether a candidate set of postings is admissible
// and computes the resulting balances. Pure logic, no I/O.
type BalanceRules struct {
	exempt map[string]struct{}
}

// NewBalanceRules builds a rule engine whose exempt account names may go
// negative.
func NewBalanceRules(exemptNames []string) *BalanceRules {
	exempt := make(map[string]struct{}, len(exemptNames))
	for _, name := range exemptNames {
		exempt[name] = struct{}{}
	}
	return &BalanceRules{exempt: exempt}
}

// Evaluate checks the double-entry rules against the current balances and
// returns the new balance per touched account. Entries hitting the same
// account are netted before the non-negative check so a transaction is
// judged on its overall effect, not entry by entry.
func (r *BalanceRules) Evaluate(entries []models.Entry, balances map[int64]int64, names map[int64]string) (map[int64]int64, error) {
	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}
	if sum != 0 {
		return nil, errors.NewUnbalancedEntries(sum)
	}

	net := make(map[int64]int64, len(entries))
	order := make([]int64, 0, len(entries))
	for _, e := range entries {
		if _, seen := net[e.AccountID]; !seen {
			order = append(order, e.AccountID)
		}
		net[e.AccountID] += e.Amount
	}

	result := make(map[int64]int64, len(net))
	for _, accountID := range order {
		newBalance := balances[accountID] + net[accountID]
		if newBalance < 0 {
			if _, ok := r.exempt[names[accountID]]; !ok {
				return nil, errors.NewInsufficientFunds(accountID)
			}
		}
		result[accountID] = newBalance
	}
	return result, nil
}
