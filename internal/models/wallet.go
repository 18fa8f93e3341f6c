package models

import "time"

// WalletRequest is the shared request body for top-up, bonus, spend and
// refund endpoints. Amounts are positive; the handler decides signs.
type WalletRequest struct {
	UserID      int64  `json:"user_id" validate:"required,gt=0"`
	ReferenceID string `json:"reference_id" validate:"required,max=128"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description" validate:"max=200"`
}

type TransactionResponse struct {
	ID          int64           `json:"id"`
	ReferenceID string          `json:"reference_id"`
	Type        TransactionType `json:"type"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

type AccountSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Balance  int64  `json:"balance"`
}

type BalanceResponse struct {
	UserID       int64            `json:"user_id"`
	TotalBalance int64            `json:"total_balance"`
	Accounts     []AccountSummary `json:"accounts"`
}

// HistoryEntry is one posting joined with its owning transaction, as shown
// in a user's transaction history.
type HistoryEntry struct {
	TransactionID int64           `json:"transaction_id"`
	ReferenceID   string          `json:"reference_id"`
	Type          TransactionType `json:"type"`
	Description   string          `json:"description"`
	AccountID     int64           `json:"account_id"`
	Amount        int64           `json:"amount"`
	CreatedAt     time.Time       `json:"created_at"`
}
