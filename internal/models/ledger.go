package models

import (
	"database/sql"
	"time"
)

// TransactionType classifies a ledger transaction.
type TransactionType string

const (
	TypeTopUp    TransactionType = "topup"
	TypePurchase TransactionType = "purchase"
	TypeBonus    TransactionType = "bonus"
	TypeRefund   TransactionType = "refund"
)

// Account is a balance holder. System accounts (Equity, Treasury) belong to
// the system user or to no user at all.
type Account struct {
	ID        int64         `json:"id" db:"id"`
	UserID    sql.NullInt64 `json:"user_id" db:"user_id"`
	Name      string        `json:"name" db:"name"`
	Currency  string        `json:"currency" db:"currency"`
	Balance   int64         `json:"balance" db:"balance"` // smallest currency unit
	Version   int           `json:"version" db:"version"` // bumped on every write, a hint for external readers
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// Transaction groups the postings of one all-or-nothing ledger operation.
// Immutable once committed.
type Transaction struct {
	ID          int64           `json:"id" db:"id"`
	ReferenceID string          `json:"reference_id" db:"reference_id"` // idempotency key
	Type        TransactionType `json:"type" db:"type"`
	Description string          `json:"description" db:"description"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Posting is one signed entry against one account. The amounts of all
// postings belonging to a transaction sum to zero.
type Posting struct {
	ID            int64 `json:"id" db:"id"`
	TransactionID int64 `json:"transaction_id" db:"transaction_id"`
	AccountID     int64 `json:"account_id" db:"account_id"`
	Amount        int64 `json:"amount" db:"amount"` // positive credits, negative debits
}

// Entry is a candidate posting supplied by a caller: a signed amount
// against an account.
type Entry struct {
	AccountID int64
	Amount    int64
}
