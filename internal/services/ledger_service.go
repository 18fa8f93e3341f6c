package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log"
	"sort"

	"github.com/lib/pq"

	"github.com/dinoventures/wallet-backend/internal/config"
	"github.com/dinoventures/wallet-backend/internal/errors"
	"github.com/dinoventures/wallet-backend/internal/models"
)

// LedgerService applies double-entry transactions against the accounts,
// transactions and postings tables. Every Process call is one database
// transaction: idempotency check, row locking, rule evaluation and the
// durable writes all commit together or not at all.
type LedgerService struct {
	db    *sql.DB
	rules *BalanceRules
}

func NewLedgerService(db *sql.DB, cfg *config.LedgerConfig) *LedgerService {
	return &LedgerService{
		db:    db,
		rules: NewBalanceRules(cfg.ExemptAccounts),
	}
}

// Process records one ledger transaction. Entries must sum to zero; the
// sum is checked before the store is touched. A reference id that was
// already used fails with DuplicateReferenceError and changes nothing.
func (s *LedgerService) Process(ctx context.Context, referenceID string, txType models.TransactionType, description string, entries []models.Entry) (*models.Transaction, error) {
	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}
	if sum != 0 {
		return nil, errors.NewUnbalancedEntries(sum)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewLedgerError("begin", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM transactions WHERE reference_id = $1`,
		referenceID).Scan(&existingID)
	if err == nil {
		return nil, errors.NewDuplicateReference(referenceID)
	}
	if err != sql.ErrNoRows {
		return nil, errors.NewLedgerError("idempotency check", err)
	}

	accounts, err := s.lockAccounts(ctx, tx, entries)
	if err != nil {
		return nil, err
	}

	balances := make(map[int64]int64, len(accounts))
	names := make(map[int64]string, len(accounts))
	for _, acc := range accounts {
		balances[acc.ID] = acc.Balance
		names[acc.ID] = acc.Name
	}

	newBalances, err := s.rules.Evaluate(entries, balances, names)
	if err != nil {
		return nil, err
	}

	record := &models.Transaction{
		ReferenceID: referenceID,
		Type:        txType,
		Description: description,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (reference_id, type, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		referenceID, string(txType), description).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.NewDuplicateReference(referenceID)
		}
		return nil, errors.NewLedgerError("insert transaction", err)
	}

	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO postings (transaction_id, account_id, amount)
			VALUES ($1, $2, $3)`,
			record.ID, e.AccountID, e.Amount); err != nil {
			return nil, errors.NewLedgerError("insert posting", err)
		}
	}

	for _, acc := range accounts {
		if err := s.updateAccountBalance(ctx, tx, acc.ID, newBalances[acc.ID]); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			// A concurrent submit with the same reference id won the
			// race after our lookup; same outcome as the lookup hit.
			return nil, errors.NewDuplicateReference(referenceID)
		}
		return nil, errors.NewLedgerError("commit", err)
	}

	log.Printf("[LEDGER] Committed transaction %d (reference: %s, type: %s)", record.ID, referenceID, txType)
	return record, nil
}

// lockAccounts takes exclusive row locks on the distinct accounts touched
// by entries. Ids are locked in ascending order so two operations with
// overlapping account sets can never deadlock each other.
func (s *LedgerService) lockAccounts(ctx context.Context, tx *sql.Tx, entries []models.Entry) ([]models.Account, error) {
	seen := make(map[int64]struct{}, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.AccountID]; !ok {
			seen[e.AccountID] = struct{}{}
			ids = append(ids, e.AccountID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows, err := tx.QueryContext(ctx, `
		SELECT id, user_id, name, currency, balance, version
		FROM accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`, pq.Array(ids))
	if err != nil {
		return nil, errors.NewLedgerError("lock accounts", err)
	}
	defer rows.Close()

	accounts := make([]models.Account, 0, len(ids))
	for rows.Next() {
		var acc models.Account
		if err := rows.Scan(&acc.ID, &acc.UserID, &acc.Name, &acc.Currency, &acc.Balance, &acc.Version); err != nil {
			return nil, errors.NewLedgerError("scan account", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewLedgerError("lock accounts", err)
	}

	if len(accounts) != len(ids) {
		found := make(map[int64]struct{}, len(accounts))
		for _, acc := range accounts {
			found[acc.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				return nil, errors.NewAccountNotFound(id)
			}
		}
	}
	return accounts, nil
}

// The version bump is a change hint for optimistic external readers; the
// FOR UPDATE lock is what makes the write itself safe.
func (s *LedgerService) updateAccountBalance(ctx context.Context, tx *sql.Tx, accountID, newBalance int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, version = version + 1
		WHERE id = $2`,
		newBalance, accountID)
	if err != nil {
		return errors.NewLedgerError("update balance", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewLedgerError("update balance", err)
	}
	if rowsAffected == 0 {
		return errors.NewAccountNotFound(accountID)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == "23505"
}
