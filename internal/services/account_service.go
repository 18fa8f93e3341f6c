package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/dinoventures/wallet-backend/internal/config"
	"github.com/dinoventures/wallet-backend/internal/errors"
	"github.com/dinoventures/wallet-backend/internal/models"
)

// AccountService answers advisory, read-only account queries. Reads take
// no locks and may trail an in-flight ledger operation; they are never
// used to gate a posting decision.
type AccountService struct {
	db    *sql.DB
	redis *redis.Client
	cfg   *config.LedgerConfig
}

func NewAccountService(db *sql.DB, redisClient *redis.Client, cfg *config.LedgerConfig) *AccountService {
	return &AccountService{
		db:    db,
		redis: redisClient,
		cfg:   cfg,
	}
}

const accountColumns = "id, user_id, name, currency, balance, version, created_at"

func (s *AccountService) GetAccountsForUser(ctx context.Context, userID int64) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1
		ORDER BY id`, userID)
	if err != nil {
		return nil, errors.NewLedgerError("list accounts", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var acc models.Account
		if err := rows.Scan(&acc.ID, &acc.UserID, &acc.Name, &acc.Currency, &acc.Balance, &acc.Version, &acc.CreatedAt); err != nil {
			return nil, errors.NewLedgerError("scan account", err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewLedgerError("list accounts", err)
	}
	return accounts, nil
}

// GetPrimaryAccount returns the wallet a ledger operation targets when a
// user owns several: always the lowest account id, so the choice is
// stable across calls.
func (s *AccountService) GetPrimaryAccount(ctx context.Context, userID int64) (*models.Account, error) {
	var acc models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = $1
		ORDER BY id
		LIMIT 1`, userID).Scan(&acc.ID, &acc.UserID, &acc.Name, &acc.Currency, &acc.Balance, &acc.Version, &acc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrWalletNotFound
	}
	if err != nil {
		return nil, errors.NewLedgerError("get primary account", err)
	}
	return &acc, nil
}

func (s *AccountService) GetSystemAccount(ctx context.Context, name string) (*models.Account, error) {
	var acc models.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE name = $1
		LIMIT 1`, name).Scan(&acc.ID, &acc.UserID, &acc.Name, &acc.Currency, &acc.Balance, &acc.Version, &acc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrSystemAccountNotFound
	}
	if err != nil {
		return nil, errors.NewLedgerError("get system account", err)
	}
	return &acc, nil
}

// GetBalance reads one account balance, served from the Redis cache when
// warm. Cached values are advisory snapshots with a short TTL.
func (s *AccountService) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, balanceKey(accountID)).Int64(); err == nil {
			return cached, nil
		}
	}

	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = $1`,
		accountID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, errors.NewAccountNotFound(accountID)
	}
	if err != nil {
		return 0, errors.NewLedgerError("get balance", err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, balanceKey(accountID), balance, s.cfg.BalanceCacheTTL).Err(); err != nil {
			log.Printf("[ACCOUNTS] Failed to cache balance for account %d: %v", accountID, err)
		}
	}
	return balance, nil
}

// InvalidateBalances drops cached balances after a committed ledger
// operation touched the accounts.
func (s *AccountService) InvalidateBalances(ctx context.Context, accountIDs []int64) {
	if s.redis == nil || len(accountIDs) == 0 {
		return
	}
	keys := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		keys[i] = balanceKey(id)
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[ACCOUNTS] Failed to invalidate balance cache: %v", err)
	}
}

// GetHistoryForUser lists the user's postings newest first, each joined
// with its owning transaction.
func (s *AccountService) GetHistoryForUser(ctx context.Context, userID int64) ([]models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.reference_id, t.type, t.description, p.account_id, p.amount, t.created_at
		FROM postings p
		JOIN transactions t ON t.id = p.transaction_id
		JOIN accounts a ON a.id = p.account_id
		WHERE a.user_id = $1
		ORDER BY t.created_at DESC, p.id DESC`, userID)
	if err != nil {
		return nil, errors.NewLedgerError("list history", err)
	}
	defer rows.Close()

	var history []models.HistoryEntry
	for rows.Next() {
		var entry models.HistoryEntry
		if err := rows.Scan(&entry.TransactionID, &entry.ReferenceID, &entry.Type, &entry.Description, &entry.AccountID, &entry.Amount, &entry.CreatedAt); err != nil {
			return nil, errors.NewLedgerError("scan history", err)
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewLedgerError("list history", err)
	}
	return history, nil
}

func balanceKey(accountID int64) string {
	return fmt.Sprintf("wallet:balance:%d", accountID)
}
