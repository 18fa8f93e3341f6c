package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/dinoventures/wallet-backend/internal/config"
	"github.com/dinoventures/wallet-backend/internal/database"
	"github.com/dinoventures/wallet-backend/internal/models"
	"github.com/dinoventures/wallet-backend/internal/services"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	email TEXT UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS accounts (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT REFERENCES users(id),
	name TEXT NOT NULL,
	currency TEXT NOT NULL DEFAULT 'GOLD',
	balance BIGINT NOT NULL DEFAULT 0,
	version INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
	id BIGSERIAL PRIMARY KEY,
	reference_id TEXT UNIQUE NOT NULL,
	type TEXT NOT NULL,
	description TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS postings (
	id BIGSERIAL PRIMARY KEY,
	transaction_id BIGINT NOT NULL REFERENCES transactions(id),
	account_id BIGINT NOT NULL REFERENCES accounts(id),
	amount BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);
CREATE INDEX IF NOT EXISTS idx_postings_account ON postings(account_id);
CREATE INDEX IF NOT EXISTS idx_postings_transaction ON postings(transaction_id);
`

func main() {
	viper.AutomaticEnv()
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	db := database.InitDatabase()
	defer db.Close()

	ctx := context.Background()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}

	var existing int64
	err := db.QueryRowContext(ctx, `SELECT id FROM users LIMIT 1`).Scan(&existing)
	if err == nil {
		log.Println("Database already seeded")
		return
	}
	if err != sql.ErrNoRows {
		log.Fatalf("Failed to check seed state: %v", err)
	}

	log.Println("Seeding database...")

	systemID := createUser(ctx, db, "system", "system@dinoventures.com")
	aliceID := createUser(ctx, db, "alice", "alice@example.com")
	bobID := createUser(ctx, db, "bob", "bob@example.com")

	equityID := createAccount(ctx, db, systemID, "Equity")
	treasuryID := createAccount(ctx, db, systemID, "Treasury")
	aliceWalletID := createAccount(ctx, db, aliceID, "Alice's Wallet")
	bobWalletID := createAccount(ctx, db, bobID, "Bob's Wallet")

	ledger := services.NewLedgerService(db, config.LoadLedgerConfig())

	// Genesis funding: Equity goes negative, which the exemption set
	// allows.
	mustProcess(ctx, ledger, models.TypeTopUp, "Initial Capital Injection", []models.Entry{
		{AccountID: equityID, Amount: -1_000_000_000},
		{AccountID: treasuryID, Amount: 1_000_000_000},
	})

	mustProcess(ctx, ledger, models.TypeBonus, "Welcome Bonus for Alice", []models.Entry{
		{AccountID: treasuryID, Amount: -100},
		{AccountID: aliceWalletID, Amount: 100},
	})

	mustProcess(ctx, ledger, models.TypeBonus, "Welcome Bonus for Bob", []models.Entry{
		{AccountID: treasuryID, Amount: -50},
		{AccountID: bobWalletID, Amount: 50},
	})

	log.Println("Seeding complete")
}

func createUser(ctx context.Context, db *sql.DB, username, email string) int64 {
	var id int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO users (username, email)
		VALUES ($1, $2)
		RETURNING id`, username, email).Scan(&id)
	if err != nil {
		log.Fatalf("Failed to create user %s: %v", username, err)
	}
	return id
}

func createAccount(ctx context.Context, db *sql.DB, userID int64, name string) int64 {
	var id int64
	err := db.QueryRowContext(ctx, `
		INSERT INTO accounts (user_id, name, currency)
		VALUES ($1, $2, 'GOLD')
		RETURNING id`, userID, name).Scan(&id)
	if err != nil {
		log.Fatalf("Failed to create account %s: %v", name, err)
	}
	return id
}

func mustProcess(ctx context.Context, ledger *services.LedgerService, txType models.TransactionType, description string, entries []models.Entry) {
	record, err := ledger.Process(ctx, uuid.New().String(), txType, description, entries)
	if err != nil {
		log.Fatalf("Failed to seed transaction %q: %v", description, err)
	}
	log.Printf("Seeded transaction %d: %s", record.ID, description)
}
