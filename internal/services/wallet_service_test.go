package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redismock/v8"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/dinoventures/wallet-backend/internal/models"
)

func walletRequestBody(t *testing.T, userID int64, referenceID string, amount int64) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(models.WalletRequest{
		UserID:      userID,
		ReferenceID: referenceID,
		Amount:      amount,
	})
	assert.NoError(t, err)
	return bytes.NewBuffer(body)
}

func expectAccountLookups(mock sqlmock.Sqlmock, treasuryBalance, walletBalance int64) {
	mock.ExpectQuery("SELECT id, user_id, name, currency, balance, version, created_at FROM accounts WHERE name = \\$1 LIMIT 1").
		WithArgs("Treasury").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "currency", "balance", "version", "created_at"}).
			AddRow(1, 10, "Treasury", "GOLD", treasuryBalance, 3, time.Now()))

	mock.ExpectQuery("SELECT id, user_id, name, currency, balance, version, created_at FROM accounts WHERE user_id = \\$1 ORDER BY id LIMIT 1").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "currency", "balance", "version", "created_at"}).
			AddRow(2, 5, "Alice's Wallet", "GOLD", walletBalance, 1, time.Now()))
}

func TestWalletService_TopUp(t *testing.T) {
	t.Run("successful top-up", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		redisClient, redisMock := redismock.NewClientMock()
		service := NewWalletService(db, redisClient, testLedgerConfig())

		expectAccountLookups(mock, 1_000_000, 0)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM transactions WHERE reference_id = \\$1").
			WithArgs("r1").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT id, user_id, name, currency, balance, version FROM accounts WHERE id = ANY\\(\\$1\\) ORDER BY id FOR UPDATE").
			WithArgs(pq.Array([]int64{1, 2})).
			WillReturnRows(lockedAccountRows().
				AddRow(1, 10, "Treasury", "GOLD", 1_000_000, 3).
				AddRow(2, 5, "Alice's Wallet", "GOLD", 0, 1))
		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs("r1", "topup", "Wallet Top-up").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, time.Now()))
		mock.ExpectExec("INSERT INTO postings").
			WithArgs(int64(42), int64(1), int64(-100)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO postings").
			WithArgs(int64(42), int64(2), int64(100)).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectExec("UPDATE accounts SET balance").
			WithArgs(int64(999_900), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE accounts SET balance").
			WithArgs(int64(100), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		redisMock.ExpectDel("wallet:balance:1", "wallet:balance:2").SetVal(2)

		r := httptest.NewRequest("POST", "/api/v1/wallet/topup", walletRequestBody(t, 5, "r1", 100))
		w := httptest.NewRecorder()

		service.TopUp(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp models.TransactionResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(42), resp.ID)
		assert.Equal(t, "r1", resp.ReferenceID)
		assert.Equal(t, models.TypeTopUp, resp.Type)
		assert.Equal(t, "success", resp.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("invalid request body", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewWalletService(db, nil, testLedgerConfig())

		r := httptest.NewRequest("POST", "/api/v1/wallet/topup", bytes.NewBufferString("not json"))
		w := httptest.NewRecorder()

		service.TopUp(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-positive amount fails validation", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewWalletService(db, nil, testLedgerConfig())

		r := httptest.NewRequest("POST", "/api/v1/wallet/topup", walletRequestBody(t, 5, "r1", -100))
		w := httptest.NewRecorder()

		service.TopUp(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Details, "Amount")
	})

	t.Run("duplicate reference answers 409", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewWalletService(db, nil, testLedgerConfig())

		expectAccountLookups(mock, 1_000_000, 100)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM transactions WHERE reference_id = \\$1").
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		mock.ExpectRollback()

		r := httptest.NewRequest("POST", "/api/v1/wallet/topup", walletRequestBody(t, 5, "r1", 100))
		w := httptest.NewRecorder()

		service.TopUp(w, r)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing wallet answers 404", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewWalletService(db, nil, testLedgerConfig())

		mock.ExpectQuery("SELECT id, user_id, name, currency, balance, version, created_at FROM accounts WHERE name = \\$1 LIMIT 1").
			WithArgs("Treasury").
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "currency", "balance", "version", "created_at"}).
				AddRow(1, 10, "Treasury", "GOLD", 1_000_000, 3, time.Now()))

		mock.ExpectQuery("SELECT id, user_id, name, currency, balance, version, created_at FROM accounts WHERE user_id = \\$1 ORDER BY id LIMIT 1").
			WithArgs(int64(5)).
			WillReturnError(sql.ErrNoRows)

		r := httptest.NewRequest("POST", "/api/v1/wallet/topup", walletRequestBody(t, 5, "r1", 100))
		w := httptest.NewRecorder()

		service.TopUp(w, r)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestWalletService_Spend(t *testing.T) {
	t.Run("insufficient funds answers 400 and changes nothing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewWalletService(db, nil, testLedgerConfig())

		expectAccountLookups(mock, 1_000_000, 30)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM transactions WHERE reference_id = \\$1").
			WithArgs("r9").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT id, user_id, name, currency, balance, version FROM accounts WHERE id = ANY\\(\\$1\\) ORDER BY id FOR UPDATE").
			WithArgs(pq.Array([]int64{1, 2})).
			WillReturnRows(lockedAccountRows().
				AddRow(1, 10, "Treasury", "GOLD", 1_000_000, 3).
				AddRow(2, 5, "Alice's Wallet", "GOLD", 30, 1))
		mock.ExpectRollback()

		r := httptest.NewRequest("POST", "/api/v1/wallet/spend", walletRequestBody(t, 5, "r9", 50))
		w := httptest.NewRecorder()

		service.Spend(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "insufficient funds")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletService_GetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewWalletService(db, nil, testLedgerConfig())

	mock.ExpectQuery("SELECT id, user_id, name, currency, balance, version, created_at FROM accounts WHERE user_id = \\$1 ORDER BY id").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "currency", "balance", "version", "created_at"}).
			AddRow(2, 5, "Alice's Wallet", "GOLD", 100, 1, time.Now()).
			AddRow(7, 5, "Alice's Savings", "GOLD", 40, 2, time.Now()))

	router := chi.NewRouter()
	router.Get("/api/v1/wallet/{userId}/balance", service.GetBalance)

	r := httptest.NewRequest("GET", "/api/v1/wallet/5/balance", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.BalanceResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.UserID)
	assert.Equal(t, int64(140), resp.TotalBalance)
	assert.Len(t, resp.Accounts, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletService_GetTransactions(t *testing.T) {
	t.Run("history for user", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewWalletService(db, nil, testLedgerConfig())

		mock.ExpectQuery("SELECT t.id, t.reference_id, t.type, t.description, p.account_id, p.amount, t.created_at FROM postings p").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "reference_id", "type", "description", "account_id", "amount", "created_at"}).
				AddRow(42, "r1", "topup", "Wallet Top-up", 2, 100, time.Now()))

		router := chi.NewRouter()
		router.Get("/api/v1/wallet/{userId}/transactions", service.GetTransactions)

		r := httptest.NewRequest("GET", "/api/v1/wallet/5/transactions", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid user id", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		service := NewWalletService(db, nil, testLedgerConfig())

		router := chi.NewRouter()
		router.Get("/api/v1/wallet/{userId}/transactions", service.GetTransactions)

		r := httptest.NewRequest("GET", "/api/v1/wallet/abc/transactions", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
