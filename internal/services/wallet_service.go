package services

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"

	"github.com/dinoventures/wallet-backend/internal/config"
	"github.com/dinoventures/wallet-backend/internal/models"
)

// WalletService exposes the wallet HTTP surface. Each write endpoint
// builds a balanced pair of entries between the Treasury account and the
// user's primary wallet and hands it to the ledger.
type WalletService struct {
	ledger    *LedgerService
	accounts  *AccountService
	validator *ValidationHelper
	cfg       *config.LedgerConfig
}

func NewWalletService(db *sql.DB, redisClient *redis.Client, cfg *config.LedgerConfig) *WalletService {
	return &WalletService{
		ledger:    NewLedgerService(db, cfg),
		accounts:  NewAccountService(db, redisClient, cfg),
		validator: NewValidationHelper(),
		cfg:       cfg,
	}
}

// TopUp moves funds from Treasury into the user's wallet.
func (ws *WalletService) TopUp(w http.ResponseWriter, r *http.Request) {
	ws.handleWalletTransaction(w, r, models.TypeTopUp, true, "Wallet Top-up")
}

// Bonus grants promotional funds from Treasury, same flow as a top-up but
// recorded under its own type.
func (ws *WalletService) Bonus(w http.ResponseWriter, r *http.Request) {
	ws.handleWalletTransaction(w, r, models.TypeBonus, true, "Bonus Credit")
}

// Spend moves funds from the user's wallet back to Treasury.
func (ws *WalletService) Spend(w http.ResponseWriter, r *http.Request) {
	ws.handleWalletTransaction(w, r, models.TypePurchase, false, "Purchase Item")
}

// Refund returns previously spent funds from Treasury to the user.
func (ws *WalletService) Refund(w http.ResponseWriter, r *http.Request) {
	ws.handleWalletTransaction(w, r, models.TypeRefund, true, "Purchase Refund")
}

func (ws *WalletService) handleWalletTransaction(w http.ResponseWriter, r *http.Request, txType models.TransactionType, creditUser bool, defaultDescription string) {
	req, ok := ws.decodeWalletRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()

	treasury, err := ws.accounts.GetSystemAccount(ctx, ws.cfg.TreasuryAccount)
	if err != nil {
		log.Printf("[WALLET] Treasury lookup failed: %v", err)
		SendErrorResponse(w, err.Error(), statusForLedgerError(err), nil)
		return
	}

	wallet, err := ws.accounts.GetPrimaryAccount(ctx, req.UserID)
	if err != nil {
		SendErrorResponse(w, err.Error(), statusForLedgerError(err), nil)
		return
	}

	var entries []models.Entry
	if creditUser {
		entries = []models.Entry{
			{AccountID: treasury.ID, Amount: -req.Amount},
			{AccountID: wallet.ID, Amount: req.Amount},
		}
	} else {
		entries = []models.Entry{
			{AccountID: wallet.ID, Amount: -req.Amount},
			{AccountID: treasury.ID, Amount: req.Amount},
		}
	}

	description := req.Description
	if description == "" {
		description = defaultDescription
	}

	record, err := ws.ledger.Process(ctx, req.ReferenceID, txType, description, entries)
	if err != nil {
		log.Printf("[WALLET] %s failed (reference: %s): %v", txType, req.ReferenceID, err)
		SendErrorResponse(w, err.Error(), statusForLedgerError(err), nil)
		return
	}

	ws.accounts.InvalidateBalances(ctx, []int64{treasury.ID, wallet.ID})

	SendJSONResponse(w, http.StatusCreated, models.TransactionResponse{
		ID:          record.ID,
		ReferenceID: record.ReferenceID,
		Type:        record.Type,
		Status:      "success",
		CreatedAt:   record.CreatedAt,
	})
}

func (ws *WalletService) decodeWalletRequest(w http.ResponseWriter, r *http.Request) (*models.WalletRequest, bool) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req models.WalletRequest
	if err := dec.Decode(&req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return nil, false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return nil, false
	}

	if err := ws.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return nil, false
	}
	return &req, true
}

// GetBalance returns the user's total balance with a per-account
// breakdown. Advisory snapshot, no locks taken.
func (ws *WalletService) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	accounts, err := ws.accounts.GetAccountsForUser(r.Context(), userID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch accounts", http.StatusInternalServerError, nil)
		return
	}

	resp := models.BalanceResponse{
		UserID:   userID,
		Accounts: make([]models.AccountSummary, 0, len(accounts)),
	}
	for _, acc := range accounts {
		resp.TotalBalance += acc.Balance
		resp.Accounts = append(resp.Accounts, models.AccountSummary{
			ID:       acc.ID,
			Name:     acc.Name,
			Currency: acc.Currency,
			Balance:  acc.Balance,
		})
	}

	SendJSONResponse(w, http.StatusOK, resp)
}

// GetTransactions lists the user's posting history, newest first.
func (ws *WalletService) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	history, err := ws.accounts.GetHistoryForUser(r.Context(), userID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}
	if history == nil {
		history = []models.HistoryEntry{}
	}

	SendJSONResponse(w, http.StatusOK, map[string]any{
		"user_id":      userID,
		"transactions": history,
	})
}

func parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || userID <= 0 {
		SendErrorResponse(w, "Invalid user id", http.StatusBadRequest, nil)
		return 0, false
	}
	return userID, true
}
