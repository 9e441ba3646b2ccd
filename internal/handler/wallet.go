package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/auth"
	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/logging"
	"github.com/josh-kwaku/capital-pool/internal/service"
)

type walletService interface {
	CreateWallet(ctx context.Context, ownerID uuid.UUID, initialBalance decimal.Decimal) (*domain.Wallet, error)
	GetWallet(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetWalletByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	Deposit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)
	Withdraw(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]domain.LedgerTransaction, int, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error)
	AnnotateTransaction(ctx context.Context, id uuid.UUID, note string) (*domain.LedgerTransaction, error)
}

type WalletHandler struct {
	wallets walletService
}

func NewWalletHandler(wallets walletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type createWalletRequest struct {
	OwnerID        *uuid.UUID      `json:"owner_id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

func (r createWalletRequest) Validate() []FieldError {
	var errs []FieldError
	if r.InitialBalance.IsNegative() {
		errs = append(errs, FieldError{Field: "initial_balance", Message: "must not be negative"})
	}
	return errs
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (r amountRequest) Validate() []FieldError {
	var errs []FieldError
	if !r.Amount.IsPositive() {
		errs = append(errs, FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	return errs
}

type noteRequest struct {
	Note string `json:"note"`
}

type walletDTO struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toWalletDTO(w *domain.Wallet) walletDTO {
	return walletDTO{
		ID:        w.ID,
		OwnerID:   w.OwnerID,
		Balance:   money(w.Balance),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

type transactionDTO struct {
	ID           uuid.UUID  `json:"id"`
	WalletID     uuid.UUID  `json:"wallet_id"`
	Kind         string     `json:"kind"`
	Amount       string     `json:"amount"`
	MovesBalance bool       `json:"moves_balance"`
	InvestmentID *uuid.UUID `json:"investment_id,omitempty"`
	LoanID       *uuid.UUID `json:"loan_id,omitempty"`
	Note         *string    `json:"note"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toTransactionDTO(t *domain.LedgerTransaction) transactionDTO {
	return transactionDTO{
		ID:           t.ID,
		WalletID:     t.WalletID,
		Kind:         string(t.Kind),
		Amount:       money(t.Amount),
		MovesBalance: t.MovesBalance,
		InvestmentID: t.InvestmentID,
		LoanID:       t.LoanID,
		Note:         t.Note,
		CreatedAt:    t.CreatedAt,
	}
}

type transactionPage struct {
	Items  []transactionDTO `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req createWalletRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	ownerID := claims.UserID
	if req.OwnerID != nil && *req.OwnerID != ownerID {
		if claims.Role != auth.RoleAdmin {
			RespondAppError(w, ErrForbidden, nil)
			return
		}
		ownerID = *req.OwnerID
	}

	wallet, err := h.wallets.CreateWallet(r.Context(), ownerID, req.InitialBalance)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to create wallet", "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toWalletDTO(wallet))
}

func (h *WalletHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims, appErr := caller(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	wallet, err := h.wallets.GetWalletByOwner(r.Context(), claims.UserID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWalletDTO(wallet))
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	wallet, appErr := h.ownedWallet(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, toWalletDTO(wallet))
}

func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.wallets.Deposit, "deposit")
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.wallets.Withdraw, "withdraw")
}

type walletMove func(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) (*domain.Wallet, error)

func (h *WalletHandler) move(w http.ResponseWriter, r *http.Request, op walletMove, name string) {
	wallet, appErr := h.ownedWallet(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req amountRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	updated, err := op(r.Context(), wallet.ID, req.Amount)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to "+name, "wallet_id", wallet.ID, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toWalletDTO(updated))
}

func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	wallet, appErr := h.ownedWallet(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var fields []FieldError
	limit, fe := queryInt(r, "limit", service.DefaultPageSize)
	if fe != nil {
		fields = append(fields, *fe)
	}
	offset, fe := queryInt(r, "offset", 0)
	if fe != nil {
		fields = append(fields, *fe)
	}
	if len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	txs, total, err := h.wallets.ListTransactions(r.Context(), wallet.ID, limit, offset)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to list transactions", "wallet_id", wallet.ID, "error", err)
		RespondDomainError(w, err)
		return
	}

	page := transactionPage{Items: make([]transactionDTO, len(txs)), Total: total, Limit: limit, Offset: offset}
	for i := range txs {
		page.Items[i] = toTransactionDTO(&txs[i])
	}
	RespondSuccess(w, http.StatusOK, page)
}

func (h *WalletHandler) Annotate(w http.ResponseWriter, r *http.Request) {
	id, appErr := pathID(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	txn, err := h.wallets.GetTransaction(r.Context(), id)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	wallet, err := h.wallets.GetWallet(r.Context(), txn.WalletID)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	if appErr := authorize(r, wallet.OwnerID); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req noteRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	updated, err := h.wallets.AnnotateTransaction(r.Context(), id, req.Note)
	if err != nil {
		logging.FromContext(r.Context()).Error("failed to annotate transaction", "transaction_id", id, "error", err)
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toTransactionDTO(updated))
}

func (h *WalletHandler) ownedWallet(r *http.Request) (*domain.Wallet, *AppError) {
	id, appErr := pathID(r)
	if appErr != nil {
		return nil, appErr
	}
	wallet, err := h.wallets.GetWallet(r.Context(), id)
	if err != nil {
		return nil, appErrorFor(err)
	}
	if appErr := authorize(r, wallet.OwnerID); appErr != nil {
		return nil, appErr
	}
	return wallet, nil
}
