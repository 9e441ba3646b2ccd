package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/capital-pool/internal/auth"
	"github.com/josh-kwaku/capital-pool/internal/clock"
	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/finance"
	"github.com/josh-kwaku/capital-pool/internal/repository"
	"github.com/josh-kwaku/capital-pool/internal/service/lending"
)

type mockLoanService struct {
	loans      map[uuid.UUID]*domain.Loan
	requested  *lending.LoanRequest
	listFilter repository.LoanFilter
	err        error
}

func (m *mockLoanService) RequestLoan(_ context.Context, req lending.LoanRequest) (*domain.Loan, error) {
	m.requested = &req
	if m.err != nil {
		return nil, m.err
	}
	l := &domain.Loan{ID: uuid.New(), OwnerID: req.OwnerID, Principal: req.Amount, Status: domain.LoanStatusPending}
	if req.Amount.GreaterThan(decimal.NewFromInt(500)) {
		pos := int64(1)
		l.Status = domain.LoanStatusQueued
		l.QueuePosition = &pos
	}
	return l, nil
}

func (m *mockLoanService) ApproveLoan(_ context.Context, id uuid.UUID, _ lending.ApprovalOverrides) (*domain.Loan, error) {
	return m.get(id)
}

func (m *mockLoanService) RejectLoan(_ context.Context, id uuid.UUID, _ string) (*domain.Loan, error) {
	return m.get(id)
}

func (m *mockLoanService) PayLoan(_ context.Context, id uuid.UUID, amount decimal.Decimal) (*lending.PaymentResult, error) {
	l, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return &lending.PaymentResult{Loan: l, Allocation: finance.AllocatePayment(l, amount)}, nil
}

func (m *mockLoanService) DeleteLoan(_ context.Context, id uuid.UUID) error {
	_, err := m.get(id)
	return err
}

func (m *mockLoanService) GetLoan(_ context.Context, id uuid.UUID) (*domain.Loan, error) {
	return m.get(id)
}

func (m *mockLoanService) ListLoans(_ context.Context, f repository.LoanFilter) ([]domain.Loan, error) {
	m.listFilter = f
	return nil, m.err
}

func (m *mockLoanService) get(id uuid.UUID) (*domain.Loan, error) {
	if m.err != nil {
		return nil, m.err
	}
	l, ok := m.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return l, nil
}

type mockPoolService struct {
	status   *domain.PoolStatus
	promoted []*domain.Loan
}

func (m *mockPoolService) PoolStatus(context.Context) (*domain.PoolStatus, error) {
	return m.status, nil
}

func (m *mockPoolService) ReconcileQueue(context.Context) ([]*domain.Loan, error) {
	return m.promoted, nil
}

type mockPinger struct{ err error }

func (m mockPinger) PingContext(context.Context) error { return m.err }

func withClaims(claims *auth.Claims) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if claims != nil {
				r = r.WithContext(auth.ContextWithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func serve(t *testing.T, mount func(chi.Router), claims *auth.Claims, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	r := chi.NewRouter()
	r.Use(withClaims(claims))
	mount(r)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp APIResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func TestAppErrorFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"insufficient funds", fmt.Errorf("PayLoan: %w", domain.ErrInsufficientFunds), http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{"precision", domain.ErrAmountPrecision, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"invalid term", domain.ErrInvalidTerm, http.StatusBadRequest, "INVALID_TERM"},
		{"not found", fmt.Errorf("GetLoan: %w", domain.ErrLoanNotFound), http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{"wallet exists", domain.ErrWalletExists, http.StatusConflict, "WALLET_ALREADY_EXISTS"},
		{"redeemed", domain.ErrInvestmentRedeemed, http.StatusConflict, "INVESTMENT_REDEEMED"},
		{"not deletable", domain.ErrLoanNotDeletable, http.StatusConflict, "LOAN_NOT_DELETABLE"},
		{"accrual busy", domain.ErrAccrualInProgress, http.StatusConflict, "ACCRUAL_IN_PROGRESS"},
		{"other state error", fmt.Errorf("x: %w", domain.ErrState), http.StatusConflict, "ILLEGAL_STATE"},
		{"other validation error", fmt.Errorf("x: %w", domain.ErrValidation), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := appErrorFor(tc.err)
			assert.Equal(t, tc.wantStatus, got.Status)
			assert.Equal(t, tc.wantCode, got.Code)
		})
	}
}

func mountLoans(h *LoanHandler) func(chi.Router) {
	return func(r chi.Router) {
		r.Post("/loans", h.Create)
		r.Get("/loans", h.List)
		r.Get("/loans/{id}", h.Get)
		r.Post("/loans/{id}/pay", h.Pay)
		r.Delete("/loans/{id}", h.Delete)
	}
}

func TestLoanHandler_Create(t *testing.T) {
	member := &auth.Claims{UserID: uuid.New(), Role: auth.RoleMember}

	tests := []struct {
		name       string
		claims     *auth.Claims
		body       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"admitted", member, `{"amount":"100.00"}`, nil, http.StatusCreated, ""},
		{"queued", member, `{"amount":"900.00","term_months":6}`, nil, http.StatusAccepted, ""},
		{"numeric amount", member, `{"amount":250.5}`, nil, http.StatusCreated, ""},
		{"missing amount", member, `{}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"zero term", member, `{"amount":"10","term_months":0}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"term over fifty years", member, `{"amount":"10","term_months":601}`, nil, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown field", member, `{"amount":"10","owner_id":"x"}`, nil, http.StatusBadRequest, "INVALID_REQUEST"},
		{"no wallet", member, `{"amount":"10"}`, domain.ErrWalletNotFound, http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{"no token", nil, `{"amount":"10"}`, nil, http.StatusUnauthorized, "MISSING_TOKEN"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockLoanService{err: tc.svcErr}
			rec, resp := serve(t, mountLoans(NewLoanHandler(svc)), tc.claims, http.MethodPost, "/loans", tc.body)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCode != "" {
				require.NotNil(t, resp.Error)
				assert.Equal(t, tc.wantCode, resp.Error.Code)
				return
			}
			assert.True(t, resp.Success)
			require.NotNil(t, svc.requested)
			assert.Equal(t, member.UserID, svc.requested.OwnerID)
		})
	}
}

func TestLoanHandler_Ownership(t *testing.T) {
	owner := uuid.New()
	loan := &domain.Loan{
		ID:         uuid.New(),
		OwnerID:    owner,
		Principal:  decimal.NewFromInt(1000),
		AnnualRate: decimal.RequireFromString("0.1"),
		Status:     domain.LoanStatusActive,
	}
	svc := &mockLoanService{loans: map[uuid.UUID]*domain.Loan{loan.ID: loan}}
	mount := mountLoans(NewLoanHandler(svc))

	tests := []struct {
		name       string
		claims     *auth.Claims
		path       string
		wantStatus int
	}{
		{"owner", &auth.Claims{UserID: owner, Role: auth.RoleMember}, "/loans/" + loan.ID.String(), http.StatusOK},
		{"admin", &auth.Claims{UserID: uuid.New(), Role: auth.RoleAdmin}, "/loans/" + loan.ID.String(), http.StatusOK},
		{"other member", &auth.Claims{UserID: uuid.New(), Role: auth.RoleMember}, "/loans/" + loan.ID.String(), http.StatusNotFound},
		{"bad id", &auth.Claims{UserID: owner, Role: auth.RoleMember}, "/loans/not-a-uuid", http.StatusNotFound},
		{"missing", &auth.Claims{UserID: owner, Role: auth.RoleMember}, "/loans/" + uuid.NewString(), http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := serve(t, mount, tc.claims, http.MethodGet, tc.path, "")
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestLoanHandler_Pay(t *testing.T) {
	owner := uuid.New()
	loan := &domain.Loan{
		ID:              uuid.New(),
		OwnerID:         owner,
		Principal:       decimal.NewFromInt(1000),
		AccruedInterest: decimal.NewFromInt(50),
		Status:          domain.LoanStatusActive,
	}
	svc := &mockLoanService{loans: map[uuid.UUID]*domain.Loan{loan.ID: loan}}

	rec, resp := serve(t, mountLoans(NewLoanHandler(svc)), &auth.Claims{UserID: owner, Role: auth.RoleMember},
		http.MethodPost, "/loans/"+loan.ID.String()+"/pay", `{"amount":"80.00"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "50.00", data["interest_paid"])
	assert.Equal(t, "30.00", data["principal_paid"])
	assert.Equal(t, false, data["settled"])
}

func TestLoanHandler_ListScopesMembersToThemselves(t *testing.T) {
	member := &auth.Claims{UserID: uuid.New(), Role: auth.RoleMember}
	admin := &auth.Claims{UserID: uuid.New(), Role: auth.RoleAdmin}
	other := uuid.New()

	svc := &mockLoanService{}
	mount := mountLoans(NewLoanHandler(svc))

	rec, _ := serve(t, mount, member, http.MethodGet, "/loans?owner_id="+other.String()+"&status=queued", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listFilter.OwnerID)
	assert.Equal(t, member.UserID, *svc.listFilter.OwnerID)
	require.NotNil(t, svc.listFilter.Status)
	assert.Equal(t, domain.LoanStatusQueued, *svc.listFilter.Status)

	rec, _ = serve(t, mount, admin, http.MethodGet, "/loans?owner_id="+other.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.listFilter.OwnerID)
	assert.Equal(t, other, *svc.listFilter.OwnerID)

	rec, _ = serve(t, mount, admin, http.MethodGet, "/loans", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.listFilter.OwnerID)

	rec, resp := serve(t, mount, admin, http.MethodGet, "/loans?status=approved", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}

func TestPreviewHandler_Loan(t *testing.T) {
	h := NewPreviewHandler(clock.NewFixed(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
	mount := func(r chi.Router) { r.Post("/previews/loan", h.Loan) }

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantEntries int
		wantFirst   string
	}{
		{
			name:        "explicit first installment",
			body:        `{"principal":"1000","annual_rate":"0.12","term_months":6,"first_installment":"2025-01-31"}`,
			wantStatus:  http.StatusOK,
			wantEntries: 6,
			wantFirst:   "2025-01-28",
		},
		{
			name:        "defaults to one month out",
			body:        `{"principal":"1000","annual_rate":"0.12","term_months":3,"system":"constant_amortization"}`,
			wantStatus:  http.StatusOK,
			wantEntries: 3,
			wantFirst:   "2025-02-15",
		},
		{
			name:       "unknown system",
			body:       `{"principal":"1000","annual_rate":"0.12","term_months":3,"system":"balloon"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "term over fifty years",
			body:       `{"principal":"1000","annual_rate":"0.12","term_months":20000}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad date",
			body:       `{"principal":"1000","annual_rate":"0.12","term_months":3,"first_installment":"31/01/2025"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, resp := serve(t, mount, nil, http.MethodPost, "/previews/loan", tc.body)
			require.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantEntries == 0 {
				return
			}
			data := resp.Data.(map[string]any)
			entries := data["installments"].([]any)
			assert.Len(t, entries, tc.wantEntries)
			assert.Equal(t, tc.wantFirst, entries[0].(map[string]any)["due_date"])
		})
	}
}

func TestPreviewHandler_Investment(t *testing.T) {
	h := NewPreviewHandler(clock.System{})
	mount := func(r chi.Router) { r.Post("/previews/investment", h.Investment) }

	rec, resp := serve(t, mount, nil, http.MethodPost, "/previews/investment",
		`{"principal":"1000","annual_rate":"0.10","days":365}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "100.00", data["projected_yield"])
	assert.Equal(t, "1100.00", data["projected_total"])

	rec, _ = serve(t, mount, nil, http.MethodPost, "/previews/investment",
		`{"principal":"1000","annual_rate":"0.10","days":365,"compounding":"hourly"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = serve(t, mount, nil, http.MethodPost, "/previews/investment",
		`{"principal":"1000","annual_rate":"0.10","days":36501,"interest":"compound","compounding":"daily"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
}

func TestPoolHandler(t *testing.T) {
	svc := &mockPoolService{
		status: &domain.PoolStatus{
			Invested:        decimal.NewFromInt(1000),
			Committed:       decimal.NewFromInt(700),
			Available:       decimal.NewFromInt(100),
			Utilization:     decimal.RequireFromString("0.7"),
			Threshold:       decimal.RequireFromString("0.8"),
			ActiveInvestors: 2,
			QueuedLoans:     1,
		},
		promoted: []*domain.Loan{{ID: uuid.New()}},
	}
	h := NewPoolHandler(svc)
	mount := func(r chi.Router) {
		r.Get("/pool", h.Status)
		r.Post("/pool/reconcile", h.Reconcile)
	}

	rec, resp := serve(t, mount, nil, http.MethodGet, "/pool", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "1000.00", data["invested"])
	assert.Equal(t, "0.7000", data["utilization"])
	assert.Equal(t, float64(2), data["active_investors"])

	rec, resp = serve(t, mount, nil, http.MethodPost, "/pool/reconcile", "")
	require.Equal(t, http.StatusOK, rec.Code)
	promoted := resp.Data.(map[string]any)["promoted"].([]any)
	assert.Equal(t, svc.promoted[0].ID.String(), promoted[0])
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{"database up", nil, http.StatusOK},
		{"database down", errors.New("dial tcp: refused"), http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(mockPinger{err: tc.pingErr})
			rec := httptest.NewRecorder()
			h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}
