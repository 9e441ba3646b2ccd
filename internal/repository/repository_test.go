package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/capital-pool/internal/domain"
	"github.com/josh-kwaku/capital-pool/internal/repository"
	"github.com/josh-kwaku/capital-pool/internal/testutil"
)

func TestWalletRepository_CreateDuplicateOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewWalletRepository(db)
	ctx := context.Background()
	existing := testutil.SeedWallet(t, db, "0")

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	now := time.Now().UTC()
	err = repo.Create(ctx, tx, &domain.Wallet{
		ID: uuid.New(), OwnerID: existing.OwnerID, Balance: testutil.Dec("0"), Version: 1,
		CreatedAt: now, UpdatedAt: now,
	})
	assert.ErrorIs(t, err, domain.ErrWalletExists)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestWalletRepository_UpdateBalanceVersionCheck(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewWalletRepository(db)
	ctx := context.Background()
	w := testutil.SeedWallet(t, db, "100")

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	err = repo.UpdateBalance(ctx, tx, w.ID, testutil.Dec("50"), w.Version+2, time.Now())
	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestLoanRepository_ListQueuedOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewLoanRepository(db)
	ctx := context.Background()
	owner := testutil.SeedWallet(t, db, "0").OwnerID
	base := time.Now().UTC().Add(-time.Hour)

	third := testutil.SeedLoan(t, db, testutil.LoanSeed{OwnerID: owner, Principal: "10", Status: domain.LoanStatusQueued, QueuePosition: testutil.Position(3), CreatedAt: base})
	first := testutil.SeedLoan(t, db, testutil.LoanSeed{OwnerID: owner, Principal: "10", Status: domain.LoanStatusQueued, QueuePosition: testutil.Position(1), CreatedAt: base.Add(time.Minute)})
	second := testutil.SeedLoan(t, db, testutil.LoanSeed{OwnerID: owner, Principal: "10", Status: domain.LoanStatusQueued, QueuePosition: testutil.Position(2), CreatedAt: base.Add(2 * time.Minute)})
	testutil.SeedLoan(t, db, testutil.LoanSeed{OwnerID: owner, Principal: "10", Status: domain.LoanStatusPending})

	queued, err := repo.ListQueued(ctx, db)
	require.NoError(t, err)
	require.Len(t, queued, 3)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID, third.ID}, []uuid.UUID{queued[0].ID, queued[1].ID, queued[2].ID})

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	highest, err := repo.MaxQueuePosition(ctx, tx)
	require.NoError(t, err)
	require.NotNil(t, highest)
	assert.Equal(t, int64(3), *highest)
}

func TestLoanRepository_QueuePositionRequiresQueuedStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	owner := testutil.SeedWallet(t, db, "0").OwnerID

	_, err := db.Exec(
		`INSERT INTO loans (id, owner_id, principal, annual_rate, term_months, status, queue_position, last_accrual_at)
		 VALUES ($1, $2, 10, 0, 12, 'pending', 4, now())`,
		uuid.New(), owner,
	)
	assert.Error(t, err)
}

func TestPoolRepository_Totals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewPoolRepository(db)
	ctx := context.Background()
	a := testutil.SeedWallet(t, db, "0").OwnerID
	b := testutil.SeedWallet(t, db, "0").OwnerID
	now := time.Now().UTC()

	testutil.SeedInvestment(t, db, a, "600", "0", "0.1", now)
	testutil.SeedInvestment(t, db, a, "400", "0", "0.1", now)
	testutil.SeedInvestment(t, db, b, "250", "0", "0.1", now)
	testutil.SeedLoan(t, db, testutil.LoanSeed{OwnerID: b, Principal: "100", Status: domain.LoanStatusPending})
	testutil.SeedLoan(t, db, testutil.LoanSeed{OwnerID: b, Principal: "200", Status: domain.LoanStatusActive})
	testutil.SeedLoan(t, db, testutil.LoanSeed{OwnerID: b, Principal: "900", Status: domain.LoanStatusQueued, QueuePosition: testutil.Position(1)})
	testutil.SeedLoan(t, db, testutil.LoanSeed{OwnerID: b, Principal: "50", Status: domain.LoanStatusPaid})

	totals, err := repo.Totals(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "1250.00", totals.Invested.StringFixed(2))
	assert.Equal(t, "300.00", totals.Committed.StringFixed(2))

	investors, err := repo.CountActiveInvestors(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, investors)

	queued, err := repo.CountQueued(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, queued)
}

func TestTransactionRepository_OnlyNoteIsMutable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewTransactionRepository(db)
	ctx := context.Background()
	w := testutil.SeedWallet(t, db, "0")

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	entry := domain.NewLedgerTransaction(w.ID, domain.TransactionKindDeposit, testutil.Dec("25"), time.Now().UTC())
	require.NoError(t, repo.Create(ctx, tx, entry))
	require.NoError(t, tx.Commit())

	note := "monthly top-up"
	updated, err := repo.UpdateNote(ctx, entry.ID, &note)
	require.NoError(t, err)
	require.NotNil(t, updated.Note)
	assert.Equal(t, note, *updated.Note)
	assert.True(t, updated.Amount.Equal(testutil.Dec("25")))

	_, err = db.Exec(`UPDATE ledger_transactions SET amount = 1 WHERE id = $1`, entry.ID)
	assert.Error(t, err)

	_, err = repo.UpdateNote(ctx, uuid.New(), &note)
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestTransactionRepository_AccrualsDoNotMoveBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	w := testutil.SeedWallet(t, db, "0")

	_, err := db.Exec(
		`INSERT INTO ledger_transactions (id, wallet_id, kind, amount, moves_balance)
		 VALUES ($1, $2, 'interest_accrual', 1, true)`,
		uuid.New(), w.ID,
	)
	assert.Error(t, err)
}

func TestIdempotencyRepository_ExpiryAndPurge(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewIdempotencyRepository(db)
	ctx := context.Background()
	user := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, repo.Put(ctx, &repository.IdempotencyEntry{
		Key: "k1", UserID: user, RequestHash: "h", StatusCode: 201,
		ResponseBody: []byte(`{}`), CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	got, err := repo.Get(ctx, "k1", user, now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 201, got.StatusCode)

	got, err = repo.Get(ctx, "k1", user, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := repo.PurgeExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
