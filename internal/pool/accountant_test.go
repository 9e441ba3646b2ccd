package pool

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func totals(invested, committed string) domain.PoolTotals {
	return domain.PoolTotals{Invested: dec(invested), Committed: dec(committed)}
}

func queuedLoan(principal string, position int64, created time.Time) *domain.Loan {
	return &domain.Loan{
		ID:            uuid.New(),
		Principal:     dec(principal),
		Status:        domain.LoanStatusQueued,
		QueuePosition: &position,
		CreatedAt:     created,
	}
}

func newAccountant(t *testing.T) *Accountant {
	t.Helper()
	a, err := NewAccountant(DefaultThreshold)
	require.NoError(t, err)
	return a
}

func TestNewAccountant_RejectsOutOfRangeThreshold(t *testing.T) {
	for _, s := range []string{"0", "-0.5", "1.01"} {
		_, err := NewAccountant(dec(s))
		assert.Error(t, err, s)
	}
	_, err := NewAccountant(dec("1"))
	assert.NoError(t, err)
}

func TestFits_AdmissionBoundary(t *testing.T) {
	a := newAccountant(t)
	tests := []struct {
		name   string
		totals domain.PoolTotals
		amount string
		want   bool
	}{
		{"exactly at capacity", totals("1000", "700"), "100", true},
		{"one over capacity", totals("1000", "700"), "101", false},
		{"empty pool", totals("0", "0"), "1", false},
		{"negative invested", totals("-5", "0"), "1", false},
		{"fresh pool", totals("1000", "0"), "800", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Fits(tt.totals, dec(tt.amount)))
		})
	}
}

func TestStatus(t *testing.T) {
	a := newAccountant(t)

	st := a.Status(totals("3000", "1000"), 2, 4)

	assert.Equal(t, "3000.00", st.Invested.StringFixed(2))
	assert.Equal(t, "1000.00", st.Committed.StringFixed(2))
	assert.Equal(t, "1400.00", st.Available.StringFixed(2))
	assert.Equal(t, "0.3333", st.Utilization.StringFixed(4))
	assert.Equal(t, 2, st.ActiveInvestors)
	assert.Equal(t, 4, st.QueuedLoans)
}

func TestStatus_OverCommittedPoolHasNoHeadroom(t *testing.T) {
	a := newAccountant(t)

	st := a.Status(totals("500", "800"), 1, 0)

	assert.True(t, st.Available.IsZero())
	assert.Equal(t, "1.6000", st.Utilization.StringFixed(4))
}

func TestStatus_EmptyPool(t *testing.T) {
	a := newAccountant(t)

	st := a.Status(totals("0", "0"), 0, 0)

	assert.True(t, st.Utilization.IsZero())
	assert.True(t, st.Available.IsZero())
}

func TestPlanPromotions_StrictFIFO(t *testing.T) {
	a := newAccountant(t)
	now := time.Now()
	l1 := queuedLoan("300", 1, now)
	l2 := queuedLoan("600", 2, now.Add(time.Second))
	l3 := queuedLoan("400", 3, now.Add(2*time.Second))

	// cap 800: L1 and L3 each fit alone but not together, L2 never fits after L1.
	got := a.PlanPromotions(totals("1000", "0"), []*domain.Loan{l3, l1, l2})

	require.Len(t, got, 1)
	assert.Equal(t, l1.ID, got[0].ID)
}

func TestPlanPromotions_PromotesWhileCapacityLasts(t *testing.T) {
	a := newAccountant(t)
	now := time.Now()
	l1 := queuedLoan("200", 1, now)
	l2 := queuedLoan("300", 2, now)
	l3 := queuedLoan("300", 3, now)
	l4 := queuedLoan("1", 4, now)

	got := a.PlanPromotions(totals("1000", "0"), []*domain.Loan{l1, l2, l3, l4})

	require.Len(t, got, 3)
	assert.Equal(t, []uuid.UUID{l1.ID, l2.ID, l3.ID}, []uuid.UUID{got[0].ID, got[1].ID, got[2].ID})
}

func TestPlanPromotions_TieBreaksOnCreationTime(t *testing.T) {
	a := newAccountant(t)
	now := time.Now()
	later := queuedLoan("500", 1, now.Add(time.Minute))
	earlier := queuedLoan("500", 1, now)

	got := a.PlanPromotions(totals("1000", "0"), []*domain.Loan{later, earlier})

	require.Len(t, got, 1)
	assert.Equal(t, earlier.ID, got[0].ID)
}

func TestPlanPromotions_EmptyPoolPromotesNothing(t *testing.T) {
	a := newAccountant(t)

	got := a.PlanPromotions(totals("0", "0"), []*domain.Loan{queuedLoan("1", 1, time.Now())})

	assert.Empty(t, got)
}

func TestPlanPromotions_Idempotent(t *testing.T) {
	a := newAccountant(t)
	blocked := queuedLoan("100", 1, time.Now())

	assert.Empty(t, a.PlanPromotions(totals("1000", "800"), []*domain.Loan{blocked}))
	assert.Empty(t, a.PlanPromotions(totals("1000", "800"), []*domain.Loan{blocked}))
}

func TestNextQueuePosition(t *testing.T) {
	assert.Equal(t, int64(1), NextQueuePosition(nil))
	highest := int64(7)
	assert.Equal(t, int64(8), NextQueuePosition(&highest))
}
