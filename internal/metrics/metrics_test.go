package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

func read(t *testing.T, m prometheus.Metric) *dto.Metric {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return &out
}

func TestObservePool(t *testing.T) {
	ObservePool(domain.PoolStatus{
		Invested:        decimal.RequireFromString("1000"),
		Committed:       decimal.RequireFromString("250.50"),
		Available:       decimal.RequireFromString("549.50"),
		Utilization:     decimal.RequireFromString("0.2505"),
		ActiveInvestors: 3,
		QueuedLoans:     2,
	})

	assert.InDelta(t, 1000, read(t, PoolInvested).GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 250.50, read(t, PoolCommitted).GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 549.50, read(t, PoolAvailable).GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 0.2505, read(t, PoolUtilization).GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 3, read(t, PoolActiveInvestors).GetGauge().GetValue(), 1e-9)
	assert.InDelta(t, 2, read(t, PoolQueuedLoans).GetGauge().GetValue(), 1e-9)
}

func TestRecordLoan(t *testing.T) {
	counter := LoanTransitions.WithLabelValues("promoted")
	before := read(t, counter).GetCounter().GetValue()

	RecordLoan("promoted")
	RecordLoan("promoted")

	assert.InDelta(t, before+2, read(t, counter).GetCounter().GetValue(), 1e-9)
}

func TestRecordTransaction(t *testing.T) {
	counter := LedgerTransactions.WithLabelValues(string(domain.TransactionKindLoanPayment))
	before := read(t, counter).GetCounter().GetValue()

	RecordTransaction(domain.TransactionKindLoanPayment)

	assert.InDelta(t, before+1, read(t, counter).GetCounter().GetValue(), 1e-9)
}
