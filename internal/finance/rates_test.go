package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundMoney_BankersRounding(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.005", "10.00"},
		{"10.015", "10.02"},
		{"10.025", "10.02"},
		{"10.0051", "10.01"},
		{"-10.005", "-10.00"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundMoney(dec(tt.in)).StringFixed(MoneyPlaces))
		})
	}
}

func TestEffectiveRate(t *testing.T) {
	tests := []struct {
		name    string
		annual  string
		periods int64
		want    string
	}{
		{"monthly", "0.12", 12, "0.0095"},
		{"semiannual", "0.21", 2, "0.1000"},
		{"daily", "0.12", 365, "0.0003"},
		{"annual passthrough", "0.12", 1, "0.1200"},
		{"zero rate", "0", 12, "0.0000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EffectiveRate(dec(tt.annual), tt.periods)
			require.NoError(t, err)
			assert.Equal(t, tt.want, RoundRate(got).StringFixed(RatePlaces))
		})
	}
}

func TestEffectiveRate_RejectsNonPositivePeriods(t *testing.T) {
	_, err := EffectiveRate(dec("0.12"), 0)
	assert.Error(t, err)
}

func TestPow_RoundsToPrecision(t *testing.T) {
	base := dec("1.0001")

	got, err := pow(base, dec("10"))
	require.NoError(t, err)
	exact, err := base.PowInt32(10)
	require.NoError(t, err)
	assert.True(t, exact.Sub(got).Abs().LessThan(dec("1e-26")), "got %s", got)
	assert.LessOrEqual(t, -got.Exponent(), precision)

	got, err = pow(base, dec("36500"))
	require.NoError(t, err)
	assert.LessOrEqual(t, -got.Exponent(), precision)
	assert.Equal(t, "38.47", RoundMoney(got).StringFixed(MoneyPlaces))

	got, err = pow(dec("2"), dec("-2"))
	require.NoError(t, err)
	assert.True(t, dec("0.25").Equal(got), "got %s", got)
}

func TestPow_RejectsHugeExponent(t *testing.T) {
	_, err := pow(dec("1.0001"), dec("4294967297"))
	assert.Error(t, err)

	_, err = pow(dec("1.0001"), dec("-4294967297"))
	assert.Error(t, err)
}

func TestPreviewInvestment_CenturyDailyCompounding(t *testing.T) {
	start := time.Now()
	got, err := PreviewInvestment(InvestmentPreviewRequest{
		Principal:   dec("1000"),
		AnnualRate:  dec("0.12"),
		Days:        domain.MaxProjectionDays,
		Interest:    InterestCompound,
		Compounding: CompoundingDaily,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, got.ProjectedTotal.GreaterThan(dec("80000000")), "got %s", got.ProjectedTotal)

	monthly, err := MonthlyRate(dec("0.12"))
	require.NoError(t, err)
	total, err := compoundTotal(dec("1000"), dec("0.12"), monthly, dec("36500"), CompoundingDaily)
	require.NoError(t, err)
	assert.LessOrEqual(t, -total.Exponent(), precision)
}

func TestPreviewInvestment(t *testing.T) {
	tests := []struct {
		name        string
		req         InvestmentPreviewRequest
		wantYield   string
		wantTotal   string
		wantMonthly string
		wantAPY     string
	}{
		{
			name:        "simple by default",
			req:         InvestmentPreviewRequest{Principal: dec("1000"), AnnualRate: dec("0.12"), Days: 90},
			wantYield:   "29.59",
			wantTotal:   "1029.59",
			wantMonthly: "0.0095",
			wantAPY:     "0.1200",
		},
		{
			name:        "simple full year",
			req:         InvestmentPreviewRequest{Principal: dec("1000"), AnnualRate: dec("0.12"), Days: 365, Interest: InterestSimple},
			wantYield:   "120.00",
			wantTotal:   "1120.00",
			wantMonthly: "0.0095",
			wantAPY:     "0.1200",
		},
		{
			name:        "compound monthly uses 30-day months",
			req:         InvestmentPreviewRequest{Principal: dec("1000"), AnnualRate: dec("0.12"), Days: 365, Interest: InterestCompound, Compounding: CompoundingMonthly},
			wantYield:   "121.76",
			wantTotal:   "1121.76",
			wantMonthly: "0.0095",
			wantAPY:     "0.1200",
		},
		{
			name:        "compound monthly 90 days",
			req:         InvestmentPreviewRequest{Principal: dec("1000"), AnnualRate: dec("0.12"), Days: 90, Interest: InterestCompound},
			wantYield:   "28.74",
			wantTotal:   "1028.74",
			wantMonthly: "0.0095",
			wantAPY:     "0.1200",
		},
		{
			name:        "compound annual full year",
			req:         InvestmentPreviewRequest{Principal: dec("1000"), AnnualRate: dec("0.12"), Days: 365, Interest: InterestCompound, Compounding: CompoundingAnnual},
			wantYield:   "120.00",
			wantTotal:   "1120.00",
			wantMonthly: "0.0095",
			wantAPY:     "0.1200",
		},
		{
			name:        "compound semiannual full year",
			req:         InvestmentPreviewRequest{Principal: dec("1000"), AnnualRate: dec("0.12"), Days: 365, Interest: InterestCompound, Compounding: CompoundingSemiannual},
			wantYield:   "120.00",
			wantTotal:   "1120.00",
			wantMonthly: "0.0095",
			wantAPY:     "0.1200",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PreviewInvestment(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantYield, got.ProjectedYield.StringFixed(MoneyPlaces))
			assert.Equal(t, tt.wantTotal, got.ProjectedTotal.StringFixed(MoneyPlaces))
			assert.Equal(t, tt.wantMonthly, got.MonthlyRate.StringFixed(RatePlaces))
			assert.Equal(t, tt.wantAPY, got.APY.StringFixed(RatePlaces))
		})
	}
}

func TestPreviewInvestment_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     InvestmentPreviewRequest
		wantErr error
	}{
		{"zero principal", InvestmentPreviewRequest{Principal: dec("0"), AnnualRate: dec("0.1"), Days: 10}, domain.ErrInvalidAmount},
		{"negative rate", InvestmentPreviewRequest{Principal: dec("10"), AnnualRate: dec("-0.1"), Days: 10}, domain.ErrInvalidRate},
		{"zero days", InvestmentPreviewRequest{Principal: dec("10"), AnnualRate: dec("0.1")}, domain.ErrInvalidDays},
		{"days beyond a century", InvestmentPreviewRequest{Principal: dec("10"), AnnualRate: dec("0.1"), Days: domain.MaxProjectionDays + 1}, domain.ErrInvalidDays},
		{"unknown compounding", InvestmentPreviewRequest{Principal: dec("10"), AnnualRate: dec("0.1"), Days: 10, Interest: InterestCompound, Compounding: "hourly"}, domain.ErrInvalidRequest},
		{"unknown interest type", InvestmentPreviewRequest{Principal: dec("10"), AnnualRate: dec("0.1"), Days: 10, Interest: "continuous"}, domain.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PreviewInvestment(tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
