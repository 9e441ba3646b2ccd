package finance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/capital-pool/internal/domain"
)

type InterestType string

const (
	InterestSimple   InterestType = "simple"
	InterestCompound InterestType = "compound"
)

type Compounding string

const (
	CompoundingDaily      Compounding = "daily"
	CompoundingMonthly    Compounding = "monthly"
	CompoundingSemiannual Compounding = "semiannual"
	CompoundingAnnual     Compounding = "annual"
)

func (c Compounding) IsValid() bool {
	switch c {
	case CompoundingDaily, CompoundingMonthly, CompoundingSemiannual, CompoundingAnnual:
		return true
	}
	return false
}

type InvestmentPreviewRequest struct {
	Principal   decimal.Decimal
	AnnualRate  decimal.Decimal
	Days        int
	Interest    InterestType
	Compounding Compounding
}

type InvestmentPreview struct {
	Principal      decimal.Decimal
	ProjectedYield decimal.Decimal
	ProjectedTotal decimal.Decimal
	MonthlyRate    decimal.Decimal
	APY            decimal.Decimal
}

var (
	daysPerMonth    = decimal.NewFromInt(30)
	daysPerSemester = decimal.RequireFromString("182.5")
)

// PreviewInvestment projects the yield of principal held for req.Days.
// Interest defaults to simple and Compounding to monthly.
func PreviewInvestment(req InvestmentPreviewRequest) (*InvestmentPreview, error) {
	if !req.Principal.IsPositive() {
		return nil, fmt.Errorf("PreviewInvestment: %w", domain.ErrInvalidAmount)
	}
	if req.AnnualRate.IsNegative() {
		return nil, fmt.Errorf("PreviewInvestment: %w", domain.ErrInvalidRate)
	}
	if err := domain.ValidateDays(req.Days); err != nil {
		return nil, fmt.Errorf("PreviewInvestment: %w", err)
	}
	if req.Interest == "" {
		req.Interest = InterestSimple
	}
	if req.Compounding == "" {
		req.Compounding = CompoundingMonthly
	}
	if !req.Compounding.IsValid() {
		return nil, fmt.Errorf("PreviewInvestment: unknown compounding %q: %w", req.Compounding, domain.ErrInvalidRequest)
	}

	monthly, err := MonthlyRate(req.AnnualRate)
	if err != nil {
		return nil, fmt.Errorf("PreviewInvestment: %w", err)
	}
	grownYear, err := pow(one.Add(monthly), decimal.NewFromInt(12))
	if err != nil {
		return nil, fmt.Errorf("PreviewInvestment: %w", err)
	}
	apy := grownYear.Sub(one)

	days := decimal.NewFromInt(int64(req.Days))
	var total decimal.Decimal
	switch req.Interest {
	case InterestSimple:
		total = req.Principal.Add(div(req.Principal.Mul(req.AnnualRate).Mul(days), daysPerYear))
	case InterestCompound:
		total, err = compoundTotal(req.Principal, req.AnnualRate, monthly, days, req.Compounding)
		if err != nil {
			return nil, fmt.Errorf("PreviewInvestment: %w", err)
		}
	default:
		return nil, fmt.Errorf("PreviewInvestment: unknown interest type %q: %w", req.Interest, domain.ErrInvalidRequest)
	}

	return &InvestmentPreview{
		Principal:      RoundMoney(req.Principal),
		ProjectedYield: RoundMoney(total.Sub(req.Principal)),
		ProjectedTotal: RoundMoney(total),
		MonthlyRate:    RoundRate(monthly),
		APY:            RoundRate(apy),
	}, nil
}

func compoundTotal(principal, annual, monthly, days decimal.Decimal, c Compounding) (decimal.Decimal, error) {
	var rate, periods decimal.Decimal
	switch c {
	case CompoundingDaily:
		daily, err := DailyRate(annual)
		if err != nil {
			return decimal.Zero, err
		}
		rate, periods = daily, days
	case CompoundingMonthly:
		rate, periods = monthly, div(days, daysPerMonth)
	case CompoundingSemiannual:
		semi, err := SemiannualRate(annual)
		if err != nil {
			return decimal.Zero, err
		}
		rate, periods = semi, div(days, daysPerSemester)
	default:
		rate, periods = annual, div(days, daysPerYear)
	}

	factor, err := pow(one.Add(rate), periods)
	if err != nil {
		return decimal.Zero, err
	}
	return principal.Mul(factor), nil
}
