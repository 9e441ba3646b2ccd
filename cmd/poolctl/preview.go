package main

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/capital-pool/internal/finance"
)

func newPreviewCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Rate calculator; reads no stored state",
	}
	cmd.AddCommand(newPreviewInvestmentCommand(opts))
	cmd.AddCommand(newPreviewLoanCommand(opts))
	return cmd
}

type previewInvestmentFlags struct {
	principal   string
	rate        string
	days        int
	interest    string
	compounding string
}

func newPreviewInvestmentCommand(opts *rootOptions) *cobra.Command {
	f := &previewInvestmentFlags{}

	cmd := &cobra.Command{
		Use:   "investment",
		Short: "Project the yield of an investment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			principal, rate, err := parseAmounts(f.principal, f.rate)
			if err != nil {
				return err
			}
			p, err := finance.PreviewInvestment(finance.InvestmentPreviewRequest{
				Principal:   principal,
				AnnualRate:  rate,
				Days:        f.days,
				Interest:    finance.InterestType(f.interest),
				Compounding: finance.Compounding(f.compounding),
			})
			if err != nil {
				return err
			}

			v := map[string]string{
				"principal":       p.Principal.StringFixed(finance.MoneyPlaces),
				"projected_yield": p.ProjectedYield.StringFixed(finance.MoneyPlaces),
				"projected_total": p.ProjectedTotal.StringFixed(finance.MoneyPlaces),
				"monthly_rate":    p.MonthlyRate.StringFixed(finance.RatePlaces),
				"apy":             p.APY.StringFixed(finance.RatePlaces),
			}
			return output(cmd.OutOrStdout(), opts, v, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "principal %s\nyield     %s\ntotal     %s\nmonthly   %s\napy       %s\n",
					v["principal"], v["projected_yield"], v["projected_total"], v["monthly_rate"], v["apy"])
				return err
			})
		},
	}

	cmd.Flags().StringVar(&f.principal, "principal", "", "amount invested")
	cmd.Flags().StringVar(&f.rate, "rate", "", "annual rate as a fraction, e.g. 0.12")
	cmd.Flags().IntVar(&f.days, "days", 365, "holding period in days")
	cmd.Flags().StringVar(&f.interest, "interest", string(finance.InterestSimple), "simple or compound")
	cmd.Flags().StringVar(&f.compounding, "compounding", string(finance.CompoundingMonthly), "daily, monthly, semiannual or annual")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("rate")

	return cmd
}

type previewLoanFlags struct {
	principal string
	rate      string
	term      int
	system    string
	first     string
}

func newPreviewLoanCommand(opts *rootOptions) *cobra.Command {
	f := &previewLoanFlags{}

	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Print the amortization schedule of a loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			principal, rate, err := parseAmounts(f.principal, f.rate)
			if err != nil {
				return err
			}
			first := time.Now().UTC().AddDate(0, 1, 0)
			if f.first != "" {
				if first, err = time.Parse(time.DateOnly, f.first); err != nil {
					return fmt.Errorf("--first: %w", err)
				}
			}

			p, err := finance.PreviewLoan(finance.LoanPreviewRequest{
				Principal:        principal,
				AnnualRate:       rate,
				TermMonths:       f.term,
				System:           finance.AmortizationSystem(f.system),
				FirstInstallment: first,
			})
			if err != nil {
				return err
			}

			return output(cmd.OutOrStdout(), opts, p, func(w io.Writer) error {
				if err := p.WriteTable(w); err != nil {
					return err
				}
				_, err := fmt.Fprintf(w, "\ntotal paid %s, interest %s\n",
					p.TotalPaid.StringFixed(finance.MoneyPlaces),
					p.TotalInterest.StringFixed(finance.MoneyPlaces))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&f.principal, "principal", "", "amount borrowed")
	cmd.Flags().StringVar(&f.rate, "rate", "", "annual rate as a fraction, e.g. 0.15")
	cmd.Flags().IntVar(&f.term, "term", 12, "term in months")
	cmd.Flags().StringVar(&f.system, "system", string(finance.ConstantInstallment), "constant_installment or constant_amortization")
	cmd.Flags().StringVar(&f.first, "first", "", "first installment date, YYYY-MM-DD (default one month from today)")
	_ = cmd.MarkFlagRequired("principal")
	_ = cmd.MarkFlagRequired("rate")

	return cmd
}

func parseAmounts(principal, rate string) (decimal.Decimal, decimal.Decimal, error) {
	p, err := decimal.NewFromString(principal)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("--principal: %w", err)
	}
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("--rate: %w", err)
	}
	return p, r, nil
}
