package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/capital-pool/internal/finance"
)

func newAccrueCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "accrue",
		Short: "Run one accrual batch as of now",
		Long: `Accrue yield on active investments and interest on active loans for the
whole days elapsed since each checkpoint. Running it twice in a row is a
no-op. Exits with an error if another accrual run holds the lease.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Accrual.Process(cmd.Context())
			if err != nil {
				return err
			}

			v := map[string]any{
				"investments": report.Investments,
				"loans":       report.Loans,
				"yield":       report.Yield.StringFixed(finance.MoneyPlaces),
				"interest":    report.Interest.StringFixed(finance.MoneyPlaces),
				"committed":   report.Committed,
			}
			return output(cmd.OutOrStdout(), opts, v, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "investments=%d loans=%d yield=%s interest=%s committed=%t\n",
					report.Investments, report.Loans,
					report.Yield.StringFixed(finance.MoneyPlaces),
					report.Interest.StringFixed(finance.MoneyPlaces),
					report.Committed)
				return err
			})
		},
	}
}

func newReconcileCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Promote queued loans that now fit the pool, in FIFO order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			promoted, err := a.Lending.ReconcileQueue(cmd.Context())
			if err != nil {
				return err
			}

			ids := make([]uuid.UUID, len(promoted))
			for i, l := range promoted {
				ids[i] = l.ID
			}
			return output(cmd.OutOrStdout(), opts, map[string]any{"promoted": ids}, func(w io.Writer) error {
				if len(ids) == 0 {
					_, err := fmt.Fprintln(w, "no loans promoted")
					return err
				}
				for _, id := range ids {
					if _, err := fmt.Fprintln(w, "promoted", id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the pool figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.Lending.PoolStatus(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][2]string{
				{"invested", s.Invested.StringFixed(finance.MoneyPlaces)},
				{"committed", s.Committed.StringFixed(finance.MoneyPlaces)},
				{"available", s.Available.StringFixed(finance.MoneyPlaces)},
				{"utilization", s.Utilization.StringFixed(finance.RatePlaces)},
				{"threshold", s.Threshold.StringFixed(finance.RatePlaces)},
				{"active_investors", fmt.Sprint(s.ActiveInvestors)},
				{"queued_loans", fmt.Sprint(s.QueuedLoans)},
			}
			v := make(map[string]string, len(rows))
			for _, r := range rows {
				v[r[0]] = r[1]
			}
			return output(cmd.OutOrStdout(), opts, v, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
				}
				return tw.Flush()
			})
		},
	}
}

func newPurgeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-idempotency",
		Short: "Delete expired idempotency cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Idempotency.PurgeExpired(cmd.Context(), a.Clock.Now())
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), opts, map[string]int64{"purged": n}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "purged %d expired entries\n", n)
				return err
			})
		},
	}
}
