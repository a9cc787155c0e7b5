package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"gastos/internal/core"
	"gastos/internal/report"
	"gastos/internal/services"
)

func newAddCmd(open opener) *cobra.Command {
	var in core.ExpenseInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record one expense through the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, open, func(ctx context.Context, s *session, out io.Writer) error {
				e, err := in.Expense(core.DateOf(s.Now().In(s.Location)))
				if err != nil {
					return err
				}
				ref, err := services.NewRecorder(s.Store, s.Logger).Record(ctx, e)
				if err != nil {
					return err
				}
				printf(out, "Guardado %s: %s %s (%s, %s) ref=%s\n",
					e.Date, e.Category.Label(), e.Amount.Display(), e.Payer, e.Payment.Label(), ref)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Date, "date", "", "expense date, YYYY-MM-DD (default today)")
	f.StringVar(&in.Amount, "amount", "", "amount, e.g. 1234.50")
	f.StringVar(&in.Category, "category", "", "category name")
	f.StringVar(&in.Payer, "payer", "", "who paid")
	f.StringVar(&in.Payment, "payment", "", "payment method")
	f.StringVar(&in.Note, "note", "", "optional note")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("payer")
	_ = cmd.MarkFlagRequired("payment")
	return cmd
}

func newReportCmd(open opener) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the spending summary for this month or all time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, open, func(ctx context.Context, s *session, out io.Writer) error {
				scope := report.ScopeMonth
				if all {
					scope = report.ScopeAll
				}
				recs, err := services.NewReporter(s.Store, s.Budgets, 0, s.Logger).Records(ctx)
				if err != nil {
					return fmt.Errorf("load expenses: %w", err)
				}
				writeSummary(out, report.Build(recs, s.Budgets, scope, s.Now().In(s.Location)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "summarize every record instead of the current month")
	return cmd
}

func newBudgetsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "budgets",
		Short: "Print the active monthly budget table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, open, func(_ context.Context, s *session, out io.Writer) error {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
				printf(tw, "Categoría\tPresupuesto\t\n")
				for _, line := range s.Budgets.Lines() {
					printf(tw, "%s\t%s\t\n", line.Category.Label(), line.Limit.Display())
				}
				printf(tw, "Total\t%s\t\n", s.Budgets.Total().Display())
				return tw.Flush()
			})
		},
	}
}

func writeSummary(out io.Writer, sum report.Summary) {
	if sum.Count == 0 {
		if len(sum.History) == 0 {
			printf(out, "Aún no hay gastos registrados.\n")
		} else {
			printf(out, "Sin gastos en %s.\n", sum.Period)
		}
		return
	}

	printf(out, "Total (%s): %s\n", sum.Period, sum.Total.Display())
	printf(out, "Registros: %d\n", sum.Count)
	printf(out, "Método más usado: %s\n\n", sum.TopPayment.Label())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	printf(tw, "Categoría\tGastado\tPresupuesto\tUso\t\n")
	for _, c := range sum.ByCategory {
		limit, used := "-", "-"
		if c.HasBudget {
			limit = c.Budget.Display()
			used = formatPercent(c.Percent, c.Over)
		}
		printf(tw, "%s\t%s\t%s\t%s\t\n", c.Category.Label(), c.Amount.Display(), limit, used)
	}
	_ = tw.Flush()
}

func formatPercent(p float64, over bool) string {
	s := fmt.Sprintf("%.0f%%", p)
	if over {
		s += " !"
	}
	return s
}
