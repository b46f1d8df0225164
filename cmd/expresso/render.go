package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"expresso/internal/aggregate"
	"expresso/internal/core"
	"expresso/internal/store"
)

// Styles apply outside tables only; tabwriter counts escape codes as width.
var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

func heading(w io.Writer, title string) {
	fmt.Fprintln(w, headingStyle.Render(title))
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func brl(m core.Money) string {
	return core.FormatBRL(m)
}

func renderSummary(w io.Writer, snap *store.Snapshot, f aggregate.Filter, views *aggregate.Memo) {
	totals := views.PeriodTotals(snap, f)
	series := views.BalanceEvolution(snap, f)
	breakdown := views.Breakdown(snap, f)

	heading(w, fmt.Sprintf("Resumo %s", f.Start.Format("01/2006")))
	tw := table(w)
	fmt.Fprintf(tw, "Saldo inicial\t%s\n", brl(series.Opening))
	fmt.Fprintf(tw, "Receitas\t%s\n", brl(totals.Receipts))
	fmt.Fprintf(tw, "Despesas\t%s\n", brl(totals.Expenses))
	fmt.Fprintf(tw, "Resultado\t%s\n", brl(totals.Net))
	fmt.Fprintf(tw, "Saldo final\t%s\n", brl(series.Closing()))
	tw.Flush()

	if expenses := breakdown.Expenses.Named(snap); len(expenses) > 0 {
		fmt.Fprintln(w)
		heading(w, "Despesas por categoria")
		renderAmounts(w, expenses)
	}
	if receipts := breakdown.Receipts.Named(snap); len(receipts) > 0 {
		fmt.Fprintln(w)
		heading(w, "Receitas por categoria")
		renderAmounts(w, receipts)
	}

	fmt.Fprintln(w)
	renderAccounts(w, snap.Accounts())
	if goals := views.Goals(snap); len(goals) > 0 {
		fmt.Fprintln(w)
		renderGoals(w, goals)
	}
	if len(snap.Stale) > 0 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("\nDesatualizado: %v", snap.Stale)))
	}
}

func renderAmounts(w io.Writer, amounts []core.CategoryAmount) {
	tw := table(w)
	for _, a := range amounts {
		fmt.Fprintf(tw, "%s\t%s\n", a.Name, brl(a.Amount))
	}
	tw.Flush()
}

func renderAccounts(w io.Writer, accounts []core.Account) {
	heading(w, "Contas")
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNOME\tTIPO\tSALDO")
	var total core.Money
	for _, a := range accounts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", a.ID, a.Name, a.Kind.WireName(), brl(a.Balance))
		total = total.Add(a.Balance)
	}
	fmt.Fprintf(tw, "\tTotal\t\t%s\n", brl(total))
	tw.Flush()
}

func renderGoals(w io.Writer, goals []aggregate.GoalView) {
	heading(w, "Metas")
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNOME\tGUARDADO\tALVO\tPRAZO\tPROGRESSO")
	for _, g := range goals {
		progress := fmt.Sprintf("%s %5.1f%%", progressBar(g.Percent, 20), g.Percent)
		if g.Reached() {
			progress += " ✓"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			g.Goal.ID, g.Goal.Name, brl(g.Saved), brl(g.Goal.Target), g.Goal.TargetDate, progress)
	}
	tw.Flush()
}

func progressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(width, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func renderTransactions(w io.Writer, txs []aggregate.TransactionView) {
	heading(w, "Transações")
	tw := table(w)
	fmt.Fprintln(tw, "ID\tDATA\tCONTA\tCATEGORIA\tDESCRIÇÃO\tVALOR")
	for _, t := range txs {
		desc := t.Description
		if t.Transfer {
			desc = "↔ " + desc
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.OperatedAt.Format("02/01/2006 15:04"), t.Account, t.Category, desc, brl(t.Amount))
	}
	tw.Flush()
}

func renderReport(w io.Writer, r aggregate.PeriodReport) {
	heading(w, fmt.Sprintf("Relatório %s a %s", r.Filter.Start.Format("02/01/2006"), r.Filter.End.Format("02/01/2006")))
	tw := table(w)
	fmt.Fprintf(tw, "Saldo inicial\t%s\n", brl(r.Opening))
	fmt.Fprintf(tw, "Receitas\t%s\n", brl(r.Receipts))
	fmt.Fprintf(tw, "Despesas\t%s\n", brl(r.Expenses))
	fmt.Fprintf(tw, "Saldo final\t%s\n", brl(r.Closing))
	tw.Flush()
	fmt.Fprintln(w)
	renderTransactions(w, r.Transactions)
}

func renderCategories(w io.Writer, cats []core.Category) {
	heading(w, "Categorias")
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNOME\t")
	for _, c := range cats {
		tag := ""
		if c.Default {
			tag = "padrão"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, tag)
	}
	tw.Flush()
}

func renderDrift(w io.Writer, drift []aggregate.Drift) {
	fmt.Fprintln(w)
	heading(w, "Divergências de saldo")
	tw := table(w)
	for _, d := range drift {
		fmt.Fprintf(tw, "%s\tinformado %s\tcalculado %s\n", d.Account.Name, brl(d.Account.Balance), brl(d.Computed))
	}
	tw.Flush()
}
