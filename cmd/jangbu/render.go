package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jask/jangbu/internal/database/repository"
	"github.com/jask/jangbu/internal/ledger"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	incomeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	spendStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// renderRecords draws records under Korean headers. nil columns means all.
func renderRecords(columns []string, recs []ledger.Record) string {
	if len(columns) == 0 {
		columns = ledger.Columns
	}
	headers := make([]string, len(columns))
	for i, c := range columns {
		headers[i] = ledger.Label(c)
	}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = cell(r.Value(c))
		}
		rows = append(rows, row)
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

func renderTotals(t ledger.Totals) string {
	return fmt.Sprintf("%s %s   %s %s   잔액 %s",
		ledger.IncomeMarker, incomeStyle.Render(formatAmount(t.Income)),
		ledger.ExpenseMarker, spendStyle.Render(formatAmount(t.Expense)),
		formatAmount(t.Balance))
}

func renderFacets(facets map[string][]string) string {
	cols := make([]string, 0, len(facets))
	for c := range facets {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	var b strings.Builder
	for _, c := range cols {
		b.WriteString(headerStyle.Render(ledger.Label(c)))
		b.WriteString(": ")
		b.WriteString(strings.Join(facets[c], ", "))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderBatches(batches []repository.Batch) string {
	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, []string{
			b.IngestedAt.Format("2006-01-02 15:04"), b.FileName, fmt.Sprint(b.RowCount), b.Fingerprint, b.ID,
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ingested", "file", "rows", "fingerprint", "batch").
		Rows(rows...).
		String()
}

func cell(v any) string {
	switch x := v.(type) {
	case int64:
		return fmt.Sprint(x)
	case string:
		return x
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// formatAmount groups digits by thousands: 1234567 becomes "1,234,567".
func formatAmount(n int64) string {
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-n)
	}
	s := fmt.Sprint(u)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
