package ledger

import "strings"

// Markers searched for (by containment) in the type field.
const (
	IncomeMarker  = "수입"
	ExpenseMarker = "지출"
)

// Totals summarises a result set.
type Totals struct {
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Balance int64 `json:"balance"`
}

// ComputeTotals sums amounts of income-typed and expense-typed records. Types
// are matched by containment since stored values may carry decoration such as
// "01 수입". A record matching neither marker is ignored.
func ComputeTotals(records []Record) Totals {
	var t Totals
	for _, r := range records {
		if strings.Contains(r.Type, IncomeMarker) {
			t.Income += r.Amount
		}
		if strings.Contains(r.Type, ExpenseMarker) {
			t.Expense += r.Amount
		}
	}
	t.Balance = t.Income - t.Expense
	return t
}
