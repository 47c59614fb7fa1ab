package ingest

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jask/jangbu/internal/ledger"
)

// ExportSheet is the worksheet name used by WriteXLSX.
const ExportSheet = "장부"

// WriteXLSX writes res as a workbook with Korean header labels. When totals
// is non-nil the income, expense and balance rows follow a blank row.
func WriteXLSX(w io.Writer, res ledger.Result, totals *ledger.Totals) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		return err
	}

	header := make([]any, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = ledger.Label(c)
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return err
	}
	row := 2
	for _, rec := range res.Records {
		vals := make([]any, len(res.Columns))
		for i, c := range res.Columns {
			vals[i] = rec.Value(c)
		}
		if err := f.SetSheetRow(ExportSheet, fmt.Sprintf("A%d", row), &vals); err != nil {
			return err
		}
		row++
	}
	if totals != nil {
		row++
		for _, line := range [][]any{
			{ledger.IncomeMarker, totals.Income},
			{ledger.ExpenseMarker, totals.Expense},
			{"잔액", totals.Balance},
		} {
			if err := f.SetSheetRow(ExportSheet, fmt.Sprintf("A%d", row), &line); err != nil {
				return err
			}
			row++
		}
	}
	_, err := f.WriteTo(w)
	return err
}
