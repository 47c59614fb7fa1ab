// Package ingest turns raw spreadsheet rows into canonical ledger records.
// Individual bad values are coerced (amount to 0, date to absent) so a row is
// never rejected for its content; only an unreadable file fails a batch.
package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"

	"github.com/jask/jangbu/internal/ledger"
)

// SummarySeparator splits the free-text summary into detail fields.
const SummarySeparator = "-"

// Layout gives the source column position of each significant field.
type Layout struct {
	Type    int
	Gwan    int
	Hang    int
	Mok     int
	Semok   int
	Summary int
	Amount  int
	Account int
	RegDate int
}

// DefaultLayout matches the accounting workbook export: column 5 (F) holds a
// code that is not carried over.
var DefaultLayout = Layout{Type: 0, Gwan: 1, Hang: 2, Mok: 3, Semok: 4, Summary: 6, Amount: 7, Account: 8, RegDate: 9}

// LayoutFromPositions builds a Layout from nine positions in field order:
// type, gwan, hang, mok, semok, summary, amount, account, reg_date.
func LayoutFromPositions(pos []int) (Layout, error) {
	if len(pos) != 9 {
		return Layout{}, fmt.Errorf("ingest: layout needs 9 positions, got %d", len(pos))
	}
	for _, p := range pos {
		if p < 0 {
			return Layout{}, fmt.Errorf("ingest: negative column position %d", p)
		}
	}
	return Layout{
		Type: pos[0], Gwan: pos[1], Hang: pos[2], Mok: pos[3], Semok: pos[4],
		Summary: pos[5], Amount: pos[6], Account: pos[7], RegDate: pos[8],
	}, nil
}

// Width is the number of columns a row must span to reach every field.
func (l Layout) Width() int {
	w := 0
	for _, p := range []int{l.Type, l.Gwan, l.Hang, l.Mok, l.Semok, l.Summary, l.Amount, l.Account, l.RegDate} {
		if p+1 > w {
			w = p + 1
		}
	}
	return w
}

// Normalizer converts positional rows to records.
type Normalizer struct {
	Layout Layout
}

// Normalize maps one raw row onto a Record. Short rows read as empty cells.
func (n Normalizer) Normalize(row []string) ledger.Record {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	details := SplitSummary(cell(n.Layout.Summary))
	return ledger.Record{
		Type:        cleanText(cell(n.Layout.Type)),
		Gwan:        CleanCategory(cell(n.Layout.Gwan)),
		Hang:        CleanCategory(cell(n.Layout.Hang)),
		Mok:         CleanCategory(cell(n.Layout.Mok)),
		Semok:       CleanCategory(cell(n.Layout.Semok)),
		Detail1:     details[0],
		Detail2:     details[1],
		Detail3:     details[2],
		Detail4:     details[3],
		Amount:      ParseAmount(cell(n.Layout.Amount)),
		AccountName: CleanAccount(cell(n.Layout.Account)),
		RegDate:     ParseDate(cell(n.Layout.RegDate)),
	}
}

var (
	parenPrefix  = regexp.MustCompile(`^\(\d+\)\s*`)
	numberPrefix = regexp.MustCompile(`^\d+\s*`)
)

// CleanCategory strips enumerator prefixes: "(03)사업비" and "04 운영비"
// become "사업비" and "운영비".
func CleanCategory(s string) string {
	s = cleanText(s)
	for parenPrefix.MatchString(s) {
		s = parenPrefix.ReplaceAllString(s, "")
	}
	s = numberPrefix.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// CleanAccount strips a leading bare number: "04 운영비" becomes "운영비".
func CleanAccount(s string) string {
	return strings.TrimSpace(numberPrefix.ReplaceAllString(cleanText(s), ""))
}

// ParseAmount coerces a possibly comma-formatted amount to an integer.
// Fractions are truncated toward zero; anything unparsable is 0.
func ParseAmount(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || strings.EqualFold(s, "nan") {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

// SplitSummary splits a summary on "-" into four trimmed detail fields. The
// fourth field keeps any further separators; missing fields are "".
func SplitSummary(s string) [4]string {
	var out [4]string
	for i, part := range strings.SplitN(cleanText(s), SummarySeparator, 4) {
		out[i] = strings.TrimSpace(part)
	}
	return out
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"2006.1.2",
	"2006. 1. 2.",
	"2006. 1. 2",
	"2006.1.2.",
	"20060102",
	"2006년 1월 2일",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02 15:04:05",
	"2006.01.02 15:04:05",
	"01-02-06",
	"1/2/2006",
	"1/2/06",
	"2-Jan-2006",
	"Jan 2, 2006",
}

// ParseDate normalizes a date cell to YYYY-MM-DD. Spreadsheet serial day
// numbers are accepted. Unparsable input yields nil.
func ParseDate(s string) *string {
	s = cleanText(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return formatDate(t)
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial >= 1 && serial < 2958466 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return formatDate(t)
		}
	}
	return nil
}

func formatDate(t time.Time) *string {
	d := t.Format("2006-01-02")
	return &d
}

func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
