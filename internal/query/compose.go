package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jask/jangbu/internal/ledger"
)

// DateLayout is the stored registration date format.
const DateLayout = "2006-01-02"

// DefaultOrder is applied when the raw predicate has no ORDER BY.
const DefaultOrder = ledger.ColRegDate + " DESC, " + ledger.ColID + " DESC"

var (
	// ErrInvalidDate is returned for a malformed start or end date.
	ErrInvalidDate = errors.New("invalid date")
	// ErrQuery wraps store failures while executing a composed statement.
	ErrQuery = errors.New("query execution failed")
)

// Filter is the explicit filter context a caller passes per request. The
// composer keeps no state between calls.
type Filter struct {
	Columns   []string            `json:"columns,omitempty"`
	Raw       string              `json:"raw,omitempty"`
	Include   map[string][]string `json:"include,omitempty"`
	Exclude   map[string][]string `json:"exclude,omitempty"`
	Keyword   string              `json:"keyword,omitempty"`
	StartDate string              `json:"start_date,omitempty"`
	EndDate   string              `json:"end_date,omitempty"`
}

// Statement is a composed, parameterized SELECT.
type Statement struct {
	Columns  []string
	Distinct bool
	Where    Predicate
	OrderBy  string
}

// SQL renders the statement against table.
func (s Statement) SQL(table string) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(s.Columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(table)
	if !s.Where.Empty() {
		b.WriteString(" WHERE ")
		b.WriteString(s.Where.SQL)
	}
	if s.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(s.OrderBy)
	}
	return b.String()
}

// Args returns the positional arguments.
func (s Statement) Args() []any { return s.Where.Args }

// Projection keeps allow-listed identifiers in caller order without
// duplicates. An empty or fully invalid projection selects every column.
func Projection(columns []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range columns {
		c = strings.TrimSpace(c)
		if !ledger.IsColumn(c) || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return append([]string(nil), ledger.Columns...)
	}
	return out
}

// Compose builds the filtered SELECT for f.
func Compose(f Filter) (Statement, error) {
	raw, err := SplitRaw(f.Raw)
	if err != nil {
		return Statement{}, err
	}

	var b Builder
	if raw.Cond != "" {
		b.Add(Raw(raw.Cond))
	}
	if err := addSetFilters(&b, f, ""); err != nil {
		return Statement{}, err
	}
	if err := addKeywordAndDates(&b, f); err != nil {
		return Statement{}, err
	}

	where, err := b.Build()
	if err != nil {
		return Statement{}, err
	}
	order := raw.OrderBy
	if order == "" {
		order = DefaultOrder
	}
	return Statement{Columns: Projection(f.Columns), Where: where, OrderBy: order}, nil
}

// ComposeDistinct builds the cascading facet query for column: distinct
// non-empty values under every other column's set filters, the keyword and
// the date range. The column's own filters and the raw predicate are ignored.
func ComposeDistinct(column string, f Filter) (Statement, error) {
	if !ledger.IsFacet(column) {
		return Statement{}, ledger.UnknownColumn(column)
	}
	var b Builder
	b.Add(NotEmpty(column))
	if err := addSetFilters(&b, f, column); err != nil {
		return Statement{}, err
	}
	if err := addKeywordAndDates(&b, f); err != nil {
		return Statement{}, err
	}
	where, err := b.Build()
	if err != nil {
		return Statement{}, err
	}
	return Statement{Columns: []string{column}, Distinct: true, Where: where, OrderBy: column}, nil
}

func addSetFilters(b *Builder, f Filter, skip string) error {
	for _, col := range sortedKeys(f.Include) {
		vals := toArgs(f.Include[col])
		if col == skip || len(vals) == 0 {
			continue
		}
		if !ledger.IsColumn(col) {
			return ledger.UnknownColumn(col)
		}
		if len(vals) == 1 {
			b.Add(Eq(col, vals[0]))
		} else {
			b.Add(In(col, vals...))
		}
	}
	for _, col := range sortedKeys(f.Exclude) {
		vals := toArgs(f.Exclude[col])
		if col == skip || len(vals) == 0 {
			continue
		}
		if !ledger.IsColumn(col) {
			return ledger.UnknownColumn(col)
		}
		b.Add(NotIn(col, vals...))
	}
	return nil
}

func addKeywordAndDates(b *Builder, f Filter) error {
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		b.Add(ContainsAny(kw, ledger.SearchColumns...))
	}
	if f.StartDate != "" {
		d, err := checkDate(f.StartDate)
		if err != nil {
			return err
		}
		b.Add(GTE(ledger.ColRegDate, d))
	}
	if f.EndDate != "" {
		d, err := checkDate(f.EndDate)
		if err != nil {
			return err
		}
		b.Add(LTE(ledger.ColRegDate, d))
	}
	return nil
}

func checkDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w %q: want YYYY-MM-DD", ErrInvalidDate, s)
	}
	return t.Format(DateLayout), nil
}

// toArgs keeps the set values as placeholder arguments, in order.
func toArgs(vals []string) []any {
	if len(vals) == 0 {
		return nil
	}
	out := make([]any, 0, len(vals))
	for _, v := range vals {
		out = append(out, v)
	}
	return out
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
