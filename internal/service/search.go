package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jask/jangbu/internal/database/repository"
	"github.com/jask/jangbu/internal/ledger"
	"github.com/jask/jangbu/internal/logger"
	"github.com/jask/jangbu/internal/metrics"
	"github.com/jask/jangbu/internal/query"
)

// SearchService answers filter intents from the presentation layer.
type SearchService struct {
	Ledger  *repository.LedgerRepo
	Metrics *metrics.Metrics
}

// SearchResult is a projected result plus totals over every matching row.
type SearchResult struct {
	ledger.Result
	Totals ledger.Totals `json:"totals"`
}

// Search composes f and runs it. Labels in the projection, the filter keys and
// outside literals of the raw predicate are accepted in place of identifiers.
func (s *SearchService) Search(ctx context.Context, f query.Filter) (res SearchResult, err error) {
	defer s.observe("search", time.Now(), &err)

	f = ResolveLabels(f)
	display := query.Projection(f.Columns)
	fetch := f
	fetch.Columns = withTotalsColumns(display)
	st, err := query.Compose(fetch)
	if err != nil {
		return SearchResult{}, err
	}
	recs, err := s.Ledger.Search(ctx, st)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("sql", st.SQL(ledger.Table)).Msg("search failed")
		return SearchResult{}, err
	}
	return SearchResult{
		Result: ledger.Result{Columns: display, Records: recs},
		Totals: ledger.ComputeTotals(recs),
	}, nil
}

// Page is Search restricted to a window. Totals cover the window only.
func (s *SearchService) Page(ctx context.Context, f query.Filter, limit, offset int) (res SearchResult, err error) {
	defer s.observe("page", time.Now(), &err)

	f = ResolveLabels(f)
	display := query.Projection(f.Columns)
	fetch := f
	fetch.Columns = withTotalsColumns(display)
	st, err := query.Compose(fetch)
	if err != nil {
		return SearchResult{}, err
	}
	recs, err := s.Ledger.Page(ctx, st, limit, offset)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{
		Result: ledger.Result{Columns: display, Records: recs},
		Totals: ledger.ComputeTotals(recs),
	}, nil
}

// Count returns the number of rows matching f.
func (s *SearchService) Count(ctx context.Context, f query.Filter) (n int64, err error) {
	defer s.observe("count", time.Now(), &err)

	st, err := query.Compose(ResolveLabels(f))
	if err != nil {
		return 0, err
	}
	return s.Ledger.Count(ctx, st.Where)
}

// Facet returns the cascading values for one facet column under f.
func (s *SearchService) Facet(ctx context.Context, column string, f query.Filter) (vals []string, err error) {
	defer s.observe("facet", time.Now(), &err)

	if c, ok := ledger.ColumnForLabel(column); ok {
		column = c
	}
	st, err := query.ComposeDistinct(column, ResolveLabels(f))
	if err != nil {
		return nil, err
	}
	return s.Ledger.Distinct(ctx, st)
}

// Facets returns cascading values for every facet column.
func (s *SearchService) Facets(ctx context.Context, f query.Filter) (map[string][]string, error) {
	out := make(map[string][]string, len(ledger.FacetColumns))
	for _, c := range ledger.FacetColumns {
		vals, err := s.Facet(ctx, c, f)
		if err != nil {
			return nil, fmt.Errorf("facet %s: %w", c, err)
		}
		out[c] = vals
	}
	return out, nil
}

func (s *SearchService) observe(op string, start time.Time, err *error) {
	s.Metrics.ObserveQuery(op, start, *err)
}

// ResolveLabels maps label keys and projections to identifiers and
// translates labels in the raw predicate. Unknown names pass through so the
// composer can reject them.
func ResolveLabels(f query.Filter) query.Filter {
	out := f
	if len(f.Columns) > 0 {
		out.Columns = make([]string, len(f.Columns))
		for i, c := range f.Columns {
			out.Columns[i] = resolve(c)
		}
	}
	out.Include = resolveKeys(f.Include)
	out.Exclude = resolveKeys(f.Exclude)
	out.Raw = ledger.Translate(f.Raw)
	return out
}

func resolveKeys(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		k = resolve(k)
		out[k] = append(out[k], v...)
	}
	return out
}

func resolve(name string) string {
	if c, ok := ledger.ColumnForLabel(name); ok {
		return c
	}
	return name
}

func withTotalsColumns(display []string) []string {
	out := append([]string(nil), display...)
	for _, c := range []string{ledger.ColType, ledger.ColAmount} {
		found := false
		for _, d := range display {
			if d == c {
				found = true
				break
			}
		}
		if !found {
			out = append(out, c)
		}
	}
	return out
}
