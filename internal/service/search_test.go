package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/jangbu/internal/ledger"
	"github.com/jask/jangbu/internal/query"
)

func seedLedger(t *testing.T) (context.Context, services) {
	t.Helper()
	ctx, s := newServices(t)
	importSheet(t, ctx, s,
		[]any{"수입", "사업비", "보조금", "지원금", "", "", "1차-입금", 1000, "국민", "2024-01-10"},
		[]any{"지출", "운영비", "인건비", "식대", "점심", "", "김밥-영수증없음", 400, "국민", "2024-01-11"},
		[]any{"지출", "운영비", "관리비", "통신비", "", "", "인터넷", 50, "신한", "2024-02-01"},
	)
	return ctx, s
}

func TestSearchTotalsIgnoreProjection(t *testing.T) {
	t.Parallel()
	ctx, s := newServices(t)
	importSheet(t, ctx, s,
		[]any{"01 수입", "사업비", "", "지원금", "", "", "", 1000, "", "2024-01-10"},
		[]any{"지출", "운영비", "", "식대", "", "", "", 400, "", "2024-01-11"},
	)

	out, err := s.search.Search(ctx, query.Filter{Columns: []string{"목"}})
	require.NoError(t, err)
	require.Equal(t, []string{"mok"}, out.Columns)
	require.Equal(t, ledger.Totals{Income: 1000, Expense: 400, Balance: 600}, out.Totals)
}

func TestSearchAcceptsLabels(t *testing.T) {
	t.Parallel()
	ctx, s := newServices(t)
	importSheet(t, ctx, s,
		[]any{"지출", "운영비", "", "식대", "", "", "", 400, "", "2024-01-11"},
		[]any{"지출", "사업비", "", "행사비", "", "", "", 9000, "", "2024-01-12"},
	)

	out, err := s.search.Search(ctx, query.Filter{
		Raw:     "금액 > 500",
		Include: map[string][]string{"관": {"사업비", "운영비"}},
	})
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	require.Equal(t, "행사비", out.Records[0].Mok)
}

func TestSearchRawOrStaysConjunctive(t *testing.T) {
	t.Parallel()
	ctx, s := newServices(t)
	importSheet(t, ctx, s,
		[]any{"지출", "운영비", "", "식대", "", "", "", 400, "", "2024-01-11"},
		[]any{"지출", "사업비", "", "행사비", "", "", "", 9000, "", "2024-01-12"},
	)

	out, err := s.search.Search(ctx, query.Filter{
		Raw:     "1 = 1 OR 금액 > 0",
		Exclude: map[string][]string{"gwan": {"사업비"}},
	})
	require.NoError(t, err)
	require.Len(t, out.Records, 1)
	require.Equal(t, "운영비", out.Records[0].Gwan)
}

func TestSearchSurfacesQueryErrors(t *testing.T) {
	t.Parallel()
	ctx, s := newServices(t)
	importSheet(t, ctx, s, []any{"지출", "운영비", "", "", "", "", "", 1, "", ""})

	_, err := s.search.Search(ctx, query.Filter{Raw: "no_such_column = 1"})
	require.True(t, errors.Is(err, query.ErrQuery))

	_, err = s.search.Search(ctx, query.Filter{Raw: "1=1); DROP TABLE accounting_transactions; --"})
	require.True(t, errors.Is(err, query.ErrRawPredicate))
}

func TestSearchEmptyStoreIsEmpty(t *testing.T) {
	t.Parallel()
	ctx, s := newServices(t)

	out, err := s.search.Search(ctx, query.Filter{})
	require.NoError(t, err)
	require.Empty(t, out.Records)
	require.Equal(t, ledger.Totals{}, out.Totals)
}

func TestFacetsCascade(t *testing.T) {
	t.Parallel()
	ctx, s := seedLedger(t)

	vals, err := s.search.Facet(ctx, "항", query.Filter{Include: map[string][]string{"gwan": {"운영비"}, "hang": {"인건비"}}})
	require.NoError(t, err)
	require.Equal(t, []string{"관리비", "인건비"}, vals)

	all, err := s.search.Facets(ctx, query.Filter{Keyword: "김밥"})
	require.NoError(t, err)
	require.Equal(t, []string{"운영비"}, all["gwan"])
	require.Equal(t, []string{"점심"}, all["semok"])

	_, err = s.search.Facet(ctx, "amount", query.Filter{})
	require.True(t, errors.Is(err, ledger.ErrUnknownColumn))
}

func TestPageWindows(t *testing.T) {
	t.Parallel()
	ctx, s := seedLedger(t)

	page, err := s.search.Page(ctx, query.Filter{}, 2, 0)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	require.Equal(t, "2024-02-01", page.Records[0].Date())

	page, err = s.search.Page(ctx, query.Filter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, "2024-01-10", page.Records[0].Date())
}
