package ingest

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanCategory(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"(03)사업비":     "사업비",
		"04 운영비":      "운영비",
		" (1)(2) 인건비": "인건비",
		"운영비":         "운영비",
		"":            "",
		"12":          "",
	}
	for in, want := range cases {
		require.Equal(t, want, CleanCategory(in), "input %q", in)
	}
}

func TestCleanAccount(t *testing.T) {
	t.Parallel()

	require.Equal(t, "운영비", CleanAccount("04 운영비"))
	require.Equal(t, "(03)사업비", CleanAccount("(03)사업비"))
	require.Equal(t, "국민은행", CleanAccount(" 국민은행 "))
}

func TestParseAmount(t *testing.T) {
	t.Parallel()

	cases := map[string]int64{
		"1,234,567": 1234567,
		"-3,000":    -3000,
		"12000.9":   12000,
		"-12.7":     -12,
		"":          0,
		"nan":       0,
		"NaN":       0,
		"abc":       0,
		"1e3":       1000,
		"1e30":      0,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseAmount(in), "input %q", in)
	}
}

func TestParseAmountIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"1,234", "99.5", "-7", "x"} {
		once := ParseAmount(in)
		require.Equal(t, once, ParseAmount(strconv.FormatInt(once, 10)))
	}
}

func TestSplitSummary(t *testing.T) {
	t.Parallel()

	require.Equal(t, [4]string{"식대", "영수증없음", "", ""}, SplitSummary("식대-영수증없음"))
	require.Equal(t, [4]string{"a", "b", "c", "d-e"}, SplitSummary(" a - b -c- d-e "))
	require.Equal(t, [4]string{"", "", "", ""}, SplitSummary(""))
	require.Equal(t, [4]string{"", "x", "", ""}, SplitSummary("-x"))
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"2024-01-15":          "2024-01-15",
		"2024/1/5":            "2024-01-05",
		"2024.01.15":          "2024-01-15",
		"2024. 1. 15.":        "2024-01-15",
		"20240115":            "2024-01-15",
		"2024-01-15 13:45:00": "2024-01-15",
		"2024년 3월 2일":         "2024-03-02",
		"45306":               "2024-01-15",
	}
	for in, want := range cases {
		got := ParseDate(in)
		require.NotNil(t, got, "input %q", in)
		require.Equal(t, want, *got, "input %q", in)
	}
	require.Nil(t, ParseDate(""))
	require.Nil(t, ParseDate("어제"))
	require.Nil(t, ParseDate("2024-13-45"))
}

func TestNormalizeRow(t *testing.T) {
	t.Parallel()

	n := Normalizer{Layout: DefaultLayout}
	rec := n.Normalize([]string{
		" 지출 ", "(01)운영비", "02 인건비", "(03)사업비", "식대", "SKIP",
		"점심-영수증없음", "12,000", "04 운영비", "2024-01-15",
	})
	require.Equal(t, "지출", rec.Type)
	require.Equal(t, "운영비", rec.Gwan)
	require.Equal(t, "인건비", rec.Hang)
	require.Equal(t, "사업비", rec.Mok)
	require.Equal(t, "식대", rec.Semok)
	require.Equal(t, "점심", rec.Detail1)
	require.Equal(t, "영수증없음", rec.Detail2)
	require.Empty(t, rec.Detail3)
	require.Equal(t, int64(12000), rec.Amount)
	require.Equal(t, "운영비", rec.AccountName)
	require.Equal(t, "2024-01-15", rec.Date())

	short := n.Normalize([]string{"수입", "회비"})
	require.Equal(t, "회비", short.Gwan)
	require.Zero(t, short.Amount)
	require.Nil(t, short.RegDate)
}

func TestNormalizeComposesNFC(t *testing.T) {
	t.Parallel()

	// "식대" as decomposed jamo.
	decomposed := "\u1109\u1175\u11a8\u1103\u1162"
	rec := Normalizer{Layout: DefaultLayout}.Normalize([]string{"", "", "", decomposed})
	require.Equal(t, "식대", rec.Mok)
}

func TestLayoutFromPositions(t *testing.T) {
	t.Parallel()

	l, err := LayoutFromPositions([]int{0, 1, 2, 3, 4, 6, 7, 8, 9})
	require.NoError(t, err)
	require.Equal(t, DefaultLayout, l)
	require.Equal(t, 10, l.Width())

	_, err = LayoutFromPositions([]int{0, 1})
	require.Error(t, err)
	_, err = LayoutFromPositions([]int{0, 1, 2, 3, 4, 5, 6, 7, -1})
	require.Error(t, err)
}
