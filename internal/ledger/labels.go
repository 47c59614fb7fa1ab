package ledger

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Labels maps internal identifiers to the Korean labels shown to users and
// accepted inside raw predicates.
var Labels = map[string]string{
	ColID:          "ID",
	ColType:        "수입/지출",
	ColGwan:        "관",
	ColHang:        "항",
	ColMok:         "목",
	ColSemok:       "세목",
	ColDetail1:     "상세1",
	ColDetail2:     "상세2",
	ColDetail3:     "상세3",
	ColDetail4:     "상세4",
	ColAmount:      "금액",
	ColAccountName: "계좌명",
	ColRegDate:     "등기일",
}

var (
	columnsByLabel = func() map[string]string {
		out := make(map[string]string, len(Labels))
		for col, label := range Labels {
			out[label] = col
		}
		return out
	}()

	// translatable labels, longest first so 세목 is replaced before 목.
	// "ID" is left out: it is already a valid identifier in any case.
	translatable = func() []string {
		var out []string
		for col, label := range Labels {
			if col == ColID {
				continue
			}
			out = append(out, label)
		}
		sort.Slice(out, func(i, j int) bool {
			li, lj := utf8.RuneCountInString(out[i]), utf8.RuneCountInString(out[j])
			if li != lj {
				return li > lj
			}
			return out[i] < out[j]
		})
		return out
	}()
)

// Label returns the display label for column, or column itself when it has none.
func Label(column string) string {
	if l, ok := Labels[column]; ok {
		return l
	}
	return column
}

// ColumnForLabel resolves a label or identifier to an internal identifier.
func ColumnForLabel(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if IsColumn(name) {
		return name, true
	}
	col, ok := columnsByLabel[name]
	return col, ok
}

// Translate rewrites label occurrences in a free-form predicate into internal
// identifiers. The text is split on single quotes: even segments are code and
// odd segments are literals, which are re-emitted untouched. Unbalanced quotes
// flip the parity of everything after them; the predicate grammar is
// deliberately restricted and no attempt is made to recover.
func Translate(predicate string) string {
	if predicate == "" {
		return ""
	}
	parts := strings.Split(predicate, "'")
	var b strings.Builder
	b.Grow(len(predicate))
	for i, part := range parts {
		if i > 0 {
			b.WriteByte('\'')
		}
		if i%2 == 1 {
			b.WriteString(part)
			continue
		}
		for _, label := range translatable {
			part = strings.ReplaceAll(part, label, columnsByLabel[label])
		}
		b.WriteString(part)
	}
	return b.String()
}

func labelList() []string {
	out := make([]string, 0, len(Labels))
	for _, l := range Labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
