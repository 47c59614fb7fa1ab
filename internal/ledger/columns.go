package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Column identifiers of the ledger table.
const (
	ColID          = "id"
	ColType        = "type"
	ColGwan        = "gwan"
	ColHang        = "hang"
	ColMok         = "mok"
	ColSemok       = "semok"
	ColDetail1     = "detail_1"
	ColDetail2     = "detail_2"
	ColDetail3     = "detail_3"
	ColDetail4     = "detail_4"
	ColAmount      = "amount"
	ColAccountName = "account_name"
	ColRegDate     = "reg_date"
)

// Columns is the closed allow-list of identifiers, in table order.
var Columns = []string{
	ColID, ColType, ColGwan, ColHang, ColMok, ColSemok,
	ColDetail1, ColDetail2, ColDetail3, ColDetail4,
	ColAmount, ColAccountName, ColRegDate,
}

// FacetColumns can be offered as cascading facet filters.
var FacetColumns = []string{
	ColType, ColGwan, ColHang, ColMok, ColSemok,
	ColDetail1, ColDetail2, ColDetail3, ColDetail4,
	ColAccountName,
}

// SearchColumns are matched by the free-text keyword.
var SearchColumns = []string{ColSemok, ColDetail1, ColDetail2, ColDetail3, ColDetail4}

// ErrUnknownColumn is returned for identifiers outside the allow-list.
var ErrUnknownColumn = errors.New("unknown column")

// IsColumn reports whether name is an allow-listed identifier.
func IsColumn(name string) bool {
	return contains(Columns, name)
}

// IsFacet reports whether name can be used as a facet column.
func IsFacet(name string) bool {
	return contains(FacetColumns, name)
}

// IsUpdatable reports whether name may be set by a targeted update. The id is
// store-assigned and immutable.
func IsUpdatable(name string) bool {
	return name != ColID && IsColumn(name)
}

// UnknownColumn builds an ErrUnknownColumn error for name, suggesting the
// closest identifier or label when one is near.
func UnknownColumn(name string) error {
	if s := Suggest(name); s != "" {
		return fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownColumn, name, s)
	}
	return fmt.Errorf("%w %q", ErrUnknownColumn, name)
}

// Suggest returns the identifier or label nearest to name, or "" when
// nothing is within a couple of edits.
func Suggest(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	best, bestDist := "", 3
	candidates := append(append([]string{}, Columns...), labelList()...)
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func contains(list []string, name string) bool {
	for _, c := range list {
		if c == name {
			return true
		}
	}
	return false
}
