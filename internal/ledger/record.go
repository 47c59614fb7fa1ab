// Package ledger holds the canonical ledger record, the column allow-list
// shared by every query and mutation path, and the static label table used to
// translate between Korean display labels and internal column identifiers.
package ledger

// Table is the ledger table name in the store.
const Table = "accounting_transactions"

// Record is one normalized ledger row.
type Record struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	Gwan        string  `json:"gwan"`
	Hang        string  `json:"hang"`
	Mok         string  `json:"mok"`
	Semok       string  `json:"semok"`
	Detail1     string  `json:"detail_1"`
	Detail2     string  `json:"detail_2"`
	Detail3     string  `json:"detail_3"`
	Detail4     string  `json:"detail_4"`
	Amount      int64   `json:"amount"`
	AccountName string  `json:"account_name"`
	RegDate     *string `json:"reg_date"`
}

// Date returns the registration date or "" when absent.
func (r Record) Date() string {
	if r.RegDate == nil {
		return ""
	}
	return *r.RegDate
}

// Value returns the record field stored under column as a display value.
func (r Record) Value(column string) any {
	switch column {
	case ColID:
		return r.ID
	case ColType:
		return r.Type
	case ColGwan:
		return r.Gwan
	case ColHang:
		return r.Hang
	case ColMok:
		return r.Mok
	case ColSemok:
		return r.Semok
	case ColDetail1:
		return r.Detail1
	case ColDetail2:
		return r.Detail2
	case ColDetail3:
		return r.Detail3
	case ColDetail4:
		return r.Detail4
	case ColAmount:
		return r.Amount
	case ColAccountName:
		return r.AccountName
	case ColRegDate:
		return r.Date()
	}
	return nil
}

// Result is a projected query result.
type Result struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// SetText assigns a text column. It reports false for id, amount and unknown
// columns.
func (r *Record) SetText(column, v string) bool {
	switch column {
	case ColType:
		r.Type = v
	case ColGwan:
		r.Gwan = v
	case ColHang:
		r.Hang = v
	case ColMok:
		r.Mok = v
	case ColSemok:
		r.Semok = v
	case ColDetail1:
		r.Detail1 = v
	case ColDetail2:
		r.Detail2 = v
	case ColDetail3:
		r.Detail3 = v
	case ColDetail4:
		r.Detail4 = v
	case ColAccountName:
		r.AccountName = v
	case ColRegDate:
		r.RegDate = &v
	default:
		return false
	}
	return true
}
