package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jask/jangbu/internal/ledger"
	"github.com/jask/jangbu/internal/query"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS accounting_transactions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    type         TEXT,
    gwan         TEXT,
    hang         TEXT,
    mok          TEXT,
    semok        TEXT,
    detail_1     TEXT,
    detail_2     TEXT,
    detail_3     TEXT,
    detail_4     TEXT,
    amount       INTEGER NOT NULL DEFAULT 0,
    account_name TEXT,
    reg_date     TEXT
);
CREATE INDEX IF NOT EXISTS idx_accounting_transactions_reg_date ON accounting_transactions(reg_date);
`

// LedgerRepo handles the ledger table. The table is created on first ingest;
// well-formed reads against a store without it return empty results.
type LedgerRepo struct {
	db *sql.DB
}

func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// EnsureSchema creates the ledger table if it does not exist.
func (r *LedgerRepo) EnsureSchema(ctx context.Context, x execer) error {
	if x == nil {
		x = r.db
	}
	if _, err := x.ExecContext(ctx, ledgerSchema); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

// Exists reports whether the ledger table has been created.
func (r *LedgerRepo) Exists(ctx context.Context) (bool, error) {
	return tableExists(ctx, r.db, ledger.Table)
}

// compileOnly prepares sqlText against the ledger schema in a transaction that
// is always rolled back, so a bad statement fails even before the first ingest.
func (r *LedgerRepo) compileOnly(ctx context.Context, sqlText string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := r.EnsureSchema(ctx, tx); err != nil {
		return fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	stmt, err := tx.PrepareContext(ctx, sqlText)
	if err != nil {
		return fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	return stmt.Close()
}

func tableExists(ctx context.Context, q queryer, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AppendBatch inserts recs inside tx. Ids are assigned by the store.
func (r *LedgerRepo) AppendBatch(ctx context.Context, tx *sql.Tx, recs []ledger.Record) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO accounting_transactions(
	 type, gwan, hang, mok, semok, detail_1, detail_2, detail_3, detail_4, amount, account_name, reg_date)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for i, rec := range recs {
		if _, err := stmt.ExecContext(ctx,
			rec.Type, rec.Gwan, rec.Hang, rec.Mok, rec.Semok,
			rec.Detail1, rec.Detail2, rec.Detail3, rec.Detail4,
			rec.Amount, rec.AccountName, rec.RegDate); err != nil {
			return i, fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return len(recs), nil
}

// Search runs a composed statement and scans the projected columns.
func (r *LedgerRepo) Search(ctx context.Context, st query.Statement) ([]ledger.Record, error) {
	return r.search(ctx, st.SQL(ledger.Table), st)
}

// Page runs st with a LIMIT/OFFSET window.
func (r *LedgerRepo) Page(ctx context.Context, st query.Statement, limit, offset int) ([]ledger.Record, error) {
	if limit <= 0 {
		return r.Search(ctx, st)
	}
	if offset < 0 {
		offset = 0
	}
	return r.search(ctx, fmt.Sprintf("%s LIMIT %d OFFSET %d", st.SQL(ledger.Table), limit, offset), st)
}

func (r *LedgerRepo) search(ctx context.Context, sqlText string, st query.Statement) ([]ledger.Record, error) {
	ok, err := r.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	if !ok {
		return nil, r.compileOnly(ctx, sqlText)
	}
	rows, err := r.db.QueryContext(ctx, sqlText, st.Args()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	defer rows.Close()

	var out []ledger.Record
	for rows.Next() {
		rec, err := scanRecord(rows, st.Columns)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	return out, nil
}

// Count returns how many rows match where.
func (r *LedgerRepo) Count(ctx context.Context, where query.Predicate) (int64, error) {
	q := "SELECT COUNT(*) FROM " + ledger.Table
	if !where.Empty() {
		q += " WHERE " + where.SQL
	}
	ok, err := r.Exists(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	if !ok {
		return 0, r.compileOnly(ctx, q)
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, q, where.Args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	return n, nil
}

// Distinct runs a single-column DISTINCT statement.
func (r *LedgerRepo) Distinct(ctx context.Context, st query.Statement) ([]string, error) {
	ok, err := r.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	if !ok {
		return nil, r.compileOnly(ctx, st.SQL(ledger.Table))
	}
	rows, err := r.db.QueryContext(ctx, st.SQL(ledger.Table), st.Args()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
		}
		if v.Valid {
			out = append(out, v.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	return out, nil
}

// Duplicates returns every record whose DuplicateKey tuple occurs more than
// once, ordered by reg_date, mok, id.
func (r *LedgerRepo) Duplicates(ctx context.Context) ([]ledger.Record, error) {
	ok, err := r.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	if !ok {
		return nil, nil
	}
	key := make([]string, len(DuplicateKey))
	for i, c := range DuplicateKey {
		key[i] = "COALESCE(" + c + ", '')"
	}
	tuple := strings.Join(key, ", ")
	q := fmt.Sprintf(`SELECT %s FROM %s
	WHERE (%s) IN (
	  SELECT %s FROM %s GROUP BY %s HAVING COUNT(*) > 1
	)
	ORDER BY reg_date ASC, mok ASC, id ASC`,
		strings.Join(ledger.Columns, ", "), ledger.Table,
		tuple, tuple, ledger.Table, tuple)

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	defer rows.Close()
	var out []ledger.Record
	for rows.Next() {
		rec, err := scanRecord(rows, ledger.Columns)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Update sets the given columns on the row with id and returns the number of
// rows changed. Columns must be updatable; values are bound as given.
func (r *LedgerRepo) Update(ctx context.Context, id int64, set map[string]any) (int64, error) {
	if len(set) == 0 {
		return 0, nil
	}
	cols := make([]string, 0, len(set))
	for c := range set {
		if !ledger.IsUpdatable(c) {
			return 0, ledger.UnknownColumn(c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	ok, err := r.Exists(ctx)
	if err != nil || !ok {
		return 0, err
	}
	assign := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		assign[i] = c + " = ?"
		args = append(args, set[c])
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", ledger.Table, strings.Join(assign, ", ")), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes the row with id. A missing row is not an error.
func (r *LedgerRepo) Delete(ctx context.Context, id int64) (int64, error) {
	ok, err := r.Exists(ctx)
	if err != nil || !ok {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+ledger.Table+" WHERE id = ?", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteAll removes every ledger row inside tx and returns how many went.
func (r *LedgerRepo) DeleteAll(ctx context.Context, tx *sql.Tx) (int64, error) {
	res, err := tx.ExecContext(ctx, "DELETE FROM "+ledger.Table)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Get loads one full record. found is false when no row has id.
func (r *LedgerRepo) Get(ctx context.Context, id int64) (rec ledger.Record, found bool, err error) {
	ok, err := r.Exists(ctx)
	if err != nil || !ok {
		return ledger.Record{}, false, err
	}
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(ledger.Columns, ", "), ledger.Table), id)
	rec, err = scanRecord(row, ledger.Columns)
	if err == sql.ErrNoRows {
		return ledger.Record{}, false, nil
	}
	if err != nil {
		return ledger.Record{}, false, err
	}
	return rec, true, nil
}

func scanRecord(s scanner, cols []string) (ledger.Record, error) {
	targets := make([]any, len(cols))
	texts := make([]sql.NullString, len(cols))
	nums := make([]sql.NullInt64, len(cols))
	for i, c := range cols {
		switch c {
		case ledger.ColID, ledger.ColAmount:
			targets[i] = &nums[i]
		default:
			targets[i] = &texts[i]
		}
	}
	var rec ledger.Record
	if err := s.Scan(targets...); err != nil {
		return rec, err
	}
	for i, c := range cols {
		switch c {
		case ledger.ColID:
			rec.ID = nums[i].Int64
		case ledger.ColAmount:
			rec.Amount = nums[i].Int64
		default:
			if texts[i].Valid {
				rec.SetText(c, texts[i].String)
			}
		}
	}
	return rec, nil
}
