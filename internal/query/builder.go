// Package query compiles filter intents into parameterized SQL. Clauses are
// typed; only identifiers from the ledger allow-list are ever written into
// the SQL text, every caller-supplied value travels as a placeholder argument.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jask/jangbu/internal/ledger"
)

// Op is a clause kind.
type Op int

const (
	OpEq Op = iota + 1
	OpIn
	OpNotIn
	OpGTE
	OpLTE
	OpContainsAny
	OpNotEmpty
	OpRaw
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpIn:
		return "in"
	case OpNotIn:
		return "not_in"
	case OpGTE:
		return "gte"
	case OpLTE:
		return "lte"
	case OpContainsAny:
		return "contains_any"
	case OpNotEmpty:
		return "not_empty"
	case OpRaw:
		return "raw"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Clause is one conjunctive condition.
type Clause struct {
	Op      Op
	Columns []string
	Values  []any
	// Raw holds a pre-checked predicate fragment for OpRaw.
	Raw string
}

func Eq(column string, v any) Clause { return Clause{Op: OpEq, Columns: []string{column}, Values: []any{v}} }

func In(column string, vs ...any) Clause { return Clause{Op: OpIn, Columns: []string{column}, Values: vs} }

func NotIn(column string, vs ...any) Clause {
	return Clause{Op: OpNotIn, Columns: []string{column}, Values: vs}
}

func GTE(column string, v any) Clause { return Clause{Op: OpGTE, Columns: []string{column}, Values: []any{v}} }

func LTE(column string, v any) Clause { return Clause{Op: OpLTE, Columns: []string{column}, Values: []any{v}} }

// ContainsAny matches when any of columns contains term as a substring.
func ContainsAny(term string, columns ...string) Clause {
	return Clause{Op: OpContainsAny, Columns: columns, Values: []any{term}}
}

// NotEmpty matches non-null, non-empty values of column.
func NotEmpty(column string) Clause { return Clause{Op: OpNotEmpty, Columns: []string{column}} }

// Raw wraps a caller predicate. The fragment must already have passed
// CheckRaw; it is parenthesised on compile so a top-level OR stays inside.
func Raw(fragment string) Clause { return Clause{Op: OpRaw, Raw: fragment} }

// ErrClause reports a malformed clause.
var ErrClause = errors.New("invalid clause")

// Predicate is a compiled WHERE body with its positional arguments.
type Predicate struct {
	SQL  string
	Args []any
}

// Empty reports whether the predicate has no conditions.
func (p Predicate) Empty() bool { return p.SQL == "" }

// Builder accumulates clauses that are joined with AND.
type Builder struct {
	clauses []Clause
}

// Add appends c.
func (b *Builder) Add(c Clause) *Builder {
	b.clauses = append(b.clauses, c)
	return b
}

// Len returns the number of clauses.
func (b *Builder) Len() int { return len(b.clauses) }

// Build compiles the clauses in insertion order.
func (b *Builder) Build() (Predicate, error) {
	var parts []string
	var args []any
	for _, c := range b.clauses {
		sql, cargs, err := c.compile()
		if err != nil {
			return Predicate{}, err
		}
		parts = append(parts, sql)
		args = append(args, cargs...)
	}
	return Predicate{SQL: strings.Join(parts, " AND "), Args: args}, nil
}

func (c Clause) compile() (string, []any, error) {
	if c.Op == OpRaw {
		if strings.TrimSpace(c.Raw) == "" {
			return "", nil, fmt.Errorf("%w: empty raw predicate", ErrClause)
		}
		return "(" + c.Raw + ")", nil, nil
	}
	if len(c.Columns) == 0 {
		return "", nil, fmt.Errorf("%w: %s without column", ErrClause, c.Op)
	}
	for _, col := range c.Columns {
		if !ledger.IsColumn(col) {
			return "", nil, ledger.UnknownColumn(col)
		}
	}
	col := c.Columns[0]

	switch c.Op {
	case OpEq, OpGTE, OpLTE:
		if len(c.Values) != 1 {
			return "", nil, fmt.Errorf("%w: %s on %s needs one value", ErrClause, c.Op, col)
		}
		sym := map[Op]string{OpEq: "=", OpGTE: ">=", OpLTE: "<="}[c.Op]
		return fmt.Sprintf("%s %s ?", col, sym), c.Values, nil
	case OpIn, OpNotIn:
		if len(c.Values) == 0 {
			return "", nil, fmt.Errorf("%w: %s on %s needs values", ErrClause, c.Op, col)
		}
		kw := "IN"
		if c.Op == OpNotIn {
			kw = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", col, kw, placeholders(len(c.Values))), c.Values, nil
	case OpContainsAny:
		if len(c.Values) != 1 {
			return "", nil, fmt.Errorf("%w: contains needs one term", ErrClause)
		}
		pattern := "%" + escapeLike(fmt.Sprint(c.Values[0])) + "%"
		ors := make([]string, len(c.Columns))
		args := make([]any, len(c.Columns))
		for i, sc := range c.Columns {
			ors[i] = sc + ` LIKE ? ESCAPE '\'`
			args[i] = pattern
		}
		return "(" + strings.Join(ors, " OR ") + ")", args, nil
	case OpNotEmpty:
		return fmt.Sprintf("%s IS NOT NULL AND %s != ''", col, col), nil, nil
	}
	return "", nil, fmt.Errorf("%w: unsupported op %s", ErrClause, c.Op)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
