package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrRawPredicate is returned when a raw predicate could escape its
// parentheses or smuggle a second statement.
var ErrRawPredicate = errors.New("raw predicate rejected")

var (
	leadingWhere = regexp.MustCompile(`(?i)^where\b\s*`)
	orderBy      = regexp.MustCompile(`(?i)\border\s+by\b`)
)

// RawParts is a raw predicate split into its condition and ordering.
type RawParts struct {
	Cond    string
	OrderBy string
}

// SplitRaw checks a raw predicate lexically and splits off a top-level
// ORDER BY. A leading WHERE keyword is dropped. This is not a parser: only
// quote pairing, parenthesis balance, statement separators and comment
// markers outside literals are examined.
func SplitRaw(raw string) (RawParts, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSpace(leadingWhere.ReplaceAllString(raw, ""))
	if raw == "" {
		return RawParts{}, nil
	}
	masked, err := CheckRaw(raw)
	if err != nil {
		return RawParts{}, err
	}
	var loc []int
	for _, m := range orderBy.FindAllStringIndex(masked, -1) {
		if depthAt(masked, m[0]) == 0 {
			loc = m
			break
		}
	}
	if loc == nil {
		return RawParts{Cond: raw}, nil
	}
	parts := RawParts{
		Cond:    strings.TrimSpace(raw[:loc[0]]),
		OrderBy: strings.TrimSpace(raw[loc[1]:]),
	}
	if parts.OrderBy == "" {
		return RawParts{}, fmt.Errorf("%w: ORDER BY without terms", ErrRawPredicate)
	}
	return parts, nil
}

// CheckRaw validates raw and returns it with literal contents blanked out,
// byte-for-byte aligned with the input.
func CheckRaw(raw string) (string, error) {
	masked := []byte(raw)
	inLiteral := false
	depth := 0
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '\'' {
			inLiteral = !inLiteral
			continue
		}
		if inLiteral {
			masked[i] = ' '
			continue
		}
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return "", fmt.Errorf("%w: unbalanced ')' at offset %d", ErrRawPredicate, i)
			}
		case ';':
			return "", fmt.Errorf("%w: statement separator", ErrRawPredicate)
		case '-':
			if i+1 < len(raw) && raw[i+1] == '-' {
				return "", fmt.Errorf("%w: comment marker", ErrRawPredicate)
			}
		case '/':
			if i+1 < len(raw) && raw[i+1] == '*' {
				return "", fmt.Errorf("%w: comment marker", ErrRawPredicate)
			}
		}
	}
	if inLiteral {
		return "", fmt.Errorf("%w: unterminated string literal", ErrRawPredicate)
	}
	if depth != 0 {
		return "", fmt.Errorf("%w: unbalanced '('", ErrRawPredicate)
	}
	return string(masked), nil
}

func depthAt(masked string, end int) int {
	depth := 0
	for i := 0; i < end; i++ {
		switch masked[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	return depth
}
