package docs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fairdatasociety/fairos_sdk_go/pkg/dfs"
)

type valueKind int

const (
	kindString valueKind = iota + 1
	kindNumber
	kindMap
)

// Value is the right-hand side of a comparison.
type Value struct {
	kind valueKind
	str  string
	num  int64
}

// Str compares against a string field.
func Str(s string) Value { return Value{kind: kindString, str: s} }

// Number compares against a number field.
func Number(n int64) Value { return Value{kind: kindNumber, num: n} }

// Map compares against a map field. The query language has no syntax for
// it, so rendering fails with dfs.ErrUnsupported.
func Map() Value { return Value{kind: kindMap} }

func (v Value) render() (string, error) {
	switch v.kind {
	case kindString:
		return `"` + v.str + `"`, nil
	case kindNumber:
		return strconv.FormatInt(v.num, 10), nil
	case kindMap:
		return "", fmt.Errorf("%w: map values in expressions", dfs.ErrUnsupported)
	default:
		return "", fmt.Errorf("docs: empty expression value")
	}
}

// Expr selects documents for Find and Count.
type Expr struct {
	op    string
	field string
	value Value
	err   error
}

// All matches every document.
func All() Expr { return Expr{} }

// Eq matches documents whose field equals v.
func Eq(field string, v Value) Expr { return Expr{op: "=", field: field, value: v} }

// Gt matches documents whose field is greater than v.
func Gt(field string, v Value) Expr { return Expr{op: ">", field: field, value: v} }

// Gte matches documents whose field is greater than or equal to v.
func Gte(field string, v Value) Expr { return Expr{op: ">=", field: field, value: v} }

// Lt matches documents whose field is less than v.
func Lt(field string, v Value) Expr { return Expr{op: "<", field: field, value: v} }

// Lte matches documents whose field is less than or equal to v.
func Lte(field string, v Value) Expr { return Expr{op: "<=", field: field, value: v} }

// And is not expressible in the server query language.
func And(a, b Expr) Expr {
	return Expr{err: fmt.Errorf("%w: and expressions", dfs.ErrUnsupported)}
}

// Or is not expressible in the server query language.
func Or(a, b Expr) Expr {
	return Expr{err: fmt.Errorf("%w: or expressions", dfs.ErrUnsupported)}
}

// Render returns the query string form of e, unescaped.
func (e Expr) Render() (string, error) {
	if e.err != nil {
		return "", e.err
	}
	if e.op == "" {
		return "", nil
	}
	if strings.TrimSpace(e.field) == "" {
		return "", fmt.Errorf("%w: expression field is empty", dfs.ErrInvalidArgument)
	}
	v, err := e.value.render()
	if err != nil {
		return "", err
	}
	return e.field + e.op + v, nil
}

func (e Expr) String() string {
	s, err := e.Render()
	if err != nil {
		return "!" + err.Error()
	}
	return s
}

// ParseExpr reads the textual form produced by Render, such as
// `name="alice"` or `age>=21`. An empty string yields All.
func ParseExpr(s string) (Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return All(), nil
	}
	i := strings.IndexAny(s, "=<>")
	if i <= 0 {
		return Expr{}, fmt.Errorf("%w: expression %q has no field or operator", dfs.ErrInvalidArgument, s)
	}
	field, rest := strings.TrimSpace(s[:i]), s[i:]
	op := rest[:1]
	if len(rest) > 1 && rest[1] == '=' && op != "=" {
		op = rest[:2]
	}
	raw := strings.TrimSpace(rest[len(op):])

	var v Value
	switch {
	case len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"':
		v = Str(raw[1 : len(raw)-1])
	default:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Expr{}, fmt.Errorf("%w: expression value %q is neither a quoted string nor an integer", dfs.ErrInvalidArgument, raw)
		}
		v = Number(n)
	}
	return Expr{op: op, field: field, value: v}, nil
}
