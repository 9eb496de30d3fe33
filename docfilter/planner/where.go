// Package planner translates compiled filter documents into SQL predicates
// over the JSON documents kept by a storage adapter.
package planner

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nonibytes/docfilter/docfilter/compile"
	dferrors "github.com/nonibytes/docfilter/docfilter/errors"
	"github.com/nonibytes/docfilter/docfilter/storage"
)

const (
	sqlTrue  = "1=1"
	sqlFalse = "1=0"
)

// DateLayout is how date operands are bound; stored documents are expected
// to carry dates as UTC strings in the same layout so they order
// lexicographically.
const DateLayout = "2006-01-02T15:04:05.000Z"

// Planner renders Documents compiled with one dialect.
type Planner struct {
	ops   compile.Operators
	paths storage.JSONPaths
}

func New(ops compile.Operators, paths storage.JSONPaths) *Planner {
	return &Planner{ops: ops, paths: paths}
}

// Where returns a boolean SQL expression equivalent to doc. Placeholders
// are allocated from b, which must use a numbered style. An empty document
// matches everything.
//
// Comparisons are bracketed by kind: an operand only matches document
// values of the same JSON kind. Equality with null also matches a missing
// field. A NaN operand never matches, except under the inequality operator.
func (p *Planner) Where(b storage.Builder, doc compile.Document) (string, error) {
	if len(doc) == 0 {
		return sqlTrue, nil
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		var (
			clause string
			err    error
		)
		if p.ops.IsLogical(k) {
			clause, err = p.logical(b, k, doc[k])
		} else {
			clause, err = p.field(b, k, doc[k])
		}
		if err != nil {
			return "", err
		}
		parts = append(parts, clause)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

func (p *Planner) logical(b storage.Builder, sym string, v any) (string, error) {
	subs, ok := v.([]compile.Document)
	if !ok || len(subs) == 0 {
		return "", dferrors.MalformedAST("%s expects a list of documents", sym)
	}
	joiner := " AND "
	if sym == p.ops.Or {
		joiner = " OR "
	}
	parts := make([]string, 0, len(subs))
	for _, sub := range subs {
		clause, err := p.Where(b, sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, clause)
	}
	return "(" + strings.Join(parts, joiner) + ")", nil
}

func (p *Planner) field(b storage.Builder, name string, v any) (string, error) {
	inner, ok := v.(compile.Document)
	if !ok || len(inner) == 0 {
		return "", dferrors.MalformedAST("field %q expects an operator document", name)
	}
	path := strings.Split(name, ".")

	ops := make([]string, 0, len(inner))
	for op := range inner {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		clause, err := p.operator(b, path, op, inner[op])
		if err != nil {
			if e, ok := err.(*dferrors.Error); ok {
				return "", e.WithField(name)
			}
			return "", err
		}
		parts = append(parts, clause)
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

func (p *Planner) operator(b storage.Builder, path []string, op string, v any) (string, error) {
	switch op {
	case p.ops.EQ:
		return p.eq(b, path, v)
	case p.ops.NEQ:
		eq, err := p.eq(b, path, v)
		if err != nil {
			return "", err
		}
		return negate(eq), nil
	case p.ops.LT:
		return p.ordered(b, path, "<", v)
	case p.ops.LTE:
		return p.ordered(b, path, "<=", v)
	case p.ops.GT:
		return p.ordered(b, path, ">", v)
	case p.ops.GTE:
		return p.ordered(b, path, ">=", v)
	case p.ops.In:
		return p.in(b, path, v)
	case p.ops.NotIn:
		in, err := p.in(b, path, v)
		if err != nil {
			return "", err
		}
		return negate(in), nil
	default:
		return "", dferrors.UnknownOperator(op)
	}
}

// negate treats an unknown (NULL) result as not matching before inverting.
func negate(clause string) string {
	return "NOT COALESCE(" + clause + ", FALSE)"
}

func (p *Planner) eq(b storage.Builder, path []string, v any) (string, error) {
	val, kind, err := operand(v)
	if err != nil {
		return "", err
	}
	switch {
	case kind == storage.KindNull:
		return "(" + p.paths.Missing(b, path) + " OR " + p.paths.IsKind(b, path, storage.KindNull) + ")", nil
	case isNaN(val):
		return sqlFalse, nil
	}
	return fmt.Sprintf("(%s AND %s = %s)",
		p.paths.IsKind(b, path, kind), p.paths.Extract(b, path), p.paths.Bind(b, val, kind)), nil
}

func (p *Planner) ordered(b storage.Builder, path []string, sqlOp string, v any) (string, error) {
	val, kind, err := operand(v)
	if err != nil {
		return "", err
	}
	switch {
	case kind == storage.KindNull:
		if sqlOp == "<=" || sqlOp == ">=" {
			return p.eq(b, path, nil)
		}
		return sqlFalse, nil
	case isNaN(val):
		return sqlFalse, nil
	}
	return fmt.Sprintf("(%s AND %s %s %s)",
		p.paths.IsKind(b, path, kind), p.paths.Extract(b, path), sqlOp, p.paths.Bind(b, val, kind)), nil
}

func (p *Planner) in(b storage.Builder, path []string, v any) (string, error) {
	list, ok := v.([]any)
	if !ok {
		return "", dferrors.MalformedAST("membership expects a list of values")
	}

	hasNull := false
	groups := map[storage.JSONKind][]any{}
	for _, item := range list {
		val, kind, err := operand(item)
		if err != nil {
			return "", err
		}
		switch {
		case kind == storage.KindNull:
			hasNull = true
		case isNaN(val):
			// matches nothing
		default:
			groups[kind] = append(groups[kind], val)
		}
	}

	var parts []string
	if hasNull {
		clause, _ := p.eq(b, path, nil)
		parts = append(parts, clause)
	}
	for _, kind := range []storage.JSONKind{storage.KindNumber, storage.KindString, storage.KindBool} {
		vals := groups[kind]
		if len(vals) == 0 {
			continue
		}
		phs := make([]string, len(vals))
		for i, val := range vals {
			phs[i] = p.paths.Bind(b, val, kind)
		}
		parts = append(parts, fmt.Sprintf("(%s AND %s IN (%s))",
			p.paths.IsKind(b, path, kind), p.paths.Extract(b, path), strings.Join(phs, ", ")))
	}
	switch len(parts) {
	case 0:
		return sqlFalse, nil
	case 1:
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

// operand maps a compiled operand onto a bindable scalar and its kind.
// Dates and identifiers are bound as strings.
func operand(v any) (any, storage.JSONKind, error) {
	switch t := v.(type) {
	case nil:
		return nil, storage.KindNull, nil
	case bool:
		return t, storage.KindBool, nil
	case int:
		return int64(t), storage.KindNumber, nil
	case int64:
		return t, storage.KindNumber, nil
	case float64:
		switch {
		case math.IsInf(t, 1):
			return math.MaxFloat64, storage.KindNumber, nil
		case math.IsInf(t, -1):
			return -math.MaxFloat64, storage.KindNumber, nil
		}
		return t, storage.KindNumber, nil
	case string:
		return t, storage.KindString, nil
	case time.Time:
		return t.UTC().Format(DateLayout), storage.KindString, nil
	case bson.ObjectID:
		return t.Hex(), storage.KindString, nil
	default:
		return nil, "", dferrors.MalformedAST("unsupported operand type %T", v)
	}
}

func isNaN(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}
