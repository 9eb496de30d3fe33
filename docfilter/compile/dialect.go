package compile

import (
	"fmt"
	"strings"

	"github.com/nonibytes/docfilter/docfilter/query"
)

// Operators maps the logical, comparison and membership operators onto the
// symbols understood by a target store.
type Operators struct {
	Name  string
	And   string
	Or    string
	LT    string
	LTE   string
	GT    string
	GTE   string
	EQ    string
	NEQ   string
	In    string
	NotIn string
}

// MongoDialect targets MongoDB-style query documents.
var MongoDialect = Operators{
	Name:  "mongo",
	And:   "$and",
	Or:    "$or",
	LT:    "$lt",
	LTE:   "$lte",
	GT:    "$gt",
	GTE:   "$gte",
	EQ:    "$eq",
	NEQ:   "$ne",
	In:    "$in",
	NotIn: "$nin",
}

// SymbolDialect spells operators the way the query builder displays them.
var SymbolDialect = Operators{
	Name:  "symbol",
	And:   "and",
	Or:    "or",
	LT:    "<",
	LTE:   "<=",
	GT:    ">",
	GTE:   ">=",
	EQ:    "=",
	NEQ:   "!=",
	In:    "in",
	NotIn: "not in",
}

var dialects = map[string]Operators{
	MongoDialect.Name:  MongoDialect,
	SymbolDialect.Name: SymbolDialect,
}

// DialectByName looks up a built-in dialect.
func DialectByName(name string) (Operators, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return Operators{}, fmt.Errorf("unknown dialect %q", name)
	}
	return d, nil
}

// Validate checks that every operator has a symbol and that symbols are
// distinct, so a compiled document can be read back unambiguously.
func (o Operators) Validate() error {
	syms := []string{o.And, o.Or, o.LT, o.LTE, o.GT, o.GTE, o.EQ, o.NEQ, o.In, o.NotIn}
	seen := make(map[string]bool, len(syms))
	for _, s := range syms {
		if s == "" {
			return fmt.Errorf("dialect %q: empty operator symbol", o.Name)
		}
		if seen[s] {
			return fmt.Errorf("dialect %q: duplicate operator symbol %q", o.Name, s)
		}
		seen[s] = true
	}
	return nil
}

// Comparison returns the symbol for op.
func (o Operators) Comparison(op query.CmpOp) (string, bool) {
	switch op {
	case query.CmpLT:
		return o.LT, true
	case query.CmpLTE:
		return o.LTE, true
	case query.CmpGT:
		return o.GT, true
	case query.CmpGTE:
		return o.GTE, true
	case query.CmpEQ:
		return o.EQ, true
	case query.CmpNEQ:
		return o.NEQ, true
	}
	return "", false
}

// Membership returns the symbol for op.
func (o Operators) Membership(op query.MemberOp) (string, bool) {
	switch op {
	case query.MemberIn:
		return o.In, true
	case query.MemberNotIn:
		return o.NotIn, true
	}
	return "", false
}

// IsLogical reports whether sym is the dialect's AND or OR symbol.
func (o Operators) IsLogical(sym string) bool { return sym == o.And || sym == o.Or }
