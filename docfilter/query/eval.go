package query

import (
	"math"
	"strings"
)

// Record is an assignment of values to field identifiers.
type Record map[string]Value

// Eval reports whether rec satisfies expr. Missing fields read as null.
// Values are ordered totally (null < numbers < strings/identifiers <
// booleans, NaN below every other number) so that every comparison operator
// and its inverse are exact complements. Type tags are not applied; Eval
// describes the logical meaning of a tree, not the store's coercions.
func Eval(expr Node, rec Record) bool {
	switch e := expr.(type) {
	case And:
		return Eval(e.Left, rec) && Eval(e.Right, rec)
	case Or:
		return Eval(e.Left, rec) || Eval(e.Right, rec)
	case Not:
		return !Eval(e.Operand, rec)
	case Compare:
		c := compareValues(rec[e.Field.Identifier], e.Value)
		switch e.Op {
		case CmpLT:
			return c < 0
		case CmpLTE:
			return c <= 0
		case CmpGT:
			return c > 0
		case CmpGTE:
			return c >= 0
		case CmpEQ:
			return c == 0
		case CmpNEQ:
			return c != 0
		}
	case Membership:
		actual := rec[e.Field.Identifier]
		found := false
		for _, v := range e.Values {
			if v.IsNullSentinel() {
				v = Null()
			}
			if compareValues(actual, v) == 0 {
				found = true
				break
			}
		}
		if e.Op == MemberNotIn {
			return !found
		}
		return found
	}
	return false
}

func kindRank(v Value) int {
	switch v.Kind {
	case KindNull:
		return 0
	case KindInt, KindFloat:
		return 1
	case KindString, KindIdent:
		return 2
	case KindBool:
		return 3
	}
	return 4
}

func compareValues(a, b Value) int {
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		if a.Kind == KindInt && b.Kind == KindInt {
			return cmpInt(a.I, b.I)
		}
		return cmpFloat(asFloat(a), asFloat(b))
	case 2:
		return strings.Compare(a.S, b.S)
	case 3:
		switch {
		case a.B == b.B:
			return 0
		case !a.B:
			return -1
		default:
			return 1
		}
	}
	return 0
}

func asFloat(v Value) float64 {
	if v.Kind == KindInt {
		return float64(v.I)
	}
	return v.F
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
