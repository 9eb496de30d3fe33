package query

import (
	dferrors "github.com/nonibytes/docfilter/docfilter/errors"
)

// Normalize rewrites expr into negation normal form: an equivalent tree in
// which no Not node remains. Negations are pushed down with De Morgan's laws
// and absorbed by inverting the leaf operators. The input is not modified.
func Normalize(expr Node) (Node, error) {
	switch e := expr.(type) {
	case And:
		l, r, err := normalizePair(e.Left, e.Right, "AND")
		if err != nil {
			return nil, err
		}
		return And{Left: l, Right: r}, nil
	case Or:
		l, r, err := normalizePair(e.Left, e.Right, "OR")
		if err != nil {
			return nil, err
		}
		return Or{Left: l, Right: r}, nil
	case Compare:
		return e, nil
	case Membership:
		return Membership{Op: e.Op, Field: e.Field, Values: append([]Value(nil), e.Values...)}, nil
	case Not:
		return negate(e.Operand)
	case nil:
		return nil, dferrors.MalformedAST("nil expression")
	default:
		return nil, dferrors.MalformedAST("unknown expression type %T", expr)
	}
}

func normalizePair(left, right Node, name string) (Node, Node, error) {
	if left == nil || right == nil {
		return nil, nil, dferrors.MalformedAST("%s requires exactly two operands", name)
	}
	l, err := Normalize(left)
	if err != nil {
		return nil, nil, err
	}
	r, err := Normalize(right)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

// negate returns the normal form of NOT operand.
func negate(operand Node) (Node, error) {
	switch o := operand.(type) {
	case Compare:
		// leaf: inverting the operator is enough
		return Compare{Op: o.Op.Invert(), Field: o.Field, Value: o.Value}, nil
	case Membership:
		return Membership{Op: o.Op.Invert(), Field: o.Field, Values: append([]Value(nil), o.Values...)}, nil
	case Not:
		if o.Operand == nil {
			return nil, dferrors.MalformedAST("NOT requires exactly one operand")
		}
		return Normalize(o.Operand)
	case And:
		if o.Left == nil || o.Right == nil {
			return nil, dferrors.MalformedAST("AND requires exactly two operands")
		}
		l, r, err := normalizePair(Not{Operand: o.Left}, Not{Operand: o.Right}, "OR")
		if err != nil {
			return nil, err
		}
		return Or{Left: l, Right: r}, nil
	case Or:
		if o.Left == nil || o.Right == nil {
			return nil, dferrors.MalformedAST("OR requires exactly two operands")
		}
		l, r, err := normalizePair(Not{Operand: o.Left}, Not{Operand: o.Right}, "AND")
		if err != nil {
			return nil, err
		}
		return And{Left: l, Right: r}, nil
	case nil:
		return nil, dferrors.MalformedAST("NOT requires exactly one operand")
	default:
		return nil, dferrors.MalformedAST("unknown expression type %T", operand)
	}
}

// IsNNF reports whether no Not node is reachable from expr.
func IsNNF(expr Node) bool {
	ok := true
	Walk(expr, func(n Node) bool {
		if _, isNot := n.(Not); isNot {
			ok = false
		}
		return ok
	})
	return ok
}
