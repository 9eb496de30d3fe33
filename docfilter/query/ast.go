package query

import (
	"fmt"
	"strings"
)

// Node is a filter expression. The set of variants is closed: And, Or, Not,
// Compare and Membership.
type Node interface {
	isNode()
	String() string
}

// And represents a boolean AND of two expressions
type And struct {
	Left  Node
	Right Node
}

func (And) isNode() {}

func (n And) String() string {
	return fmt.Sprintf("(%s AND %s)", nodeString(n.Left), nodeString(n.Right))
}

// Or represents a boolean OR of two expressions
type Or struct {
	Left  Node
	Right Node
}

func (Or) isNode() {}

func (n Or) String() string {
	return fmt.Sprintf("(%s OR %s)", nodeString(n.Left), nodeString(n.Right))
}

// Not represents a boolean NOT of an expression
type Not struct {
	Operand Node
}

func (Not) isNode() {}

func (n Not) String() string { return fmt.Sprintf("NOT %s", nodeString(n.Operand)) }

// CmpOp is a comparison operator
type CmpOp int

const (
	CmpLT CmpOp = iota
	CmpLTE
	CmpGT
	CmpGTE
	CmpEQ
	CmpNEQ
)

func (op CmpOp) String() string {
	switch op {
	case CmpLT:
		return "<"
	case CmpLTE:
		return "<="
	case CmpGT:
		return ">"
	case CmpGTE:
		return ">="
	case CmpEQ:
		return "="
	case CmpNEQ:
		return "!="
	default:
		return "?"
	}
}

// Valid reports whether op is one of the enumerated comparison operators.
func (op CmpOp) Valid() bool { return op >= CmpLT && op <= CmpNEQ }

// Invert returns the operator matching exactly the complement of op.
func (op CmpOp) Invert() CmpOp {
	switch op {
	case CmpLT:
		return CmpGTE
	case CmpLTE:
		return CmpGT
	case CmpGT:
		return CmpLTE
	case CmpGTE:
		return CmpLT
	case CmpEQ:
		return CmpNEQ
	case CmpNEQ:
		return CmpEQ
	default:
		return op
	}
}

// MemberOp is a set membership operator
type MemberOp int

const (
	MemberIn MemberOp = iota
	MemberNotIn
)

func (op MemberOp) String() string {
	switch op {
	case MemberIn:
		return "in"
	case MemberNotIn:
		return "not in"
	default:
		return "?"
	}
}

func (op MemberOp) Valid() bool { return op == MemberIn || op == MemberNotIn }

func (op MemberOp) Invert() MemberOp {
	switch op {
	case MemberIn:
		return MemberNotIn
	case MemberNotIn:
		return MemberIn
	default:
		return op
	}
}

// TypeTag governs how the value operands of a leaf are cast.
type TypeTag string

const (
	TypeNone     TypeTag = ""
	TypeObjectID TypeTag = "objectid"
	TypeInteger  TypeTag = "integer"
	TypeNumber   TypeTag = "number"
	TypeBoolean  TypeTag = "boolean"
	TypeString   TypeTag = "string"
	TypeDate     TypeTag = "date"
)

func (t TypeTag) Valid() bool {
	switch t {
	case TypeNone, TypeObjectID, TypeInteger, TypeNumber, TypeBoolean, TypeString, TypeDate:
		return true
	}
	return false
}

// FieldRef names a document field and, optionally, the type its operands
// are cast to.
type FieldRef struct {
	Identifier string
	Type       TypeTag
}

func (f FieldRef) String() string {
	if f.Type == TypeNone {
		return f.Identifier
	}
	return f.Identifier + ":" + string(f.Type)
}

// Compare tests a field against a single value
type Compare struct {
	Op    CmpOp
	Field FieldRef
	Value Value
}

func (Compare) isNode() {}

func (n Compare) String() string {
	return fmt.Sprintf("%s %s %s", n.Field, n.Op, n.Value)
}

// Membership tests a field against an enumerated list of values
type Membership struct {
	Op     MemberOp
	Field  FieldRef
	Values []Value
}

func (Membership) isNode() {}

func (n Membership) String() string {
	parts := make([]string, len(n.Values))
	for i, v := range n.Values {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s %s [%s]", n.Field, n.Op, strings.Join(parts, ", "))
}

func nodeString(n Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}

// Walk calls fn for every node of the tree in pre-order. It stops descending
// into a subtree when fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch e := n.(type) {
	case And:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case Or:
		Walk(e.Left, fn)
		Walk(e.Right, fn)
	case Not:
		Walk(e.Operand, fn)
	}
}
