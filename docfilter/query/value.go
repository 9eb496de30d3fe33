package query

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// NullSentinel in a Membership value list stands for the absence of a value.
const NullSentinel = "__null__"

// ValueKind discriminates the Value union
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindIdent // raw store identifier, e.g. a hex object id
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindIdent:
		return "identifier"
	default:
		return "?"
	}
}

// Value is a literal operand of a leaf node.
type Value struct {
	Kind ValueKind
	B    bool
	I    int64
	F    float64
	S    string
}

func Null() Value            { return Value{Kind: KindNull} }
func Bool(b bool) Value      { return Value{Kind: KindBool, B: b} }
func Int(i int64) Value      { return Value{Kind: KindInt, I: i} }
func Float(f float64) Value  { return Value{Kind: KindFloat, F: f} }
func String(s string) Value  { return Value{Kind: KindString, S: s} }
func Ident(hex string) Value { return Value{Kind: KindIdent, S: hex} }
func (v Value) IsNull() bool { return v.Kind == KindNull }

// IsNullSentinel reports whether v is the "__null__" marker string.
func (v Value) IsNullSentinel() bool {
	return v.Kind == KindString && v.S == NullSentinel
}

// Interface returns the natural Go representation of v: nil, bool, int64,
// float64 or string.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.B
	case KindInt:
		return v.I
	case KindFloat:
		return v.F
	case KindString, KindIdent:
		return v.S
	default:
		return nil
	}
}

// Equal compares by kind and payload. Two NaN floats are equal.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.B == o.B
	case KindInt:
		return v.I == o.I
	case KindFloat:
		return v.F == o.F || (math.IsNaN(v.F) && math.IsNaN(o.F))
	default:
		return v.S == o.S
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindInt:
		return strconv.FormatInt(v.I, 10)
	case KindFloat:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case KindIdent:
		return "ObjectId(" + strconv.Quote(v.S) + ")"
	default:
		return strconv.Quote(v.S)
	}
}

// ValueOf converts a decoded JSON scalar (or a Go scalar) into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint32:
		return Int(int64(t)), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q", string(t))
		}
		return Float(f), nil
	case string:
		return String(t), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}
