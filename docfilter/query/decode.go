package query

import (
	"math"
	"strings"

	"github.com/valyala/fastjson"

	dferrors "github.com/nonibytes/docfilter/docfilter/errors"
)

// Transport encoding produced by the query builder:
//
//	{"operator": "and", "operands": [<node>, <node>]}
//	{"operator": "not", "operands": <node>}
//	{"operator": "<",   "operands": [{"identifier": "age", "type": "integer"}, 30]}
//	{"operator": "in",  "operands": [{"identifier": "sex"}, ["m", "__null__"]]}
//
// Identifier literals use the extended form {"$oid": "<hex>"}.

var parserPool fastjson.ParserPool

var cmpSymbols = map[string]CmpOp{
	"<":  CmpLT,
	"<=": CmpLTE,
	">":  CmpGT,
	">=": CmpGTE,
	"=":  CmpEQ,
	"==": CmpEQ,
	"!=": CmpNEQ,
	"<>": CmpNEQ,
}

var memberSymbols = map[string]MemberOp{
	"in":     MemberIn,
	"not in": MemberNotIn,
	"nin":    MemberNotIn,
}

// Decode parses the JSON transport encoding of a filter expression.
func Decode(data []byte) (Node, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, dferrors.Wrap(dferrors.ErrDecode, "invalid filter JSON", err)
	}
	return decodeNode(v)
}

func decodeNode(v *fastjson.Value) (Node, error) {
	if v == nil || v.Type() != fastjson.TypeObject {
		return nil, dferrors.MalformedAST("expression must be a JSON object")
	}
	opRaw := v.Get("operator")
	if opRaw == nil || opRaw.Type() != fastjson.TypeString {
		return nil, dferrors.MalformedAST("expression is missing its operator")
	}
	op := strings.ToLower(strings.TrimSpace(string(opRaw.GetStringBytes())))
	operands := v.Get("operands")
	if operands == nil {
		return nil, dferrors.MalformedAST("%q expression is missing its operands", op)
	}

	switch op {
	case "and", "or":
		args, err := operandList(operands, 2, op)
		if err != nil {
			return nil, err
		}
		l, err := decodeNode(args[0])
		if err != nil {
			return nil, err
		}
		r, err := decodeNode(args[1])
		if err != nil {
			return nil, err
		}
		if op == "and" {
			return And{Left: l, Right: r}, nil
		}
		return Or{Left: l, Right: r}, nil

	case "not":
		inner := operands
		if operands.Type() == fastjson.TypeArray {
			args, err := operandList(operands, 1, op)
			if err != nil {
				return nil, err
			}
			inner = args[0]
		}
		n, err := decodeNode(inner)
		if err != nil {
			return nil, err
		}
		return Not{Operand: n}, nil
	}

	if cmp, ok := cmpSymbols[op]; ok {
		args, err := operandList(operands, 2, op)
		if err != nil {
			return nil, err
		}
		field, err := decodeField(args[0])
		if err != nil {
			return nil, err
		}
		val, err := decodeValue(args[1])
		if err != nil {
			return nil, err
		}
		return Compare{Op: cmp, Field: field, Value: val}, nil
	}

	if mem, ok := memberSymbols[op]; ok {
		args, err := operandList(operands, 2, op)
		if err != nil {
			return nil, err
		}
		field, err := decodeField(args[0])
		if err != nil {
			return nil, err
		}
		items, err := args[1].Array()
		if err != nil {
			return nil, dferrors.MalformedAST("%q expects a list of values", op)
		}
		vals := make([]Value, 0, len(items))
		for _, item := range items {
			val, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			vals = append(vals, val)
		}
		return Membership{Op: mem, Field: field, Values: vals}, nil
	}

	return nil, dferrors.UnknownOperator(op)
}

func operandList(v *fastjson.Value, n int, op string) ([]*fastjson.Value, error) {
	args, err := v.Array()
	if err != nil || len(args) != n {
		return nil, dferrors.MalformedAST("%q requires exactly %d operands", op, n)
	}
	return args, nil
}

func decodeField(v *fastjson.Value) (FieldRef, error) {
	if v.Type() != fastjson.TypeObject {
		return FieldRef{}, dferrors.MalformedAST("field reference must be an object")
	}
	id := v.Get("identifier")
	if id == nil || id.Type() != fastjson.TypeString || len(id.GetStringBytes()) == 0 {
		return FieldRef{}, dferrors.MalformedAST("field reference is missing its identifier")
	}
	ref := FieldRef{Identifier: string(id.GetStringBytes())}
	if t := v.Get("type"); t != nil && t.Type() != fastjson.TypeNull {
		if t.Type() != fastjson.TypeString {
			return FieldRef{}, dferrors.MalformedAST("field type must be a string")
		}
		tag := TypeTag(t.GetStringBytes())
		if !tag.Valid() {
			return FieldRef{}, dferrors.UnknownTypeTag(string(tag)).WithField(ref.Identifier)
		}
		ref.Type = tag
	}
	return ref, nil
}

// ParseValue reads a single literal in the transport encoding. Input that
// is not valid JSON is taken as a bare string.
func ParseValue(s string) (Value, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.Parse(s)
	if err != nil {
		return String(s), nil
	}
	return decodeValue(v)
}

func decodeValue(v *fastjson.Value) (Value, error) {
	switch v.Type() {
	case fastjson.TypeNull:
		return Null(), nil
	case fastjson.TypeTrue:
		return Bool(true), nil
	case fastjson.TypeFalse:
		return Bool(false), nil
	case fastjson.TypeString:
		return String(string(v.GetStringBytes())), nil
	case fastjson.TypeNumber:
		raw := v.String()
		if !strings.ContainsAny(raw, ".eE") {
			if i, err := v.Int64(); err == nil {
				return Int(i), nil
			}
		}
		f, err := v.Float64()
		if err != nil {
			return Value{}, dferrors.Wrap(dferrors.ErrDecode, "invalid number "+raw, err)
		}
		return Float(f), nil
	case fastjson.TypeObject:
		if oid := v.Get("$oid"); oid != nil && oid.Type() == fastjson.TypeString {
			return Ident(string(oid.GetStringBytes())), nil
		}
	}
	return Value{}, dferrors.MalformedAST("operand must be a literal value, got %s", v.Type())
}

// Encode renders expr in the transport encoding accepted by Decode.
func Encode(expr Node) ([]byte, error) {
	var a fastjson.Arena
	v, err := encodeNode(&a, expr)
	if err != nil {
		return nil, err
	}
	return v.MarshalTo(nil), nil
}

func encodeNode(a *fastjson.Arena, expr Node) (*fastjson.Value, error) {
	obj := a.NewObject()
	args := a.NewArray()
	switch e := expr.(type) {
	case And, Or:
		var l, r Node
		if and, ok := e.(And); ok {
			obj.Set("operator", a.NewString("and"))
			l, r = and.Left, and.Right
		} else {
			or := e.(Or)
			obj.Set("operator", a.NewString("or"))
			l, r = or.Left, or.Right
		}
		lv, err := encodeNode(a, l)
		if err != nil {
			return nil, err
		}
		rv, err := encodeNode(a, r)
		if err != nil {
			return nil, err
		}
		args.SetArrayItem(0, lv)
		args.SetArrayItem(1, rv)
	case Not:
		obj.Set("operator", a.NewString("not"))
		inner, err := encodeNode(a, e.Operand)
		if err != nil {
			return nil, err
		}
		args.SetArrayItem(0, inner)
	case Compare:
		if !e.Op.Valid() {
			return nil, dferrors.UnknownOperator(e.Op.String())
		}
		obj.Set("operator", a.NewString(e.Op.String()))
		v, err := encodeValue(a, e.Value)
		if err != nil {
			return nil, err
		}
		args.SetArrayItem(0, encodeField(a, e.Field))
		args.SetArrayItem(1, v)
	case Membership:
		if !e.Op.Valid() {
			return nil, dferrors.UnknownOperator(e.Op.String())
		}
		obj.Set("operator", a.NewString(e.Op.String()))
		list := a.NewArray()
		for i, val := range e.Values {
			v, err := encodeValue(a, val)
			if err != nil {
				return nil, err
			}
			list.SetArrayItem(i, v)
		}
		args.SetArrayItem(0, encodeField(a, e.Field))
		args.SetArrayItem(1, list)
	case nil:
		return nil, dferrors.MalformedAST("nil expression")
	default:
		return nil, dferrors.MalformedAST("unknown expression type %T", expr)
	}
	obj.Set("operands", args)
	return obj, nil
}

func encodeField(a *fastjson.Arena, f FieldRef) *fastjson.Value {
	obj := a.NewObject()
	obj.Set("identifier", a.NewString(f.Identifier))
	if f.Type != TypeNone {
		obj.Set("type", a.NewString(string(f.Type)))
	}
	return obj
}

// encodeValue fails on NaN and infinities, which have no JSON spelling.
func encodeValue(a *fastjson.Arena, v Value) (*fastjson.Value, error) {
	switch v.Kind {
	case KindBool:
		if v.B {
			return a.NewTrue(), nil
		}
		return a.NewFalse(), nil
	case KindInt:
		return a.NewNumberString(v.String()), nil
	case KindFloat:
		if math.IsNaN(v.F) || math.IsInf(v.F, 0) {
			return nil, dferrors.MalformedAST("cannot encode non-finite number %v", v.F)
		}
		return a.NewNumberFloat64(v.F), nil
	case KindString:
		return a.NewString(v.S), nil
	case KindIdent:
		obj := a.NewObject()
		obj.Set("$oid", a.NewString(v.S))
		return obj, nil
	default:
		return a.NewNull(), nil
	}
}
