package query

import (
	"math"
	"reflect"
	"testing"

	dferrors "github.com/nonibytes/docfilter/docfilter/errors"
)

func TestDecodeNestedExpression(t *testing.T) {
	src := `{
		"operator": "not",
		"operands": {
			"operator": "and",
			"operands": [
				{"operator": "<", "operands": [{"identifier": "age"}, 30]},
				{"operator": "=", "operands": [{"identifier": "sex", "type": "string"}, "m"]}
			]
		}
	}`
	got, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Not{Operand: And{
		Left:  Compare{Op: CmpLT, Field: FieldRef{Identifier: "age"}, Value: Int(30)},
		Right: Compare{Op: CmpEQ, Field: FieldRef{Identifier: "sex", Type: TypeString}, Value: String("m")},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestDecodeMembershipAndLiterals(t *testing.T) {
	src := `{"operator": "not in", "operands": [
		{"identifier": "meta.clinical.benign", "type": "boolean"},
		["__null__", true, 0, 2.5, {"$oid": "5f0c1a2b3c4d5e6f7a8b9c0d"}, null]
	]}`
	got, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m, ok := got.(Membership)
	if !ok {
		t.Fatalf("expected membership, got %T", got)
	}
	if m.Op != MemberNotIn || m.Field.Type != TypeBoolean {
		t.Fatalf("unexpected node %s", m)
	}
	want := []Value{String(NullSentinel), Bool(true), Int(0), Float(2.5), Ident("5f0c1a2b3c4d5e6f7a8b9c0d"), Null()}
	if !reflect.DeepEqual(m.Values, want) {
		t.Fatalf("values: got %v, want %v", m.Values, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code dferrors.ErrorCode
	}{
		{"invalid json", `{"operator":`, dferrors.ErrDecode},
		{"not an object", `[1, 2]`, dferrors.ErrMalformedAST},
		{"missing operator", `{"operands": []}`, dferrors.ErrMalformedAST},
		{"unknown operator", `{"operator": "xor", "operands": []}`, dferrors.ErrUnknownOperator},
		{"and arity", `{"operator": "and", "operands": [{"operator": "=", "operands": [{"identifier": "a"}, 1]}]}`, dferrors.ErrMalformedAST},
		{"compare arity", `{"operator": "<", "operands": [{"identifier": "a"}]}`, dferrors.ErrMalformedAST},
		{"unknown type", `{"operator": "<", "operands": [{"identifier": "a", "type": "float"}, 1]}`, dferrors.ErrUnknownTypeTag},
		{"nested node as value", `{"operator": "=", "operands": [{"identifier": "a"}, {"operator": "=", "operands": []}]}`, dferrors.ErrMalformedAST},
		{"membership without list", `{"operator": "in", "operands": [{"identifier": "a"}, "x"]}`, dferrors.ErrMalformedAST},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.src))
			if !dferrors.Is(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := Or{
		Left: Not{Operand: Compare{Op: CmpGTE, Field: FieldRef{Identifier: "size", Type: TypeNumber}, Value: Float(0.25)}},
		Right: Membership{Op: MemberIn, Field: FieldRef{Identifier: "_id", Type: TypeObjectID}, Values: []Value{
			Ident("5f0c1a2b3c4d5e6f7a8b9c0d"), String(NullSentinel), Int(-7), Bool(false), Null(),
		}},
	}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n  in:  %s\n  out: %s\n  json: %s", in, out, data)
	}
}

func TestEncodeRejectsNonFiniteNumbers(t *testing.T) {
	x := FieldRef{Identifier: "x"}
	for _, n := range []Node{
		Compare{Op: CmpEQ, Field: x, Value: Float(math.NaN())},
		Compare{Op: CmpLT, Field: x, Value: Float(math.Inf(1))},
		Membership{Op: MemberIn, Field: x, Values: []Value{Int(1), Float(math.Inf(-1))}},
		Not{Operand: Compare{Op: CmpEQ, Field: x, Value: Float(math.NaN())}},
	} {
		data, err := Encode(n)
		if !dferrors.Is(err, dferrors.ErrMalformedAST) {
			t.Fatalf("Encode(%s) = %s, %v; want malformed_ast", n, data, err)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{"null", Null()},
		{"true", Bool(true)},
		{"42", Int(42)},
		{"4.5", Float(4.5)},
		{`"x"`, String("x")},
		{"hello", String("hello")},
		{"2020-01-01", String("2020-01-01")},
		{`{"$oid":"5f1d7a3e9b1e8a1c2d3e4f50"}`, Ident("5f1d7a3e9b1e8a1c2d3e4f50")},
	}
	for _, tt := range tests {
		got, err := ParseValue(tt.in)
		if err != nil {
			t.Fatalf("ParseValue(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("ParseValue(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseValue("[1]"); err == nil {
		t.Fatal("expected error for array literal")
	}
}
