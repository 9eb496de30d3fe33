package query

import (
	"math"
	"testing"
)

func TestEvalMissingFieldIsNull(t *testing.T) {
	rec := Record{"age": Int(40)}
	if !Eval(Compare{Op: CmpEQ, Field: FieldRef{Identifier: "sex"}, Value: Null()}, rec) {
		t.Fatalf("missing field should equal null")
	}
	if !Eval(Membership{Op: MemberIn, Field: FieldRef{Identifier: "sex"}, Values: []Value{String(NullSentinel)}}, rec) {
		t.Fatalf("__null__ should match a missing field")
	}
}

func TestEvalNumericKindsCompareByValue(t *testing.T) {
	rec := Record{"x": Int(2)}
	if !Eval(Compare{Op: CmpEQ, Field: FieldRef{Identifier: "x"}, Value: Float(2)}, rec) {
		t.Fatalf("2 should equal 2.0")
	}
	if !Eval(Compare{Op: CmpLT, Field: FieldRef{Identifier: "x"}, Value: Float(2.5)}, rec) {
		t.Fatalf("2 < 2.5")
	}
}

func TestEvalComplementsUnderMixedKinds(t *testing.T) {
	values := []Value{Null(), Int(1), Float(math.NaN()), String("a"), Bool(true)}
	for _, actual := range values {
		for _, operand := range values {
			for op := CmpLT; op <= CmpNEQ; op++ {
				rec := Record{"f": actual}
				c := Compare{Op: op, Field: FieldRef{Identifier: "f"}, Value: operand}
				inv := Compare{Op: op.Invert(), Field: c.Field, Value: operand}
				if Eval(c, rec) == Eval(inv, rec) {
					t.Fatalf("%s and %s agree on f=%s", c, inv, actual)
				}
			}
		}
	}
}
