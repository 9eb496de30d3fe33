// Package cast coerces filter operands and aggregation parameters to the
// type named by a field's type tag.
//
// Casting never fails on malformed numbers: integer and number casts yield
// the NaN sentinel instead, so an unsatisfiable filter compiles to a query
// that matches nothing rather than aborting the request.
package cast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	dferrors "github.com/nonibytes/docfilter/docfilter/errors"
	"github.com/nonibytes/docfilter/docfilter/query"
)

// NaN returns the not-a-number sentinel produced by failed numeric casts.
func NaN() float64 { return math.NaN() }

// IsNaN reports whether x is the not-a-number sentinel.
func IsNaN(x any) bool {
	f, ok := x.(float64)
	return ok && math.IsNaN(f)
}

// Cast coerces v according to tag. The result is one of nil, bool, int64,
// float64, string, time.Time or bson.ObjectID.
func Cast(v query.Value, tag query.TypeTag) (any, error) {
	switch tag {
	case query.TypeNone:
		return v.Interface(), nil
	case query.TypeObjectID:
		return ObjectID(v)
	case query.TypeInteger:
		return Integer(v), nil
	case query.TypeNumber:
		return Number(v), nil
	case query.TypeBoolean:
		return Boolean(v), nil
	case query.TypeString:
		return Text(v), nil
	case query.TypeDate:
		return Date(v), nil
	default:
		return nil, dferrors.UnknownTypeTag(string(tag))
	}
}

// CastAny is Cast for raw decoded values, as read back from a store.
func CastAny(x any, tag query.TypeTag) (any, error) {
	if !tag.Valid() {
		return nil, dferrors.UnknownTypeTag(string(tag))
	}
	switch t := x.(type) {
	case time.Time:
		if tag == query.TypeDate || tag == query.TypeNone {
			return t.UTC(), nil
		}
		x = t.UTC().Format(time.RFC3339Nano)
	case bson.ObjectID:
		if tag == query.TypeObjectID || tag == query.TypeNone {
			return t, nil
		}
		x = t.Hex()
	}
	v, err := query.ValueOf(x)
	if err != nil {
		if tag == query.TypeNone {
			return x, nil
		}
		v = query.String(fmt.Sprint(x))
	}
	return Cast(v, tag)
}

// ObjectID interprets v as the store's native identifier. Null stays null.
func ObjectID(v query.Value) (any, error) {
	switch v.Kind {
	case query.KindNull:
		return nil, nil
	case query.KindString, query.KindIdent:
		oid, err := bson.ObjectIDFromHex(v.S)
		if err != nil {
			return nil, dferrors.InvalidIdentifier(v.S, err)
		}
		return oid, nil
	default:
		return nil, dferrors.InvalidIdentifier(v.String(), nil)
	}
}

// Integer parses v as a base-10 integer, yielding NaN on failure.
func Integer(v query.Value) any {
	switch v.Kind {
	case query.KindInt:
		return v.I
	case query.KindFloat:
		if math.IsNaN(v.F) || math.IsInf(v.F, 0) || v.F >= math.MaxInt64 || v.F < math.MinInt64 {
			return NaN()
		}
		return int64(v.F)
	case query.KindBool:
		if v.B {
			return int64(1)
		}
		return int64(0)
	case query.KindString, query.KindIdent:
		i, err := strconv.ParseInt(strings.TrimSpace(v.S), 10, 64)
		if err != nil {
			return NaN()
		}
		return i
	default:
		return NaN()
	}
}

// Number parses v as a floating point value, yielding NaN on failure.
func Number(v query.Value) any {
	switch v.Kind {
	case query.KindInt:
		return float64(v.I)
	case query.KindFloat:
		return v.F
	case query.KindBool:
		if v.B {
			return float64(1)
		}
		return float64(0)
	case query.KindString, query.KindIdent:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.S), 64)
		if err != nil {
			return NaN()
		}
		return f
	default:
		return NaN()
	}
}

// falseValues are truthy inputs that still cast to false.
var falseValues = []query.Value{
	query.String("false"),
	query.String("0"),
	query.Int(0),
	query.String("n"),
}

// Boolean is truthiness with a small denylist: "false", "0", 0 and "n" are
// false as well. Other spellings such as "no" or "False" stay true.
func Boolean(v query.Value) bool {
	if !truthy(v) {
		return false
	}
	probe := v
	if probe.Kind == query.KindIdent {
		probe = query.String(v.S)
	}
	for _, f := range falseValues {
		if probe.Equal(f) {
			return false
		}
	}
	return true
}

func truthy(v query.Value) bool {
	switch v.Kind {
	case query.KindBool:
		return v.B
	case query.KindInt:
		return v.I != 0
	case query.KindFloat:
		return v.F != 0 // NaN is truthy
	case query.KindString, query.KindIdent:
		return v.S != ""
	default:
		return false
	}
}

// Text stringifies v.
func Text(v query.Value) string {
	switch v.Kind {
	case query.KindNull:
		return "null"
	case query.KindBool:
		return strconv.FormatBool(v.B)
	case query.KindInt:
		return strconv.FormatInt(v.I, 10)
	case query.KindFloat:
		return formatFloat(v.F)
	default:
		return v.S
	}
}

func formatFloat(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
