package compile

import (
	"encoding/json"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Document is a compiled filter. A combinator document maps the AND or OR
// symbol to an ordered pair of Documents; a field document maps a field
// identifier to a single-entry Document of operator to operand.
type Document map[string]any

// BSON converts d to a bson.D tree ready to hand to a MongoDB driver.
// Combinator pairs become bson.A.
func (d Document) BSON() bson.D {
	out := make(bson.D, 0, len(d))
	for _, k := range sortedKeys(d) {
		out = append(out, bson.E{Key: k, Value: toBSON(d[k])})
	}
	return out
}

func toBSON(v any) any {
	switch t := v.(type) {
	case Document:
		return t.BSON()
	case []Document:
		arr := make(bson.A, len(t))
		for i, sub := range t {
			arr[i] = sub.BSON()
		}
		return arr
	case []any:
		arr := make(bson.A, len(t))
		for i, item := range t {
			arr[i] = toBSON(item)
		}
		return arr
	default:
		return v
	}
}

// MarshalJSON renders d as MongoDB relaxed extended JSON: dates as
// {"$date": "..."}, identifiers as {"$oid": "..."} and NaN as
// {"$numberDouble": "NaN"}.
func (d Document) MarshalJSON() ([]byte, error) {
	plain := make(map[string]any, len(d))
	for k, v := range d {
		plain[k] = toJSON(v)
	}
	return json.Marshal(plain)
}

func toJSON(v any) any {
	switch t := v.(type) {
	case Document:
		return t
	case []Document:
		return t
	case []any:
		arr := make([]any, len(t))
		for i, item := range t {
			arr[i] = toJSON(item)
		}
		return arr
	case time.Time:
		return map[string]string{"$date": t.UTC().Format("2006-01-02T15:04:05.000Z07:00")}
	case bson.ObjectID:
		return map[string]string{"$oid": t.Hex()}
	case float64:
		if math.IsNaN(t) {
			return map[string]string{"$numberDouble": "NaN"}
		}
		if math.IsInf(t, 1) {
			return map[string]string{"$numberDouble": "Infinity"}
		}
		if math.IsInf(t, -1) {
			return map[string]string{"$numberDouble": "-Infinity"}
		}
		return t
	default:
		return v
	}
}
