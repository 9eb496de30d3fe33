package histogram

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nonibytes/docfilter/docfilter/compile"
	dferrors "github.com/nonibytes/docfilter/docfilter/errors"
	"github.com/nonibytes/docfilter/docfilter/query"
)

type fakeSource struct {
	mu      sync.Mutex
	values  map[string][]any
	filters []compile.Document
	err     error
}

func (f *fakeSource) Values(_ context.Context, _ string, field string, filter compile.Document) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	return f.values[field], nil
}

func newService(t *testing.T, src Source) (*Service, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	s, err := NewService(src, Config{Registerer: reg})
	if err != nil {
		t.Fatal(err)
	}
	return s, reg
}

func mustHistogram(t *testing.T, s *Service, req Request) *Result {
	t.Helper()
	res, err := s.Histogram(context.Background(), req)
	if err != nil {
		t.Fatalf("histogram %s: %v", req.Field.Identifier, err)
	}
	return res
}

func counts(bins []Bin) []int64 {
	out := make([]int64, len(bins))
	for i, b := range bins {
		out[i] = b.Count
	}
	return out
}

func checkCounts(t *testing.T, bins []Bin, want ...int64) {
	t.Helper()
	if got := counts(bins); !reflect.DeepEqual(got, want) {
		t.Fatalf("bin counts = %v, want %v", got, want)
	}
}

func checkBins(t *testing.T, got, want []Bin) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("bins = %+v, want %+v", got, want)
	}
}

func TestIntegerHistogram(t *testing.T) {
	src := &fakeSource{values: map[string][]any{
		"age": {int64(1), int64(2), int64(2), int64(3), "4", nil, "x", 4.9},
	}}
	s, _ := newService(t, src)

	res := mustHistogram(t, s, Request{
		Field: query.FieldRef{Identifier: "age", Type: query.TypeInteger},
		Bins:  10,
	})
	if res.Total != 8 || res.Nulls != 1 || res.Invalid != 1 {
		t.Fatalf("total=%d nulls=%d invalid=%d", res.Total, res.Nulls, res.Invalid)
	}
	// bins capped at max-min+1 = 4
	checkCounts(t, res.Bins, 1, 2, 1, 2)
	if res.Bins[0].Low != int64(1) || res.Bins[3].High != int64(5) {
		t.Fatalf("range = [%v, %v)", res.Bins[0].Low, res.Bins[3].High)
	}
	if res.Bins[0].Label != "[1, 2)" {
		t.Fatalf("label = %q", res.Bins[0].Label)
	}
	if res.Stats.Median != 2.5 || res.Stats.Count != 6 {
		t.Fatalf("stats = %+v", res.Stats)
	}
}

func TestIntegerEdgesAreWhole(t *testing.T) {
	src := &fakeSource{values: map[string][]any{
		"n": {int64(0), int64(1), int64(2), int64(3), int64(4), int64(5), int64(6)},
	}}
	s, _ := newService(t, src)

	res := mustHistogram(t, s, Request{
		Field: query.FieldRef{Identifier: "n", Type: query.TypeInteger},
		Bins:  3,
	})
	if len(res.Bins) != 3 {
		t.Fatalf("got %d bins", len(res.Bins))
	}
	var total int64
	for _, b := range res.Bins {
		_, lowInt := b.Low.(int64)
		_, highInt := b.High.(int64)
		if !lowInt || !highInt {
			t.Fatalf("edges %T/%T, want int64", b.Low, b.High)
		}
		total += b.Count
	}
	if total != 7 {
		t.Fatalf("total = %d", total)
	}
	if res.Bins[2].High != int64(7) {
		t.Fatalf("upper edge = %v", res.Bins[2].High)
	}
}

func TestNumberHistogram(t *testing.T) {
	src := &fakeSource{values: map[string][]any{
		"score": {0.0, 2.5, 5.0, 7.5, 10.0, math.NaN()},
	}}
	s, _ := newService(t, src)

	res := mustHistogram(t, s, Request{
		Field: query.FieldRef{Identifier: "score", Type: query.TypeNumber},
		Bins:  2,
	})
	checkCounts(t, res.Bins, 2, 3)
	if res.Invalid != 1 {
		t.Fatalf("invalid = %d", res.Invalid)
	}
	if b := res.Bins[1]; b.Low != 5.0 || b.High != 10.0 || b.Label != "[5, 10]" {
		t.Fatalf("last bin = %+v", b)
	}
	want := &Stats{Count: 5, Min: 0, Max: 10, Mean: 5, Median: 5}
	if !reflect.DeepEqual(res.Stats, want) {
		t.Fatalf("stats = %+v, want %+v", res.Stats, want)
	}
}

func TestNumberHistogramSingleValue(t *testing.T) {
	src := &fakeSource{values: map[string][]any{"x": {3.0, 3.0}}}
	s, _ := newService(t, src)

	res := mustHistogram(t, s, Request{
		Field: query.FieldRef{Identifier: "x", Type: query.TypeNumber},
		Bins:  5,
	})
	checkCounts(t, res.Bins, 2)
}

func TestDateHistogram(t *testing.T) {
	src := &fakeSource{values: map[string][]any{
		"at": {"2020-01-01T00:00:00Z", "2020-01-02T00:00:00Z", int64(1578096000000)},
	}}
	s, _ := newService(t, src)

	res := mustHistogram(t, s, Request{
		Field: query.FieldRef{Identifier: "at", Type: query.TypeDate},
		Bins:  3,
	})
	checkCounts(t, res.Bins, 1, 1, 1)
	if low, ok := res.Bins[0].Low.(time.Time); !ok || !low.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("low edge = %v", res.Bins[0].Low)
	}
	if high, ok := res.Bins[2].High.(time.Time); !ok || !high.Equal(time.Date(2020, 1, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("high edge = %v", res.Bins[2].High)
	}
}

func TestCategoricalHistogram(t *testing.T) {
	src := &fakeSource{values: map[string][]any{
		"sex":    {"m", "f", "m", nil},
		"active": {true, "false", "0", int64(1)},
	}}
	s, _ := newService(t, src)

	res := mustHistogram(t, s, Request{Field: query.FieldRef{Identifier: "sex", Type: query.TypeString}})
	checkBins(t, res.Bins, []Bin{{Label: "f", Count: 1}, {Label: "m", Count: 2}})
	if res.Nulls != 1 || res.Stats != nil {
		t.Fatalf("nulls=%d stats=%+v", res.Nulls, res.Stats)
	}

	res = mustHistogram(t, s, Request{Field: query.FieldRef{Identifier: "active", Type: query.TypeBoolean}})
	checkBins(t, res.Bins, []Bin{{Label: "false", Count: 2}, {Label: "true", Count: 2}})
}

func TestCategoricalOverridesNumeric(t *testing.T) {
	src := &fakeSource{values: map[string][]any{"age": {int64(30), int64(30), int64(41)}}}
	s, _ := newService(t, src)

	res := mustHistogram(t, s, Request{
		Field:       query.FieldRef{Identifier: "age", Type: query.TypeInteger},
		Categorical: true,
	})
	checkBins(t, res.Bins, []Bin{{Label: "30", Count: 2}, {Label: "41", Count: 1}})
}

func TestFilterIsCompiledInNNF(t *testing.T) {
	src := &fakeSource{values: map[string][]any{}}
	s, _ := newService(t, src)

	filter := query.Not{Operand: query.Compare{
		Op:    query.CmpLT,
		Field: query.FieldRef{Identifier: "age", Type: query.TypeInteger},
		Value: query.Int(30),
	}}
	mustHistogram(t, s, Request{
		Field:  query.FieldRef{Identifier: "sex"},
		Filter: filter,
	})
	want := []compile.Document{{"age": compile.Document{"$gte": int64(30)}}}
	if !reflect.DeepEqual(src.filters, want) {
		t.Fatalf("filters = %v, want %v", src.filters, want)
	}
}

func TestHistogramErrors(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	s, reg := newService(t, src)
	ctx := context.Background()

	if _, err := s.Histogram(ctx, Request{Field: query.FieldRef{Identifier: "x"}}); err == nil || err.Error() != "boom" {
		t.Fatalf("source error = %v", err)
	}
	if _, err := s.Histogram(ctx, Request{Field: query.FieldRef{Identifier: "x", Type: "bogus"}}); !dferrors.Is(err, dferrors.ErrUnknownTypeTag) {
		t.Fatalf("expected unknown_type_tag, got %v", err)
	}
	if _, err := s.Histogram(ctx, Request{}); !dferrors.Is(err, dferrors.ErrMalformedAST) {
		t.Fatalf("expected malformed_ast, got %v", err)
	}

	if got := testutil.ToFloat64(s.metrics.requests.WithLabelValues("error")); got != 3 {
		t.Fatalf("error count = %v", got)
	}
	if got := testutil.ToFloat64(s.metrics.requests.WithLabelValues("ok")); got != 0 {
		t.Fatalf("ok count = %v", got)
	}

	n, err := testutil.GatherAndCount(reg, "docfilter_histogram_requests_total")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("series = %d, want 2", n)
	}
}

func TestHistogramsPreservesOrder(t *testing.T) {
	src := &fakeSource{values: map[string][]any{
		"a": {"x"},
		"b": {"y", "y"},
		"c": {int64(1), int64(2)},
	}}
	s, _ := newService(t, src)

	res, err := s.Histograms(context.Background(), []Request{
		{Field: query.FieldRef{Identifier: "a"}},
		{Field: query.FieldRef{Identifier: "b"}},
		{Field: query.FieldRef{Identifier: "c", Type: query.TypeInteger}, Bins: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 3 || res[0].Field != "a" || res[1].Field != "b" {
		t.Fatalf("results out of order: %+v", res)
	}
	checkCounts(t, res[1].Bins, 2)
	checkCounts(t, res[2].Bins, 1, 1)
	if got := testutil.ToFloat64(s.metrics.requests.WithLabelValues("ok")); got != 3 {
		t.Fatalf("ok count = %v", got)
	}
}

func TestHistogramsStopsOnError(t *testing.T) {
	s, _ := newService(t, &fakeSource{})
	_, err := s.Histograms(context.Background(), []Request{
		{Field: query.FieldRef{Identifier: "a"}},
		{Field: query.FieldRef{Identifier: "b", Type: "bogus"}},
	})
	if !dferrors.Is(err, dferrors.ErrUnknownTypeTag) {
		t.Fatalf("expected unknown_type_tag, got %v", err)
	}
}

func TestSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewService(&fakeSource{}, Config{Registerer: reg})
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewService(&fakeSource{}, Config{Registerer: reg})
	if err != nil {
		t.Fatal(err)
	}
	if a.metrics.requests != b.metrics.requests {
		t.Fatal("second service registered its own request counter")
	}
}
