// Package histogram aggregates field values of the documents matching a
// filter into bins.
package histogram

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nonibytes/docfilter/docfilter/cast"
	"github.com/nonibytes/docfilter/docfilter/compile"
	dferrors "github.com/nonibytes/docfilter/docfilter/errors"
	"github.com/nonibytes/docfilter/docfilter/query"
)

const (
	DefaultBins        = 10
	DefaultMaxBins     = 100
	DefaultConcurrency = 4
)

// Source yields the raw values of a field over the documents matching a
// compiled filter. *docfilter.Store implements it.
type Source interface {
	Values(ctx context.Context, collection, field string, filter compile.Document) ([]any, error)
}

type Config struct {
	// Compiler must emit the dialect Source expects. Defaults to MongoDB.
	Compiler    *compile.Compiler
	Logger      *zap.Logger
	Registerer  prometheus.Registerer
	MaxBins     int
	Concurrency int
}

// Request describes one histogram.
type Request struct {
	Collection string
	Field      query.FieldRef
	// Bins is the number of bins for numeric and date fields.
	Bins   int
	Filter query.Node // nil selects every document
	// Categorical counts distinct values even for numeric fields.
	Categorical bool
}

// Bin is one bucket. Low is inclusive; High is exclusive except for the last
// bin of a number or date histogram. Categorical bins only carry a Label.
type Bin struct {
	Label string `json:"label"`
	Low   any    `json:"low,omitempty"`
	High  any    `json:"high,omitempty"`
	Count int64  `json:"count"`
}

type Result struct {
	Field string        `json:"field"`
	Type  query.TypeTag `json:"type,omitempty"`
	Total int64         `json:"total"`
	// Nulls counts missing and null values.
	Nulls int64 `json:"nulls"`
	// Invalid counts values the field's type could not be cast to.
	Invalid int64 `json:"invalid"`
	Bins    []Bin `json:"bins"`
	// Stats summarizes numeric and date fields; dates in epoch milliseconds.
	Stats *Stats `json:"stats,omitempty"`
}

type Stats struct {
	Count  int64   `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

type Service struct {
	src      Source
	compiler *compile.Compiler
	log      *zap.Logger
	metrics  *metrics
	maxBins  int
	workers  int
}

func NewService(src Source, cfg Config) (*Service, error) {
	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register histogram metrics: %w", err)
	}
	s := &Service{
		src:      src,
		compiler: cfg.Compiler,
		log:      cfg.Logger,
		metrics:  m,
		maxBins:  cfg.MaxBins,
		workers:  cfg.Concurrency,
	}
	if s.compiler == nil {
		s.compiler = compile.Default()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.maxBins <= 0 {
		s.maxBins = DefaultMaxBins
	}
	if s.workers <= 0 {
		s.workers = DefaultConcurrency
	}
	return s, nil
}

func numericTag(t query.TypeTag) bool {
	return t == query.TypeInteger || t == query.TypeNumber || t == query.TypeDate
}

// Histogram computes one histogram.
func (s *Service) Histogram(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	mode := "categorical"
	if numericTag(req.Field.Type) && !req.Categorical {
		mode = "numeric"
	}
	res, err := s.histogram(ctx, req, mode)
	s.metrics.duration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.requests.WithLabelValues("error").Inc()
		s.log.Warn("histogram failed",
			zap.String("collection", req.Collection),
			zap.String("field", req.Field.Identifier),
			zap.Error(err))
		return nil, err
	}
	s.metrics.requests.WithLabelValues("ok").Inc()
	s.log.Debug("histogram computed",
		zap.String("collection", req.Collection),
		zap.String("field", req.Field.Identifier),
		zap.String("mode", mode),
		zap.Int64("total", res.Total),
		zap.Int("bins", len(res.Bins)),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// Histograms computes several histograms concurrently. Results keep the
// order of reqs; the first error cancels the rest.
func (s *Service) Histograms(ctx context.Context, reqs []Request) ([]*Result, error) {
	out := make([]*Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Histogram(gctx, req)
			if err != nil {
				return fmt.Errorf("histogram %d (%s): %w", i, req.Field.Identifier, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) histogram(ctx context.Context, req Request, mode string) (*Result, error) {
	if req.Field.Identifier == "" {
		return nil, dferrors.MalformedAST("histogram field is required")
	}
	if !req.Field.Type.Valid() {
		return nil, dferrors.UnknownTypeTag(string(req.Field.Type)).WithField(req.Field.Identifier)
	}

	var filter compile.Document
	if req.Filter != nil {
		doc, err := s.compiler.CompileFilter(req.Filter)
		if err != nil {
			return nil, err
		}
		filter = doc
	}

	raw, err := s.src.Values(ctx, req.Collection, req.Field.Identifier, filter)
	if err != nil {
		return nil, err
	}

	res := &Result{Field: req.Field.Identifier, Type: req.Field.Type, Total: int64(len(raw))}
	values := make([]any, 0, len(raw))
	for _, r := range raw {
		if r == nil {
			res.Nulls++
			continue
		}
		v, err := cast.CastAny(r, req.Field.Type)
		if err != nil {
			res.Invalid++
			continue
		}
		if v == nil {
			res.Nulls++
			continue
		}
		values = append(values, v)
	}

	if mode == "numeric" {
		bins := req.Bins
		if bins <= 0 {
			bins = DefaultBins
		}
		if bins > s.maxBins {
			bins = s.maxBins
		}
		xs := numericValues(res, values)
		res.Bins = numericBins(xs, req.Field.Type, bins)
		res.Stats = summarize(xs)
	} else {
		res.Bins = categoricalBins(values)
	}
	return res, nil
}

// numericValues maps cast values onto the number line, dates as epoch
// milliseconds. NaN and anything non-numeric count as invalid.
func numericValues(res *Result, values []any) []float64 {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		switch t := v.(type) {
		case int64:
			xs = append(xs, float64(t))
		case float64:
			if math.IsNaN(t) || math.IsInf(t, 0) {
				res.Invalid++
				continue
			}
			xs = append(xs, t)
		case time.Time:
			xs = append(xs, float64(t.UnixMilli()))
		default:
			res.Invalid++
		}
	}
	return xs
}

// numericBins splits xs into equal-width bins over [min, max]. Integer bins
// are cast to whole-number boundaries and never outnumber the distinct
// integers in range.
func numericBins(xs []float64, tag query.TypeTag, bins int) []Bin {
	if len(xs) == 0 {
		return []Bin{}
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}

	var edges []float64
	if tag == query.TypeInteger {
		span := hi - lo + 1
		if float64(bins) > span {
			bins = int(span)
		}
		width := span / float64(bins)
		edges = make([]float64, bins+1)
		for i := 0; i < bins; i++ {
			edges[i] = integerEdge(lo + float64(i)*width)
		}
		edges[bins] = hi + 1
	} else {
		if hi == lo {
			bins = 1
		}
		width := (hi - lo) / float64(bins)
		edges = make([]float64, bins+1)
		for i := 0; i < bins; i++ {
			edges[i] = lo + float64(i)*width
		}
		edges[bins] = hi
	}

	out := make([]Bin, bins)
	for i := range out {
		out[i].Low = edgeValue(edges[i], tag)
		out[i].High = edgeValue(edges[i+1], tag)
		closing := ")"
		if tag != query.TypeInteger && i == bins-1 {
			closing = "]"
		}
		out[i].Label = fmt.Sprintf("[%s, %s%s", labelOf(out[i].Low), labelOf(out[i].High), closing)
	}
	for _, x := range xs {
		// first edge strictly above x, minus one
		i := sort.Search(len(edges), func(j int) bool { return edges[j] > x }) - 1
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		out[i].Count++
	}
	return out
}

func summarize(xs []float64) *Stats {
	if len(xs) == 0 {
		return nil
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	var sum float64
	for _, x := range sorted {
		sum += x
	}
	n := len(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return &Stats{
		Count:  int64(n),
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   sum / float64(n),
		Median: median,
	}
}

func integerEdge(x float64) float64 {
	v, _ := cast.Cast(query.Float(math.Floor(x)), query.TypeInteger)
	if i, ok := v.(int64); ok {
		return float64(i)
	}
	return x
}

func edgeValue(x float64, tag query.TypeTag) any {
	switch tag {
	case query.TypeInteger:
		return int64(x)
	case query.TypeDate:
		v, _ := cast.Cast(query.Int(int64(math.Round(x))), query.TypeDate)
		return v
	default:
		return x
	}
}

func categoricalBins(values []any) []Bin {
	counts := map[string]int64{}
	for _, v := range values {
		counts[labelOf(v)]++
	}
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	out := make([]Bin, len(labels))
	for i, l := range labels {
		out[i] = Bin{Label: l, Count: counts[l]}
	}
	return out
}

func labelOf(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case bson.ObjectID:
		return t.Hex()
	}
	qv, err := query.ValueOf(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return cast.Text(qv)
}
