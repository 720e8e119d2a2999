package polarization

import (
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/discoursenet/polarization-service/pkg/models"
)

// TimeSlice pairs the skeleton matrix of one window (labels and timestamps,
// values still zero) with the bucketed statements that fall into the window.
type TimeSlice struct {
	Skeleton *models.Matrix
	Buckets  models.BucketArray
}

// TimeSlicer walks a forward-moving midpoint gamma over the statement range
// and cuts one slice per unit of the configured granularity. For the compact
// kernels each slice carries its own label set from the statements inside the
// window band; for the gaussian kernel all slices share the global labels and
// the full statement list, and the kernel weighting happens downstream in the
// aggregator.
type TimeSlicer struct {
	source models.StatementSource

	variable1         string
	variable1Document bool
	variable2         string
	variable2Document bool
	qualifier         string
	qualifierDocument bool

	timeWindow string
	windowSize int
	kernel     string
	indentTime bool
	start      time.Time
	stop       time.Time

	logger zerolog.Logger
}

// NewTimeSlicer creates a time slicer from the engine configuration.
func NewTimeSlicer(cfg *Config, source models.StatementSource, logger zerolog.Logger) *TimeSlicer {
	return &TimeSlicer{
		source:            source,
		variable1:         cfg.Variable1(),
		variable1Document: cfg.Variable1Document(),
		variable2:         cfg.Variable2(),
		variable2Document: cfg.Variable2Document(),
		qualifier:         cfg.Qualifier(),
		qualifierDocument: cfg.QualifierDocument(),
		timeWindow:        cfg.TimeWindow(),
		windowSize:        cfg.WindowSize(),
		kernel:            cfg.Kernel(),
		indentTime:        cfg.IndentTime(),
		start:             cfg.Start(),
		stop:              cfg.Stop(),
		logger:            logger,
	}
}

// addUnits shifts a timestamp by n units of the given granularity.
func addUnits(t time.Time, unit string, n int) time.Time {
	switch unit {
	case "seconds":
		return t.Add(time.Duration(n) * time.Second)
	case "minutes":
		return t.Add(time.Duration(n) * time.Minute)
	case "hours":
		return t.Add(time.Duration(n) * time.Hour)
	case "days":
		return t.AddDate(0, 0, n)
	case "weeks":
		return t.AddDate(0, 0, 7*n)
	case "months":
		return t.AddDate(0, n, 0)
	case "years":
		return t.AddDate(n, 0, 0)
	}
	return t
}

// rangeBounds clamps the configured start and stop to the statement range.
// A zero start or stop means unbounded.
func (ts *TimeSlicer) rangeBounds(statements []*models.Statement) (time.Time, time.Time) {
	first := statements[0].DateTime
	last := statements[len(statements)-1].DateTime
	b := first
	if !ts.start.IsZero() && ts.start.After(first) {
		b = ts.start
	}
	e := last
	if !ts.stop.IsZero() && ts.stop.Before(last) {
		e = ts.stop
	}
	return b, e
}

// qualifierValues returns the ordered qualifier levels for the slice bucket
// arrays: a single empty level without a qualifier, the extracted labels
// otherwise. For integer qualifiers whose observed values leave gaps, the
// levels are expanded to the full inclusive range so sparse levels still get
// buckets.
func (ts *TimeSlicer) qualifierValues(statements []*models.Statement) []string {
	if ts.qualifier == "" {
		return []string{""}
	}
	qualValues := ts.source.ExtractLabels(statements, ts.qualifier, ts.qualifierDocument)
	if ts.source.DataType(ts.qualifier) != models.DataTypeInteger {
		return qualValues
	}

	distinct := make(map[int]bool)
	for _, s := range ts.source.OriginalStatements() {
		if v, ok := s.IntValue(ts.qualifier); ok {
			distinct[v] = true
		}
	}
	if len(distinct) == 0 {
		return qualValues
	}
	values := make([]int, 0, len(distinct))
	for v := range distinct {
		values = append(values, v)
	}
	sort.Ints(values)
	lo, hi := values[0], values[len(values)-1]
	if len(distinct) < hi-lo+1 {
		expanded := make([]string, 0, hi-lo+1)
		for v := lo; v <= hi; v++ {
			expanded = append(expanded, strconv.Itoa(v))
		}
		return expanded
	}
	return qualValues
}

// Slices generates one slice per midpoint. The caller is expected to have
// validated the configuration; statements must be sorted ascending by time.
func (ts *TimeSlicer) Slices(statements []*models.Statement) ([]TimeSlice, error) {
	if len(statements) == 0 {
		return nil, models.ErrNoStatements
	}

	b, e := ts.rangeBounds(statements)
	wHalf := ts.windowSize / 2
	gamma := b
	e2 := e
	if ts.indentTime {
		gamma = addUnits(gamma, ts.timeWindow, wHalf)
		e2 = addUnits(e2, ts.timeWindow, -wHalf)
	}

	qualValues := ts.qualifierValues(statements)

	var slices []TimeSlice
	if ts.kernel == "gaussian" {
		// all slices share the global label sets and the full statement list;
		// the skeleton carries the endpoints of the whole range
		var1Values := ts.source.ExtractLabels(statements, ts.variable1, ts.variable1Document)
		var2Values := ts.source.ExtractLabels(statements, ts.variable2, ts.variable2Document)
		for !gamma.After(e2) {
			skeleton := models.NewMatrix(var1Values, b, gamma, e)
			buckets := ts.buildBuckets(var1Values, var2Values, qualValues, statements)
			slices = append(slices, TimeSlice{Skeleton: skeleton, Buckets: buckets})
			gamma = addUnits(gamma, ts.timeWindow, 1)
		}
	} else {
		for !gamma.After(e2) {
			lo := addUnits(gamma, ts.timeWindow, -wHalf)
			if lo.Before(b) {
				lo = b
			}
			hi := addUnits(gamma, ts.timeWindow, wHalf)
			if hi.After(e) {
				hi = e
			}
			current := make([]*models.Statement, 0)
			for _, s := range statements {
				if s.DateTime.After(lo) && s.DateTime.Before(hi) {
					current = append(current, s)
				}
			}
			var1Values := ts.source.ExtractLabels(current, ts.variable1, ts.variable1Document)
			var2Values := ts.source.ExtractLabels(current, ts.variable2, ts.variable2Document)
			skeleton := models.NewMatrix(var1Values, lo, gamma, hi)
			buckets := ts.buildBuckets(var1Values, var2Values, qualValues, current)
			slices = append(slices, TimeSlice{Skeleton: skeleton, Buckets: buckets})
			gamma = addUnits(gamma, ts.timeWindow, 1)
		}
	}

	ts.logger.Debug().
		Int("slices", len(slices)).
		Time("from", b).
		Time("to", e).
		Msg("Time slices generated")

	return slices, nil
}

// SingleSlice builds the one slice used when no time window is configured:
// all statements, global labels, and the full range as window bounds.
func (ts *TimeSlicer) SingleSlice(statements []*models.Statement) TimeSlice {
	var b, e time.Time
	if len(statements) > 0 {
		b, e = ts.rangeBounds(statements)
	}
	midpoint := b
	if !e.IsZero() {
		midpoint = b.Add(e.Sub(b) / 2)
	}
	var1Values := ts.source.ExtractLabels(statements, ts.variable1, ts.variable1Document)
	var2Values := ts.source.ExtractLabels(statements, ts.variable2, ts.variable2Document)
	qualValues := ts.qualifierValues(statements)
	skeleton := models.NewMatrix(var1Values, b, midpoint, e)
	buckets := ts.buildBuckets(var1Values, var2Values, qualValues, statements)
	return TimeSlice{Skeleton: skeleton, Buckets: buckets}
}

// buildBuckets distributes the statements of one slice over a 3D bucket array
// (variable 1 x variable 2 x qualifier), with bucket indices resolved through
// label hash maps.
func (ts *TimeSlicer) buildBuckets(var1Values, var2Values, qualValues []string, statements []*models.Statement) models.BucketArray {
	v1Map := make(map[string]int, len(var1Values))
	for i, v := range var1Values {
		v1Map[v] = i
	}
	v2Map := make(map[string]int, len(var2Values))
	for i, v := range var2Values {
		v2Map[v] = i
	}
	qMap := make(map[string]int, len(qualValues))
	if ts.qualifier != "" {
		for i, v := range qualValues {
			qMap[v] = i
		}
	}

	x := models.NewBucketArray(len(var1Values), len(var2Values), len(qualValues))
	for _, s := range statements {
		i1, ok := ts.resolveIndex(s, ts.variable1, ts.variable1Document, v1Map)
		if !ok {
			continue
		}
		i2, ok := ts.resolveIndex(s, ts.variable2, ts.variable2Document, v2Map)
		if !ok {
			continue
		}
		q, ok := ts.resolveQualifierIndex(s, qMap)
		if !ok {
			continue
		}
		x.Add(i1, i2, q, s)
	}
	return x
}

// resolveIndex looks up the bucket index of a statement's value on a variable.
func (ts *TimeSlicer) resolveIndex(s *models.Statement, variable string, document bool, index map[string]int) (int, bool) {
	var label string
	if document {
		label = s.DocumentValue(variable)
	} else {
		label = s.EntityValue(variable)
	}
	i, ok := index[label]
	return i, ok
}

// resolveQualifierIndex maps a statement to its qualifier level: 0 without a
// qualifier, the stringified integer for integer and boolean qualifiers, the
// entity label otherwise.
func (ts *TimeSlicer) resolveQualifierIndex(s *models.Statement, qMap map[string]int) (int, bool) {
	if ts.qualifier == "" {
		return 0, true
	}
	if ts.qualifierDocument {
		i, ok := qMap[s.DocumentValue(ts.qualifier)]
		return i, ok
	}
	switch ts.source.DataType(ts.qualifier) {
	case models.DataTypeInteger, models.DataTypeBoolean:
		v, ok := s.IntValue(ts.qualifier)
		if !ok {
			return 0, false
		}
		i, ok := qMap[strconv.Itoa(v)]
		return i, ok
	default:
		i, ok := qMap[s.EntityValue(ts.qualifier)]
		return i, ok
	}
}
