package models

import (
	"errors"
	"fmt"
	"time"
)

// Data types a statement variable can carry.
const (
	DataTypeShortText = "shortText"
	DataTypeLongText  = "longText"
	DataTypeInteger   = "integer"
	DataTypeBoolean   = "boolean"
)

// Role selects which signed one-mode network an Aggregator builds.
type Role string

const (
	RoleCongruence Role = "congruence"
	RoleConflict   Role = "conflict"
)

var (
	// ErrNilMatrix is returned when a norm computation or an aggregator receives an unset matrix.
	ErrNilMatrix = errors.New("matrix cannot be nil")

	// ErrNoStatements is returned when a computation needs at least one statement.
	ErrNoStatements = errors.New("no statements after filtering")
)

// Statement is one coded statement: a timestamped record with document-level
// metadata and named statement-level values (entity labels or integer codes).
type Statement struct {
	ID         int
	DocumentID int
	DateTime   time.Time

	Author  string
	Source  string
	Section string
	Type    string
	Title   string

	values map[string]interface{}
}

// NewStatement creates a statement with the given id and timestamp.
func NewStatement(id int, dateTime time.Time) *Statement {
	return &Statement{
		ID:       id,
		DateTime: dateTime,
		values:   make(map[string]interface{}),
	}
}

// SetValue stores a statement-level value under a variable name. Values are
// either string entity labels or int category codes.
func (s *Statement) SetValue(variable string, value interface{}) *Statement {
	s.values[variable] = value
	return s
}

// Value returns the raw statement-level value for a variable.
func (s *Statement) Value(variable string) interface{} {
	return s.values[variable]
}

// EntityValue returns the string label stored under a variable name.
func (s *Statement) EntityValue(variable string) string {
	if v, ok := s.values[variable].(string); ok {
		return v
	}
	return ""
}

// IntValue returns the integer code stored under a variable name. Booleans
// are reported as 0 or 1.
func (s *Statement) IntValue(variable string) (int, bool) {
	switch v := s.values[variable].(type) {
	case int:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// DocumentValue resolves a document-level attribute by name.
func (s *Statement) DocumentValue(attribute string) string {
	switch attribute {
	case "author":
		return s.Author
	case "source":
		return s.Source
	case "section":
		return s.Section
	case "type":
		return s.Type
	case "title":
		return s.Title
	case "id":
		return fmt.Sprintf("%d", s.DocumentID)
	}
	return ""
}

// Matrix is a named square array of doubles with row labels and the three
// timestamps of the time slice it belongs to. Row labels equal column labels
// for the one-mode networks used here.
type Matrix struct {
	Values   [][]float64 `json:"values"`
	RowNames []string    `json:"row_names"`
	Start    time.Time   `json:"start"`
	Midpoint time.Time   `json:"midpoint"`
	Stop     time.Time   `json:"stop"`
}

// NewMatrix allocates a zero matrix over the given labels.
func NewMatrix(rowNames []string, start, midpoint, stop time.Time) *Matrix {
	n := len(rowNames)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
	}
	names := make([]string, n)
	copy(names, rowNames)
	return &Matrix{
		Values:   values,
		RowNames: names,
		Start:    start,
		Midpoint: midpoint,
		Stop:     stop,
	}
}

// Dim returns the number of rows (= columns).
func (m *Matrix) Dim() int {
	return len(m.RowNames)
}

// ZeroDiagonal sets all diagonal cells to zero.
func (m *Matrix) ZeroDiagonal() {
	for i := range m.Values {
		m.Values[i][i] = 0.0
	}
}

// Clone returns a deep copy of the matrix.
func (m *Matrix) Clone() *Matrix {
	c := NewMatrix(m.RowNames, m.Start, m.Midpoint, m.Stop)
	for i := range m.Values {
		copy(c.Values[i], m.Values[i])
	}
	return c
}

// BucketArray groups the statements of one time slice by
// (variable-1 index, variable-2 index, qualifier index).
type BucketArray [][][][]*Statement

// NewBucketArray allocates an empty bucket array with the given dimensions.
// The qualifier dimension is 1 when no qualifier is used.
func NewBucketArray(n1, n2, nq int) BucketArray {
	x := make(BucketArray, n1)
	for i := range x {
		x[i] = make([][][]*Statement, n2)
		for j := range x[i] {
			x[i][j] = make([][]*Statement, nq)
		}
	}
	return x
}

// Add appends a statement to the bucket at (i1, i2, q).
func (x BucketArray) Add(i1, i2, q int, s *Statement) {
	x[i1][i2][q] = append(x[i1][i2][q], s)
}

// StatementSource supplies the filtered, chronologically sorted statement
// stream and typed access to variable metadata. Loading and filtering raw
// coded statements from persistent storage happens behind this interface.
type StatementSource interface {
	// LoadAndFilter returns the filtered statements sorted ascending by timestamp.
	LoadAndFilter() ([]*Statement, error)

	// ExtractLabels returns the ordered unique labels a variable takes across
	// the given statements.
	ExtractLabels(statements []*Statement, variable string, document bool) []string

	// DataType reports the declared data type of a variable.
	DataType(variable string) string

	// OriginalStatements returns the unfiltered statement list. Only used to
	// compute the integer-range fill-in for qualifier levels.
	OriginalStatements() []*Statement
}

// Aggregator turns a time slice's bucketed statements into the signed
// one-mode network for the requested role. The skeleton fixes dimensions,
// labels and timestamps; the aggregator fills in the cell values.
type Aggregator interface {
	Build(skeleton *Matrix, buckets BucketArray, role Role) (*Matrix, error)
}

// PolarizationResult holds the optimizer output for one time slice.
type PolarizationResult struct {
	MaxQHistory      []float64 `json:"max_q_array"`
	AvgQHistory      []float64 `json:"avg_q_array"`
	SDQHistory       []float64 `json:"sd_q_array"`
	MaxQ             float64   `json:"max_q"`
	Memberships      []int     `json:"memberships"`
	RowNames         []string  `json:"row_names"`
	EarlyConvergence bool      `json:"early_convergence"`
	Start            time.Time `json:"start"`
	Stop             time.Time `json:"stop"`
	Midpoint         time.Time `json:"midpoint"`
}

// DegenerateResult is the zero result emitted for empty or too-small slices.
func DegenerateResult(start, stop, midpoint time.Time) PolarizationResult {
	return PolarizationResult{
		MaxQHistory:      []float64{0},
		AvgQHistory:      []float64{0},
		SDQHistory:       []float64{0},
		MaxQ:             0.0,
		Memberships:      []int{},
		RowNames:         []string{},
		EarlyConvergence: true,
		Start:            start,
		Stop:             stop,
		Midpoint:         midpoint,
	}
}

// PolarizationResultTimeSeries is the chronologically ordered sequence of
// per-slice results.
type PolarizationResultTimeSeries struct {
	Results []PolarizationResult `json:"results"`
}

// FinalMaxQ returns the final maximum quality of each slice.
func (ts *PolarizationResultTimeSeries) FinalMaxQ() []float64 {
	out := make([]float64, len(ts.Results))
	for i, r := range ts.Results {
		out[i] = r.MaxQ
	}
	return out
}

// Midpoints returns the slice midpoints in order.
func (ts *PolarizationResultTimeSeries) Midpoints() []time.Time {
	out := make([]time.Time, len(ts.Results))
	for i, r := range ts.Results {
		out[i] = r.Midpoint
	}
	return out
}
