// Package source provides StatementSource adapters: an in-memory source with
// the exclude/invert filter semantics of the coded-statement pipeline, and a
// CSV reader for offline analyses.
package source

import (
	"sort"
	"strconv"

	"github.com/discoursenet/polarization-service/pkg/models"
)

// Filters describes which statements to drop before analysis. Each exclude
// list removes matching statements; the corresponding invert flag turns the
// list into a keep-only filter instead.
type Filters struct {
	ExcludeValues   map[string][]string
	ExcludeAuthors  []string
	ExcludeSources  []string
	ExcludeSections []string
	ExcludeTypes    []string

	InvertValues   bool
	InvertAuthors  bool
	InvertSources  bool
	InvertSections bool
	InvertTypes    bool
}

// InMemorySource serves statements from memory. The declared data types map
// variable names to one of the models.DataType constants.
type InMemorySource struct {
	statements []*models.Statement
	dataTypes  map[string]string
	filters    Filters
}

// NewInMemorySource creates a source over the given statements.
func NewInMemorySource(statements []*models.Statement, dataTypes map[string]string) *InMemorySource {
	return &InMemorySource{
		statements: statements,
		dataTypes:  dataTypes,
	}
}

// SetFilters installs the exclude/invert filters applied by LoadAndFilter.
func (s *InMemorySource) SetFilters(filters Filters) {
	s.filters = filters
}

// excluded reports whether a value is dropped by an exclude list.
func excluded(value string, list []string, invert bool) bool {
	found := false
	for _, v := range list {
		if v == value {
			found = true
			break
		}
	}
	if invert {
		return len(list) > 0 && !found
	}
	return found
}

// LoadAndFilter applies the filters and returns the surviving statements
// sorted ascending by timestamp.
func (s *InMemorySource) LoadAndFilter() ([]*models.Statement, error) {
	filtered := make([]*models.Statement, 0, len(s.statements))
	for _, st := range s.statements {
		if excluded(st.Author, s.filters.ExcludeAuthors, s.filters.InvertAuthors) ||
			excluded(st.Source, s.filters.ExcludeSources, s.filters.InvertSources) ||
			excluded(st.Section, s.filters.ExcludeSections, s.filters.InvertSections) ||
			excluded(st.Type, s.filters.ExcludeTypes, s.filters.InvertTypes) {
			continue
		}
		drop := false
		for variable, values := range s.filters.ExcludeValues {
			if excluded(s.labelOf(st, variable), values, s.filters.InvertValues) {
				drop = true
				break
			}
		}
		if drop {
			continue
		}
		filtered = append(filtered, st)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].DateTime.Before(filtered[j].DateTime)
	})
	return filtered, nil
}

// labelOf stringifies a statement's value on a variable for filtering and
// label extraction.
func (s *InMemorySource) labelOf(st *models.Statement, variable string) string {
	switch s.dataTypes[variable] {
	case models.DataTypeInteger, models.DataTypeBoolean:
		if v, ok := st.IntValue(variable); ok {
			return strconv.Itoa(v)
		}
		return ""
	default:
		return st.EntityValue(variable)
	}
}

// ExtractLabels returns the ordered unique labels of a variable across the
// given statements. Integer and boolean variables sort numerically,
// everything else alphabetically.
func (s *InMemorySource) ExtractLabels(statements []*models.Statement, variable string, document bool) []string {
	numeric := !document &&
		(s.dataTypes[variable] == models.DataTypeInteger || s.dataTypes[variable] == models.DataTypeBoolean)

	if numeric {
		distinct := make(map[int]bool)
		for _, st := range statements {
			if v, ok := st.IntValue(variable); ok {
				distinct[v] = true
			}
		}
		values := make([]int, 0, len(distinct))
		for v := range distinct {
			values = append(values, v)
		}
		sort.Ints(values)
		labels := make([]string, len(values))
		for i, v := range values {
			labels[i] = strconv.Itoa(v)
		}
		return labels
	}

	distinct := make(map[string]bool)
	for _, st := range statements {
		var label string
		if document {
			label = st.DocumentValue(variable)
		} else {
			label = st.EntityValue(variable)
		}
		if label != "" {
			distinct[label] = true
		}
	}
	labels := make([]string, 0, len(distinct))
	for label := range distinct {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// DataType reports the declared data type of a variable.
func (s *InMemorySource) DataType(variable string) string {
	if t, ok := s.dataTypes[variable]; ok {
		return t
	}
	return models.DataTypeShortText
}

// OriginalStatements returns the unfiltered statement list.
func (s *InMemorySource) OriginalStatements() []*models.Statement {
	return s.statements
}
