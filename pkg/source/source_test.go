package source

import (
	"strings"
	"testing"
	"time"

	"github.com/discoursenet/polarization-service/pkg/models"
)

var testTypes = map[string]string{
	"organization": models.DataTypeShortText,
	"concept":      models.DataTypeShortText,
	"agreement":    models.DataTypeBoolean,
	"intensity":    models.DataTypeInteger,
}

func fixtureStatements() []*models.Statement {
	t0 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	mk := func(id int, offset int, org, author string, agree bool) *models.Statement {
		s := models.NewStatement(id, t0.AddDate(0, 0, offset)).
			SetValue("organization", org).
			SetValue("concept", "carbon tax").
			SetValue("agreement", agree)
		s.Author = author
		return s
	}
	return []*models.Statement{
		mk(3, 2, "org C", "carol", true),
		mk(1, 0, "org A", "alice", true),
		mk(2, 1, "org B", "bob", false),
	}
}

func TestLoadAndFilterSortsByTime(t *testing.T) {
	src := NewInMemorySource(fixtureStatements(), testTypes)
	statements, err := src.LoadAndFilter()
	if err != nil {
		t.Fatalf("LoadAndFilter failed: %v", err)
	}
	if len(statements) != 3 {
		t.Fatalf("statement count = %d, want 3", len(statements))
	}
	for i := 1; i < len(statements); i++ {
		if statements[i].DateTime.Before(statements[i-1].DateTime) {
			t.Fatal("statements not sorted ascending by timestamp")
		}
	}
}

func TestExcludeFilters(t *testing.T) {
	src := NewInMemorySource(fixtureStatements(), testTypes)
	src.SetFilters(Filters{ExcludeAuthors: []string{"bob"}})
	statements, _ := src.LoadAndFilter()
	if len(statements) != 2 {
		t.Fatalf("statement count = %d, want 2 after excluding bob", len(statements))
	}
	for _, s := range statements {
		if s.Author == "bob" {
			t.Error("excluded author survived the filter")
		}
	}

	// inverted: keep only the listed authors
	src.SetFilters(Filters{ExcludeAuthors: []string{"bob"}, InvertAuthors: true})
	statements, _ = src.LoadAndFilter()
	if len(statements) != 1 || statements[0].Author != "bob" {
		t.Errorf("inverted filter kept %d statements, want only bob's", len(statements))
	}
}

func TestExcludeValues(t *testing.T) {
	src := NewInMemorySource(fixtureStatements(), testTypes)
	src.SetFilters(Filters{ExcludeValues: map[string][]string{
		"organization": {"org C"},
	}})
	statements, _ := src.LoadAndFilter()
	if len(statements) != 2 {
		t.Fatalf("statement count = %d, want 2 after excluding org C", len(statements))
	}
}

func TestExtractLabels(t *testing.T) {
	src := NewInMemorySource(fixtureStatements(), testTypes)
	statements, _ := src.LoadAndFilter()

	labels := src.ExtractLabels(statements, "organization", false)
	want := []string{"org A", "org B", "org C"}
	if len(labels) != len(want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("labels = %v, want %v", labels, want)
		}
	}

	// boolean labels sort numerically
	labels = src.ExtractLabels(statements, "agreement", false)
	if len(labels) != 2 || labels[0] != "0" || labels[1] != "1" {
		t.Errorf("agreement labels = %v, want [0 1]", labels)
	}

	// document attributes extract from the document fields
	labels = src.ExtractLabels(statements, "author", true)
	if len(labels) != 3 || labels[0] != "alice" {
		t.Errorf("author labels = %v", labels)
	}
}

func TestDataType(t *testing.T) {
	src := NewInMemorySource(nil, testTypes)
	if got := src.DataType("intensity"); got != models.DataTypeInteger {
		t.Errorf("DataType(intensity) = %q", got)
	}
	if got := src.DataType("unknown"); got != models.DataTypeShortText {
		t.Errorf("DataType(unknown) = %q, want shortText default", got)
	}
}

func TestFromCSV(t *testing.T) {
	data := strings.Join([]string{
		"id,time,document_id,author,source,section,type,title,organization,concept,agreement",
		"1,2024-05-01T08:00:00Z,10,alice,paper,politics,news,headline,org A,carbon tax,true",
		"2,2024-05-02T08:00:00Z,11,bob,paper,politics,news,headline,org B,carbon tax,false",
	}, "\n")

	src, err := FromCSV(strings.NewReader(data), testTypes)
	if err != nil {
		t.Fatalf("FromCSV failed: %v", err)
	}
	statements, _ := src.LoadAndFilter()
	if len(statements) != 2 {
		t.Fatalf("statement count = %d, want 2", len(statements))
	}
	s := statements[0]
	if s.ID != 1 || s.Author != "alice" || s.EntityValue("organization") != "org A" {
		t.Errorf("unexpected first statement: %+v", s)
	}
	if v, ok := s.IntValue("agreement"); !ok || v != 1 {
		t.Errorf("agreement = %d, %v, want 1", v, ok)
	}
}

func TestFromCSVRejectsBadInput(t *testing.T) {
	if _, err := FromCSV(strings.NewReader("wrong,header"), testTypes); err == nil {
		t.Error("expected an error for an invalid header")
	}

	data := strings.Join([]string{
		"id,time,document_id,author,source,section,type,title,organization,concept,agreement",
		"x,2024-05-01T08:00:00Z,10,a,b,c,d,e,org A,tax,true",
	}, "\n")
	if _, err := FromCSV(strings.NewReader(data), testTypes); err == nil {
		t.Error("expected an error for a non-numeric statement id")
	}
}
