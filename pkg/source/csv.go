package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/discoursenet/polarization-service/pkg/models"
)

// Fixed leading columns of a statement CSV export. Any further columns are
// statement-level variables, typed by the caller-supplied schema.
var csvHeader = []string{"id", "time", "document_id", "author", "source", "section", "type", "title"}

// FromCSVFile reads a statement CSV export from disk.
func FromCSVFile(path string, dataTypes map[string]string) (*InMemorySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open statement file: %w", err)
	}
	defer f.Close()
	return FromCSV(f, dataTypes)
}

// FromCSV parses CSV statement records. The first row must name the fixed
// columns followed by the variable columns; timestamps are RFC 3339.
func FromCSV(r io.Reader, dataTypes map[string]string) (*InMemorySource, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) < len(csvHeader) {
		return nil, fmt.Errorf("CSV header has %d columns, want at least %d", len(header), len(csvHeader))
	}
	for i, name := range csvHeader {
		if header[i] != name {
			return nil, fmt.Errorf("CSV column %d is %q, want %q", i, header[i], name)
		}
	}
	variables := header[len(csvHeader):]

	var statements []*models.Statement
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record on line %d: %w", line, err)
		}

		id, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("invalid statement id on line %d: %w", line, err)
		}
		dateTime, err := time.Parse(time.RFC3339, record[1])
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp on line %d: %w", line, err)
		}
		documentID, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("invalid document id on line %d: %w", line, err)
		}

		st := models.NewStatement(id, dateTime)
		st.DocumentID = documentID
		st.Author = record[3]
		st.Source = record[4]
		st.Section = record[5]
		st.Type = record[6]
		st.Title = record[7]

		for i, variable := range variables {
			raw := record[len(csvHeader)+i]
			switch dataTypes[variable] {
			case models.DataTypeInteger:
				v, err := strconv.Atoi(raw)
				if err != nil {
					return nil, fmt.Errorf("invalid integer value for %q on line %d: %w", variable, line, err)
				}
				st.SetValue(variable, v)
			case models.DataTypeBoolean:
				v, err := strconv.ParseBool(raw)
				if err != nil {
					return nil, fmt.Errorf("invalid boolean value for %q on line %d: %w", variable, line, err)
				}
				st.SetValue(variable, v)
			default:
				st.SetValue(variable, raw)
			}
		}
		statements = append(statements, st)
	}

	return NewInMemorySource(statements, dataTypes), nil
}
