package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrDatasetNotFound is returned by Load when the source file is absent.
var ErrDatasetNotFound = errors.New("dataset file not found")

// Kind is the declared value kind of a column, resolved once at load time.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	default:
		return "string"
	}
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05"}

// Column is a named column of a loaded dataset. The empty string encodes a
// null value; CSV carries no other null representation.
type Column struct {
	Name   string
	Kind   Kind
	Values []string
}

// NullCount returns the number of null values in the column.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v == "" {
			n++
		}
	}
	return n
}

// NonNull returns the column's non-null values in order.
func (c *Column) NonNull() []string {
	out := make([]string, 0, len(c.Values))
	for _, v := range c.Values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// DistinctCount returns the number of distinct non-null values.
func (c *Column) DistinctCount() int {
	seen := make(map[string]bool)
	for _, v := range c.Values {
		if v != "" {
			seen[v] = true
		}
	}
	return len(seen)
}

// Dataset is a read-only snapshot of one tabular file.
type Dataset struct {
	FileName    string
	Columns     []Column
	RecordCount int
}

// ColumnCount returns the number of columns.
func (d *Dataset) ColumnCount() int {
	return len(d.Columns)
}

// Column returns the named column, if present.
func (d *Dataset) Column(name string) (*Column, bool) {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i], true
		}
	}
	return nil, false
}

// Load reads a CSV file with a header row into a Dataset. Column kinds are
// inferred from the non-null values of each column.
func Load(dir, fileName string) (*Dataset, error) {
	path := filepath.Join(dir, fileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading records of %s: %w", path, err)
	}

	ds := &Dataset{
		FileName:    fileName,
		Columns:     make([]Column, len(header)),
		RecordCount: len(rows),
	}
	for i, name := range header {
		values := make([]string, len(rows))
		for j, row := range rows {
			values[j] = row[i]
		}
		ds.Columns[i] = Column{
			Name:   name,
			Kind:   inferKind(values),
			Values: values,
		}
	}
	return ds, nil
}

// List returns the CSV file names of a directory in sorted order.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// inferKind resolves a column's kind from its non-null values. A column with
// no non-null values is a string column.
func inferKind(values []string) Kind {
	sawValue := false
	isNumber, isBool, isDate := true, true, true

	for _, v := range values {
		if v == "" {
			continue
		}
		sawValue = true

		if isNumber {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isNumber = false
			}
		}
		if isBool {
			if _, err := strconv.ParseBool(v); err != nil {
				isBool = false
			}
		}
		if isDate {
			if !parsesAsDate(v) {
				isDate = false
			}
		}
		if !isNumber && !isBool && !isDate {
			return KindString
		}
	}

	if !sawValue {
		return KindString
	}
	switch {
	// ParseBool accepts "0" and "1", so numeric wins for digit-only columns.
	case isNumber:
		return KindNumber
	case isBool:
		return KindBoolean
	case isDate:
		return KindDate
	default:
		return KindString
	}
}

func parsesAsDate(v string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}
