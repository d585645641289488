package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "patients.csv",
		"patient_id,age,active,visit_date,notes\n"+
			"1,34,true,2024-01-15,stable\n"+
			"2,58,false,2024-02-20,\n"+
			"3,,true,2024-03-05,improving\n")

	ds, err := Load(dir, "patients.csv")
	if err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}

	if ds.RecordCount != 3 {
		t.Errorf("Expected 3 records, got %d", ds.RecordCount)
	}
	if ds.ColumnCount() != 5 {
		t.Errorf("Expected 5 columns, got %d", ds.ColumnCount())
	}

	// Kind inference per column
	cases := map[string]Kind{
		"patient_id": KindNumber,
		"age":        KindNumber,
		"active":     KindBoolean,
		"visit_date": KindDate,
		"notes":      KindString,
	}
	for name, kind := range cases {
		col, ok := ds.Column(name)
		if !ok {
			t.Fatalf("Expected column %s to exist", name)
		}
		if col.Kind != kind {
			t.Errorf("Expected column %s to have kind %s, got %s", name, kind, col.Kind)
		}
	}

	// Null and distinct counts treat the empty string as null
	age, _ := ds.Column("age")
	if age.NullCount() != 1 {
		t.Errorf("Expected 1 null in age, got %d", age.NullCount())
	}
	if age.DistinctCount() != 2 {
		t.Errorf("Expected 2 distinct non-null ages, got %d", age.DistinctCount())
	}
	if len(age.NonNull()) != 2 {
		t.Errorf("Expected 2 non-null ages, got %d", len(age.NonNull()))
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir, "absent.csv")
	if err == nil {
		t.Fatal("Expected an error for a missing file")
	}
	if !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("Expected ErrDatasetNotFound, got %v", err)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.csv", "a,b\n1,2,3\n")

	if _, err := Load(dir, "broken.csv"); err == nil {
		t.Error("Expected an error for a file with ragged rows")
	}
}

func TestLoadEmptyDataset(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.csv", "patient_id,nhs_number\n")

	ds, err := Load(dir, "empty.csv")
	if err != nil {
		t.Fatalf("Expected load to succeed, got %v", err)
	}
	if ds.RecordCount != 0 {
		t.Errorf("Expected 0 records, got %d", ds.RecordCount)
	}
	if ds.ColumnCount() != 2 {
		t.Errorf("Expected 2 columns, got %d", ds.ColumnCount())
	}

	col, _ := ds.Column("patient_id")
	if col.Kind != KindString {
		t.Errorf("Expected an all-null column to default to string, got %s", col.Kind)
	}
}

func TestKindInferenceEdgeCases(t *testing.T) {
	// Digit-only values are numbers even though ParseBool accepts 0 and 1
	if kind := inferKind([]string{"0", "1", "1"}); kind != KindNumber {
		t.Errorf("Expected digit-only column to be number, got %s", kind)
	}

	// Nulls are ignored during inference
	if kind := inferKind([]string{"", "2024-01-01", ""}); kind != KindDate {
		t.Errorf("Expected date kind, got %s", kind)
	}

	// Timestamps parse as dates too
	if kind := inferKind([]string{"2024-01-01 10:30:00"}); kind != KindDate {
		t.Errorf("Expected timestamp to be date, got %s", kind)
	}

	// Mixed content falls back to string
	if kind := inferKind([]string{"1", "abc"}); kind != KindString {
		t.Errorf("Expected mixed column to be string, got %s", kind)
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.csv", "x\n")
	writeFile(t, dir, "a.csv", "x\n")
	writeFile(t, dir, "notes.txt", "not a dataset")
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := List(dir)
	if err != nil {
		t.Fatalf("Expected list to succeed, got %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 CSV files, got %d (%v)", len(files), files)
	}
	if files[0] != "a.csv" || files[1] != "b.csv" {
		t.Errorf("Expected sorted order [a.csv b.csv], got %v", files)
	}
}
