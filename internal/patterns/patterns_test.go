package patterns

import "testing"

func TestValuePatterns(t *testing.T) {
	lib := Default()

	cases := []struct {
		pattern string
		value   string
		match   bool
	}{
		{"nhs_number", "123-456-7890", true},
		{"nhs_number", "123 456 7890", true},
		{"nhs_number", "1234567890", true},
		{"nhs_number", "abc", false},
		{"uk_postcode", "SW1A 1AA", true},
		{"uk_postcode", "M1 1AE", true},
		{"uk_postcode", "12345", false},
		{"email", "jane.doe@example.com", true},
		{"email", "not-an-email", false},
		{"date", "2024-03-01", true},
		{"date", "01/03/2024", true},
		{"date", "yesterday", false},
	}

	for _, tc := range cases {
		re, ok := lib.ValuePatterns[tc.pattern]
		if !ok {
			t.Fatalf("Expected value pattern %s to exist", tc.pattern)
		}
		if re.MatchString(tc.value) != tc.match {
			t.Errorf("Pattern %s against %q: expected match=%v", tc.pattern, tc.value, tc.match)
		}
	}
}

func TestFormatPatternsAreAnchored(t *testing.T) {
	lib := Default()

	// Format patterns validate whole values; a match inside a longer
	// string must not count.
	re := lib.FormatPatterns["nhs_number"]
	if !re.MatchString("123-456-7890") {
		t.Error("Expected format pattern to match a bare NHS number")
	}
	if re.MatchString("id 123-456-7890 trailing") {
		t.Error("Expected format pattern to reject an embedded NHS number")
	}

	nhsEmail := lib.FormatPatterns["nhs_email"]
	if !nhsEmail.MatchString("jane.doe@lnwuh.nhs.uk") {
		t.Error("Expected nhs_email pattern to match an nhs.uk address")
	}
	if nhsEmail.MatchString("jane.doe@example.com") {
		t.Error("Expected nhs_email pattern to reject a non-NHS address")
	}
}

func TestLevelByScore(t *testing.T) {
	lib := Default()

	cases := []struct {
		score int
		name  string
	}{
		{0, "PUBLIC"},
		{1, "INTERNAL"},
		{2, "CONFIDENTIAL"},
		{3, "RESTRICTED"},
	}
	for _, tc := range cases {
		level, ok := lib.LevelByScore(tc.score)
		if !ok {
			t.Fatalf("Expected a level for score %d", tc.score)
		}
		if level.Name != tc.name {
			t.Errorf("Expected level %s for score %d, got %s", tc.name, tc.score, level.Name)
		}
	}

	if _, ok := lib.LevelByScore(99); ok {
		t.Error("Expected no level for score 99")
	}
}

func TestLevelByName(t *testing.T) {
	lib := Default()

	level, ok := lib.LevelByName("RESTRICTED")
	if !ok {
		t.Fatal("Expected RESTRICTED level to exist")
	}
	if level.RiskScore != 3 {
		t.Errorf("Expected RESTRICTED risk score 3, got %d", level.RiskScore)
	}
	if _, ok := lib.LevelByName("TOP_SECRET"); ok {
		t.Error("Expected unknown level name to report missing")
	}
}

func TestFieldDetection(t *testing.T) {
	lib := Default()

	// PII fields match on substring, case-insensitive
	if !lib.IsPIIField("nhs_number") {
		t.Error("Expected nhs_number to be a PII field")
	}
	if !lib.IsPIIField("Patient_First_Name") {
		t.Error("Expected Patient_First_Name to be a PII field")
	}
	if lib.IsPIIField("department") {
		t.Error("Expected department not to be a PII field")
	}

	// Clinical fields
	if !lib.IsClinicalField("primary_diagnosis") {
		t.Error("Expected primary_diagnosis to be a clinical field")
	}
	if !lib.IsClinicalField("medication_prescribed") {
		t.Error("Expected medication_prescribed to be a clinical field")
	}
	if lib.IsClinicalField("postcode") {
		t.Error("Expected postcode not to be a clinical field")
	}

	// Operational fields match exactly
	if !lib.IsOperationalField("created_at") {
		t.Error("Expected created_at to be an operational field")
	}
	if lib.IsOperationalField("created_at_extra") {
		t.Error("Expected created_at_extra not to be an operational field")
	}
}
