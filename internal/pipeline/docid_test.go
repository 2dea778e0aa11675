package pipeline

import "testing"

func TestDocumentID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"TCS_AR_2024.pdf", "TCS_AR_2024"},
		{"reports/TCS_AR_2024.pdf", "TCS_AR_2024"},
		{"/abs/path/Infosys_AR_2023.PDF", "Infosys_AR_2023"},
		{"noext", "noext"},
	}
	for _, c := range cases {
		if got := DocumentID(c.in); got != c.want {
			t.Errorf("DocumentID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseDocumentID(t *testing.T) {
	name, err := ParseDocumentID("Tata_Consultancy_AR_2024")
	if err != nil {
		t.Fatalf("ParseDocumentID: %v", err)
	}
	if name.Company != "Tata Consultancy" {
		t.Errorf("Company = %q, want %q", name.Company, "Tata Consultancy")
	}
	if name.Year != 2024 {
		t.Errorf("Year = %d, want 2024", name.Year)
	}
}

func TestParseDocumentIDRejects(t *testing.T) {
	bad := []string{
		"TCS-2024",        // no _AR_ marker
		"TCS_AR_abcd",     // non-numeric year
		"TCS_AR_1999",     // year too old
		"TCS_AR_2031",     // year in the future
		"_AR_2024",        // empty company
		"A_AR_2024_AR_20", // marker twice
	}
	for _, id := range bad {
		if _, err := ParseDocumentID(id); err == nil {
			t.Errorf("ParseDocumentID(%q): expected error", id)
		}
	}
}

func TestConforms(t *testing.T) {
	if !Conforms("TCS_AR_2024") {
		t.Error("TCS_AR_2024 should conform")
	}
	if Conforms("random_report") {
		t.Error("random_report should not conform")
	}
}
