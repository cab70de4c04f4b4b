package ingest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hospitals.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleCSV = `Hospital_ID,Hospital_Name,City,State,Blood_Group_Available,Component_Available,Units_Available,Emergency_Service,24x7_Availability,Hospital_Latitude,Hospital_Longitude,Request_Timestamp
H1,City General,Mumbai,Maharashtra,"O+,A+",RBC,10,1,true,19.0760,72.8777,01-02-2024 10:00
H2,Metro Care,Delhi,Delhi,O+,RBC,,0,no,28.7041,77.1025,
H1,City General,Mumbai,Maharashtra,"O+,A+,B+",RBC,25,1,true,19.0760,72.8777,05-02-2024 09:30
,Ghost Hospital,Nowhere,,,,,,,,,
`

func TestLoadCSV_DeduplicatesByNewestTimestamp(t *testing.T) {
	path := writeDataset(t, sampleCSV)

	records, stats, err := LoadCSV(path)
	if err != nil {
		t.Fatal(err)
	}

	if stats.RowsRead != 4 {
		t.Errorf("expected 4 rows read, got %d", stats.RowsRead)
	}
	if stats.Skipped != 1 {
		t.Errorf("expected 1 skipped row, got %d", stats.Skipped)
	}
	if stats.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", stats.Duplicates)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	// First-seen order preserved
	if records[0].ID != "H1" || records[1].ID != "H2" {
		t.Errorf("unexpected record order: %s, %s", records[0].ID, records[1].ID)
	}

	// H1 should be the newer row (units 25, three blood groups)
	h1 := records[0]
	if !h1.UnitsAvailable.Valid || h1.UnitsAvailable.Value != 25 {
		t.Errorf("expected newest H1 row with units 25, got %+v", h1.UnitsAvailable)
	}
	if len(h1.BloodGroups) != 3 {
		t.Errorf("expected 3 blood groups for H1, got %v", h1.BloodGroups)
	}
	if !h1.EmergencyService || !h1.Open24x7 {
		t.Error("expected H1 flags to be true")
	}
}

func TestLoadCSV_AbsentFieldsStayAbsent(t *testing.T) {
	path := writeDataset(t, sampleCSV)

	records, _, err := LoadCSV(path)
	if err != nil {
		t.Fatal(err)
	}

	h2 := records[1]
	if h2.UnitsAvailable.Valid {
		t.Error("empty Units_Available should be absent, not zero")
	}
	if h2.EmergencyService {
		t.Error("expected emergency_service false for '0'")
	}
	if h2.RequestedAt.IsZero() == false {
		t.Error("empty timestamp should parse to zero time")
	}
}

func TestLoadCSV_MissingIDColumn(t *testing.T) {
	path := writeDataset(t, "Name,City\nA,Mumbai\n")

	if _, _, err := LoadCSV(path); err == nil {
		t.Fatal("expected error for dataset without Hospital_ID column")
	}
}

func TestFingerprint(t *testing.T) {
	path := writeDataset(t, sampleCSV)

	fp1, err := Fingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	fp2, err := Fingerprint(path)
	if err != nil {
		t.Fatal(err)
	}

	if !fp1.Equal(fp2) {
		t.Error("fingerprint of unchanged file should be stable")
	}
	if !filepath.IsAbs(fp1.SourcePath) {
		t.Errorf("expected absolute source path, got %s", fp1.SourcePath)
	}

	if err := os.WriteFile(path, []byte(sampleCSV+"H3,New,Pune,MH,,,,,,,,\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fp3, err := Fingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	if fp1.Equal(fp3) {
		t.Error("fingerprint should change when the file content changes")
	}
}
