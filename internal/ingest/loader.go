// Package ingest loads the tabular hospital dataset and normalizes it into
// typed records: one record per hospital identifier, newest row wins.
package ingest

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bloodroute/matchd/internal/hospital"
	"github.com/bloodroute/matchd/internal/repository"
)

// Source column names, as produced by the upstream dataset.
const (
	colHospitalID   = "Hospital_ID"
	colHospitalName = "Hospital_Name"
	colDistrict     = "District"
	colCity         = "City"
	colState        = "State"
	colLatitude     = "Hospital_Latitude"
	colLongitude    = "Hospital_Longitude"
	colBloodGroups  = "Blood_Group_Available"
	colComponents   = "Component_Available"
	colUnits        = "Units_Available"
	colEmergency    = "Emergency_Service"
	col24x7         = "24x7_Availability"
	colBeds         = "Beds_Available"
	colDoctors      = "Doctors_On_Duty"
	colSatisfaction = "Patient_Satisfaction_%"
	colSafety       = "Blood_Safety_Score_%"
	colAvgResponse  = "Avg_Response_Time_Min"
	colLastUpdated  = "Last_Updated_Min_Ago"
	colBankLevel    = "Blood_Bank_Level"
	colTimestamp    = "Request_Timestamp"
)

// Timestamp layouts accepted for Request_Timestamp; day-first first because
// that is how the source data is written.
var timestampLayouts = []string{
	"02-01-2006 15:04",
	"02-01-2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02-01-2006",
	"2006-01-02",
}

// Stats describes one dataset load.
type Stats struct {
	RowsRead   int
	Skipped    int // rows without a hospital identifier
	Duplicates int // rows collapsed into an existing identifier
	Records    int
	LoadTime   time.Duration
}

// LoadCSV reads the dataset and returns normalized records in first-seen
// order. Duplicate identifiers keep the row with the newest request
// timestamp; rows with unparseable timestamps sort oldest.
func LoadCSV(path string) ([]hospital.Record, Stats, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	if _, ok := cols[colHospitalID]; !ok {
		return nil, Stats{}, fmt.Errorf("dataset must contain a %s column", colHospitalID)
	}

	var stats Stats
	byID := make(map[string]hospital.Record)
	var order []string

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Stats{}, fmt.Errorf("failed to read row: %w", err)
		}
		stats.RowsRead++

		field := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		id := field(colHospitalID)
		if id == "" {
			stats.Skipped++
			continue
		}

		rec := hospital.Record{
			ID:                id,
			Name:              field(colHospitalName),
			District:          field(colDistrict),
			City:              field(colCity),
			State:             field(colState),
			Latitude:          hospital.ParseFloat(field(colLatitude)),
			Longitude:         hospital.ParseFloat(field(colLongitude)),
			BloodGroups:       hospital.SplitGroups(field(colBloodGroups)),
			Components:        hospital.SplitComponents(field(colComponents)),
			UnitsAvailable:    hospital.ParseFloat(field(colUnits)),
			EmergencyService:  hospital.ParseBool(field(colEmergency)),
			Open24x7:          hospital.ParseBool(field(col24x7)),
			BedsAvailable:     hospital.ParseFloat(field(colBeds)),
			DoctorsOnDuty:     hospital.ParseFloat(field(colDoctors)),
			SatisfactionPct:   hospital.ParseFloat(field(colSatisfaction)),
			SafetyScorePct:    hospital.ParseFloat(field(colSafety)),
			AvgResponseMin:    hospital.ParseFloat(field(colAvgResponse)),
			LastUpdatedMinAgo: hospital.ParseFloat(field(colLastUpdated)),
			BloodBankLevel:    field(colBankLevel),
			RequestedAt:       parseTimestamp(field(colTimestamp)),
		}

		existing, seen := byID[id]
		if !seen {
			byID[id] = rec
			order = append(order, id)
			continue
		}
		stats.Duplicates++
		if rec.RequestedAt.After(existing.RequestedAt) {
			byID[id] = rec
		}
	}

	records := make([]hospital.Record, 0, len(order))
	for _, id := range order {
		records = append(records, byID[id])
	}

	stats.Records = len(records)
	stats.LoadTime = time.Since(start)
	return records, stats, nil
}

// Fingerprint computes the dataset fingerprint: absolute source path plus a
// SHA-256 content hash.
func Fingerprint(path string) (repository.IndexFingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return repository.IndexFingerprint{}, fmt.Errorf("failed to resolve path: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return repository.IndexFingerprint{}, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return repository.IndexFingerprint{}, fmt.Errorf("failed to hash dataset: %w", err)
	}

	return repository.IndexFingerprint{
		SourcePath:  abs,
		ContentHash: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
