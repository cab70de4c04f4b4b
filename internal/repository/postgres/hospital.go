package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bloodroute/matchd/internal/hospital"
	"github.com/bloodroute/matchd/internal/repository"
)

// HospitalRepo implements repository.HospitalRepository
type HospitalRepo struct {
	db *DB
}

// NewHospitalRepo creates a new hospital repository
func NewHospitalRepo(db *DB) *HospitalRepo {
	return &HospitalRepo{db: db}
}

const hospitalColumns = `id, name, district, city, state, latitude, longitude,
	blood_groups, components, units_available, emergency_service, open_24x7,
	beds_available, doctors_on_duty, patient_satisfaction_pct, safety_score_pct,
	avg_response_min, last_updated_min_ago, blood_bank_level, requested_at`

// ReplaceAll atomically replaces the hospital snapshot. The snapshot is only
// ever written as a whole because identifiers may be deleted or reassigned
// between dataset loads.
func (r *HospitalRepo) ReplaceAll(ctx context.Context, records []hospital.Record) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE hospitals`); err != nil {
		return fmt.Errorf("failed to truncate hospitals: %w", err)
	}

	batch := &pgx.Batch{}
	for i, rec := range records {
		batch.Queue(`
			INSERT INTO hospitals (`+hospitalColumns+`, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		`,
			rec.ID, rec.Name, rec.District, rec.City, rec.State,
			optPtr(rec.Latitude), optPtr(rec.Longitude),
			strings.Join(rec.BloodGroups, ","), strings.Join(rec.Components, ","),
			optPtr(rec.UnitsAvailable), rec.EmergencyService, rec.Open24x7,
			optPtr(rec.BedsAvailable), optPtr(rec.DoctorsOnDuty),
			optPtr(rec.SatisfactionPct), optPtr(rec.SafetyScorePct),
			optPtr(rec.AvgResponseMin), optPtr(rec.LastUpdatedMinAgo),
			rec.BloodBankLevel, timePtr(rec.RequestedAt), i)
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert hospital: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// ListAll returns the snapshot in its original load order.
func (r *HospitalRepo) ListAll(ctx context.Context) ([]hospital.Record, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+hospitalColumns+`
		FROM hospitals
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hospitals: %w", err)
	}
	defer rows.Close()

	var records []hospital.Record
	for rows.Next() {
		var rec hospital.Record
		var lat, lon, units, beds, doctors, sats, safety, resp, updated *float64
		var groups, components string
		var requestedAt *time.Time

		if err := rows.Scan(&rec.ID, &rec.Name, &rec.District, &rec.City, &rec.State,
			&lat, &lon, &groups, &components, &units, &rec.EmergencyService, &rec.Open24x7,
			&beds, &doctors, &sats, &safety, &resp, &updated,
			&rec.BloodBankLevel, &requestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hospital: %w", err)
		}

		rec.Latitude = ptrOpt(lat)
		rec.Longitude = ptrOpt(lon)
		rec.UnitsAvailable = ptrOpt(units)
		rec.BedsAvailable = ptrOpt(beds)
		rec.DoctorsOnDuty = ptrOpt(doctors)
		rec.SatisfactionPct = ptrOpt(sats)
		rec.SafetyScorePct = ptrOpt(safety)
		rec.AvgResponseMin = ptrOpt(resp)
		rec.LastUpdatedMinAgo = ptrOpt(updated)
		rec.BloodGroups = hospital.SplitGroups(groups)
		rec.Components = hospital.SplitComponents(components)
		if requestedAt != nil {
			rec.RequestedAt = *requestedAt
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hospitals: %w", err)
	}

	return records, nil
}

// Count returns the number of hospitals in the snapshot.
func (r *HospitalRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM hospitals`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count hospitals: %w", err)
	}
	return count, nil
}

func optPtr(v hospital.OptFloat) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Value
}

func ptrOpt(p *float64) hospital.OptFloat {
	if p == nil {
		return hospital.OptFloat{}
	}
	return hospital.Float(*p)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Ensure HospitalRepo implements the interface
var _ repository.HospitalRepository = (*HospitalRepo)(nil)
