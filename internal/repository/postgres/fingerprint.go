package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bloodroute/matchd/internal/repository"
)

// FingerprintRepo implements repository.FingerprintRepository
type FingerprintRepo struct {
	db *DB
}

// NewFingerprintRepo creates a new fingerprint repository
func NewFingerprintRepo(db *DB) *FingerprintRepo {
	return &FingerprintRepo{db: db}
}

// Get retrieves the persisted fingerprint for a source path
func (r *FingerprintRepo) Get(ctx context.Context, sourcePath string) (*repository.IndexFingerprint, error) {
	var fp repository.IndexFingerprint
	err := r.db.Pool.QueryRow(ctx, `
		SELECT source_path, content_hash, updated_at
		FROM index_fingerprints
		WHERE source_path = $1
	`, sourcePath).Scan(&fp.SourcePath, &fp.ContentHash, &fp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get fingerprint: %w", err)
	}
	return &fp, nil
}

// Set upserts the fingerprint. Called only after the index is fully
// populated, so a crash mid-rebuild never marks a mismatched index valid.
func (r *FingerprintRepo) Set(ctx context.Context, fp repository.IndexFingerprint) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO index_fingerprints (source_path, content_hash, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (source_path)
		DO UPDATE SET content_hash = EXCLUDED.content_hash, updated_at = NOW()
	`, fp.SourcePath, fp.ContentHash)
	if err != nil {
		return fmt.Errorf("failed to set fingerprint: %w", err)
	}
	return nil
}

// Ensure FingerprintRepo implements the interface
var _ repository.FingerprintRepository = (*FingerprintRepo)(nil)
