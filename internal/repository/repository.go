// Package repository defines persistence interfaces for the hospital
// snapshot and the index fingerprint.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bloodroute/matchd/internal/hospital"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// IndexFingerprint identifies the dataset a persisted index was built from.
// The index is valid only while the stored fingerprint equals the
// fingerprint of the current source file.
type IndexFingerprint struct {
	SourcePath  string
	ContentHash string
	UpdatedAt   time.Time
}

// Equal compares path and hash; UpdatedAt is bookkeeping only.
func (f IndexFingerprint) Equal(other IndexFingerprint) bool {
	return f.SourcePath == other.SourcePath && f.ContentHash == other.ContentHash
}

// HospitalRepository persists the normalized hospital snapshot. The snapshot
// is replaced wholesale on rebuild, never merged.
type HospitalRepository interface {
	ReplaceAll(ctx context.Context, records []hospital.Record) error
	ListAll(ctx context.Context) ([]hospital.Record, error)
	Count(ctx context.Context) (int, error)
}

// FingerprintRepository persists the dataset fingerprint of the last
// successful index build.
type FingerprintRepository interface {
	Get(ctx context.Context, sourcePath string) (*IndexFingerprint, error)
	Set(ctx context.Context, fp IndexFingerprint) error
}
