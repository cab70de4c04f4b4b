// Package index owns the vector index lifecycle: fingerprint-gated rebuilds
// and an atomically published, read-only hospital snapshot for queries.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bloodroute/matchd/internal/embedder"
	"github.com/bloodroute/matchd/internal/hospital"
	"github.com/bloodroute/matchd/internal/ingest"
	"github.com/bloodroute/matchd/internal/metrics"
	"github.com/bloodroute/matchd/internal/repository"
	"github.com/bloodroute/matchd/internal/vectorstore"
)

// DefaultCollection is the Qdrant collection holding hospital profiles.
const DefaultCollection = "hospitals"

// ErrNotReady is returned when no index snapshot has been published yet.
var ErrNotReady = errors.New("index not ready")

// Hit is one retrieval result: the resolved record plus its similarity
// score and retrieval rank.
type Hit struct {
	Record hospital.Record
	Score  float32
	Rank   int
}

// snapshot is an immutable view of the indexed hospitals. Queries resolve
// IDs against it; it is replaced wholesale on rebuild, never mutated.
type snapshot struct {
	records map[string]hospital.Record
	size    int
}

// Config holds Manager configuration.
type Config struct {
	DataPath   string
	Collection string

	// OnRebuild runs after a rebuild publishes its snapshot. Used to drop
	// cached responses computed against the previous index.
	OnRebuild func()
}

// Manager builds, persists and conditionally rebuilds the vector index, and
// answers nearest-neighbor queries against the published snapshot.
type Manager struct {
	cfg          Config
	embedder     embedder.Embedder
	store        vectorstore.VectorStore
	hospitals    repository.HospitalRepository
	fingerprints repository.FingerprintRepository
	metrics      *metrics.Metrics

	mu      sync.Mutex // serializes rebuilds; concurrent EnsureIndex calls coalesce
	current atomic.Pointer[snapshot]
}

// NewManager creates an index manager.
func NewManager(
	cfg Config,
	embed embedder.Embedder,
	store vectorstore.VectorStore,
	hospitals repository.HospitalRepository,
	fingerprints repository.FingerprintRepository,
	m *metrics.Metrics,
) *Manager {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	return &Manager{
		cfg:          cfg,
		embedder:     embed,
		store:        store,
		hospitals:    hospitals,
		fingerprints: fingerprints,
		metrics:      m,
	}
}

// EnsureIndex makes the index current with the source dataset. If the
// persisted fingerprint matches the current one and the index is populated,
// the existing index is reused; any mismatch forces a full rebuild. The
// fingerprint is written only after successful population, so a crash
// mid-rebuild never leaves a mismatched fingerprint marked valid.
func (m *Manager) EnsureIndex(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := ingest.Fingerprint(m.cfg.DataPath)
	if err != nil {
		return fmt.Errorf("failed to fingerprint dataset: %w", err)
	}

	if m.reusable(ctx, current) {
		records, err := m.hospitals.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to load hospital snapshot: %w", err)
		}
		if len(records) > 0 {
			m.publish(records)
			slog.Info("reusing existing index", "hospitals", len(records), "source", current.SourcePath)
			return nil
		}
		// Fingerprint matched but the snapshot is gone; rebuild.
	}

	return m.rebuild(ctx, current)
}

// reusable reports whether the persisted index can serve the current dataset.
func (m *Manager) reusable(ctx context.Context, current repository.IndexFingerprint) bool {
	prev, err := m.fingerprints.Get(ctx, current.SourcePath)
	if err != nil || !prev.Equal(current) {
		return false
	}

	exists, err := m.store.Exists(ctx, m.cfg.Collection)
	if err != nil || !exists {
		return false
	}

	count, err := m.store.Count(ctx, m.cfg.Collection)
	return err == nil && count > 0
}

// rebuild is the atomic all-or-nothing replace: derive profile texts, embed
// everything, repopulate a fresh collection, replace the snapshot, then
// record the fingerprint last.
func (m *Manager) rebuild(ctx context.Context, fp repository.IndexFingerprint) error {
	records, stats, err := ingest.LoadCSV(m.cfg.DataPath)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("dataset %s contains no hospital records", m.cfg.DataPath)
	}

	slog.Info("rebuilding index",
		"source", fp.SourcePath,
		"rows", stats.RowsRead,
		"hospitals", stats.Records,
		"duplicates", stats.Duplicates,
		"skipped", stats.Skipped,
	)

	profiles := make([]string, len(records))
	for i := range records {
		profiles[i] = records[i].ProfileText()
	}

	embeddings, err := m.embedder.EmbedBatch(ctx, profiles)
	if err != nil {
		return fmt.Errorf("failed to embed profiles: %w", err)
	}

	if err := m.store.Recreate(ctx, m.cfg.Collection, m.embedder.Dimension()); err != nil {
		return fmt.Errorf("failed to recreate collection: %w", err)
	}

	points := make([]vectorstore.Point, len(records))
	for i := range records {
		points[i] = vectorstore.Point{
			ID:      records[i].ID,
			Vector:  embeddings[i],
			Payload: records[i].Payload(),
		}
	}
	if err := m.store.Upsert(ctx, m.cfg.Collection, points); err != nil {
		return fmt.Errorf("failed to populate collection: %w", err)
	}

	if err := m.hospitals.ReplaceAll(ctx, records); err != nil {
		return fmt.Errorf("failed to persist hospital snapshot: %w", err)
	}

	// Only now is the index valid for this dataset.
	if err := m.fingerprints.Set(ctx, fp); err != nil {
		return fmt.Errorf("failed to persist fingerprint: %w", err)
	}

	m.publish(records)
	if m.metrics != nil {
		m.metrics.IndexRebuilds.Inc()
	}
	if m.cfg.OnRebuild != nil {
		m.cfg.OnRebuild()
	}
	slog.Info("index rebuilt", "hospitals", len(records))
	return nil
}

// publish atomically swaps in a new snapshot.
func (m *Manager) publish(records []hospital.Record) {
	snap := &snapshot{
		records: make(map[string]hospital.Record, len(records)),
		size:    len(records),
	}
	for _, rec := range records {
		snap.records[rec.ID] = rec
	}
	m.current.Store(snap)
	if m.metrics != nil {
		m.metrics.IndexSize.Set(float64(snap.size))
	}
}

// Ready reports whether a snapshot has been published.
func (m *Manager) Ready() bool {
	return m.current.Load() != nil
}

// Size returns the number of hospitals in the published snapshot.
func (m *Manager) Size() int {
	snap := m.current.Load()
	if snap == nil {
		return 0
	}
	return snap.size
}

// Query embeds the query text and returns up to k nearest hospitals with
// their retrieval scores, in rank order.
func (m *Manager) Query(ctx context.Context, queryText string, k int) ([]Hit, error) {
	snap := m.current.Load()
	if snap == nil {
		return nil, ErrNotReady
	}

	vector, err := m.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := m.store.Search(ctx, m.cfg.Collection, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		rec, ok := snap.records[res.ID]
		if !ok {
			// Stale point; cannot happen after an atomic rebuild, but manual
			// collection edits should not take the request down.
			continue
		}
		hits = append(hits, Hit{Record: rec, Score: res.Score, Rank: len(hits)})
	}

	return hits, nil
}
