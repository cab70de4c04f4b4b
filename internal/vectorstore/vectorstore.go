// Package vectorstore provides interfaces and implementations for vector similarity search.
package vectorstore

import (
	"context"
)

// Point is one indexed hospital profile: its embedding plus a string payload
// mirroring the record fields. ID is the hospital identifier.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// SearchResult represents a search result from the vector store.
// ID is the hospital identifier resolved from the point payload.
type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// VectorStore defines the interface for vector storage operations.
// Rebuilds go through Recreate: the collection is dropped and repopulated as
// a whole, never merged incrementally.
type VectorStore interface {
	// Exists checks if a collection exists
	Exists(ctx context.Context, collection string) (bool, error)

	// Recreate drops the collection (if present) and creates it fresh
	Recreate(ctx context.Context, collection string, dimension int) error

	// Count returns the number of points in the collection
	Count(ctx context.Context, collection string) (uint64, error)

	// Upsert inserts or updates points in the collection
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs similarity search, returning up to topK results
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]SearchResult, error)
}
