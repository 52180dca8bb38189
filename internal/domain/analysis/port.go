package analysis

import "context"

// ArtifactStore port (interface untuk penyimpanan artefak)
type ArtifactStore interface {
	// SaveAnalysis performs three independent writes under one token: JSON
	// record, image bytes, summary text. No rollback on partial failure.
	SaveAnalysis(ctx context.Context, token string, rec Record, image []byte, imageExt, summary string) (KeySet, error)

	// Latest returns the most recently written analysis, or (nil, nil) when
	// the store is empty.
	Latest(ctx context.Context) (*LatestAnalysis, error)

	// History reconstructs all complete artifact groups, newest first.
	History(ctx context.Context) ([]HistoryEntry, error)

	// SignedURL generates a short-lived read reference for a stored object.
	SignedURL(ctx context.Context, key string) (string, error)
}
