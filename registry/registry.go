// Package registry talks to a package registry over HTTP: search,
// versions, and fetch, behind a Client interface so the resolver and
// source store depend on an abstraction rather than a transport. The HTTP
// implementation follows the request/status-check discipline of a plain
// net/http.Client with context-scoped timeouts, the same shape forge's
// other HTTP-speaking ancestor code uses for raw GitHub access.
package registry

import (
	"context"
)

// SearchResult is one hit from Client.Search.
type SearchResult struct {
	Name        string
	Version     string
	Description string
}

// Client is the abstract registry surface the resolver and store consume.
type Client interface {
	// Search returns up to limit packages matching query.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	// Versions returns every version of name known to the registry, in no
	// particular order; callers sort as needed.
	Versions(ctx context.Context, name string) ([]string, error)
	// Fetch returns the source archive bytes for name at version.
	Fetch(ctx context.Context, name, version string) ([]byte, error)
}
