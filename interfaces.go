package crptapi

import "context"

// DocumentCreator submits documents to the registration API.
// Implement this interface to stub the API in callers' tests.
type DocumentCreator interface {
	// CreateDocument submits doc with the caller-supplied signature and
	// returns the raw response body.
	CreateDocument(ctx context.Context, doc *Document, signature string) (string, error)

	// Close releases any resources held by the creator.
	Close() error
}
