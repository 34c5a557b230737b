package documents

import "context"

// Repo is the persistence boundary for documents, findings and
// verification decisions.
type Repo interface {
	// CreateDocument stores doc and its findings atomically. Either the
	// document row and every finding row exist afterwards, or none do.
	// A fingerprint collision returns ErrFingerprintExists.
	CreateDocument(ctx context.Context, doc *Document, findings []Finding) error

	// Get returns a document with its findings and decision history
	// (newest decision first), or ErrNotFound.
	Get(ctx context.Context, id string) (*Document, []Finding, []VerificationDecision, error)

	// GetByFingerprint returns the document with the given content
	// fingerprint, or ErrNotFound.
	GetByFingerprint(ctx context.Context, fingerprint string) (*Document, error)

	// Findings returns the findings for a document in insertion order.
	Findings(ctx context.Context, documentID string) ([]Finding, error)

	// ListByOwner returns an owner's documents, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Document, error)

	// ListPending returns every pending document, newest first.
	ListPending(ctx context.Context) ([]Document, error)

	// RecordDecision updates the document status and appends the
	// decision record atomically. Returns ErrNotFound when the document
	// does not exist.
	RecordDecision(ctx context.Context, dec *VerificationDecision) error
}
