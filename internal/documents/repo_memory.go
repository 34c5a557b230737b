package documents

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repo for development and tests.
type MemoryRepo struct {
	mu        sync.RWMutex
	docs      map[string]Document
	findings  map[string][]Finding
	decisions map[string][]VerificationDecision
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		docs:      make(map[string]Document),
		findings:  make(map[string][]Finding),
		decisions: make(map[string][]VerificationDecision),
	}
}

func (r *MemoryRepo) CreateDocument(ctx context.Context, doc *Document, findings []Finding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.docs {
		if existing.ContentFingerprint == doc.ContentFingerprint {
			return ErrFingerprintExists
		}
	}

	r.docs[doc.ID] = *doc
	stored := make([]Finding, len(findings))
	copy(stored, findings)
	for i := range stored {
		stored[i].DocumentID = doc.ID
	}
	r.findings[doc.ID] = stored
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (*Document, []Finding, []VerificationDecision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, nil, nil, ErrNotFound
	}
	findings := append([]Finding(nil), r.findings[id]...)
	decisions := append([]VerificationDecision(nil), r.decisions[id]...)
	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].DecidedAt.After(decisions[j].DecidedAt)
	})
	return &doc, findings, decisions, nil
}

func (r *MemoryRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, doc := range r.docs {
		if doc.ContentFingerprint == fingerprint {
			d := doc
			return &d, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) Findings(ctx context.Context, documentID string) ([]Finding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.docs[documentID]; !ok {
		return nil, ErrNotFound
	}
	return append([]Finding(nil), r.findings[documentID]...), nil
}

func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var docs []Document
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	sortNewestFirst(docs)
	return docs, nil
}

func (r *MemoryRepo) ListPending(ctx context.Context) ([]Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var docs []Document
	for _, doc := range r.docs {
		if doc.Status == StatusPending {
			docs = append(docs, doc)
		}
	}
	sortNewestFirst(docs)
	return docs, nil
}

func (r *MemoryRepo) RecordDecision(ctx context.Context, dec *VerificationDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[dec.DocumentID]
	if !ok {
		return ErrNotFound
	}
	doc.Status = dec.Decision
	r.docs[dec.DocumentID] = doc
	r.decisions[dec.DocumentID] = append(r.decisions[dec.DocumentID], *dec)
	return nil
}

func sortNewestFirst(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}
