package verification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"docverify-backend/internal/documents"
	"docverify-backend/internal/extraction"
	"docverify-backend/internal/fingerprint"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Save(ctx context.Context, ownerID, fileName string, r io.Reader) (string, int64, string, error) {
	if f.saveErr != nil {
		return "", 0, "", f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	key := ownerID + "/" + fileName
	f.mu.Lock()
	f.objects[key] = data
	f.mu.Unlock()
	return key, int64(len(data)), "text/plain; charset=utf-8", nil
}

func (f *fakeStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[storageKey]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) Delete(ctx context.Context, storageKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, storageKey)
	f.deleted = append(f.deleted, storageKey)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) Record(ctx context.Context, event string, fields map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) has(event string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

type stubTextSource struct {
	text string
	err  error
	keys []string
}

func (s *stubTextSource) ExtractText(ctx context.Context, storageKey, mimeType, fileName string) (string, error) {
	s.keys = append(s.keys, storageKey)
	return s.text, s.err
}

func newTestService() (*Service, *fakeStore, *recordingSink) {
	store := newFakeStore()
	sink := &recordingSink{}
	svc := NewService(documents.NewMemoryRepo(), store, &extraction.Pipeline{}, nil, sink)
	return svc, store, sink
}

func TestIngestRoundTrip(t *testing.T) {
	svc, store, sink := newTestService()
	data := []byte("Contact me at a@b.com on 12/05/2024")

	res, err := svc.Ingest(context.Background(), IngestInput{
		OwnerID:  "owner-1",
		FileName: "note.txt",
		Data:     data,
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	doc := res.Document
	if doc.Status != documents.StatusPending {
		t.Fatalf("status = %q, want pending", doc.Status)
	}
	if doc.ContentFingerprint != fingerprint.Sum(data) {
		t.Fatalf("fingerprint = %q, want content hash", doc.ContentFingerprint)
	}
	if doc.DocType != "general" {
		t.Fatalf("doc type = %q, want general default", doc.DocType)
	}
	if _, ok := store.objects[doc.StoragePath]; !ok {
		t.Fatalf("object %q not in store", doc.StoragePath)
	}

	var keys []string
	for _, f := range res.Findings {
		keys = append(keys, f.Key)
	}
	want := []string{extraction.KeyDate, extraction.KeyEmail, extraction.KeyRawSnippet}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Fatalf("finding keys = %v, want %v", keys, want)
	}

	if !sink.has(EventDocumentUpload) {
		t.Fatal("expected DOCUMENT_UPLOAD audit event")
	}
}

func TestIngestUsesInjectedTextSource(t *testing.T) {
	store := newFakeStore()
	src := &stubTextSource{text: "reach me at x@y.org"}
	svc := NewService(documents.NewMemoryRepo(), store, &extraction.Pipeline{}, src, nil)

	res, err := svc.Ingest(context.Background(), IngestInput{
		OwnerID:  "owner-1",
		FileName: "scan.png",
		Data:     []byte{0x89, 0x50, 0x4e, 0x47},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(src.keys) != 1 || src.keys[0] != res.Document.StoragePath {
		t.Fatalf("text source called with %v, want saved key %q", src.keys, res.Document.StoragePath)
	}
	if len(res.Findings) != 2 || res.Findings[0].Key != extraction.KeyEmail {
		t.Fatalf("findings = %+v, want the source text's email plus snippet", res.Findings)
	}
}

func TestIngestTextSourceFailureCompensates(t *testing.T) {
	store := newFakeStore()
	src := &stubTextSource{err: errors.New("object store unreachable")}
	sink := &recordingSink{}
	svc := NewService(documents.NewMemoryRepo(), store, &extraction.Pipeline{}, src, sink)

	_, err := svc.Ingest(context.Background(), IngestInput{OwnerID: "o1", FileName: "a.txt", Data: []byte("x")})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(store.deleted) != 1 {
		t.Fatalf("deleted = %v, want the saved object removed", store.deleted)
	}
	if !sink.has(EventUploadFail) {
		t.Fatal("expected UPLOAD_FAIL audit event")
	}
}

func TestIngestDuplicateCompensates(t *testing.T) {
	svc, store, sink := newTestService()
	data := []byte("same bytes")

	if _, err := svc.Ingest(context.Background(), IngestInput{OwnerID: "o1", FileName: "a.txt", Data: data}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	_, err := svc.Ingest(context.Background(), IngestInput{OwnerID: "o2", FileName: "b.txt", Data: data})
	if !errors.Is(err, documents.ErrFingerprintExists) {
		t.Fatalf("err = %v, want ErrFingerprintExists", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "o2/b.txt" {
		t.Fatalf("deleted = %v, want compensating delete of o2/b.txt", store.deleted)
	}
	if !sink.has(EventUploadFail) {
		t.Fatal("expected UPLOAD_FAIL audit event")
	}
}

func TestIngestRejectsUnsupportedExtension(t *testing.T) {
	svc, store, _ := newTestService()

	_, err := svc.Ingest(context.Background(), IngestInput{OwnerID: "o1", FileName: "malware.exe", Data: []byte("x")})
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("err = %v, want ErrUnsupportedFileType", err)
	}
	if len(store.objects) != 0 {
		t.Fatal("nothing should be stored for a rejected upload")
	}
}

func TestIngestValidatesInput(t *testing.T) {
	svc, _, _ := newTestService()

	cases := []IngestInput{
		{FileName: "a.txt", Data: []byte("x")},
		{OwnerID: "o1", Data: []byte("x")},
		{OwnerID: "o1", FileName: "a.txt"},
	}
	for i, in := range cases {
		if _, err := svc.Ingest(context.Background(), in); !errors.Is(err, documents.ErrInvalidInput) {
			t.Fatalf("case %d: err = %v, want ErrInvalidInput", i, err)
		}
	}
}

func TestVerifyByProbe(t *testing.T) {
	svc, _, sink := newTestService()
	data := []byte("stored content")

	if _, err := svc.Ingest(context.Background(), IngestInput{OwnerID: "o1", FileName: "a.txt", Data: data}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	hit, err := svc.VerifyByProbe(context.Background(), "o2", data)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !hit.Found || hit.Document == nil {
		t.Fatalf("expected hit, got %+v", hit)
	}

	miss, err := svc.VerifyByProbe(context.Background(), "o2", []byte("other content"))
	if err != nil {
		t.Fatalf("probe miss: %v", err)
	}
	if miss.Found || miss.Document != nil {
		t.Fatalf("expected miss, got %+v", miss)
	}
	if !sink.has(EventDocumentVerify) {
		t.Fatal("expected DOCUMENT_VERIFY audit event")
	}
}

func TestVerifyByFingerprintValidation(t *testing.T) {
	svc, _, _ := newTestService()

	for _, bad := range []string{"", "short", strings.Repeat("g", 64)} {
		if _, err := svc.VerifyByFingerprint(context.Background(), "o1", bad); !errors.Is(err, documents.ErrInvalidInput) {
			t.Fatalf("fingerprint %q: err = %v, want ErrInvalidInput", bad, err)
		}
	}
}

func TestVerifyByFingerprintNormalizesCase(t *testing.T) {
	svc, _, _ := newTestService()
	data := []byte("normalize me")

	if _, err := svc.Ingest(context.Background(), IngestInput{OwnerID: "o1", FileName: "a.txt", Data: data}); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	res, err := svc.VerifyByFingerprint(context.Background(), "o1", strings.ToUpper(fingerprint.Sum(data)))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !res.Found {
		t.Fatal("expected uppercase fingerprint to match after normalization")
	}
	if len(res.Findings) == 0 {
		t.Fatal("expected findings joined on fingerprint lookup")
	}
}

func TestDecide(t *testing.T) {
	svc, _, sink := newTestService()

	res, err := svc.Ingest(context.Background(), IngestInput{OwnerID: "o1", FileName: "a.txt", Data: []byte("review me")})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	dec, err := svc.Decide(context.Background(), DecideInput{
		DocumentID: res.Document.ID,
		ReviewerID: "admin-1",
		Decision:   documents.DecisionVerified,
		Remarks:    "looks genuine",
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if dec.Decision != documents.DecisionVerified {
		t.Fatalf("decision = %q", dec.Decision)
	}

	doc, _, decisions, err := svc.Get(context.Background(), res.Document.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Status != documents.StatusVerified {
		t.Fatalf("status = %q, want verified", doc.Status)
	}
	if len(decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(decisions))
	}
	if !sink.has(EventAdminVerification) {
		t.Fatal("expected ADMIN_VERIFICATION audit event")
	}
}

func TestDecideRejectsBadDecision(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Decide(context.Background(), DecideInput{DocumentID: "doc-1", Decision: "maybe"})
	if !errors.Is(err, documents.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestDecideMissingDocument(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Decide(context.Background(), DecideInput{DocumentID: "ghost", Decision: documents.DecisionRejected})
	if !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
