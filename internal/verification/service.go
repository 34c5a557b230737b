// Package verification implements document intake, fingerprint lookup
// and reviewer decisions.
package verification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docverify-backend/internal/audit"
	"docverify-backend/internal/documents"
	"docverify-backend/internal/extraction"
	"docverify-backend/internal/fingerprint"
	"docverify-backend/internal/ocr"
	"docverify-backend/internal/shared/metrics"
	"docverify-backend/internal/shared/storage/object"
	"docverify-backend/internal/shared/telemetry"
	"docverify-backend/internal/shared/util"
)

// Audit event names. These are the stable action identifiers consumers
// of the audit stream key on.
const (
	EventDocumentUpload    = "DOCUMENT_UPLOAD"
	EventUploadFail        = "UPLOAD_FAIL"
	EventDocumentVerify    = "DOCUMENT_VERIFY"
	EventAdminVerification = "ADMIN_VERIFICATION"
)

// ErrUnsupportedFileType means the upload's extension is not accepted.
var ErrUnsupportedFileType = errors.New("unsupported file type")

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".bmp":  true,
}

// AllowedFileName reports whether name carries an accepted extension.
func AllowedFileName(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// IngestInput is one upload to register.
type IngestInput struct {
	OwnerID  string
	FileName string
	DocType  string
	Data     []byte
}

// IngestResult is the stored document plus its extracted findings.
type IngestResult struct {
	Document *documents.Document
	Findings []documents.Finding
}

// ProbeResult is a fingerprint lookup outcome. Document is nil when no
// stored document matches. Findings are populated on hex-fingerprint
// lookups, where the caller holds a reference but not the bytes.
type ProbeResult struct {
	Fingerprint string
	Found       bool
	Document    *documents.Document
	Findings    []documents.Finding
}

// DecideInput is one reviewer decision on a pending document.
type DecideInput struct {
	DocumentID string
	ReviewerID string
	Decision   string
	Remarks    string
}

// Service coordinates storage, extraction and persistence for uploads.
type Service struct {
	repo     documents.Repo
	store    object.ObjectStore
	pipeline *extraction.Pipeline
	text     ocr.TextSource
	audit    audit.Sink
}

// NewService wires the collaborators. A nil text source defaults to
// reading saved bytes back from the object store; a nil sink logs.
func NewService(repo documents.Repo, store object.ObjectStore, pipeline *extraction.Pipeline, text ocr.TextSource, sink audit.Sink) *Service {
	if text == nil {
		text = &ocr.StoreSource{Store: store}
	}
	if sink == nil {
		sink = audit.LogSink{}
	}
	return &Service{repo: repo, store: store, pipeline: pipeline, text: text, audit: sink}
}

// Ingest registers a new document: saves the bytes, fingerprints them,
// extracts findings and persists document plus findings atomically. On
// a persistence failure the saved object is deleted again so storage
// and the database stay in step. A duplicate fingerprint returns
// documents.ErrFingerprintExists.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	start := time.Now()

	if in.OwnerID == "" || in.FileName == "" || len(in.Data) == 0 {
		metrics.IncIngestFailed()
		return nil, fmt.Errorf("%w: owner id, file name and content are required", documents.ErrInvalidInput)
	}
	if !AllowedFileName(in.FileName) {
		metrics.IncIngestFailed()
		s.record(ctx, EventUploadFail, map[string]any{"owner_id": in.OwnerID, "reason": "unsupported file type", "file_name": in.FileName})
		return nil, ErrUnsupportedFileType
	}

	safeName, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		metrics.IncIngestFailed()
		return nil, fmt.Errorf("%w: %s", documents.ErrInvalidInput, err)
	}

	fp := fingerprint.Sum(in.Data)

	storageKey, _, mimeType, err := s.store.Save(ctx, in.OwnerID, safeName, bytes.NewReader(in.Data))
	if err != nil {
		metrics.IncIngestFailed()
		s.record(ctx, EventUploadFail, map[string]any{"owner_id": in.OwnerID, "reason": "storage write failed"})
		return nil, fmt.Errorf("save object: %w", err)
	}

	text, err := s.text.ExtractText(ctx, storageKey, mimeType, in.FileName)
	if err != nil {
		if delErr := s.store.Delete(ctx, storageKey); delErr != nil {
			telemetry.Warn("verification.compensating_delete_failed", map[string]any{
				"storage_key": storageKey, "error": delErr.Error(),
			})
		}
		metrics.IncIngestFailed()
		s.record(ctx, EventUploadFail, map[string]any{"owner_id": in.OwnerID, "reason": "text extraction failed"})
		return nil, fmt.Errorf("extract text: %w", err)
	}
	extracted := s.pipeline.Run(ctx, text)

	docType := in.DocType
	if docType == "" {
		docType = "general"
	}
	doc := &documents.Document{
		ID:                 uuid.NewString(),
		OwnerID:            in.OwnerID,
		DisplayName:        in.FileName,
		DocType:            docType,
		StoragePath:        storageKey,
		ContentFingerprint: fp,
		Status:             documents.StatusPending,
		CreatedAt:          time.Now().UTC(),
	}
	findings := make([]documents.Finding, 0, len(extracted))
	for _, f := range extracted {
		findings = append(findings, documents.Finding{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Key:        f.Key,
			Value:      f.Value,
			Confidence: f.Confidence,
		})
	}

	if err := s.repo.CreateDocument(ctx, doc, findings); err != nil {
		if delErr := s.store.Delete(ctx, storageKey); delErr != nil {
			telemetry.Warn("verification.compensating_delete_failed", map[string]any{
				"storage_key": storageKey, "error": delErr.Error(),
			})
		}
		if errors.Is(err, documents.ErrFingerprintExists) {
			metrics.IncIngestConflict()
			s.record(ctx, EventUploadFail, map[string]any{"owner_id": in.OwnerID, "reason": "duplicate fingerprint", "fingerprint": fp})
			return nil, err
		}
		metrics.IncIngestFailed()
		s.record(ctx, EventUploadFail, map[string]any{"owner_id": in.OwnerID, "reason": "persistence failed"})
		return nil, fmt.Errorf("create document: %w", err)
	}

	metrics.IncIngestAccepted()
	metrics.ObserveIngestDurationMs(float64(time.Since(start).Milliseconds()))
	s.record(ctx, EventDocumentUpload, map[string]any{
		"owner_id":    in.OwnerID,
		"document_id": doc.ID,
		"fingerprint": fp,
		"file_name":   in.FileName,
	})

	return &IngestResult{Document: doc, Findings: findings}, nil
}

// VerifyByProbe fingerprints the given content and looks it up.
func (s *Service) VerifyByProbe(ctx context.Context, ownerID string, data []byte) (*ProbeResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: content is required", documents.ErrInvalidInput)
	}
	return s.lookup(ctx, ownerID, fingerprint.Sum(data))
}

// VerifyByFingerprint looks up an already-computed fingerprint.
func (s *Service) VerifyByFingerprint(ctx context.Context, ownerID, fp string) (*ProbeResult, error) {
	fp = strings.ToLower(strings.TrimSpace(fp))
	if !fingerprint.IsValid(fp) {
		return nil, fmt.Errorf("%w: fingerprint must be 64 hex characters", documents.ErrInvalidInput)
	}

	res, err := s.lookup(ctx, ownerID, fp)
	if err != nil || !res.Found {
		return res, err
	}
	findings, err := s.repo.Findings(ctx, res.Document.ID)
	if err != nil {
		return nil, fmt.Errorf("load findings: %w", err)
	}
	res.Findings = findings
	return res, nil
}

func (s *Service) lookup(ctx context.Context, ownerID, fp string) (*ProbeResult, error) {
	doc, err := s.repo.GetByFingerprint(ctx, fp)
	if errors.Is(err, documents.ErrNotFound) {
		metrics.IncVerifyMiss()
		s.record(ctx, EventDocumentVerify, map[string]any{"owner_id": ownerID, "fingerprint": fp, "found": false})
		return &ProbeResult{Fingerprint: fp, Found: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup fingerprint: %w", err)
	}
	metrics.IncVerifyHit()
	s.record(ctx, EventDocumentVerify, map[string]any{"owner_id": ownerID, "fingerprint": fp, "found": true, "document_id": doc.ID})
	return &ProbeResult{Fingerprint: fp, Found: true, Document: doc}, nil
}

// Get returns one document with findings and decision history.
func (s *Service) Get(ctx context.Context, id string) (*documents.Document, []documents.Finding, []documents.VerificationDecision, error) {
	return s.repo.Get(ctx, id)
}

// ListByOwner returns an owner's documents, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]documents.Document, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// ListPending returns the review queue, newest first.
func (s *Service) ListPending(ctx context.Context) ([]documents.Document, error) {
	return s.repo.ListPending(ctx)
}

// Decide applies a reviewer decision: the status update and the
// decision record land atomically.
func (s *Service) Decide(ctx context.Context, in DecideInput) (*documents.VerificationDecision, error) {
	if in.DocumentID == "" {
		return nil, fmt.Errorf("%w: document id is required", documents.ErrInvalidInput)
	}
	if !documents.ValidDecision(in.Decision) {
		return nil, fmt.Errorf("%w: decision must be verified or rejected", documents.ErrInvalidInput)
	}

	dec := &documents.VerificationDecision{
		ID:         uuid.NewString(),
		DocumentID: in.DocumentID,
		ReviewerID: in.ReviewerID,
		Decision:   in.Decision,
		Remarks:    in.Remarks,
		DecidedAt:  time.Now().UTC(),
	}
	if err := s.repo.RecordDecision(ctx, dec); err != nil {
		return nil, err
	}

	metrics.IncDecision()
	s.record(ctx, EventAdminVerification, map[string]any{
		"document_id": in.DocumentID,
		"reviewer_id": in.ReviewerID,
		"decision":    in.Decision,
	})
	return dec, nil
}

// record is best effort. Audit failures never fail the operation.
func (s *Service) record(ctx context.Context, event string, fields map[string]any) {
	if err := s.audit.Record(ctx, event, fields); err != nil {
		telemetry.Warn("verification.audit_failed", map[string]any{"event": event, "error": err.Error()})
	}
}
