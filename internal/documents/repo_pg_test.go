package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func testDocument() *Document {
	return &Document{
		ID:                 "doc-1",
		OwnerID:            "owner-1",
		DisplayName:        "passport.pdf",
		DocType:            "identity",
		StoragePath:        "owner-1/passport.pdf",
		ContentFingerprint: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Status:             StatusPending,
		CreatedAt:          time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateDocumentCommitsDocAndFindings(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPgRepo(db)
	doc := testDocument()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs(doc.ID, doc.OwnerID, doc.DisplayName, doc.DocType, doc.StoragePath, doc.ContentFingerprint, doc.Status, doc.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO findings").
		WithArgs("f-1", doc.ID, 0, "EMAIL", "a@b.com", 0.95).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	findings := []Finding{{ID: "f-1", Key: "EMAIL", Value: "a@b.com", Confidence: 0.95}}
	if err := repo.CreateDocument(context.Background(), doc, findings); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateDocumentRollsBackOnFindingFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPgRepo(db)
	doc := testDocument()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO findings").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	findings := []Finding{{ID: "f-1", Key: "EMAIL", Value: "a@b.com", Confidence: 0.95}}
	if err := repo.CreateDocument(context.Background(), doc, findings); err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateDocumentMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPgRepo(db)
	doc := testDocument()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "documents_content_fingerprint_key"})
	mock.ExpectRollback()

	err = repo.CreateDocument(context.Background(), doc, nil)
	if !errors.Is(err, ErrFingerprintExists) {
		t.Fatalf("err = %v, want ErrFingerprintExists", err)
	}
}

func TestCreateDocumentNumbersFindingsByPosition(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPgRepo(db)
	doc := testDocument()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO documents").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO findings").
		WithArgs("f-1", doc.ID, 0, "EMAIL", "a@b.com", 0.95).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO findings").
		WithArgs("f-2", doc.ID, 1, "RAW_TEXT_SNIPPET", "a@b.com please", 1.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	findings := []Finding{
		{ID: "f-1", Key: "EMAIL", Value: "a@b.com", Confidence: 0.95},
		{ID: "f-2", Key: "RAW_TEXT_SNIPPET", Value: "a@b.com please", Confidence: 1.0},
	}
	if err := repo.CreateDocument(context.Background(), doc, findings); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFindingsOrderedByPosition(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPgRepo(db)

	rows := sqlmock.NewRows([]string{"id", "document_id", "key", "value", "confidence"}).
		AddRow("f-1", "doc-1", "EMAIL", "a@b.com", 0.95).
		AddRow("f-2", "doc-1", "RAW_TEXT_SNIPPET", "a@b.com please", 1.0)
	mock.ExpectQuery("SELECT (.+) FROM findings WHERE document_id = (.+) ORDER BY position").
		WithArgs("doc-1").
		WillReturnRows(rows)

	findings, err := repo.Findings(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Findings: %v", err)
	}
	if len(findings) != 2 || findings[len(findings)-1].Key != "RAW_TEXT_SNIPPET" {
		t.Fatalf("findings = %+v, want snippet last", findings)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByFingerprintNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPgRepo(db)

	mock.ExpectQuery("SELECT (.+) FROM documents WHERE content_fingerprint").
		WithArgs("deadbeef").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetByFingerprint(context.Background(), "deadbeef")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetByFingerprintFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPgRepo(db)
	doc := testDocument()

	rows := sqlmock.NewRows([]string{"id", "owner_id", "display_name", "doc_type", "storage_path", "content_fingerprint", "status", "created_at"}).
		AddRow(doc.ID, doc.OwnerID, doc.DisplayName, doc.DocType, doc.StoragePath, doc.ContentFingerprint, doc.Status, doc.CreatedAt)
	mock.ExpectQuery("SELECT (.+) FROM documents WHERE content_fingerprint").
		WithArgs(doc.ContentFingerprint).
		WillReturnRows(rows)

	got, err := repo.GetByFingerprint(context.Background(), doc.ContentFingerprint)
	if err != nil {
		t.Fatalf("GetByFingerprint: %v", err)
	}
	if got.ID != doc.ID || got.Status != StatusPending {
		t.Fatalf("unexpected document %+v", got)
	}
}

func TestRecordDecisionUpdatesStatusAndAppends(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPgRepo(db)

	dec := &VerificationDecision{
		ID:         "dec-1",
		DocumentID: "doc-1",
		ReviewerID: "admin-1",
		Decision:   DecisionVerified,
		Remarks:    "checked against registry",
		DecidedAt:  time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents SET status").
		WithArgs(dec.Decision, dec.DocumentID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO verification_decisions").
		WithArgs(dec.ID, dec.DocumentID, dec.ReviewerID, dec.Decision, dec.Remarks, dec.DecidedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.RecordDecision(context.Background(), dec); err != nil {
		t.Fatalf("RecordDecision: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordDecisionMissingDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewPgRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	dec := &VerificationDecision{ID: "dec-1", DocumentID: "ghost", Decision: DecisionRejected, DecidedAt: time.Now()}
	if err := repo.RecordDecision(context.Background(), dec); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
