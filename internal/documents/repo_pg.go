package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the Postgres error code for unique_violation.
const pgUniqueViolation = "23505"

// PgRepo is the Postgres-backed repository.
type PgRepo struct {
	db *sql.DB
}

func NewPgRepo(db *sql.DB) *PgRepo {
	return &PgRepo{db: db}
}

func (r *PgRepo) CreateDocument(ctx context.Context, doc *Document, findings []Finding) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, owner_id, display_name, doc_type, storage_path, content_fingerprint, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		doc.ID, doc.OwnerID, doc.DisplayName, doc.DocType, doc.StoragePath, doc.ContentFingerprint, doc.Status, doc.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrFingerprintExists
		}
		return fmt.Errorf("insert document: %w", err)
	}

	for i, f := range findings {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO findings (id, document_id, position, key, value, confidence)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			f.ID, doc.ID, i, f.Key, f.Value, f.Confidence,
		)
		if err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PgRepo) Get(ctx context.Context, id string) (*Document, []Finding, []VerificationDecision, error) {
	doc, err := r.scanDocument(r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, display_name, doc_type, storage_path, content_fingerprint, status, created_at
		FROM documents WHERE id = $1`, id))
	if err != nil {
		return nil, nil, nil, err
	}

	findings, err := r.Findings(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, document_id, COALESCE(reviewer_id, ''), decision, remarks, decided_at
		FROM verification_decisions WHERE document_id = $1 ORDER BY decided_at DESC`, id)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []VerificationDecision
	for rows.Next() {
		var d VerificationDecision
		if err := rows.Scan(&d.ID, &d.DocumentID, &d.ReviewerID, &d.Decision, &d.Remarks, &d.DecidedAt); err != nil {
			return nil, nil, nil, fmt.Errorf("scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, err
	}
	return doc, findings, decisions, nil
}

func (r *PgRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*Document, error) {
	return r.scanDocument(r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, display_name, doc_type, storage_path, content_fingerprint, status, created_at
		FROM documents WHERE content_fingerprint = $1`, fingerprint))
}

func (r *PgRepo) Findings(ctx context.Context, documentID string) ([]Finding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, document_id, key, value, confidence
		FROM findings WHERE document_id = $1 ORDER BY position`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var f Finding
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.Key, &f.Value, &f.Confidence); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

func (r *PgRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	return r.listDocuments(ctx, `
		SELECT id, owner_id, display_name, doc_type, storage_path, content_fingerprint, status, created_at
		FROM documents WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

func (r *PgRepo) ListPending(ctx context.Context) ([]Document, error) {
	return r.listDocuments(ctx, `
		SELECT id, owner_id, display_name, doc_type, storage_path, content_fingerprint, status, created_at
		FROM documents WHERE status = $1 ORDER BY created_at DESC`, StatusPending)
}

func (r *PgRepo) RecordDecision(ctx context.Context, dec *VerificationDecision) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET status = $1 WHERE id = $2`,
		dec.Decision, dec.DocumentID,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO verification_decisions (id, document_id, reviewer_id, decision, remarks, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		dec.ID, dec.DocumentID, nullIfEmpty(dec.ReviewerID), dec.Decision, dec.Remarks, dec.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PgRepo) listDocuments(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.DisplayName, &d.DocType, &d.StoragePath, &d.ContentFingerprint, &d.Status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PgRepo) scanDocument(row *sql.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.OwnerID, &d.DisplayName, &d.DocType, &d.StoragePath, &d.ContentFingerprint, &d.Status, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
