package comparison

import (
	"context"
	"errors"
	"testing"
	"time"

	"docverify-backend/internal/documents"
)

func seedDoc(t *testing.T, repo *documents.MemoryRepo, id, fingerprint string, values ...string) {
	t.Helper()
	doc := &documents.Document{
		ID:                 id,
		OwnerID:            "owner-1",
		DisplayName:        id + ".txt",
		ContentFingerprint: fingerprint,
		Status:             documents.StatusPending,
		CreatedAt:          time.Now(),
	}
	var findings []documents.Finding
	for i, v := range values {
		findings = append(findings, documents.Finding{
			ID:         id + "-f" + string(rune('a'+i)),
			Key:        "RAW_TEXT_SNIPPET",
			Value:      v,
			Confidence: 1.0,
		})
	}
	if err := repo.CreateDocument(context.Background(), doc, findings); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func fp(seed byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = "0123456789abcdef"[(int(seed)+i)%16]
	}
	return string(b)
}

func TestCompareSelfIsLikelySame(t *testing.T) {
	repo := documents.NewMemoryRepo()
	seedDoc(t, repo, "d1", fp(1), "invoice for march", "a@b.com")
	svc := NewService(repo, 0.75)

	res, err := svc.Compare(context.Background(), "d1", "d1")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.Ratio != 1.0 {
		t.Fatalf("ratio = %v, want 1.0", res.Ratio)
	}
	if res.Label != LabelLikelySame {
		t.Fatalf("label = %q, want %q", res.Label, LabelLikelySame)
	}
}

func TestCompareIdenticalFindingText(t *testing.T) {
	repo := documents.NewMemoryRepo()
	seedDoc(t, repo, "d1", fp(1), "same text body")
	seedDoc(t, repo, "d2", fp(2), "same text body")
	svc := NewService(repo, 0.75)

	res, err := svc.Compare(context.Background(), "d1", "d2")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.Ratio != 1.0 || res.Label != LabelLikelySame {
		t.Fatalf("got ratio %v label %q, want 1.0 likely-same", res.Ratio, res.Label)
	}
}

func TestCompareDifferentDocuments(t *testing.T) {
	repo := documents.NewMemoryRepo()
	seedDoc(t, repo, "d1", fp(1), "foo")
	seedDoc(t, repo, "d2", fp(2), "bar baz")
	svc := NewService(repo, 0.75)

	res, err := svc.Compare(context.Background(), "d1", "d2")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.Label != LabelDifferent {
		t.Fatalf("label = %q, want %q (ratio %v)", res.Label, LabelDifferent, res.Ratio)
	}
	// "foo" and "bar baz" share no characters, so the ratio bottoms out at 0.
	if res.Ratio < 0 || res.Ratio >= 0.75 {
		t.Fatalf("ratio = %v, want well below the 0.75 threshold", res.Ratio)
	}
}

func TestCompareSkipsEmptyValues(t *testing.T) {
	repo := documents.NewMemoryRepo()
	seedDoc(t, repo, "d1", fp(1), "kept", "", "also kept")
	seedDoc(t, repo, "d2", fp(2), "kept also kept")
	svc := NewService(repo, 0.75)

	res, err := svc.Compare(context.Background(), "d1", "d2")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.Ratio != 1.0 {
		t.Fatalf("ratio = %v, want 1.0 after empty values are dropped", res.Ratio)
	}
}

func TestCompareThresholdBoundary(t *testing.T) {
	repo := documents.NewMemoryRepo()
	seedDoc(t, repo, "d1", fp(1), "abcd")
	seedDoc(t, repo, "d2", fp(2), "abcd")
	// Ratio 1.0 is not greater than a threshold of 1.0.
	svc := NewService(repo, 1.0)

	res, err := svc.Compare(context.Background(), "d1", "d2")
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.Label != LabelDifferent {
		t.Fatalf("label = %q, want different at threshold 1.0", res.Label)
	}
}

func TestCompareMissingDocument(t *testing.T) {
	repo := documents.NewMemoryRepo()
	seedDoc(t, repo, "d1", fp(1), "present")
	svc := NewService(repo, 0.75)

	_, err := svc.Compare(context.Background(), "d1", "ghost")
	if !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCompareRequiresBothIDs(t *testing.T) {
	svc := NewService(documents.NewMemoryRepo(), 0.75)

	_, err := svc.Compare(context.Background(), "d1", "")
	if !errors.Is(err, documents.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRatioEmptyStrings(t *testing.T) {
	if r := Ratio("", ""); r != 1.0 {
		t.Fatalf("Ratio of two empty strings = %v, want 1.0", r)
	}
	if r := Ratio("abc", ""); r != 0 {
		t.Fatalf("Ratio against empty = %v, want 0", r)
	}
}
