// Package comparison scores how similar two stored documents are based
// on their extracted findings.
package comparison

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"docverify-backend/internal/documents"
)

// Labels reported to callers.
const (
	LabelLikelySame = "likely-same"
	LabelDifferent  = "different"
)

// Result is one pairwise comparison outcome.
type Result struct {
	Doc1ID    string  `json:"doc1Id"`
	Doc2ID    string  `json:"doc2Id"`
	Ratio     float64 `json:"ratio"`
	Label     string  `json:"label"`
	Threshold float64 `json:"threshold"`
}

// Service compares documents by the text of their findings.
type Service struct {
	repo      documents.Repo
	threshold float64
}

func NewService(repo documents.Repo, threshold float64) *Service {
	return &Service{repo: repo, threshold: threshold}
}

// Compare scores the two documents' finding texts with a sequence
// matcher ratio in [0, 1]. Comparing a document with itself yields 1.0.
// A missing document returns documents.ErrNotFound.
func (s *Service) Compare(ctx context.Context, id1, id2 string) (*Result, error) {
	if id1 == "" || id2 == "" {
		return nil, fmt.Errorf("%w: two document ids are required", documents.ErrInvalidInput)
	}

	text1, err := s.findingText(ctx, id1)
	if err != nil {
		return nil, err
	}
	text2, err := s.findingText(ctx, id2)
	if err != nil {
		return nil, err
	}

	ratio := Ratio(text1, text2)
	label := LabelDifferent
	if ratio > s.threshold {
		label = LabelLikelySame
	}
	return &Result{
		Doc1ID:    id1,
		Doc2ID:    id2,
		Ratio:     ratio,
		Label:     label,
		Threshold: s.threshold,
	}, nil
}

// findingText joins a document's non-empty finding values with single
// spaces, raw-text snippet included.
func (s *Service) findingText(ctx context.Context, id string) (string, error) {
	_, findings, _, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, f := range findings {
		if f.Value == "" {
			continue
		}
		parts = append(parts, f.Value)
	}
	return strings.Join(parts, " "), nil
}

// Ratio computes a character-level sequence matcher similarity ratio.
func Ratio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}
