// Package extraction turns raw extracted text into typed findings.
package extraction

import (
	"context"
	"regexp"

	"docverify-backend/internal/nlp"
	"docverify-backend/internal/shared/telemetry"
)

// Finding keys produced by the pipeline. Entity findings use the
// collaborator's label as-is (PERSON, ORG, GPE, ...).
const (
	KeyDate       = "DATE"
	KeyEmail      = "EMAIL"
	KeyPhone      = "PHONE"
	KeyIDNumber   = "ID_NUMBER"
	KeyRawSnippet = "RAW_TEXT_SNIPPET"
)

// Fixed confidence per producer. The entity service does not report
// per-entity scores, so those get a flat estimate.
const (
	dateConfidence    = 0.90
	emailConfidence   = 0.95
	phoneConfidence   = 0.90
	idConfidence      = 0.88
	entityConfidence  = 0.85
	snippetConfidence = 1.0
)

// snippetMaxChars bounds the trailing raw-text finding.
const snippetMaxChars = 500

var (
	dateRe  = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`)
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe = regexp.MustCompile(`\b(?:\+91[-.\s]?)?[6-9]\d{9}\b`)
	idRe    = regexp.MustCompile(`\b\d{4} ?\d{4} ?\d{4}\b`)
)

// Finding is a single extracted key/value with a confidence score.
type Finding struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Pipeline combines the pattern matcher and the entity collaborator.
type Pipeline struct {
	Entities nlp.Client
}

// Run extracts findings from text. Output order is stable: pattern
// matches, then entities, then the raw-text snippet. The snippet is
// always present, so every document ends up with at least one finding
// even when text is empty. Entity-service failures degrade to an empty
// entity set and never fail the run.
func (p *Pipeline) Run(ctx context.Context, text string) []Finding {
	findings := MatchPatterns(text)

	if p.Entities != nil {
		entities, err := p.Entities.Entities(ctx, text)
		if err != nil {
			telemetry.Warn("extraction.entities_failed", map[string]any{"error": err.Error()})
		}
		for _, ent := range entities {
			findings = append(findings, Finding{
				Key:        ent.Label,
				Value:      ent.Text,
				Confidence: entityConfidence,
			})
		}
	}

	findings = append(findings, Finding{
		Key:        KeyRawSnippet,
		Value:      snippet(text),
		Confidence: snippetConfidence,
	})
	return findings
}

// MatchPatterns reports every non-overlapping fixed-format match in text.
func MatchPatterns(text string) []Finding {
	var findings []Finding
	for _, match := range dateRe.FindAllString(text, -1) {
		findings = append(findings, Finding{Key: KeyDate, Value: match, Confidence: dateConfidence})
	}
	for _, match := range emailRe.FindAllString(text, -1) {
		findings = append(findings, Finding{Key: KeyEmail, Value: match, Confidence: emailConfidence})
	}
	for _, match := range phoneRe.FindAllString(text, -1) {
		findings = append(findings, Finding{Key: KeyPhone, Value: match, Confidence: phoneConfidence})
	}
	for _, match := range idRe.FindAllString(text, -1) {
		findings = append(findings, Finding{Key: KeyIDNumber, Value: match, Confidence: idConfidence})
	}
	return findings
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetMaxChars {
		return text
	}
	return string(runes[:snippetMaxChars])
}
