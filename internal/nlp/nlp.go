// Package nlp abstracts the external named-entity extraction service.
package nlp

import "context"

// Entity is a single named entity returned by the collaborator.
type Entity struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Client abstracts NLP providers for entity extraction.
// Implementations fail soft: an unavailable model yields an error the
// caller is expected to treat as "no entities", never as a hard failure.
type Client interface {
	Entities(ctx context.Context, text string) ([]Entity, error)
}

// NoopClient is used when no NLP service is configured. It returns no
// entities so ingestion proceeds on pattern matches and the raw snippet.
type NoopClient struct{}

// Entities always returns an empty result.
func (NoopClient) Entities(ctx context.Context, text string) ([]Entity, error) {
	_ = ctx
	_ = text
	return nil, nil
}

var _ Client = NoopClient{}
