package documents

import "time"

// Document statuses. Every document starts pending and moves to
// verified or rejected exactly once via a reviewer decision.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
	StatusRejected = "rejected"
)

// Decision values accepted from reviewers.
const (
	DecisionVerified = "verified"
	DecisionRejected = "rejected"
)

// Document is a stored artifact identified by its content fingerprint.
type Document struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"ownerId"`
	DisplayName        string    `json:"displayName"`
	DocType            string    `json:"docType"`
	StoragePath        string    `json:"storagePath"`
	ContentFingerprint string    `json:"contentFingerprint"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Finding is one extracted key/value attached to a document.
type Finding struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"documentId"`
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// VerificationDecision is an append-only reviewer decision record.
type VerificationDecision struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	ReviewerID string    `json:"reviewerId"`
	Decision   string    `json:"decision"`
	Remarks    string    `json:"remarks"`
	DecidedAt  time.Time `json:"decidedAt"`
}

// ValidDecision reports whether d is an accepted decision value.
func ValidDecision(d string) bool {
	return d == DecisionVerified || d == DecisionRejected
}
