package documents

import "errors"

var (
	// ErrNotFound means no document matches the given id or fingerprint.
	ErrNotFound = errors.New("document not found")
	// ErrFingerprintExists means a document with the same content
	// fingerprint is already stored.
	ErrFingerprintExists = errors.New("document with this fingerprint already exists")
	// ErrInvalidInput covers malformed ids, fingerprints and decisions.
	ErrInvalidInput = errors.New("invalid input")
)
