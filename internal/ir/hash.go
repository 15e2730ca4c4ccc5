package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// The version suffix leaves room for an algorithm migration.
const (
	DomainDocument = "retrywrites/document/v1"
	DomainRecord   = "retrywrites/record/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash returns the content hash of a document.
// Two documents hash equal exactly when Equal reports them equal.
func DocumentHash(doc Document) (string, error) {
	return hashIn(DomainDocument, doc)
}

// RecordHash returns the content hash of a log record in document form.
// The store uses it to detect a different record claiming an occupied position.
func RecordHash(recordDoc Document) (string, error) {
	return hashIn(DomainRecord, recordDoc)
}

func hashIn(domain string, doc Document) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// MustDocumentHash is like DocumentHash but panics on error.
// Use only in tests or when the document is known to be valid.
func MustDocumentHash(doc Document) string {
	h, err := DocumentHash(doc)
	if err != nil {
		panic(err)
	}
	return h
}
