package record

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainCollection separates collection digests from any other hash use.
// The version suffix allows a future algorithm change.
const DomainCollection = "lexstore/collection/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the content digest of an encoded collection. Stores use it
// to skip writes that would not change anything.
func Digest(encoded []byte) string {
	return hashWithDomain(DomainCollection, encoded)
}
