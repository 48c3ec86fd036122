package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// SortEntries returns a sorted copy of entries using CompareEntries.
func SortEntries(entries []Entry) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	slices.SortStableFunc(sorted, CompareEntries)
	return sorted
}

// ComputeHash returns the SHA-256 hex digest of the sorted, serialized
// entries. Any permutation of the same entries hashes identically.
// HTML characters are written literally so stored hashes stay stable.
func ComputeHash(entries []Entry) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(SortEntries(entries)); err != nil {
		// Entry holds only strings; encoding cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return hex.EncodeToString(sum[:])
}

// ShouldAnnounce is the change gate: a change message is published only
// when a previous snapshot existed, the hash moved and the diff is non-empty.
func ShouldAnnounce(previousHash, currentHash string, diff Diff) bool {
	if previousHash == "" {
		return false
	}
	return previousHash != currentHash && diff.HasChanges()
}
