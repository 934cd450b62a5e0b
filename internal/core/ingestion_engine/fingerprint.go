package ingestion_engine

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Fingerprint is the hex SHA-256 of the raw upload. It never looks at the
// filename, so identical bytes always dedupe.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChunkFingerprint keys the embedding cache by chunk text alone.
func ChunkFingerprint(text string) string {
	return Fingerprint([]byte(text))
}

// DocumentID is the storage id of one chunk: fingerprint_chunkIndex.
func DocumentID(fingerprint string, chunkIndex int) string {
	return fingerprint + "_" + strconv.Itoa(chunkIndex)
}

// ResultCacheKey is where a completed ingestion result is cached.
func ResultCacheKey(fingerprint string) string {
	return "doc:" + fingerprint
}
