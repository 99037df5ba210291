// Package cachekey derives the version key stored with the embedding cache.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strconv"
)

// SchemaVersion changes whenever a key computed by an older build must stop matching.
const SchemaVersion = 1

// Inputs are the settings that determine the cached chunks and vectors.
type Inputs struct {
	// Source is the URL or file path.
	Source         string
	EmbeddingModel string
	ChunkSize      int
	// ContentSHA256 is set for local files so edits invalidate the cache.
	ContentSHA256 string
}

// Compute returns a hex sha256 over the inputs. Equal inputs give equal keys.
// File paths are cleaned so "./a.txt" and "a.txt" agree.
func Compute(in Inputs) string {
	source := in.Source
	if source != "" && in.ContentSHA256 != "" {
		source = filepath.Clean(source)
	}
	h := sha256.New()
	for _, field := range []string{
		"kokoro-cache",
		strconv.Itoa(SchemaVersion),
		source,
		in.EmbeddingModel,
		strconv.Itoa(in.ChunkSize),
		in.ContentSHA256,
	} {
		// Length prefixes keep adjacent fields from running together.
		h.Write([]byte(strconv.Itoa(len(field))))
		h.Write([]byte{':'})
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}
