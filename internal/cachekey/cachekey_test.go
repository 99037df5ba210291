package cachekey

import "testing"

func base() Inputs {
	return Inputs{
		Source:         "https://www.medicalnewstoday.com/articles/154543",
		EmbeddingModel: "mistral-embed",
		ChunkSize:      400,
	}
}

func TestCompute_deterministic(t *testing.T) {
	k1 := Compute(base())
	k2 := Compute(base())
	if k1 != k2 {
		t.Errorf("same inputs should give same key: %q vs %q", k1, k2)
	}
	if len(k1) != 64 {
		t.Errorf("key should be hex sha256, got %q", k1)
	}
}

func TestCompute_eachInputMatters(t *testing.T) {
	ref := Compute(base())
	tests := []struct {
		name   string
		modify func(*Inputs)
	}{
		{"source", func(in *Inputs) { in.Source = "https://example.com/other" }},
		{"model", func(in *Inputs) { in.EmbeddingModel = "text-embedding-3-small" }},
		{"chunk size", func(in *Inputs) { in.ChunkSize = 200 }},
		{"content hash", func(in *Inputs) { in.ContentSHA256 = "deadbeef" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.modify(&in)
			if Compute(in) == ref {
				t.Errorf("changing %s should change the key", tt.name)
			}
		})
	}
}

func TestCompute_fieldBoundaries(t *testing.T) {
	a := Compute(Inputs{Source: "ab", EmbeddingModel: "c", ChunkSize: 1})
	b := Compute(Inputs{Source: "a", EmbeddingModel: "bc", ChunkSize: 1})
	if a == b {
		t.Error("shifting characters between fields should change the key")
	}
}

func TestCompute_filePathsNormalized(t *testing.T) {
	in := Inputs{Source: "docs/./article.txt", EmbeddingModel: "m", ChunkSize: 400, ContentSHA256: "abc"}
	clean := in
	clean.Source = "docs/article.txt"
	if Compute(in) != Compute(clean) {
		t.Error("equivalent file paths should give the same key")
	}
}
