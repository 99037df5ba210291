package models

import "time"

// RetrievedChunk is one nearest-neighbour hit used as prompt context.
type RetrievedChunk struct {
	Position int     `json:"position"`
	Distance float64 `json:"distance"`
	Content  string  `json:"content"`
}

// Answer is the full result of one pipeline run.
type Answer struct {
	Question string           `json:"question"`
	Answer   string           `json:"answer"`
	Prompt   string           `json:"prompt,omitempty"`
	Context  []RetrievedChunk `json:"context,omitempty"`
	Elapsed  time.Duration    `json:"elapsed_ns"`
}

// RAGResponse is the HTTP response body for a successful question.
type RAGResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// RAGRequest is the optional JSON body of POST /rag.
type RAGRequest struct {
	Question string `json:"question"`
}

// ErrorResponse is the HTTP error body.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// CorpusStatus describes the loaded corpus.
type CorpusStatus struct {
	Chunks          int       `json:"chunks"`
	Dimensions      int       `json:"dimensions"`
	EmbeddingModel  string    `json:"embedding_model"`
	GenerationModel string    `json:"generation_model"`
	Source          string    `json:"source"`
	CacheKey        string    `json:"cache_key"`
	BuildID         string    `json:"build_id"`
	ContentSHA256   string    `json:"content_sha256,omitempty"`
	BuiltAt         time.Time `json:"built_at"`
	CacheBytes      *int64    `json:"cache_bytes,omitempty"`
	// Stale is set when the stored key no longer matches the current settings.
	Stale bool `json:"stale,omitempty"`
}
