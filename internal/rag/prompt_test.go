package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt([]string{"Melatonin helps sleep.", "Exercise helps mood."}, "What helps with sleep?", "mental health")
	want := "Context information is below.\n" +
		"---------------------\n" +
		"Melatonin helps sleep. Exercise helps mood.\n" +
		"---------------------\n" +
		"Given the context information and not prior knowledge, answer the query about mental health.\n" +
		"Query: What helps with sleep?\n" +
		"Answer:"
	assert.Equal(t, want, got)
}

func TestBuildPrompt_defaultTopicAndNoChunks(t *testing.T) {
	got := BuildPrompt(nil, "q", "")
	assert.Contains(t, got, "---------------------\n\n---------------------")
	assert.Contains(t, got, "answer the query about mental health.")
}

func TestBuildPrompt_deterministic(t *testing.T) {
	chunks := []string{"a", "b"}
	assert.Equal(t, BuildPrompt(chunks, "q", "sleep"), BuildPrompt(chunks, "q", "sleep"))
}
