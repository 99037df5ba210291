package rag

import "strings"

// DefaultTopic names the subject the model is told the query is about.
const DefaultTopic = "mental health"

const promptSeparator = "---------------------"

// BuildPrompt formats retrieved chunks, nearest first, and the question into
// the grounded prompt sent to the generator. It is a pure function of its inputs.
func BuildPrompt(chunks []string, question, topic string) string {
	if topic == "" {
		topic = DefaultTopic
	}
	var b strings.Builder
	b.WriteString("Context information is below.\n")
	b.WriteString(promptSeparator + "\n")
	b.WriteString(strings.Join(chunks, " "))
	b.WriteString("\n" + promptSeparator + "\n")
	b.WriteString("Given the context information and not prior knowledge, answer the query about ")
	b.WriteString(topic)
	b.WriteString(".\nQuery: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}
