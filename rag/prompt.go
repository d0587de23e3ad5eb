package rag

import "strings"

// RefusalPhrase is the exact sentence the model must use verbatim when the
// supplied context cannot answer the question.
const RefusalPhrase = "I don't know based on the provided documents."

const systemInstruction = "You are a legal AI assistant. " +
	"Answer the question using only the context below. " +
	"If the context does not contain the answer, reply exactly: \"" + RefusalPhrase + "\" " +
	"When the context includes source identifiers (lines starting with \"Source:\"), cite them in your answer."

// BuildPrompt constructs the constrained prompt sent to the completion
// backend: instruction, context block, then the question.
func BuildPrompt(question, contextText string) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\nContext:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
