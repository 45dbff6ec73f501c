package generation

import (
	"strings"

	"ragqa/internal/domain"
)

const DefaultPreviewChars = 1000

const (
	promptHeader  = "You are a helpful assistant. Use the following context to answer the question.\n\n"
	contextJoiner = "\n\n---\n\n"
)

// BuildPrompt renders the question and the retrieved chunks into a single
// prompt. Each chunk contributes its source path and at most previewChars
// characters of its text.
func BuildPrompt(question string, retrieved []domain.Retrieved, previewChars int) string {
	if previewChars <= 0 {
		previewChars = DefaultPreviewChars
	}
	parts := make([]string, len(retrieved))
	for i, r := range retrieved {
		parts[i] = "FILE: " + r.SourcePath + "\n" + Preview(r.Text, previewChars)
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("CONTEXT:\n")
	b.WriteString(strings.Join(parts, contextJoiner))
	b.WriteString("\n\nQUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n\nAnswer concisely and cite which context file you used.")
	return b.String()
}

// Preview returns the first n characters of text.
func Preview(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
