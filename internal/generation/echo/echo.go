// Package echo provides an offline generation backend that answers with the
// sources it was given. It needs no network access or credentials.
package echo

import (
	"context"
	"strings"

	"ragqa/internal/generation"
)

type Backend struct{}

var _ generation.Backend = Backend{}

func New() Backend { return Backend{} }

func (Backend) Name() string  { return "echo" }
func (Backend) Model() string { return "echo" }

func (Backend) Complete(_ context.Context, prompt string) (string, error) {
	var files []string
	seen := map[string]bool{}
	for _, line := range strings.Split(prompt, "\n") {
		path, ok := strings.CutPrefix(line, "FILE: ")
		if !ok || seen[path] {
			continue
		}
		seen[path] = true
		files = append(files, path)
	}
	if len(files) == 0 {
		return "No generation backend is configured and no context was retrieved.", nil
	}
	return "No generation backend is configured. Relevant context: " + strings.Join(files, ", "), nil
}
