// Package reader loads .txt and .pdf files from disk as documents.
package reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragqa/internal/domain"
)

// Reader turns files into documents. Unreadable files are logged and skipped.
type Reader struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{logger: logger}
}

// Counts is the number of supported files in a directory, by type.
type Counts struct {
	Text int
	PDF  int
}

// SourceTypeOf maps a file extension to a source type.
func SourceTypeOf(path string) (domain.SourceType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return domain.SourceText, true
	case ".pdf":
		return domain.SourcePDF, true
	}
	return "", false
}

// Supported reports whether path has a readable extension.
func Supported(path string) bool {
	_, ok := SourceTypeOf(path)
	return ok
}

// ListDir returns the supported files directly inside dir: text files first,
// then PDFs, each group sorted by name.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var txt, pdfs []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		p := filepath.Join(dir, e.Name())
		switch st, _ := SourceTypeOf(p); st {
		case domain.SourceText:
			txt = append(txt, p)
		case domain.SourcePDF:
			pdfs = append(pdfs, p)
		}
	}
	sort.Strings(txt)
	sort.Strings(pdfs)
	return append(txt, pdfs...), nil
}

// CountDir counts the supported files in dir. A missing dir counts as empty.
func CountDir(dir string) Counts {
	var c Counts
	files, _ := ListDir(dir)
	for _, f := range files {
		if st, _ := SourceTypeOf(f); st == domain.SourcePDF {
			c.PDF++
		} else {
			c.Text++
		}
	}
	return c
}

// ReadDir reads every supported file directly inside dir.
func (r *Reader) ReadDir(ctx context.Context, dir string) ([]domain.Document, error) {
	files, err := ListDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: directory %s does not exist", domain.ErrNoDocuments, dir)
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	return r.readFiles(ctx, files)
}

// ReadPaths reads files, directories and glob patterns. Unsupported
// extensions are skipped.
func (r *Reader) ReadPaths(ctx context.Context, paths []string) ([]domain.Document, error) {
	var files []string
	for _, p := range paths {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				r.logger.Warn("skipping path", "path", m, "error", err)
				continue
			}
			if info.IsDir() {
				inner, err := ListDir(m)
				if err != nil {
					r.logger.Warn("skipping directory", "path", m, "error", err)
					continue
				}
				files = append(files, inner...)
				continue
			}
			if !Supported(m) {
				r.logger.Debug("skipping unsupported file", "path", m)
				continue
			}
			files = append(files, m)
		}
	}
	return r.readFiles(ctx, files)
}

func (r *Reader) readFiles(ctx context.Context, files []string) ([]domain.Document, error) {
	var docs []domain.Document
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := r.ReadFile(f)
		if err != nil {
			r.logger.Warn("could not read document", "path", f, "error", err)
			continue
		}
		if doc.Text == "" {
			r.logger.Debug("skipping empty document", "path", f)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ReadFile reads a single .txt or .pdf file. The text is trimmed.
func (r *Reader) ReadFile(path string) (domain.Document, error) {
	st, ok := SourceTypeOf(path)
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Ext(path))
	}

	var text string
	switch st {
	case domain.SourcePDF:
		t, err := pdfText(path)
		if err != nil {
			return domain.Document{}, err
		}
		text = t
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.Document{}, err
		}
		text = string(bytes.ToValidUTF8(data, []byte("�")))
	}
	return domain.Document{Path: path, Text: strings.TrimSpace(text), SourceType: st}, nil
}

func pdfText(path string) (text string, err error) {
	// the pdf package panics on some malformed files
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parse pdf: %v", rec)
		}
	}()

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
