// Package pdf turns uploaded PDF files into plain text.
package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Extractor reads the text of the PDF stored at path.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// TextExtractor validates the file with pdfcpu and reads page text with
// ledongthuc/pdf.
type TextExtractor struct {
	logger *slog.Logger
	conf   *model.Configuration
}

func NewTextExtractor(logger *slog.Logger) *TextExtractor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &TextExtractor{logger: logger, conf: conf}
}

type result struct {
	text string
	err  error
}

// Extract runs the extraction in its own goroutine so a cancelled ctx returns
// immediately. The libraries themselves cannot be interrupted.
func (e *TextExtractor) Extract(ctx context.Context, path string) (string, error) {
	done := make(chan result, 1)
	go func() {
		text, err := e.extract(path)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("pdf extraction aborted: %w", ctx.Err())
	}
}

func (e *TextExtractor) extract(path string) (string, error) {
	if err := api.ValidateFile(path, e.conf); err != nil {
		return "", fmt.Errorf("invalid pdf: %w", err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	pageCount := r.NumPage()
	pages := make([]string, 0, pageCount)
	for i := 1; i <= pageCount; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// image-only or broken pages are skipped
			e.logger.Warn("Failed to extract page text", "page", i, "error", err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	e.logger.Debug("Extracted pdf text", "pages", pageCount, "pagesWithText", len(pages))
	return strings.Join(pages, "\n"), nil
}
