// Package document implements upload, append, query, delete and listing of
// extracted PDF documents.
package document

import (
	"cagchat/internal/database"
	"cagchat/internal/errs"
	"cagchat/internal/llm"
	"cagchat/internal/pdf"
	"cagchat/internal/utils"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const pdfMediaType = "application/pdf"

type Config struct {
	UploadDir      string
	ExtractTimeout time.Duration
	LLMTimeout     time.Duration
}

type Service struct {
	docs      database.DocumentRepository
	extractor pdf.Extractor
	answerer  llm.Answerer
	logger    *slog.Logger
	config    Config
	now       func() time.Time
}

func NewService(docs database.DocumentRepository, extractor pdf.Extractor, answerer llm.Answerer, logger *slog.Logger, config Config) *Service {
	return &Service{
		docs:      docs,
		extractor: extractor,
		answerer:  answerer,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// UploadInput is one uploaded file plus its optional metadata.
type UploadInput struct {
	ID          string
	FileName    string
	Date        string
	ContentType string
	Content     io.Reader
}

// Receipt echoes the metadata resolved for an upload or update request.
type Receipt struct {
	ID       string
	FileName string
	Date     string
}

type QueryResult struct {
	Document utils.DocumentInfo
	Query    string
	Answer   llm.Answer
}

func (s *Service) resolve(in UploadInput) Receipt {
	date := utils.NormalizeDate(in.Date, s.now())
	return Receipt{
		ID:       in.ID,
		FileName: utils.ResolveFileName(in.ID, in.FileName, date),
		Date:     date,
	}
}

// Upload extracts the text of a new document. The identifier must be unused.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Receipt, error) {
	if in.ContentType != pdfMediaType {
		return Receipt{}, fmt.Errorf("content type %q: %w", in.ContentType, errs.ErrUnsupportedMediaType)
	}
	if s.docs.Exists(ctx, in.ID) {
		return Receipt{}, fmt.Errorf("document %s: %w", in.ID, errs.ErrAlreadyExists)
	}

	receipt := s.resolve(in)
	text, err := s.extractUpload(ctx, receipt.FileName, in.Content)
	if err != nil {
		return Receipt{}, err
	}

	err = s.docs.Create(ctx, utils.Document{
		ID:       receipt.ID,
		FileName: receipt.FileName,
		Date:     receipt.Date,
		Text:     text,
	})
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// Update appends the text of another PDF to an existing document. The stored
// file name and date are left as they were; the receipt reflects the request.
func (s *Service) Update(ctx context.Context, in UploadInput) (Receipt, error) {
	if in.ContentType != pdfMediaType {
		return Receipt{}, fmt.Errorf("content type %q: %w", in.ContentType, errs.ErrUnsupportedMediaType)
	}
	if !s.docs.Exists(ctx, in.ID) {
		return Receipt{}, fmt.Errorf("document %s: %w", in.ID, errs.ErrNotFound)
	}

	receipt := s.resolve(in)
	text, err := s.extractUpload(ctx, receipt.FileName, in.Content)
	if err != nil {
		return Receipt{}, err
	}
	if _, err := s.docs.Append(ctx, in.ID, text); err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// spoolName is the on-disk name of every upload. The client file name only
// reaches the stored record.
const spoolName = "upload.pdf"

// extractUpload spools content into a private temp directory that is removed
// on every return path, then extracts its text.
func (s *Service) extractUpload(ctx context.Context, fileName string, content io.Reader) (string, error) {
	tempDir, err := os.MkdirTemp(s.config.UploadDir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	path := filepath.Join(tempDir, spoolName)
	if err := writeFile(path, content); err != nil {
		return "", err
	}

	if s.config.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ExtractTimeout)
		defer cancel()
	}

	text, err := s.extractor.Extract(ctx, path)
	if err != nil {
		s.logger.Warn("Text extraction failed", "fileName", fileName, "error", err)
		return "", fmt.Errorf("%w: %v", errs.ErrExtractionFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		s.logger.Warn("No text found in upload", "fileName", fileName)
		return "", fmt.Errorf("%w: no text found", errs.ErrExtractionFailed)
	}
	return text, nil
}

func writeFile(path string, content io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", path, err)
	}
	if _, err := io.Copy(f, content); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write upload: %w", err)
	}
	return f.Close()
}

// Query sends the full stored text and the question to the language model.
func (s *Service) Query(ctx context.Context, id, query string) (QueryResult, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return QueryResult{}, err
	}

	if s.config.LLMTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.LLMTimeout)
		defer cancel()
	}

	answer, err := s.answerer.GenerateAnswer(ctx, doc.Text, query)
	if err != nil {
		return QueryResult{}, fmt.Errorf("%w: %v", errs.ErrLLMFailed, err)
	}
	return QueryResult{Document: doc.Info(), Query: query, Answer: answer}, nil
}

func (s *Service) Delete(ctx context.Context, id string) (utils.DocumentInfo, error) {
	doc, err := s.docs.Delete(ctx, id)
	if err != nil {
		return utils.DocumentInfo{}, err
	}
	return doc.Info(), nil
}

func (s *Service) List(ctx context.Context) []utils.DocumentInfo {
	return s.docs.List(ctx)
}
