// Package errs holds the sentinel errors shared by stores, services and handlers.
package errs

import "errors"

var (
	// ErrValidation marks malformed client input.
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedMediaType marks an upload that is not application/pdf.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrAlreadyExists marks a unique key violation (email or document identifier).
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound marks an unknown document identifier.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized marks a missing, invalid or expired token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrExtractionFailed marks a PDF the extractor could not turn into text.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrLLMFailed marks a failed or misconfigured call to the language model.
	ErrLLMFailed = errors.New("llm request failed")
)

// IsDependency reports whether err came from an external collaborator.
func IsDependency(err error) bool {
	return errors.Is(err, ErrExtractionFailed) || errors.Is(err, ErrLLMFailed)
}
