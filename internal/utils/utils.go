package utils

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DateLayout = "2006-01-02"

var (
	invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	separatorRuns    = regexp.MustCompile(`[\s_]+`)
)

// SanitizeFilename turns a client supplied name into a safe single path segment.
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = invalidFileChars.ReplaceAllString(name, "_")
	name = separatorRuns.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "file"
	}
	return name
}

func NewIdentifier() string {
	return uuid.NewString()
}

// ParseIdentifier validates a path identifier and returns its canonical form.
func ParseIdentifier(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NormalizeDate keeps a valid YYYY-MM-DD date and replaces anything else with today.
func NormalizeDate(date string, now time.Time) string {
	if date != "" {
		if _, err := time.Parse(DateLayout, date); err == nil {
			return date
		}
	}
	return now.Format(DateLayout)
}

// NormalizeFileName drops empty and placeholder names ("string" is what
// generated API clients send for an untouched field).
func NormalizeFileName(name string) string {
	if name == "" || name == "string" {
		return ""
	}
	return name
}

// ResolveFileName picks the client name when present, otherwise <id>_<date>.pdf,
// and sanitizes the result.
func ResolveFileName(id, fileName, date string) string {
	raw := NormalizeFileName(fileName)
	if raw == "" {
		raw = id + "_" + date + ".pdf"
	}
	return SanitizeFilename(raw)
}
