package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// MaxURLLength bounds the source URL of a saved item.
const MaxURLLength = 2048

// MaxTags caps the number of tags derived from a summary.
const MaxTags = 5

// ItemStatus enumerates ingestion milestones of a saved item.
type ItemStatus string

const (
	StatusPending    ItemStatus = "PENDING"
	StatusProcessing ItemStatus = "PROCESSING"
	StatusCompleted  ItemStatus = "COMPLETED"
	StatusFailed     ItemStatus = "FAILED"
)

// Terminal reports whether no further automatic transitions occur.
func (s ItemStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SavedItem is the persisted record for one imported URL. Extracted
// fields stay nil until extraction succeeds; Summary and Tags are only
// ever written by the summarize-and-tag operation.
type SavedItem struct {
	ID          string
	UserID      string
	URL         string
	Title       *string
	Content     *string
	OGImage     *string
	Author      *string
	PublishedAt *time.Time
	Summary     *string
	Tags        []string
	Status      ItemStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Extraction is the normalized result of scraping one URL.
type Extraction struct {
	Title       string
	Markdown    string
	OGImage     string
	Author      string
	PublishedAt string
}

// Link describes one candidate URL produced by discovery or web search.
type Link struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// ImportOutcome is the per-URL result of a bulk import.
type ImportOutcome string

const (
	OutcomeSuccess ImportOutcome = "success"
	OutcomeFailed  ImportOutcome = "failed"
)

// ImportProgress is emitted after each URL of a bulk import finishes,
// in input order.
type ImportProgress struct {
	Completed int           `json:"completed"`
	Total     int           `json:"total"`
	URL       string        `json:"url"`
	Outcome   ImportOutcome `json:"status"`
}

// ItemUpdate carries a partial mutation; nil members are left untouched.
// Tags is applied whenever SetTags is true so an empty list can be stored.
type ItemUpdate struct {
	Title       *string
	Content     *string
	OGImage     *string
	Author      *string
	PublishedAt *time.Time
	Summary     *string
	Tags        []string
	SetTags     bool
	Status      *ItemStatus
}

// ErrNotFound signals that an item does not exist or is not owned by the
// caller; the two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("item not found")

// ValidationError rejects malformed input before any side effect.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ParseTags normalizes raw comma-separated model output into at most
// MaxTags lower-cased, trimmed, non-empty tokens. Duplicates are kept.
func ParseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, MaxTags)
	for _, part := range parts {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}

// ParsePublishedAt parses a publication date reported by the extraction
// service. Anything that does not parse yields nil; an invalid date is
// never stored.
func ParsePublishedAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parsed, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	return &parsed
}
