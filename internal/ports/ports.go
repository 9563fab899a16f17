package ports

import (
	"context"
	"time"

	"PageVault/internal/domain"
)

// ItemRepository persists saved items, every read and mutation scoped by
// the owning user.
type ItemRepository interface {
	Create(ctx context.Context, url, userID string, status domain.ItemStatus) (domain.SavedItem, error)
	Update(ctx context.Context, id, userID string, update domain.ItemUpdate) (domain.SavedItem, error)
	FindByID(ctx context.Context, id, userID string) (domain.SavedItem, error)
	FindAllByUser(ctx context.Context, userID string) ([]domain.SavedItem, error)
	FailStale(ctx context.Context, olderThan time.Time) (int64, error)
}

// Extractor turns URLs into normalized content via the remote scraping
// service and enumerates candidate links for import.
type Extractor interface {
	Extract(ctx context.Context, url string) (domain.Extraction, error)
	DiscoverLinks(ctx context.Context, url string, limit int, filter string) ([]domain.Link, error)
	SearchWeb(ctx context.Context, query string, limit int) ([]domain.Link, error)
}

// Summarizer generates summaries and tags from item content through the
// hosted text-generation service.
type Summarizer interface {
	// Summarize streams the summary; emit is called once per chunk in
	// order. A non-nil emit error aborts the stream.
	Summarize(ctx context.Context, content string, emit func(chunk string) error) error
	ExtractTags(ctx context.Context, summary string) ([]string, error)
}

// Identity is the authenticated caller resolved by the access middleware.
type Identity struct {
	UserID string
	Email  string
}
