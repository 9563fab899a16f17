package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"PageVault/internal/domain"
	"PageVault/internal/ports"
)

const (
	// DiscoverLimit caps link discovery results per map call.
	DiscoverLimit = 20
	// SearchLimit caps web search results per query.
	SearchLimit = 15

	maxFilterLength = 100
)

// ImporterDeps wires the driven adapters into the ingestion pipeline.
type ImporterDeps struct {
	Repository ports.ItemRepository
	Extractor  ports.Extractor
	Logger     *slog.Logger
}

// Importer implements the content-ingestion pipeline: single import, link
// discovery, web search, and sequential bulk import with progress fan-out.
type Importer struct {
	repository ports.ItemRepository
	extractor  ports.Extractor
	logger     *slog.Logger
}

// NewImporter constructs the orchestration component.
func NewImporter(deps ImporterDeps) *Importer {
	return &Importer{
		repository: deps.Repository,
		extractor:  deps.Extractor,
		logger:     deps.Logger,
	}
}

// itemResult is the per-URL outcome of one import attempt. The cause is
// retained for logging even though the persisted row only records FAILED.
type itemResult struct {
	item domain.SavedItem
	err  error
}

// ImportOne creates a PROCESSING row, attempts extraction, and finishes
// the row at COMPLETED or FAILED. Extraction failure never propagates;
// callers inspect the returned status. Only validation and persistence
// errors cross this boundary.
func (im *Importer) ImportOne(ctx context.Context, rawURL, userID string) (domain.SavedItem, error) {
	if err := ValidateURL(rawURL); err != nil {
		return domain.SavedItem{}, err
	}

	item, err := im.repository.Create(ctx, rawURL, userID, domain.StatusProcessing)
	if err != nil {
		return domain.SavedItem{}, fmt.Errorf("create item: %w", err)
	}

	result := im.ingest(ctx, item)
	if result.err != nil {
		im.warn("extraction failed", "item_id", item.ID, "url", rawURL, "error", result.err)
	}
	return result.item, nil
}

// Discover proposes candidate URLs under a seed URL without persisting
// anything; the caller selects from them before invoking ImportMany.
func (im *Importer) Discover(ctx context.Context, rawURL, filter string) ([]domain.Link, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	filter = strings.TrimSpace(filter)
	if len(filter) > maxFilterLength {
		return nil, &domain.ValidationError{Field: "search", Reason: "must be at most 100 characters"}
	}

	links, err := im.extractor.DiscoverLinks(ctx, rawURL, DiscoverLimit, filter)
	if err != nil {
		return nil, fmt.Errorf("discover links: %w", err)
	}

	return links, nil
}

// SearchWeb runs a topic search for candidate URLs.
func (im *Importer) SearchWeb(ctx context.Context, query string) ([]domain.Link, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &domain.ValidationError{Field: "query", Reason: "must not be empty"}
	}

	links, err := im.extractor.SearchWeb(ctx, query, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search web: %w", err)
	}

	return links, nil
}

// ImportMany ingests the URLs strictly sequentially, one full
// create-extract-update cycle at a time, and emits a progress event per
// finished URL in input order. The channel is closed after the last event.
// Cancelling ctx abandons remaining URLs; rows already created stay as
// they are (no rollback).
func (im *Importer) ImportMany(ctx context.Context, urls []string, userID string) (<-chan domain.ImportProgress, error) {
	for _, rawURL := range urls {
		if err := ValidateURL(rawURL); err != nil {
			return nil, err
		}
	}

	events := make(chan domain.ImportProgress)

	go func() {
		defer close(events)

		total := len(urls)
		for i, rawURL := range urls {
			outcome := domain.OutcomeSuccess

			item, err := im.repository.Create(ctx, rawURL, userID, domain.StatusPending)
			if err != nil {
				im.warn("bulk import: create failed", "url", rawURL, "error", err)
				outcome = domain.OutcomeFailed
			} else {
				result := im.ingest(ctx, item)
				if result.err != nil {
					im.warn("bulk import: extraction failed", "item_id", item.ID, "url", rawURL, "error", result.err)
					outcome = domain.OutcomeFailed
				} else if result.item.Status != domain.StatusCompleted {
					outcome = domain.OutcomeFailed
				}
			}

			progress := domain.ImportProgress{
				Completed: i + 1,
				Total:     total,
				URL:       rawURL,
				Outcome:   outcome,
			}

			select {
			case events <- progress:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// GetItem loads one item owned by the caller.
func (im *Importer) GetItem(ctx context.Context, id, userID string) (domain.SavedItem, error) {
	item, err := im.repository.FindByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SavedItem{}, domain.ErrNotFound
		}
		return domain.SavedItem{}, fmt.Errorf("find item: %w", err)
	}
	return item, nil
}

// ListItems returns the caller's items, newest first.
func (im *Importer) ListItems(ctx context.Context, userID string) ([]domain.SavedItem, error) {
	items, err := im.repository.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// ingest runs the extract-then-update half of an import. The row always
// reaches a terminal status; the returned error only reports why a row
// ended FAILED.
func (im *Importer) ingest(ctx context.Context, item domain.SavedItem) itemResult {
	extraction, err := im.extractor.Extract(ctx, item.URL)
	if err != nil {
		return im.fail(ctx, item, fmt.Errorf("extract: %w", err))
	}

	update := domain.ItemUpdate{
		Status:      statusPtr(domain.StatusCompleted),
		PublishedAt: domain.ParsePublishedAt(extraction.PublishedAt),
	}
	if extraction.Title != "" {
		update.Title = &extraction.Title
	}
	if extraction.Markdown != "" {
		update.Content = &extraction.Markdown
	}
	if extraction.OGImage != "" {
		update.OGImage = &extraction.OGImage
	}
	if extraction.Author != "" {
		update.Author = &extraction.Author
	}

	updated, err := im.repository.Update(ctx, item.ID, item.UserID, update)
	if err != nil {
		return im.fail(ctx, item, fmt.Errorf("store extraction: %w", err))
	}

	return itemResult{item: updated}
}

// fail marks the row FAILED, leaving extracted fields null.
func (im *Importer) fail(ctx context.Context, item domain.SavedItem, cause error) itemResult {
	failed, err := im.repository.Update(ctx, item.ID, item.UserID, domain.ItemUpdate{
		Status: statusPtr(domain.StatusFailed),
	})
	if err != nil {
		im.warn("cannot mark item failed", "item_id", item.ID, "error", err)
		item.Status = domain.StatusFailed
		return itemResult{item: item, err: cause}
	}
	return itemResult{item: failed, err: cause}
}

func (im *Importer) warn(msg string, args ...interface{}) {
	if im.logger != nil {
		im.logger.Warn(msg, args...)
	}
}

// ValidateURL enforces the input contract for every import operation: a
// well-formed absolute http(s) URL of at most 2048 characters.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &domain.ValidationError{Field: "url", Reason: "must not be empty"}
	}
	if len(rawURL) > domain.MaxURLLength {
		return &domain.ValidationError{Field: "url", Reason: "must be at most 2048 characters"}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return &domain.ValidationError{Field: "url", Reason: "must be a valid http(s) URL"}
	}

	return nil
}

func statusPtr(status domain.ItemStatus) *domain.ItemStatus {
	return &status
}
