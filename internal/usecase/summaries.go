package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"PageVault/internal/domain"
	"PageVault/internal/ports"
)

// SummariesDeps wires the adapters used by summary generation.
type SummariesDeps struct {
	Repository ports.ItemRepository
	Summarizer ports.Summarizer
	Logger     *slog.Logger
}

// Summaries implements the two summary operations: streaming a summary to
// the caller, and persisting a finished summary together with derived tags.
// They are intentionally independent; the caller streams first and hands
// the final text back afterwards.
type Summaries struct {
	repository ports.ItemRepository
	summarizer ports.Summarizer
	logger     *slog.Logger
}

// NewSummaries constructs the summary use case.
func NewSummaries(deps SummariesDeps) *Summaries {
	return &Summaries{
		repository: deps.Repository,
		summarizer: deps.Summarizer,
		logger:     deps.Logger,
	}
}

// StreamSummary checks ownership, then streams summary chunks through
// emit. Nothing is persisted; content defaults to the item's extracted
// body when the caller does not supply its own prompt text.
func (s *Summaries) StreamSummary(ctx context.Context, id, userID, content string, emit func(chunk string) error) error {
	item, err := s.repository.FindByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("find item: %w", err)
	}

	if strings.TrimSpace(content) == "" {
		if item.Content == nil {
			return &domain.ValidationError{Field: "prompt", Reason: "item has no content to summarize"}
		}
		content = *item.Content
	}

	return s.summarizer.Summarize(ctx, content, emit)
}

// SummarizeAndTag persists the caller-provided summary and the tags
// derived from it in a single update. NotFound when the item is absent or
// not owned; in that case nothing is written.
func (s *Summaries) SummarizeAndTag(ctx context.Context, id, userID, summary string) (domain.SavedItem, error) {
	if strings.TrimSpace(summary) == "" {
		return domain.SavedItem{}, &domain.ValidationError{Field: "summary", Reason: "must not be empty"}
	}

	if _, err := s.repository.FindByID(ctx, id, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SavedItem{}, domain.ErrNotFound
		}
		return domain.SavedItem{}, fmt.Errorf("find item: %w", err)
	}

	tags, err := s.summarizer.ExtractTags(ctx, summary)
	if err != nil {
		return domain.SavedItem{}, fmt.Errorf("extract tags: %w", err)
	}

	item, err := s.repository.Update(ctx, id, userID, domain.ItemUpdate{
		Summary: &summary,
		Tags:    tags,
		SetTags: true,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.SavedItem{}, domain.ErrNotFound
		}
		return domain.SavedItem{}, fmt.Errorf("store summary: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("summary stored", "item_id", id, "tags", len(tags))
	}

	return item, nil
}
