package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PageVault/internal/domain"
)

func seedItem(t *testing.T, repo *fakeRepository, userID, content string) domain.SavedItem {
	t.Helper()

	item, err := repo.Create(context.Background(), "https://example.com/a", userID, domain.StatusProcessing)
	require.NoError(t, err)

	status := domain.StatusCompleted
	item, err = repo.Update(context.Background(), item.ID, userID, domain.ItemUpdate{
		Content: &content,
		Status:  &status,
	})
	require.NoError(t, err)
	return item
}

func TestSummarizeAndTag(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	summarizer := &fakeSummarizer{tags: []string{"tech", "ai"}}
	summaries := NewSummaries(SummariesDeps{Repository: repo, Summarizer: summarizer})

	item := seedItem(t, repo, "user-1", "the content")

	updated, err := summaries.SummarizeAndTag(context.Background(), item.ID, "user-1", "a fine summary")
	require.NoError(t, err)

	require.NotNil(t, updated.Summary)
	assert.Equal(t, "a fine summary", *updated.Summary)
	assert.Equal(t, []string{"tech", "ai"}, updated.Tags)
	assert.Equal(t, 1, summarizer.extractTagsCalls)
}

func TestSummarizeAndTagNotOwned(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	summarizer := &fakeSummarizer{tags: []string{"tech"}}
	summaries := NewSummaries(SummariesDeps{Repository: repo, Summarizer: summarizer})

	item := seedItem(t, repo, "user-a", "the content")

	_, err := summaries.SummarizeAndTag(context.Background(), item.ID, "user-b", "a summary")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// No write and no model call happened for the non-owning caller.
	assert.Equal(t, 0, summarizer.extractTagsCalls)
	assert.Nil(t, repo.get(item.ID).Summary)
}

func TestSummarizeAndTagEmptySummary(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	summaries := NewSummaries(SummariesDeps{Repository: repo, Summarizer: &fakeSummarizer{}})

	_, err := summaries.SummarizeAndTag(context.Background(), "item-1", "user-1", "   ")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestStreamSummary(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	summarizer := &fakeSummarizer{chunks: []string{"part one, ", "part two."}}
	summaries := NewSummaries(SummariesDeps{Repository: repo, Summarizer: summarizer})

	item := seedItem(t, repo, "user-1", "the content")

	var buf strings.Builder
	err := summaries.StreamSummary(context.Background(), item.ID, "user-1", "", func(chunk string) error {
		buf.WriteString(chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "part one, part two.", buf.String())
}

func TestStreamSummaryNotOwned(t *testing.T) {
	t.Parallel()

	repo := newFakeRepository()
	summaries := NewSummaries(SummariesDeps{Repository: repo, Summarizer: &fakeSummarizer{}})

	item := seedItem(t, repo, "user-a", "the content")

	err := summaries.StreamSummary(context.Background(), item.ID, "user-b", "", func(string) error {
		t.Fatal("no chunk should be emitted for a non-owning caller")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
