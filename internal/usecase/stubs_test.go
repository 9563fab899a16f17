package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PageVault/internal/domain"
)

// fakeRepository is an in-memory, user-scoped ItemRepository.
type fakeRepository struct {
	mu      sync.Mutex
	items   map[string]domain.SavedItem
	seq     int
	created []string

	createErr error
	updateErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{items: map[string]domain.SavedItem{}}
}

func (f *fakeRepository) Create(_ context.Context, url, userID string, status domain.ItemStatus) (domain.SavedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.SavedItem{}, f.createErr
	}

	f.seq++
	now := time.Now()
	item := domain.SavedItem{
		ID:        fmt.Sprintf("item-%d", f.seq),
		UserID:    userID,
		URL:       url,
		Tags:      []string{},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.items[item.ID] = item
	f.created = append(f.created, item.ID)
	return item, nil
}

func (f *fakeRepository) Update(_ context.Context, id, userID string, update domain.ItemUpdate) (domain.SavedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateErr != nil {
		return domain.SavedItem{}, f.updateErr
	}

	item, ok := f.items[id]
	if !ok || item.UserID != userID {
		return domain.SavedItem{}, domain.ErrNotFound
	}

	if update.Title != nil {
		item.Title = update.Title
	}
	if update.Content != nil {
		item.Content = update.Content
	}
	if update.OGImage != nil {
		item.OGImage = update.OGImage
	}
	if update.Author != nil {
		item.Author = update.Author
	}
	if update.PublishedAt != nil {
		item.PublishedAt = update.PublishedAt
	}
	if update.Summary != nil {
		item.Summary = update.Summary
	}
	if update.SetTags {
		item.Tags = update.Tags
	}
	if update.Status != nil {
		item.Status = *update.Status
	}
	item.UpdatedAt = time.Now()

	f.items[id] = item
	return item, nil
}

func (f *fakeRepository) FindByID(_ context.Context, id, userID string) (domain.SavedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[id]
	if !ok || item.UserID != userID {
		return domain.SavedItem{}, domain.ErrNotFound
	}
	return item, nil
}

func (f *fakeRepository) FindAllByUser(_ context.Context, userID string) ([]domain.SavedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := []domain.SavedItem{}
	for i := len(f.created) - 1; i >= 0; i-- {
		item := f.items[f.created[i]]
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeRepository) FailStale(_ context.Context, olderThan time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var swept int64
	for id, item := range f.items {
		if item.Status.Terminal() || !item.CreatedAt.Before(olderThan) {
			continue
		}
		item.Status = domain.StatusFailed
		f.items[id] = item
		swept++
	}
	return swept, nil
}

func (f *fakeRepository) get(id string) domain.SavedItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id]
}

func (f *fakeRepository) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// fakeExtractor scripts extraction outcomes per URL.
type fakeExtractor struct {
	mu          sync.Mutex
	results     map[string]domain.Extraction
	failures    map[string]error
	links       []domain.Link
	searchLinks []domain.Link

	lastLimit  int
	lastFilter string
	calls      []string
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		results:  map[string]domain.Extraction{},
		failures: map[string]error{},
	}
}

func (f *fakeExtractor) Extract(_ context.Context, url string) (domain.Extraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, url)
	if err, ok := f.failures[url]; ok {
		return domain.Extraction{}, err
	}
	return f.results[url], nil
}

func (f *fakeExtractor) DiscoverLinks(_ context.Context, _ string, limit int, filter string) ([]domain.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastLimit = limit
	f.lastFilter = filter
	return f.links, nil
}

func (f *fakeExtractor) SearchWeb(_ context.Context, _ string, limit int) ([]domain.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastLimit = limit
	return f.searchLinks, nil
}

// fakeSummarizer scripts summary streams and tag extraction.
type fakeSummarizer struct {
	chunks  []string
	tags    []string
	tagsErr error

	extractTagsCalls int
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ string, emit func(chunk string) error) error {
	for _, chunk := range f.chunks {
		if err := emit(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSummarizer) ExtractTags(_ context.Context, _ string) ([]string, error) {
	f.extractTagsCalls++
	if f.tagsErr != nil {
		return nil, f.tagsErr
	}
	return f.tags, nil
}
