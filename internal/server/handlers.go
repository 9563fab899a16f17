package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"PageVault/internal/domain"
	"PageVault/internal/usecase"
)

// Handlers exposes the pipeline operations over HTTP.
type Handlers struct {
	importer  *usecase.Importer
	summaries *usecase.Summaries
	logger    *slog.Logger
}

// NewHandlers wires the use cases into the HTTP layer.
func NewHandlers(importer *usecase.Importer, summaries *usecase.Summaries, logger *slog.Logger) *Handlers {
	return &Handlers{
		importer:  importer,
		summaries: summaries,
		logger:    logger,
	}
}

type importRequest struct {
	URL string `json:"url"`
}

type mapRequest struct {
	URL    string `json:"url"`
	Search string `json:"search"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type bulkImportRequest struct {
	URLs []string `json:"urls"`
}

type summaryRequest struct {
	Summary string `json:"summary"`
}

type streamSummaryRequest struct {
	ItemID string `json:"item_id"`
	Prompt string `json:"prompt"`
}

// ImportOne handles POST /v1/items. The response status is always 201
// when a row was created; ingestion failure shows up as status=FAILED on
// the returned item, never as an HTTP error.
func (h *Handlers) ImportOne(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req importRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	item, err := h.importer.ImportOne(c.Request().Context(), req.URL, identity.UserID)
	if err != nil {
		return h.mapError(err)
	}

	return c.JSON(http.StatusCreated, itemResponse(item))
}

// ListItems handles GET /v1/items.
func (h *Handlers) ListItems(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	items, err := h.importer.ListItems(c.Request().Context(), identity.UserID)
	if err != nil {
		return h.mapError(err)
	}

	responses := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		responses = append(responses, itemResponse(item))
	}

	return c.JSON(http.StatusOK, responses)
}

// GetItem handles GET /v1/items/:id.
func (h *Handlers) GetItem(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	item, err := h.importer.GetItem(c.Request().Context(), c.Param("id"), identity.UserID)
	if err != nil {
		return h.mapError(err)
	}

	return c.JSON(http.StatusOK, itemResponse(item))
}

// DiscoverLinks handles POST /v1/import/map.
func (h *Handlers) DiscoverLinks(c echo.Context) error {
	if _, ok := identityFrom(c); !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req mapRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	links, err := h.importer.Discover(c.Request().Context(), req.URL, req.Search)
	if err != nil {
		return h.mapError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"links": links})
}

// SearchWeb handles POST /v1/import/search.
func (h *Handlers) SearchWeb(c echo.Context) error {
	if _, ok := identityFrom(c); !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	links, err := h.importer.SearchWeb(c.Request().Context(), req.Query)
	if err != nil {
		return h.mapError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"links": links})
}

// BulkImport handles POST /v1/import/bulk. Progress events are streamed
// as SSE records, one per finished URL, flushed immediately so the caller
// observes incremental progress instead of waiting for the whole batch.
func (h *Handlers) BulkImport(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req bulkImportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if len(req.URLs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "urls must not be empty")
	}

	events, err := h.importer.ImportMany(c.Request().Context(), req.URLs, identity.UserID)
	if err != nil {
		return h.mapError(err)
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, canFlush := c.Response().Writer.(http.Flusher)

	for event := range events {
		payload, marshalErr := json.Marshal(event)
		if marshalErr != nil {
			h.logger.Error("marshal progress event", "error", marshalErr)
			continue
		}
		if _, writeErr := c.Response().Write([]byte("data: " + string(payload) + "\n\n")); writeErr != nil {
			// Client gone; the producer stops via request context.
			return nil
		}
		if canFlush {
			flusher.Flush()
		}
	}

	return nil
}

// StreamSummary handles POST /v1/ai/summary. The summary is streamed to
// the caller as plain text chunks; persisting the finished text is the
// caller's follow-up via SaveSummary.
func (h *Handlers) StreamSummary(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req streamSummaryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.ItemID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "item_id is required")
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)
	flusher, canFlush := c.Response().Writer.(http.Flusher)

	started := false
	err := h.summaries.StreamSummary(c.Request().Context(), req.ItemID, identity.UserID, req.Prompt, func(chunk string) error {
		if !started {
			c.Response().WriteHeader(http.StatusOK)
			started = true
		}
		if _, writeErr := c.Response().Write([]byte(chunk)); writeErr != nil {
			return writeErr
		}
		if canFlush {
			flusher.Flush()
		}
		return nil
	})
	if err != nil && !started {
		return h.mapError(err)
	}
	if err != nil {
		h.logger.Warn("summary stream aborted", "item_id", req.ItemID, "error", err)
	}

	return nil
}

// SaveSummary handles POST /v1/items/:id/summary — persists the finished
// summary together with tags derived from it.
func (h *Handlers) SaveSummary(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req summaryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	item, err := h.summaries.SummarizeAndTag(c.Request().Context(), c.Param("id"), identity.UserID, req.Summary)
	if err != nil {
		return h.mapError(err)
	}

	return c.JSON(http.StatusOK, itemResponse(item))
}

// Health handles GET /v1/health.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) mapError(err error) error {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string{
			"field":  validation.Field,
			"reason": validation.Reason,
		})
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	default:
		h.logger.Error("request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func itemResponse(item domain.SavedItem) map[string]interface{} {
	return map[string]interface{}{
		"id":          item.ID,
		"url":         item.URL,
		"title":       item.Title,
		"content":     item.Content,
		"ogImage":     item.OGImage,
		"author":      item.Author,
		"publishedAt": item.PublishedAt,
		"summary":     item.Summary,
		"tags":        item.Tags,
		"status":      item.Status,
		"createdAt":   item.CreatedAt,
		"updatedAt":   item.UpdatedAt,
	}
}
