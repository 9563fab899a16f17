package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"PageVault/internal/domain"
	"PageVault/internal/ports"
)

var itemColumns = []string{
	"id", "user_id", "url", "title", "content", "og_image", "author",
	"published_at", "summary", "tags", "status", "created_at", "updated_at",
}

// PostgresRepository persists saved items into Postgres.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ItemRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Create inserts a placeholder row before any extraction attempt so every
// import is durably recorded.
func (r *PostgresRepository) Create(ctx context.Context, url, userID string, status domain.ItemStatus) (domain.SavedItem, error) {
	query, args, err := r.builder.
		Insert("saved_items").
		Columns("id", "user_id", "url", "tags", "status").
		Values(uuid.NewString(), userID, url, pq.Array([]string{}), string(status)).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return domain.SavedItem{}, fmt.Errorf("build insert: %w", err)
	}

	item, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.SavedItem{}, fmt.Errorf("insert item: %w", err)
	}

	return item, nil
}

// Update applies a partial mutation scoped by id and owning user.
func (r *PostgresRepository) Update(ctx context.Context, id, userID string, update domain.ItemUpdate) (domain.SavedItem, error) {
	set := map[string]interface{}{
		"updated_at": sq.Expr("NOW()"),
	}

	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Content != nil {
		set["content"] = *update.Content
	}
	if update.OGImage != nil {
		set["og_image"] = *update.OGImage
	}
	if update.Author != nil {
		set["author"] = *update.Author
	}
	if update.PublishedAt != nil {
		set["published_at"] = *update.PublishedAt
	}
	if update.Summary != nil {
		set["summary"] = *update.Summary
	}
	if update.SetTags {
		set["tags"] = pq.Array(update.Tags)
	}
	if update.Status != nil {
		set["status"] = string(*update.Status)
	}

	query, args, err := r.builder.
		Update("saved_items").
		SetMap(set).
		Where(sq.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING " + columnList()).
		ToSql()
	if err != nil {
		return domain.SavedItem{}, fmt.Errorf("build update: %w", err)
	}

	item, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SavedItem{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.SavedItem{}, fmt.Errorf("update item: %w", err)
	}

	return item, nil
}

// FindByID loads a single item owned by the caller.
func (r *PostgresRepository) FindByID(ctx context.Context, id, userID string) (domain.SavedItem, error) {
	query, args, err := r.builder.
		Select(itemColumns...).
		From("saved_items").
		Where(sq.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return domain.SavedItem{}, fmt.Errorf("build select: %w", err)
	}

	item, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SavedItem{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.SavedItem{}, fmt.Errorf("select item: %w", err)
	}

	return item, nil
}

// FindAllByUser returns the caller's items, newest first.
func (r *PostgresRepository) FindAllByUser(ctx context.Context, userID string) ([]domain.SavedItem, error) {
	query, args, err := r.builder.
		Select(itemColumns...).
		From("saved_items").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	defer rows.Close()

	items := []domain.SavedItem{}
	for rows.Next() {
		item, scanErr := scanItem(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan item: %w", scanErr)
		}
		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	return items, nil
}

// FailStale flips rows stuck before a completing update to FAILED. Rows
// end up here when the process dies between create and update.
func (r *PostgresRepository) FailStale(ctx context.Context, olderThan time.Time) (int64, error) {
	query, args, err := r.builder.
		Update("saved_items").
		Set("status", string(domain.StatusFailed)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"status": []string{string(domain.StatusPending), string(domain.StatusProcessing)}}).
		Where(sq.Lt{"created_at": olderThan}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sweep: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep stale items: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return affected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (domain.SavedItem, error) {
	var (
		item        domain.SavedItem
		title       sql.NullString
		content     sql.NullString
		ogImage     sql.NullString
		author      sql.NullString
		publishedAt sql.NullTime
		summary     sql.NullString
		tags        pq.StringArray
		status      string
	)

	err := row.Scan(
		&item.ID, &item.UserID, &item.URL, &title, &content, &ogImage,
		&author, &publishedAt, &summary, &tags, &status,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return domain.SavedItem{}, err
	}

	item.Title = nullableString(title)
	item.Content = nullableString(content)
	item.OGImage = nullableString(ogImage)
	item.Author = nullableString(author)
	item.Summary = nullableString(summary)
	if publishedAt.Valid {
		t := publishedAt.Time
		item.PublishedAt = &t
	}
	item.Tags = []string(tags)
	item.Status = domain.ItemStatus(status)

	return item, nil
}

func nullableString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func columnList() string {
	list := itemColumns[0]
	for _, col := range itemColumns[1:] {
		list += ", " + col
	}
	return list
}
