package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	// StoreEvents inserts all events in one round-trip and returns them with ids and timestamps.
	StoreEvents(ctx context.Context, events []Event) ([]Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (Event, error)
	// GetSeries returns every occurrence sharing seriesId, ordered by start time.
	GetSeries(ctx context.Context, seriesId uuid.UUID) ([]Event, error)
	UpdateEvents(ctx context.Context, events []Event) ([]Event, error)
	ListEvents(ctx context.Context, filter ListFilter) ([]Event, error)
	FindBySlugAndStart(ctx context.Context, slug string, startsAt time.Time) (Event, error)
}

const eventColumns = `id, name, slug, starts_at, ends_at, description, is_featured, is_has_ends_at,
	is_all_day, is_active, haunted_by, recurring_event_id, recurrence_rule, created_at, updated_at`

type queryer interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type RepositoryImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// getQueryer returns the transaction when one is open, the pool otherwise.
func (r *RepositoryImpl) getQueryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// no-op once committed
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(&RepositoryImpl{db: r.db, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *RepositoryImpl) StoreEvents(ctx context.Context, events []Event) ([]Event, error) {
	if len(events) == 0 {
		return []Event{}, nil
	}

	query := `INSERT INTO events (
                    id,
                    name,
                    slug,
                    starts_at,
                    ends_at,
                    description,
                    is_featured,
                    is_has_ends_at,
                    is_all_day,
                    is_active,
                    haunted_by,
                    recurring_event_id,
                    recurrence_rule
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
				RETURNING created_at, updated_at`

	batch := &pgx.Batch{}
	stored := make([]Event, len(events))
	for i, e := range events {
		if e.Id == uuid.Nil {
			e.Id = uuid.New()
		}
		stored[i] = e
		batch.Queue(query,
			e.Id,
			e.Name,
			e.Slug,
			e.StartsAt,
			e.EndsAt,
			e.Description,
			e.IsFeatured,
			e.IsHasEndsAt,
			e.IsAllDay,
			e.IsActive,
			e.HauntedBy,
			e.RecurringEventId,
			e.RecurrenceRule,
		)
	}

	results := r.getQueryer().SendBatch(ctx, batch)
	defer results.Close()
	for i := range stored {
		if err := results.QueryRow().Scan(&stored[i].CreatedAt, &stored[i].UpdatedAt); err != nil {
			err := fmt.Errorf("could not insert event %d of %d: %w", i+1, len(stored), err)
			log.Error(err)
			return nil, err
		}
	}
	return stored, nil
}

func (r *RepositoryImpl) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.getQueryer().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, ErrEventNotFound
		}
		err := fmt.Errorf("could not get event %s: %w", id, err)
		log.Error(err)
		return Event{}, err
	}
	return e, nil
}

func (r *RepositoryImpl) GetSeries(ctx context.Context, seriesId uuid.UUID) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE recurring_event_id = $1 ORDER BY starts_at, created_at`
	return r.queryEvents(ctx, query, seriesId)
}

func (r *RepositoryImpl) UpdateEvents(ctx context.Context, events []Event) ([]Event, error) {
	if len(events) == 0 {
		return []Event{}, nil
	}

	query := `UPDATE events SET
                  name = $1,
                  slug = $2,
                  starts_at = $3,
                  ends_at = $4,
                  description = $5,
                  is_featured = $6,
                  is_has_ends_at = $7,
                  is_all_day = $8,
                  is_active = $9,
                  haunted_by = $10,
                  updated_at = now()
              WHERE id = $11
              RETURNING created_at, updated_at`

	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(query,
			e.Name,
			e.Slug,
			e.StartsAt,
			e.EndsAt,
			e.Description,
			e.IsFeatured,
			e.IsHasEndsAt,
			e.IsAllDay,
			e.IsActive,
			e.HauntedBy,
			e.Id,
		)
	}

	updated := make([]Event, len(events))
	copy(updated, events)
	results := r.getQueryer().SendBatch(ctx, batch)
	defer results.Close()
	for i := range updated {
		err := results.QueryRow().Scan(&updated[i].CreatedAt, &updated[i].UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrEventNotFound, updated[i].Id)
			}
			err := fmt.Errorf("could not update event %s: %w", updated[i].Id, err)
			log.Error(err)
			return nil, err
		}
	}
	return updated, nil
}

func (r *RepositoryImpl) ListEvents(ctx context.Context, filter ListFilter) ([]Event, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.StartsAt != nil {
		args = append(args, *filter.StartsAt)
		conditions = append(conditions, fmt.Sprintf("starts_at >= $%d", len(args)))
	}
	if filter.EndsAt != nil {
		args = append(args, *filter.EndsAt)
		conditions = append(conditions, fmt.Sprintf("ends_at <= $%d", len(args)))
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + eventColumns + ` FROM events`)
	if len(conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	query.WriteString(" ORDER BY starts_at")
	if filter.Limit != nil {
		args = append(args, *filter.Limit)
		query.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset != nil {
		args = append(args, *filter.Offset)
		query.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	return r.queryEvents(ctx, query.String(), args...)
}

func (r *RepositoryImpl) FindBySlugAndStart(ctx context.Context, slug string, startsAt time.Time) (Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE slug = $1 AND starts_at = $2 ORDER BY created_at LIMIT 1`
	e, err := scanEvent(r.getQueryer().QueryRow(ctx, query, slug, startsAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, ErrEventNotFound
		}
		err := fmt.Errorf("could not find event %s at %s: %w", slug, startsAt, err)
		log.Error(err)
		return Event{}, err
	}
	return e, nil
}

func (r *RepositoryImpl) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := r.getQueryer().Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 16)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}
	return events, nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(
		&e.Id,
		&e.Name,
		&e.Slug,
		&e.StartsAt,
		&e.EndsAt,
		&e.Description,
		&e.IsFeatured,
		&e.IsHasEndsAt,
		&e.IsAllDay,
		&e.IsActive,
		&e.HauntedBy,
		&e.RecurringEventId,
		&e.RecurrenceRule,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}
