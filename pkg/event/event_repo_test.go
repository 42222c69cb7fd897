package event

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var db *pgxpool.Pool

func TestMain(m *testing.M) {
	var cleanup func()
	db, cleanup = test_utils.TestWithDB()
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, *RepositoryImpl) {
	ctx := context.Background()
	require.NoError(t, test_utils.TruncateTables(ctx, db, "events"))
	return ctx, NewRepository(db)
}

func TestRepositoryImpl_StoreEvents(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	start := time.Date(2025, time.October, 1, 18, 0, 0, 0, time.UTC)
	occurrences, err := Expand(baseEvent(start, 2*time.Hour), "FREQ=WEEKLY;COUNT=3", 0)
	require.NoError(t, err)

	// when
	stored, err := repo.StoreEvents(ctx, occurrences)

	// then
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, e := range stored {
		assert.NotEqual(t, uuid.Nil, e.Id)
		assert.False(t, e.CreatedAt.IsZero())
	}

	fetched, err := repo.GetEvent(ctx, stored[1].Id)
	require.NoError(t, err)
	assert.Equal(t, "Pumpkin Patch", fetched.Name)
	assert.True(t, stored[1].StartsAt.Equal(fetched.StartsAt))
	assert.Equal(t, *stored[1].RecurringEventId, *fetched.RecurringEventId)
	assert.Equal(t, "FREQ=WEEKLY;COUNT=3", *fetched.RecurrenceRule)
	assert.Nil(t, fetched.Description)
}

func TestRepositoryImpl_GetEvent_NotFound(t *testing.T) {
	ctx, repo := setupTestRepository(t)

	_, err := repo.GetEvent(ctx, uuid.New())

	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRepositoryImpl_GetSeries(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	start := time.Date(2025, time.October, 1, 18, 0, 0, 0, time.UTC)
	first, err := Expand(baseEvent(start, time.Hour), "FREQ=DAILY;COUNT=3", 0)
	require.NoError(t, err)
	second, err := Expand(baseEvent(start, time.Hour), "FREQ=DAILY;COUNT=2", 0)
	require.NoError(t, err)
	// stored out of order on purpose
	_, err = repo.StoreEvents(ctx, []Event{first[2], first[0], first[1]})
	require.NoError(t, err)
	_, err = repo.StoreEvents(ctx, second)
	require.NoError(t, err)

	// when
	series, err := repo.GetSeries(ctx, *first[0].RecurringEventId)

	// then
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.True(t, series[0].StartsAt.Before(series[1].StartsAt))
	assert.True(t, series[1].StartsAt.Before(series[2].StartsAt))
}

func TestRepositoryImpl_UpdateEvents(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	start := time.Date(2025, time.October, 1, 18, 0, 0, 0, time.UTC)
	stored, err := repo.StoreEvents(ctx, []Event{baseEvent(start, time.Hour)})
	require.NoError(t, err)

	changed := stored[0]
	changed.Name = "Harvest Festival"
	changed.Description = ptr("Hay rides all day")
	changed.IsFeatured = true

	// when
	updated, err := repo.UpdateEvents(ctx, []Event{changed})

	// then
	require.NoError(t, err)
	require.Len(t, updated, 1)
	fetched, err := repo.GetEvent(ctx, stored[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "Harvest Festival", fetched.Name)
	assert.Equal(t, "Hay rides all day", *fetched.Description)
	assert.True(t, fetched.IsFeatured)
	assert.False(t, fetched.UpdatedAt.Before(stored[0].UpdatedAt))
}

func TestRepositoryImpl_UpdateEvents_UnknownId(t *testing.T) {
	ctx, repo := setupTestRepository(t)
	ghost := baseEvent(time.Now(), time.Hour)
	ghost.Id = uuid.New()

	_, err := repo.UpdateEvents(ctx, []Event{ghost})

	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRepositoryImpl_WithTransaction_RollsBack(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	start := time.Date(2025, time.October, 1, 18, 0, 0, 0, time.UTC)
	ghost := baseEvent(start, time.Hour)
	ghost.Id = uuid.New()

	// when
	err := repo.WithTransaction(ctx, func(tx Repository) error {
		if _, err := tx.StoreEvents(ctx, []Event{baseEvent(start, time.Hour)}); err != nil {
			return err
		}
		_, err := tx.UpdateEvents(ctx, []Event{ghost})
		return err
	})

	// then
	assert.ErrorIs(t, err, ErrEventNotFound)
	events, err := repo.ListEvents(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRepositoryImpl_ListEvents(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	start := time.Date(2025, time.October, 1, 18, 0, 0, 0, time.UTC)
	occurrences, err := Expand(baseEvent(start, time.Hour), "FREQ=DAILY;COUNT=5", 0)
	require.NoError(t, err)
	_, err = repo.StoreEvents(ctx, occurrences)
	require.NoError(t, err)

	from := start.AddDate(0, 0, 1)
	to := start.AddDate(0, 0, 3).Add(time.Hour)
	limit, offset := 2, 1

	// when
	all, err := repo.ListEvents(ctx, ListFilter{})
	require.NoError(t, err)
	window, err := repo.ListEvents(ctx, ListFilter{StartsAt: &from, EndsAt: &to})
	require.NoError(t, err)
	page, err := repo.ListEvents(ctx, ListFilter{Limit: &limit, Offset: &offset})
	require.NoError(t, err)

	// then
	assert.Len(t, all, 5)
	// days 2 to 4
	assert.Len(t, window, 3)
	require.Len(t, page, 2)
	assert.True(t, page[0].StartsAt.Equal(start.AddDate(0, 0, 1)))
}

func TestRepositoryImpl_FindBySlugAndStart(t *testing.T) {
	ctx, repo := setupTestRepository(t)
	start := time.Date(2025, time.October, 4, 14, 0, 0, 0, time.UTC)
	stored, err := repo.StoreEvents(ctx, []Event{baseEvent(start, time.Hour)})
	require.NoError(t, err)

	found, err := repo.FindBySlugAndStart(ctx, "pumpkin-patch", start)
	require.NoError(t, err)
	assert.Equal(t, stored[0].Id, found.Id)

	_, err = repo.FindBySlugAndStart(ctx, "pumpkin-patch", start.Add(time.Hour))
	assert.ErrorIs(t, err, ErrEventNotFound)
}
