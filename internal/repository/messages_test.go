package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"hoodlink/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func message(room, id, text string, at time.Time) models.Message {
	return models.Message{
		MessageID: models.ID(id),
		RoomID:    room,
		SenderID:  "5",
		Text:      text,
		CreatedAt: at,
	}
}

func TestMessageRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, message("5_9", "1", "hi", base)))
	require.NoError(t, repo.Upsert(ctx, message("5_9", "2", "there", base.Add(time.Minute))))
	require.NoError(t, repo.Upsert(ctx, message("5_9", "3", "again", base.Add(2*time.Minute))))
	require.NoError(t, repo.Upsert(ctx, message("5_10", "4", "other room", base)))

	t.Run("ListByRoom oldest first", func(t *testing.T) {
		msgs, err := repo.ListByRoom(ctx, "5_9", 0)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, models.ID("1"), msgs[0].MessageID)
		assert.Equal(t, models.ID("3"), msgs[2].MessageID)
	})

	t.Run("ListByRoom keeps the newest when limited", func(t *testing.T) {
		msgs, err := repo.ListByRoom(ctx, "5_9", 2)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, models.ID("2"), msgs[0].MessageID)
		assert.Equal(t, models.ID("3"), msgs[1].MessageID)
	})

	t.Run("Upsert replaces an edited message", func(t *testing.T) {
		edited := message("5_9", "2", "edited", base.Add(time.Minute))
		edited.Reactions = []models.Reaction{{UserID: "9", Emoji: "👍"}}
		require.NoError(t, repo.Upsert(ctx, edited))

		msgs, err := repo.ListByRoom(ctx, "5_9", 0)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "edited", msgs[1].Text)
		assert.Len(t, msgs[1].Reactions, 1)
	})

	t.Run("Delete removes only the matching message", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "5_9", "1"))
		msgs, err := repo.ListByRoom(ctx, "5_9", 0)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, models.ID("2"), msgs[0].MessageID)
	})

	t.Run("DeleteRoom", func(t *testing.T) {
		require.NoError(t, repo.DeleteRoom(ctx, "5_9"))
		msgs, err := repo.ListByRoom(ctx, "5_9", 0)
		require.NoError(t, err)
		assert.Empty(t, msgs)

		others, err := repo.ListByRoom(ctx, "5_10", 0)
		require.NoError(t, err)
		assert.Len(t, others, 1)
	})
}

func TestMessageRepository_UpsertRejectsPending(t *testing.T) {
	repo := NewMessageRepository(setupTestDB(t))
	err := repo.Upsert(context.Background(), models.Message{RoomID: "5_9", ClientMessageID: "abc", Pending: true})

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestMessageRepository_Postgres(t *testing.T) {
	ctx := context.Background()

	t.Run("Upsert", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewMessageRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "archived_messages"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		err := repo.Upsert(ctx, message("5_9", "10", "hi", time.Now()))
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Delete", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewMessageRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "archived_messages" WHERE room_id = $1 AND message_id = $2`)).
			WithArgs("5_9", "10").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Delete(ctx, "5_9", "10"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ListByRoom", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewMessageRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "archived_messages" WHERE room_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`)).
			WithArgs("5_9", 50).
			WillReturnRows(sqlmock.NewRows([]string{"id", "room_id", "message_id", "payload"}).
				AddRow(2, "5_9", "11", `{"message_id":11,"room_id":"5_9","sender_id":9,"text":"second","created_at":"2026-03-01T12:01:00Z"}`).
				AddRow(1, "5_9", "10", `{"message_id":10,"room_id":"5_9","sender_id":5,"text":"first","created_at":"2026-03-01T12:00:00Z"}`))

		msgs, err := repo.ListByRoom(ctx, "5_9", 50)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "first", msgs[0].Text)
		assert.Equal(t, models.ID("9"), msgs[1].SenderID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewMessageRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "archived_messages"`)).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.ListByRoom(ctx, "5_9", 10)
		var appErr *models.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "INTERNAL_ERROR", appErr.Code)
	})
}
