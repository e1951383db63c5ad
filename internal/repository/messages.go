// Package repository provides the local message archive.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hoodlink/internal/models"
	"hoodlink/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const archiveTable = "archived_messages"

// DefaultListLimit caps ListByRoom when no limit is given.
const DefaultListLimit = 200

// ArchivedMessage is one archived chat message. Payload holds the full
// message as JSON so fields added later survive a round trip.
type ArchivedMessage struct {
	ID              uint      `gorm:"primaryKey"`
	RoomID          string    `gorm:"size:191;not null;uniqueIndex:idx_archive_room_message,priority:1;index:idx_archive_room_created,priority:1"`
	MessageID       string    `gorm:"size:64;not null;uniqueIndex:idx_archive_room_message,priority:2"`
	ClientMessageID string    `gorm:"size:64;index"`
	SenderID        string    `gorm:"size:64"`
	Text            string    `gorm:"type:text"`
	Payload         string    `gorm:"type:text;not null"`
	CreatedAt       time.Time `gorm:"index:idx_archive_room_created,priority:2"`
	UpdatedAt       time.Time
}

// Migrate creates or updates the archive schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&ArchivedMessage{})
}

// MessageRepository defines the interface for archive operations
type MessageRepository interface {
	Upsert(ctx context.Context, msg models.Message) error
	Delete(ctx context.Context, roomID string, messageID models.ID) error
	DeleteRoom(ctx context.Context, roomID string) error
	ListByRoom(ctx context.Context, roomID string, limit int) ([]models.Message, error)
}

// messageRepository implements MessageRepository
type messageRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewMessageRepository creates a new message archive repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db, log: observability.NewRepoLogger(archiveTable)}
}

func toArchived(msg models.Message) (*ArchivedMessage, error) {
	msg.Pending = false
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode archived message: %w", err)
	}
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &ArchivedMessage{
		RoomID:          msg.RoomID,
		MessageID:       msg.MessageID.String(),
		ClientMessageID: msg.ClientMessageID,
		SenderID:        msg.SenderID.String(),
		Text:            msg.Text,
		Payload:         string(payload),
		CreatedAt:       createdAt,
	}, nil
}

// Upsert stores msg, replacing any earlier copy with the same room and message id.
// Messages without a server id are still pending and are not archived.
func (r *messageRepository) Upsert(ctx context.Context, msg models.Message) error {
	if msg.MessageID.Empty() || msg.RoomID == "" {
		return models.NewValidationError("archived message requires room_id and message_id")
	}
	row, err := toArchived(msg)
	if err != nil {
		return err
	}
	defer observability.TrackQuery("upsert", archiveTable)()

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"client_message_id", "text", "payload", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		r.log.LogError(ctx, err, "upsert")
		return models.NewInternalError(err)
	}
	r.log.LogWrite(ctx, "upsert", map[string]interface{}{"room_id": msg.RoomID, "message_id": msg.MessageID.String()})
	return nil
}

func (r *messageRepository) Delete(ctx context.Context, roomID string, messageID models.ID) error {
	defer observability.TrackQuery("delete", archiveTable)()

	err := r.db.WithContext(ctx).
		Where("room_id = ? AND message_id = ?", roomID, messageID.String()).
		Delete(&ArchivedMessage{}).Error
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	r.log.LogWrite(ctx, "delete", map[string]interface{}{"room_id": roomID, "message_id": messageID.String()})
	return nil
}

// DeleteRoom drops every archived message of a room, used when a chat is deleted.
func (r *messageRepository) DeleteRoom(ctx context.Context, roomID string) error {
	defer observability.TrackQuery("delete_room", archiveTable)()

	result := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&ArchivedMessage{})
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "delete_room")
		return models.NewInternalError(result.Error)
	}
	r.log.LogWrite(ctx, "delete_room", map[string]interface{}{"room_id": roomID, "rows": result.RowsAffected})
	return nil
}

// ListByRoom returns the newest limit messages of a room, oldest first.
func (r *messageRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	defer observability.TrackQuery("list_by_room", archiveTable)()

	var rows []ArchivedMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_by_room")
		return nil, models.NewInternalError(err)
	}

	out := make([]models.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		var msg models.Message
		if err := json.Unmarshal([]byte(rows[i].Payload), &msg); err != nil {
			r.log.LogError(ctx, err, "list_by_room")
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}
