package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/creator-marketplace/internal/model"
)

// MessageRepo persists chat messages.
type MessageRepo struct{ DB *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{DB: db} }

// CreateMessage inserts a message and returns it. parentID is nil for
// plain sends and forwards, set for threaded replies.
func (r *MessageRepo) CreateMessage(ctx context.Context, roomID, senderID uint64, body string, parentID *uint64) (model.Message, error) {
	var parent sql.NullInt64
	if parentID != nil {
		parent = sql.NullInt64{Int64: int64(*parentID), Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO messages (room_id, sender_id, parent_id, message) VALUES (?,?,?,?)",
		roomID, senderID, parent, body)
	if err != nil {
		return model.Message{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Message{}, err
	}
	return r.MessageByID(ctx, uint64(id))
}

// MessageByID fetches one message.
func (r *MessageRepo) MessageByID(ctx context.Context, id uint64) (model.Message, error) {
	return scanMessage(r.DB.QueryRowContext(ctx,
		"SELECT id,room_id,sender_id,parent_id,message,created_at FROM messages WHERE id=? LIMIT 1", id))
}

// MessagesByRoom returns a room's log newest first; id breaks ties
// between equal timestamps.
func (r *MessageRepo) MessagesByRoom(ctx context.Context, roomID uint64) ([]model.Message, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,room_id,sender_id,parent_id,message,created_at FROM messages WHERE room_id=? ORDER BY created_at DESC, id DESC",
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []model.Message
	for rows.Next() {
		var (
			m      model.Message
			parent sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &parent, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		if parent.Valid {
			p := uint64(parent.Int64)
			m.ParentID = &p
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// DeleteMessage removes a message.
func (r *MessageRepo) DeleteMessage(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM messages WHERE id=?", id)
	return err
}

func scanMessage(row *sql.Row) (model.Message, error) {
	var (
		m      model.Message
		parent sql.NullInt64
	)
	err := row.Scan(&m.ID, &m.RoomID, &m.SenderID, &parent, &m.Body, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Message{}, ErrNotFound
	}
	if err != nil {
		return model.Message{}, err
	}
	if parent.Valid {
		p := uint64(parent.Int64)
		m.ParentID = &p
	}
	return m, nil
}
