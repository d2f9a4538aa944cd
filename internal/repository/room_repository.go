package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/creator-marketplace/internal/model"
)

// RoomRepo persists chat rooms and their participant sets.
type RoomRepo struct{ DB *sql.DB }

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{DB: db} }

// CreateRoom inserts a room with its participant set and returns it.
func (r *RoomRepo) CreateRoom(ctx context.Context, participantIDs []uint64) (model.Room, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Room{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "INSERT INTO rooms () VALUES ()")
	if err != nil {
		return model.Room{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Room{}, err
	}
	for _, uid := range participantIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO room_participants (room_id, user_id) VALUES (?,?)",
			id, uid); err != nil {
			return model.Room{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return model.Room{}, err
	}
	return r.RoomByID(ctx, uint64(id))
}

// RoomByID fetches a room together with its participant set.
func (r *RoomRepo) RoomByID(ctx context.Context, id uint64) (model.Room, error) {
	var room model.Room
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, created_at FROM rooms WHERE id=? LIMIT 1", id).
		Scan(&room.ID, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Room{}, ErrNotFound
	}
	if err != nil {
		return model.Room{}, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT user_id FROM room_participants WHERE room_id=? ORDER BY user_id", id)
	if err != nil {
		return model.Room{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var uid uint64
		if err := rows.Scan(&uid); err != nil {
			return model.Room{}, err
		}
		room.ParticipantIDs = append(room.ParticipantIDs, uid)
	}
	return room, rows.Err()
}

// RoomsByParticipant lists every room the user belongs to.
func (r *RoomRepo) RoomsByParticipant(ctx context.Context, userID uint64) ([]model.Room, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT room_id FROM room_participants WHERE user_id=? ORDER BY room_id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rooms := make([]model.Room, 0, len(ids))
	for _, id := range ids {
		room, err := r.RoomByID(ctx, id)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}
