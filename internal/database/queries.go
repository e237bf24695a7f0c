package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/verichat/go-verichat/internal/types"
)

const insertMessageQuery = "INSERT INTO messages (room_id, sender_role, content, is_answer, question_index, created_at) " +
	"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, room_id, sender_role, content, is_answer, question_index, created_at"

func (db *PgVerichatRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Room{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO rooms (external_id, candidate_ref, created_at, expires_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, external_id, candidate_ref, created_at, expires_at, is_closed",
		params.ExternalId,
		params.CandidateRef,
		time.Now().UTC(),
		params.ExpiresAt.UTC(),
	)

	var room Room
	err = res.Scan(
		&room.Id,
		&room.ExternalId,
		&room.CandidateRef,
		&room.CreatedAt,
		&room.ExpiresAt,
		&room.IsClosed,
	)
	if err != nil {
		return Room{}, err
	}

	// seed order defines each question's index
	for i, q := range types.VerificationQuestions {
		_, err = tx.Exec(
			"INSERT INTO messages (room_id, sender_role, content, is_answer, question_index, created_at) "+
				"VALUES ($1, $2, $3, false, $4, $5)",
			room.Id,
			types.RoleSystem,
			q,
			i,
			time.Now().UTC(),
		)
		if err != nil {
			return Room{}, fmt.Errorf("seed question %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return Room{}, err
	}

	return room, nil
}

func (db *PgVerichatRepository) GetRoomState(externalId string) (RoomState, error) {
	row := db.conn.QueryRow(
		"SELECT expires_at, is_closed FROM rooms WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var state RoomState
	err := row.Scan(&state.ExpiresAt, &state.IsClosed)
	if errors.Is(err, sql.ErrNoRows) {
		return RoomState{}, ErrNotFound
	}

	return state, err
}

func (db *PgVerichatRepository) CountAnswers(externalId string) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM messages m JOIN rooms r ON m.room_id = r.id "+
			"WHERE r.external_id = $1 AND m.is_answer = true",
		externalId,
	)

	var count int
	err := row.Scan(&count)

	return count, err
}

func (db *PgVerichatRepository) CloseRoom(externalId string) error {
	res, err := db.conn.Exec(
		"UPDATE rooms SET is_closed = true WHERE external_id = $1",
		externalId,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func (db *PgVerichatRepository) AppendMessage(params AppendMessageParams) (Message, error) {
	roomId, err := db.roomIdByExternalId(params.RoomId)
	if err != nil {
		return Message{}, err
	}

	res := db.conn.QueryRow(
		insertMessageQuery,
		roomId,
		params.SenderRole,
		params.Content,
		params.IsAnswer,
		params.QuestionIndex,
		time.Now().UTC(),
	)

	var msg Message
	err = res.Scan(
		&msg.Id,
		&msg.RoomId,
		&msg.SenderRole,
		&msg.Content,
		&msg.IsAnswer,
		&msg.QuestionIndex,
		&msg.CreatedAt,
	)

	return msg, err
}

func (db *PgVerichatRepository) ListMessages(externalId string) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT m.id, m.room_id, m.sender_role, m.content, m.is_answer, m.question_index, m.created_at "+
			"FROM messages m JOIN rooms r ON m.room_id = r.id "+
			"WHERE r.external_id = $1 ORDER BY m.created_at, m.id",
		externalId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.RoomId, &msg.SenderRole, &msg.Content, &msg.IsAnswer, &msg.QuestionIndex, &msg.CreatedAt); err != nil {
			return nil, err
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

func (db *PgVerichatRepository) roomIdByExternalId(externalId string) (int, error) {
	row := db.conn.QueryRow("SELECT id FROM rooms WHERE external_id = $1 LIMIT 1", externalId)

	var id int
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}

	return id, err
}
