package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("message not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, input Input) (Message, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Message{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	m := Message{
		ID:        id.String(),
		Name:      input.Name,
		Email:     input.Email,
		Subject:   input.Subject,
		Body:      input.Body,
		CreatedAt: time.Now().UTC(),
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (id, name, email, subject, body, read, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	`, m.ID, m.Name, m.Email, m.Subject, m.Body, m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	return m, nil
}

// List returns messages newest first.
func (r *Repository) List(ctx context.Context, unreadOnly bool) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, subject, body, read, created_at
		FROM messages
		WHERE ($1 = FALSE OR read = FALSE)
		ORDER BY created_at DESC
	`, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Body, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

func (r *Repository) SetRead(ctx context.Context, id string, read bool) (Message, error) {
	var m Message
	err := r.db.QueryRowContext(ctx, `
		UPDATE messages SET read = $2
		WHERE id = $1
		RETURNING id, name, email, subject, body, read, created_at
	`, id, read).Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Body, &m.Read, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, ErrNotFound
		}
		return Message{}, fmt.Errorf("update message: %w", err)
	}
	return m, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeRead deletes read messages created before cutoff, batchSize rows at a time,
// and returns the total removed.
func (r *Repository) PurgeRead(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	var total int64
	for {
		res, err := r.db.ExecContext(ctx, `
			DELETE FROM messages
			WHERE id IN (
				SELECT id FROM messages
				WHERE read = TRUE AND created_at < $1
				ORDER BY created_at ASC
				LIMIT $2
			)
		`, cutoff, batchSize)
		if err != nil {
			return total, fmt.Errorf("purge read messages: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("rows affected: %w", err)
		}
		total += affected
		if affected < int64(batchSize) {
			return total, nil
		}
	}
}
