package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"heal-engine/internal/domain"
)

// SessionRepository stores conversation sessions. Missing rows surface as
// pgx.ErrNoRows regardless of the backing implementation.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, id string) (domain.Session, error)
	ListByOwner(ctx context.Context, ownerKey string, limit, offset int) ([]domain.Session, error)
	Touch(ctx context.Context, id string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

func (r *PgSessionRepository) Create(ctx context.Context, session domain.Session) error {
	const query = `
		INSERT INTO chat_sessions (id, owner_key, channel, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.OwnerKey,
		session.Channel,
		session.Title,
		session.CreatedAt,
		session.UpdatedAt,
	)
	return err
}

func (r *PgSessionRepository) GetByID(ctx context.Context, id string) (domain.Session, error) {
	const query = `
		SELECT id, owner_key, channel, title, created_at, updated_at
		FROM chat_sessions
		WHERE id = $1
	`
	var session domain.Session
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.OwnerKey,
		&session.Channel,
		&session.Title,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	return session, err
}

func (r *PgSessionRepository) ListByOwner(ctx context.Context, ownerKey string, limit, offset int) ([]domain.Session, error) {
	const query = `
		SELECT id, owner_key, channel, title, created_at, updated_at
		FROM chat_sessions
		WHERE owner_key = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, ownerKey, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.OwnerKey, &s.Channel, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *PgSessionRepository) Touch(ctx context.Context, id string, updatedAt time.Time) error {
	const query = `UPDATE chat_sessions SET updated_at = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, updatedAt)
	return err
}

func (r *PgSessionRepository) Delete(ctx context.Context, id string) error {
	// Messages go first; there is no ON DELETE CASCADE in the migration. One
	// transaction so a failure never strands a session without its messages.
	const deleteMessages = `DELETE FROM chat_messages WHERE session_id = $1`
	const deleteSession = `DELETE FROM chat_sessions WHERE id = $1`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteMessages, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, deleteSession, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
