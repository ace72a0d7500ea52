package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Le-Village-ECO/EcoDiscordPlugin/internal/domain"
)

func (s *Store) SaveLinkedUser(ctx context.Context, user *domain.LinkedUser) error {
	if user == nil {
		return fmt.Errorf("sqlite: linked user nil")
	}
	if strings.TrimSpace(user.DiscordID) == "" {
		return fmt.Errorf("sqlite: linked user without discord id")
	}

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const stmt = `
INSERT INTO linked_users (discord_id, eco_name, verified, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(discord_id) DO UPDATE SET
	eco_name=excluded.eco_name,
	verified=excluded.verified,
	updated_at=excluded.updated_at;
`

	_, err := s.db.ExecContext(ctx, stmt, user.DiscordID, user.EcoName, user.Verified, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sqlite: save linked user: %w", err)
	}
	return nil
}

// GetLinkedUser returns nil, nil when no link exists.
func (s *Store) GetLinkedUser(ctx context.Context, discordID string) (*domain.LinkedUser, error) {
	const query = `
SELECT discord_id, eco_name, verified, created_at, updated_at
FROM linked_users
WHERE discord_id = ?
LIMIT 1;
`

	user, err := scanLinkedUser(s.db.QueryRowContext(ctx, query, discordID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: get linked user: %w", err)
	}
	return user, nil
}

func (s *Store) ListLinkedUsers(ctx context.Context) ([]*domain.LinkedUser, error) {
	const query = `
SELECT discord_id, eco_name, verified, created_at, updated_at
FROM linked_users
ORDER BY created_at, discord_id;
`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list linked users: %w", err)
	}
	defer rows.Close()

	var out []*domain.LinkedUser
	for rows.Next() {
		user, err := scanLinkedUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan linked user: %w", err)
		}
		out = append(out, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list linked users rows: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteLinkedUser(ctx context.Context, discordID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM linked_users WHERE discord_id = ?`, discordID); err != nil {
		return fmt.Errorf("sqlite: delete linked user: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLinkedUser(row rowScanner) (*domain.LinkedUser, error) {
	var (
		user      domain.LinkedUser
		ecoName   sql.NullString
		verified  sql.NullBool
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)
	if err := row.Scan(&user.DiscordID, &ecoName, &verified, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	user.EcoName = ecoName.String
	user.Verified = verified.Bool
	user.CreatedAt = createdAt.Time
	user.UpdatedAt = updatedAt.Time
	return &user, nil
}

var _ domain.LinkedUserRepository = (*Store)(nil)
