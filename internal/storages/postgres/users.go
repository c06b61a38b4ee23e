package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gw-currency-rates/internal/storages"
)

// CreateUser создает нового пользователя
func (s *PostgresStorage) CreateUser(ctx context.Context, user *storages.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		now,
	).Scan(&user.ID)

	if pqCode(err) == uniqueViolation {
		return fmt.Errorf("user %s: %w", user.Username, storages.ErrAlreadyExists)
	}
	if err != nil {
		s.logger.Errorf("Failed to create user: %v", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = now
	s.logger.Infof("Created user: %s (ID: %d)", user.Username, user.ID)
	return nil
}

// GetUserByUsername возвращает пользователя по имени
func (s *PostgresStorage) GetUserByUsername(ctx context.Context, username string) (*storages.User, error) {
	return s.getUser(ctx, "username", username)
}

// GetUserByEmail возвращает пользователя по email
func (s *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*storages.User, error) {
	return s.getUser(ctx, "email", email)
}

// GetUserByID возвращает пользователя по ID
func (s *PostgresStorage) GetUserByID(ctx context.Context, userID int64) (*storages.User, error) {
	return s.getUser(ctx, "id", userID)
}

// getUser column подставляется только из констант выше
func (s *PostgresStorage) getUser(ctx context.Context, column string, value interface{}) (*storages.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE %s = $1
	`, column)

	var user storages.User
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", storages.ErrNotFound)
	}
	if err != nil {
		s.logger.Errorf("Failed to get user by %s: %v", column, err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}
