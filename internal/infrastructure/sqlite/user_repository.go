package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/martijn/accountd/internal/core/domain"
	"github.com/martijn/accountd/internal/core/repository"
)

type userRepository struct {
	db *DB
}

func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// userRow mirrors the user table. Open profile fields live in the extra JSON
// column so the schemaless record survives the relational backend.
type userRow struct {
	ID       string         `db:"id"`
	Username string         `db:"username"`
	Password string         `db:"password"`
	Email    string         `db:"email"`
	Name     string         `db:"name"`
	Auth     sql.NullString `db:"auth"`
	Extra    string         `db:"extra"`
}

func (row *userRow) toUser() (*domain.User, error) {
	user := &domain.User{
		ID:       row.ID,
		Username: row.Username,
		Password: row.Password,
		Email:    row.Email,
		Name:     row.Name,
		Auth:     row.Auth.String,
	}
	if row.Extra != "" && row.Extra != "{}" {
		if err := json.Unmarshal([]byte(row.Extra), &user.Extra); err != nil {
			return nil, fmt.Errorf("corrupt extra column for user %s: %w", row.Username, err)
		}
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT id, username, password, email, name, auth, extra
		FROM user
		ORDER BY rowid
	`
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*domain.User, 0, len(rows))
	for i := range rows {
		user, err := rows[i].toUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, password, email, name, auth, extra
		FROM user
		WHERE username = ?
		ORDER BY rowid
		LIMIT 1
	`
	var row userRow
	err := r.db.GetContext(ctx, &row, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return row.toUser()
}

func (r *userRepository) Insert(ctx context.Context, user *domain.User) (*domain.User, error) {
	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}

	extra, err := encodeExtra(stored.Extra)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO user (id, username, password, email, name, auth, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		stored.ID,
		stored.Username,
		stored.Password,
		stored.Email,
		stored.Name,
		nullable(stored.Auth),
		extra,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return &stored, nil
}

func (r *userRepository) SetAuth(ctx context.Context, username, token string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE user SET auth = ? WHERE username = ?`, token, username)
	if err != nil {
		return 0, fmt.Errorf("failed to set auth token: %w", err)
	}
	return result.RowsAffected()
}

func (r *userRepository) ClearAuth(ctx context.Context, username string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE user SET auth = NULL WHERE username = ?`, username)
	if err != nil {
		return 0, fmt.Errorf("failed to clear auth token: %w", err)
	}
	return result.RowsAffected()
}

func (r *userRepository) UpdateFields(ctx context.Context, username string, fields map[string]any) (int64, error) {
	current, err := r.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	for k, v := range fields {
		switch k {
		case domain.FieldUsername, domain.FieldID:
			// immutable
		case domain.FieldPassword:
			current.Password = toString(v)
		case domain.FieldEmail:
			current.Email = toString(v)
		case domain.FieldName:
			current.Name = toString(v)
		case domain.FieldAuth:
			current.Auth = toString(v)
		default:
			if current.Extra == nil {
				current.Extra = make(map[string]any)
			}
			current.Extra[k] = v
		}
	}

	extra, err := encodeExtra(current.Extra)
	if err != nil {
		return 0, err
	}

	query := `
		UPDATE user
		SET password = ?, email = ?, name = ?, auth = ?, extra = ?
		WHERE username = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		current.Password,
		current.Email,
		current.Name,
		nullable(current.Auth),
		extra,
		username,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update user: %w", err)
	}
	return result.RowsAffected()
}

func (r *userRepository) Delete(ctx context.Context, username string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user WHERE username = ?`, username)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}
	return result.RowsAffected()
}

func encodeExtra(extra map[string]any) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("failed to encode extra fields: %w", err)
	}
	return string(data), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}
