package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"adminhub/internal/platform/models"
)

// AuthUserRepository stores identities for the local identity provider.
type AuthUserRepository struct {
	db *sql.DB
}

func NewAuthUserRepository(db *sql.DB) *AuthUserRepository {
	return &AuthUserRepository{db: db}
}

const authUserColumns = `id, email, password_hash, email_confirmed, metadata, last_sign_in_at, created_at, updated_at`

func scanAuthUser(s scanner) (*models.AuthUser, error) {
	var u models.AuthUser
	var metadata string
	var lastSignIn sql.NullInt64

	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.EmailConfirmed, &metadata, &lastSignIn, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lastSignIn.Valid {
		u.LastSignInAt = new(int64)
		*u.LastSignInAt = lastSignIn.Int64
	}
	json.Unmarshal([]byte(metadata), &u.Metadata)

	return &u, nil
}

func (r *AuthUserRepository) Create(ctx context.Context, u *models.AuthUser) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	u.CreatedAt = now
	u.UpdatedAt = now

	metadata, err := json.Marshal(u.Metadata)
	if err != nil {
		return err
	}
	if u.Metadata == nil {
		metadata = []byte("{}")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO auth_users (`+authUserColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Email, u.PasswordHash, u.EmailConfirmed, string(metadata), u.LastSignInAt, u.CreatedAt, u.UpdatedAt)
	return conflictOr(err, "email already registered")
}

// Mirror records an identity owned by an external provider so profiles can
// reference it. The row has no password hash and cannot sign in locally.
// Mirroring an id twice is a no-op.
func (r *AuthUserRepository) Mirror(ctx context.Context, ident *models.Identity) error {
	now := time.Now().Unix()
	createdAt := ident.CreatedAt
	if createdAt == 0 {
		createdAt = now
	}
	metadata := []byte("{}")
	if ident.Metadata != nil {
		raw, err := json.Marshal(ident.Metadata)
		if err != nil {
			return err
		}
		metadata = raw
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_users (`+authUserColumns+`)
		VALUES ($1, $2, '', $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
	`, ident.ID, ident.Email, ident.EmailConfirmed, string(metadata), ident.LastSignInAt, createdAt, now)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	existing, err := r.GetByID(ctx, ident.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("email %s is mirrored for another identity", ident.Email)
	}
	return nil
}

func (r *AuthUserRepository) GetByID(ctx context.Context, id string) (*models.AuthUser, error) {
	u, err := scanAuthUser(r.db.QueryRowContext(ctx, `SELECT `+authUserColumns+` FROM auth_users WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *AuthUserRepository) GetByEmail(ctx context.Context, email string) (*models.AuthUser, error) {
	u, err := scanAuthUser(r.db.QueryRowContext(ctx, `SELECT `+authUserColumns+` FROM auth_users WHERE email = $1`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *AuthUserRepository) List(ctx context.Context) ([]*models.AuthUser, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+authUserColumns+` FROM auth_users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.AuthUser{}
	for rows.Next() {
		u, err := scanAuthUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *AuthUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE auth_users SET password_hash = $1, updated_at = $2 WHERE id = $3`, passwordHash, time.Now().Unix(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *AuthUserRepository) UpdateLastSignIn(ctx context.Context, id string, timestamp int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE auth_users SET last_sign_in_at = $1 WHERE id = $2`, timestamp, id)
	return err
}

// Delete removes the identity; profiles and sessions cascade.
func (r *AuthUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_users WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, id, userID string, expiresAt int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (id, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)
	`, id, userID, expiresAt, time.Now().Unix())
	return err
}

// IsActive reports whether the session exists, is not revoked and has not expired.
func (r *SessionRepository) IsActive(ctx context.Context, id string) (bool, error) {
	var expiresAt int64
	var revokedAt sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT expires_at, revoked_at FROM auth_sessions WHERE id = $1`, id).Scan(&expiresAt, &revokedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return !revokedAt.Valid && expiresAt > time.Now().Unix(), nil
}

func (r *SessionRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE auth_sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`, time.Now().Unix(), id)
	return err
}
