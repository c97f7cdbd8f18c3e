package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/audit"
	"adminhub/internal/platform/database"
	"adminhub/internal/platform/models"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// conflictOr maps unique violations to errors.ErrConflict.
func conflictOr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", errors.ErrConflict, msg)
	}
	return err
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type ProfileRepository struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewProfileRepository(db *sql.DB, auditLog *audit.Logger) *ProfileRepository {
	return &ProfileRepository{db: db, audit: auditLog}
}

const profileColumns = `id, email, full_name, is_active, is_system_administrator, creator, created_at, updated_at`

func scanProfile(s scanner) (*models.Profile, error) {
	p := &models.Profile{}
	err := s.Scan(&p.ID, &p.Email, &p.FullName, &p.IsActive, &p.IsSystemAdministrator, &p.Creator, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProfileRepository) Create(ctx context.Context, p *models.Profile) error {
	now := time.Now().Unix()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Email, p.FullName, p.IsActive, p.IsSystemAdministrator, p.Creator, p.CreatedAt, p.UpdatedAt)
	return conflictOr(err, "profile already exists")
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]*models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC, email ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []*models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// IDs returns the set of principal ids that have a profile.
func (r *ProfileRepository) IDs(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// Update loads the profile, applies fn and writes it back together with an
// audit row. Returns (nil, nil) when the profile does not exist.
func (r *ProfileRepository) Update(ctx context.Context, id string, fn func(p *models.Profile) error) (*models.Profile, error) {
	var updated *models.Profile
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		before, err := scanProfile(tx.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
		if err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return err
		}

		after := *before
		if err := fn(&after); err != nil {
			return err
		}
		after.UpdatedAt = time.Now().Unix()

		_, err = tx.ExecContext(ctx, `
			UPDATE profiles SET email = $1, full_name = $2, is_active = $3, is_system_administrator = $4, updated_at = $5
			WHERE id = $6
		`, after.Email, after.FullName, after.IsActive, after.IsSystemAdministrator, after.UpdatedAt, id)
		if err != nil {
			return err
		}

		if err := r.audit.Record(ctx, tx, "profiles", id, before, &after); err != nil {
			return err
		}
		updated = &after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
