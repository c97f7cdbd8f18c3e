package repositories

import (
	"context"
	"database/sql"
	"time"

	"adminhub/internal/platform/audit"
	"adminhub/internal/platform/models"
)

type RoleRepository struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewRoleRepository(db *sql.DB, auditLog *audit.Logger) *RoleRepository {
	return &RoleRepository{db: db, audit: auditLog}
}

const roleColumns = `id, role_key, name, description, hierarchy, visible, enabled, created_at, updated_at`

func scanRole(s scanner) (*models.GlobalRole, error) {
	role := &models.GlobalRole{}
	err := s.Scan(&role.ID, &role.Key, &role.Name, &role.Description, &role.Hierarchy, &role.Visible, &role.Enabled, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (r *RoleRepository) Create(ctx context.Context, role *models.GlobalRole) error {
	now := time.Now().Unix()
	role.CreatedAt = now
	role.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (`+roleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, role.ID, role.Key, role.Name, role.Description, role.Hierarchy, role.Visible, role.Enabled, role.CreatedAt, role.UpdatedAt)
	return conflictOr(err, "role key already in use")
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (*models.GlobalRole, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return role, nil
}

// List returns roles in storage order; callers sort for display.
func (r *RoleRepository) List(ctx context.Context, visibleOnly bool) ([]*models.GlobalRole, error) {
	query := `SELECT ` + roleColumns + ` FROM roles`
	if visibleOnly {
		query += ` WHERE visible = TRUE`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []*models.GlobalRole{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepository) Update(ctx context.Context, id string, fn func(role *models.GlobalRole) error) (*models.GlobalRole, error) {
	var updated *models.GlobalRole
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		before, err := scanRole(tx.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
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
			UPDATE roles SET role_key = $1, name = $2, description = $3, hierarchy = $4, visible = $5, enabled = $6, updated_at = $7
			WHERE id = $8
		`, after.Key, after.Name, after.Description, after.Hierarchy, after.Visible, after.Enabled, after.UpdatedAt, id)
		if err != nil {
			return conflictOr(err, "role key already in use")
		}

		if err := r.audit.Record(ctx, tx, "roles", id, before, &after); err != nil {
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

func (r *RoleRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type AssignmentRepository struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewAssignmentRepository(db *sql.DB, auditLog *audit.Logger) *AssignmentRepository {
	return &AssignmentRepository{db: db, audit: auditLog}
}

func (r *AssignmentRepository) Assign(ctx context.Context, a *models.RoleAssignment) error {
	a.CreatedAt = time.Now().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id, enabled, visible, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, a.UserID, a.RoleID, a.Enabled, a.Visible, a.CreatedAt)
	return conflictOr(err, "role already assigned to user")
}

// ListEnabled returns the user's enabled assignments without role details.
func (r *AssignmentRepository) ListEnabled(ctx context.Context, userID string) ([]*models.RoleAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, role_id, enabled, visible, created_at
		FROM user_roles WHERE user_id = $1 AND enabled = TRUE
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []*models.RoleAssignment{}
	for rows.Next() {
		a := &models.RoleAssignment{}
		if err := rows.Scan(&a.UserID, &a.RoleID, &a.Enabled, &a.Visible, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// ListForUser returns every assignment of the user joined with its role.
func (r *AssignmentRepository) ListForUser(ctx context.Context, userID string) ([]*models.RoleAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.user_id, a.role_id, a.enabled, a.visible, a.created_at,
			r.id, r.role_key, r.name, r.description, r.hierarchy, r.visible, r.enabled, r.created_at, r.updated_at
		FROM user_roles a
		JOIN roles r ON r.id = a.role_id
		WHERE a.user_id = $1
		ORDER BY a.created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := []*models.RoleAssignment{}
	for rows.Next() {
		a := &models.RoleAssignment{Role: &models.GlobalRole{}}
		err := rows.Scan(&a.UserID, &a.RoleID, &a.Enabled, &a.Visible, &a.CreatedAt,
			&a.Role.ID, &a.Role.Key, &a.Role.Name, &a.Role.Description, &a.Role.Hierarchy, &a.Role.Visible, &a.Role.Enabled, &a.Role.CreatedAt, &a.Role.UpdatedAt)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// SetFlags updates enabled/visible on one assignment. Returns (nil, nil)
// when the user does not hold the role.
func (r *AssignmentRepository) SetFlags(ctx context.Context, userID, roleID string, enabled, visible *bool) (*models.RoleAssignment, error) {
	var updated *models.RoleAssignment
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		before := &models.RoleAssignment{}
		err := tx.QueryRowContext(ctx, `
			SELECT user_id, role_id, enabled, visible, created_at FROM user_roles WHERE user_id = $1 AND role_id = $2
		`, userID, roleID).Scan(&before.UserID, &before.RoleID, &before.Enabled, &before.Visible, &before.CreatedAt)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return err
		}

		after := *before
		if enabled != nil {
			after.Enabled = *enabled
		}
		if visible != nil {
			after.Visible = *visible
		}

		_, err = tx.ExecContext(ctx, `UPDATE user_roles SET enabled = $1, visible = $2 WHERE user_id = $3 AND role_id = $4`,
			after.Enabled, after.Visible, userID, roleID)
		if err != nil {
			return err
		}

		if err := r.audit.Record(ctx, tx, "user_roles", userID+":"+roleID, before, &after); err != nil {
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
