package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"adminhub/internal/platform/audit"
	"adminhub/internal/platform/models"
)

type MembershipRepository struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewMembershipRepository(db *sql.DB, auditLog *audit.Logger) *MembershipRepository {
	return &MembershipRepository{db: db, audit: auditLog}
}

const membershipColumns = `id, profile_id, company_id, role, is_active, visible, enabled, created_at, updated_at`

func scanMembership(s scanner) (*models.Membership, error) {
	m := &models.Membership{}
	var role string
	err := s.Scan(&m.ID, &m.ProfileID, &m.CompanyID, &role, &m.IsActive, &m.Visible, &m.Enabled, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Role = models.CompanyRole(role)
	return m, nil
}

func (r *MembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	now := time.Now().Unix()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_companies (`+membershipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, m.ID, m.ProfileID, m.CompanyID, string(m.Role), m.IsActive, m.Visible, m.Enabled, m.CreatedAt, m.UpdatedAt)
	return conflictOr(err, "user already belongs to this company")
}

func (r *MembershipRepository) GetByID(ctx context.Context, id string) (*models.Membership, error) {
	m, err := scanMembership(r.db.QueryRowContext(ctx, `SELECT `+membershipColumns+` FROM user_companies WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// GetActive returns the membership of profileID in companyID only when it is
// active, visible and enabled.
func (r *MembershipRepository) GetActive(ctx context.Context, profileID, companyID string) (*models.Membership, error) {
	m, err := scanMembership(r.db.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM user_companies
		WHERE profile_id = $1 AND company_id = $2 AND is_active = TRUE AND visible = TRUE AND enabled = TRUE
	`, profileID, companyID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// ListForProfile returns the profile's memberships joined with their company,
// ordered by company name.
func (r *MembershipRepository) ListForProfile(ctx context.Context, profileID string, activeOnly bool) ([]*models.Membership, error) {
	query := `
		SELECT m.id, m.profile_id, m.company_id, m.role, m.is_active, m.visible, m.enabled, m.created_at, m.updated_at,
			c.id, c.name, c.slug, c.company_key, c.primary_color, c.secondary_color, c.accent_color, c.logo_url, c.settings,
			c.visible, c.enabled, c.created_at, c.updated_at
		FROM user_companies m
		JOIN companies c ON c.id = m.company_id
		WHERE m.profile_id = $1`
	if activeOnly {
		query += ` AND m.is_active = TRUE AND m.visible = TRUE AND m.enabled = TRUE AND c.enabled = TRUE`
	}
	query += ` ORDER BY c.name ASC`

	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	memberships := []*models.Membership{}
	for rows.Next() {
		m := &models.Membership{}
		c := &models.Company{}
		var role, settings string
		err := rows.Scan(&m.ID, &m.ProfileID, &m.CompanyID, &role, &m.IsActive, &m.Visible, &m.Enabled, &m.CreatedAt, &m.UpdatedAt,
			&c.ID, &c.Name, &c.Slug, &c.Key, &c.PrimaryColor, &c.SecondaryColor, &c.AccentColor, &c.LogoURL, &settings,
			&c.Visible, &c.Enabled, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, err
		}
		m.Role = models.CompanyRole(role)
		c.Settings = json.RawMessage(settingsText(json.RawMessage(settings)))
		m.Company = c
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// Update applies fn to the stored membership with an audit row. Returns
// (nil, nil) when the membership does not exist.
func (r *MembershipRepository) Update(ctx context.Context, id string, fn func(m *models.Membership) error) (*models.Membership, error) {
	var updated *models.Membership
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		before, err := scanMembership(tx.QueryRowContext(ctx, `SELECT `+membershipColumns+` FROM user_companies WHERE id = $1`, id))
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
			UPDATE user_companies SET role = $1, is_active = $2, visible = $3, enabled = $4, updated_at = $5
			WHERE id = $6
		`, string(after.Role), after.IsActive, after.Visible, after.Enabled, after.UpdatedAt, id)
		if err != nil {
			return err
		}

		if err := r.audit.Record(ctx, tx, "user_companies", id, before, &after); err != nil {
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
