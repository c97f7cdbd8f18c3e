package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"adminhub/internal/platform/audit"
	"adminhub/internal/platform/models"
)

type CompanyOrder int

const (
	// OrderByName is the operational listing order.
	OrderByName CompanyOrder = iota
	// OrderByCreatedDesc is the administrative listing order.
	OrderByCreatedDesc
)

type CompanyFilter struct {
	VisibleOnly bool
	EnabledOnly bool
	Order       CompanyOrder
}

type CompanyRepository struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewCompanyRepository(db *sql.DB, auditLog *audit.Logger) *CompanyRepository {
	return &CompanyRepository{db: db, audit: auditLog}
}

const companyColumns = `id, name, slug, company_key, primary_color, secondary_color, accent_color, logo_url, settings, visible, enabled, created_at, updated_at`

func scanCompany(s scanner) (*models.Company, error) {
	c := &models.Company{}
	var settings string
	err := s.Scan(&c.ID, &c.Name, &c.Slug, &c.Key, &c.PrimaryColor, &c.SecondaryColor, &c.AccentColor, &c.LogoURL, &settings, &c.Visible, &c.Enabled, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if settings == "" {
		settings = "{}"
	}
	c.Settings = json.RawMessage(settings)
	return c, nil
}

func settingsText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

func (r *CompanyRepository) Create(ctx context.Context, c *models.Company) error {
	now := time.Now().Unix()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (`+companyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, c.ID, c.Name, c.Slug, c.Key, c.PrimaryColor, c.SecondaryColor, c.AccentColor, c.LogoURL, settingsText(c.Settings), c.Visible, c.Enabled, c.CreatedAt, c.UpdatedAt)
	return conflictOr(err, "company slug already in use")
}

func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*models.Company, error) {
	c, err := scanCompany(r.db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *CompanyRepository) GetBySlug(ctx context.Context, slug string) (*models.Company, error) {
	c, err := scanCompany(r.db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE slug = $1`, slug))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// SlugTaken reports whether slug belongs to a company other than excludeID.
func (r *CompanyRepository) SlugTaken(ctx context.Context, slug, excludeID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies WHERE slug = $1 AND id <> $2`, slug, excludeID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *CompanyRepository) List(ctx context.Context, f CompanyFilter) ([]*models.Company, error) {
	var where []string
	if f.VisibleOnly {
		where = append(where, "visible = TRUE")
	}
	if f.EnabledOnly {
		where = append(where, "enabled = TRUE")
	}

	query := `SELECT ` + companyColumns + ` FROM companies`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	switch f.Order {
	case OrderByCreatedDesc:
		query += ` ORDER BY created_at DESC, name ASC`
	default:
		query += ` ORDER BY name ASC`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := []*models.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// Update applies fn to the stored company and writes the result with an
// audit row. Returns (nil, nil) when the company does not exist.
func (r *CompanyRepository) Update(ctx context.Context, id string, fn func(c *models.Company) error) (*models.Company, error) {
	var updated *models.Company
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		before, err := scanCompany(tx.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
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
			UPDATE companies SET name = $1, slug = $2, company_key = $3, primary_color = $4, secondary_color = $5,
				accent_color = $6, logo_url = $7, settings = $8, visible = $9, enabled = $10, updated_at = $11
			WHERE id = $12
		`, after.Name, after.Slug, after.Key, after.PrimaryColor, after.SecondaryColor, after.AccentColor, after.LogoURL,
			settingsText(after.Settings), after.Visible, after.Enabled, after.UpdatedAt, id)
		if err != nil {
			return conflictOr(err, "company slug already in use")
		}

		if err := r.audit.Record(ctx, tx, "companies", id, before, &after); err != nil {
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

// Delete removes the row. Memberships go with it by cascade.
func (r *CompanyRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
