package catalog

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"adminhub/internal/pkg/validator"
	"adminhub/internal/platform/models"
	"adminhub/internal/platform/repositories"
)

const (
	DefaultPrimaryColor   = "#001f3f"
	DefaultSecondaryColor = "#0074D9"
	DefaultAccentColor    = "#FF4136"
)

type CompanyInput struct {
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Key            string          `json:"key"`
	PrimaryColor   string          `json:"primary_color"`
	SecondaryColor string          `json:"secondary_color"`
	AccentColor    string          `json:"accent_color"`
	LogoURL        *string         `json:"logo_url"`
	Settings       json.RawMessage `json:"settings"`
}

// CompanyPatch carries the fields to change. Nil fields are left untouched.
type CompanyPatch struct {
	Name           *string         `json:"name"`
	Slug           *string         `json:"slug"`
	Key            *string         `json:"key"`
	PrimaryColor   *string         `json:"primary_color"`
	SecondaryColor *string         `json:"secondary_color"`
	AccentColor    *string         `json:"accent_color"`
	LogoURL        *string         `json:"logo_url"`
	Settings       json.RawMessage `json:"settings"`
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func validateSettings(raw json.RawMessage) error {
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return validation("settings must be a JSON object")
	}
	return nil
}

func validateColors(colors ...string) error {
	for _, c := range colors {
		if err := validator.HexColor(c); err != nil {
			return validation("%v: %s", err, c)
		}
	}
	return nil
}

// ListCompanies is the operational list: enabled companies by name, hidden
// ones only for system administrators.
func (s *Service) ListCompanies(ctx context.Context, viewer *models.Principal) ([]*models.Company, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	companies, err := s.companies.List(ctx, repositories.CompanyFilter{
		VisibleOnly: !seesHidden(viewer),
		EnabledOnly: true,
		Order:       repositories.OrderByName,
	})
	if err != nil {
		return nil, storeErr("list companies", err)
	}
	return companies, nil
}

// AdminListCompanies returns every company the caller may see, newest first.
func (s *Service) AdminListCompanies(ctx context.Context, caller *models.Principal) ([]*models.Company, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}
	companies, err := s.companies.List(ctx, repositories.CompanyFilter{
		VisibleOnly: !seesHidden(caller),
		Order:       repositories.OrderByCreatedDesc,
	})
	if err != nil {
		return nil, storeErr("list companies", err)
	}
	return companies, nil
}

func (s *Service) GetCompany(ctx context.Context, viewer *models.Principal, id string) (*models.Company, error) {
	if err := requireViewer(viewer); err != nil {
		return nil, err
	}
	c, err := s.companies.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("load company", err)
	}
	if c == nil || (!c.Visible && !seesHidden(viewer)) {
		return nil, notFound("company", id)
	}
	return c, nil
}

// CompanyBySlug resolves a tenant selector. Only visible, enabled companies
// resolve; anything else yields (nil, nil).
func (s *Service) CompanyBySlug(ctx context.Context, slug string) (*models.Company, error) {
	c, err := s.companies.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, storeErr("load company", err)
	}
	if c == nil || !c.Visible || !c.Enabled {
		return nil, nil
	}
	return c, nil
}

func (s *Service) CreateCompany(ctx context.Context, caller *models.Principal, in CompanyInput) (*models.Company, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}

	c := &models.Company{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(in.Name),
		Slug:           strings.TrimSpace(in.Slug),
		PrimaryColor:   orDefault(in.PrimaryColor, DefaultPrimaryColor),
		SecondaryColor: orDefault(in.SecondaryColor, DefaultSecondaryColor),
		AccentColor:    orDefault(in.AccentColor, DefaultAccentColor),
		LogoURL:        in.LogoURL,
		Settings:       in.Settings,
		Visible:        true,
		Enabled:        true,
	}
	c.Key = orDefault(in.Key, c.Slug)
	if len(c.Settings) == 0 {
		c.Settings = json.RawMessage("{}")
	}

	if c.Name == "" {
		return nil, validation("name is required")
	}
	if err := validator.Slug(c.Slug); err != nil {
		return nil, validation("%v", err)
	}
	if err := validateColors(c.PrimaryColor, c.SecondaryColor, c.AccentColor); err != nil {
		return nil, err
	}
	if err := validateSettings(c.Settings); err != nil {
		return nil, err
	}

	if err := s.ensureSlugFree(ctx, c.Slug, ""); err != nil {
		return nil, err
	}
	if err := s.companies.Create(ctx, c); err != nil {
		return nil, storeErr("create company", err)
	}

	log.Info().Str("company_id", c.ID).Str("slug", c.Slug).Str("created_by", caller.ID).Msg("company created")
	return c, nil
}

func (s *Service) ensureSlugFree(ctx context.Context, slug, excludeID string) error {
	taken, err := s.companies.SlugTaken(ctx, slug, excludeID)
	if err != nil {
		return storeErr("check slug", err)
	}
	if taken {
		return conflict("slug %q is already in use", slug)
	}
	return nil
}

func (s *Service) UpdateCompany(ctx context.Context, caller *models.Principal, id string, patch CompanyPatch) (*models.Company, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, validation("name cannot be empty")
	}
	if patch.Slug != nil {
		slug := strings.TrimSpace(*patch.Slug)
		if err := validator.Slug(slug); err != nil {
			return nil, validation("%v", err)
		}
		if err := s.ensureSlugFree(ctx, slug, id); err != nil {
			return nil, err
		}
		patch.Slug = &slug
	}
	for _, color := range []*string{patch.PrimaryColor, patch.SecondaryColor, patch.AccentColor} {
		if color != nil {
			if err := validateColors(*color); err != nil {
				return nil, err
			}
		}
	}
	if patch.Settings != nil {
		if err := validateSettings(patch.Settings); err != nil {
			return nil, err
		}
	}

	updated, err := s.companies.Update(ctx, id, func(c *models.Company) error {
		if patch.Name != nil {
			c.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Slug != nil {
			c.Slug = *patch.Slug
		}
		if patch.Key != nil {
			c.Key = strings.TrimSpace(*patch.Key)
		}
		if patch.PrimaryColor != nil {
			c.PrimaryColor = *patch.PrimaryColor
		}
		if patch.SecondaryColor != nil {
			c.SecondaryColor = *patch.SecondaryColor
		}
		if patch.AccentColor != nil {
			c.AccentColor = *patch.AccentColor
		}
		if patch.LogoURL != nil {
			c.LogoURL = patch.LogoURL
		}
		if patch.Settings != nil {
			c.Settings = patch.Settings
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("update company", err)
	}
	if updated == nil {
		return nil, notFound("company", id)
	}
	return updated, nil
}

// SetCompanyFlags toggles visible and enabled independently. Memberships are
// not touched.
func (s *Service) SetCompanyFlags(ctx context.Context, caller *models.Principal, id string, flags Flags) (*models.Company, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return nil, err
	}
	if flags.empty() {
		return nil, validation("visible or enabled is required")
	}

	updated, err := s.companies.Update(ctx, id, func(c *models.Company) error {
		if flags.Visible != nil {
			c.Visible = *flags.Visible
		}
		if flags.Enabled != nil {
			c.Enabled = *flags.Enabled
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("update company flags", err)
	}
	if updated == nil {
		return nil, notFound("company", id)
	}
	return updated, nil
}

// SoftDeleteCompany hides and disables the company, keeping the row.
func (s *Service) SoftDeleteCompany(ctx context.Context, caller *models.Principal, id string) (*models.Company, error) {
	off := false
	return s.SetCompanyFlags(ctx, caller, id, Flags{Visible: &off, Enabled: &off})
}

// DeleteCompany removes the row and, by cascade, its memberships.
func (s *Service) DeleteCompany(ctx context.Context, caller *models.Principal, id string) error {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return err
	}
	ok, err := s.companies.Delete(ctx, id)
	if err != nil {
		return storeErr("delete company", err)
	}
	if !ok {
		return notFound("company", id)
	}
	log.Info().Str("company_id", id).Str("deleted_by", caller.ID).Msg("company deleted")
	return nil
}

func (s *Service) SlugAvailable(ctx context.Context, caller *models.Principal, slug, excludeID string) (bool, error) {
	if err := s.gate.Authorize(ctx, caller); err != nil {
		return false, err
	}
	slug = strings.TrimSpace(slug)
	if err := validator.Slug(slug); err != nil {
		return false, validation("%v", err)
	}
	taken, err := s.companies.SlugTaken(ctx, slug, excludeID)
	if err != nil {
		return false, storeErr("check slug", err)
	}
	return !taken, nil
}
