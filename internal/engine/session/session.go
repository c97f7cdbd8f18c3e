// Package session carries the per-request session state: who is calling and
// which company they are acting in.
package session

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"adminhub/internal/platform/models"
)

const (
	DefaultTenantCookie        = "tenant-slug"
	DefaultActiveCompanyCookie = "active-company"
)

// Context is the resolved session. ActiveCompanyID is empty when no company
// could be selected.
type Context struct {
	Principal       *models.Principal
	ActiveCompanyID string
	Source          string
}

const (
	SourceSubdomain = "subdomain"
	SourceCookie    = "cookie"
	SourceSelected  = "selected"
)

type CompanyResolver interface {
	CompanyBySlug(ctx context.Context, slug string) (*models.Company, error)
}

type Resolver struct {
	companies    CompanyResolver
	tenantCookie string
	activeCookie string
}

func NewResolver(companies CompanyResolver, tenantCookie, activeCookie string) *Resolver {
	if tenantCookie == "" {
		tenantCookie = DefaultTenantCookie
	}
	if activeCookie == "" {
		activeCookie = DefaultActiveCompanyCookie
	}
	return &Resolver{companies: companies, tenantCookie: tenantCookie, activeCookie: activeCookie}
}

// SubdomainSlug returns the left-most label of host when host has a
// subdomain. Local hosts never carry a tenant.
func SubdomainSlug(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" || host == "localhost" || host == "127.0.0.1" || net.ParseIP(host) != nil {
		return ""
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 || labels[0] == "www" {
		return ""
	}
	return labels[0]
}

// Load resolves the session for r. The subdomain wins over the tenant cookie,
// which wins over the company saved with Save.
func (s *Resolver) Load(r *http.Request, principal *models.Principal) (*Context, error) {
	sc := &Context{Principal: principal}

	if slug := SubdomainSlug(r.Host); slug != "" {
		c, err := s.companies.CompanyBySlug(r.Context(), slug)
		if err != nil {
			return nil, err
		}
		if c != nil {
			sc.ActiveCompanyID = c.ID
			sc.Source = SourceSubdomain
			return sc, nil
		}
	}

	if cookie, err := r.Cookie(s.tenantCookie); err == nil && cookie.Value != "" {
		c, err := s.companies.CompanyBySlug(r.Context(), cookie.Value)
		if err != nil {
			return nil, err
		}
		if c != nil {
			sc.ActiveCompanyID = c.ID
			sc.Source = SourceCookie
			return sc, nil
		}
	}

	if cookie, err := r.Cookie(s.activeCookie); err == nil && cookie.Value != "" {
		sc.ActiveCompanyID = cookie.Value
		sc.Source = SourceSelected
	}
	return sc, nil
}

// Save persists companyID as the explicitly selected company. An empty id
// clears the selection.
func (s *Resolver) Save(w http.ResponseWriter, companyID string) {
	cookie := &http.Cookie{
		Name:     s.activeCookie,
		Value:    companyID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	}
	if companyID == "" {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	}
	http.SetCookie(w, cookie)
}
