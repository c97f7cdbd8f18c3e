package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminhub/internal/platform/audit"
	"adminhub/internal/platform/config"
	"adminhub/internal/platform/database"
	"adminhub/internal/platform/identity"
	"adminhub/internal/platform/models"
	"adminhub/internal/platform/repositories"
)

const protectedEmail = "root@x.com"

type testServer struct {
	t        *testing.T
	router   http.Handler
	db       *sql.DB
	provider identity.Provider
	profiles *repositories.ProfileRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = database.Migrate(context.Background(), db)
	require.NoError(t, err)

	cfg := &config.Config{
		JWT:       config.JWTConfig{Secret: "test-secret"},
		Users:     config.UsersConfig{DefaultPassword: "CambiaTuClave", MinPasswordLength: 6, ProtectedAccountEmail: protectedEmail},
		RateLimit: config.RateLimitConfig{ReadPerMinute: 1000, WritePerMinute: 1000},
	}
	provider, err := identity.FromConfig(cfg, db)
	require.NoError(t, err)

	return &testServer{
		t:        t,
		router:   NewRouter(NewDependencies(cfg, db, provider)),
		db:       db,
		provider: provider,
		profiles: repositories.NewProfileRepository(db, audit.NewLogger(db)),
	}
}

func (s *testServer) seedUser(email, password string, sysadmin bool) string {
	s.t.Helper()
	ctx := context.Background()
	id, err := s.provider.AdminCreate(ctx, identity.CreateParams{Email: email, Password: password, EmailConfirmed: true})
	require.NoError(s.t, err)
	require.NoError(s.t, s.profiles.Create(ctx, &models.Profile{ID: id, Email: email, FullName: email, IsActive: true, IsSystemAdministrator: sysadmin}))
	return id
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	rr := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(s.t, http.StatusOK, rr.Code, rr.Body.String())
	var sess models.Session
	require.NoError(s.t, json.Unmarshal(rr.Body.Bytes(), &sess))
	return sess.AccessToken
}

func (s *testServer) do(method, path, token string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(s.t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	decode(t, rr, &body)
	return body.Code
}

func TestCreateUserEndToEnd(t *testing.T) {
	s := newTestServer(t)
	adminID := s.seedUser(protectedEmail, "rootpass", true)
	token := s.login(protectedEmail, "rootpass")

	rr := s.do(http.MethodPost, "/admin/users", token, map[string]interface{}{"email": "a@x.com", "fullName": "Ana"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var created struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		FullName string `json:"fullName"`
	}
	decode(t, rr, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "a@x.com", created.Email)
	assert.Equal(t, "Ana", created.FullName)

	profile, err := s.profiles.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	require.NotNil(t, profile.Creator)
	assert.Equal(t, adminID, *profile.Creator)
	assert.True(t, profile.IsActive)

	s.login("a@x.com", "CambiaTuClave")

	rr = s.do(http.MethodPost, "/admin/users", token, map[string]interface{}{"email": "a@x.com", "fullName": "Ana again"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCreateUserRejections(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(protectedEmail, "rootpass", true)
	admin := s.login(protectedEmail, "rootpass")
	s.seedUser("plain@x.com", "plainpass", false)
	plain := s.login("plain@x.com", "plainpass")

	rr := s.do(http.MethodPost, "/admin/users", "", map[string]interface{}{"email": "b@x.com", "fullName": "Bo"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodPost, "/admin/users", plain, map[string]interface{}{"email": "b@x.com", "fullName": "Bo"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(http.MethodPost, "/admin/users", admin, "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodPost, "/admin/users", admin, map[string]interface{}{"email": "nope", "fullName": "Bo"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodPost, "/admin/users", admin, map[string]interface{}{"email": "b@x.com", "fullName": "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM auth_users WHERE email = 'b@x.com'`).Scan(&n))
	assert.Zero(t, n)
}

func TestRoleHolderPassesGate(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(protectedEmail, "rootpass", true)
	admin := s.login(protectedEmail, "rootpass")
	plainID := s.seedUser("plain@x.com", "plainpass", false)
	plain := s.login("plain@x.com", "plainpass")

	rr := s.do(http.MethodPost, "/admin/roles", admin, map[string]interface{}{"name": "Support Desk"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var role models.GlobalRole
	decode(t, rr, &role)
	assert.Equal(t, "support-desk", role.Key)

	rr = s.do(http.MethodPost, "/admin/users/"+plainID+"/roles", admin, map[string]string{"roleId": role.ID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/admin/companies", plain, map[string]string{"name": "Acme", "slug": "acme"})
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPatch, "/admin/users/"+plainID+"/roles/"+role.ID, admin, map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/admin/companies", plain, map[string]string{"name": "Beta", "slug": "beta"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestOnlySysAdminsCreateSysAdmins(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(protectedEmail, "rootpass", true)
	admin := s.login(protectedEmail, "rootpass")
	plainID := s.seedUser("plain@x.com", "plainpass", false)
	plain := s.login("plain@x.com", "plainpass")

	rr := s.do(http.MethodPost, "/admin/roles", admin, map[string]interface{}{"name": "Support Desk"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var role models.GlobalRole
	decode(t, rr, &role)
	rr = s.do(http.MethodPost, "/admin/users/"+plainID+"/roles", admin, map[string]string{"roleId": role.ID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/admin/users", plain, map[string]interface{}{"email": "sneaky@x.com", "fullName": "Sneaky", "isSysAdmin": true})
	assert.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())
	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM auth_users WHERE email = $1`, "sneaky@x.com").Scan(&count))
	assert.Zero(t, count, "no identity may be created")

	rr = s.do(http.MethodPost, "/admin/users", plain, map[string]interface{}{"email": "helper@x.com", "fullName": "Helper"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/admin/users", admin, map[string]interface{}{"email": "ops@x.com", "fullName": "Ops", "isSysAdmin": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	decode(t, rr, &created)
	profile, err := s.profiles.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.True(t, profile.IsSystemAdministrator)
}

func TestDeleteUserGuards(t *testing.T) {
	s := newTestServer(t)
	rootID := s.seedUser(protectedEmail, "rootpass", true)
	root := s.login(protectedEmail, "rootpass")
	otherAdminID := s.seedUser("ops@x.com", "opspass", true)
	otherAdmin := s.login("ops@x.com", "opspass")
	victimID := s.seedUser("victim@x.com", "victimpass", false)

	rr := s.do(http.MethodDelete, "/admin/users/"+otherAdminID, otherAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "CANNOT_DELETE_SELF", errorCode(t, rr))

	rr = s.do(http.MethodDelete, "/admin/users/"+rootID, otherAdmin, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "PROTECTED_ACCOUNT", errorCode(t, rr))

	rr = s.do(http.MethodDelete, "/admin/users/"+victimID, root, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	profile, err := s.profiles.GetByID(context.Background(), victimID)
	require.NoError(t, err)
	assert.Nil(t, profile, "profile must be removed with the identity")

	rr = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "victim@x.com", "password": "victimpass"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodDelete, "/admin/users/"+victimID, root, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPatchUserAndPassword(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(protectedEmail, "rootpass", true)
	admin := s.login(protectedEmail, "rootpass")
	userID := s.seedUser("ana@x.com", "anapass", false)

	rr := s.do(http.MethodPatch, "/admin/users/"+userID+"/password", admin, map[string]string{"password": "12345"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodPatch, "/admin/users/"+userID+"/password", admin, map[string]string{"password": "123456"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	user := s.login("ana@x.com", "123456")

	rr = s.do(http.MethodPatch, "/admin/users/"+userID, admin, map[string]interface{}{"fullName": "Ana"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodPatch, "/admin/users/"+userID, admin, map[string]interface{}{"is_active": false, "fullName": "Ana Pérez"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"is_active": false}`, rr.Body.String())

	rr = s.do(http.MethodGet, "/me", user, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code, "deactivated users are locked out")

	rr = s.do(http.MethodGet, "/admin/audit-logs", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []models.AuditLogEntry
	decode(t, rr, &entries)
	require.NotEmpty(t, entries)
	assert.Equal(t, "profiles", entries[0].TableName)
	assert.Equal(t, userID, entries[0].IDObject)
	assert.Contains(t, entries[0].Diff, "is_active")
}

func TestRolesListing(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(protectedEmail, "rootpass", true)
	admin := s.login(protectedEmail, "rootpass")
	s.seedUser("plain@x.com", "plainpass", false)
	plain := s.login("plain@x.com", "plainpass")

	create := func(name string, hierarchy interface{}) string {
		rr := s.do(http.MethodPost, "/admin/roles", admin, map[string]interface{}{"name": name, "hierarchy": hierarchy})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		var role models.GlobalRole
		decode(t, rr, &role)
		return role.ID
	}
	create("Two", 2)
	create("Unranked", nil)
	oneID := create("One", 1)

	list := func(token string) []string {
		rr := s.do(http.MethodGet, "/roles", token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var roles []models.GlobalRole
		decode(t, rr, &roles)
		out := []string{}
		for _, r := range roles {
			out = append(out, r.Name)
		}
		return out
	}
	assert.Equal(t, []string{"One", "Two", "Unranked"}, list(plain))

	rr := s.do(http.MethodPatch, "/admin/roles/"+oneID+"/flags", admin, map[string]bool{"visible": false})
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, []string{"Two", "Unranked"}, list(plain))
	assert.Equal(t, []string{"One", "Two", "Unranked"}, list(admin))

	rr = s.do(http.MethodGet, "/roles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestActiveCompanyFlow(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(protectedEmail, "rootpass", true)
	admin := s.login(protectedEmail, "rootpass")
	userID := s.seedUser("ana@x.com", "anapass", false)
	user := s.login("ana@x.com", "anapass")

	var acme, beta models.Company
	rr := s.do(http.MethodPost, "/admin/companies", admin, map[string]string{"name": "Acme", "slug": "acme"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	decode(t, rr, &acme)
	rr = s.do(http.MethodPost, "/admin/companies", admin, map[string]string{"name": "Beta", "slug": "beta"})
	require.Equal(t, http.StatusCreated, rr.Code)
	decode(t, rr, &beta)

	rr = s.do(http.MethodGet, "/admin/companies-slug/acme", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"slug": "acme", "available": false}`, rr.Body.String())

	rr = s.do(http.MethodPost, "/admin/users/"+userID+"/companies", admin, map[string]string{"companyId": acme.ID, "role": "manager"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(http.MethodGet, "/me/companies", user, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var mine []models.Membership
	decode(t, rr, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, "acme", mine[0].Company.Slug)

	rr = s.do(http.MethodPut, "/me/active-company", user, map[string]string{"companyId": beta.ID})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(http.MethodPut, "/me/active-company", user, map[string]string{"companyId": acme.ID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)

	rr = s.do(http.MethodGet, "/me/permissions", user, nil, cookies...)
	require.Equal(t, http.StatusOK, rr.Code)
	var perms struct {
		CompanyID   string              `json:"company_id"`
		Role        string              `json:"role"`
		Permissions map[string][]string `json:"permissions"`
	}
	decode(t, rr, &perms)
	assert.Equal(t, acme.ID, perms.CompanyID)
	assert.Equal(t, "manager", perms.Role)
	assert.Contains(t, perms.Permissions["report"], "view_reports")

	rr = s.do(http.MethodGet, "/me", user, nil, cookies...)
	require.Equal(t, http.StatusOK, rr.Code)
	var me struct {
		Profile       models.Profile  `json:"profile"`
		ActiveCompany *models.Company `json:"active_company"`
	}
	decode(t, rr, &me)
	assert.Equal(t, userID, me.Profile.ID)
	require.NotNil(t, me.ActiveCompany)
	assert.Equal(t, acme.ID, me.ActiveCompany.ID)

	rr = s.do(http.MethodDelete, "/admin/companies/"+acme.ID, admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, "/companies", user, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var visible []models.Company
	decode(t, rr, &visible)
	require.Len(t, visible, 1)
	assert.Equal(t, "beta", visible[0].Slug)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	s.seedUser("ana@x.com", "anapass", false)
	token := s.login("ana@x.com", "anapass")

	rr := s.do(http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"database":"healthy"`)

	s.do(http.MethodGet, "/roles", "", nil)
	rr = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "adminhub_http_requests_total"))

	rr = s.do(http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
