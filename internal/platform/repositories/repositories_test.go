package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/audit"
	"adminhub/internal/platform/config"
	"adminhub/internal/platform/database"
	"adminhub/internal/platform/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{URL: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if _, err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, id, email string) {
	t.Helper()
	ctx := context.Background()
	if err := NewAuthUserRepository(db).Create(ctx, &models.AuthUser{Identity: models.Identity{ID: id, Email: email}, PasswordHash: "x"}); err != nil {
		t.Fatalf("failed to seed auth user: %v", err)
	}
	if err := NewProfileRepository(db, audit.NewLogger(db)).Create(ctx, &models.Profile{ID: id, Email: email, IsActive: true}); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}
}

func TestProfileRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewProfileRepository(db, audit.NewLogger(db))
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "email", "full_name", "is_active", "is_system_administrator", "creator", "created_at", "updated_at"}).
			AddRow("u1", "ana@x.com", "Ana", true, true, nil, 1700000000, 1700000000)
		mock.ExpectQuery("SELECT (.+) FROM profiles WHERE id = \\$1").
			WithArgs("u1").
			WillReturnRows(rows)

		p, err := repo.GetByID(ctx, "u1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p == nil || !p.IsSystemAdministrator || p.Creator != nil {
			t.Errorf("unexpected profile %+v", p)
		}
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM profiles WHERE id = \\$1").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		p, err := repo.GetByID(ctx, "missing")
		if err != nil || p != nil {
			t.Errorf("expected (nil, nil), got (%v, %v)", p, err)
		}
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestProfileRepository_UpdateWritesAudit(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "u1", "ana@x.com")

	auditLog := audit.NewLogger(db)
	repo := NewProfileRepository(db, auditLog)
	ctx := audit.WithActor(context.Background(), "admin-1")

	p, err := repo.Update(ctx, "u1", func(p *models.Profile) error {
		p.IsActive = false
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if p.IsActive {
		t.Error("expected profile to be inactive")
	}

	entries, err := auditLog.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.TableName != "profiles" || e.IDObject != "u1" || e.UserIdentifier != "admin-1" {
		t.Errorf("unexpected entry %+v", e)
	}
	if change, ok := e.Diff["is_active"]; !ok || change.Old != true || change.New != false {
		t.Errorf("unexpected diff %v", e.Diff)
	}

	missing, err := repo.Update(ctx, "nope", func(p *models.Profile) error { return nil })
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for missing profile, got (%v, %v)", missing, err)
	}
}

func TestIdentityDeleteCascadesToProfile(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "u1", "ana@x.com")
	ctx := context.Background()

	found, err := NewAuthUserRepository(db).Delete(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("Delete = (%v, %v)", found, err)
	}

	p, err := NewProfileRepository(db, nil).GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if p != nil {
		t.Error("expected profile to be removed with its identity")
	}
}

func TestAuthUserRepository_Mirror(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuthUserRepository(db)
	ctx := context.Background()

	ident := &models.Identity{ID: "gt-1", Email: "ana@x.com", EmailConfirmed: true, CreatedAt: 1700000000}
	if err := repo.Mirror(ctx, ident); err != nil {
		t.Fatalf("Mirror failed: %v", err)
	}
	if err := repo.Mirror(ctx, ident); err != nil {
		t.Fatalf("second Mirror failed: %v", err)
	}

	u, err := repo.GetByID(ctx, "gt-1")
	if err != nil || u == nil {
		t.Fatalf("GetByID = (%v, %v)", u, err)
	}
	if u.PasswordHash != "" || u.CreatedAt != 1700000000 {
		t.Errorf("unexpected mirror row %+v", u)
	}

	if err := NewProfileRepository(db, audit.NewLogger(db)).Create(ctx, &models.Profile{ID: "gt-1", Email: "ana@x.com", IsActive: true}); err != nil {
		t.Fatalf("profile for mirrored identity: %v", err)
	}

	if err := repo.Mirror(ctx, &models.Identity{ID: "gt-2", Email: "ana@x.com"}); err == nil {
		t.Error("expected an error when another identity owns the email")
	}
}

func TestCompanyRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewCompanyRepository(db, audit.NewLogger(db))
	ctx := context.Background()

	for _, c := range []*models.Company{
		{ID: "c1", Name: "Beta", Slug: "beta", Visible: true, Enabled: true},
		{ID: "c2", Name: "Alpha", Slug: "alpha", Visible: true, Enabled: false},
		{ID: "c3", Name: "Gamma", Slug: "gamma", Visible: false, Enabled: true},
	} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create %s failed: %v", c.Slug, err)
		}
	}

	err := repo.Create(ctx, &models.Company{ID: "c4", Name: "Dup", Slug: "beta"})
	if !stderrors.Is(err, errors.ErrConflict) {
		t.Errorf("expected conflict for duplicate slug, got %v", err)
	}

	operational, err := repo.List(ctx, CompanyFilter{VisibleOnly: true, EnabledOnly: true, Order: OrderByName})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(operational) != 1 || operational[0].Slug != "beta" {
		t.Errorf("unexpected operational list %v", operational)
	}

	all, err := repo.List(ctx, CompanyFilter{Order: OrderByName})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].Name != "Alpha" || all[2].Name != "Gamma" {
		t.Errorf("unexpected name order %v", all)
	}

	db.Exec(`UPDATE companies SET created_at = 100 WHERE id = 'c1'`)
	db.Exec(`UPDATE companies SET created_at = 300 WHERE id = 'c2'`)
	db.Exec(`UPDATE companies SET created_at = 200 WHERE id = 'c3'`)
	byCreated, err := repo.List(ctx, CompanyFilter{Order: OrderByCreatedDesc})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if byCreated[0].ID != "c2" || byCreated[1].ID != "c3" || byCreated[2].ID != "c1" {
		t.Errorf("unexpected created order %s %s %s", byCreated[0].ID, byCreated[1].ID, byCreated[2].ID)
	}

	taken, err := repo.SlugTaken(ctx, "beta", "c1")
	if err != nil || taken {
		t.Errorf("slug of the company itself must not count as taken: %v %v", taken, err)
	}
	taken, _ = repo.SlugTaken(ctx, "beta", "")
	if !taken {
		t.Error("expected beta to be taken")
	}

	c, err := repo.GetBySlug(ctx, "beta")
	if err != nil || c == nil {
		t.Fatalf("GetBySlug = (%v, %v)", c, err)
	}
	if string(c.Settings) != "{}" {
		t.Errorf("expected empty settings document, got %s", c.Settings)
	}

	deleted, err := repo.Delete(ctx, "c3")
	if err != nil || !deleted {
		t.Errorf("Delete = (%v, %v)", deleted, err)
	}
	deleted, _ = repo.Delete(ctx, "c3")
	if deleted {
		t.Error("second delete should report not found")
	}
}

func TestMembershipRepository(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "u1", "ana@x.com")
	ctx := context.Background()

	companies := NewCompanyRepository(db, nil)
	companies.Create(ctx, &models.Company{ID: "c1", Name: "Acme", Slug: "acme", Visible: true, Enabled: true})

	repo := NewMembershipRepository(db, audit.NewLogger(db))
	m := &models.Membership{ID: "m1", ProfileID: "u1", CompanyID: "c1", Role: models.RoleManager, IsActive: true, Visible: true, Enabled: true}
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	dup := &models.Membership{ID: "m2", ProfileID: "u1", CompanyID: "c1", Role: models.RoleUser}
	if err := repo.Create(ctx, dup); !stderrors.Is(err, errors.ErrConflict) {
		t.Errorf("expected conflict on duplicate membership, got %v", err)
	}

	active, err := repo.GetActive(ctx, "u1", "c1")
	if err != nil || active == nil || active.Role != models.RoleManager {
		t.Fatalf("GetActive = (%v, %v)", active, err)
	}

	list, err := repo.ListForProfile(ctx, "u1", true)
	if err != nil || len(list) != 1 || list[0].Company == nil || list[0].Company.Slug != "acme" {
		t.Fatalf("ListForProfile = (%v, %v)", list, err)
	}

	_, err = repo.Update(ctx, "m1", func(m *models.Membership) error {
		m.IsActive = false
		m.Visible = false
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	active, err = repo.GetActive(ctx, "u1", "c1")
	if err != nil || active != nil {
		t.Errorf("expected no active membership after removal, got (%v, %v)", active, err)
	}
	list, _ = repo.ListForProfile(ctx, "u1", true)
	if len(list) != 0 {
		t.Errorf("expected no active companies, got %d", len(list))
	}
	list, _ = repo.ListForProfile(ctx, "u1", false)
	if len(list) != 1 {
		t.Errorf("expected soft-removed membership to remain, got %d", len(list))
	}
}

func TestRoleAndAssignmentRepositories(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "u1", "ana@x.com")
	ctx := context.Background()

	roles := NewRoleRepository(db, audit.NewLogger(db))
	one := 1
	if err := roles.Create(ctx, &models.GlobalRole{ID: "r1", Key: "support", Name: "Support", Hierarchy: &one, Visible: true, Enabled: true}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := roles.Create(ctx, &models.GlobalRole{ID: "r2", Key: "hidden", Name: "Hidden", Visible: false, Enabled: true}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := roles.Create(ctx, &models.GlobalRole{ID: "r3", Key: "support", Name: "Support 2"}); !stderrors.Is(err, errors.ErrConflict) {
		t.Errorf("expected conflict on duplicate key, got %v", err)
	}

	visible, err := roles.List(ctx, true)
	if err != nil || len(visible) != 1 || visible[0].ID != "r1" {
		t.Fatalf("List(visible) = (%v, %v)", visible, err)
	}
	if visible[0].Hierarchy == nil || *visible[0].Hierarchy != 1 {
		t.Errorf("expected hierarchy 1, got %v", visible[0].Hierarchy)
	}
	all, _ := roles.List(ctx, false)
	if len(all) != 2 {
		t.Errorf("expected 2 roles, got %d", len(all))
	}

	assignments := NewAssignmentRepository(db, audit.NewLogger(db))
	if err := assignments.Assign(ctx, &models.RoleAssignment{UserID: "u1", RoleID: "r1", Enabled: true, Visible: true}); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	if err := assignments.Assign(ctx, &models.RoleAssignment{UserID: "u1", RoleID: "r1"}); !stderrors.Is(err, errors.ErrConflict) {
		t.Errorf("expected conflict on duplicate assignment, got %v", err)
	}

	enabled, err := assignments.ListEnabled(ctx, "u1")
	if err != nil || len(enabled) != 1 {
		t.Fatalf("ListEnabled = (%v, %v)", enabled, err)
	}

	off := false
	a, err := assignments.SetFlags(ctx, "u1", "r1", &off, nil)
	if err != nil || a == nil || a.Enabled || !a.Visible {
		t.Fatalf("SetFlags = (%+v, %v)", a, err)
	}
	enabled, _ = assignments.ListEnabled(ctx, "u1")
	if len(enabled) != 0 {
		t.Errorf("expected no enabled assignments, got %d", len(enabled))
	}

	detailed, err := assignments.ListForUser(ctx, "u1")
	if err != nil || len(detailed) != 1 || detailed[0].Role.Name != "Support" {
		t.Errorf("ListForUser = (%v, %v)", detailed, err)
	}

	missing, err := assignments.SetFlags(ctx, "u1", "r2", &off, nil)
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for missing assignment, got (%v, %v)", missing, err)
	}
}

func TestSessionRepository(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "u1", "ana@x.com")
	ctx := context.Background()

	repo := NewSessionRepository(db)
	if err := repo.Create(ctx, "s1", "u1", 4102444800); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ok, err := repo.IsActive(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("IsActive = (%v, %v)", ok, err)
	}

	if err := repo.Revoke(ctx, "s1"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	ok, _ = repo.IsActive(ctx, "s1")
	if ok {
		t.Error("revoked session must not be active")
	}

	ok, _ = repo.IsActive(ctx, "unknown")
	if ok {
		t.Error("unknown session must not be active")
	}
}
