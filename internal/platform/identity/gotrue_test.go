package identity

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/config"
	"adminhub/internal/platform/models"
)

func newGoTrue(t *testing.T, handler http.HandlerFunc) *GoTrueClient {
	return newMirroredGoTrue(t, handler, nil)
}

func newMirroredGoTrue(t *testing.T, handler http.HandlerFunc, mirror Mirror) *GoTrueClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGoTrueClient(config.IdentityConfig{URL: srv.URL, AnonKey: "anon", ServiceKey: "service"}, mirror)
}

type stubMirror struct {
	rows      map[string]*models.Identity
	mirrored  int
	mirrorErr error
}

func (m *stubMirror) Mirror(ctx context.Context, ident *models.Identity) error {
	if m.mirrorErr != nil {
		return m.mirrorErr
	}
	if m.rows == nil {
		m.rows = map[string]*models.Identity{}
	}
	m.mirrored++
	m.rows[ident.ID] = ident
	return nil
}

func (m *stubMirror) Delete(ctx context.Context, id string) (bool, error) {
	_, ok := m.rows[id]
	delete(m.rows, id)
	return ok, nil
}

func TestGoTrue_AdminCreateUsesServiceKey(t *testing.T) {
	var body map[string]interface{}
	c := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "service", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service", r.Header.Get("Authorization"))
		json.NewDecoder(r.Body).Decode(&body)
		fmt.Fprint(w, `{"id":"u-1","email":"a@x.com","created_at":"2024-01-01T00:00:00Z"}`)
	})

	id, err := c.AdminCreate(context.Background(), CreateParams{
		Email:          "a@x.com",
		Password:       "CambiaTuClave",
		EmailConfirmed: true,
		Metadata:       map[string]interface{}{"full_name": "Ana"},
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)
	assert.Equal(t, true, body["email_confirm"])
	assert.Equal(t, map[string]interface{}{"full_name": "Ana"}, body["user_metadata"])
}

func TestGoTrue_AdminCreateEmailTaken(t *testing.T) {
	c := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"code":422,"error_code":"email_exists","msg":"A user with this email address has already been registered"}`)
	})

	_, err := c.AdminCreate(context.Background(), CreateParams{Email: "a@x.com", Password: "x"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestGoTrue_CurrentPrincipal(t *testing.T) {
	c := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"msg":"invalid JWT"}`)
			return
		}
		fmt.Fprint(w, `{"id":"u-1","email":"a@x.com","created_at":"2024-01-01T00:00:00Z"}`)
	})

	p, err := c.CurrentPrincipal(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.ID)

	_, err = c.CurrentPrincipal(context.Background(), "bad")
	assert.ErrorIs(t, err, errors.ErrUnauthenticated)
}

func TestGoTrue_ServerErrorIsDependency(t *testing.T) {
	c := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := c.AdminDelete(context.Background(), "u-1")
	assert.ErrorIs(t, err, errors.ErrDependency)
}

func TestGoTrue_AdminListPaginates(t *testing.T) {
	calls := 0
	c := newGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		users := []map[string]interface{}{}
		if r.URL.Query().Get("page") == "1" {
			for i := 0; i < adminListPageSize; i++ {
				users = append(users, map[string]interface{}{"id": fmt.Sprintf("u-%d", i), "created_at": "2024-01-01T00:00:00Z"})
			}
		} else {
			users = append(users, map[string]interface{}{"id": "last", "created_at": "2024-01-01T00:00:00Z"})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"users": users})
	})

	identities, err := c.AdminList(context.Background())
	require.NoError(t, err)
	assert.Len(t, identities, adminListPageSize+1)
	assert.Equal(t, 2, calls)
}

func TestGoTrue_MirrorsIdentities(t *testing.T) {
	mirror := &stubMirror{}
	c := newMirroredGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"u-1","email":"a@x.com","email_confirmed_at":"2024-01-01T00:00:00Z","created_at":"2024-01-01T00:00:00Z"}`)
	}, mirror)
	ctx := context.Background()

	id, err := c.AdminCreate(ctx, CreateParams{Email: "a@x.com", Password: "x"})
	require.NoError(t, err)
	require.Contains(t, mirror.rows, id)
	assert.Equal(t, "a@x.com", mirror.rows[id].Email)
	assert.True(t, mirror.rows[id].EmailConfirmed)

	for i := 0; i < 3; i++ {
		_, err := c.CurrentPrincipal(ctx, "good")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, mirror.mirrored, "an identity is mirrored once per process")
}

func TestGoTrue_AdminCreateUndoesUnmirroredIdentity(t *testing.T) {
	var deleted []string
	c := newMirroredGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deleted = append(deleted, r.URL.Path)
			return
		}
		fmt.Fprint(w, `{"id":"u-1","email":"a@x.com","created_at":"2024-01-01T00:00:00Z"}`)
	}, &stubMirror{mirrorErr: stderrors.New("db down")})

	_, err := c.AdminCreate(context.Background(), CreateParams{Email: "a@x.com", Password: "x"})
	assert.ErrorIs(t, err, errors.ErrDependency)
	assert.Equal(t, []string{"/auth/v1/admin/users/u-1"}, deleted)
}

func TestGoTrue_AdminDeleteRemovesMirror(t *testing.T) {
	remote := map[string]bool{"u-1": true}
	mirror := &stubMirror{rows: map[string]*models.Identity{"u-1": {ID: "u-1"}, "stale": {ID: "stale"}}}
	c := newMirroredGoTrue(t, func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/auth/v1/admin/users/")
		if !remote[id] {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"msg":"User not found"}`)
			return
		}
		delete(remote, id)
	}, mirror)
	ctx := context.Background()

	require.NoError(t, c.AdminDelete(ctx, "u-1"))
	assert.NotContains(t, mirror.rows, "u-1")

	require.NoError(t, c.AdminDelete(ctx, "stale"), "a mirror outliving its identity is still removed")
	assert.Empty(t, mirror.rows)

	assert.ErrorIs(t, c.AdminDelete(ctx, "ghost"), errors.ErrNotFound)
}
