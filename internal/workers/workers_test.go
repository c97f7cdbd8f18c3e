package workers

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/platform/models"
)

type fakeIdentities struct {
	identities []*models.Identity
	deleted    []string
	deleteErr  map[string]error
}

func (f *fakeIdentities) AdminList(ctx context.Context) ([]*models.Identity, error) {
	out := []*models.Identity{}
	gone := map[string]bool{}
	for _, id := range f.deleted {
		gone[id] = true
	}
	for _, ident := range f.identities {
		if !gone[ident.ID] {
			out = append(out, ident)
		}
	}
	return out, nil
}

func (f *fakeIdentities) AdminDelete(ctx context.Context, id string) error {
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeProfiles struct {
	ids     map[string]bool
	lateIDs map[string]bool
	idsErr  error
}

func (f *fakeProfiles) IDs(ctx context.Context) (map[string]bool, error) {
	return f.ids, f.idsErr
}

func (f *fakeProfiles) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	if f.ids[id] || f.lateIDs[id] {
		return &models.Profile{ID: id}, nil
	}
	return nil, nil
}

func TestReconcileRemovesOnlyOldOrphans(t *testing.T) {
	now := time.Now()
	old := now.Add(-time.Hour).Unix()
	fresh := now.Add(-time.Minute).Unix()

	identities := &fakeIdentities{identities: []*models.Identity{
		{ID: "with-profile", CreatedAt: old},
		{ID: "old-orphan", CreatedAt: old},
		{ID: "fresh-orphan", CreatedAt: fresh},
		{ID: "late-profile", CreatedAt: old},
	}}
	profiles := &fakeProfiles{
		ids:     map[string]bool{"with-profile": true},
		lateIDs: map[string]bool{"late-profile": true},
	}

	removed, err := ReconcileOrphanIdentities(context.Background(), identities, profiles, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"old-orphan"}, identities.deleted)

	removed, err = ReconcileOrphanIdentities(context.Background(), identities, profiles, 10*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, removed, "second sweep has nothing left to do")
}

func TestReconcileContinuesPastFailures(t *testing.T) {
	old := time.Now().Add(-time.Hour).Unix()
	identities := &fakeIdentities{
		identities: []*models.Identity{{ID: "a", CreatedAt: old}, {ID: "b", CreatedAt: old}, {ID: "c", CreatedAt: old}},
		deleteErr: map[string]error{
			"a": stderrors.New("provider down"),
			"b": errors.ErrNotFound,
		},
	}

	removed, err := ReconcileOrphanIdentities(context.Background(), identities, &fakeProfiles{}, time.Minute)
	assert.Equal(t, 1, removed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete identity a")
	assert.Equal(t, []string{"c"}, identities.deleted)
}

func TestReconcileStopsWhenProfilesUnavailable(t *testing.T) {
	identities := &fakeIdentities{identities: []*models.Identity{{ID: "a", CreatedAt: 1}}}
	_, err := ReconcileOrphanIdentities(context.Background(), identities, &fakeProfiles{idsErr: stderrors.New("timeout")}, time.Minute)
	require.Error(t, err)
	assert.Empty(t, identities.deleted)
}
