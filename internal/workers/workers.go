// Package workers holds background jobs run by cmd/worker.
package workers

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"adminhub/internal/pkg/errors"
	"adminhub/internal/pkg/metrics"
	"adminhub/internal/platform/models"
)

type IdentityAdmin interface {
	AdminList(ctx context.Context) ([]*models.Identity, error)
	AdminDelete(ctx context.Context, id string) error
}

type ProfileIndex interface {
	IDs(ctx context.Context) (map[string]bool, error)
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// ReconcileOrphanIdentities deletes identities that have no profile and are
// older than grace. These are left behind when a user creation crashed
// between creating the identity and its profile. Running it twice is
// harmless. It returns how many identities were removed.
func ReconcileOrphanIdentities(ctx context.Context, identities IdentityAdmin, profiles ProfileIndex, grace time.Duration) (int, error) {
	return reconcile(ctx, identities, profiles, time.Now().Add(-grace))
}

func reconcile(ctx context.Context, identities IdentityAdmin, profiles ProfileIndex, cutoff time.Time) (int, error) {
	all, err := identities.AdminList(ctx)
	if err != nil {
		return 0, fmt.Errorf("list identities: %w", err)
	}
	known, err := profiles.IDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list profiles: %w", err)
	}

	var (
		removed int
		errs    []error
	)
	for _, ident := range all {
		if known[ident.ID] || ident.CreatedAt == 0 || ident.CreatedAt > cutoff.Unix() {
			continue
		}

		// The profile may have been written since the listing.
		p, err := profiles.GetByID(ctx, ident.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("recheck profile %s: %w", ident.ID, err))
			continue
		}
		if p != nil {
			continue
		}

		if err := identities.AdminDelete(ctx, ident.ID); err != nil {
			if stderrors.Is(err, errors.ErrNotFound) {
				continue
			}
			log.Error().Err(err).Str("user_id", ident.ID).Msg("failed to remove orphan identity")
			errs = append(errs, fmt.Errorf("delete identity %s: %w", ident.ID, err))
			continue
		}

		removed++
		metrics.OrphanIdentitiesRemoved.Inc()
		log.Warn().Str("user_id", ident.ID).Str("email", ident.Email).Msg("removed orphan identity")
	}

	log.Info().Int("identities", len(all)).Int("removed", removed).Msg("orphan sweep finished")
	return removed, stderrors.Join(errs...)
}
