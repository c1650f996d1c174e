// Package projectstore is the project store adapter: transactional reads
// and writes of the project row.
package projectstore

import (
	"context"

	"github.com/libra-dev/deploy-engine/internal/domain"
)

// Store is the collaborator the workflow consults at step 1 (load + check)
// and step 3 (history reload), and mutates after step 1 (workflowId,
// deploymentStatus), before steps 4 and 5 (deploymentStatus), at step 6
// (productionDeployUrl, deploymentStatus), and on failure
// (deploymentStatus).
type Store interface {
	// FindByIDAndOrg loads a project row, scoped to the given organization
	// so a caller can never address another org's project by guessing an
	// id. Returns apperr.ErrProjectNotFound if no row matches.
	FindByIDAndOrg(ctx context.Context, projectID, organizationID string) (*domain.Project, error)

	// Update applies only the fields set in u; nil fields leave the
	// corresponding column untouched.
	Update(ctx context.Context, projectID string, u domain.ProjectUpdate) error
}
