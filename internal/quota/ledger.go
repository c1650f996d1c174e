// Package quota implements the Quota Ledger: atomic deduct/restore of
// deploy and upload quotas across the FREE-then-paid tier priority, and the
// FREE-period refresh transaction.
package quota

import "context"

// Ledger is the three-operation contract consumed by the workflow's step 1.
type Ledger interface {
	// DeductDeploy decrements one unit of deploy quota for orgID, consuming
	// FREE quota before paid. Returns false if no active tier has headroom.
	DeductDeploy(ctx context.Context, orgID string) (bool, error)

	// DeductUpload is symmetric to DeductDeploy for upload quota.
	DeductUpload(ctx context.Context, orgID string) (bool, error)

	// RestoreUpload increments upload quota by one, preferring FREE if it
	// has headroom below the plan cap, else falling back to the active
	// paid row.
	RestoreUpload(ctx context.Context, orgID string) (RestoreResult, error)
}

// RestoreResult mirrors domain.RestoreResult; redeclared here to keep the
// ledger's public contract self-contained for callers that only import
// this package.
type RestoreResult struct {
	OK         bool
	RestoredTo string
	PlanName   string
}

// PlanDefaults looks up the reset quotas for a plan, consulted during FREE
// period refresh. Callers supply a concrete implementation (e.g. a static
// table, or a call to an external billing service).
type PlanDefaults interface {
	Defaults(ctx context.Context, planID string) (DeployUploadDefaults, error)
}

// DeployUploadDefaults is the subset of plan defaults the refresh path
// needs to reset a FREE row.
type DeployUploadDefaults struct {
	AINums      int
	EnhanceNums int
	UploadLimit int
	DeployLimit int
	Seats       int
	ProjectNums int
}
