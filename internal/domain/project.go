// Package domain holds the entity types shared across the engine's
// deployment domain.
package domain

import "time"

// DeploymentStatus is the project's deployment state machine value.
type DeploymentStatus string

const (
	StatusIdle       DeploymentStatus = "idle"
	StatusPreparing  DeploymentStatus = "preparing"
	StatusBuilding   DeploymentStatus = "building"
	StatusDeploying  DeploymentStatus = "deploying"
	StatusDeployed   DeploymentStatus = "deployed"
	StatusFailed     DeploymentStatus = "failed"
)

// Project is the entity owned by an organization.
type Project struct {
	ID                  string
	OrganizationID      string
	IsActive            bool
	MessageHistory      []byte // raw JSON array, decoded on demand by materializer.ParseHistory
	ProductionDeployURL *string
	WorkflowID          *string
	DeploymentStatus    DeploymentStatus
	Knowledge           *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ProjectUpdate carries the allowed mutable field set for Project updates:
// productionDeployUrl, workflowId, deploymentStatus. A nil field leaves
// the column untouched.
type ProjectUpdate struct {
	ProductionDeployURL *string
	WorkflowID          *string
	DeploymentStatus    *DeploymentStatus
}
