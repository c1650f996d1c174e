package domain

import "time"

// WorkflowStatus is the status surfaced to callers via Get.
type WorkflowStatus string

const (
	WorkflowRunning    WorkflowStatus = "running"
	WorkflowCompleted  WorkflowStatus = "completed"
	WorkflowErrored    WorkflowStatus = "errored"
	WorkflowTerminated WorkflowStatus = "terminated"
)

// WorkflowInstance is the opaque handle returned to callers so they may
// poll progress.
type WorkflowInstance struct {
	ID     string
	Status WorkflowStatus
}

// StepStatus describes a completed or failed step, surfaced by Get's
// optional per-step status.
type StepStatus struct {
	Name        string
	Attempt     int
	StartedAt   time.Time
	FinishedAt  time.Time
	Succeeded   bool
	ErrorMsg    string
}

// DeploymentParams is the invocation contract's create() payload.
// InitFiles and HistoryMessages arrive on the wire but are never trusted:
// the workflow re-derives both server-side.
type DeploymentParams struct {
	ProjectID      string
	OrganizationID string
	UserID         string
	CustomDomain   *string

	// InitFiles and HistoryMessages are accepted for API-contract
	// compatibility only. The workflow ignores both: at step 3 it takes the
	// init files from the template registry and re-reads the history from
	// the project store.
	InitFiles       []FileTreeNode
	HistoryMessages []HistoryMessage
}

// DeploymentConfig is step 1's derived output.
type DeploymentConfig struct {
	WorkerName string
	Template   string
	Timeout    time.Duration
}

// SandboxInfo is step 2's derived output.
type SandboxInfo struct {
	SandboxID string
	Provider  string
}
