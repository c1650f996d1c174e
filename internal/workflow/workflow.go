// Package workflow implements the deployment workflow: the six-step
// pipeline that drives the Step Executor through validate, sandbox, sync,
// build, deploy, and finalize.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/libra-dev/deploy-engine/internal/domain"
	"github.com/libra-dev/deploy-engine/internal/executor"
	"github.com/libra-dev/deploy-engine/internal/logging"
	"github.com/libra-dev/deploy-engine/internal/projectstore"
	"github.com/libra-dev/deploy-engine/internal/quota"
	"github.com/libra-dev/deploy-engine/internal/sandbox"
	"github.com/libra-dev/deploy-engine/internal/templates"
)

// Workflow drives one deployment workflow run, exclusively owning a
// WorkflowInstance for its lifetime.
type Workflow struct {
	executor   *executor.Executor
	quota      quota.Ledger
	projects   projectstore.Store
	sandboxes  *sandbox.Registry
	templates  *templates.Registry
	publisher  Publisher
	dispatcher string // dispatcher domain, e.g. "libra.sh"
	namespace  string // Cloudflare dispatch namespace
	tracker    *tracker

	cloudflareAccountID string
	cloudflareAPIToken  string

	buildTimeout           time.Duration
	deployTimeout          time.Duration
	sandboxCleanupTimeout  time.Duration
	sandboxCreationTimeout time.Duration
}

// Deps bundles Workflow's collaborators.
type Deps struct {
	Executor          *executor.Executor
	Quota             quota.Ledger
	Projects          projectstore.Store
	Sandboxes         *sandbox.Registry
	Templates         *templates.Registry
	Publisher         Publisher
	DispatcherDomain  string
	DispatchNamespace string

	// CloudflareAccountID and CloudflareAPIToken are passed as environment
	// variables into every sandbox created for step 2, so wrangler deploy in
	// step 5 can authenticate without a separate credentials file.
	CloudflareAccountID string
	CloudflareAPIToken  string

	// Per-command timeouts, fixed for every run of this Workflow; zero falls back to
	// the same defaults internal/config.Config ships.
	BuildTimeout           time.Duration
	DeployTimeout          time.Duration
	SandboxCleanupTimeout  time.Duration
	SandboxCreationTimeout time.Duration
}

// Default per-command timeouts, mirroring internal/config.Config's envDefault
// values, applied when a Deps field is left zero (e.g. in tests).
const (
	defaultBuildTimeout           = 60 * time.Second
	defaultDeployTimeout          = 60 * time.Second
	defaultSandboxCleanupTimeout  = 30 * time.Second
	defaultSandboxCreationTimeout = 180 * time.Second
)

// New wires a Workflow against deps.
func New(deps Deps) *Workflow {
	if deps.Publisher == nil {
		deps.Publisher = NoopPublisher{}
	}

	if deps.Templates == nil {
		deps.Templates = templates.NewRegistry()
	}

	if deps.BuildTimeout == 0 {
		deps.BuildTimeout = defaultBuildTimeout
	}

	if deps.DeployTimeout == 0 {
		deps.DeployTimeout = defaultDeployTimeout
	}

	if deps.SandboxCleanupTimeout == 0 {
		deps.SandboxCleanupTimeout = defaultSandboxCleanupTimeout
	}

	if deps.SandboxCreationTimeout == 0 {
		deps.SandboxCreationTimeout = defaultSandboxCreationTimeout
	}

	return &Workflow{
		executor:               deps.Executor,
		quota:                  deps.Quota,
		projects:               deps.Projects,
		sandboxes:              deps.Sandboxes,
		templates:              deps.Templates,
		publisher:              deps.Publisher,
		dispatcher:             deps.DispatcherDomain,
		namespace:              deps.DispatchNamespace,
		tracker:                newTracker(),
		cloudflareAccountID:    deps.CloudflareAccountID,
		cloudflareAPIToken:     deps.CloudflareAPIToken,
		buildTimeout:           deps.BuildTimeout,
		deployTimeout:          deps.DeployTimeout,
		sandboxCleanupTimeout:  deps.SandboxCleanupTimeout,
		sandboxCreationTimeout: deps.SandboxCreationTimeout,
	}
}

// Get returns the tracked instance and its per-step history for the
// invocation contract's get(id) operation. The second return value is
// false if no Run call is known for id — either it was never
// started on this process, or the process has since restarted (the tracker
// is in-memory only; resume correctness lives in the Step Executor's
// durable Store, not here).
func (w *Workflow) Get(workflowID string) (domain.WorkflowInstance, []domain.StepStatus, bool) {
	return w.tracker.Get(workflowID)
}

// policies is the step policy table.
var policies = struct {
	ValidateAndPrepare      executor.Policy
	CreateSandbox           executor.Policy
	SyncFiles               executor.Policy
	BuildProject            executor.Policy
	DeployToCloudflare      executor.Policy
	UpdateDatabaseAndCleanup executor.Policy
}{
	ValidateAndPrepare:       executor.Policy{Retries: 3, Delay: 2 * time.Second, Backoff: executor.BackoffLinear, Timeout: 60 * time.Second},
	CreateSandbox:            executor.Policy{Retries: 2, Delay: 5 * time.Second, Backoff: executor.BackoffExponential, Timeout: 60 * time.Second},
	SyncFiles:                executor.Policy{Retries: 3, Delay: 3 * time.Second, Backoff: executor.BackoffLinear, Timeout: 60 * time.Second},
	BuildProject:             executor.Policy{Retries: 2, Delay: 10 * time.Second, Backoff: executor.BackoffLinear, Timeout: 60 * time.Second},
	DeployToCloudflare:       executor.Policy{Retries: 5, Delay: 5 * time.Second, Backoff: executor.BackoffExponential, Timeout: 60 * time.Second},
	UpdateDatabaseAndCleanup: executor.Policy{Retries: 3, Delay: 2 * time.Second, Backoff: executor.BackoffLinear, Timeout: 60 * time.Second},
}

// RunAsync starts a deployment in the background and returns immediately
// with its (possibly freshly generated) workflow id, matching the
// invocation contract's create() → {id, details: {status}} shape: callers
// get a durable handle back without blocking on the full pipeline, then
// poll progress via Get. The background run uses context.Background()
// rather than ctx so it survives the HTTP request that triggered it.
func (w *Workflow) RunAsync(ctx context.Context, workflowID string, params domain.DeploymentParams) string {
	if workflowID == "" {
		workflowID = uuid.NewString()
	}

	log := logging.FromContext(ctx)

	go func() {
		if _, err := w.Run(context.Background(), workflowID, params); err != nil {
			log.Errorf("workflow %s exited with error: %v", workflowID, err)
		}
	}()

	return workflowID
}

// Run drives one deployment end to end, blocking until it completes or
// fails. The returned WorkflowInstance's ID is also used as the Step
// Executor's workflowID, so a caller that retains it can resume by calling
// Run again with the same params (step 1's at-most-one-completion guard
// makes this safe). Most callers should prefer RunAsync plus Get for the
// asynchronous invocation contract; Run is exported directly for tests and
// for callers that already manage their own goroutine (e.g. a worker pool
// consumer).
func (w *Workflow) Run(ctx context.Context, workflowID string, params domain.DeploymentParams) (*domain.WorkflowInstance, error) {
	if workflowID == "" {
		workflowID = uuid.NewString()
	}

	log := logging.FromContext(ctx)
	instance := &domain.WorkflowInstance{ID: workflowID, Status: domain.WorkflowRunning}
	w.tracker.start(workflowID)

	startedAt := time.Now()
	prep, err := executor.Do(ctx, w.executor, workflowID, stepValidateAndPrepare, policies.ValidateAndPrepare, func(ctx context.Context) (validatePrepareResult, error) {
		return w.runValidateAndPrepare(ctx, params)
	})
	w.tracker.recordStep(workflowID, stepValidateAndPrepare, startedAt, err)
	if err != nil {
		return w.fail(ctx, instance, params.ProjectID, stepValidateAndPrepare, err)
	}

	preparingStatus := domain.StatusPreparing
	w.persistProjectUpdate(ctx, params.ProjectID, domain.ProjectUpdate{
		WorkflowID:       &workflowID,
		DeploymentStatus: &preparingStatus,
	})
	w.publish(ctx, workflowID, params.ProjectID, domain.StatusPreparing, "", nil)

	startedAt = time.Now()
	sb, err := executor.Do(ctx, w.executor, workflowID, stepCreateSandbox, policies.CreateSandbox, func(ctx context.Context) (createSandboxResult, error) {
		return w.runCreateSandbox(ctx, prep.DeploymentConfig)
	})
	w.tracker.recordStep(workflowID, stepCreateSandbox, startedAt, err)
	if err != nil {
		return w.fail(ctx, instance, params.ProjectID, stepCreateSandbox, err)
	}

	startedAt = time.Now()
	sync, err := executor.Do(ctx, w.executor, workflowID, stepSyncFiles, policies.SyncFiles, func(ctx context.Context) (syncFilesResult, error) {
		return w.runSyncFiles(ctx, params, sb.SandboxID)
	})
	w.tracker.recordStep(workflowID, stepSyncFiles, startedAt, err)
	if err != nil {
		return w.fail(ctx, instance, params.ProjectID, stepSyncFiles, err)
	}

	log.Infof("workflow %s synced %d files, buildReady=%v", workflowID, sync.FilesSynced, sync.BuildReady)

	buildingStatus := domain.StatusBuilding
	w.persistProjectUpdate(ctx, params.ProjectID, domain.ProjectUpdate{DeploymentStatus: &buildingStatus})
	w.publish(ctx, workflowID, params.ProjectID, domain.StatusBuilding, "", nil)

	startedAt = time.Now()
	build, err := executor.Do(ctx, w.executor, workflowID, stepBuildProject, policies.BuildProject, func(ctx context.Context) (buildProjectResult, error) {
		return w.runBuildProject(ctx, sb.SandboxID, templates.RootPath)
	})
	w.tracker.recordStep(workflowID, stepBuildProject, startedAt, err)
	if err != nil {
		return w.fail(ctx, instance, params.ProjectID, stepBuildProject, err)
	}

	if !build.BuildSuccess {
		buildErr := fmt.Errorf("build did not succeed")
		w.tracker.recordStep(workflowID, stepBuildProject, startedAt, buildErr)
		return w.fail(ctx, instance, params.ProjectID, stepBuildProject, buildErr)
	}

	deployingStatus := domain.StatusDeploying
	w.persistProjectUpdate(ctx, params.ProjectID, domain.ProjectUpdate{DeploymentStatus: &deployingStatus})
	w.publish(ctx, workflowID, params.ProjectID, domain.StatusDeploying, "", nil)

	startedAt = time.Now()
	deploy, err := executor.Do(ctx, w.executor, workflowID, stepDeployToCloudflare, policies.DeployToCloudflare, func(ctx context.Context) (deployResult, error) {
		return w.runDeployToCloudflare(ctx, sb.SandboxID, prep.DeploymentConfig.WorkerName, templates.RootPath)
	})
	w.tracker.recordStep(workflowID, stepDeployToCloudflare, startedAt, err)
	if err != nil {
		return w.fail(ctx, instance, params.ProjectID, stepDeployToCloudflare, err)
	}

	startedAt = time.Now()
	_, err = executor.Do(ctx, w.executor, workflowID, stepUpdateDatabaseAndCleanup, policies.UpdateDatabaseAndCleanup, func(ctx context.Context) (finalizeResult, error) {
		return w.runUpdateDatabaseAndCleanup(ctx, params.ProjectID, sb.SandboxID, deploy.WorkerURL)
	})
	w.tracker.recordStep(workflowID, stepUpdateDatabaseAndCleanup, startedAt, err)
	if err != nil {
		return w.fail(ctx, instance, params.ProjectID, stepUpdateDatabaseAndCleanup, err)
	}

	instance.Status = domain.WorkflowCompleted
	w.tracker.finish(workflowID, domain.WorkflowCompleted)
	w.publish(ctx, workflowID, params.ProjectID, domain.StatusDeployed, "", nil)

	return instance, nil
}

func (w *Workflow) fail(ctx context.Context, instance *domain.WorkflowInstance, projectID, step string, err error) (*domain.WorkflowInstance, error) {
	instance.Status = domain.WorkflowErrored
	w.tracker.finish(instance.ID, domain.WorkflowErrored)

	log := logging.FromContext(ctx)
	log.Errorf("workflow %s failed at step %s: %v", instance.ID, step, err)

	failedStatus := domain.StatusFailed
	w.persistProjectUpdate(ctx, projectID, domain.ProjectUpdate{DeploymentStatus: &failedStatus})

	w.publish(ctx, instance.ID, projectID, domain.StatusFailed, step, err)

	return instance, fmt.Errorf("workflow: step %s: %w", step, err)
}

// persistProjectUpdate writes u to the project row, logging rather than
// failing the workflow on error: the Step Executor's durable Store is the
// source of truth for resume, so a row write that doesn't land never needs
// to block or retry the pipeline itself.
func (w *Workflow) persistProjectUpdate(ctx context.Context, projectID string, u domain.ProjectUpdate) {
	if projectID == "" {
		return
	}

	if err := w.projects.Update(ctx, projectID, u); err != nil {
		logging.FromContext(ctx).Warnf("workflow: failed to persist project update for %s: %v", projectID, err)
	}
}

func (w *Workflow) publish(ctx context.Context, workflowID, projectID string, status domain.DeploymentStatus, step string, err error) {
	event := DeploymentEvent{
		WorkflowID: workflowID,
		ProjectID:  projectID,
		Status:     status,
		Step:       step,
		OccurredAt: time.Now(),
	}

	if err != nil {
		event.Error = err.Error()
	}

	if perr := w.publisher.Publish(ctx, event); perr != nil {
		logging.FromContext(ctx).Warnf("failed to publish deployment event for workflow %s: %v", workflowID, perr)
	}
}

const (
	stepValidateAndPrepare      = "validate-and-prepare"
	stepCreateSandbox           = "create-sandbox"
	stepSyncFiles               = "sync-files"
	stepBuildProject            = "build-project"
	stepDeployToCloudflare      = "deploy-to-cloudflare"
	stepUpdateDatabaseAndCleanup = "update-database-and-cleanup"
)
