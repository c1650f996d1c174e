package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/LerianStudio/lib-commons/v2/commons/pointers"

	"github.com/libra-dev/deploy-engine/internal/apperr"
	"github.com/libra-dev/deploy-engine/internal/domain"
	"github.com/libra-dev/deploy-engine/internal/logging"
	"github.com/libra-dev/deploy-engine/internal/materializer"
	"github.com/libra-dev/deploy-engine/internal/sandbox"
	"github.com/libra-dev/deploy-engine/internal/templates"
)

// validatePrepareResult is step 1's persisted result.
type validatePrepareResult struct {
	ProjectRow       domain.Project
	DeploymentConfig domain.DeploymentConfig
}

// runValidateAndPrepare deducts deploy quota exactly once, then loads and
// checks the project row.
func (w *Workflow) runValidateAndPrepare(ctx context.Context, params domain.DeploymentParams) (validatePrepareResult, error) {
	if params.ProjectID == "" || params.OrganizationID == "" || params.UserID == "" {
		return validatePrepareResult{}, apperr.ValidationError{
			EntityType: "deploymentParams",
			Code:       "MISSING_REQUIRED_FIELD",
			Message:    "projectId, orgId, and userId are required",
		}
	}

	ok, err := w.quota.DeductDeploy(ctx, params.OrganizationID)
	if err != nil {
		return validatePrepareResult{}, fmt.Errorf("validate-and-prepare: deduct quota: %w", err)
	}

	if !ok {
		return validatePrepareResult{}, apperr.ErrQuotaExhausted
	}

	project, err := w.projects.FindByIDAndOrg(ctx, params.ProjectID, params.OrganizationID)
	if err != nil {
		return validatePrepareResult{}, fmt.Errorf("validate-and-prepare: load project: %w", err)
	}

	if !project.IsActive {
		return validatePrepareResult{}, apperr.ErrProjectInactive
	}

	workerName := WorkerName(params.ProjectID)

	config := domain.DeploymentConfig{
		WorkerName: workerName,
		Template:   defaultSandboxProvider,
		Timeout:    w.sandboxCreationTimeout,
	}

	return validatePrepareResult{ProjectRow: *project, DeploymentConfig: config}, nil
}

// defaultSandboxProvider is the provider name resolved to a concrete
// Provider via the process-wide sandbox Registry.
const defaultSandboxProvider = "e2b"

// createSandboxResult is step 2's persisted result.
type createSandboxResult struct {
	SandboxID   string
	SandboxInfo domain.SandboxInfo
}

// runCreateSandbox delegates to the configured sandbox provider.
// Idempotent on resume: the persisted sandbox id is returned without
// creating a second sandbox.
func (w *Workflow) runCreateSandbox(ctx context.Context, config domain.DeploymentConfig) (createSandboxResult, error) {
	template, err := sandbox.TemplateFor(defaultSandboxProvider)
	if err != nil {
		return createSandboxResult{}, fmt.Errorf("create-sandbox: %w", err)
	}

	provider, err := w.sandboxes.Get(defaultSandboxProvider)
	if err != nil {
		return createSandboxResult{}, fmt.Errorf("create-sandbox: %w", err)
	}

	id, err := provider.Create(ctx, sandbox.CreateParams{
		Provider:  defaultSandboxProvider,
		Template:  template,
		TimeoutMS: int(config.Timeout.Milliseconds()),
		Env: map[string]string{
			"CLOUDFLARE_ACCOUNT_ID": w.cloudflareAccountID,
			"CLOUDFLARE_API_TOKEN":  w.cloudflareAPIToken,
		},
	})
	if err != nil {
		return createSandboxResult{}, fmt.Errorf("create-sandbox: %w", err)
	}

	return createSandboxResult{
		SandboxID:   id,
		SandboxInfo: domain.SandboxInfo{SandboxID: id, Provider: defaultSandboxProvider},
	}, nil
}

// syncFilesResult is step 3's persisted result.
type syncFilesResult struct {
	FilesSynced int
	BuildReady  bool
}

// runSyncFiles re-reads the project row, folds history, filters the
// exclusion set, prefixes the template root path, and writes the result
// into the sandbox.
func (w *Workflow) runSyncFiles(ctx context.Context, params domain.DeploymentParams, sandboxID string) (syncFilesResult, error) {
	project, err := w.projects.FindByIDAndOrg(ctx, params.ProjectID, params.OrganizationID)
	if err != nil {
		return syncFilesResult{}, fmt.Errorf("sync-files: reload project: %w", err)
	}

	initFiles := w.templates.Tree(defaultSandboxProvider)
	fileMap := materializer.Materialize(initFiles, project.MessageHistory)

	var files []sandbox.WriteFile

	for path, entry := range fileMap {
		if sandbox.IsExcluded(path) {
			continue
		}

		files = append(files, sandbox.WriteFile{
			Path:     templates.RootPath + path,
			Content:  entry.Content,
			IsBinary: entry.IsBinary,
		})
	}

	provider, err := w.sandboxes.Get(defaultSandboxProvider)
	if err != nil {
		return syncFilesResult{}, fmt.Errorf("sync-files: %w", err)
	}

	if len(files) == 0 {
		return syncFilesResult{FilesSynced: 0, BuildReady: true}, nil
	}

	result, err := provider.WriteFiles(ctx, sandboxID, files)
	if err != nil {
		return syncFilesResult{}, fmt.Errorf("sync-files: write: %w", err)
	}

	if !result.Success {
		var failed []string

		for _, r := range result.Results {
			if !r.Success {
				failed = append(failed, r.Path)
			}
		}

		return syncFilesResult{}, fmt.Errorf("sync-files: failed to write %d file(s): %s", len(failed), strings.Join(failed, ", "))
	}

	return syncFilesResult{FilesSynced: len(files), BuildReady: true}, nil
}

// buildProjectResult is step 4's persisted result.
type buildProjectResult struct {
	BuildSuccess bool
	Output       string
}

// runBuildProject runs bun install then bun run build inside the sandbox.
func (w *Workflow) runBuildProject(ctx context.Context, sandboxID, projectPath string) (buildProjectResult, error) {
	provider, err := w.sandboxes.Get(defaultSandboxProvider)
	if err != nil {
		return buildProjectResult{}, fmt.Errorf("build-project: %w", err)
	}

	execOpts := sandbox.ExecOptions{TimeoutMS: int(w.buildTimeout.Milliseconds())}

	install, err := provider.ExecuteCommand(ctx, sandboxID, fmt.Sprintf("cd %s && bun install", projectPath), execOpts)
	if err != nil {
		return buildProjectResult{}, fmt.Errorf("build-project: bun install: %w", err)
	}

	if install.ExitCode != 0 {
		return buildProjectResult{}, apperr.BuildFailureError{ExitCode: install.ExitCode, Stdout: install.Stdout, Stderr: install.Stderr}
	}

	build, err := provider.ExecuteCommand(ctx, sandboxID, fmt.Sprintf("cd %s && bun run build", projectPath), execOpts)
	if err != nil {
		return buildProjectResult{}, fmt.Errorf("build-project: bun run build: %w", err)
	}

	if build.ExitCode != 0 {
		return buildProjectResult{}, apperr.BuildFailureError{ExitCode: build.ExitCode, Stdout: build.Stdout, Stderr: build.Stderr}
	}

	return buildProjectResult{BuildSuccess: true, Output: build.Stdout}, nil
}

// deployResult is step 5's persisted result.
type deployResult struct {
	WorkerURL string
}

// runDeployToCloudflare runs wrangler deploy and computes the worker's
// public URL.
func (w *Workflow) runDeployToCloudflare(ctx context.Context, sandboxID, workerName, projectPath string) (deployResult, error) {
	provider, err := w.sandboxes.Get(defaultSandboxProvider)
	if err != nil {
		return deployResult{}, fmt.Errorf("deploy-to-cloudflare: %w", err)
	}

	cmd := fmt.Sprintf("cd %s && bun wrangler deploy --dispatch-namespace %s --name %s", projectPath, w.namespace, workerName)

	result, err := provider.ExecuteCommand(ctx, sandboxID, cmd, sandbox.ExecOptions{TimeoutMS: int(w.deployTimeout.Milliseconds())})
	if err != nil {
		return deployResult{}, fmt.Errorf("deploy-to-cloudflare: %w", err)
	}

	if result.ExitCode != 0 {
		return deployResult{}, apperr.DeployFailureError{ExitCode: result.ExitCode, Stdout: result.Stdout, Stderr: result.Stderr}
	}

	domainName := w.dispatcher
	if domainName == "" {
		domainName = "libra.sh"
	}

	return deployResult{WorkerURL: WorkerURL(workerName, domainName)}, nil
}

// finalizeResult is step 6's persisted result.
type finalizeResult struct {
	DatabaseUpdated bool
	SandboxCleaned  bool
}

// runUpdateDatabaseAndCleanup persists the worker URL and terminates the
// sandbox in try/finally order: a DB failure fails the step; a
// termination failure is logged but not fatal. Termination is attempted
// whether or not the row update landed.
func (w *Workflow) runUpdateDatabaseAndCleanup(ctx context.Context, projectID, sandboxID, workerURL string) (result finalizeResult, err error) {
	deployed := domain.StatusDeployed

	dbErr := w.projects.Update(ctx, projectID, domain.ProjectUpdate{
		ProductionDeployURL: pointers.String(workerURL),
		DeploymentStatus:    &deployed,
	})

	defer func() {
		if dbErr != nil {
			result, err = finalizeResult{}, apperr.PersistenceFailureError{Err: dbErr}
		}
	}()

	result = finalizeResult{DatabaseUpdated: dbErr == nil}

	if sandbox.IsMock(sandboxID) {
		result.SandboxCleaned = true
		return result, nil
	}

	provider, err := w.sandboxes.Get(defaultSandboxProvider)
	if err != nil {
		logging.FromContext(ctx).Warnf("update-database-and-cleanup: no provider to terminate sandbox %s: %v", sandboxID, err)
		return result, nil
	}

	cleaned, err := provider.Terminate(ctx, sandboxID, sandbox.TerminateOptions{TimeoutMS: int(w.sandboxCleanupTimeout.Milliseconds())})
	if err != nil {
		logging.FromContext(ctx).Warnf("update-database-and-cleanup: failed to terminate sandbox %s: %v", sandboxID, err)
		return result, nil
	}

	result.SandboxCleaned = cleaned

	return result, nil
}
