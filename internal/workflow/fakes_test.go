package workflow

import (
	"context"
	"sync"

	"github.com/libra-dev/deploy-engine/internal/apperr"
	"github.com/libra-dev/deploy-engine/internal/domain"
	"github.com/libra-dev/deploy-engine/internal/quota"
	"github.com/libra-dev/deploy-engine/internal/sandbox"
)

// fakeLedger is an in-memory quota.Ledger stand-in.
type fakeLedger struct {
	deployOK bool
}

func (f *fakeLedger) DeductDeploy(ctx context.Context, orgID string) (bool, error) {
	return f.deployOK, nil
}

func (f *fakeLedger) DeductUpload(ctx context.Context, orgID string) (bool, error) { return true, nil }

func (f *fakeLedger) RestoreUpload(ctx context.Context, orgID string) (quota.RestoreResult, error) {
	return quota.RestoreResult{}, nil
}

// fakeProjects is an in-memory projectstore.Store stand-in.
type fakeProjects struct {
	mu       sync.Mutex
	projects map[string]*domain.Project
	updates  []domain.ProjectUpdate
}

func newFakeProjects(p *domain.Project) *fakeProjects {
	return &fakeProjects{projects: map[string]*domain.Project{p.ID: p}}
}

func (f *fakeProjects) FindByIDAndOrg(ctx context.Context, projectID, organizationID string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.projects[projectID]
	if !ok || p.OrganizationID != organizationID {
		return nil, apperr.ErrProjectNotFound
	}

	cp := *p

	return &cp, nil
}

func (f *fakeProjects) Update(ctx context.Context, projectID string, u domain.ProjectUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.projects[projectID]
	if !ok {
		return apperr.ErrProjectNotFound
	}

	if u.ProductionDeployURL != nil {
		p.ProductionDeployURL = u.ProductionDeployURL
	}

	if u.DeploymentStatus != nil {
		p.DeploymentStatus = *u.DeploymentStatus
	}

	if u.WorkflowID != nil {
		p.WorkflowID = u.WorkflowID
	}

	f.updates = append(f.updates, u)

	return nil
}

// fakeProvider is a sandbox.Provider stand-in that counts Create calls so
// tests can assert idempotency on resume.
type fakeProvider struct {
	mu            sync.Mutex
	createCalls   int
	sandboxID     string
	writeErr      error
	execResults   []sandbox.ExecResult
	execIdx       int
	terminated    []string
	createParams  []sandbox.CreateParams
	execOpts      []sandbox.ExecOptions
	terminateOpts []sandbox.TerminateOptions
}

func (f *fakeProvider) Create(ctx context.Context, params sandbox.CreateParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	f.createParams = append(f.createParams, params)

	return f.sandboxID, nil
}

func (f *fakeProvider) Connect(ctx context.Context, id string) error { return nil }

func (f *fakeProvider) WriteFiles(ctx context.Context, id string, files []sandbox.WriteFile) (sandbox.WriteFilesResult, error) {
	if f.writeErr != nil {
		return sandbox.WriteFilesResult{}, f.writeErr
	}

	results := make([]sandbox.WriteResult, len(files))
	for i, file := range files {
		results[i] = sandbox.WriteResult{Path: file.Path, Success: true}
	}

	return sandbox.WriteFilesResult{Success: true, Results: results}, nil
}

func (f *fakeProvider) ExecuteCommand(ctx context.Context, id, cmd string, opts sandbox.ExecOptions) (sandbox.ExecResult, error) {
	f.mu.Lock()
	f.execOpts = append(f.execOpts, opts)
	f.mu.Unlock()

	if f.execIdx < len(f.execResults) {
		r := f.execResults[f.execIdx]
		f.execIdx++

		return r, nil
	}

	return sandbox.ExecResult{ExitCode: 0}, nil
}

func (f *fakeProvider) Terminate(ctx context.Context, id string, opts sandbox.TerminateOptions) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.terminated = append(f.terminated, id)
	f.terminateOpts = append(f.terminateOpts, opts)

	return true, nil
}

// memStepStore is a minimal in-memory executor.Store, duplicated from the
// executor package's own test double since cross-package test imports of
// _test.go files aren't possible in Go.
type memStepStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStepStore() *memStepStore {
	return &memStepStore{data: make(map[string][]byte)}
}

func (m *memStepStore) key(workflowID, stepName string) string { return workflowID + "/" + stepName }

func (m *memStepStore) Load(_ context.Context, workflowID, stepName string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.data[m.key(workflowID, stepName)]

	return raw, ok, nil
}

func (m *memStepStore) Save(_ context.Context, workflowID, stepName string, result []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[m.key(workflowID, stepName)] = result

	return nil
}
