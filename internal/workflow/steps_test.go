package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-dev/deploy-engine/internal/domain"
	"github.com/libra-dev/deploy-engine/internal/sandbox"
	"github.com/libra-dev/deploy-engine/internal/templates"
)

// capturingProvider records the files passed to WriteFiles.
type capturingProvider struct {
	fakeProvider
	written []sandbox.WriteFile
}

func (c *capturingProvider) WriteFiles(ctx context.Context, id string, files []sandbox.WriteFile) (sandbox.WriteFilesResult, error) {
	c.written = files
	return c.fakeProvider.WriteFiles(ctx, id, files)
}

func TestRunSyncFiles_FiltersExcludedAndPrefixesRoot(t *testing.T) {
	project := &domain.Project{
		ID:             "proj-6",
		OrganizationID: "org-1",
		IsActive:       true,
		MessageHistory: []byte(`[]`),
	}

	provider := &capturingProvider{}

	reg := sandbox.NewRegistry()
	reg.Register("e2b", func() sandbox.Provider { return provider })

	wf := New(Deps{
		Projects:  newFakeProjects(project),
		Sandboxes: reg,
		Templates: templates.NewRegistry(),
	})

	result, err := wf.runSyncFiles(context.Background(), testParams("proj-6"), "sbx-6")
	require.NoError(t, err)
	assert.True(t, result.BuildReady)
	assert.Equal(t, result.FilesSynced, len(provider.written))

	for _, f := range provider.written {
		assert.Truef(t, len(f.Path) > 0 && f.Path[0:len(templates.RootPath)] == templates.RootPath, "expected %s to be rooted under %s", f.Path, templates.RootPath)

		relative := f.Path[len(templates.RootPath):]
		assert.False(t, sandbox.IsExcluded(relative), "excluded path %s leaked into the write set", relative)
	}

	// tailwind.config.ts, tsconfig.json, and components.json are all
	// excluded by the closed set; package.json is kept.
	var sawPackageJSON bool

	for _, f := range provider.written {
		if f.Path == templates.RootPath+"package.json" {
			sawPackageJSON = true
		}

		assert.NotEqual(t, templates.RootPath+"tailwind.config.ts", f.Path)
		assert.NotEqual(t, templates.RootPath+"tsconfig.json", f.Path)
	}

	assert.True(t, sawPackageJSON)
}

// TestRunBuildProject_UsesConfiguredBuildTimeout asserts both bun commands
// run with the configured build timeout rather than an unbounded zero value.
func TestRunBuildProject_UsesConfiguredBuildTimeout(t *testing.T) {
	provider := &fakeProvider{sandboxID: "sbx-build"}

	reg := sandbox.NewRegistry()
	reg.Register("e2b", func() sandbox.Provider { return provider })

	wf := New(Deps{
		Sandboxes:    reg,
		Templates:    templates.NewRegistry(),
		BuildTimeout: 12 * time.Second,
	})

	_, err := wf.runBuildProject(context.Background(), "sbx-build", templates.RootPath)
	require.NoError(t, err)

	require.Len(t, provider.execOpts, 2)
	for _, opts := range provider.execOpts {
		assert.Equal(t, 12000, opts.TimeoutMS)
	}
}

// TestRunDeployToCloudflare_UsesConfiguredDeployTimeout mirrors the build
// test for step 5's wrangler deploy command.
func TestRunDeployToCloudflare_UsesConfiguredDeployTimeout(t *testing.T) {
	provider := &fakeProvider{sandboxID: "sbx-deploy"}

	reg := sandbox.NewRegistry()
	reg.Register("e2b", func() sandbox.Provider { return provider })

	wf := New(Deps{
		Sandboxes:     reg,
		Templates:     templates.NewRegistry(),
		DeployTimeout: 20 * time.Second,
	})

	_, err := wf.runDeployToCloudflare(context.Background(), "sbx-deploy", "worker-1", templates.RootPath)
	require.NoError(t, err)

	require.Len(t, provider.execOpts, 1)
	assert.Equal(t, 20000, provider.execOpts[0].TimeoutMS)
}

// TestRunUpdateDatabaseAndCleanup_UsesConfiguredCleanupTimeout asserts step
// 6's Terminate call honors the configured sandbox-cleanup timeout.
func TestRunUpdateDatabaseAndCleanup_UsesConfiguredCleanupTimeout(t *testing.T) {
	project := &domain.Project{ID: "proj-11", OrganizationID: "org-1", IsActive: true}
	provider := &fakeProvider{sandboxID: "sbx-11"}

	reg := sandbox.NewRegistry()
	reg.Register("e2b", func() sandbox.Provider { return provider })

	wf := New(Deps{
		Projects:              newFakeProjects(project),
		Sandboxes:             reg,
		Templates:             templates.NewRegistry(),
		SandboxCleanupTimeout: 9 * time.Second,
	})

	_, err := wf.runUpdateDatabaseAndCleanup(context.Background(), "proj-11", "remote-sandbox-id", "https://worker-11.libra.sh")
	require.NoError(t, err)

	require.Len(t, provider.terminateOpts, 1)
	assert.Equal(t, 9000, provider.terminateOpts[0].TimeoutMS)
}

func TestRunSyncFiles_EmptyFileMapIsNoOp(t *testing.T) {
	project := &domain.Project{
		ID:             "proj-7",
		OrganizationID: "org-1",
		IsActive:       true,
	}

	provider := &capturingProvider{}

	reg := sandbox.NewRegistry()
	reg.Register("e2b", func() sandbox.Provider { return provider })

	emptyTemplates := templates.NewRegistryWithTrees(map[string][]domain.FileTreeNode{})

	wf := New(Deps{
		Projects:  newFakeProjects(project),
		Sandboxes: reg,
		Templates: emptyTemplates,
	})

	result, err := wf.runSyncFiles(context.Background(), testParams("proj-7"), "sbx-7")
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesSynced)
	assert.True(t, result.BuildReady)
}
