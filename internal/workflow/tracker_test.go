package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-dev/deploy-engine/internal/domain"
)

func TestTracker_StartRecordFinish(t *testing.T) {
	tr := newTracker()

	_, _, ok := tr.Get("missing")
	assert.False(t, ok)

	tr.start("wf-1")

	instance, steps, ok := tr.Get("wf-1")
	require.True(t, ok)
	assert.Equal(t, domain.WorkflowRunning, instance.Status)
	assert.Empty(t, steps)

	startedAt := time.Now()
	tr.recordStep("wf-1", "validate-and-prepare", startedAt, nil)
	tr.recordStep("wf-1", "create-sandbox", startedAt, assert.AnError)

	_, steps, ok = tr.Get("wf-1")
	require.True(t, ok)
	require.Len(t, steps, 2)
	assert.True(t, steps[0].Succeeded)
	assert.False(t, steps[1].Succeeded)
	assert.Equal(t, assert.AnError.Error(), steps[1].ErrorMsg)

	tr.finish("wf-1", domain.WorkflowErrored)

	instance, _, ok = tr.Get("wf-1")
	require.True(t, ok)
	assert.Equal(t, domain.WorkflowErrored, instance.Status)
}

func TestWorkflow_RunAsyncThenGetReflectsCompletion(t *testing.T) {
	project := &domain.Project{ID: "proj-8", OrganizationID: "org-1", IsActive: true}
	provider := &fakeProvider{sandboxID: "sbx-8"}

	wf, _ := newTestWorkflow(t, project, true, provider)

	workflowID := wf.RunAsync(context.Background(), "", testParams("proj-8"))
	require.NotEmpty(t, workflowID)

	require.Eventually(t, func() bool {
		instance, _, ok := wf.Get(workflowID)
		return ok && instance.Status != domain.WorkflowRunning
	}, 2*time.Second, 10*time.Millisecond)

	instance, steps, ok := wf.Get(workflowID)
	require.True(t, ok)
	assert.Equal(t, domain.WorkflowCompleted, instance.Status)
	assert.Len(t, steps, 6)
}
