package workflow

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/libra-dev/deploy-engine/internal/domain"
	"github.com/libra-dev/deploy-engine/internal/executor"
	"github.com/libra-dev/deploy-engine/internal/sandbox"
	"github.com/libra-dev/deploy-engine/internal/templates"
)

func TestWorkflow_Fail_PublishesFailedEventForStep(t *testing.T) {
	ctrl := gomock.NewController(t)

	store := newMemStepStore()
	ex := executor.New(store)

	reg := sandbox.NewRegistry()

	publisher := NewMockPublisher(ctrl)
	publisher.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event DeploymentEvent) error {
			if event.Status != domain.StatusFailed {
				t.Errorf("expected status %s, got %s", domain.StatusFailed, event.Status)
			}

			if event.Step != stepBuildProject {
				t.Errorf("expected step %s, got %s", stepBuildProject, event.Step)
			}

			if event.Error == "" {
				t.Error("expected event.Error to carry the failure message")
			}

			return nil
		}).
		Times(1)

	wf := New(Deps{
		Executor:  ex,
		Quota:     &fakeLedger{deployOK: true},
		Projects:  newFakeProjects(&domain.Project{ID: "proj-1", OrganizationID: "org-1", IsActive: true}),
		Sandboxes: reg,
		Templates: templates.NewRegistry(),
		Publisher: publisher,
	})

	instance := &domain.WorkflowInstance{ID: "wf-1", Status: domain.WorkflowRunning}

	_, err := wf.fail(context.Background(), instance, "proj-1", stepBuildProject, errors.New("bun install failed"))
	if err == nil {
		t.Fatal("expected fail to return a wrapped error")
	}
}
