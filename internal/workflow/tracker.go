package workflow

import (
	"sync"
	"time"

	"github.com/libra-dev/deploy-engine/internal/domain"
)

// tracker is the in-memory instance/step status table backing the
// invocation contract's get(id) operation. It is separate from the Step
// Executor's durable Store: the tracker is a best-effort
// status cache for polling callers and is not needed for resume — a
// process restart loses tracker state but not workflow progress, since
// the executor's own persisted results are what resume actually reads.
type tracker struct {
	mu        sync.Mutex
	instances map[string]*trackedInstance
}

type trackedInstance struct {
	instance domain.WorkflowInstance
	steps    []domain.StepStatus
}

func newTracker() *tracker {
	return &tracker{instances: make(map[string]*trackedInstance)}
}

func (t *tracker) start(workflowID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.instances[workflowID] = &trackedInstance{
		instance: domain.WorkflowInstance{ID: workflowID, Status: domain.WorkflowRunning},
	}
}

func (t *tracker) recordStep(workflowID, stepName string, startedAt time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.instances[workflowID]
	if !ok {
		return
	}

	status := domain.StepStatus{
		Name:       stepName,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Succeeded:  err == nil,
	}

	if err != nil {
		status.ErrorMsg = err.Error()
	}

	entry.steps = append(entry.steps, status)
}

func (t *tracker) finish(workflowID string, status domain.WorkflowStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.instances[workflowID]
	if !ok {
		return
	}

	entry.instance.Status = status
}

// Get returns the tracked instance and its per-step status, for the
// invocation contract's get(id) operation.
func (t *tracker) Get(workflowID string) (domain.WorkflowInstance, []domain.StepStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.instances[workflowID]
	if !ok {
		return domain.WorkflowInstance{}, nil, false
	}

	steps := make([]domain.StepStatus, len(entry.steps))
	copy(steps, entry.steps)

	return entry.instance, steps, true
}
