package quota

import (
	"context"
	"fmt"
)

// StaticPlanDefaults is a fixed, in-memory plan-defaults table. It exists
// so the FREE-period refresh path has a concrete PlanDefaults to call
// without requiring an external billing service; callers with one can
// supply their own implementation instead.
type StaticPlanDefaults struct {
	plans map[string]DeployUploadDefaults
}

// NewStaticPlanDefaults builds a table from planID -> defaults.
func NewStaticPlanDefaults(plans map[string]DeployUploadDefaults) *StaticPlanDefaults {
	return &StaticPlanDefaults{plans: plans}
}

func (s *StaticPlanDefaults) Defaults(_ context.Context, planID string) (DeployUploadDefaults, error) {
	d, ok := s.plans[planID]
	if !ok {
		return DeployUploadDefaults{}, fmt.Errorf("quota: no plan defaults registered for plan %q", planID)
	}

	return d, nil
}
