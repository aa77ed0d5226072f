package registry

import "github.com/coreflow-dev/agentcore/pkg/model"

// RegisterAll registers every blueprint in bps, used at startup with
// blueprint.Seeds() to populate the catalog before serving traffic. The
// seed catalog is trusted input (no duplicate names), so a registration
// failure here is a startup bug, not a runtime condition callers handle —
// the first error aborts the remaining registrations.
func (r *Registry) RegisterAll(bps []model.Blueprint) error {
	for _, bp := range bps {
		if err := r.RegisterBlueprint(bp); err != nil {
			return err
		}
	}
	return nil
}
