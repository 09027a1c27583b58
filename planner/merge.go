package planner

import (
	"sort"
	"strings"

	"github.com/luminaide/planforge/plan"
)

// mergeProposals combines two agreeing proposals into one architecture.
// Structural decisions (data model, auth, integrations, routing) are taken
// from the architecture specialist; presentational decisions from the visual
// specialist.
func mergeProposals(visual, arch *plan.Proposal) *plan.Architecture {
	merged := &plan.Architecture{
		Summary:      arch.Summary,
		DataModel:    arch.DataModel,
		Auth:         arch.Auth,
		Integrations: unionStrings(arch.Integrations, visual.Integrations),
		Routes:       arch.Routes,
		Presentation: visual.Presentation,
	}

	if merged.Summary == "" {
		merged.Summary = visual.Summary
	}
	if merged.Presentation.Theme == "" && len(merged.Presentation.LayoutNotes) == 0 {
		merged.Presentation = arch.Presentation
	}

	return merged
}

// singleSourced builds an architecture from the one surviving proposal,
// flagged so downstream consumers know it was never cross-verified.
func singleSourced(p *plan.Proposal) *plan.Architecture {
	return &plan.Architecture{
		Summary:       p.Summary,
		DataModel:     p.DataModel,
		Auth:          p.Auth,
		Integrations:  p.Integrations,
		Routes:        p.Routes,
		Presentation:  p.Presentation,
		SingleSourced: true,
		SourceAgent:   p.Agent,
	}
}

// unionStrings merges two lists into a sorted, deduplicated one. An
// integration named by either specialist ends up in the plan.
func unionStrings(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, v := range a {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	for _, v := range b {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}

	if len(set) == 0 {
		return nil
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
