package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/luminaide/planforge/plan"
)

// defaultEscalationThreshold is the disagreement score at or above which the
// run escalates instead of merging. Calibrated so that full disagreement on
// either heavy axis (data model, auth) escalates on its own, while
// integration- or routing-only divergence still merges.
const defaultEscalationThreshold = 0.25

// Axis weights. Data-model and auth divergence is costlier to fix after code
// generation than presentational or integration choices, so those axes
// dominate the score.
const (
	weightDataModel    = 0.35
	weightAuth         = 0.30
	weightIntegrations = 0.20
	weightRouting      = 0.15
)

// axisResult is one comparison axis's contribution to the disagreement score.
type axisResult struct {
	// Name is the human-readable axis name used in escalation reasons.
	Name string

	// Weight is the axis weight in the total score.
	Weight float64

	// Disagreement is the raw per-axis disagreement in [0,1].
	Disagreement float64

	// Detail is a short phrase describing what diverged, empty when the
	// axis agrees.
	Detail string
}

// weighted returns the axis's contribution to the total score.
func (r axisResult) weighted() float64 {
	return r.Weight * r.Disagreement
}

// scoreDisagreement compares two proposals along the four structural axes
// and returns the weighted total plus per-axis results.
func scoreDisagreement(visual, arch *plan.Proposal) (float64, []axisResult) {
	results := []axisResult{
		dataModelAxis(visual, arch),
		authAxis(visual, arch),
		integrationsAxis(visual, arch),
		routingAxis(visual, arch),
	}

	total := 0.0
	for _, r := range results {
		total += r.weighted()
	}
	return total, results
}

func dataModelAxis(visual, arch *plan.Proposal) axisResult {
	visualEntities := entityNames(visual.DataModel)
	archEntities := entityNames(arch.DataModel)

	d := jaccardDistance(visualEntities, archEntities)

	detail := ""
	if d > 0 {
		detail = fmt.Sprintf("visual proposes entities %s, architecture proposes %s",
			joinSet(visualEntities), joinSet(archEntities))
	}

	return axisResult{Name: "data model", Weight: weightDataModel, Disagreement: d, Detail: detail}
}

func authAxis(visual, arch *plan.Proposal) axisResult {
	r := axisResult{Name: "authentication", Weight: weightAuth}

	if visual.Auth.Strategy != arch.Auth.Strategy {
		r.Disagreement = 1.0
		r.Detail = fmt.Sprintf("%s vs %s", visual.Auth.Strategy, arch.Auth.Strategy)
		return r
	}

	// Same strategy; role divergence is half as severe.
	roleDistance := jaccardDistance(toSet(visual.Auth.Roles), toSet(arch.Auth.Roles))
	r.Disagreement = roleDistance * 0.5
	if r.Disagreement > 0 {
		r.Detail = fmt.Sprintf("same strategy (%s) but different roles", visual.Auth.Strategy)
	}
	return r
}

func integrationsAxis(visual, arch *plan.Proposal) axisResult {
	visualSet := toSet(visual.Integrations)
	archSet := toSet(arch.Integrations)

	d := jaccardDistance(visualSet, archSet)

	detail := ""
	if d > 0 {
		detail = fmt.Sprintf("visual expects %s, architecture expects %s",
			joinSet(visualSet), joinSet(archSet))
	}

	return axisResult{Name: "integrations", Weight: weightIntegrations, Disagreement: d, Detail: detail}
}

func routingAxis(visual, arch *plan.Proposal) axisResult {
	visualRoutes := routePaths(visual.Routes)
	archRoutes := routePaths(arch.Routes)

	d := jaccardDistance(visualRoutes, archRoutes)

	detail := ""
	if d > 0 {
		detail = fmt.Sprintf("visual maps %s, architecture maps %s",
			joinSet(visualRoutes), joinSet(archRoutes))
	}

	return axisResult{Name: "routing", Weight: weightRouting, Disagreement: d, Detail: detail}
}

// buildReason summarizes the axes that disagreed most into a human-readable
// escalation reason.
func buildReason(results []axisResult) string {
	diverged := make([]axisResult, 0, len(results))
	for _, r := range results {
		if r.Disagreement >= 0.5 {
			diverged = append(diverged, r)
		}
	}

	// Nothing crossed the per-axis bar but the weighted total did: name the
	// single largest contributor.
	if len(diverged) == 0 {
		top := results[0]
		for _, r := range results[1:] {
			if r.weighted() > top.weighted() {
				top = r
			}
		}
		diverged = append(diverged, top)
	}

	sort.SliceStable(diverged, func(i, j int) bool {
		return diverged[i].weighted() > diverged[j].weighted()
	})

	parts := make([]string, 0, len(diverged))
	for _, r := range diverged {
		if r.Detail != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", r.Name, r.Detail))
		} else {
			parts = append(parts, r.Name)
		}
	}

	return fmt.Sprintf("The specialists disagree on %s; a human choice between the two proposals is required.",
		strings.Join(parts, " and "))
}

// entityNames lowercases entity names into a set.
func entityNames(entities []plan.EntitySpec) map[string]struct{} {
	set := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		name := strings.ToLower(strings.TrimSpace(e.Name))
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// routePaths collects route paths into a set.
func routePaths(routes []plan.RouteSpec) map[string]struct{} {
	set := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		if r.Path != "" {
			set[r.Path] = struct{}{}
		}
	}
	return set
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// jaccardDistance is 1 - |A∩B| / |A∪B|. Two empty sets agree perfectly.
func jaccardDistance(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection

	return 1 - float64(intersection)/float64(union)
}

// joinSet renders a set as a sorted, comma-separated list.
func joinSet(set map[string]struct{}) string {
	items := make([]string, 0, len(set))
	for k := range set {
		items = append(items, k)
	}
	sort.Strings(items)
	return strings.Join(items, ", ")
}
