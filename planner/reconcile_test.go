package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminaide/planforge/plan"
)

// agreeingProposal returns a proposal that agrees with itself on every axis.
func agreeingProposal(kind plan.AgentKind) *plan.Proposal {
	return &plan.Proposal{
		Agent:   kind,
		Summary: "A task tracker",
		DataModel: []plan.EntitySpec{
			{Name: "user", Fields: []string{"email"}},
			{Name: "task", Fields: []string{"title", "done"}},
		},
		Auth:         plan.AuthSpec{Strategy: "email-password", Roles: []string{"user"}},
		Integrations: []string{"stripe"},
		Routes: []plan.RouteSpec{
			{Path: "/", Title: "Home"},
			{Path: "/tasks", Title: "Tasks"},
		},
	}
}

func TestScoreDisagreementIdentical(t *testing.T) {
	visual := agreeingProposal(plan.AgentVisual)
	arch := agreeingProposal(plan.AgentArchitecture)

	score, axes := scoreDisagreement(visual, arch)

	assert.Zero(t, score)
	require.Len(t, axes, 4)
	for _, axis := range axes {
		assert.Zero(t, axis.Disagreement, "axis %s", axis.Name)
		assert.Empty(t, axis.Detail, "axis %s", axis.Name)
	}
}

func TestScoreDisagreementAuthStrategy(t *testing.T) {
	visual := agreeingProposal(plan.AgentVisual)
	arch := agreeingProposal(plan.AgentArchitecture)
	arch.Auth.Strategy = "oauth"

	score, axes := scoreDisagreement(visual, arch)

	// Strategy mismatch is maximal disagreement on the auth axis.
	assert.InDelta(t, weightAuth, score, 1e-9)

	var auth axisResult
	for _, axis := range axes {
		if axis.Name == "authentication" {
			auth = axis
		}
	}
	assert.Equal(t, 1.0, auth.Disagreement)
	assert.Contains(t, auth.Detail, "email-password vs oauth")
}

func TestScoreDisagreementAuthRolesOnly(t *testing.T) {
	visual := agreeingProposal(plan.AgentVisual)
	arch := agreeingProposal(plan.AgentArchitecture)
	arch.Auth.Roles = []string{"admin"}

	score, _ := scoreDisagreement(visual, arch)

	// Same strategy, disjoint roles: half the auth weight.
	assert.InDelta(t, weightAuth*0.5, score, 1e-9)
}

func TestScoreDisagreementDataModel(t *testing.T) {
	visual := agreeingProposal(plan.AgentVisual)
	arch := agreeingProposal(plan.AgentArchitecture)
	arch.DataModel = []plan.EntitySpec{
		{Name: "account"},
		{Name: "project"},
	}

	score, _ := scoreDisagreement(visual, arch)
	assert.InDelta(t, weightDataModel, score, 1e-9)
}

func TestScoreDisagreementPartialOverlap(t *testing.T) {
	visual := agreeingProposal(plan.AgentVisual)
	arch := agreeingProposal(plan.AgentArchitecture)
	// Shares "user", adds "project": intersection 1, union 3.
	arch.DataModel = []plan.EntitySpec{
		{Name: "user"},
		{Name: "project"},
	}

	score, _ := scoreDisagreement(visual, arch)
	assert.InDelta(t, weightDataModel*(1-1.0/3.0), score, 1e-9)
}

// Threshold calibration: disagreement confined to either heavy axis
// escalates on its own; the lighter axes alone still merge.
func TestThresholdCalibration(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(p *plan.Proposal)
		wantEscalates bool
	}{
		{
			name:          "auth strategy only",
			mutate:        func(p *plan.Proposal) { p.Auth.Strategy = "oauth" },
			wantEscalates: true,
		},
		{
			name: "data model only",
			mutate: func(p *plan.Proposal) {
				p.DataModel = []plan.EntitySpec{{Name: "account"}, {Name: "project"}}
			},
			wantEscalates: true,
		},
		{
			name:          "integrations only",
			mutate:        func(p *plan.Proposal) { p.Integrations = []string{"paypal"} },
			wantEscalates: false,
		},
		{
			name: "routing only",
			mutate: func(p *plan.Proposal) {
				p.Routes = []plan.RouteSpec{{Path: "/dashboard"}, {Path: "/settings"}}
			},
			wantEscalates: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visual := agreeingProposal(plan.AgentVisual)
			arch := agreeingProposal(plan.AgentArchitecture)
			tt.mutate(arch)

			score, _ := scoreDisagreement(visual, arch)
			assert.Equal(t, tt.wantEscalates, score >= defaultEscalationThreshold,
				"score %.3f vs threshold %.3f", score, defaultEscalationThreshold)
		})
	}
}

func TestBuildReasonNamesDivergedAxes(t *testing.T) {
	visual := agreeingProposal(plan.AgentVisual)
	arch := agreeingProposal(plan.AgentArchitecture)
	arch.Auth.Strategy = "oauth"

	_, axes := scoreDisagreement(visual, arch)
	reason := buildReason(axes)

	assert.Contains(t, reason, "authentication")
	assert.Contains(t, reason, "email-password vs oauth")
	assert.Contains(t, reason, "human choice")
	assert.NotContains(t, reason, "data model")
}

func TestBuildReasonFallsBackToTopContributor(t *testing.T) {
	visual := agreeingProposal(plan.AgentVisual)
	arch := agreeingProposal(plan.AgentArchitecture)
	// Mild divergence on two axes, neither crossing the per-axis bar.
	arch.DataModel = append(arch.DataModel, plan.EntitySpec{Name: "tag"})
	arch.Routes = append(arch.Routes, plan.RouteSpec{Path: "/tags"})

	_, axes := scoreDisagreement(visual, arch)
	reason := buildReason(axes)

	// Data model carries the most weight, so it names the reason.
	assert.Contains(t, reason, "data model")
}

func TestJaccardDistance(t *testing.T) {
	set := func(items ...string) map[string]struct{} {
		s := make(map[string]struct{}, len(items))
		for _, it := range items {
			s[it] = struct{}{}
		}
		return s
	}

	assert.Zero(t, jaccardDistance(set(), set()))
	assert.Zero(t, jaccardDistance(set("a", "b"), set("a", "b")))
	assert.Equal(t, 1.0, jaccardDistance(set("a"), set("b")))
	assert.InDelta(t, 0.5, jaccardDistance(set("a", "b"), set("a")), 1e-9)
}
