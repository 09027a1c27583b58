package plan

import "time"

// AgentKind selects one of the two specialist reasoning agents.
type AgentKind string

const (
	// AgentVisual is tuned for visual/UX interpretation.
	AgentVisual AgentKind = "visual"

	// AgentArchitecture is tuned for structural/code architecture.
	AgentArchitecture AgentKind = "architecture"
)

// EntitySpec describes one entity in a proposed data model.
type EntitySpec struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields,omitempty"`
}

// AuthSpec describes a proposed authentication/authorization approach.
type AuthSpec struct {
	// Strategy names the mechanism, e.g. "email-password", "oauth",
	// "magic-link", "none".
	Strategy string `json:"strategy"`

	// Roles lists the access roles the app distinguishes.
	Roles []string `json:"roles,omitempty"`
}

// RouteSpec describes one route in the proposed navigation shape.
type RouteSpec struct {
	Path  string `json:"path"`
	Title string `json:"title,omitempty"`
}

// PresentationSpec captures the presentational decisions of a proposal.
type PresentationSpec struct {
	Theme       string   `json:"theme,omitempty"`
	LayoutNotes []string `json:"layout_notes,omitempty"`
}

// Proposal is one agent's structural plan for a concept, normalized so the
// orchestrator can compare proposals along fixed axes without knowing
// anything agent-specific.
type Proposal struct {
	// Agent identifies which specialist produced this proposal.
	Agent AgentKind `json:"agent"`

	// Summary is a short natural-language description of the plan.
	Summary string `json:"summary,omitempty"`

	// DataModel is the proposed entity set.
	DataModel []EntitySpec `json:"data_model"`

	// Auth is the proposed authentication approach.
	Auth AuthSpec `json:"auth"`

	// Integrations lists proposed external services.
	Integrations []string `json:"integrations,omitempty"`

	// Routes is the proposed routing/navigation shape.
	Routes []RouteSpec `json:"routes"`

	// Presentation holds visual decisions. Mostly populated by the
	// visual specialist.
	Presentation PresentationSpec `json:"presentation,omitempty"`
}

// Architecture is a fully reconciled build plan, consumable by downstream
// code generation.
type Architecture struct {
	Summary      string           `json:"summary,omitempty"`
	DataModel    []EntitySpec     `json:"data_model"`
	Auth         AuthSpec         `json:"auth"`
	Integrations []string         `json:"integrations,omitempty"`
	Routes       []RouteSpec      `json:"routes"`
	Presentation PresentationSpec `json:"presentation,omitempty"`

	// SingleSourced is set when only one agent's proposal survived and the
	// plan was not cross-verified by the other specialist.
	SingleSourced bool `json:"single_sourced,omitempty"`

	// SourceAgent names the surviving agent when SingleSourced is set.
	SourceAgent AgentKind `json:"source_agent,omitempty"`
}

// Intelligence is a previously-computed intermediate planning result. A
// retried or continued session presents it to skip agent calls already paid
// for.
type Intelligence struct {
	// Fingerprint ties the cached proposals to the concept/manifest pair
	// they were computed from.
	Fingerprint string `json:"fingerprint"`

	Visual       *Proposal `json:"visual,omitempty"`
	Architecture *Proposal `json:"architecture,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ValidFor reports whether the cached intelligence can stand in for fresh
// agent calls on the given inputs. Both proposals must be present and the
// fingerprint must match.
func (i *Intelligence) ValidFor(concept Concept, manifest LayoutManifest) bool {
	if i == nil || i.Visual == nil || i.Architecture == nil {
		return false
	}
	return i.Fingerprint == Fingerprint(concept, manifest)
}
