package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/luminaide/planforge/llm"
	"github.com/luminaide/planforge/plan"
)

// proposalSchema describes the JSON shape both agents must produce. Keeping
// one schema for both specialists is what makes their outputs comparable.
const proposalSchema = `{
  "summary": "one paragraph describing the plan",
  "data_model": [{"name": "EntityName", "fields": ["field_a", "field_b"]}],
  "auth": {"strategy": "email-password|oauth|magic-link|none", "roles": ["user"]},
  "integrations": ["stripe"],
  "routes": [{"path": "/", "title": "Home"}],
  "presentation": {"theme": "light|dark|...", "layout_notes": ["note"]}
}`

const visualSystemPrompt = `You are a senior product designer planning the structure of a web application.
Interpret the concept and the layout manifest visually: decide pages, navigation flow,
and presentation. Still propose the full structure including data model and auth, since
your plan must stand on its own.

Respond with ONLY a JSON object matching this schema:
` + proposalSchema

const architectureSystemPrompt = `You are a principal software architect planning the structure of a web application.
Decide the data model, authentication approach, external integrations, and routing that
best serve the concept. Presentation details matter less than structural soundness, but
fill them in.

Respond with ONLY a JSON object matching this schema:
` + proposalSchema

// buildMessages constructs the chat history for one agent invocation.
func buildMessages(kind plan.AgentKind, concept plan.Concept, manifest plan.LayoutManifest) ([]llm.Message, error) {
	system := architectureSystemPrompt
	if kind == plan.AgentVisual {
		system = visualSystemPrompt
	}

	// The reference digest is visual context; the architecture specialist
	// plans from the structured concept alone.
	digest := ""
	if kind == plan.AgentVisual {
		digest = concept.ReferenceDigest
	}
	concept.ReferenceDigest = ""

	conceptJSON, err := json.MarshalIndent(concept, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal concept: %w", err)
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal layout manifest: %w", err)
	}

	var b strings.Builder
	b.WriteString("Concept:\n")
	b.Write(conceptJSON)
	b.WriteString("\n\nLayout manifest:\n")
	b.Write(manifestJSON)
	if digest != "" {
		b.WriteString("\n\nReference site content (visual inspiration):\n")
		b.WriteString(digest)
	}
	b.WriteString("\n\nProduce your proposal now.")

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: b.String()},
	}, nil
}

// normalizeProposal canonicalizes free-form model output so axis comparison
// is not thrown off by casing or stray whitespace.
func normalizeProposal(p *plan.Proposal) {
	for i := range p.DataModel {
		p.DataModel[i].Name = strings.TrimSpace(p.DataModel[i].Name)
		for j := range p.DataModel[i].Fields {
			p.DataModel[i].Fields[j] = strings.ToLower(strings.TrimSpace(p.DataModel[i].Fields[j]))
		}
	}

	p.Auth.Strategy = strings.ToLower(strings.TrimSpace(p.Auth.Strategy))
	if p.Auth.Strategy == "" {
		p.Auth.Strategy = "none"
	}
	for i := range p.Auth.Roles {
		p.Auth.Roles[i] = strings.ToLower(strings.TrimSpace(p.Auth.Roles[i]))
	}

	for i := range p.Integrations {
		p.Integrations[i] = strings.ToLower(strings.TrimSpace(p.Integrations[i]))
	}

	for i := range p.Routes {
		path := strings.TrimSpace(p.Routes[i].Path)
		if path == "" {
			path = "/"
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		if path != "/" {
			path = strings.TrimSuffix(path, "/")
		}
		p.Routes[i].Path = strings.ToLower(path)
	}
}
