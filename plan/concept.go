// Package plan defines the domain types shared by the planning pipeline:
// app concepts, layout manifests, agent proposals, and reconciled
// architectures.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Concept is the structured description of the application to be planned.
type Concept struct {
	// Name is the working title of the application.
	Name string `json:"name"`

	// Description is a short natural-language summary of the app.
	Description string `json:"description,omitempty"`

	// Features lists the user-facing capabilities the app must have.
	Features []string `json:"features"`

	// TechnicalNeeds lists known technical requirements (e.g. "payments",
	// "file uploads").
	TechnicalNeeds []string `json:"technical_needs,omitempty"`

	// ReferenceURL optionally points at an existing site used as visual
	// inspiration. Resolved to ReferenceDigest before planning.
	ReferenceURL string `json:"reference_url,omitempty"`

	// ReferenceDigest holds readable content distilled from ReferenceURL,
	// fed to the visual-specialist prompt. Empty when no reference was
	// given or ingestion failed.
	ReferenceDigest string `json:"reference_digest,omitempty"`
}

// Validate checks that the concept carries enough signal to plan from.
func (c *Concept) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("concept name is required")
	}
	if len(c.Features) == 0 {
		return fmt.Errorf("concept must list at least one feature")
	}
	return nil
}

// PageHint describes one desired page and its sections.
type PageHint struct {
	Name     string   `json:"name"`
	Sections []string `json:"sections,omitempty"`
}

// LayoutManifest carries the visual/UX structure gathered earlier in the
// product flow.
type LayoutManifest struct {
	Pages []PageHint `json:"pages,omitempty"`
	Theme string     `json:"theme,omitempty"`
	Notes []string   `json:"notes,omitempty"`
}

// Fingerprint returns a stable hash of a concept/manifest pair. Cached
// intelligence is only valid for the exact pair it was computed from.
func Fingerprint(concept Concept, manifest LayoutManifest) string {
	// ReferenceDigest is derived content; it doesn't change what the
	// agents were asked to plan.
	concept.ReferenceDigest = ""

	payload, err := json.Marshal(struct {
		Concept  Concept        `json:"concept"`
		Manifest LayoutManifest `json:"manifest"`
	}{concept, manifest})
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
