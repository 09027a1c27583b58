package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConceptValidate(t *testing.T) {
	tests := []struct {
		name    string
		concept Concept
		wantErr bool
	}{
		{
			name:    "valid",
			concept: Concept{Name: "todo-app", Features: []string{"task lists"}},
		},
		{
			name:    "missing name",
			concept: Concept{Features: []string{"task lists"}},
			wantErr: true,
		},
		{
			name:    "whitespace name",
			concept: Concept{Name: "   ", Features: []string{"task lists"}},
			wantErr: true,
		},
		{
			name:    "no features",
			concept: Concept{Name: "todo-app"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.concept.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFingerprintStable(t *testing.T) {
	concept := Concept{Name: "todo-app", Features: []string{"task lists", "reminders"}}
	manifest := LayoutManifest{Theme: "dark", Pages: []PageHint{{Name: "Home"}}}

	fp1 := Fingerprint(concept, manifest)
	fp2 := Fingerprint(concept, manifest)

	require.NotEmpty(t, fp1)
	assert.Equal(t, fp1, fp2)
}

func TestFingerprintChangesWithInputs(t *testing.T) {
	concept := Concept{Name: "todo-app", Features: []string{"task lists"}}
	manifest := LayoutManifest{Theme: "dark"}

	base := Fingerprint(concept, manifest)

	changed := concept
	changed.Features = []string{"task lists", "reminders"}
	assert.NotEqual(t, base, Fingerprint(changed, manifest))

	assert.NotEqual(t, base, Fingerprint(concept, LayoutManifest{Theme: "light"}))
}

// The reference digest is derived content; it must not change the
// fingerprint, or resumed sessions with re-ingested references would never
// match their cached intelligence.
func TestFingerprintIgnoresReferenceDigest(t *testing.T) {
	concept := Concept{Name: "todo-app", Features: []string{"task lists"}}
	manifest := LayoutManifest{}

	base := Fingerprint(concept, manifest)

	withDigest := concept
	withDigest.ReferenceDigest = "# Some Site\n\ndistilled content"
	assert.Equal(t, base, Fingerprint(withDigest, manifest))
}

func TestIntelligenceValidFor(t *testing.T) {
	concept := Concept{Name: "todo-app", Features: []string{"task lists"}}
	manifest := LayoutManifest{Theme: "dark"}

	visual := &Proposal{Agent: AgentVisual}
	arch := &Proposal{Agent: AgentArchitecture}

	tests := []struct {
		name  string
		intel *Intelligence
		want  bool
	}{
		{
			name: "valid",
			intel: &Intelligence{
				Fingerprint:  Fingerprint(concept, manifest),
				Visual:       visual,
				Architecture: arch,
			},
			want: true,
		},
		{
			name:  "nil",
			intel: nil,
			want:  false,
		},
		{
			name: "missing visual proposal",
			intel: &Intelligence{
				Fingerprint:  Fingerprint(concept, manifest),
				Architecture: arch,
			},
			want: false,
		},
		{
			name: "missing architecture proposal",
			intel: &Intelligence{
				Fingerprint: Fingerprint(concept, manifest),
				Visual:      visual,
			},
			want: false,
		},
		{
			name: "stale fingerprint",
			intel: &Intelligence{
				Fingerprint:  "deadbeef",
				Visual:       visual,
				Architecture: arch,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.intel.ValidFor(concept, manifest))
		})
	}
}
