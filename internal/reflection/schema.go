package reflection

import (
	"strings"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// Result is the structured output of a reflection prompt. All three keys
// must be present; empty lists are fine.
type Result struct {
	Thought       string                  `json:"thought" validate:"required"`
	Facts         []ExtractedFact         `json:"facts" validate:"required,dive"`
	Relationships []ExtractedRelationship `json:"relationships" validate:"required,dive"`
}

// ExtractedFact is a claim proposed by the model. Models use either "type"
// or "kind" for the tag.
type ExtractedFact struct {
	Claim        string          `json:"claim"`
	Kind         domain.FactKind `json:"type" validate:"oneof=fact opinion status"`
	KindAlias    domain.FactKind `json:"kind,omitempty" validate:"-"`
	InBio        bool            `json:"in_bio"`
	AlreadyKnown bool            `json:"already_known"`
}

// ExtractedRelationship is an edge proposed by the model. Entity references
// may be ids, partial ids or names.
type ExtractedRelationship struct {
	SourceEntityID string         `json:"sourceEntityId" validate:"required"`
	TargetEntityID string         `json:"targetEntityId" validate:"required"`
	Tags           []string       `json:"tags"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Normalize cleans the result before validation.
func (r *Result) Normalize() {
	r.Thought = strings.TrimSpace(r.Thought)
	for i := range r.Facts {
		f := &r.Facts[i]
		f.Claim = strings.TrimSpace(f.Claim)
		if f.Kind == "" {
			f.Kind = f.KindAlias
		}
		f.Kind = domain.FactKind(strings.ToLower(strings.TrimSpace(string(f.Kind))))
		if f.Kind == "" {
			f.Kind = domain.FactKindFact
		}
	}
	for i := range r.Relationships {
		rel := &r.Relationships[i]
		rel.SourceEntityID = strings.TrimSpace(rel.SourceEntityID)
		rel.TargetEntityID = strings.TrimSpace(rel.TargetEntityID)
		rel.Tags = unionTags(nil, rel.Tags)
	}
}

// Persistable reports whether the fact is new information worth storing.
func (f ExtractedFact) Persistable() bool {
	return !f.AlreadyKnown && !f.InBio && strings.TrimSpace(f.Claim) != ""
}

// unionTags appends the tags of b missing from a, keeping first-seen order.
// Empty tags are dropped.
func unionTags(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}
