// Package resolver maps loosely specified entity references, as produced by a
// language model, onto the entities known in a room.
package resolver

import (
	"strings"

	"github.com/google/uuid"

	"github.com/baYsed-BuidlAI/luna/internal/domain"
)

// Rule names the resolution rule that matched.
type Rule string

const (
	RuleNone      Rule = ""
	RuleUUID      Rule = "uuid"
	RuleExactID   Rule = "exact_id"
	RulePartialID Rule = "partial_id"
	RuleName      Rule = "name"
)

// Resolve returns the entity id that ref denotes. Rules are tried in order and
// the first match wins:
//
//  1. ref is a canonical UUID: accepted as-is without consulting the roster
//  2. ref equals a roster id
//  3. ref is a substring of a roster id
//  4. ref is a case-insensitive substring of one of a roster entity's names
func Resolve(ref string, roster []domain.Entity) (string, bool) {
	id, rule := ResolveRule(ref, roster)
	return id, rule != RuleNone
}

// ResolveRule is Resolve that also reports which rule matched.
func ResolveRule(ref string, roster []domain.Entity) (string, Rule) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", RuleNone
	}
	if isUUID(ref) {
		return ref, RuleUUID
	}
	for _, e := range roster {
		if e.EntityID == ref {
			return e.EntityID, RuleExactID
		}
	}
	for _, e := range roster {
		if strings.Contains(e.EntityID, ref) {
			return e.EntityID, RulePartialID
		}
	}
	lower := strings.ToLower(ref)
	for _, e := range roster {
		for _, name := range e.Names {
			if strings.Contains(strings.ToLower(name), lower) {
				return e.EntityID, RuleName
			}
		}
	}
	return "", RuleNone
}

// isUUID accepts only the 36-character hyphenated form; uuid.Parse alone would
// also take urn: and braced variants.
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
