package catalog

import "strings"

// DedupRules decides which sub-region documents start disabled because an
// enabled sibling set already covers the same area. The rules are a fixed
// table; they are not inferred from listing data.
type DedupRules struct {
	// ExactNames are disabled under any parent. Compared case-insensitively.
	ExactNames []string

	// Composites disable multi-area extracts listed under one parent.
	Composites []CompositeRule
}

// CompositeRule disables sub-regions of Parent whose names contain any of
// Markers, unless they also contain one of Exceptions. Parent is compared
// case-insensitively; markers and exceptions are case-sensitive substrings.
type CompositeRule struct {
	Parent     string
	Markers    []string
	Exceptions []string
}

// DefaultDedupRules is the rule table for the Geofabrik listing.
//
// The United States extract duplicates the per-state extracts listed beside
// it, and Great Britain duplicates England, Scotland and Wales. Europe lists
// several bundles ("Britain and Ireland", "Germany, Austria, Switzerland")
// that overlap the per-country extracts; the Channel Islands and Irish
// bundles are the only coverage for their areas and stay enabled.
var DefaultDedupRules = DedupRules{
	ExactNames: []string{
		"United States of America",
		"Great Britain",
	},
	Composites: []CompositeRule{
		{
			Parent:     "Europe",
			Markers:    []string{" and ", ", "},
			Exceptions: []string{"Northern Ireland", "Jersey"},
		},
	},
}

// Disabled reports whether the sub-region name under parent should be
// offered disabled
func (r DedupRules) Disabled(parent, name string) bool {
	for _, exact := range r.ExactNames {
		if strings.EqualFold(name, exact) {
			return true
		}
	}
	for _, rule := range r.Composites {
		if rule.matches(parent, name) {
			return true
		}
	}
	return false
}

func (c CompositeRule) matches(parent, name string) bool {
	if !strings.EqualFold(parent, c.Parent) {
		return false
	}
	for _, exception := range c.Exceptions {
		if strings.Contains(name, exception) {
			return false
		}
	}
	for _, marker := range c.Markers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
