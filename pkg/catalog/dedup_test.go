package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDedupRules(t *testing.T) {
	tests := []struct {
		parent string
		name   string
		want   bool
	}{
		{parent: "North America", name: "United States of America", want: true},
		{parent: "North America", name: "united states OF america", want: true},
		{parent: "North America", name: "Canada", want: false},
		{parent: "Europe", name: "Great Britain", want: true},
		{parent: "Europe", name: "Britain and Ireland", want: true},
		{parent: "europe", name: "Germany, Austria, Switzerland", want: true},
		{parent: "Europe", name: "Ireland and Northern Ireland", want: false},
		{parent: "Europe", name: "Guernsey and Jersey", want: false},
		{parent: "Europe", name: "Bosnia-Herzegovina", want: false},
		{parent: "Asia", name: "Malaysia, Singapore, and Brunei", want: false},
		{parent: "Asia", name: "Israel and Palestine", want: false},
		{parent: "Europe", name: "United States of America Territories", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.parent+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultDedupRules.Disabled(tt.parent, tt.name))
		})
	}
}

func TestCustomDedupRules(t *testing.T) {
	rules := DedupRules{
		ExactNames: []string{"Alps"},
		Composites: []CompositeRule{{Parent: "Asia", Markers: []string{" and "}, Exceptions: []string{"Palestine"}}},
	}

	assert.True(t, rules.Disabled("Europe", "alps"))
	assert.True(t, rules.Disabled("Asia", "GCC States and Yemen"))
	assert.False(t, rules.Disabled("Asia", "Israel and Palestine"))
	assert.False(t, rules.Disabled("Europe", "Britain and Ireland"))
	assert.False(t, DedupRules{}.Disabled("Europe", "Great Britain"))
}
