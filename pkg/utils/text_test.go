package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Bosnia-Herzegovina", CleanText("\n  Bosnia-Herzegovina \t"))
	assert.Equal(t, "Alps region", CleanText("Alps\n   region"))
	assert.Equal(t, "", CleanText("   "))
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{
			name: "relative to root",
			base: "https://download.geofabrik.de/",
			ref:  "europe.html",
			want: "https://download.geofabrik.de/europe.html",
		},
		{
			name: "nested file from continent page",
			base: "https://download.geofabrik.de/europe.html",
			ref:  "europe/albania-latest.osm.pbf",
			want: "https://download.geofabrik.de/europe/albania-latest.osm.pbf",
		},
		{
			name: "absolute reference wins",
			base: "https://download.geofabrik.de/",
			ref:  "https://example.org/x.osm.pbf",
			want: "https://example.org/x.osm.pbf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURL(tt.base, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ResolveURL("/relative", "x")
	assert.Error(t, err)
}

func TestEnsureTrailingSlash(t *testing.T) {
	assert.Equal(t, "https://a.example/", EnsureTrailingSlash("https://a.example"))
	assert.Equal(t, "https://a.example/", EnsureTrailingSlash("https://a.example/"))
}

func TestSameSite(t *testing.T) {
	assert.True(t, SameSite("https://download.geofabrik.de/", "https://download.geofabrik.de/europe.html"))
	assert.True(t, SameSite("https://download.geofabrik.de/", "https://www.geofabrik.de/data"))
	assert.True(t, SameSite("http://127.0.0.1:8080/", "http://127.0.0.1:8080/a.html"))
	assert.False(t, SameSite("https://download.geofabrik.de/", "https://example.org/"))
	assert.False(t, SameSite("https://download.geofabrik.de/", "europe.html"))
}
