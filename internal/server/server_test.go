package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amosWeiskopf/mapharvest/internal/models"
	"github.com/amosWeiskopf/mapharvest/pkg/analyzer"
	"github.com/amosWeiskopf/mapharvest/pkg/catalog"
	"github.com/amosWeiskopf/mapharvest/pkg/fetcher"
	"github.com/amosWeiskopf/mapharvest/pkg/sizes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBuilder struct {
	mock.Mock
}

func (m *mockBuilder) Build(ctx context.Context) (*catalog.Result, error) {
	args := m.Called(ctx)
	var result *catalog.Result
	if args.Get(0) != nil {
		result = args.Get(0).(*catalog.Result)
	}
	return result, args.Error(1)
}

func sampleResult() *catalog.Result {
	mapData := models.NewCategory(catalog.MapDataName, []models.LibraryItem{
		models.NewDocument("Antarctica", "https://download.geofabrik.de/antarctica-latest.osm.pbf", 30, models.DownloadTypeHTTP).Item(),
	}, false)
	return &catalog.Result{
		Root:    models.NewCategory(catalog.RootName, []models.LibraryItem{mapData.Item()}, false).Item(),
		BuildID: "build-1",
		Pages:   2,
		Degraded: []catalog.Degradation{
			{Region: "Europe", URL: "https://download.geofabrik.de/europe.html", Err: errors.New("boom")},
		},
	}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestCatalogJSON(t *testing.T) {
	b := &mockBuilder{}
	b.On("Build", mock.Anything).Return(sampleResult(), nil)

	rec := get(t, New(b, nil).Handler(), "/catalog")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "build-1", rec.Header().Get("X-Build-ID"))
	assert.Equal(t, "1", rec.Header().Get("X-Degraded-Regions"))

	var root models.LibraryItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &root))
	assert.Equal(t, sampleResult().Root, root)
}

func TestCatalogMarkdown(t *testing.T) {
	b := &mockBuilder{}
	b.On("Build", mock.Anything).Return(sampleResult(), nil)

	rec := get(t, New(b, nil).Handler(), "/catalog?format=markdown")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# Open Street Map")
}

func TestCatalogUnsupportedFormat(t *testing.T) {
	b := &mockBuilder{}

	rec := get(t, New(b, nil).Handler(), "/catalog?format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	b.AssertNotCalled(t, "Build", mock.Anything)
}

func TestCatalogBuildErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "transport",
			err:      &fetcher.TransportError{URL: "https://download.geofabrik.de/", StatusCode: 503},
			wantCode: http.StatusBadGateway,
			wantBody: "could not reach listing source",
		},
		{
			name:     "format",
			err:      &sizes.ParseError{Token: "1 PB", Reason: "unrecognized unit"},
			wantCode: http.StatusBadGateway,
			wantBody: "listing source format changed",
		},
		{
			name:     "other",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantBody: "catalog build failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &mockBuilder{}
			b.On("Build", mock.Anything).Return(nil, tt.err)

			rec := get(t, New(b, nil).Handler(), "/catalog")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestSummary(t *testing.T) {
	b := &mockBuilder{}
	b.On("Build", mock.Anything).Return(sampleResult(), nil)

	rec := get(t, New(b, nil).Handler(), "/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var s analyzer.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 1, s.Documents)
	assert.Equal(t, uint64(30), s.EnabledBytes)
}

func TestHealthzAndMetrics(t *testing.T) {
	h := New(&mockBuilder{}, nil).Handler()

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}
