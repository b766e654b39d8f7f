package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/amosWeiskopf/mapharvest/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() models.LibraryItem {
	usa := models.NewDocument("United States of America", "https://download.geofabrik.de/north-america/us-latest.osm.pbf", 10<<30, models.DownloadTypeHTTP)
	usa.Enabled = false

	region := models.NewCategory("North America", nil, true)
	region.Add(models.NewDocument("Single File", "https://download.geofabrik.de/north-america-latest.osm.pbf", 14<<30, models.DownloadTypeHTTP).Item())
	region.Add(models.NewCategory("Sub Regions", []models.LibraryItem{
		models.NewDocument("Canada", "https://download.geofabrik.de/north-america/canada-latest.osm.pbf", 3<<30, models.DownloadTypeHTTP).Item(),
		usa.Item(),
	}, false).Item())

	mapData := models.NewCategory("Map Data", []models.LibraryItem{
		region.Item(),
		models.NewDocument("Antarctica", "https://download.geofabrik.de/antarctica-latest.osm.pbf", 30<<20, models.DownloadTypeHTTP).Item(),
	}, false)
	return models.NewCategory("Open Street Map", []models.LibraryItem{mapData.Item()}, false).Item()
}

func render(t *testing.T, format string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, New().Render(&buf, catalog(), format))
	return buf.String()
}

func TestRenderJSON(t *testing.T) {
	out := render(t, FormatJSON)

	var decoded models.LibraryItem
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, catalog(), decoded)
	assert.True(t, strings.HasPrefix(out, "{\n  \"type\": \"category\""))
}

func TestRenderMarkdown(t *testing.T) {
	out := render(t, FormatMarkdown)

	assert.True(t, strings.HasPrefix(out, "# Open Street Map\n\n- **Map Data**\n"))
	assert.Contains(t, out, "  - **North America**\n")
	assert.Contains(t, out, "    - [Single File](https://download.geofabrik.de/north-america-latest.osm.pbf) (14 GiB)\n")
	assert.Contains(t, out, "      - ~~[United States of America](https://download.geofabrik.de/north-america/us-latest.osm.pbf)~~ (10 GiB, disabled: duplicate coverage)\n")
	assert.Contains(t, out, "  - [Antarctica](https://download.geofabrik.de/antarctica-latest.osm.pbf) (30 MiB)\n")
}

func TestRenderText(t *testing.T) {
	lines := strings.Split(strings.TrimRight(render(t, FormatText), "\n"), "\n")

	require.Len(t, lines, 8)
	assert.Equal(t, "Open Street Map/", lines[0])
	assert.Equal(t, "  Map Data/", lines[1])
	assert.Equal(t, "        [x] Canada  3.0 GiB  https://download.geofabrik.de/north-america/canada-latest.osm.pbf", lines[5])
	assert.True(t, strings.HasPrefix(lines[6], "        [ ] United States of America"))
}

func TestRenderHTML(t *testing.T) {
	out := render(t, FormatHTML)

	assert.Contains(t, out, "<title>Open Street Map</title>")
	assert.Contains(t, out, "<details open><summary>North America</summary>")
	assert.Contains(t, out, `<li class="disabled"><a href="https://download.geofabrik.de/north-america/us-latest.osm.pbf">United States of America</a>`)
	assert.Less(t, strings.Index(out, "Single File"), strings.Index(out, "Sub Regions"))
}

func TestRenderUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	err := New().Render(&buf, catalog(), "pdf")
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestRenderRejectsMalformedTree(t *testing.T) {
	broken := models.NewCategory("Open Street Map", []models.LibraryItem{
		models.NewCategory("Map Data", []models.LibraryItem{{}}, false).Item(),
	}, false).Item()

	for _, format := range Formats {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			assert.NotPanics(t, func() {
				assert.Error(t, New().Render(&buf, broken, format))
			})
			assert.Zero(t, buf.Len())

			assert.Error(t, New().Render(&buf, models.LibraryItem{}, format))
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", ContentType(FormatJSON))
	assert.Equal(t, "text/html; charset=utf-8", ContentType(FormatHTML))
	assert.Equal(t, "text/plain; charset=utf-8", ContentType(FormatText))
}
