package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/amosWeiskopf/mapharvest/pkg/utils"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// PBFLabel is the anchor text of the packaged-format download link
const PBFLabel = "[.osm.pbf]"

// Record is one region row of a listing page, with fields as they appear in
// the markup
type Record struct {
	Path string // href of the region's own listing page
	Name string // region display name
	File string // href of the packaged extract
	Size string // size token without the surrounding parentheses
}

// Extractor pulls region records out of listing page markup
type Extractor struct {
	rows      cascadia.Selector
	region    cascadia.Selector
	link      cascadia.Selector
	sizeToken *regexp.Regexp
	label     string
}

// New creates a new Extractor instance
func New() *Extractor {
	return &Extractor{
		rows:      cascadia.MustCompile("tr"),
		region:    cascadia.MustCompile("td.subregion"),
		link:      cascadia.MustCompile("a[href]"),
		sizeToken: regexp.MustCompile(`^\((.+)\)$`),
		label:     PBFLabel,
	}
}

// Extract returns the records of a page in document order. Rows that do not
// have the region/download/size layout are skipped; a page without any such
// row yields an empty slice.
func (e *Extractor) Extract(page string) ([]Record, error) {
	records := []Record{}
	if strings.TrimSpace(page) == "" {
		return records, nil
	}

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse listing markup: %w", err)
	}

	for _, row := range e.rows.MatchAll(doc) {
		if rec, ok := e.record(row); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (e *Extractor) record(row *html.Node) (Record, bool) {
	cells := cellsOf(row)
	if len(cells) < 3 || !e.region.Match(cells[0]) {
		return Record{}, false
	}

	regionLink := e.link.MatchFirst(cells[0])
	if regionLink == nil {
		return Record{}, false
	}
	rec := Record{
		Path: attr(regionLink, "href"),
		Name: utils.CleanText(textContent(regionLink)),
	}
	if rec.Path == "" || rec.Name == "" {
		return Record{}, false
	}

	pbfCell := -1
	for i := 1; i < len(cells) && pbfCell < 0; i++ {
		for _, a := range e.link.MatchAll(cells[i]) {
			if strings.TrimSpace(textContent(a)) == e.label {
				rec.File = attr(a, "href")
				pbfCell = i
				break
			}
		}
	}
	if pbfCell < 0 || rec.File == "" {
		return Record{}, false
	}

	for _, cell := range cells[pbfCell+1:] {
		m := e.sizeToken.FindStringSubmatch(strings.TrimSpace(textContent(cell)))
		if m != nil {
			rec.Size = m[1]
			return rec, true
		}
	}
	return Record{}, false
}

// cellsOf returns the direct td children of a table row
func cellsOf(row *html.Node) []*html.Node {
	var cells []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Td {
			cells = append(cells, c)
		}
	}
	return cells
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		text.WriteString(textContent(c))
	}
	return text.String()
}
