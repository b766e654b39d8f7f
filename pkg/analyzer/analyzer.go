package analyzer

import (
	"github.com/amosWeiskopf/mapharvest/internal/models"
)

// Summary describes the contents of a catalog tree
type Summary struct {
	Categories       int      `json:"categories"`
	Documents        int      `json:"documents"`
	EnabledDocuments int      `json:"enabled_documents"`
	TotalBytes       uint64   `json:"total_bytes"`
	EnabledBytes     uint64   `json:"enabled_bytes"`
	Disabled         []string `json:"disabled"`
	MaxDepth         int      `json:"max_depth"`
	Regions          []Region `json:"regions"`
}

// Region summarizes one top-level region of the map data
type Region struct {
	Name       string `json:"name"`
	SubRegions int    `json:"sub_regions"`
	Size       uint64 `json:"size"`
}

// Summarize walks the tree once and collects counts and sizes.
// Sub-region documents usually overlap their region's single file, so
// TotalBytes is an upper bound of what selecting everything would download.
func Summarize(root models.LibraryItem) Summary {
	s := Summary{Disabled: []string{}, Regions: []Region{}}

	root.Walk(func(item models.LibraryItem, depth int) {
		if depth > s.MaxDepth {
			s.MaxDepth = depth
		}
		if item.Category != nil {
			s.Categories++
			return
		}
		if item.Document == nil {
			return
		}

		s.Documents++
		s.TotalBytes += item.Document.Size
		if item.Document.Enabled {
			s.EnabledDocuments++
			s.EnabledBytes += item.Document.Size
		} else {
			s.Disabled = append(s.Disabled, item.Document.Name)
		}
	})

	for _, region := range mapRegions(root) {
		s.Regions = append(s.Regions, summarizeRegion(region))
	}
	return s
}

// mapRegions returns the children of the first category below the root,
// which holds one entry per top-level region
func mapRegions(root models.LibraryItem) []models.LibraryItem {
	if root.Category == nil {
		return nil
	}
	for _, child := range root.Category.Children {
		if child.Category != nil {
			return child.Category.Children
		}
	}
	return nil
}

func summarizeRegion(item models.LibraryItem) Region {
	if item.Document != nil {
		return Region{Name: item.Document.Name, Size: item.Document.Size}
	}
	if item.Category == nil {
		return Region{}
	}

	r := Region{Name: item.Category.Name}
	for _, child := range item.Category.Children {
		switch {
		case child.Document != nil && r.Size == 0:
			r.Size = child.Document.Size
		case child.Category != nil:
			r.SubRegions += len(child.Category.Children)
		}
	}
	return r
}
