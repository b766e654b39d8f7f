package models

import (
	"encoding/json"
	"fmt"
)

// DownloadType describes how a document is transferred
type DownloadType string

const (
	// DownloadTypeHTTP is a plain HTTP(S) GET of the document URL
	DownloadTypeHTTP DownloadType = "http"
)

// Item kinds used as the JSON variant tag
const (
	KindCategory = "category"
	KindDocument = "document"
)

// LibraryItem is either a Category or a Document, never both
type LibraryItem struct {
	Category *Category
	Document *Document
}

// Category groups library items under a display name
type Category struct {
	Name            string        `json:"name"`
	Children        []LibraryItem `json:"children"`
	DefaultExpanded bool          `json:"default_expanded"`
}

// Document is a single downloadable map extract
type Document struct {
	Name         string       `json:"name"`
	URL          string       `json:"url"`
	Size         uint64       `json:"size"`
	DownloadType DownloadType `json:"download_type"`
	Enabled      bool         `json:"enabled"`
}

// NewCategory creates a category item
func NewCategory(name string, children []LibraryItem, defaultExpanded bool) *Category {
	if children == nil {
		children = []LibraryItem{}
	}
	return &Category{
		Name:            name,
		Children:        children,
		DefaultExpanded: defaultExpanded,
	}
}

// NewDocument creates an enabled document
func NewDocument(name, url string, size uint64, downloadType DownloadType) *Document {
	return &Document{
		Name:         name,
		URL:          url,
		Size:         size,
		DownloadType: downloadType,
		Enabled:      true,
	}
}

// Add appends a child, keeping discovery order
func (c *Category) Add(item LibraryItem) {
	c.Children = append(c.Children, item)
}

// Item wraps the category as a LibraryItem
func (c *Category) Item() LibraryItem {
	return LibraryItem{Category: c}
}

// Item wraps the document as a LibraryItem
func (d *Document) Item() LibraryItem {
	return LibraryItem{Document: d}
}

// Kind returns the variant tag of the item
func (i LibraryItem) Kind() string {
	switch {
	case i.Category != nil:
		return KindCategory
	case i.Document != nil:
		return KindDocument
	default:
		return ""
	}
}

// Name returns the display name of whichever variant is set
func (i LibraryItem) Name() string {
	switch {
	case i.Category != nil:
		return i.Category.Name
	case i.Document != nil:
		return i.Document.Name
	default:
		return ""
	}
}

// Walk visits the item and its descendants depth-first in pre-order.
// depth is 0 for the item Walk is called on.
func (i LibraryItem) Walk(fn func(item LibraryItem, depth int)) {
	i.walk(fn, 0)
}

func (i LibraryItem) walk(fn func(item LibraryItem, depth int), depth int) {
	fn(i, depth)
	if i.Category == nil {
		return
	}
	for _, child := range i.Category.Children {
		child.walk(fn, depth+1)
	}
}

// Validate reports the first item in the tree that does not have exactly one
// variant set
func (i LibraryItem) Validate() error {
	var err error
	i.Walk(func(item LibraryItem, depth int) {
		if err != nil {
			return
		}
		switch {
		case item.Category != nil && item.Document != nil:
			err = fmt.Errorf("library item %q at depth %d is both category and document", item.Name(), depth)
		case item.Category == nil && item.Document == nil:
			err = fmt.Errorf("empty library item at depth %d", depth)
		}
	})
	return err
}

type categoryJSON struct {
	Type string `json:"type"`
	Category
}

type documentJSON struct {
	Type string `json:"type"`
	Document
}

// MarshalJSON emits the variant's fields plus a "type" tag
func (i LibraryItem) MarshalJSON() ([]byte, error) {
	switch {
	case i.Category != nil && i.Document != nil:
		return nil, fmt.Errorf("library item %q has both variants set", i.Category.Name)
	case i.Category != nil:
		return json.Marshal(categoryJSON{Type: KindCategory, Category: *i.Category})
	case i.Document != nil:
		return json.Marshal(documentJSON{Type: KindDocument, Document: *i.Document})
	default:
		return nil, fmt.Errorf("library item has no variant set")
	}
}

// UnmarshalJSON restores an item from its tagged form
func (i *LibraryItem) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return err
	}

	switch tag.Type {
	case KindCategory:
		var c categoryJSON
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		if c.Category.Children == nil {
			c.Category.Children = []LibraryItem{}
		}
		*i = LibraryItem{Category: &c.Category}
	case KindDocument:
		var d documentJSON
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		*i = LibraryItem{Document: &d.Document}
	default:
		return fmt.Errorf("unknown library item type %q", tag.Type)
	}
	return nil
}
