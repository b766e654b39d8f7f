package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/amosWeiskopf/mapharvest/internal/models"
	"github.com/amosWeiskopf/mapharvest/pkg/sizes"
)

// Supported output formats
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatText     = "text"
	FormatHTML     = "html"
)

// Formats lists every supported format
var Formats = []string{FormatJSON, FormatMarkdown, FormatText, FormatHTML}

// Reporter renders a catalog tree in various formats
type Reporter struct {
	indent string
	html   *template.Template
}

// New creates a new Reporter instance
func New() *Reporter {
	return &Reporter{
		indent: "  ",
		html: template.Must(template.New("catalog").Funcs(template.FuncMap{
			"size": sizes.Format,
		}).Parse(htmlTemplate)),
	}
}

// ContentType returns the MIME type of a format
func ContentType(format string) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render writes the catalog in the specified format
func (r *Reporter) Render(w io.Writer, root models.LibraryItem, format string) error {
	if err := root.Validate(); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	switch format {
	case FormatJSON:
		return r.renderJSON(w, root)
	case FormatMarkdown:
		return r.renderMarkdown(w, root)
	case FormatText:
		return r.renderText(w, root)
	case FormatHTML:
		return r.renderHTML(w, root)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// renderJSON writes the tagged JSON form consumed by download managers
func (r *Reporter) renderJSON(w io.Writer, root models.LibraryItem) error {
	data, err := json.MarshalIndent(root, "", r.indent)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func (r *Reporter) renderMarkdown(w io.Writer, root models.LibraryItem) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", root.Name())
	if root.Category != nil {
		for _, child := range root.Category.Children {
			child.Walk(func(item models.LibraryItem, depth int) {
				pad := strings.Repeat(r.indent, depth)
				switch {
				case item.Category != nil:
					fmt.Fprintf(&buf, "%s- **%s**\n", pad, item.Category.Name)
				case item.Document.Enabled:
					fmt.Fprintf(&buf, "%s- [%s](%s) (%s)\n", pad, item.Document.Name, item.Document.URL, sizes.Format(item.Document.Size))
				default:
					fmt.Fprintf(&buf, "%s- ~~[%s](%s)~~ (%s, disabled: duplicate coverage)\n", pad, item.Document.Name, item.Document.URL, sizes.Format(item.Document.Size))
				}
			})
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func (r *Reporter) renderText(w io.Writer, root models.LibraryItem) error {
	var buf bytes.Buffer

	root.Walk(func(item models.LibraryItem, depth int) {
		pad := strings.Repeat(r.indent, depth)
		if item.Category != nil {
			fmt.Fprintf(&buf, "%s%s/\n", pad, item.Category.Name)
			return
		}
		mark := "[x]"
		if !item.Document.Enabled {
			mark = "[ ]"
		}
		fmt.Fprintf(&buf, "%s%s %s  %s  %s\n", pad, mark, item.Document.Name, sizes.Format(item.Document.Size), item.Document.URL)
	})

	_, err := w.Write(buf.Bytes())
	return err
}

func (r *Reporter) renderHTML(w io.Writer, root models.LibraryItem) error {
	var buf bytes.Buffer
	if err := r.html.Execute(&buf, root); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

const htmlTemplate = `{{define "item"}}{{if .Category}}<li><details{{if .Category.DefaultExpanded}} open{{end}}><summary>{{.Category.Name}}</summary>
<ul>
{{range .Category.Children}}{{template "item" .}}{{end}}</ul>
</details></li>
{{else}}<li class="{{if .Document.Enabled}}enabled{{else}}disabled{{end}}"><a href="{{.Document.URL}}">{{.Document.Name}}</a> ({{size .Document.Size}})</li>
{{end}}{{end}}<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Name}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; max-width: 960px; margin: 0 auto; padding: 20px; }
        ul { list-style: none; padding-left: 1.25rem; }
        .disabled a { color: #999; text-decoration: line-through; }
    </style>
</head>
<body>
<ul>
{{template "item" .}}</ul>
</body>
</html>
`
