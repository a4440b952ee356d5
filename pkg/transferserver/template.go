package transferserver

import (
	"bytes"
	"html/template"

	"github.com/pkg/errors"
)

// catalogTemplate renders the HTML catalog page (spec.md §4.7's "HTML
// rendering" paragraph). html/template auto-escapes every field
// interpolated below, so Title/Authors never need manual escaping.
var catalogTemplate = template.Must(template.New("catalog").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Folio</title>
<style>
body { font-family: -apple-system, sans-serif; margin: 0; padding: 1rem; }
.row { display: flex; align-items: center; justify-content: space-between; padding: 0.75rem 0; border-bottom: 1px solid #ddd; }
.meta { flex: 1; min-width: 0; }
.title { font-weight: 600; }
.sub { color: #666; font-size: 0.85rem; }
.badge { display: inline-block; padding: 0.1rem 0.4rem; border-radius: 4px; background: #eee; font-size: 0.75rem; margin-right: 0.5rem; }
.actions a { margin-left: 0.5rem; text-decoration: none; padding: 0.4rem 0.8rem; border-radius: 4px; background: #222; color: #fff; font-size: 0.85rem; }
.empty { color: #666; padding: 2rem 0; text-align: center; }
</style>
</head>
<body>
<h1>Folio</h1>
{{if .Rows}}
{{range .Rows}}
<div class="row">
  <div class="meta">
    <div class="title">{{.Title}}</div>
    <div class="sub"><span class="badge">{{.Format}}</span>{{.Authors}} &middot; {{.Size}}</div>
  </div>
  <div class="actions">
    <a href="/api/books/{{.ID}}/download">Download</a>
    {{if .ShowKindleButton}}<a href="/api/books/{{.ID}}/kindle">Kindle</a>{{end}}
  </div>
</div>
{{end}}
{{else}}
<div class="empty">Your library is empty.</div>
{{end}}
</body>
</html>
`))

func renderCatalog(view catalogView) ([]byte, error) {
	var buf bytes.Buffer
	if err := catalogTemplate.Execute(&buf, view); err != nil {
		return nil, errors.Wrap(err, "rendering catalog template")
	}
	return buf.Bytes(), nil
}

// errorPageTemplate renders the minimal self-contained HTML error pages
// required for the download/kindle routes (spec.md §4.7's 503/500
// bodies). Escaped the same way as the catalog: html/template does it,
// not the caller.
var errorPageTemplate = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

type errorPageView struct {
	Title   string
	Message string
}

func renderErrorPage(title, message string) []byte {
	var buf bytes.Buffer
	// template.Must already validated the template at package init; a
	// render-time error here would mean Title/Message themselves are
	// somehow invalid, which text/template values never are.
	_ = errorPageTemplate.Execute(&buf, errorPageView{Title: title, Message: message})
	return buf.Bytes()
}
