// Package diagnostics renders a Repository's current contents as a
// plain HTML page for operators, the one surface in driftbox with no
// third-party analogue in the retrieved examples: html/template already
// escapes path/content-type values safely and needs no ecosystem
// library behind it.
package diagnostics

import (
	"html/template"
	"io"

	"github.com/driftbox/driftbox"
)

var page = template.Must(template.New("diagnostics").Parse(`<!DOCTYPE html>
<html>
<head><title>driftbox diagnostics</title></head>
<body>
<h1>driftbox diagnostics</h1>
<p>{{len .}} entr{{if eq (len .) 1}}y{{else}}ies{{end}}</p>
<table border="1" cellpadding="4">
<tr><th>Path</th><th>Content-Type</th><th>Length</th><th>Access Count</th><th>Expires At</th><th>Generation</th></tr>
{{range .}}<tr>
<td>{{.Path}}</td>
<td>{{.ContentType}}</td>
<td>{{.Length}}</td>
<td>{{.AccessCount}}</td>
<td>{{.ExpiresAt.Format "2006-01-02T15:04:05Z07:00"}}</td>
<td>{{.Generation}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`))

// Render writes the diagnostics page for rows to w.
func Render(w io.Writer, rows []driftbox.SnapshotRow) error {
	return page.Execute(w, rows)
}
