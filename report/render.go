package report

import (
	"embed"
	"html/template"
	"io"

	"github.com/pkg/errors"
)

//go:embed templates
var templatesFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

var templateByKind = map[Kind]string{
	KindText:          "report_text.html",
	KindAuthenticSelf: "report_authentic_self.html",
	KindProtocol:      "report_protocol.html",
	KindUnknown:       "report_unknown.html",
}

type page struct {
	Title   string
	Payload Payload
	Blocks  []Block
}

// RenderHTML writes the report page for the payload's kind.
func RenderHTML(w io.Writer, title string, p Payload) error {
	data := page{Title: title, Payload: p}
	if p.Kind == KindText {
		data.Blocks = ParseText(p.Text)
	}
	err := pageTemplates.ExecuteTemplate(w, templateByKind[p.Kind], data)
	return errors.Wrapf(err, "render %s report", p.Kind)
}
