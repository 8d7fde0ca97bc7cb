package email

import (
	"bytes"
	"fmt"
	"html/template"
)

const layoutTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: sans-serif; color: #1f2933;">
<h2>{{.Heading}}</h2>
{{if .Subheading}}<p>{{.Subheading}}</p>{{end}}
<table cellpadding="4" style="border-collapse: collapse;">
{{range .Fields}}<tr><td><strong>{{.Label}}</strong></td><td>{{.Value}}</td></tr>
{{end}}</table>
{{if .Action}}<p>{{.Action}}</p>{{end}}
</body>
</html>`

var layout = template.Must(template.New("operator_alert").Parse(layoutTemplate))

// Field is one labelled line of an alert.
type Field struct {
	Label string
	Value string
}

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	Fields     []Field
	Action     string
}

func renderEmailTemplate(data baseEmailData) (string, error) {
	var buf bytes.Buffer
	if err := layout.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render operator alert: %w", err)
	}
	return buf.String(), nil
}
