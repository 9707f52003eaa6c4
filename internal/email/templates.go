package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var baseTemplate = template.Must(template.ParseFS(templateFS, "templates/base.html"))

type textEmailData struct {
	Title      string
	Paragraphs [][]string
}

// renderText wraps a plain-text body in the HTML layout. Blank lines split
// paragraphs; single newlines become line breaks.
func renderText(title, text string) (string, error) {
	data := textEmailData{Title: title}
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		data.Paragraphs = append(data.Paragraphs, strings.Split(block, "\n"))
	}

	var buf bytes.Buffer
	if err := baseTemplate.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template: %w", err)
	}
	return buf.String(), nil
}
