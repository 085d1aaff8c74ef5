package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/arklim/marketplace-auth/internal/core/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded email layouts.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("mail").Option("missingkey=zero").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render produces the HTML body for name with data. Subject is exposed to the layout.
func (r *Renderer) Render(name domain.EmailTemplate, subject string, data map[string]any) (string, error) {
	if r.templates.Lookup(string(name)) == nil {
		return "", fmt.Errorf("unknown email template %q", name)
	}

	view := make(map[string]any, len(data)+1)
	for k, v := range data {
		view[k] = v
	}
	view["Subject"] = subject

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, string(name), view); err != nil {
		return "", fmt.Errorf("render email template %q: %w", name, err)
	}
	return buf.String(), nil
}
