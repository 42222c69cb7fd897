package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/mrcrandell/fourgreenfieldsfarm-api/internal/utils"
)

const (
	ContactTemplate         = "contact-email"
	ContactThankYouTemplate = "contact-thank-you-email"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateData is passed to every template. Year is filled in by the renderer.
type TemplateData struct {
	Name    string
	Email   string
	Phone   string
	Message string
	Year    int
}

type Renderer struct {
	templates *template.Template
	clock     utils.Clock
}

func NewRenderer(clock utils.Clock) (*Renderer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Renderer{templates: templates, clock: clock}, nil
}

// Render executes the named template (file name without extension).
func (r *Renderer) Render(name string, data TemplateData) (string, error) {
	data.Year = r.clock.Now().Year()
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
