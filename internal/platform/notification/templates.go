package notification

import (
	"fmt"
	"strings"
	"sync"
)

const (
	TemplateDataShared      = "data-shared"
	TemplatePatientAssigned = "patient-assigned"
)

// Template defines a reusable e-mail template.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// TemplateEngine manages templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateDataShared,
			Subject: "{{owner_name}} shared their foot health data with you",
			Body: "Hello {{recipient_name}},\n\n{{owner_name}} ({{owner_email}}) has given you access to their " +
				"sensor readings. Sign in to FootCare to view them.",
		},
		{
			ID:      TemplatePatientAssigned,
			Subject: "You have been added to a care team",
			Body: "Hello {{recipient_name}},\n\n{{clinician_name}} from {{institution}} has added you to their " +
				"patient list and can now review your sensor readings and foot analyses.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}
