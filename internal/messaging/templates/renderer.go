package templates

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"
)

// Renderer renders small text templates for outbound messaging. Parsed
// templates are cached by name.
type Renderer struct {
	mu     sync.Mutex
	parsed map[string]*template.Template
}

// NewRenderer returns a renderer with an empty cache.
func NewRenderer() *Renderer {
	return &Renderer{parsed: make(map[string]*template.Template)}
}

// Render compiles the provided template text with strict missing-key semantics.
func (r *Renderer) Render(name, tmpl string, data any) (string, error) {
	if tmpl == "" {
		return "", fmt.Errorf("templates: template text required")
	}
	t, err := r.lookup(name, tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: execute %s: %w", name, err)
	}
	return buf.String(), nil
}

func (r *Renderer) lookup(name, tmpl string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.parsed == nil {
		r.parsed = make(map[string]*template.Template)
	}
	key := name + "\x00" + tmpl
	if t, ok := r.parsed[key]; ok {
		return t, nil
	}
	t, err := template.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("templates: parse %s: %w", name, err)
	}
	r.parsed[key] = t
	return t, nil
}
