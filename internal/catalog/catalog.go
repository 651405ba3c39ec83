// Package catalog holds the read-only template catalog: presentation
// metadata (title, body, icon, sound, vibration, action buttons) referenced
// by id from incoming notifications.
package catalog

import (
	"fmt"
	"strings"

	"github.com/oakledger/beacon/internal/model"
)

// DefaultVibration is used when a template does not declare its own pattern.
var DefaultVibration = []int{200, 100, 200}

// Catalog is an immutable id → template map loaded once per session.
type Catalog struct {
	templates map[string]model.Template
}

// New builds a catalog from the given templates. Every template is validated
// at load time: body variables must be declared in the template's Variables
// list so metadata schema mismatches surface here rather than at render time.
func New(templates []model.Template) (*Catalog, error) {
	m := make(map[string]model.Template, len(templates))
	for _, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template with empty id")
		}
		if _, ok := m[t.ID]; ok {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		if err := validate(t); err != nil {
			return nil, fmt.Errorf("template %q: %w", t.ID, err)
		}
		m[t.ID] = t
	}
	return &Catalog{templates: m}, nil
}

// Default returns the built-in catalog. It never fails: the built-in
// templates are validated by tests.
func Default() *Catalog {
	c, err := New(builtin)
	if err != nil {
		panic(fmt.Sprintf("built-in templates invalid: %v", err))
	}
	return c
}

// Get returns the template for id, or false when the id is unknown.
func (c *Catalog) Get(id string) (model.Template, bool) {
	t, ok := c.templates[id]
	return t, ok
}

// All returns a copy of the id → template map.
func (c *Catalog) All() map[string]model.Template {
	out := make(map[string]model.Template, len(c.templates))
	for id, t := range c.templates {
		out[id] = t
	}
	return out
}

// Render resolves a notification's title and body against its template,
// interpolating {{var}} placeholders from the notification's metadata.
// When the notification carries no template id, or the id is unknown, the
// raw notification text is returned as the body with an empty title.
func (c *Catalog) Render(n model.Notification) (title, body string) {
	t, ok := c.templates[n.TemplateID]
	if !ok {
		return "", n.Text
	}
	return Interpolate(t.Title, n.Metadata), Interpolate(t.Body, n.Metadata)
}

// Vibration returns the template's vibration pattern, or the default when
// the notification has no template or the template declares none.
func (c *Catalog) Vibration(n model.Notification) []int {
	if t, ok := c.templates[n.TemplateID]; ok && len(t.Vibration) > 0 {
		return t.Vibration
	}
	return DefaultVibration
}

// Interpolate replaces {{var}} placeholders in s with values from vars.
// Unknown placeholders are left intact.
func Interpolate(s string, vars map[string]string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	var b strings.Builder
	for {
		open := strings.Index(s, "{{")
		if open < 0 {
			b.WriteString(s)
			return b.String()
		}
		close := strings.Index(s[open:], "}}")
		if close < 0 {
			b.WriteString(s)
			return b.String()
		}
		close += open
		b.WriteString(s[:open])
		name := strings.TrimSpace(s[open+2 : close])
		if v, ok := vars[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[open : close+2])
		}
		s = s[close+2:]
	}
}

// validate checks that every {{var}} in the template's title and body is
// declared in Variables.
func validate(t model.Template) error {
	declared := make(map[string]struct{}, len(t.Variables))
	for _, v := range t.Variables {
		declared[v] = struct{}{}
	}
	for _, s := range []string{t.Title, t.Body} {
		for _, name := range placeholders(s) {
			if _, ok := declared[name]; !ok {
				return fmt.Errorf("undeclared variable %q", name)
			}
		}
	}
	for _, d := range t.Vibration {
		if d < 0 {
			return fmt.Errorf("negative vibration duration %d", d)
		}
	}
	return nil
}

func placeholders(s string) []string {
	var names []string
	for {
		open := strings.Index(s, "{{")
		if open < 0 {
			return names
		}
		close := strings.Index(s[open:], "}}")
		if close < 0 {
			return names
		}
		close += open
		names = append(names, strings.TrimSpace(s[open+2:close]))
		s = s[close+2:]
	}
}
