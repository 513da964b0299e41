package wizard

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"
)

// templateFS contains the embedded step template files, one YAML document per
// subject category.
//
//go:embed templates/*.yaml
var templateFS embed.FS

// DefaultCategory is used when a requested subject category has no template.
// Falling back instead of rejecting is deliberate: an unrecognized category
// still produces a usable wizard, and the session records which template was
// actually applied.
const DefaultCategory = "arcade"

// StepTemplate is one step definition from the catalog. It is a blueprint;
// sessions instantiate their own Step values from it.
type StepTemplate struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Type        StepType `yaml:"type"`
	Skippable   bool     `yaml:"skippable"`
}

// categoryTemplate is the on-disk shape of one template file.
type categoryTemplate struct {
	Category string         `yaml:"category"`
	Steps    []StepTemplate `yaml:"steps"`
}

// Catalog maps subject categories to ordered step definitions. It is a pure
// lookup structure: built once, never mutated afterwards.
type Catalog struct {
	templates map[string][]StepTemplate
}

// NewCatalog loads the embedded template files. It fails only on a malformed
// template, which is a packaging error rather than a runtime condition.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{templates: make(map[string][]StepTemplate)}

	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("catalog: read embedded templates: %w", err)
	}

	for _, entry := range entries {
		data, err := fs.ReadFile(templateFS, "templates/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("catalog: read template %s: %w", entry.Name(), err)
		}

		var tmpl categoryTemplate
		if err := yaml.Unmarshal(data, &tmpl); err != nil {
			return nil, fmt.Errorf("catalog: parse template %s: %w", entry.Name(), err)
		}
		if tmpl.Category == "" || len(tmpl.Steps) == 0 {
			return nil, fmt.Errorf("catalog: template %s has no category or steps", entry.Name())
		}
		for i, st := range tmpl.Steps {
			if !st.Type.IsKnown() {
				return nil, fmt.Errorf("catalog: template %s step %d has unknown type %q",
					entry.Name(), i, st.Type)
			}
		}

		c.templates[tmpl.Category] = tmpl.Steps
	}

	if _, ok := c.templates[DefaultCategory]; !ok {
		return nil, fmt.Errorf("catalog: default category %q missing from templates", DefaultCategory)
	}

	return c, nil
}

// Categories returns the known category names in sorted order.
func (c *Catalog) Categories() []string {
	names := make([]string, 0, len(c.templates))
	for name := range c.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Steps returns a copy of the step templates for a category. Unknown
// categories fall back to DefaultCategory; the second return value is the
// category that was actually resolved.
func (c *Catalog) Steps(category string) ([]StepTemplate, string) {
	resolved := category
	steps, ok := c.templates[category]
	if !ok {
		resolved = DefaultCategory
		steps = c.templates[DefaultCategory]
	}

	out := make([]StepTemplate, len(steps))
	copy(out, steps)
	return out, resolved
}
