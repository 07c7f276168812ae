// Package casedefinition accepts case submissions from the portal. Each
// definition carries a JSON schema; valid submissions are stored as objects
// in the Objecten API on behalf of the submitting principal.
package casedefinition

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Definition describes one kind of case a principal may start.
type Definition struct {
	ID                string         `yaml:"id"`
	Name              string         `yaml:"name"`
	ObjectTypeURL     string         `yaml:"objectTypeUrl"`
	ObjectTypeVersion int            `yaml:"objectTypeVersion"`
	Schema            map[string]any `yaml:"schema"`

	compiled *gojsonschema.Schema
}

type definitionsFile struct {
	CaseDefinitions []Definition `yaml:"caseDefinitions"`
}

// Catalog holds the compiled definitions by id.
type Catalog struct {
	byID  map[string]*Definition
	order []string
}

// LoadCatalog reads a definitions file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case definitions: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes definitions YAML and compiles every schema. An
// invalid schema fails the whole catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse case definitions: %w", err)
	}

	c := &Catalog{byID: make(map[string]*Definition, len(file.CaseDefinitions))}
	for i := range file.CaseDefinitions {
		def := &file.CaseDefinitions[i]
		if strings.TrimSpace(def.ID) == "" {
			return nil, fmt.Errorf("case definition %d: id is required", i)
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("case definition %s: duplicate id", def.ID)
		}
		if def.ObjectTypeURL == "" {
			return nil, fmt.Errorf("case definition %s: objectTypeUrl is required", def.ID)
		}
		if def.ObjectTypeVersion == 0 {
			def.ObjectTypeVersion = 1
		}
		if def.Schema == nil {
			return nil, fmt.Errorf("case definition %s: schema is required", def.ID)
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.Schema))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s: %w", def.ID, err)
		}
		def.compiled = compiled
		c.byID[def.ID] = def
		c.order = append(c.order, def.ID)
	}
	return c, nil
}

// Get returns a definition by id.
func (c *Catalog) Get(id string) (*Definition, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// List returns the definitions in file order.
func (c *Catalog) List() []*Definition {
	out := make([]*Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Validate checks a submission against the definition's schema and returns
// one message per violation.
func (d *Definition) Validate(submission json.RawMessage) ([]string, error) {
	result, err := d.compiled.Validate(gojsonschema.NewBytesLoader(submission))
	if err != nil {
		return nil, fmt.Errorf("cannot validate with schema %s: %w", d.ID, err)
	}
	if result.Valid() {
		return nil, nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return msgs, nil
}
