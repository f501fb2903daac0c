// Package catalog loads the predefined slot catalog compiled into the binary.
package catalog

import (
	_ "embed"
	"fmt"

	"github.com/boddenberg/household-hub-bfa/internal/domain"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// Catalog is the immutable set of dashboard sections.
type Catalog struct {
	sections []*domain.Section
	byKey    map[string]*domain.Section
}

type document struct {
	Sections []*domain.Section `yaml:"sections"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// MustLoad is Load for program start-up.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic("failed to load catalog: " + err.Error())
	}
	return c
}

// Parse builds a catalog from a YAML document and validates it.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{byKey: make(map[string]*domain.Section, len(doc.Sections))}
	for _, sec := range doc.Sections {
		if err := validate(sec); err != nil {
			return nil, err
		}
		if _, dup := c.byKey[sec.Key]; dup {
			return nil, fmt.Errorf("catalog: duplicate section %q", sec.Key)
		}
		for gi := range sec.Categories {
			group := &sec.Categories[gi]
			for si := range group.Slots {
				group.Slots[si].Category = group.Name
			}
		}
		c.sections = append(c.sections, sec)
		c.byKey[sec.Key] = sec
	}
	return c, nil
}

func validate(sec *domain.Section) error {
	switch {
	case sec.Key == "":
		return fmt.Errorf("catalog: section without key")
	case sec.CategoryField == "":
		return fmt.Errorf("catalog: section %q: category_field is required", sec.Key)
	case sec.SlotField == "":
		return fmt.Errorf("catalog: section %q: slot_field is required", sec.Key)
	case sec.Endpoints.Add == "" || sec.Endpoints.List == "" || sec.Endpoints.Update == "" || sec.Endpoints.Delete == "":
		return fmt.Errorf("catalog: section %q: all four endpoints are required", sec.Key)
	}

	seen := make(map[string]bool)
	for _, group := range sec.Categories {
		for _, slot := range group.Slots {
			id := group.Name + "\x00" + slot.Name
			if seen[id] {
				return fmt.Errorf("catalog: section %q: duplicate slot %q in category %q", sec.Key, slot.Name, group.Name)
			}
			seen[id] = true
		}
	}
	return nil
}

// Sections returns every section in catalog order.
func (c *Catalog) Sections() []*domain.Section {
	out := make([]*domain.Section, len(c.sections))
	copy(out, c.sections)
	return out
}

// Section looks up a section by key.
func (c *Catalog) Section(key string) (*domain.Section, bool) {
	s, ok := c.byKey[key]
	return s, ok
}

// Lookup is Section returning a typed error for unknown keys.
func (c *Catalog) Lookup(key string) (*domain.Section, error) {
	if s, ok := c.byKey[key]; ok {
		return s, nil
	}
	return nil, &domain.ErrUnknownSection{Section: key}
}

// YAML renders sections back to YAML. With no keys, the whole catalog is rendered.
func (c *Catalog) YAML(keys ...string) ([]byte, error) {
	doc := document{}
	if len(keys) == 0 {
		doc.Sections = c.sections
	}
	for _, k := range keys {
		sec, err := c.Lookup(k)
		if err != nil {
			return nil, err
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return yaml.Marshal(doc)
}
