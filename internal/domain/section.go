package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ============================================================
// Sections & Catalog Slots
// ============================================================

// CatalogSlot is a predefined placeholder shown on a section board.
// Identity is the (Category, Name) pair.
type CatalogSlot struct {
	Category    string `yaml:"-" json:"category"`
	Name        string `yaml:"name" json:"name"`
	Icon        string `yaml:"icon" json:"icon"`
	Description string `yaml:"description" json:"description"`
}

// CategoryGroup is one tab of a section board.
type CategoryGroup struct {
	Name  string        `yaml:"name" json:"name"`
	Slots []CatalogSlot `yaml:"slots" json:"slots"`
}

// Endpoints holds the backend path templates for a section. Paths may contain
// an ":id" placeholder.
type Endpoints struct {
	Add    string `yaml:"add" json:"add"`
	List   string `yaml:"list" json:"list"`
	Update string `yaml:"update" json:"update"`
	Delete string `yaml:"delete" json:"delete"`
}

// EndpointOp selects one of the section endpoints.
type EndpointOp string

const (
	OpAdd    EndpointOp = "add"
	OpList   EndpointOp = "list"
	OpUpdate EndpointOp = "update"
	OpDelete EndpointOp = "delete"
)

// Section describes one record domain of the dashboard (insurance, utilities, ...).
type Section struct {
	Key            string            `yaml:"key" json:"key"`
	Title          string            `yaml:"title" json:"title"`
	CategoryField  string            `yaml:"category_field" json:"category_field"`
	SlotField      string            `yaml:"slot_field" json:"slot_field"`
	ListKey        string            `yaml:"list_key" json:"list_key"`
	RecordKey      string            `yaml:"record_key" json:"record_key"`
	Endpoints      Endpoints         `yaml:"endpoints" json:"endpoints"`
	NumericFields  []string          `yaml:"numeric_fields" json:"numeric_fields,omitempty"`
	Renames        map[string]string `yaml:"renames" json:"renames,omitempty"`
	RequiredFields []string          `yaml:"required_fields" json:"required_fields,omitempty"`
	CostField      string            `yaml:"cost_field" json:"cost_field,omitempty"`
	GenericIcon    string            `yaml:"generic_icon" json:"generic_icon"`
	Categories     []CategoryGroup   `yaml:"categories" json:"categories"`
}

// CategoryNames returns the category tabs in catalog order.
func (s *Section) CategoryNames() []string {
	names := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		names = append(names, c.Name)
	}
	return names
}

// DefaultCategory is the first tab, or "" for a section without categories.
func (s *Section) DefaultCategory() string {
	if len(s.Categories) == 0 {
		return ""
	}
	return s.Categories[0].Name
}

// HasCategory reports whether category is one of the section tabs.
func (s *Section) HasCategory(category string) bool {
	for _, c := range s.Categories {
		if c.Name == category {
			return true
		}
	}
	return false
}

// Slots returns the catalog slots of one category tab.
func (s *Section) Slots(category string) []CatalogSlot {
	for _, c := range s.Categories {
		if c.Name == category {
			out := make([]CatalogSlot, len(c.Slots))
			copy(out, c.Slots)
			return out
		}
	}
	return nil
}

// Path renders the endpoint template for op, substituting the record id.
func (s *Section) Path(op EndpointOp, id string) string {
	var tmpl string
	switch op {
	case OpAdd:
		tmpl = s.Endpoints.Add
	case OpList:
		tmpl = s.Endpoints.List
	case OpUpdate:
		tmpl = s.Endpoints.Update
	case OpDelete:
		tmpl = s.Endpoints.Delete
	}
	return strings.ReplaceAll(tmpl, ":id", id)
}

// APIKey maps a form field to the key the backend expects.
func (s *Section) APIKey(formKey string) string {
	if k, ok := s.Renames[formKey]; ok {
		return k
	}
	return formKey
}

// FormKey is the inverse of APIKey.
func (s *Section) FormKey(apiKey string) string {
	for form, api := range s.Renames {
		if api == apiKey {
			return form
		}
	}
	return apiKey
}

// IsNumeric reports whether the form field must be sent as a JSON number.
func (s *Section) IsNumeric(formKey string) bool {
	for _, f := range s.NumericFields {
		if f == formKey {
			return true
		}
	}
	return false
}

// RecordFromMap builds a Record from a raw backend object using the section's
// category and slot field names.
func (s *Section) RecordFromMap(raw map[string]any) Record {
	return Record{
		ID:       stringify(raw["id"]),
		Category: stringify(raw[s.CategoryField]),
		SlotName: stringify(raw[s.SlotField]),
		Active:   isActive(raw["is_active"]),
		Fields:   raw,
	}
}

// ============================================================
// Records
// ============================================================

// Record is a server-owned entity of one section.
type Record struct {
	ID       string         `json:"id"`
	Category string         `json:"category"`
	SlotName string         `json:"slot_name"`
	Active   bool           `json:"is_active"`
	Fields   map[string]any `json:"fields"`
}

// FilterRecords keeps the active records of one category, preserving order.
func FilterRecords(records []Record, category string) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Active && r.Category == category {
			out = append(out, r)
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// isActive follows the backend convention: only is_active === 1 counts.
func isActive(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "1"
	case json.Number:
		return t.String() == "1"
	case float64:
		return t == 1
	case int:
		return t == 1
	case int64:
		return t == 1
	default:
		return false
	}
}
