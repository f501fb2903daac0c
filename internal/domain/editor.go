package domain

// EditorMode tells the record form whether it creates or edits.
type EditorMode string

const (
	EditorCreate EditorMode = "create"
	EditorEdit   EditorMode = "edit"
)

// Valid reports whether m is a known mode.
func (m EditorMode) Valid() bool {
	return m == EditorCreate || m == EditorEdit
}

// FormSeed is the initial state of the record form. The parent screen keeps it
// as its editor request and the form renders from it.
type FormSeed struct {
	Section  string         `json:"section"`
	Mode     EditorMode     `json:"mode"`
	RecordID string         `json:"record_id,omitempty"`
	Values   map[string]any `json:"values"`
}

// EditorTarget is what the user clicked to open the form. A zero target is the
// generic "add" button.
type EditorTarget struct {
	View     *SlotView
	Record   *Record
	Category string
}

// OpenEditor seeds the form for target. Filled slots and bare records open in
// edit mode with their current values; empty slots open in create mode with
// category and slot name pre-filled; a zero target opens a blank create form.
func OpenEditor(sec *Section, target EditorTarget) FormSeed {
	switch {
	case target.Record != nil:
		return editSeed(sec, *target.Record)
	case target.View != nil && target.View.Record != nil:
		return editSeed(sec, *target.View.Record)
	case target.View != nil:
		return FormSeed{
			Section: sec.Key,
			Mode:    EditorCreate,
			Values: map[string]any{
				sec.CategoryField: target.View.Slot.Category,
				sec.SlotField:     target.View.Slot.Name,
			},
		}
	default:
		values := map[string]any{}
		if target.Category != "" {
			values[sec.CategoryField] = target.Category
		}
		return FormSeed{Section: sec.Key, Mode: EditorCreate, Values: values}
	}
}

func editSeed(sec *Section, rec Record) FormSeed {
	values := make(map[string]any, len(rec.Fields))
	for k, v := range rec.Fields {
		if k == "id" {
			continue
		}
		values[sec.FormKey(k)] = v
	}
	return FormSeed{
		Section:  sec.Key,
		Mode:     EditorEdit,
		RecordID: rec.ID,
		Values:   values,
	}
}
