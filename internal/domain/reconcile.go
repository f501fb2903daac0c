package domain

import "time"

// SlotView is a catalog slot paired with the record filling it, if any.
// Duplicates holds further active records that name the same slot.
type SlotView struct {
	Slot       CatalogSlot `json:"slot"`
	Record     *Record     `json:"record,omitempty"`
	Duplicates []Record    `json:"duplicates,omitempty"`
}

// Filled reports whether a record occupies the slot.
func (v SlotView) Filled() bool {
	return v.Record != nil
}

// Key identifies the slot card for expansion state.
func (v SlotView) Key() string {
	return v.Slot.Name
}

// Reconciliation is the render-ready result of merging a catalog with records.
type Reconciliation struct {
	SlotViews     []SlotView `json:"slot_views"`
	CustomRecords []Record   `json:"custom_records"`
}

// DuplicateCount is the number of records that matched an already filled slot.
func (r Reconciliation) DuplicateCount() int {
	n := 0
	for _, v := range r.SlotViews {
		n += len(v.Duplicates)
	}
	return n
}

// Reconcile merges the catalog slots of one category with its records.
//
// Each slot takes the first record (in input order) whose slot name equals the
// slot name; later matches are kept in Duplicates. Records matching no slot are
// returned as custom records in input order. Every slot appears exactly once
// and every record appears exactly once in the result.
func Reconcile(catalog []CatalogSlot, records []Record) Reconciliation {
	slotIndex := make(map[string]int, len(catalog))
	views := make([]SlotView, len(catalog))
	for i, slot := range catalog {
		views[i] = SlotView{Slot: slot}
		if _, seen := slotIndex[slot.Name]; !seen {
			slotIndex[slot.Name] = i
		}
	}

	custom := make([]Record, 0)
	for i := range records {
		rec := records[i]
		idx, ok := slotIndex[rec.SlotName]
		if !ok {
			custom = append(custom, rec)
			continue
		}
		if views[idx].Record == nil {
			views[idx].Record = &rec
			continue
		}
		views[idx].Duplicates = append(views[idx].Duplicates, rec)
	}

	return Reconciliation{SlotViews: views, CustomRecords: custom}
}

// SlotBoard is the response of GET /v1/sections/{section}/board.
type SlotBoard struct {
	Section       string     `json:"section"`
	Title         string     `json:"title"`
	Category      string     `json:"category"`
	Categories    []string   `json:"categories"`
	GenericIcon   string     `json:"generic_icon"`
	SlotViews     []SlotView `json:"slot_views"`
	CustomRecords []Record   `json:"custom_records"`
	FetchedAt     time.Time  `json:"fetched_at"`
}

// BuildBoard filters the fetched records to one category and reconciles them
// against that category's catalog slots.
func BuildBoard(sec *Section, category string, records []Record, fetchedAt time.Time) *SlotBoard {
	rec := Reconcile(sec.Slots(category), FilterRecords(records, category))
	return &SlotBoard{
		Section:       sec.Key,
		Title:         sec.Title,
		Category:      category,
		Categories:    sec.CategoryNames(),
		GenericIcon:   sec.GenericIcon,
		SlotViews:     rec.SlotViews,
		CustomRecords: rec.CustomRecords,
		FetchedAt:     fetchedAt,
	}
}
