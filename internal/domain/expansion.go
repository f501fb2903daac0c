package domain

import "sort"

// ClickOutcome is the result of clicking a card on a section board.
type ClickOutcome string

const (
	ClickOpenEditor ClickOutcome = "open_editor"
	ClickExpanded   ClickOutcome = "expanded"
	ClickCollapsed  ClickOutcome = "collapsed"
	ClickIgnored    ClickOutcome = "ignored"
)

// ExpansionSet tracks which filled cards are expanded, keyed by slot name or
// record id. The zero value is ready to use.
type ExpansionSet struct {
	keys map[string]struct{}
}

// NewExpansionSet starts with keys expanded.
func NewExpansionSet(keys ...string) *ExpansionSet {
	e := &ExpansionSet{}
	for _, k := range keys {
		if k != "" && !e.IsExpanded(k) {
			e.Toggle(k)
		}
	}
	return e
}

// Keys returns the expanded keys in sorted order.
func (e *ExpansionSet) Keys() []string {
	out := make([]string, 0, len(e.keys))
	for k := range e.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsExpanded reports whether the card with key is expanded.
func (e *ExpansionSet) IsExpanded(key string) bool {
	_, ok := e.keys[key]
	return ok
}

// Toggle flips the card and returns the new expansion state.
func (e *ExpansionSet) Toggle(key string) bool {
	if e.keys == nil {
		e.keys = make(map[string]struct{})
	}
	if _, ok := e.keys[key]; ok {
		delete(e.keys, key)
		return false
	}
	e.keys[key] = struct{}{}
	return true
}

// ClickSlot handles a click on a slot card. Empty placeholders always open the
// create editor. onAction marks clicks on the edit/delete buttons, which never
// toggle the card.
func (e *ExpansionSet) ClickSlot(view SlotView, onAction bool) ClickOutcome {
	if !view.Filled() {
		return ClickOpenEditor
	}
	return e.click(view.Key(), onAction)
}

// ClickRecord handles a click on a custom record card.
func (e *ExpansionSet) ClickRecord(rec Record, onAction bool) ClickOutcome {
	return e.click(rec.ID, onAction)
}

func (e *ExpansionSet) click(key string, onAction bool) ClickOutcome {
	if onAction {
		return ClickIgnored
	}
	if e.Toggle(key) {
		return ClickExpanded
	}
	return ClickCollapsed
}
