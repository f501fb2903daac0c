package domain_test

import (
	"testing"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
)

func TestExpansionSet(t *testing.T) {
	var set domain.ExpansionSet
	filled := domain.SlotView{Slot: domain.CatalogSlot{Name: "Electricity"}, Record: &domain.Record{ID: "1"}}
	empty := domain.SlotView{Slot: domain.CatalogSlot{Name: "Water"}}
	custom := domain.Record{ID: "9"}

	steps := []struct {
		name string
		got  func() domain.ClickOutcome
		want domain.ClickOutcome
	}{
		{"empty placeholder opens editor", func() domain.ClickOutcome { return set.ClickSlot(empty, false) }, domain.ClickOpenEditor},
		{"first click expands", func() domain.ClickOutcome { return set.ClickSlot(filled, false) }, domain.ClickExpanded},
		{"action button is ignored", func() domain.ClickOutcome { return set.ClickSlot(filled, true) }, domain.ClickIgnored},
		{"custom card is independent", func() domain.ClickOutcome { return set.ClickRecord(custom, false) }, domain.ClickExpanded},
		{"second click collapses", func() domain.ClickOutcome { return set.ClickSlot(filled, false) }, domain.ClickCollapsed},
	}
	for _, s := range steps {
		if got := s.got(); got != s.want {
			t.Errorf("%s: expected %s, got %s", s.name, s.want, got)
		}
	}

	if set.IsExpanded("Electricity") || !set.IsExpanded("9") {
		t.Errorf("unexpected expansion state %v", set.Keys())
	}
	if set.IsExpanded("Water") {
		t.Error("empty placeholders never expand")
	}
}

func TestNewExpansionSet(t *testing.T) {
	set := domain.NewExpansionSet("b", "a", "b", "")
	keys := set.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("expected [a b], got %v", keys)
	}
}
