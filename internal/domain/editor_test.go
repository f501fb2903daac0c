package domain_test

import (
	"testing"

	"github.com/boddenberg/household-hub-bfa/internal/domain"

	"github.com/stretchr/testify/assert"
)

func utilitiesSection() *domain.Section {
	return &domain.Section{
		Key:           "utilities",
		CategoryField: "category",
		SlotField:     "type",
		Renames:       map[string]string{"providerUrl": "provider_url"},
		NumericFields: []string{"monthlyCost"},
		Endpoints: domain.Endpoints{
			Add:    "/add/utility",
			List:   "/get/utilities",
			Update: "/update/utility/:id",
			Delete: "/delete/utility/:id",
		},
		Categories: []domain.CategoryGroup{{Name: "Core", Slots: []domain.CatalogSlot{{Category: "Core", Name: "Electricity"}}}},
	}
}

func TestOpenEditor_EmptySlot(t *testing.T) {
	sec := utilitiesSection()
	view := domain.SlotView{Slot: domain.CatalogSlot{Category: "Core", Name: "Electricity", Icon: "⚡"}}

	seed := domain.OpenEditor(sec, domain.EditorTarget{View: &view})

	assert.Equal(t, domain.EditorCreate, seed.Mode)
	assert.Empty(t, seed.RecordID)
	assert.Equal(t, map[string]any{"category": "Core", "type": "Electricity"}, seed.Values)
}

func TestOpenEditor_FilledSlotUsesFormKeys(t *testing.T) {
	sec := utilitiesSection()
	r := domain.Record{
		ID: "7", Category: "Core", SlotName: "Electricity", Active: true,
		Fields: map[string]any{"id": "7", "type": "Electricity", "provider_url": "https://x.example", "monthlyCost": 80},
	}
	view := domain.SlotView{Slot: domain.CatalogSlot{Name: "Electricity"}, Record: &r}

	seed := domain.OpenEditor(sec, domain.EditorTarget{View: &view})

	assert.Equal(t, domain.EditorEdit, seed.Mode)
	assert.Equal(t, "7", seed.RecordID)
	assert.Equal(t, "https://x.example", seed.Values["providerUrl"])
	assert.NotContains(t, seed.Values, "id")
	assert.NotContains(t, seed.Values, "provider_url")
}

func TestOpenEditor_GenericAdd(t *testing.T) {
	sec := utilitiesSection()

	assert.Empty(t, domain.OpenEditor(sec, domain.EditorTarget{}).Values)
	assert.Equal(t, map[string]any{"category": "Core"}, domain.OpenEditor(sec, domain.EditorTarget{Category: "Core"}).Values)
}

func TestSectionHelpers(t *testing.T) {
	sec := utilitiesSection()

	assert.Equal(t, "/update/utility/42", sec.Path(domain.OpUpdate, "42"))
	assert.Equal(t, "/get/utilities", sec.Path(domain.OpList, ""))
	assert.Equal(t, "provider_url", sec.APIKey("providerUrl"))
	assert.Equal(t, "providerUrl", sec.FormKey("provider_url"))
	assert.Equal(t, "provider", sec.APIKey("provider"))
	assert.True(t, sec.IsNumeric("monthlyCost"))
	assert.Equal(t, "Core", sec.DefaultCategory())
	assert.False(t, sec.HasCategory("core"))
}

func TestRecordFromMap_ActiveFlag(t *testing.T) {
	sec := utilitiesSection()
	tests := []struct {
		flag any
		want bool
	}{
		{1, true},
		{float64(1), true},
		{"1", true},
		{true, true},
		{0, false},
		{"true", false},
		{nil, false},
		{2, false},
	}
	for _, tt := range tests {
		got := sec.RecordFromMap(map[string]any{"id": 5, "category": "Core", "type": "Gas", "is_active": tt.flag})
		assert.Equal(t, tt.want, got.Active, "is_active=%#v", tt.flag)
		assert.Equal(t, "5", got.ID)
		assert.Equal(t, "Gas", got.SlotName)
	}
}

func TestFilterRecords(t *testing.T) {
	records := []domain.Record{
		{ID: "1", Category: "Core", Active: true},
		{ID: "2", Category: "Core", Active: false},
		{ID: "3", Category: "Services", Active: true},
		{ID: "4", Category: "Core", Active: true},
	}

	got := domain.FilterRecords(records, "Core")

	assert.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "4", got[1].ID)
	assert.Empty(t, domain.FilterRecords(records, "Missing"))
}
