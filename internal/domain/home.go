package domain

import "time"

// SectionSummary is one tile of the home hub.
type SectionSummary struct {
	Section       string `json:"section"`
	Title         string `json:"title"`
	Status        string `json:"status"` // ok, unavailable
	FilledSlots   int    `json:"filled_slots"`
	EmptySlots    int    `json:"empty_slots"`
	CustomRecords int    `json:"custom_records"`
	Duplicates    int    `json:"duplicates"`
	// MonthlyCost sums the cost field of the records shown as cards (slot
	// fillers and custom records), as a decimal string.
	MonthlyCost string `json:"monthly_cost,omitempty"`
	Error       string `json:"error,omitempty"`
}

// HomeSummary is returned by GET /v1/home.
type HomeSummary struct {
	User             string           `json:"user"`
	Sections         []SectionSummary `json:"sections"`
	TotalMonthlyCost string           `json:"total_monthly_cost"`
	WizardVisible    bool             `json:"wizard_visible"`
	PendingReminders int              `json:"pending_reminders"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// SubmitResult is returned after a successful create or edit.
type SubmitResult struct {
	Record *Record    `json:"record,omitempty"`
	Board  *SlotBoard `json:"board"`
}
