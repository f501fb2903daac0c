package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ============================================================
// Get Started wizard
// ============================================================

// Step is a wizard step index.
type Step int

const (
	StepProfile Step = iota
	StepGmail
	StepBank
	StepSettings
)

// LastStep is the final wizard step.
const LastStep = StepSettings

// NotificationType identifies the reminder for one step. Queued reminders are
// unique by type.
type NotificationType string

const (
	NotifyCompleteProfile  NotificationType = "complete-profile"
	NotifyConnectGmail     NotificationType = "connect-gmail"
	NotifyConnectBank      NotificationType = "connect-bank"
	NotifyCompleteSettings NotificationType = "complete-settings"
)

// StepInfo describes a wizard step for the UI.
type StepInfo struct {
	Step             Step             `json:"step"`
	Key              string           `json:"key"`
	Title            string           `json:"title"`
	PrimaryLabel     string           `json:"primary_label"`
	NotificationType NotificationType `json:"notification_type"`
	Reminder         string           `json:"reminder"`
}

// Steps lists the wizard in order.
var Steps = []StepInfo{
	{StepProfile, "profile", "Set up your profile", "Setup", NotifyCompleteProfile, "Finish setting up your profile"},
	{StepGmail, "gmail", "Connect your email", "Connect", NotifyConnectGmail, "Connect your Gmail account to import bills and receipts"},
	{StepBank, "bank", "Connect your bank", "Connect", NotifyConnectBank, "Connect your bank to track household spending"},
	{StepSettings, "settings", "Choose your settings", "Complete Setup", NotifyCompleteSettings, "Review your dashboard settings"},
}

// Valid reports whether s is a wizard step.
func (s Step) Valid() bool {
	return s >= StepProfile && s <= LastStep
}

// Info returns the descriptor of s. s must be valid.
func (s Step) Info() StepInfo {
	return Steps[s]
}

// StepForNotification maps a reminder type back to its step.
func StepForNotification(t NotificationType) (Step, bool) {
	for _, info := range Steps {
		if info.NotificationType == t {
			return info.Step, true
		}
	}
	return 0, false
}

// Notification is a queued reminder for an unfinished step.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}

// Stamper mints notification ids and timestamps.
type Stamper struct {
	Now   func() time.Time
	NewID func() string
}

// DefaultStamper uses the wall clock and random UUIDs.
func DefaultStamper() Stamper {
	return Stamper{Now: time.Now, NewID: uuid.NewString}
}

// EnqueueIfAbsent appends a reminder of type t unless one is already queued.
// The input slice is never modified; when t is already present it is returned
// unchanged.
func EnqueueIfAbsent(current []Notification, t NotificationType, message string, st Stamper) []Notification {
	for _, n := range current {
		if n.Type == t {
			return current
		}
	}
	out := make([]Notification, len(current), len(current)+1)
	copy(out, current)
	return append(out, Notification{
		ID:        st.NewID(),
		Type:      t,
		Message:   message,
		CreatedAt: st.Now().UTC(),
	})
}

// OnboardingState is the persisted wizard progress of one user.
type OnboardingState struct {
	CurrentStep    Step           `json:"current_step"`
	CompletedSteps []Step         `json:"completed_steps"`
	Notifications  []Notification `json:"notifications"`
	Completed      bool           `json:"completed"`
}

// NewOnboardingState is the state of a user who never opened the wizard.
func NewOnboardingState() *OnboardingState {
	return &OnboardingState{
		CurrentStep:    StepProfile,
		CompletedSteps: []Step{},
		Notifications:  []Notification{},
	}
}

// Visible reports whether the wizard should be shown.
func (s *OnboardingState) Visible() bool {
	return !s.Completed
}

// IsStepCompleted reports whether step was finished through its primary action.
func (s *OnboardingState) IsStepCompleted(step Step) bool {
	for _, c := range s.CompletedSteps {
		if c == step {
			return true
		}
	}
	return false
}

// HasNotification reports whether a reminder of type t is queued.
func (s *OnboardingState) HasNotification(t NotificationType) bool {
	for _, n := range s.Notifications {
		if n.Type == t {
			return true
		}
	}
	return false
}

func (s *OnboardingState) enqueue(step Step, st Stamper) {
	info := step.Info()
	s.Notifications = EnqueueIfAbsent(s.Notifications, info.NotificationType, info.Reminder, st)
}

func (s *OnboardingState) markCompleted(step Step) {
	if s.IsStepCompleted(step) {
		return
	}
	s.CompletedSteps = append(s.CompletedSteps, step)
	sort.Slice(s.CompletedSteps, func(i, j int) bool { return s.CompletedSteps[i] < s.CompletedSteps[j] })
}

// enqueueOutstanding queues a reminder for every unfinished step except skip.
func (s *OnboardingState) enqueueOutstanding(skip Step, st Stamper) {
	for _, info := range Steps {
		if info.Step == skip || s.IsStepCompleted(info.Step) {
			continue
		}
		s.enqueue(info.Step, st)
	}
}

func checkStep(step Step) error {
	if !step.Valid() {
		return &ErrValidation{Field: "step", Message: fmt.Sprintf("must be between %d and %d", StepProfile, LastStep)}
	}
	return nil
}

// Skip queues a reminder for step and advances; skipping the last step
// completes the wizard.
func (s *OnboardingState) Skip(step Step, st Stamper) error {
	if err := checkStep(step); err != nil {
		return err
	}
	s.enqueue(step, st)
	if step < LastStep {
		s.CurrentStep = step + 1
		return nil
	}
	s.Complete()
	return nil
}

// MarkPrimary records the primary action of step: the step is completed and
// every other unfinished step gets a reminder. The step action itself is
// performed by the caller.
func (s *OnboardingState) MarkPrimary(step Step, st Stamper) error {
	if err := checkStep(step); err != nil {
		return err
	}
	s.markCompleted(step)
	s.enqueueOutstanding(step, st)
	return nil
}

// Back moves to the previous step, never below the first.
func (s *OnboardingState) Back(step Step) error {
	if err := checkStep(step); err != nil {
		return err
	}
	if step > StepProfile {
		s.CurrentStep = step - 1
	} else {
		s.CurrentStep = StepProfile
	}
	return nil
}

// Close queues reminders for every unfinished step and hides the wizard.
// Steps the user never reached are included.
func (s *OnboardingState) Close(st Stamper) {
	s.enqueueOutstanding(-1, st)
	s.Complete()
}

// Complete hides the wizard for good.
func (s *OnboardingState) Complete() {
	s.Completed = true
}

// TakeNotification removes the reminder with id from the queue.
func (s *OnboardingState) TakeNotification(id string) (Notification, bool) {
	for i, n := range s.Notifications {
		if n.ID == id {
			out := make([]Notification, 0, len(s.Notifications)-1)
			out = append(out, s.Notifications[:i]...)
			out = append(out, s.Notifications[i+1:]...)
			s.Notifications = out
			return n, true
		}
	}
	return Notification{}, false
}

// ============================================================
// Step actions
// ============================================================

// ActionKind is what the UI must do after a primary or "Go" action.
type ActionKind string

const (
	ActionNavigate  ActionKind = "navigate"
	ActionRedirect  ActionKind = "redirect"
	ActionOpenModal ActionKind = "open_modal"
)

// StepAction is the external effect of a step.
type StepAction struct {
	Step   Step       `json:"step"`
	Kind   ActionKind `json:"kind"`
	Target string     `json:"target"`
}

// SettingsForm is the settings sub-form embedded in the last wizard step.
type SettingsForm struct {
	Timezone           string `json:"timezone"`
	Currency           string `json:"currency"`
	TemperatureUnit    string `json:"temperature_unit"`
	WeeklyDigestEmails bool   `json:"weekly_digest_emails"`
}

// Validate checks the settings form before the wizard can finish.
func (f *SettingsForm) Validate() error {
	if f == nil {
		return &ErrValidation{Field: "settings", Message: "required"}
	}
	if f.Timezone == "" {
		return &ErrValidation{Field: "timezone", Message: "required"}
	}
	if _, err := time.LoadLocation(f.Timezone); err != nil {
		return &ErrValidation{Field: "timezone", Message: "unknown time zone"}
	}
	if len(f.Currency) != 3 {
		return &ErrValidation{Field: "currency", Message: "must be a 3-letter ISO code"}
	}
	switch f.TemperatureUnit {
	case "C", "F":
	default:
		return &ErrValidation{Field: "temperature_unit", Message: "must be C or F"}
	}
	return nil
}

// WizardView is the response of GET /v1/onboarding.
type WizardView struct {
	Visible        bool           `json:"visible"`
	CurrentStep    Step           `json:"current_step"`
	Steps          []StepInfo     `json:"steps"`
	CompletedSteps []Step         `json:"completed_steps"`
	Notifications  []Notification `json:"notifications"`
}

// WizardResult is returned by wizard transitions that trigger an external action.
type WizardResult struct {
	View   *WizardView `json:"wizard"`
	Action *StepAction `json:"action,omitempty"`
}

// View projects the state for the UI.
func (s *OnboardingState) View() *WizardView {
	completed := make([]Step, len(s.CompletedSteps))
	copy(completed, s.CompletedSteps)
	notifications := make([]Notification, len(s.Notifications))
	copy(notifications, s.Notifications)
	return &WizardView{
		Visible:        s.Visible(),
		CurrentStep:    s.CurrentStep,
		Steps:          Steps,
		CompletedSteps: completed,
		Notifications:  notifications,
	}
}
