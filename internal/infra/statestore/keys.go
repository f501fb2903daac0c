// Package statestore persists Get Started wizard progress as per-user keys.
//
// Keys follow the scheme the dashboard used in browser storage:
//
//	get-started-completed-<user>        "true" once the wizard is dismissed
//	get-started-notifications-<user>    JSON array of queued reminders
//	get-started-completed-steps-<user>  JSON array of step numbers
//	get-started-current-step-<user>     step number
//
// Rows are scoped by owner, so one user's key strings can never address another
// user's values. Every Save writes all keys of a user atomically.
package statestore

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
)

const (
	prefixCompleted      = "get-started-completed-"
	prefixNotifications  = "get-started-notifications-"
	prefixCompletedSteps = "get-started-completed-steps-"
	prefixCurrentStep    = "get-started-current-step-"
)

// CompletedKey is the key of the wizard-dismissed flag.
func CompletedKey(user string) string { return prefixCompleted + user }

// NotificationsKey is the key of the reminder queue.
func NotificationsKey(user string) string { return prefixNotifications + user }

// CompletedStepsKey is the key of the completed step set.
func CompletedStepsKey(user string) string { return prefixCompletedSteps + user }

// CurrentStepKey is the key of the current step.
func CurrentStepKey(user string) string { return prefixCurrentStep + user }

// Keys lists every key owned by user.
func Keys(user string) []string {
	return []string{CompletedKey(user), NotificationsKey(user), CompletedStepsKey(user), CurrentStepKey(user)}
}

// encode flattens a state into its key/value form.
func encode(user string, s *domain.OnboardingState) (map[string]string, error) {
	notifications := s.Notifications
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	n, err := json.Marshal(notifications)
	if err != nil {
		return nil, fmt.Errorf("encode notifications: %w", err)
	}
	steps := s.CompletedSteps
	if steps == nil {
		steps = []domain.Step{}
	}
	cs, err := json.Marshal(steps)
	if err != nil {
		return nil, fmt.Errorf("encode completed steps: %w", err)
	}

	return map[string]string{
		CompletedKey(user):      strconv.FormatBool(s.Completed),
		NotificationsKey(user):  string(n),
		CompletedStepsKey(user): string(cs),
		CurrentStepKey(user):    strconv.Itoa(int(s.CurrentStep)),
	}, nil
}

// decode rebuilds a state from whatever keys exist; missing keys keep defaults.
func decode(user string, kv map[string]string) (*domain.OnboardingState, error) {
	s := domain.NewOnboardingState()

	if v, ok := kv[CompletedKey(user)]; ok {
		s.Completed = v == "true"
	}
	if v, ok := kv[NotificationsKey(user)]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &s.Notifications); err != nil {
			return nil, fmt.Errorf("decode notifications for %s: %w", user, err)
		}
	}
	if v, ok := kv[CompletedStepsKey(user)]; ok && v != "" {
		if err := json.Unmarshal([]byte(v), &s.CompletedSteps); err != nil {
			return nil, fmt.Errorf("decode completed steps for %s: %w", user, err)
		}
	}
	if v, ok := kv[CurrentStepKey(user)]; ok && v != "" {
		step, err := strconv.Atoi(v)
		if err != nil || !domain.Step(step).Valid() {
			return nil, fmt.Errorf("decode current step for %s: %q", user, v)
		}
		s.CurrentStep = domain.Step(step)
	}
	return s, nil
}
