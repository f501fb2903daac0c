package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/infra/observability"
	"github.com/boddenberg/household-hub-bfa/internal/infra/statestore"
	"github.com/boddenberg/household-hub-bfa/internal/port"
	"github.com/boddenberg/household-hub-bfa/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixedStamper() domain.Stamper {
	var mu sync.Mutex
	n := 0
	return domain.Stamper{
		Now: func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) },
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("n-%d", n)
		},
	}
}

type failingStateStore struct {
	*statestore.Memory
	saveErr error
}

func (f *failingStateStore) Save(ctx context.Context, user string, s *domain.OnboardingState) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Memory.Save(ctx, user, s)
}

func newOnboardingService(store port.OnboardingStateStore) (*service.OnboardingService, *observability.Metrics) {
	metrics := observability.NewMetrics()
	targets := service.DefaultStepTargets("/profile/setup", "http://localhost:5000/api/auth/google")
	return service.NewOnboardingService(store, fixedStamper(), targets, metrics, zap.NewNop()), metrics
}

func notificationTypes(ns []domain.Notification) []domain.NotificationType {
	out := make([]domain.NotificationType, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Type)
	}
	return out
}

func TestOnboarding_FreshUserSeesWizard(t *testing.T) {
	svc, _ := newOnboardingService(statestore.NewMemory())

	view, err := svc.View(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, view.Visible)
	assert.Equal(t, domain.StepProfile, view.CurrentStep)
	assert.Empty(t, view.Notifications)
	assert.Len(t, view.Steps, 4)
}

func TestOnboarding_SkipThenConnectGmail(t *testing.T) {
	svc, metrics := newOnboardingService(statestore.NewMemory())
	ctx := context.Background()

	view, err := svc.Skip(ctx, "alice", domain.StepProfile)
	require.NoError(t, err)
	assert.Equal(t, domain.StepGmail, view.CurrentStep)
	assert.Equal(t, []domain.NotificationType{domain.NotifyCompleteProfile}, notificationTypes(view.Notifications))

	res, err := svc.PrimaryAction(ctx, "alice", domain.StepGmail, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Action)
	assert.Equal(t, domain.ActionRedirect, res.Action.Kind)
	assert.Equal(t, "http://localhost:5000/api/auth/google", res.Action.Target)

	assert.False(t, res.View.Visible)
	assert.Equal(t, []domain.Step{domain.StepGmail}, res.View.CompletedSteps)
	assert.Equal(t, []domain.NotificationType{
		domain.NotifyCompleteProfile,
		domain.NotifyConnectBank,
		domain.NotifyCompleteSettings,
	}, notificationTypes(res.View.Notifications))

	snap := metrics.Snapshot()
	assert.EqualValues(t, 3, snap.NotificationsEnqueued)
	assert.EqualValues(t, 1, snap.WizardCompletions)
}

func TestOnboarding_SettingsRequiresValidForm(t *testing.T) {
	store := statestore.NewMemory()
	svc, _ := newOnboardingService(store)
	ctx := context.Background()

	_, err := svc.PrimaryAction(ctx, "alice", domain.StepSettings, &domain.SettingsForm{Timezone: "Mars/Olympus", Currency: "USD", TemperatureUnit: "F"})
	var valErr *domain.ErrValidation
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "timezone", valErr.Field)

	view, err := svc.View(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, view.Visible, "nothing may be persisted on invalid settings")
	assert.Empty(t, view.Notifications)

	res, err := svc.PrimaryAction(ctx, "alice", domain.StepSettings, &domain.SettingsForm{Timezone: "America/Chicago", Currency: "USD", TemperatureUnit: "F"})
	require.NoError(t, err)
	assert.Equal(t, domain.StepAction{Step: domain.StepSettings, Kind: domain.ActionNavigate, Target: "/dashboard"}, *res.Action)
}

func TestOnboarding_CloseQueuesEveryUnfinishedStep(t *testing.T) {
	svc, _ := newOnboardingService(statestore.NewMemory())

	view, err := svc.Close(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, view.Visible)
	assert.Len(t, view.Notifications, 4)

	view, err = svc.Close(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, view.Notifications, 4, "reminders are unique by type")
}

func TestOnboarding_BackStaysAtFirstStep(t *testing.T) {
	svc, _ := newOnboardingService(statestore.NewMemory())
	ctx := context.Background()

	_, err := svc.Skip(ctx, "alice", domain.StepProfile)
	require.NoError(t, err)

	view, err := svc.Back(ctx, "alice", domain.StepGmail)
	require.NoError(t, err)
	assert.Equal(t, domain.StepProfile, view.CurrentStep)

	view, err = svc.Back(ctx, "alice", domain.StepProfile)
	require.NoError(t, err)
	assert.Equal(t, domain.StepProfile, view.CurrentStep)

	_, err = svc.Back(ctx, "alice", domain.Step(9))
	var valErr *domain.ErrValidation
	assert.True(t, errors.As(err, &valErr))
}

func TestOnboarding_GoNotification(t *testing.T) {
	svc, _ := newOnboardingService(statestore.NewMemory())
	ctx := context.Background()

	view, err := svc.Close(ctx, "alice")
	require.NoError(t, err)

	var settingsID, bankID string
	for _, n := range view.Notifications {
		switch n.Type {
		case domain.NotifyCompleteSettings:
			settingsID = n.ID
		case domain.NotifyConnectBank:
			bankID = n.ID
		}
	}

	res, err := svc.GoNotification(ctx, "alice", settingsID)
	require.NoError(t, err)
	assert.Equal(t, "/settings", res.Action.Target)
	assert.Len(t, res.View.Notifications, 3)

	res, err = svc.GoNotification(ctx, "alice", bankID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionOpenModal, res.Action.Kind)
	assert.Equal(t, "bank-connect", res.Action.Target)

	_, err = svc.GoNotification(ctx, "alice", bankID)
	var nf *domain.ErrNotFound
	assert.True(t, errors.As(err, &nf))
}

func TestOnboarding_DismissAndReset(t *testing.T) {
	store := statestore.NewMemory()
	svc, _ := newOnboardingService(store)
	ctx := context.Background()

	view, err := svc.Skip(ctx, "alice", domain.StepProfile)
	require.NoError(t, err)

	view, err = svc.DismissNotification(ctx, "alice", view.Notifications[0].ID)
	require.NoError(t, err)
	assert.Empty(t, view.Notifications)
	assert.Equal(t, domain.StepGmail, view.CurrentStep)

	require.NoError(t, svc.Reset(ctx, "alice"))
	view, err = svc.View(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.NewOnboardingState().View(), view)
}

func TestOnboarding_SaveFailure(t *testing.T) {
	store := &failingStateStore{Memory: statestore.NewMemory(), saveErr: errors.New("disk full")}
	svc, metrics := newOnboardingService(store)

	_, err := svc.Skip(context.Background(), "alice", domain.StepProfile)
	require.Error(t, err)
	assert.EqualValues(t, 0, metrics.Snapshot().NotificationsEnqueued)

	store.saveErr = nil
	view, err := svc.View(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StepProfile, view.CurrentStep)
}

func TestOnboarding_ConcurrentTransitionsKeepUniqueReminders(t *testing.T) {
	svc, _ := newOnboardingService(statestore.NewMemory())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Close(ctx, "alice")
		}()
	}
	wg.Wait()

	view, err := svc.View(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, view.Notifications, 4)
}

func TestOnboarding_ReskipAfterBackKeepsOneReminder(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "onboarding.db")

	store, err := statestore.NewSQLite(ctx, path)
	require.NoError(t, err)
	svc, _ := newOnboardingService(store)

	view, err := svc.Skip(ctx, "alice", domain.StepGmail)
	require.NoError(t, err)
	assert.Equal(t, domain.StepBank, view.CurrentStep)
	assert.Equal(t, []domain.NotificationType{domain.NotifyConnectGmail}, notificationTypes(view.Notifications))
	firstID := view.Notifications[0].ID
	require.NoError(t, store.Close())

	// A later session reads the same database.
	store, err = statestore.NewSQLite(ctx, path)
	require.NoError(t, err)
	defer store.Close()
	svc, _ = newOnboardingService(store)

	view, err = svc.Back(ctx, "alice", domain.StepBank)
	require.NoError(t, err)
	assert.Equal(t, domain.StepGmail, view.CurrentStep)

	view, err = svc.Skip(ctx, "alice", domain.StepGmail)
	require.NoError(t, err)
	assert.Equal(t, domain.StepBank, view.CurrentStep)
	require.Len(t, view.Notifications, 1)
	assert.Equal(t, domain.NotifyConnectGmail, view.Notifications[0].Type)
	assert.Equal(t, firstID, view.Notifications[0].ID)

	view, err = svc.View(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, view.Notifications, 1)
	assert.True(t, view.Visible)
}

func TestOnboarding_ManyUsersShareLockStripes(t *testing.T) {
	svc, _ := newOnboardingService(statestore.NewMemory())
	ctx := context.Background()

	const users = 200
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		user := fmt.Sprintf("user-%d", i)
		for j := 0; j < 3; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = svc.Skip(ctx, user, domain.StepProfile)
			}()
		}
	}
	wg.Wait()

	for i := 0; i < users; i++ {
		view, err := svc.View(ctx, fmt.Sprintf("user-%d", i))
		require.NoError(t, err)
		assert.Equal(t, domain.StepGmail, view.CurrentStep)
		assert.Len(t, view.Notifications, 1)
	}
}
