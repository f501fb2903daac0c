package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/infra/observability"
	"github.com/boddenberg/household-hub-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var onboardingTracer = otel.Tracer("service/onboarding")

// StepTargets are the destinations of the wizard step actions.
type StepTargets struct {
	ProfileSetupPath string
	GmailOAuthURL    string
	BankModal        string
	DashboardPath    string
	SettingsPath     string
}

// DefaultStepTargets fills the in-app destinations around the configured ones.
func DefaultStepTargets(profileSetupPath, gmailOAuthURL string) StepTargets {
	return StepTargets{
		ProfileSetupPath: profileSetupPath,
		GmailOAuthURL:    gmailOAuthURL,
		BankModal:        "bank-connect",
		DashboardPath:    "/dashboard",
		SettingsPath:     "/settings",
	}
}

// OnboardingService drives the Get Started wizard and its reminder queue.
// Transitions of one user are serialized; each ends with one atomic Save.
type OnboardingService struct {
	store   port.OnboardingStateStore
	stamper domain.Stamper
	targets StepTargets
	metrics *observability.Metrics
	logger  *zap.Logger

	locks [lockStripes]sync.Mutex
}

// lockStripes bounds the per-user locks; users hashing to the same stripe
// simply wait for each other.
const lockStripes = 64

// NewOnboardingService creates the wizard service.
func NewOnboardingService(
	store port.OnboardingStateStore,
	stamper domain.Stamper,
	targets StepTargets,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *OnboardingService {
	return &OnboardingService{
		store:   store,
		stamper: stamper,
		targets: targets,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *OnboardingService) lock(user string) func() {
	h := fnv.New32a()
	h.Write([]byte(user))
	l := &s.locks[h.Sum32()%lockStripes]
	l.Lock()
	return l.Unlock
}

// View returns the wizard as currently persisted.
func (s *OnboardingService) View(ctx context.Context, user string) (*domain.WizardView, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.View")
	defer span.End()

	state, err := s.store.Load(ctx, user)
	if err != nil {
		s.logger.Error("failed to load onboarding state", zap.String("user", user), zap.Error(err))
		return nil, fmt.Errorf("load onboarding state: %w", err)
	}
	return state.View(), nil
}

// transition loads the state, applies fn and persists the result.
// Nothing is saved when fn fails.
func (s *OnboardingService) transition(
	ctx context.Context,
	user, action string,
	fn func(state *domain.OnboardingState) (*domain.StepAction, error),
) (*domain.WizardResult, error) {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService."+action)
	defer span.End()
	span.SetAttributes(attribute.String("user", user))

	unlock := s.lock(user)
	defer unlock()

	state, err := s.store.Load(ctx, user)
	if err != nil {
		s.logger.Error("failed to load onboarding state", zap.String("user", user), zap.Error(err))
		return nil, fmt.Errorf("load onboarding state: %w", err)
	}

	wasCompleted := state.Completed
	queued := make(map[domain.NotificationType]bool, len(state.Notifications))
	for _, n := range state.Notifications {
		queued[n.Type] = true
	}

	stepAction, err := fn(state)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, user, state); err != nil {
		s.logger.Error("failed to save onboarding state",
			zap.String("user", user),
			zap.String("action", action),
			zap.Error(err),
		)
		return nil, fmt.Errorf("save onboarding state: %w", err)
	}

	for _, n := range state.Notifications {
		if !queued[n.Type] {
			s.metrics.IncrNotification(n.Type)
		}
	}
	s.metrics.IncrWizard(action)
	if !wasCompleted && state.Completed {
		s.metrics.IncrWizard("complete")
	}

	s.logger.Info("onboarding transition",
		zap.String("user", user),
		zap.String("action", action),
		zap.Int("current_step", int(state.CurrentStep)),
		zap.Bool("completed", state.Completed),
		zap.Int("notifications", len(state.Notifications)),
	)
	return &domain.WizardResult{View: state.View(), Action: stepAction}, nil
}

// Skip queues a reminder for step and advances the wizard.
func (s *OnboardingService) Skip(ctx context.Context, user string, step domain.Step) (*domain.WizardView, error) {
	res, err := s.transition(ctx, user, "skip", func(state *domain.OnboardingState) (*domain.StepAction, error) {
		return nil, state.Skip(step, s.stamper)
	})
	if err != nil {
		return nil, err
	}
	return res.View, nil
}

// PrimaryAction completes step, queues reminders for the other unfinished
// steps and returns the step's external action. The last step requires a
// valid settings form; nothing is persisted when it is invalid.
func (s *OnboardingService) PrimaryAction(ctx context.Context, user string, step domain.Step, settings *domain.SettingsForm) (*domain.WizardResult, error) {
	return s.transition(ctx, user, "primary", func(state *domain.OnboardingState) (*domain.StepAction, error) {
		if step == domain.StepSettings {
			if err := settings.Validate(); err != nil {
				return nil, err
			}
		}
		if err := state.MarkPrimary(step, s.stamper); err != nil {
			return nil, err
		}
		state.Complete()
		action := s.actionFor(step, false)
		return &action, nil
	})
}

// Back moves the wizard to the previous step.
func (s *OnboardingService) Back(ctx context.Context, user string, step domain.Step) (*domain.WizardView, error) {
	res, err := s.transition(ctx, user, "back", func(state *domain.OnboardingState) (*domain.StepAction, error) {
		return nil, state.Back(step)
	})
	if err != nil {
		return nil, err
	}
	return res.View, nil
}

// Close dismisses the wizard, leaving a reminder for every unfinished step.
func (s *OnboardingService) Close(ctx context.Context, user string) (*domain.WizardView, error) {
	res, err := s.transition(ctx, user, "close", func(state *domain.OnboardingState) (*domain.StepAction, error) {
		state.Close(s.stamper)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return res.View, nil
}

// GoNotification removes the reminder and returns the action of its step.
func (s *OnboardingService) GoNotification(ctx context.Context, user, id string) (*domain.WizardResult, error) {
	return s.transition(ctx, user, "go", func(state *domain.OnboardingState) (*domain.StepAction, error) {
		n, ok := state.TakeNotification(id)
		if !ok {
			return nil, &domain.ErrNotFound{Resource: "notification", ID: id}
		}
		step, ok := domain.StepForNotification(n.Type)
		if !ok {
			return nil, &domain.ErrValidation{Field: "type", Message: fmt.Sprintf("unknown notification type %q", n.Type)}
		}
		state.Complete()
		action := s.actionFor(step, true)
		return &action, nil
	})
}

// DismissNotification removes a reminder without acting on it.
func (s *OnboardingService) DismissNotification(ctx context.Context, user, id string) (*domain.WizardView, error) {
	res, err := s.transition(ctx, user, "dismiss", func(state *domain.OnboardingState) (*domain.StepAction, error) {
		if _, ok := state.TakeNotification(id); !ok {
			return nil, &domain.ErrNotFound{Resource: "notification", ID: id}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return res.View, nil
}

// Reset forgets all wizard progress of user.
func (s *OnboardingService) Reset(ctx context.Context, user string) error {
	ctx, span := onboardingTracer.Start(ctx, "OnboardingService.Reset")
	defer span.End()

	unlock := s.lock(user)
	defer unlock()

	if err := s.store.Delete(ctx, user); err != nil {
		s.logger.Error("failed to reset onboarding state", zap.String("user", user), zap.Error(err))
		return fmt.Errorf("reset onboarding state: %w", err)
	}
	s.metrics.IncrWizard("reset")
	s.logger.Info("onboarding reset", zap.String("user", user))
	return nil
}

// actionFor maps a step to its external effect. The settings reminder opens
// the settings page instead of the dashboard.
func (s *OnboardingService) actionFor(step domain.Step, fromNotification bool) domain.StepAction {
	switch step {
	case domain.StepProfile:
		return domain.StepAction{Step: step, Kind: domain.ActionNavigate, Target: s.targets.ProfileSetupPath}
	case domain.StepGmail:
		return domain.StepAction{Step: step, Kind: domain.ActionRedirect, Target: s.targets.GmailOAuthURL}
	case domain.StepBank:
		return domain.StepAction{Step: step, Kind: domain.ActionOpenModal, Target: s.targets.BankModal}
	default:
		if fromNotification {
			return domain.StepAction{Step: step, Kind: domain.ActionNavigate, Target: s.targets.SettingsPath}
		}
		return domain.StepAction{Step: step, Kind: domain.ActionNavigate, Target: s.targets.DashboardPath}
	}
}
