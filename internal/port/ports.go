// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
)

// RecordStore is the household backend as seen by the section services.
// Implemented by the backend REST client.
type RecordStore interface {
	ListRecords(ctx context.Context, user string, sec *domain.Section) ([]domain.Record, error)
	CreateRecord(ctx context.Context, user string, sec *domain.Section, payload map[string]any) (*domain.Record, error)
	UpdateRecord(ctx context.Context, user string, sec *domain.Section, id string, payload map[string]any) (*domain.Record, error)
	DeleteRecord(ctx context.Context, user string, sec *domain.Section, id string) error
}

// OnboardingStateStore persists the Get Started wizard progress per user.
// Load returns a fresh state for users that have none.
type OnboardingStateStore interface {
	Load(ctx context.Context, user string) (*domain.OnboardingState, error)
	Save(ctx context.Context, user string, state *domain.OnboardingState) error
	Delete(ctx context.Context, user string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
