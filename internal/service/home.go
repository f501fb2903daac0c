package service

import (
	"context"
	"time"

	"github.com/boddenberg/household-hub-bfa/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var homeTracer = otel.Tracer("service/home")

// HomeService assembles the home hub: one tile per section plus the wizard state.
type HomeService struct {
	sections *SectionService
	wizard   *OnboardingService
	logger   *zap.Logger
	now      func() time.Time
}

// NewHomeService creates the home hub service.
func NewHomeService(sections *SectionService, wizard *OnboardingService, logger *zap.Logger) *HomeService {
	return &HomeService{
		sections: sections,
		wizard:   wizard,
		logger:   logger,
		now:      time.Now,
	}
}

// Summary fetches every section in parallel. A failing section is reported
// as unavailable instead of failing the whole page.
func (h *HomeService) Summary(ctx context.Context, user string) (*domain.HomeSummary, error) {
	ctx, span := homeTracer.Start(ctx, "HomeService.Summary")
	defer span.End()

	secs := h.sections.Catalog().Sections()
	tiles := make([]domain.SectionSummary, len(secs))
	costs := make([]decimal.Decimal, len(secs))

	g, gctx := errgroup.WithContext(ctx)
	for i, sec := range secs {
		i, sec := i, sec
		g.Go(func() error {
			records, err := h.sections.Records(gctx, user, sec)
			if err != nil {
				tiles[i] = domain.SectionSummary{
					Section: sec.Key,
					Title:   sec.Title,
					Status:  "unavailable",
					Error:   "section temporarily unavailable",
				}
				return nil
			}
			tiles[i], costs[i] = summarize(sec, records)
			return nil
		})
	}

	var view *domain.WizardView
	g.Go(func() error {
		v, err := h.wizard.View(gctx, user)
		if err != nil {
			return err
		}
		view = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, c := range costs {
		total = total.Add(c)
	}

	h.logger.Debug("home summary built",
		zap.String("user", user),
		zap.Int("sections", len(tiles)),
		zap.String("total_monthly_cost", total.StringFixed(2)),
	)

	return &domain.HomeSummary{
		User:             user,
		Sections:         tiles,
		TotalMonthlyCost: total.StringFixed(2),
		WizardVisible:    view.Visible,
		PendingReminders: len(view.Notifications),
		GeneratedAt:      h.now().UTC(),
	}, nil
}

// summarize reconciles every category of sec. The monthly cost covers the
// records the boards show as cards: slot fillers and custom records of the
// catalog categories. Duplicates and records of unknown categories are left
// out.
func summarize(sec *domain.Section, records []domain.Record) (domain.SectionSummary, decimal.Decimal) {
	tile := domain.SectionSummary{Section: sec.Key, Title: sec.Title, Status: "ok"}
	cost := decimal.Zero
	costKey := sec.APIKey(sec.CostField)
	addCost := func(rec domain.Record) {
		if sec.CostField == "" {
			return
		}
		if d, ok := decimalFrom(rec.Fields[costKey]); ok {
			cost = cost.Add(d)
		}
	}

	for _, category := range sec.CategoryNames() {
		r := domain.Reconcile(sec.Slots(category), domain.FilterRecords(records, category))
		for _, v := range r.SlotViews {
			if v.Filled() {
				tile.FilledSlots++
				addCost(*v.Record)
			} else {
				tile.EmptySlots++
			}
		}
		for _, rec := range r.CustomRecords {
			addCost(rec)
		}
		tile.CustomRecords += len(r.CustomRecords)
		tile.Duplicates += r.DuplicateCount()
	}

	if sec.CostField != "" {
		tile.MonthlyCost = cost.StringFixed(2)
	}
	return tile, cost
}
