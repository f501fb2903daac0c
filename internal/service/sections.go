package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/household-hub-bfa/internal/catalog"
	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/infra/observability"
	"github.com/boddenberg/household-hub-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var sectionTracer = otel.Tracer("service/sections")

// SectionService serves the predefined-slot boards (insurance, utilities,
// contacts, property, vehicles, other assets) and their record mutations.
type SectionService struct {
	catalog *catalog.Catalog
	store   port.RecordStore
	cache   port.Cache[[]domain.Record]
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewSectionService creates the section service with all dependencies injected.
func NewSectionService(
	cat *catalog.Catalog,
	store port.RecordStore,
	cache port.Cache[[]domain.Record],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SectionService {
	return &SectionService{
		catalog: cat,
		store:   store,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// EditorRequest names what the user clicked: a record, a slot, or nothing
// (the generic "add" button).
type EditorRequest struct {
	Category string `json:"category"`
	SlotName string `json:"slot_name"`
	RecordID string `json:"record_id"`
}

// ClickRequest is a click on a board card. Expanded carries the keys the
// client currently shows expanded.
type ClickRequest struct {
	Category string   `json:"category"`
	SlotName string   `json:"slot_name"`
	RecordID string   `json:"record_id"`
	OnAction bool     `json:"on_action"`
	Expanded []string `json:"expanded"`
}

// ClickResult tells the client what the click did.
type ClickResult struct {
	Outcome  domain.ClickOutcome `json:"outcome"`
	Expanded []string            `json:"expanded"`
	Editor   *domain.FormSeed    `json:"editor,omitempty"`
}

// SubmitRequest carries the record form.
type SubmitRequest struct {
	Mode     domain.EditorMode `json:"mode"`
	RecordID string            `json:"record_id"`
	Values   map[string]any    `json:"values"`
}

func recordsCacheKey(user, section string) string {
	return fmt.Sprintf("records:%s:%s", user, section)
}

// Catalog exposes the section catalog.
func (s *SectionService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Invalidate drops every cached record list of user, so the next read
// goes to the backend. It reports how many lists were dropped.
func (s *SectionService) Invalidate(user string) int {
	prefix := fmt.Sprintf("records:%s:", user)
	if pc, ok := s.cache.(interface{ DeletePrefix(string) int }); ok {
		return pc.DeletePrefix(prefix)
	}
	n := 0
	for _, sec := range s.catalog.Sections() {
		s.cache.Delete(recordsCacheKey(user, sec.Key))
		n++
	}
	return n
}

// Records returns the section records for user, from cache when fresh.
func (s *SectionService) Records(ctx context.Context, user string, sec *domain.Section) ([]domain.Record, error) {
	key := recordsCacheKey(user, sec.Key)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("records")
		return cached, nil
	}
	s.metrics.IncrCacheMiss("records")

	records, err := s.store.ListRecords(ctx, user, sec)
	if err != nil {
		s.metrics.IncrBackendError(sec.Key)
		s.logger.Error("failed to fetch records",
			zap.String("user", user),
			zap.String("section", sec.Key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("fetch %s: %w", sec.Key, err)
	}
	s.cache.Set(key, records)
	return records, nil
}

func (s *SectionService) resolve(sectionKey, category string) (*domain.Section, string, error) {
	sec, err := s.catalog.Lookup(sectionKey)
	if err != nil {
		return nil, "", err
	}
	if category == "" {
		category = sec.DefaultCategory()
	}
	if !sec.HasCategory(category) {
		return nil, "", &domain.ErrValidation{Field: "category", Message: fmt.Sprintf("unknown category %q for %s", category, sec.Key)}
	}
	return sec, category, nil
}

// Board reconciles one category tab of a section against the user's records.
func (s *SectionService) Board(ctx context.Context, user, sectionKey, category string) (*domain.SlotBoard, error) {
	ctx, span := sectionTracer.Start(ctx, "SectionService.Board")
	defer span.End()
	span.SetAttributes(attribute.String("section", sectionKey), attribute.String("category", category))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("board", time.Since(start))
	}()

	sec, category, err := s.resolve(sectionKey, category)
	if err != nil {
		return nil, err
	}

	records, err := s.Records(ctx, user, sec)
	if err != nil {
		return nil, err
	}
	return s.buildBoard(sec, category, records), nil
}

func (s *SectionService) buildBoard(sec *domain.Section, category string, records []domain.Record) *domain.SlotBoard {
	board := domain.BuildBoard(sec, category, records, s.now().UTC())

	dups := 0
	for _, v := range board.SlotViews {
		dups += len(v.Duplicates)
	}
	if dups > 0 {
		s.logger.Warn("records share a catalog slot",
			zap.String("section", sec.Key),
			zap.String("category", category),
			zap.Int("duplicates", dups),
		)
	}
	s.metrics.IncrBoard(sec.Key, dups)
	return board
}

// Editor seeds the record form for what the user clicked. It never mutates anything.
func (s *SectionService) Editor(ctx context.Context, user, sectionKey string, req EditorRequest) (*domain.FormSeed, error) {
	ctx, span := sectionTracer.Start(ctx, "SectionService.Editor")
	defer span.End()

	if req.RecordID == "" && req.SlotName == "" {
		sec, err := s.catalog.Lookup(sectionKey)
		if err != nil {
			return nil, err
		}
		if req.Category != "" && !sec.HasCategory(req.Category) {
			return nil, &domain.ErrValidation{Field: "category", Message: fmt.Sprintf("unknown category %q for %s", req.Category, sec.Key)}
		}
		seed := domain.OpenEditor(sec, domain.EditorTarget{Category: req.Category})
		return &seed, nil
	}

	if req.RecordID != "" {
		sec, err := s.catalog.Lookup(sectionKey)
		if err != nil {
			return nil, err
		}
		records, err := s.Records(ctx, user, sec)
		if err != nil {
			return nil, err
		}
		for i := range records {
			if records[i].ID == req.RecordID {
				seed := domain.OpenEditor(sec, domain.EditorTarget{Record: &records[i]})
				return &seed, nil
			}
		}
		return nil, &domain.ErrNotFound{Resource: sec.Key + " record", ID: req.RecordID}
	}

	board, err := s.Board(ctx, user, sectionKey, req.Category)
	if err != nil {
		return nil, err
	}
	sec, _ := s.catalog.Section(sectionKey)
	for i := range board.SlotViews {
		if board.SlotViews[i].Slot.Name == req.SlotName {
			seed := domain.OpenEditor(sec, domain.EditorTarget{View: &board.SlotViews[i]})
			return &seed, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "slot", ID: req.SlotName}
}

// Click resolves a card click. Empty slots open the create editor; filled
// slots and custom records toggle their expansion unless an action button
// was hit.
func (s *SectionService) Click(ctx context.Context, user, sectionKey string, req ClickRequest) (*ClickResult, error) {
	ctx, span := sectionTracer.Start(ctx, "SectionService.Click")
	defer span.End()

	if (req.SlotName == "") == (req.RecordID == "") {
		return nil, &domain.ErrValidation{Field: "slot_name", Message: "exactly one of slot_name or record_id is required"}
	}

	board, err := s.Board(ctx, user, sectionKey, req.Category)
	if err != nil {
		return nil, err
	}
	sec, _ := s.catalog.Section(sectionKey)
	set := domain.NewExpansionSet(req.Expanded...)

	if req.SlotName != "" {
		for _, v := range board.SlotViews {
			if v.Slot.Name != req.SlotName {
				continue
			}
			res := &ClickResult{Outcome: set.ClickSlot(v, req.OnAction)}
			if res.Outcome == domain.ClickOpenEditor {
				seed := domain.OpenEditor(sec, domain.EditorTarget{View: &v})
				res.Editor = &seed
			}
			res.Expanded = set.Keys()
			return res, nil
		}
		return nil, &domain.ErrNotFound{Resource: "slot", ID: req.SlotName}
	}

	for _, rec := range board.CustomRecords {
		if rec.ID == req.RecordID {
			return &ClickResult{Outcome: set.ClickRecord(rec, req.OnAction), Expanded: set.Keys()}, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: sec.Key + " record", ID: req.RecordID}
}

// Submit creates or updates a record, then refetches the board.
//
// Validation errors are returned before any backend call. On backend failure
// nothing is cached or changed, so the caller can resubmit the same form.
func (s *SectionService) Submit(ctx context.Context, user, sectionKey string, req SubmitRequest) (*domain.SubmitResult, error) {
	ctx, span := sectionTracer.Start(ctx, "SectionService.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("section", sectionKey), attribute.String("mode", string(req.Mode)))

	sec, err := s.catalog.Lookup(sectionKey)
	if err != nil {
		return nil, err
	}
	if !req.Mode.Valid() {
		return nil, &domain.ErrValidation{Field: "mode", Message: "must be create or edit"}
	}
	if req.Mode == domain.EditorEdit && req.RecordID == "" {
		return nil, &domain.ErrValidation{Field: "record_id", Message: "required in edit mode"}
	}

	payload, err := NormalizePayload(sec, req.Values)
	if err != nil {
		s.logger.Debug("record form rejected", zap.String("section", sec.Key), zap.Error(err))
		return nil, err
	}

	op := "create"
	var saved *domain.Record
	if req.Mode == domain.EditorCreate {
		saved, err = s.store.CreateRecord(ctx, user, sec, payload)
	} else {
		op = "update"
		saved, err = s.store.UpdateRecord(ctx, user, sec, req.RecordID, payload)
	}
	if err != nil {
		return nil, s.mutationFailed(sec, op, user, req.RecordID, err)
	}
	s.metrics.IncrMutation(op, "success")

	s.logger.Info("record saved",
		zap.String("user", user),
		zap.String("section", sec.Key),
		zap.String("op", op),
		zap.String("record_id", req.RecordID),
	)

	category, _ := payload[sec.APIKey(sec.CategoryField)].(string)
	board := s.refetch(ctx, user, sec, category)
	return &domain.SubmitResult{Record: saved, Board: board}, nil
}

// Remove deletes a record once the user confirmed, then refetches the board.
func (s *SectionService) Remove(ctx context.Context, user, sectionKey, recordID, category string, confirmed bool) (*domain.SlotBoard, error) {
	ctx, span := sectionTracer.Start(ctx, "SectionService.Remove")
	defer span.End()
	span.SetAttributes(attribute.String("section", sectionKey), attribute.String("record.id", recordID))

	sec, err := s.catalog.Lookup(sectionKey)
	if err != nil {
		return nil, err
	}
	if recordID == "" {
		return nil, &domain.ErrValidation{Field: "record_id", Message: "required"}
	}
	if !confirmed {
		return nil, &domain.ErrConfirmationRequired{Action: fmt.Sprintf("delete %s record %s", sec.Key, recordID)}
	}

	if err := s.store.DeleteRecord(ctx, user, sec, recordID); err != nil {
		return nil, s.mutationFailed(sec, "delete", user, recordID, err)
	}
	s.metrics.IncrMutation("delete", "success")

	s.logger.Info("record deleted",
		zap.String("user", user),
		zap.String("section", sec.Key),
		zap.String("record_id", recordID),
	)
	return s.refetch(ctx, user, sec, category), nil
}

func (s *SectionService) mutationFailed(sec *domain.Section, op, user, recordID string, err error) error {
	s.metrics.IncrMutation(op, "error")

	var appErr *domain.ErrApplication
	if errors.As(err, &appErr) {
		if appErr.Message == "" {
			appErr.Message = fmt.Sprintf("Failed to %s %s record", op, sec.Title)
		}
		s.logger.Warn("backend rejected mutation",
			zap.String("user", user),
			zap.String("section", sec.Key),
			zap.String("op", op),
			zap.String("message", appErr.Message),
		)
		return appErr
	}

	s.metrics.IncrBackendError(sec.Key)
	s.logger.Error("mutation failed",
		zap.String("user", user),
		zap.String("section", sec.Key),
		zap.String("op", op),
		zap.String("record_id", recordID),
		zap.Error(err),
	)
	return fmt.Errorf("%s %s record: %w", op, sec.Key, err)
}

// refetch drops the cached list and rebuilds the board from the backend.
// The mutation already succeeded, so a failed refetch is logged and yields nil.
func (s *SectionService) refetch(ctx context.Context, user string, sec *domain.Section, category string) *domain.SlotBoard {
	s.cache.Delete(recordsCacheKey(user, sec.Key))

	if category == "" || !sec.HasCategory(category) {
		category = sec.DefaultCategory()
	}
	records, err := s.Records(ctx, user, sec)
	if err != nil {
		s.logger.Warn("refetch after mutation failed",
			zap.String("user", user),
			zap.String("section", sec.Key),
			zap.Error(err),
		)
		return nil
	}
	return s.buildBoard(sec, category, records)
}
