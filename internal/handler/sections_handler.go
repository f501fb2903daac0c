package handler

import (
	"net/http"
	"strconv"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Catalog
// ============================================================

func listCatalogHandler(svc *service.SectionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"sections": svc.Catalog().Sections()})
	}
}

func getCatalogSectionHandler(svc *service.SectionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sec, err := svc.Catalog().Lookup(chi.URLParam(r, "section"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sec)
	}
}

// ============================================================
// Boards: GET /v1/sections/{section}/board?category=
// ============================================================

func boardHandler(svc *service.SectionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/sections/{section}/board")
		defer span.End()

		section := chi.URLParam(r, "section")
		span.SetAttributes(attribute.String("section", section))

		board, err := svc.Board(ctx, UserFromContext(ctx), section, r.URL.Query().Get("category"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}

func editorHandler(svc *service.SectionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sections/{section}/editor")
		defer span.End()

		var req service.EditorRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		seed, err := svc.Editor(ctx, UserFromContext(ctx), chi.URLParam(r, "section"), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, seed)
	}
}

func clickHandler(svc *service.SectionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sections/{section}/board/click")
		defer span.End()

		var req service.ClickRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := svc.Click(ctx, UserFromContext(ctx), chi.URLParam(r, "section"), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ============================================================
// Records
// ============================================================

type recordBody struct {
	Values map[string]any `json:"values"`
}

func createRecordHandler(svc *service.SectionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/sections/{section}/records")
		defer span.End()

		var body recordBody
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := svc.Submit(ctx, UserFromContext(ctx), chi.URLParam(r, "section"), service.SubmitRequest{
			Mode:   domain.EditorCreate,
			Values: body.Values,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func updateRecordHandler(svc *service.SectionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/sections/{section}/records/{recordId}")
		defer span.End()

		recordID := chi.URLParam(r, "recordId")
		span.SetAttributes(attribute.String("record.id", recordID))

		var body recordBody
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := svc.Submit(ctx, UserFromContext(ctx), chi.URLParam(r, "section"), service.SubmitRequest{
			Mode:     domain.EditorEdit,
			RecordID: recordID,
			Values:   body.Values,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func deleteRecordHandler(svc *service.SectionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/sections/{section}/records/{recordId}")
		defer span.End()

		recordID := chi.URLParam(r, "recordId")
		span.SetAttributes(attribute.String("record.id", recordID))

		confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
		board, err := svc.Remove(ctx, UserFromContext(ctx), chi.URLParam(r, "section"), recordID, r.URL.Query().Get("category"), confirmed)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"board": board})
	}
}

// ============================================================
// Home: GET /v1/home?refresh=
// ============================================================

func homeHandler(svc *service.HomeService, sections *service.SectionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/home")
		defer span.End()

		user := UserFromContext(ctx)
		if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
			dropped := sections.Invalidate(user)
			logger.Debug("home refresh requested", zap.String("user", user), zap.Int("dropped", dropped))
		}

		summary, err := svc.Summary(ctx, user)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}
