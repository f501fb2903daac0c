package handler

import (
	"net/http"
	"strconv"

	"github.com/boddenberg/household-hub-bfa/internal/domain"
	"github.com/boddenberg/household-hub-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func stepParam(r *http.Request) (domain.Step, error) {
	n, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil || !domain.Step(n).Valid() {
		return 0, &domain.ErrValidation{Field: "step", Message: "must be a wizard step index"}
	}
	return domain.Step(n), nil
}

func wizardViewHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/onboarding")
		defer span.End()

		view, err := svc.View(ctx, UserFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func wizardSkipHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/steps/{step}/skip")
		defer span.End()

		step, err := stepParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		view, err := svc.Skip(ctx, UserFromContext(ctx), step)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func wizardPrimaryHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/steps/{step}/primary")
		defer span.End()

		step, err := stepParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var body struct {
			Settings *domain.SettingsForm `json:"settings"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := svc.PrimaryAction(ctx, UserFromContext(ctx), step, body.Settings)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func wizardBackHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/steps/{step}/back")
		defer span.End()

		step, err := stepParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		view, err := svc.Back(ctx, UserFromContext(ctx), step)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func wizardCloseHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/close")
		defer span.End()

		view, err := svc.Close(ctx, UserFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func wizardResetHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/onboarding")
		defer span.End()

		if err := svc.Reset(ctx, UserFromContext(ctx)); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "onboarding reset"})
	}
}

func notificationGoHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/onboarding/notifications/{id}/go")
		defer span.End()

		res, err := svc.GoNotification(ctx, UserFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func notificationDismissHandler(svc *service.OnboardingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/onboarding/notifications/{id}")
		defer span.End()

		view, err := svc.DismissNotification(ctx, UserFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
