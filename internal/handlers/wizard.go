package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/tg-planner/backend/internal/auth"
	"example.com/tg-planner/backend/internal/models"
	"example.com/tg-planner/backend/internal/notifications"
	"example.com/tg-planner/backend/internal/repository"
	"example.com/tg-planner/backend/internal/wizard"
)

type WizardHandler struct {
	Storage       repository.KVStore
	Notifier      *notifications.Hub
	Cache         Invalidator
	MaxValueBytes int
	Now           func() time.Time
}

// NewWizardHandler создает обработчик мастера годовой рефлексии.
func NewWizardHandler(storage repository.KVStore, notifier *notifications.Hub, cache Invalidator, maxValueBytes int) *WizardHandler {
	return &WizardHandler{
		Storage:       storage,
		Notifier:      notifier,
		Cache:         cache,
		MaxValueBytes: maxValueBytes,
		Now:           time.Now,
	}
}

type YearlyRequest struct {
	Year    int               `json:"year" validate:"required,min=1970,max=2100"`
	Answers map[string]string `json:"answers" validate:"required"`
}

type StepsResponse struct {
	Steps []wizard.Step `json:"steps"`
}

type ReportsResponse struct {
	Reports []models.YearlyReport `json:"reports"`
}

type StepErrorResponse struct {
	Error string `json:"error"`
	Step  string `json:"step"`
}

// YearlySteps возвращает описание шагов годовой рефлексии.
func (h *WizardHandler) YearlySteps(c echo.Context) error {
	return c.JSON(http.StatusOK, StepsResponse{Steps: wizard.YearlySteps()})
}

// YearlyReports возвращает сохраненные годовые отчеты.
func (h *WizardHandler) YearlyReports(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	reports, err := loadDocument[models.YearlyReport](c.Request().Context(), h.Storage, userID, models.KeyYearlyReports)
	if err != nil {
		return serverError(c)
	}

	return c.JSON(http.StatusOK, ReportsResponse{Reports: reports})
}

// SubmitYearly проверяет ответы по шагам и дописывает отчет в документ yearly_reports.
func (h *WizardHandler) SubmitYearly(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req YearlyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "validation failed")
	}

	answers, err := wizard.Replay(wizard.YearlySteps(), req.Answers)
	if err != nil {
		var stepErr *wizard.StepError
		if errors.As(err, &stepErr) {
			return c.JSON(http.StatusUnprocessableEntity, StepErrorResponse{Error: stepErr.Err.Error(), Step: stepErr.StepID})
		}
		return badRequest(c, "validation failed")
	}

	report := models.YearlyReport{
		ID:        uuid.NewString(),
		Year:      req.Year,
		Answers:   answers,
		CreatedAt: h.now().UTC(),
	}

	err = appendToDocument(c.Request().Context(), h.Storage, userID, models.KeyYearlyReports, report, h.MaxValueBytes)
	switch {
	case errors.Is(err, errDocumentNotList):
		return conflict(c, "yearly reports document is not a list")
	case errors.Is(err, errDocumentTooLarge):
		return tooLarge(c, "yearly reports document is too large")
	case err != nil:
		return serverError(c)
	}

	if h.Cache != nil {
		h.Cache.Invalidate(userID)
	}
	publishStorageEvent(h.Notifier, userID, notifications.EventReportSaved, models.KeyYearlyReports)

	return c.JSON(http.StatusCreated, report)
}

func (h *WizardHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}
