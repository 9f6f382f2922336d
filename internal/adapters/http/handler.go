package http

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/melih/requirement-validator/internal/adapters/storage"
	"github.com/melih/requirement-validator/internal/core/domain"
	"github.com/melih/requirement-validator/internal/core/ports"
	"github.com/melih/requirement-validator/internal/metrics"
)

const (
	apiTitle   = "Requirement Validator API"
	apiVersion = "1.0.0"

	defaultListLimit = 20
	maxListLimit     = 100
)

// RequirementValidator is the validation engine behind the handler.
type RequirementValidator interface {
	Validate(requirement string, functional bool) domain.Validation
}

type ValidationHandler struct {
	validator RequirementValidator
	store     ports.ValidationStore // nil disables history
	events    ports.EventPublisher  // nil disables events
	log       zerolog.Logger
	now       func() time.Time
}

func NewValidationHandler(v RequirementValidator, store ports.ValidationStore, events ports.EventPublisher, log zerolog.Logger) *ValidationHandler {
	return &ValidationHandler{
		validator: v,
		store:     store,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

type ValidateRequest struct {
	Requirement  *string `json:"requirement"`
	IsFunctional *bool   `json:"is_functional"`
}

func detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"detail": msg})
}

func (h *ValidationHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": apiTitle,
		"status":  "✅ Online",
		"version": apiVersion,
	})
}

func (h *ValidationHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *ValidationHandler) ValidateRequirement(c *fiber.Ctx) error {
	var req ValidateRequest
	if err := c.BodyParser(&req); err != nil {
		return detail(c, fiber.StatusUnprocessableEntity, "Invalid request body")
	}
	if req.Requirement == nil {
		return detail(c, fiber.StatusUnprocessableEntity, "field required: requirement")
	}
	if req.IsFunctional == nil {
		return detail(c, fiber.StatusUnprocessableEntity, "field required: is_functional")
	}

	start := time.Now()
	result := h.validator.Validate(*req.Requirement, *req.IsFunctional)
	issueTypes := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		issueTypes = append(issueTypes, e.Type)
	}
	metrics.ObserveValidation(result.IsValid, *req.IsFunctional, issueTypes, time.Since(start))

	if h.store == nil && h.events == nil {
		return c.JSON(result)
	}

	result.ID = uuid.NewString()
	rec := &domain.Record{
		ID:           result.ID,
		IsFunctional: *req.IsFunctional,
		CreatedAt:    h.now().UTC(),
		Result:       result,
	}
	if h.store != nil {
		if err := h.store.Save(c.UserContext(), rec); err != nil {
			h.log.Error().Err(err).Msg("failed to store validation")
			return detail(c, fiber.StatusInternalServerError, err.Error())
		}
	}
	h.publish(c, rec)

	return c.JSON(result)
}

func (h *ValidationHandler) publish(c *fiber.Ctx, rec *domain.Record) {
	if h.events == nil {
		return
	}
	if err := h.events.PublishValidation(c.UserContext(), rec); err != nil {
		h.log.Warn().Err(err).Str("id", rec.ID).Msg("failed to publish validation event")
	}
}

func (h *ValidationHandler) GetValidation(c *fiber.Ctx) error {
	id := c.Params("id")
	rec, err := h.store.Get(c.UserContext(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return detail(c, fiber.StatusNotFound, "validation not found")
	}
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(rec)
}

func (h *ValidationHandler) ListValidations(c *fiber.Ctx) error {
	limit := defaultListLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return detail(c, fiber.StatusUnprocessableEntity, "limit must be a positive integer")
		}
		limit = min(n, maxListLimit)
	}

	recs, err := h.store.List(c.UserContext(), limit)
	if err != nil {
		return detail(c, fiber.StatusInternalServerError, err.Error())
	}
	if recs == nil {
		recs = []domain.Record{}
	}
	return c.JSON(recs)
}
