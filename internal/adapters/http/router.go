package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/melih/requirement-validator/internal/core/ports"
	"github.com/melih/requirement-validator/internal/metrics"
)

// Deps are the collaborators of the HTTP application. Store and Events are optional.
type Deps struct {
	Validator RequirementValidator
	Store     ports.ValidationStore
	Events    ports.EventPublisher
	Log       zerolog.Logger
}

// NewApp builds the Fiber application with middleware and routes.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               apiTitle,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// recover sits inside the logger so panics are logged as 500s
	app.Use(RequestLogger(d.Log))
	app.Use(recover.New())
	// Any origin, method and header. Browsers refuse credentials with a wildcard origin,
	// so AllowCredentials stays off.
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,HEAD,OPTIONS",
	}))

	h := NewValidationHandler(d.Validator, d.Store, d.Events, d.Log)

	app.Get("/", h.Root)
	app.Get("/healthz", h.Health)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Post("/validate-requirement", h.ValidateRequirement)

	if d.Store != nil {
		validations := app.Group("/validations")
		validations.Get("/", h.ListValidations)
		validations.Get("/:id", h.GetValidation)
	}

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := err.Error()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"detail": msg})
}
