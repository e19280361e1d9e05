package server

import (
	"errors"
	"time"

	"gruenerator-be/internal/bootstrap"
	"gruenerator-be/internal/config"
	"gruenerator-be/internal/pkg/metrics"
	"gruenerator-be/internal/pkg/serverutils"
	"gruenerator-be/internal/service"
	"gruenerator-be/pkg/interactive"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:    2 * 1024 * 1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.App.CorsAllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(requestMetrics(container.Metrics))
	app.Use(serverutils.ErrorHandlerMiddleware(MapDomainErrors))

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.container.Logger.Info("SERVER", "Server is running", map[string]interface{}{"port": s.cfg.App.Port})
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(10 * time.Second)
}

// MapDomainErrors gives service errors their HTTP status.
func MapDomainErrors(err error) int {
	switch {
	case errors.Is(err, interactive.ErrSessionNotFound):
		return fiber.StatusNotFound
	case interactive.IsValidation(err):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrHistoryUnavailable):
		return fiber.StatusServiceUnavailable
	}
	return 0
}

// requestMetrics counts requests by route pattern, after the error handler
// has set the final status.
func requestMetrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		code := c.Response().StatusCode()
		if err != nil {
			code, _ = serverutils.Classify(err, MapDomainErrors)
		}
		m.ObserveHTTP(c.Method(), c.Route().Path, code)
		return err
	}
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	app.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.JSON(serverutils.SuccessResponse("ok", fiber.Map{"status": "up"}))
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(c.Metrics.Registry, promhttp.HandlerOpts{})))

	c.ProgressHandler.RegisterRoutes(app)

	api := app.Group("/api")
	c.InteractiveController.RegisterRoutes(api)
	c.ChatController.RegisterRoutes(api)
}
