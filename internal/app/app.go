package app

import (
	"fmt"
	"time"

	"lessonshop/internal/config"
	"lessonshop/internal/database"
	"lessonshop/internal/handlers"
	"lessonshop/internal/metrics"
	"lessonshop/internal/middleware"
	"lessonshop/internal/repositories"
	"lessonshop/internal/services"
	"lessonshop/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App is the wired service: storage, broker, services and the Fiber app.
type App struct {
	Fiber    *fiber.App
	Lessons  *services.LessonService
	Orders   *services.OrderService
	Registry *prometheus.Registry

	db  *gorm.DB // nil for the memory driver
	mq  *rabbitmq.Client
	log *logrus.Entry
}

// New builds the application described by cfg.
func New(cfg config.Config, logger *logrus.Logger) (*App, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	log := logrus.NewEntry(logger)
	a := &App{log: log.WithField("component", "app")}

	var (
		lessonRepo repositories.LessonRepository
		orderRepo  repositories.OrderRepository
		store      repositories.Store
	)
	switch cfg.DatabaseDriver {
	case "memory":
		mem := repositories.NewMemoryStore()
		lessonRepo, orderRepo, store = mem, mem.Orders(), mem
	default:
		db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, log)
		if err != nil {
			return nil, err
		}
		a.db = db
		lessonRepo = repositories.NewGORMLessonRepository(db)
		orderRepo = repositories.NewGORMOrderRepository(db)
		store = repositories.NewGORMStore(db)
	}
	a.log.WithField("driver", cfg.DatabaseDriver).Info("store ready")

	opts := services.OrderServiceOptions{Logger: log, TxTimeout: cfg.OrderTxTimeout}
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
		if err != nil {
			// orders are still accepted; events are best-effort
			a.log.WithError(err).Warn("RabbitMQ unavailable, order events disabled")
		} else {
			a.mq = mq
			opts.Publisher = mq
		}
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	opts.Metrics = metrics.NewOrderMetricsWithRegisterer(a.Registry)

	a.Lessons = services.NewLessonService(lessonRepo, log)
	a.Orders = services.NewOrderService(store, orderRepo, opts)

	a.Fiber = fiber.New(fiber.Config{AppName: "lessonshop"})
	a.Fiber.Use(recover.New())
	a.Fiber.Use(fiberlogger.New())
	a.Fiber.Use(middleware.NewHTTPMetrics(a.Registry).Handler())

	a.Fiber.Get("/health", a.handleHealth)
	a.Fiber.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))

	apiV1 := a.Fiber.Group("/api/v1")
	handlers.NewLessonHandler(a.Lessons, log).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(a.Orders, log).RegisterRoutes(apiV1)

	return a, nil
}

// Broker returns the RabbitMQ client, or nil when events are disabled.
func (a *App) Broker() *rabbitmq.Client {
	return a.mq
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	status := fiber.StatusOK
	body := fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"database": "memory",
		"rabbitmq": "disabled",
	}

	if a.db != nil {
		body["database"] = "connected"
		if err := database.Ping(c.UserContext(), a.db); err != nil {
			a.log.WithError(err).Warn("health check: database unreachable")
			status = fiber.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["database"] = "unreachable"
		}
	}
	if a.mq != nil {
		body["rabbitmq"] = "disconnected"
		if a.mq.Connected() {
			body["rabbitmq"] = "connected"
		}
	}
	return c.Status(status).JSON(body)
}

// Close releases the broker connection and the database.
func (a *App) Close() error {
	var firstErr error
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close RabbitMQ client: %w", err)
		}
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
