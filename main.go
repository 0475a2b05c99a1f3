package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lessonshop/internal/app"
	"lessonshop/internal/config"
	"lessonshop/internal/logging"
	"lessonshop/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load(viper.New())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	log := logger.WithField("component", "main")

	// --- Wiring ---
	application, err := app.New(cfg, logger)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialise application")
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.WithError(err).Error("Error while closing resources")
		}
	}()

	if cfg.SeedLessons {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := application.SeedLessons(ctx, app.DefaultLessons()); err != nil {
			log.WithError(err).Error("Failed to seed lessons")
		}
		cancel()
	}

	// --- Order event consumer ---
	if mq := application.Broker(); mq != nil {
		if err := mq.ConsumeOrderEvents(orderEventLogger(logger.WithField("component", "order_events"))); err != nil {
			log.WithError(err).Warn("Failed to start RabbitMQ consumer")
		}
	}

	// --- Start HTTP Server ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.WithField("port", cfg.AppPort).Info("Starting server")
		if err := application.Fiber.Listen(cfg.AppPort); err != nil {
			log.WithError(err).Error("Server stopped")
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	log.Info("Shutting down server...")
	if err := application.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("Error during Fiber shutdown")
	}
	log.Info("Server gracefully stopped")
}

// orderEventLogger handles consumed order.placed events by logging them.
func orderEventLogger(log *logrus.Entry) func(rabbitmq.OrderPlacedEvent) error {
	return func(event rabbitmq.OrderPlacedEvent) error {
		log.WithFields(logrus.Fields{
			"order_id":     event.OrderID,
			"lessons":      len(event.LessonIDs),
			"total_spaces": event.TotalSpaces,
			"placed_at":    event.PlacedAt.Format(time.RFC3339),
		}).Info("Order placed")
		return nil
	}
}
