package main

import (
	"context"
	"errors"
	"os"

	"rechnungen/internal/amqp"
	"rechnungen/internal/cli"
	"rechnungen/internal/core"
	"rechnungen/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	logger.Info("Starting rechnungen-notifier", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	notifyLog := logger.WithComponent(log.ComponentNotifier)
	err = client.ConsumeNotifications(ctx, func(msg *amqp.InvoiceNotificationMessage) error {
		n := msg.Notification()
		text := n.Name + " (fällig am " + n.Date + ")"
		if n.Kind == core.KindReminder {
			text = n.Name + " (Erinnerung am " + n.Date + ")"
		}
		notifyLog.InfoContext(ctx, text,
			log.FieldInvoiceID, n.InvoiceID,
			"kind", string(n.Kind),
			log.FieldMessageID, msg.MessageID)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Notifier stopped")
}
