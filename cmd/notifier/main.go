// Command notifier consumes tracker events from AMQP and posts approval
// notifications to a Discord channel.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/warp/finhub/config"
	"github.com/warp/finhub/events"
	"github.com/warp/finhub/logging"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
		Development: cfg.LogDevelopment,
		Component:   logging.ComponentNotifier,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("notifier exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is required")
	}
	if !cfg.DiscordEnabled() {
		return errors.New("DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID are required")
	}

	consumer, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return fmt.Errorf("connect AMQP: %w", err)
	}
	defer consumer.Close()

	discord, err := events.NewDiscordNotifier(cfg.DiscordBotToken, cfg.DiscordChannelID)
	if err != nil {
		return fmt.Errorf("create Discord notifier: %w", err)
	}
	defer discord.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("notifier started",
		zap.String("queue", cfg.AMQPQueue),
		zap.String("channel", cfg.DiscordChannelID),
	)
	err = consumer.Consume(ctx, func(ctx context.Context, e events.Event) error {
		if _, ok := events.Message(e); !ok {
			return nil
		}
		if err := discord.Publish(ctx, e); err != nil {
			return err
		}
		logger.Info("notification sent",
			zap.String(logging.FieldEvent, string(e.Type)),
			zap.String(logging.FieldRecordID, e.RecordID),
		)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		logger.Info("notifier stopped")
		return nil
	}
	return err
}
