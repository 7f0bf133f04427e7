package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pushflow/internal/broker"
	"pushflow/internal/config"
	"pushflow/internal/contacts"
	"pushflow/internal/fanout"
	"pushflow/internal/logger"
	"pushflow/pkg/bootstrap"
	"pushflow/pkg/logging"
)

var (
	configFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "push-dispatcher",
		Short: "Web-push delivery dispatcher",
		Long:  "Push dispatcher consumes queued push tasks, delivers them through the push gateway and maintains delivery statistics",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sendCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadRuntime(earlyLog *logging.EarlyLog) (*config.Config, logger.Logger, error) {
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
		if configFile == "" {
			earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
			return nil, nil, fmt.Errorf("config file is required")
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return nil, nil, err
	}

	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the push dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(logging.NewEarlyLog())
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Push Dispatcher")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.Fatalf("Failed to initialize application: %v", err)
			}

			log.InfowCtx(ctx, "Push dispatcher running")
			if err := app.Run(ctx); err != nil && err != context.Canceled {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", err)
				return err
			}

			if err := app.Shutdown(context.Background()); err != nil {
				log.ErrorwCtx(ctx, "Shutdown finished with errors", "error", err)
			}
			log.InfowCtx(ctx, "Shutdown complete")
			return nil
		},
	}
}

func sendCmd() *cobra.Command {
	var (
		domain    string
		messageID string
		title     string
		body      string
		link      string
		imageURL  string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Fan a message out to every active contact of a domain",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime(logging.NewEarlyLog())
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			connector := bootstrap.NewDatabaseConnector(cfg, log)
			mongoClient, err := connector.InitMongoDB(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize MongoDB: %w", err)
			}
			defer mongoClient.Disconnect(context.Background())

			publisher, err := broker.NewProducer(cfg.Broker, log)
			if err != nil {
				return fmt.Errorf("failed to create producer: %w", err)
			}
			defer publisher.Close()

			if messageID == "" {
				messageID = uuid.NewString()
			}

			contactRepo := contacts.NewRepository(mongoClient.Database(cfg.Database.MongoDB.Database))
			producer := fanout.NewProducer(cfg.Fanout, publisher, contactRepo, fanout.NewTemplateResolver(), log)

			req := fanout.SendRequest{
				Domain:    domain,
				MessageID: messageID,
				Title:     title,
				Body:      body,
				Link:      link,
				ImageURL:  imageURL,
			}
			if err := producer.FanOutDomain(ctx, req); err != nil {
				return fmt.Errorf("fan-out failed: %w", err)
			}

			log.Infow("Fan-out complete",
				"domain", domain,
				"message_id", messageID,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Domain whose active contacts receive the message")
	cmd.Flags().StringVar(&messageID, "message-id", "", "Message id for stats attribution (generated when empty)")
	cmd.Flags().StringVar(&title, "title", "", "Notification title")
	cmd.Flags().StringVar(&body, "body", "", "Notification body")
	cmd.Flags().StringVar(&link, "link", "", "On-click link")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "Notification image URL")
	cmd.MarkFlagRequired("domain")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("body")

	return cmd
}
