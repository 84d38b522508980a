package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lumapost/ms-go-mailer/app/gateway"
	"github.com/lumapost/ms-go-mailer/app/queue"
	"github.com/lumapost/ms-go-mailer/app/repository"
	"github.com/lumapost/ms-go-mailer/app/worker"
	"github.com/lumapost/ms-go-mailer/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
)

var workCmd = &cobra.Command{
	Use:   "work [consumer_name]",
	Short: "Start a delivery worker",
	Long:  "Start a worker that consumes queued email jobs, sends them through the configured provider, and reconciles outcomes into the log.",
	Args:  cobra.ExactArgs(1),
	Run:   runWork,
}

// init registers the work command.
func init() {
	rootCmd.AddCommand(workCmd)
}

// runWork starts the email delivery worker.
func runWork(_ *cobra.Command, args []string) {
	consumerName := args[0]

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db := openMySQL(cfg)
	defer db.Close()

	rdb := openRedis(cfg)
	defer rdb.Close()

	emailProvider, err := buildEmailProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to build email provider: %v", err)
	}

	emailLogs := repository.NewEmailLogRepository(db)
	emailGateway := gateway.NewEmailGateway(emailProvider)
	deliveryWorker := worker.NewDeliveryWorker(emailGateway, emailLogs, cfg.QueueMaxAttempts)

	retry := queue.RetryConfig{
		MaxAttempts: cfg.QueueMaxAttempts,
		BackoffBase: cfg.QueueBackoffBase,
	}
	consumer := queue.NewEmailConsumer(rdb, deliveryWorker, consumerName, retry, cfg.QueueCompletedMaxLen, cfg.QueueFailedMaxLen)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Received shutdown signal, stopping worker...")
		cancel()
	}()

	if err := consumer.Run(ctx); err != nil {
		log.Fatalf("Worker error: %v", err)
	}

	log.Println("Worker stopped")
}
