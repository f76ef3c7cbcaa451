package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/greecode/admin-portal/internal/application"
	"github.com/greecode/admin-portal/internal/config"
	"github.com/greecode/admin-portal/internal/kafka"
	"github.com/greecode/admin-portal/internal/seed"
	"github.com/greecode/admin-portal/internal/service"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo support concerns into the concern store",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.ConcernStore == config.StoreDriverMemory {
		log.Println("seed: CONCERN_STORE=memory, use SEED_DEMO=true with the api command instead")
		return nil
	}
	repo, _, err := application.OpenConcernRepository(cfg, true)
	if err != nil {
		return err
	}
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicConcern)
	defer producer.Close()

	var events service.EventProducer
	if producer.Enabled() {
		events = producer
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	created, err := seed.Load(ctx, service.NewConcernService(repo, events, nil))
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	log.Printf("seed: created %d concerns", len(created))
	return nil
}
