package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/greecode/admin-portal/internal/application"
	"github.com/greecode/admin-portal/internal/config"
	"github.com/greecode/admin-portal/internal/kafka"
	"github.com/greecode/admin-portal/internal/searchindex"
	"github.com/greecode/admin-portal/internal/service"
	"github.com/spf13/cobra"
)

var reindexSearchCmd = &cobra.Command{
	Use:   "reindex-search",
	Short: "Reindex all concerns into search. Prefers Kafka; falls back to HTTP if SEARCH_SERVICE_URL set.",
	RunE:  runReindexSearch,
}

func init() {
	rootCmd.AddCommand(reindexSearchCmd)
}

func runReindexSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.ConcernStore != config.StoreDriverPostgres {
		return errors.New("reindex-search: requires CONCERN_STORE=postgres")
	}
	repo, _, err := application.OpenConcernRepository(cfg, false)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	concerns, err := repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list concerns: %w", err)
	}
	log.Printf("reindex-search: found %d concerns", len(concerns))

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopicConcern != "" {
		log.Println("reindex-search: using Kafka for reindexing")
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicConcern)
		defer producer.Close()
		for i := range concerns {
			producer.ProduceEvent(ctx, "concern.updated", service.ConcernEventPayload(&concerns[i]))
			if (i+1)%50 == 0 || i == len(concerns)-1 {
				log.Printf("reindex-search: sent %d/%d events to Kafka", i+1, len(concerns))
			}
		}
		return nil
	}
	if cfg.SearchServiceURL != "" {
		log.Println("reindex-search: using HTTP for reindexing")
		client := searchindex.NewClient(cfg.SearchServiceURL)
		failed := 0
		for i := range concerns {
			if err := client.IndexConcern(ctx, &concerns[i]); err != nil {
				failed++
				log.Printf("reindex-search: concern %d: %v", concerns[i].ID, err)
			}
			if (i+1)%50 == 0 || i == len(concerns)-1 {
				log.Printf("reindex-search: indexed %d/%d", i+1, len(concerns))
			}
		}
		if failed > 0 {
			return fmt.Errorf("reindex-search: %d of %d concerns failed", failed, len(concerns))
		}
		return nil
	}
	log.Println("reindex-search: neither KAFKA_BROKERS nor SEARCH_SERVICE_URL set, nothing reindexed")
	return nil
}
