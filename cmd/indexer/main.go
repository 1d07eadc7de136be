package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sportatlas/backend/internal/adapters/database"
	"github.com/sportatlas/backend/internal/infrastructure/clients/postgres"
	"github.com/sportatlas/backend/internal/infrastructure/clients/typesense"
	"github.com/sportatlas/backend/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collections before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	var err error
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatalf("Invalid interval %q: %v", intervalValue, err)
		}
		if interval <= 0 {
			log.Fatalf("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, reset); err != nil {
			log.Printf("Reindex failed: %v", err)
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Printf("Reindex complete. Next run in %s.", interval)

		select {
		case <-ctx.Done():
			log.Println("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, reset bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	venueRepo := database.NewVenueAdapter(pgClient)
	competitionRepo := database.NewCompetitionAdapter(pgClient)

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		for _, collection := range []string{typesense.VenuesCollection, typesense.CompetitionsCollection} {
			if _, err := tsClient.Client().Collection(collection).Delete(ctx); err != nil {
				log.Printf("Warning: failed to delete collection %s: %v", collection, err)
			}
		}
	}

	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	venues, err := venueRepo.List(ctx)
	if err != nil {
		return err
	}

	indexed := 0
	for _, venue := range venues {
		if venue == nil {
			continue
		}
		document := map[string]interface{}{
			"id":       strconv.FormatInt(venue.ID, 10),
			"name":     venue.Name,
			"city":     venue.City,
			"location": []float64{venue.Latitude, venue.Longitude},
		}
		if err := tsClient.IndexVenue(ctx, document); err != nil {
			log.Printf("Warning: failed to index venue %d (%s): %v", venue.ID, venue.Name, err)
			continue
		}
		indexed++
	}
	log.Printf("Indexed %d/%d venues", indexed, len(venues))

	competitions, err := competitionRepo.List(ctx)
	if err != nil {
		return err
	}

	indexed = 0
	for _, competition := range competitions {
		if competition == nil {
			continue
		}
		document := map[string]interface{}{
			"id":      strconv.FormatInt(competition.ID, 10),
			"name":    competition.Name,
			"country": competition.Country,
		}
		if err := tsClient.IndexCompetition(ctx, document); err != nil {
			log.Printf("Warning: failed to index competition %d (%s): %v", competition.ID, competition.Name, err)
			continue
		}
		indexed++
	}
	log.Printf("Indexed %d/%d competitions", indexed, len(competitions))

	return nil
}
