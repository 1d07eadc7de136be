package typesense

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/sportatlas/backend/pkg/config"
	"github.com/sportatlas/backend/pkg/retry"
)

const (
	VenuesCollection       = "venues"
	CompetitionsCollection = "competitions"
)

// Client represents a Typesense client used for fuzzy name lookups.
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	// Test connection with retry
	err := retry.Do(
		context.Background(),
		retry.DefaultConfig(),
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_, err := client.Health(ctx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Printf("Typesense connection attempt %d failed: %v. Retrying in %v...", attempt, err, nextDelay)
		},
	)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Println("Successfully connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema ensures the venues and competitions collections exist.
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	existing := make(map[string]bool, len(collections))
	for _, col := range collections {
		existing[col.Name] = true
	}

	if !existing[VenuesCollection] {
		schema := &api.CollectionSchema{
			Name: VenuesCollection,
			Fields: []api.Field{
				{
					Name: "id",
					Type: "string",
				},
				{
					Name: "name",
					Type: "string",
				},
				{
					Name:  "city",
					Type:  "string",
					Facet: pointer.True(),
				},
				{
					Name:     "aliases",
					Type:     "string[]",
					Optional: pointer.True(),
				},
				{
					Name: "location",
					Type: "geopoint",
				},
			},
		}
		if _, err := c.client.Collections().Create(ctx, schema); err != nil {
			return fmt.Errorf("failed to create venues collection: %w", err)
		}
		log.Println("Created Typesense collection 'venues'")
	}

	if !existing[CompetitionsCollection] {
		schema := &api.CollectionSchema{
			Name: CompetitionsCollection,
			Fields: []api.Field{
				{
					Name: "id",
					Type: "string",
				},
				{
					Name: "name",
					Type: "string",
				},
				{
					Name:  "country",
					Type:  "string",
					Facet: pointer.True(),
				},
				{
					Name:     "aliases",
					Type:     "string[]",
					Optional: pointer.True(),
				},
			},
		}
		if _, err := c.client.Collections().Create(ctx, schema); err != nil {
			return fmt.Errorf("failed to create competitions collection: %w", err)
		}
		log.Println("Created Typesense collection 'competitions'")
	}

	return nil
}

// IndexVenue upserts a venue document into the search index.
func (c *Client) IndexVenue(ctx context.Context, document map[string]interface{}) error {
	_, err := c.client.Collection(VenuesCollection).Documents().Upsert(ctx, document)
	return err
}

// IndexCompetition upserts a competition document into the search index.
func (c *Client) IndexCompetition(ctx context.Context, document map[string]interface{}) error {
	_, err := c.client.Collection(CompetitionsCollection).Documents().Upsert(ctx, document)
	return err
}
