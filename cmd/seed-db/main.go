// Command seed-db loads the catalog, recipes and FAQ into the PostgreSQL
// document store. Collections that already hold documents are left as is.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/greenbasket/internal/storage/documents"
	"github.com/xenking/greenbasket/internal/storage/postgres"
	"github.com/xenking/greenbasket/pkg/docstore"
)

// seedFile maps collection names to raw documents. Documents are stored
// with their fields untouched, so legacy field names can be seeded too.
type seedFile struct {
	Products []json.RawMessage `json:"products"`
	Recipes  []json.RawMessage `json:"recipes"`
	FAQ      []json.RawMessage `json:"faq"`
}

func (s seedFile) collections() map[string][]json.RawMessage {
	return map[string][]json.RawMessage{
		documents.CollectionProducts: s.Products,
		documents.CollectionRecipes:  s.Recipes,
		documents.CollectionFAQ:      s.FAQ,
	}
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "file", "db/seed/catalog.json", "path to seed JSON file")
	flag.Parse()

	lg := zap.Must(zap.NewDevelopment())
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, seedPath); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, seedPath string) error {
	seed, err := readSeed(seedPath)
	if err != nil {
		return err
	}

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seedStore(ctx, lg, postgres.NewStore(pool), seed)
}

func readSeed(path string) (seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return seedFile{}, errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return seedFile{}, errors.Wrap(err, "parse seed file")
	}
	return seed, nil
}

// seedStore fills every empty collection concurrently.
func seedStore(ctx context.Context, lg *zap.Logger, store docstore.Store, seed seedFile) error {
	g, ctx := errgroup.WithContext(ctx)
	for collection, docs := range seed.collections() {
		g.Go(func() error {
			return seedCollection(ctx, lg, store, collection, docs)
		})
	}
	return g.Wait()
}

func seedCollection(ctx context.Context, lg *zap.Logger, store docstore.Store, collection string, docs []json.RawMessage) error {
	lg = lg.With(zap.String("collection", collection))

	existing, err := store.ListAll(ctx, collection)
	if err != nil {
		return errors.Wrapf(err, "list %s", collection)
	}
	if len(existing) > 0 {
		lg.Info("Collection not empty, skipping", zap.Int("documents", len(existing)))
		return nil
	}

	for i, raw := range docs {
		fields, err := docstore.Decode(raw)
		if err != nil {
			return errors.Wrapf(err, "%s document %d", collection, i)
		}
		id, err := store.Create(ctx, collection, fields)
		if err != nil {
			return errors.Wrapf(err, "create %s document %d", collection, i)
		}
		lg.Debug("Created document", zap.String("id", id))
	}
	lg.Info("Seeded collection", zap.Int("documents", len(docs)))
	return nil
}
