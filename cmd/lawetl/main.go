// Command lawetl runs the legal-text pipeline: extract from the law.go.kr
// API, normalize, upsert into PostgreSQL and resync the Elasticsearch indices.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gahuily/LawChat/config"
	"github.com/gahuily/LawChat/lawapi"
	"github.com/gahuily/LawChat/repository"
	"github.com/gahuily/LawChat/searchindex"
	"github.com/gahuily/LawChat/storage"
)

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	config.SetupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, runID: uuid.NewString()}
	defer a.close()

	if err := rootCmd(a).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		a.close()
		os.Exit(1)
	}
}

// app holds the clients shared by every subcommand. Each one is created on
// first use and released when the process exits.
type app struct {
	cfg   *config.Config
	runID string

	db      *pgxpool.Pool
	index   *searchindex.Client
	api     *lawapi.Client
	archive storage.Storage
}

func (a *app) postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := repository.Connect(ctx, a.cfg.Postgres.ConnectionString())
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) search(ctx context.Context) (*searchindex.Client, error) {
	if a.index != nil {
		return a.index, nil
	}
	index, err := searchindex.New(a.cfg.ESHost)
	if err != nil {
		return nil, err
	}
	if err := index.Ping(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch at %s: %w", a.cfg.ESHost, err)
	}
	a.index = index
	return index, nil
}

func (a *app) storage(ctx context.Context) (storage.Storage, error) {
	if a.archive != nil {
		return a.archive, nil
	}
	store, err := storage.NewStorage(ctx, a.cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.archive = store
	return store, nil
}

// lawClient builds the API client. The caller credential is required, and
// raw responses are archived when ARCHIVE_RAW is set or force is true.
func (a *app) lawClient(ctx context.Context, force bool) (*lawapi.Client, error) {
	if a.api != nil {
		return a.api, nil
	}
	if err := a.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	opts := []lawapi.ClientOption{
		lawapi.WithTimeout(a.cfg.LawAPI.Timeout),
		lawapi.WithRateLimit(a.cfg.LawAPI.RPS),
	}
	if a.cfg.Storage.ArchiveRaw || force {
		store, err := a.storage(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, lawapi.WithArchive(store, a.runID))
		log.Info().Str("run_id", a.runID).Str("storage", a.cfg.Storage.Type).Msg("Archiving raw responses")
	}

	a.api = lawapi.NewClient(a.cfg.LawAPI.BaseURL, a.cfg.LawAPI.OC, opts...)
	return a.api, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}

func rootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lawetl",
		Short: "Legal text ETL for statutes, precedents and Q&A",
		Long: `lawetl pulls statutes and court precedents from the law.go.kr DRF API,
normalizes them into canonical records, upserts them into PostgreSQL and
keeps the Elasticsearch indices in step with the tables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		schemaCmd(a),
		ingestCmd(a),
		syncCmd(a),
		loadQnACmd(a),
		loadSampleCmd(a),
		probeCmd(a),
		runCmd(a),
		statusCmd(a),
	)
	return cmd
}
