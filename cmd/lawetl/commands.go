package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gahuily/LawChat/lawapi"
	"github.com/gahuily/LawChat/models"
	"github.com/gahuily/LawChat/repository"
	"github.com/gahuily/LawChat/searchindex"
	"github.com/gahuily/LawChat/service"
)

func schemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the laws, precedents and legal_qna tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.postgres(cmd.Context())
			if err != nil {
				return err
			}
			return repository.EnsureSchema(cmd.Context(), db)
		},
	}
}

type ingestFlags struct {
	query    string
	display  int
	maxPages int
	batch    int
	details  bool
}

func (f *ingestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.query, "query", "", "Search keyword passed to the list endpoint")
	cmd.Flags().IntVar(&f.display, "display", lawapi.DefaultDisplay, "Records per page")
	cmd.Flags().IntVar(&f.maxPages, "max-pages", 0, "Stop after this many pages (0 = all)")
	cmd.Flags().IntVar(&f.batch, "batch", service.DefaultBatchSize, "Records per upsert transaction")
	cmd.Flags().BoolVar(&f.details, "details", true, "Fetch precedent details for the full text")
}

func (f *ingestFlags) request() service.IngestRequest {
	return service.IngestRequest{Query: f.query, Display: f.display, MaxPages: f.maxPages}
}

func (a *app) ingestService(cmd *cobra.Command, f *ingestFlags) (*service.IngestService, error) {
	client, err := a.lawClient(cmd.Context(), false)
	if err != nil {
		return nil, err
	}
	db, err := a.postgres(cmd.Context())
	if err != nil {
		return nil, err
	}
	return service.NewIngestService(
		service.IngestWithSource(client),
		service.IngestWithLawWriter(repository.NewLawRepository(db)),
		service.IngestWithPrecedentWriter(repository.NewPrecedentRepository(db)),
		service.IngestWithBatchSize(f.batch),
		service.IngestWithDetails(f.details),
	), nil
}

func ingestCmd(a *app) *cobra.Command {
	var f ingestFlags
	cmd := &cobra.Command{
		Use:       "ingest laws|precedents",
		Short:     "Extract, normalize and upsert one entity type",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"laws", "precedents"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.ingestService(cmd, &f)
			if err != nil {
				return err
			}
			switch args[0] {
			case "laws":
				_, err = svc.IngestLaws(cmd.Context(), f.request())
			default:
				_, err = svc.IngestPrecedents(cmd.Context(), f.request())
			}
			return err
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) syncService(cmd *cobra.Command) (*service.SyncService, error) {
	db, err := a.postgres(cmd.Context())
	if err != nil {
		return nil, err
	}
	index, err := a.search(cmd.Context())
	if err != nil {
		return nil, err
	}
	return service.NewSyncService(
		service.SyncWithIndexer(index),
		service.SyncWithLawReader(repository.NewLawRepository(db)),
		service.SyncWithPrecedentReader(repository.NewPrecedentRepository(db)),
		service.SyncWithQnAReader(repository.NewQnARepository(db)),
	), nil
}

func syncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "sync [laws|precedents|qna|all]",
		Short:     "Create the indices and resync them from the tables",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"laws", "precedents", "qna", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.syncService(cmd)
			if err != nil {
				return err
			}
			which := "all"
			if len(args) == 1 {
				which = args[0]
			}
			switch which {
			case "laws":
				_, err = svc.SyncLaws(cmd.Context())
			case "precedents":
				_, err = svc.SyncPrecedents(cmd.Context())
			case "qna":
				_, err = svc.SyncQnA(cmd.Context())
			default:
				_, err = svc.SyncAll(cmd.Context())
			}
			return err
		},
	}
}

func loadQnACmd(a *app) *cobra.Command {
	var (
		file      string
		url       string
		source    string
		idPrefix  string
		deriveIDs bool
	)
	cmd := &cobra.Command{
		Use:   "load-qna",
		Short: "Load a Q&A dataset in JSON lines form into legal_qna",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.postgres(ctx)
			if err != nil {
				return err
			}
			svc := service.NewQnAService(repository.NewQnARepository(db), nil)

			var r io.ReadCloser
			if file != "" {
				r, err = os.Open(file)
			} else {
				r, err = svc.Open(ctx, url)
			}
			if err != nil {
				return err
			}
			defer r.Close()

			_, err = svc.Load(ctx, r, service.LoadRequest{Source: source, IDPrefix: idPrefix, DeriveIDs: deriveIDs})
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Local JSON lines file (takes precedence over --url)")
	cmd.Flags().StringVar(&url, "url", service.LegalQAURL, "Dataset URL")
	cmd.Flags().StringVar(&source, "source", "legalqa", "Source label stored with each row")
	cmd.Flags().StringVar(&idPrefix, "id-prefix", "", "Prefix of row ids (defaults to --source)")
	cmd.Flags().BoolVar(&deriveIDs, "derive-ids", false, "Number rows by line when the dataset has no id field")
	return cmd
}

func probeCmd(a *app) *cobra.Command {
	var (
		target  string
		query   string
		display int
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Fetch one list page, report its shape and archive it as a fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.lawClient(ctx, true)
			if err != nil {
				return err
			}

			entity := models.EntityType(target)
			data, err := client.FetchPage(ctx, entity, query, display)
			if err != nil {
				return err
			}

			page, ok := lawapi.LocatePage(entity, data)
			event := log.Info().
				Str("target", target).
				Str("query", query).
				Strs("keys", lawapi.TopLevelKeys(data))
			if ok {
				event = event.Str("variant", page.Variant).Int("items", len(page.Items))
				if page.TotalKnown {
					event = event.Int("total", page.Total)
				}
			}
			event.Bool("recognized", ok).Msg("Probe complete")

			pretty, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return fmt.Errorf("encode probe response: %w", err)
			}
			store, err := a.storage(ctx)
			if err != nil {
				return err
			}
			key := fmt.Sprintf("fixtures/%s_%s.json", target, a.runID)
			stored, err := store.Put(ctx, key, bytes.NewReader(pretty))
			if err != nil {
				return fmt.Errorf("archive probe fixture: %w", err)
			}
			log.Info().Str("fixture", stored).Msg("Probe response archived")
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", string(models.EntityPrecedent), "API target (law, prec)")
	cmd.Flags().StringVar(&query, "query", "", "Search keyword")
	cmd.Flags().IntVar(&display, "display", 5, "Records on the probed page")
	return cmd
}

func runCmd(a *app) *cobra.Command {
	var f ingestFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create the schema, ingest laws and precedents, then resync every index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.postgres(ctx)
			if err != nil {
				return err
			}
			if err := repository.EnsureSchema(ctx, db); err != nil {
				return err
			}

			ingest, err := a.ingestService(cmd, &f)
			if err != nil {
				return err
			}
			if _, err := ingest.IngestLaws(ctx, f.request()); err != nil {
				return err
			}
			if _, err := ingest.IngestPrecedents(ctx, f.request()); err != nil {
				return err
			}

			sync, err := a.syncService(cmd)
			if err != nil {
				return err
			}
			results, err := sync.SyncAll(ctx)
			for _, r := range results {
				log.Info().Str("index", r.Index).Int("rows", r.Rows).Int("indexed", r.Indexed).Int64("pruned", r.Pruned).Msg("Index summary")
			}
			return err
		},
	}
	f.register(cmd)
	return cmd
}

// counter is satisfied by every repository
type counter interface {
	Count(ctx context.Context) (int64, error)
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Compare table row counts with index document counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := a.postgres(ctx)
			if err != nil {
				return err
			}
			index, err := a.search(ctx)
			if err != nil {
				return err
			}

			pairs := []struct {
				table counter
				index searchindex.Index
			}{
				{repository.NewLawRepository(db), searchindex.Laws},
				{repository.NewPrecedentRepository(db), searchindex.Precedents},
				{repository.NewQnARepository(db), searchindex.LegalQnA},
			}

			var diverged []string
			for _, p := range pairs {
				rows, err := p.table.Count(ctx)
				if err != nil {
					return err
				}
				docs, err := index.Count(ctx, p.index.Name)
				if err != nil {
					log.Warn().Err(err).Str("index", p.index.Name).Msg("Index count unavailable")
					docs = -1
				}
				event := log.Info()
				if rows != docs {
					event = log.Warn()
					diverged = append(diverged, p.index.Name)
				}
				event.Str("index", p.index.Name).Int64("rows", rows).Int64("documents", docs).Msg("Store and index counts")
			}
			if len(diverged) > 0 {
				return fmt.Errorf("index out of step with table for %v, run lawetl sync", diverged)
			}
			return nil
		},
	}
}

// openSample opens a sample file from disk, or from the raw archive when key is set.
func (a *app) openSample(ctx context.Context, file, key string) (io.ReadCloser, error) {
	switch {
	case key != "":
		store, err := a.storage(ctx)
		if err != nil {
			return nil, err
		}
		return store.Get(ctx, key)
	case file != "":
		return os.Open(file)
	default:
		return nil, errors.New("one of --file or --key is required")
	}
}

func loadSampleCmd(a *app) *cobra.Command {
	var file, key string
	cmd := &cobra.Command{
		Use:       "load-sample laws|precedents",
		Short:     "Load a JSON array of table-shaped records into laws or precedents",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"laws", "precedents"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := a.openSample(ctx, file, key)
			if err != nil {
				return err
			}
			defer r.Close()

			db, err := a.postgres(ctx)
			if err != nil {
				return err
			}
			svc := service.NewSampleService(
				repository.NewLawRepository(db).Upsert,
				repository.NewPrecedentRepository(db).Upsert,
			)
			if args[0] == "laws" {
				_, err = svc.LoadLaws(ctx, r)
			} else {
				_, err = svc.LoadPrecedents(ctx, r)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Sample JSON file (sample_laws.json, sample_precedents.json)")
	cmd.Flags().StringVar(&key, "key", "", "Read the sample from this raw archive key instead of a file")
	return cmd
}
