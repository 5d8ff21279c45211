// Command voybot runs maintenance recipes against it.wikivoyage.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dgallion1/voybot/internal/config"
	"github.com/dgallion1/voybot/internal/enrich"
	"github.com/dgallion1/voybot/internal/pipeline"
	"github.com/dgallion1/voybot/internal/recipes"
	"github.com/dgallion1/voybot/internal/store"
	"github.com/dgallion1/voybot/internal/wikidata"
	"github.com/dgallion1/voybot/internal/wikistore"
)

// app holds what every subcommand shares.
type app struct {
	log     *slog.Logger
	cfg     config.Config
	opts    recipes.Options
	verbose bool
	envFile string
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "voybot",
		Short:         "Wikitext maintenance bot for it.wikivoyage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&a.envFile, "env", ".env", "dotenv file loaded before the environment")

	root.AddCommand(
		a.runCmd(),
		a.recipesCmd(),
		a.coordsCmd(),
		a.serveCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if cmd.Name() == "serve" {
		a.log = slog.New(slog.NewJSONHandler(os.Stdout, hopts))
	} else {
		a.log = slog.New(slog.NewTextHandler(os.Stderr, hopts))
	}

	if err := godotenv.Load(a.envFile); err != nil {
		a.log.Debug("no env file loaded", "path", a.envFile, "error", err)
	}
	a.cfg = config.Load()

	f, err := config.LoadFile(a.cfg.PolicyFile)
	if err != nil {
		return err
	}
	a.opts = f.RecipeOptions()
	return nil
}

func (a *app) registry() *pipeline.Registry {
	return recipes.NewRegistry(a.opts)
}

func (a *app) wikidataClient() (*wikidata.Client, error) {
	return wikidata.NewClient(wikidata.Options{
		APIURL:    a.cfg.WikidataAPIURL,
		SPARQLURL: a.cfg.WikidataSPARQLURL,
		UserAgent: a.cfg.UserAgent,
		Rate:      a.cfg.APIRate,
	}, a.log.With("component", "wikidata"))
}

// runner completes base with the wiki, Wikidata and the progress ledger.
// The returned cleanup closes the ledger and the Wikidata client.
func (a *app) runner(ctx context.Context, base pipeline.Deps) (*pipeline.Runner, *wikidata.Client, *store.Store, func(), error) {
	ws, err := wikistore.NewClient(wikistore.Options{
		APIURL:         a.cfg.WikiAPIURL,
		UserAgent:      a.cfg.UserAgent,
		Username:       a.cfg.WikiUsername,
		Password:       a.cfg.WikiPassword,
		APIRate:        a.cfg.APIRate,
		EditsPerMinute: a.cfg.EditRate,
	}, a.log.With("component", "wikistore"))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if a.cfg.WikiUsername != "" && !a.cfg.DryRun {
		if err := ws.Login(ctx); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	wd, err := a.wikidataClient()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	progress, err := store.NewStore(a.cfg.StateDB)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	d := base
	d.Store = ws
	d.Enricher = enrich.New(wd, a.log.With("component", "enrich"), a.cfg.LookupConcurrency)
	d.Recipes = a.registry()
	d.Progress = progress
	d.RunLogDir = a.cfg.RunLogDir
	d.Lang = a.cfg.WikiLang
	d.MinOutputRatio = a.cfg.MinOutputRatio
	d.Log = a.log
	cleanup := func() {
		progress.Close()
		wd.Close()
	}
	return pipeline.NewRunner(d), wd, progress, cleanup, nil
}
