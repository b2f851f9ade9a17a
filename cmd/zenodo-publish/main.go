package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/zenodo-publish/internal/config"
	"github.com/andresuchdata/zenodo-publish/internal/metadata"
	"github.com/andresuchdata/zenodo-publish/internal/publish"
	"github.com/andresuchdata/zenodo-publish/internal/release"
	"github.com/andresuchdata/zenodo-publish/internal/zenodo"
	"github.com/andresuchdata/zenodo-publish/pkg/logger"
)

func main() {
	if err := newApp(config.Load()).Run(os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("zenodo-publish failed")
		os.Exit(1)
	}
}

func newApp(cfg *config.Config) *cli.App {
	return &cli.App{
		Name:      "zenodo-publish",
		Usage:     "Publish a release file and its metadata to Zenodo as a new version of its record series",
		ArgsUsage: "<token> <meta> <release> <file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "use-sandbox",
				Aliases: []string{"s"},
				Usage:   "Use the sandbox instance instead of production",
				EnvVars: []string{"ZENODO_USE_SANDBOX"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Only check the token and search; log every change instead of making it",
				EnvVars: []string{"ZENODO_DEBUG"},
			},
			&cli.BoolFlag{
				Name:    "no-publish",
				Aliases: []string{"n"},
				Usage:   "Upload metadata and file but leave the deposition unpublished",
				EnvVars: []string{"ZENODO_NO_PUBLISH"},
			},
			&cli.StringFlag{
				Name:  "community",
				Usage: "Community whose records are searched for an earlier version",
				Value: cfg.Zenodo.Community,
			},
			&cli.BoolFlag{
				Name:  "match-query",
				Usage: "Match earlier records on the filename query instead of the title",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Number of records fetched when looking for an earlier version",
				Value: cfg.Zenodo.PageSize,
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: cfg.App.LogLevel,
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Action: func(c *cli.Context) error {
			return run(c, cfg)
		},
	}
}

func run(c *cli.Context, cfg *config.Config) error {
	if c.NArg() != 4 {
		return cli.Exit(fmt.Sprintf("expected 4 arguments <token> <meta> <release> <file>, got %d", c.NArg()), 1)
	}
	token, metaPath, releaseArg, fileArg := c.Args().Get(0), c.Args().Get(1), c.Args().Get(2), c.Args().Get(3)
	if token == "-" {
		token = cfg.Zenodo.Token
	}
	if token == "" {
		return cli.Exit("an access token is required (pass - to read ZENODO_TOKEN)", 1)
	}

	// fail before any download or network call
	if _, err := release.ParseReleaseDate(releaseArg); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := metadata.Load(metaPath)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	sources, err := newPayloadResolver(ctx, cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	payload, err := sources.Resolve(ctx, fileArg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to resolve payload: %v", err), 1)
	}
	defer func() {
		if err := payload.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("failed to clean up payload")
		}
	}()

	in, err := release.Resolve(payload.Name(), releaseArg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	client, err := zenodo.NewClient(zenodo.Config{
		BaseURL:   cfg.Zenodo.APIBase(c.Bool("use-sandbox")),
		Token:     token,
		Timeout:   cfg.HTTP.Timeout(),
		RateLimit: cfg.HTTP.RateLimit,
		RateBurst: cfg.HTTP.RateBurst,
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	req := publish.Request{
		Options: publish.Options{
			Debug:      c.Bool("debug"),
			NoPublish:  c.Bool("no-publish"),
			MatchQuery: c.Bool("match-query"),
			Community:  c.String("community"),
			PageSize:   c.Int("page-size"),
		},
		Input:   in,
		Record:  rec.WithRelease(in),
		Payload: payload,
	}

	logger.Log.Info().
		Str("title", in.Title).
		Str("query", in.Query).
		Str("publication_date", in.PublicationDate()).
		Str("file", payload.Name()).
		Bool("sandbox", c.Bool("use-sandbox")).
		Msg("starting publication")

	result, err := publish.Run(ctx, client, req)
	if err != nil {
		if errors.Is(err, publish.ErrNoDeposition) {
			return cli.Exit("no deposition could be opened, nothing was uploaded", 1)
		}
		return cli.Exit(err.Error(), 1)
	}

	summarize(result)
	return nil
}

func summarize(result *publish.Result) {
	ev := logger.Log.Info()
	if result.Failed() {
		ev = logger.Log.Warn()
	}
	if result.Match != nil {
		ev = ev.Str("previous_record", result.Match.ID)
	}
	for _, s := range result.Steps {
		status := "ok"
		switch {
		case s.Skipped:
			status = "skipped"
		case s.Err != nil:
			status = "failed"
		}
		ev = ev.Str(string(s.Step), status)
	}
	ev.Str("deposition", result.Resolution.DepositionID).
		Bool("new_version", result.Resolution.NewVersion).
		Interface("trace", result.Resolution.Trace).
		Msg("publication finished")
}
