package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cs2-elo/api"
	"cs2-elo/config"
	"cs2-elo/model"
	"cs2-elo/output"
	"cs2-elo/parser"
	"cs2-elo/rating"
	"cs2-elo/service"
	"cs2-elo/store"
	"cs2-elo/store/gormstore"
	"cs2-elo/store/pgstore"
	"cs2-elo/store/redisstore"
)

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn().Msg("using the memory store, ratings are lost on exit")
		return store.NewMemory(), nil
	case config.DriverSQLite:
		return gormstore.Open(cfg.Path)
	case config.DriverPostgres:
		return pgstore.Open(ctx, cfg.Postgres.DSN, pgstore.Options{
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
	case config.DriverRedis:
		return redisstore.Open(ctx, redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// withRater opens the configured store and engine for the length of fn.
func withRater(ctx context.Context, cfg *config.Config, fn func(*service.Rater, *rating.Engine, store.Store) error) error {
	engine, err := rating.NewEngine(cfg.Rating)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s store", cfg.Store.Driver)
	}
	defer st.Close()

	rater := service.NewRater(engine, st, service.Options{
		MaxAttempts:   cfg.Rater.MaxAttempts,
		RecentMatches: cfg.Rater.RecentMatches,
	})
	return fn(rater, engine, st)
}

func loadMatch(path string, opts parser.Options) (*model.MatchResult, error) {
	if strings.EqualFold(filepath.Ext(path), ".dem") {
		return parser.ParseFile(path, opts)
	}
	return model.DecodeMatch(path)
}

func rateCommand(cfg *config.Config, files []string, dryRun bool) error {
	ctx := context.Background()
	opts := parser.Options{TradeWindowTicks: cfg.Parser.TradeWindowTicks}

	return withRater(ctx, cfg, func(rater *service.Rater, engine *rating.Engine, st store.Store) error {
		for i, path := range files {
			match, err := loadMatch(path, opts)
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", path)
			}

			var res *service.Result
			if dryRun {
				states, err := st.States(ctx, match.PlayerIDs())
				if err != nil {
					return err
				}
				updates, err := engine.ComputeMatchRatings(match, states)
				if err != nil {
					return errors.Wrap(err, path)
				}
				res = &service.Result{MatchID: match.ID, Map: match.Map, Updates: updates}
			} else {
				res, err = rater.RateMatch(ctx, match)
				if err != nil {
					return errors.Wrap(err, path)
				}
			}

			if i > 0 {
				fmt.Println()
			}
			if err := output.WriteResult(os.Stdout, res); err != nil {
				return err
			}
		}
		return nil
	})
}

func leaderboardCommand(cfg *config.Config, page, size int) error {
	ctx := context.Background()
	return withRater(ctx, cfg, func(rater *service.Rater, _ *rating.Engine, _ store.Store) error {
		entries, err := rater.Leaderboard(ctx, page, size)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no rated players")
			return nil
		}
		return output.WriteLeaderboard(os.Stdout, entries)
	})
}

func playerCommand(cfg *config.Config, id string) error {
	ctx := context.Background()
	return withRater(ctx, cfg, func(rater *service.Rater, _ *rating.Engine, _ store.Store) error {
		card, err := rater.PlayerCard(ctx, id)
		if err != nil {
			return errors.Wrap(err, id)
		}
		return output.WritePlayerCard(os.Stdout, card)
	})
}

func rankCommand(value float64) error {
	rank := rating.RankFor(value)
	fmt.Printf("%s (%d%%)\n", rank.Name, rank.Progress)
	if rank.NextTier != "" {
		fmt.Printf("%d points to %s\n", rank.PointsToNext, rank.NextTier)
	}
	return nil
}

func exportCommand(cfg *config.Config, limit int) error {
	if cfg.Sheets.CredentialsFile == "" || cfg.Sheets.URL == "" {
		return errors.New("sheets.credentials_file and sheets.url must be set to export")
	}

	credentials, err := os.ReadFile(cfg.Sheets.CredentialsFile)
	if err != nil {
		return errors.Wrap(err, "failed to read sheets credentials")
	}

	ctx := context.Background()
	return withRater(ctx, cfg, func(rater *service.Rater, _ *rating.Engine, _ store.Store) error {
		var entries []service.Entry
		for page := 1; len(entries) < limit; page++ {
			batch, err := rater.Leaderboard(ctx, page, service.MaxPageSize)
			if err != nil {
				return err
			}
			entries = append(entries, batch...)
			if len(batch) < service.MaxPageSize {
				break
			}
		}
		if len(entries) > limit {
			entries = entries[:limit]
		}

		client, err := output.NewSheetsClient(ctx, credentials, cfg.Sheets.URL, cfg.Sheets.SheetName)
		if err != nil {
			return err
		}
		if err := client.UploadLeaderboard(ctx, entries); err != nil {
			return err
		}

		log.Info().Int("players", len(entries)).Msg("leaderboard exported")
		return nil
	})
}

func serveCommand(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	return withRater(ctx, cfg, func(rater *service.Rater, _ *rating.Engine, _ store.Store) error {
		server := api.New(rater, api.Options{
			SubmitRate:  cfg.API.SubmitRate,
			SubmitBurst: cfg.API.SubmitBurst,
		})
		return server.ListenAndServe(ctx, cfg.API.Listen)
	})
}
