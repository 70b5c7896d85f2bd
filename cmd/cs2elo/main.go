package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cs2-elo/config"
)

var CLI struct {
	Debug   bool     `help:"Whether to enable debug logging."`
	LogJSON bool     `name:"log-json" help:"Write logs as JSON instead of console lines."`
	Configs []string `name:"config" short:"c" help:"Configuration files, applied in order over the defaults."`

	Rate struct {
		Files  []string `arg:"" name:"files" help:"Demos (.dem) or match results (.json, .yaml) to rate in order."`
		DryRun bool     `help:"Compute rating changes without storing them."`
	} `cmd:"" help:"Rate one or more matches."`

	Leaderboard struct {
		Page int `help:"Page to show, starting at 1." default:"1"`
		Size int `help:"Players per page." default:"10"`
	} `cmd:"" help:"Show the leaderboard."`

	Player struct {
		ID string `arg:"" name:"id" help:"Player id (SteamID64 for demo imports)."`
	} `cmd:"" help:"Show a player's rating, tier and recent matches."`

	Rank struct {
		Rating float64 `arg:"" name:"rating" help:"Rating to look up."`
	} `cmd:"" help:"Show the tier for a rating."`

	Export struct {
		Limit int `help:"Number of players to export." default:"500"`
	} `cmd:"" help:"Upload the leaderboard to Google Sheets."`

	Serve struct {
		Listen string `help:"Address to listen on; overrides api.listen."`
	} `cmd:"" help:"Serve the HTTP API."`

	Config struct {
	} `cmd:"" help:"Write the default configuration to standard output."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func setupLogging(json bool) {
	if json {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}
	log.Logger = log.Output(consoleWriter)
}

func main() {
	setupLogging(false)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx := kong.Parse(&CLI,
		kong.Name("cs2elo"),
		kong.Description("ELO ratings for CS2 matches"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	switch ctx.Command() {
	case "config":
		os.Stdout.Write(config.DefaultYAML())
		return
	case "rank <rating>":
		if err := rankCommand(CLI.Rank.Rating); err != nil {
			writeError(err)
		}
		return
	}

	cfg, err := config.Load(CLI.Configs...)
	if err != nil {
		writeError(err)
	}

	if cfg.Log.JSON || CLI.LogJSON {
		setupLogging(true)
	}
	level, _ := zerolog.ParseLevel(cfg.Log.Level)
	zerolog.SetGlobalLevel(level)
	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	switch ctx.Command() {
	case "rate <files>":
		err = rateCommand(cfg, CLI.Rate.Files, CLI.Rate.DryRun)
	case "leaderboard":
		err = leaderboardCommand(cfg, CLI.Leaderboard.Page, CLI.Leaderboard.Size)
	case "player <id>":
		err = playerCommand(cfg, CLI.Player.ID)
	case "export":
		err = exportCommand(cfg, CLI.Export.Limit)
	case "serve":
		if CLI.Serve.Listen != "" {
			cfg.API.Listen = CLI.Serve.Listen
		}
		err = serveCommand(cfg)
	}
	if err != nil {
		writeError(err)
	}
}
