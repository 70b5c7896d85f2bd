// Package parser reads CS2 demo files and turns them into match results
// ready for rating.
package parser

import (
	"fmt"
	"io"
	"os"

	dem "github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs"
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/events"
	"github.com/markus-wa/demoinfocs-golang/v5/pkg/demoinfocs/msg"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"cs2-elo/model"
)

// Options tune demo parsing.
type Options struct {
	// TradeWindowTicks defaults to DefaultTradeWindowTicks.
	TradeWindowTicks int
}

// ParseFile parses the demo at path.
func ParseFile(path string, opts Options) (*model.MatchResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open demo")
	}
	defer f.Close()

	return ParseDemo(f, opts)
}

// ParseDemo reads a whole demo and collects per-player statistics for the
// live rounds. Bots and warmup are ignored. A truncated demo still yields
// the rounds completed before the cut.
func ParseDemo(r io.Reader, opts Options) (match *model.MatchResult, err error) {
	p := dem.NewParser(r)
	defer p.Close()

	collector := NewCollector(opts.TradeWindowTicks)
	mapName := ""

	live := func() bool {
		gs := p.GameState()
		return gs.IsMatchStarted() && !gs.IsWarmupPeriod()
	}

	humans := func(team *common.TeamState) []Participant {
		if team == nil {
			return nil
		}
		var out []Participant
		for _, pl := range team.Members() {
			if pl == nil || pl.IsBot || pl.SteamID64 == 0 {
				continue
			}
			out = append(out, Participant{SteamID: pl.SteamID64, Name: pl.Name})
		}
		return out
	}

	steamID := func(pl *common.Player) uint64 {
		if pl == nil || pl.IsBot {
			return 0
		}
		return pl.SteamID64
	}

	side := func(pl *common.Player) common.Team {
		if pl == nil {
			return common.TeamUnassigned
		}
		return pl.Team
	}

	p.RegisterNetMessageHandler(func(m *msg.CSVCMsg_ServerInfo) {
		mapName = m.GetMapName()
	})

	p.RegisterEventHandler(func(e events.RoundFreezetimeEnd) {
		if !live() {
			return
		}
		gs := p.GameState()
		collector.StartRound(humans(gs.TeamCounterTerrorists()), humans(gs.TeamTerrorists()))
	})

	p.RegisterEventHandler(func(e events.Kill) {
		if e.Victim == nil {
			return
		}
		collector.Kill(Kill{
			KillerID:   steamID(e.Killer),
			VictimID:   steamID(e.Victim),
			AssisterID: steamID(e.Assister),
			KillerSide: side(e.Killer),
			VictimSide: side(e.Victim),
			Headshot:   e.IsHeadshot,
			Tick:       p.GameState().IngameTick(),
		})
	})

	p.RegisterEventHandler(func(e events.PlayerHurt) {
		if e.Player == nil || e.Attacker == nil {
			return
		}
		collector.Damage(steamID(e.Attacker), side(e.Attacker), side(e.Player), e.HealthDamageTaken)
	})

	p.RegisterEventHandler(func(e events.PlayerDisconnected) {
		if e.Player != nil {
			collector.Leave(e.Player.SteamID64, e.Player.Team)
		}
	})

	p.RegisterEventHandler(func(e events.RoundEnd) {
		collector.EndRound(e.Winner)
	})

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("demo parser crashed: %v", r)
		}
	}()

	if err := p.ParseToEnd(); err != nil {
		if !errors.Is(err, dem.ErrUnexpectedEndOfDemo) {
			return nil, errors.Wrap(err, "failed to parse demo")
		}
		log.Warn().Int("rounds", collector.Rounds()).Msg("demo ended unexpectedly, keeping completed rounds")
	}

	match, err = collector.Result(mapName)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("map", match.Map).
		Int("team_a", match.TeamAScore).
		Int("team_b", match.TeamBScore).
		Int("rounds", collector.Rounds()).
		Msg("parsed demo")

	return match, nil
}
