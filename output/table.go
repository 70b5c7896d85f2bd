// Package output renders ratings for people: terminal tables and Google
// Sheets.
package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"cs2-elo/service"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteLeaderboard prints standings as an aligned table.
func WriteLeaderboard(w io.Writer, entries []service.Entry) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "#\tPLAYER\tTIER\tRATING\tGAMES\tW-L\tWIN %")
	for _, e := range entries {
		name := e.Name
		if name == "" {
			name = e.PlayerID
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%d\t%d-%d\t%.1f\n",
			e.Rank, name, e.Tier, e.Rating, e.GamesPlayed, e.Wins, e.Losses, e.WinRate)
	}
	return tw.Flush()
}

// WriteResult prints the rating changes of a rated match.
func WriteResult(w io.Writer, res *service.Result) error {
	fmt.Fprintf(w, "match %s", res.MatchID)
	if res.Map != "" {
		fmt.Fprintf(w, " on %s", res.Map)
	}
	fmt.Fprintln(w)

	tw := newTable(w)
	fmt.Fprintln(tw, "PLAYER\tTEAM\tRESULT\tOLD\tNEW\tCHANGE\tPERF\tK")
	for _, u := range res.Updates {
		result := "L"
		if u.Won {
			result = "W"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.1f\t%+.1f\t%.2f\t%.1f\n",
			u.PlayerID, u.Team, result, u.OldRating, u.NewRating, u.RatingChange, u.PerformanceScore, u.KFactor)
	}
	return tw.Flush()
}

// WritePlayerCard prints a player's standing, tier progress and recent
// matches.
func WritePlayerCard(w io.Writer, card *service.PlayerCard) error {
	s := card.Standing
	name := s.Name
	if name == "" {
		name = s.PlayerID
	}

	fmt.Fprintf(w, "%s (%s)\n", name, s.PlayerID)
	fmt.Fprintf(w, "  rank     #%d\n", s.Rank)
	fmt.Fprintf(w, "  rating   %.1f\n", s.Rating)
	fmt.Fprintf(w, "  tier     %s (%d%%)\n", card.Rank.Name, card.Rank.Progress)
	if card.Rank.NextTier != "" {
		fmt.Fprintf(w, "  next     %s in %d points\n", card.Rank.NextTier, card.Rank.PointsToNext)
	}
	fmt.Fprintf(w, "  record   %d-%d (%.1f%%)\n", s.Wins, s.Losses, card.WinRate)

	if len(card.Recent) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw := newTable(w)
	fmt.Fprintln(tw, "MATCH\tMAP\tRESULT\tCHANGE\tRATING")
	for _, r := range card.Recent {
		result := "L"
		if r.Won {
			result = "W"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+.1f\t%.1f\n", r.MatchID, r.Map, result, r.RatingChange, r.NewRating)
	}
	return tw.Flush()
}
