package output

import (
	"context"
	"fmt"
	"math"
	"regexp"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"cs2-elo/service"
)

// SheetsClient handles Google Sheets operations
type SheetsClient struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsClient creates a new Google Sheets client using service account credentials
func NewSheetsClient(ctx context.Context, credentialsJSON []byte, sheetURL, sheetName string) (*SheetsClient, error) {
	// Extract spreadsheet ID from URL
	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, err
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsClient{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func extractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("could not extract spreadsheet ID from URL: %s", url)
	}
	return matches[1], nil
}

var leaderboardHeaders = []interface{}{
	"Rank", "Steam ID", "Name", "Tier", "Rating", "Games", "Wins", "Losses", "Win %",
}

// leaderboardRows builds the sheet contents, header first. Ratings and
// win rates are rounded to one decimal.
func leaderboardRows(entries []service.Entry) [][]interface{} {
	rows := make([][]interface{}, 0, len(entries)+1)
	rows = append(rows, leaderboardHeaders)

	for _, e := range entries {
		rows = append(rows, []interface{}{
			e.Rank, e.PlayerID, e.Name, e.Tier, round1(e.Rating),
			e.GamesPlayed, e.Wins, e.Losses, round1(e.WinRate),
		})
	}
	return rows
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// UploadLeaderboard replaces the sheet contents with the given standings
func (c *SheetsClient) UploadLeaderboard(ctx context.Context, entries []service.Entry) error {
	// Clear existing data in the sheet first
	clearRange := fmt.Sprintf("%s!A:Z", c.sheetName)
	_, err := c.service.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	writeRange := fmt.Sprintf("%s!A1", c.sheetName)
	valueRange := &sheets.ValueRange{
		Values: leaderboardRows(entries),
	}

	_, err = c.service.Spreadsheets.Values.Update(c.spreadsheetID, writeRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write to sheet: %w", err)
	}

	return nil
}
