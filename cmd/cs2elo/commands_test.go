package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cs2-elo/config"
	"cs2-elo/parser"
	"cs2-elo/store"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	st, err := openStore(ctx, config.StoreConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, st)
	require.NoError(t, st.Close())

	st, err = openStore(ctx, config.StoreConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "elo.db"),
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = openStore(ctx, config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}

func TestLoadMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: scrim-1
map: de_mirage
team_a_score: 13
team_b_score: 11
team_a:
  - {player_id: "1", team: CT, kills: 20, deaths: 15, rounds_played: 24, kast: 70}
team_b:
  - {player_id: "2", team: T, kills: 15, deaths: 20, rounds_played: 24, kast: 60}
`), 0o600))

	match, err := loadMatch(path, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, "scrim-1", match.ID)
	assert.Equal(t, []string{"1", "2"}, match.PlayerIDs())

	_, err = loadMatch(filepath.Join(t.TempDir(), "missing.dem"), parser.Options{})
	assert.Error(t, err)
}
