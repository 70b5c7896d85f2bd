package pgstore

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"cs2-elo/store"
	"cs2-elo/store/storetest"
)

// Set CS2ELO_TEST_POSTGRES to a disposable database to run these.
func openTest(t *testing.T) store.Store {
	dsn := os.Getenv("CS2ELO_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("CS2ELO_TEST_POSTGRES not set")
	}

	s, err := Open(t.Context(), dsn, Options{MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.db.ExecContext(t.Context(), `TRUNCATE player_matches, matches, players`)
	require.NoError(t, err)
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, openTest)
}
