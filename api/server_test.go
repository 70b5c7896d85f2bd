package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cs2-elo/model"
	"cs2-elo/rating"
	"cs2-elo/service"
	"cs2-elo/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(opts Options) *Server {
	return New(service.NewRater(rating.Default(), store.NewMemory(), service.Options{}), opts)
}

func match(id string) *model.MatchResult {
	m := &model.MatchResult{ID: id, Map: "de_inferno", TeamAScore: 13, TeamBScore: 7}
	for i := 0; i < 5; i++ {
		m.TeamA = append(m.TeamA, model.PlayerMatchStat{
			PlayerID: fmt.Sprintf("a%d", i), Name: fmt.Sprintf("A%d", i), Team: model.TeamCT,
			Kills: 17, Deaths: 12, DamageDealt: 1800, RoundsPlayed: 20, KAST: 75,
		})
		m.TeamB = append(m.TeamB, model.PlayerMatchStat{
			PlayerID: fmt.Sprintf("b%d", i), Name: fmt.Sprintf("B%d", i), Team: model.TeamT,
			Kills: 12, Deaths: 17, DamageDealt: 1400, RoundsPlayed: 20, KAST: 60,
		})
	}
	return m
}

func do(t *testing.T, s *Server, method, target string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestHealth(t *testing.T) {
	rec, out := do(t, newServer(Options{}), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestSubmitMatch(t *testing.T) {
	s := newServer(Options{})

	rec, out := do(t, s, http.MethodPost, "/api/matches", match("m1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "m1", out["match_id"])
	updates := out["updates"].([]interface{})
	require.Len(t, updates, 10)
	first := updates[0].(map[string]interface{})
	assert.Equal(t, "a0", first["player_id"])
	assert.Equal(t, true, first["won"])

	rec, out = do(t, s, http.MethodPost, "/api/matches", match("m1"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_match", out["kind"])
}

func TestSubmitInvalid(t *testing.T) {
	s := newServer(Options{})

	tie := match("tie")
	tie.TeamBScore = tie.TeamAScore
	rec, out := do(t, s, http.MethodPost, "/api/matches", tie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_match", out["kind"])

	bad := match("bad")
	bad.TeamB[3].KAST = 101
	rec, out = do(t, s, http.MethodPost, "/api/matches", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_stat", out["kind"])
	assert.Equal(t, "b3", out["player_id"])
	assert.Equal(t, "kast", out["field"])

	rec, out = do(t, s, http.MethodPost, "/api/matches", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", out["kind"])

	// Nothing was stored
	rec, _ = do(t, s, http.MethodGet, "/api/players/a0", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitThrottled(t *testing.T) {
	s := newServer(Options{SubmitRate: 0.001, SubmitBurst: 1})

	rec, _ := do(t, s, http.MethodPost, "/api/matches", match("m1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := do(t, s, http.MethodPost, "/api/matches", match("m2"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", out["kind"])

	// Reads are never throttled
	rec, _ = do(t, s, http.MethodGet, "/api/leaderboard", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLeaderboard(t *testing.T) {
	s := newServer(Options{})
	rec, _ := do(t, s, http.MethodPost, "/api/matches", match("m1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := do(t, s, http.MethodGet, "/api/leaderboard?page=1&size=4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	players := out["players"].([]interface{})
	require.Len(t, players, 4)

	top := players[0].(map[string]interface{})
	assert.Equal(t, 1.0, top["rank"])
	assert.Equal(t, "a0", top["player_id"])
	assert.Equal(t, "Silver I", top["tier"])
	assert.Equal(t, 100.0, top["win_rate"])

	rec, out = do(t, s, http.MethodGet, "/api/leaderboard?page=3&size=4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	players = out["players"].([]interface{})
	require.Len(t, players, 2)
	assert.Equal(t, 9.0, players[0].(map[string]interface{})["rank"])

	rec, out = do(t, s, http.MethodGet, "/api/leaderboard?size=lots", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", out["kind"])
}

func TestPlayer(t *testing.T) {
	s := newServer(Options{})
	rec, _ := do(t, s, http.MethodPost, "/api/matches", match("m1"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := do(t, s, http.MethodGet, "/api/players/b2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	standing := out["standing"].(map[string]interface{})
	assert.Equal(t, "B2", standing["name"])
	assert.Equal(t, 1.0, standing["losses"])

	rank := out["rank"].(map[string]interface{})
	assert.Equal(t, "Bronze II", rank["name"])
	assert.Equal(t, "Silver I", rank["next_tier"])
	assert.Len(t, out["recent"], 1)

	rec, out = do(t, s, http.MethodGet, "/api/players/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", out["kind"])
}

func TestRank(t *testing.T) {
	s := newServer(Options{})

	rec, out := do(t, s, http.MethodGet, "/api/rank?rating=1234.56", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Gold I", out["name"])
	assert.Equal(t, 35.0, out["progress"])
	assert.Equal(t, 65.0, out["points_to_next"])

	for _, q := range []string{"", "abc", "NaN", "Inf"} {
		rec, _ = do(t, s, http.MethodGet, "/api/rank?rating="+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}
