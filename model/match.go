package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Team is an opaque team identifier, usually the side a team started on.
type Team string

const (
	TeamCT Team = "CT"
	TeamT  Team = "T"
)

// MatchResult is a decided match with both rosters.
type MatchResult struct {
	ID  string `json:"id,omitempty" yaml:"id,omitempty"`
	Map string `json:"map,omitempty" yaml:"map,omitempty"`

	TeamAScore int `json:"team_a_score" yaml:"team_a_score"`
	TeamBScore int `json:"team_b_score" yaml:"team_b_score"`

	TeamA []PlayerMatchStat `json:"team_a" yaml:"team_a"`
	TeamB []PlayerMatchStat `json:"team_b" yaml:"team_b"`
}

// TeamAWon reports whether team A finished with more rounds.
func (m *MatchResult) TeamAWon() bool {
	return m.TeamAScore > m.TeamBScore
}

// Players returns every player of both rosters, team A first.
func (m *MatchResult) Players() []PlayerMatchStat {
	players := make([]PlayerMatchStat, 0, len(m.TeamA)+len(m.TeamB))
	players = append(players, m.TeamA...)
	return append(players, m.TeamB...)
}

// PlayerIDs returns the ids of every player, team A first.
func (m *MatchResult) PlayerIDs() []string {
	ids := make([]string, 0, len(m.TeamA)+len(m.TeamB))
	for _, p := range m.Players() {
		ids = append(ids, p.PlayerID)
	}
	return ids
}

// Partition splits a flat list of stats into the two rosters using each
// stat's Team. Stats belonging to neither team are rejected.
func Partition(teamA, teamB Team, stats []PlayerMatchStat) (a, b []PlayerMatchStat, err error) {
	for _, s := range stats {
		switch s.Team {
		case teamA:
			a = append(a, s)
		case teamB:
			b = append(b, s)
		default:
			return nil, nil, fmt.Errorf("player %s is on unknown team %q", s.PlayerID, s.Team)
		}
	}
	return a, b, nil
}

// DecodeMatch reads a match result from JSON or YAML, chosen by extension.
func DecodeMatch(path string) (*MatchResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var match MatchResult
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &match)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &match)
	default:
		return nil, fmt.Errorf("unsupported match file %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return &match, nil
}
