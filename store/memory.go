package store

import (
	"context"
	"sort"
	"time"

	"github.com/sasha-s/go-deadlock"

	"cs2-elo/model"
)

type memPlayer struct {
	name  string
	state model.PlayerRatingState
}

// Memory keeps everything in process. Used for one-off CLI runs and tests.
type Memory struct {
	mutex   deadlock.RWMutex
	players map[string]*memPlayer
	matches map[string]bool
	history map[string][]MatchRecord
	now     func() time.Time
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		players: make(map[string]*memPlayer),
		matches: make(map[string]bool),
		history: make(map[string][]MatchRecord),
		now:     time.Now,
	}
}

// States returns the known players among ids.
func (m *Memory) States(ctx context.Context, ids []string) (map[string]model.PlayerRatingState, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	states := make(map[string]model.PlayerRatingState, len(ids))
	for _, id := range ids {
		if p, ok := m.players[id]; ok {
			states[id] = p.state
		}
	}
	return states, nil
}

// Apply writes a rated match, or nothing when a rating moved or the
// match was already applied.
func (m *Memory) Apply(ctx context.Context, match *model.MatchResult, updates []model.RatingUpdate) error {
	if err := CheckApply(match, updates); err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.matches[match.ID] {
		return ErrDuplicateMatch
	}

	for _, u := range updates {
		current := model.DefaultRating
		if p, ok := m.players[u.PlayerID]; ok {
			current = p.state.Rating
		}
		if current != u.OldRating {
			return ErrStaleRating
		}
	}

	names := Names(match)
	for _, u := range updates {
		p, ok := m.players[u.PlayerID]
		if !ok {
			p = &memPlayer{state: model.NewPlayerRatingState()}
			m.players[u.PlayerID] = p
		}
		if name, ok := names[u.PlayerID]; ok {
			p.name = name
		}

		p.state.Rating = u.NewRating
		p.state.GamesPlayed++
		if u.Won {
			p.state.Wins++
		} else {
			p.state.Losses++
		}
	}

	for _, r := range Records(match, updates, m.now()) {
		m.history[r.PlayerID] = append(m.history[r.PlayerID], r)
	}
	m.matches[match.ID] = true

	return nil
}

func (m *Memory) standings() []Standing {
	standings := make([]Standing, 0, len(m.players))
	for id, p := range m.players {
		standings = append(standings, Standing{
			PlayerID:    id,
			Name:        p.name,
			Rating:      p.state.Rating,
			GamesPlayed: p.state.GamesPlayed,
			Wins:        p.state.Wins,
			Losses:      p.state.Losses,
		})
	}
	sort.Slice(standings, func(i, j int) bool {
		return Ahead(standings[i], standings[j])
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

// Leaderboard returns limit standings from offset; limit 0 means all.
func (m *Memory) Leaderboard(ctx context.Context, offset, limit int) ([]Standing, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	standings := m.standings()
	offset = max(offset, 0)
	if offset >= len(standings) {
		return []Standing{}, nil
	}
	end := len(standings)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return standings[offset:end], nil
}

// Player returns one standing with its rank.
func (m *Memory) Player(ctx context.Context, id string) (*Standing, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if _, ok := m.players[id]; !ok {
		return nil, ErrNotFound
	}
	for _, s := range m.standings() {
		if s.PlayerID == id {
			return &s, nil
		}
	}
	return nil, ErrNotFound
}

// History returns a player's matches, newest first.
func (m *Memory) History(ctx context.Context, id string, limit int) ([]MatchRecord, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	all := m.history[id]
	records := make([]MatchRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(records) == limit {
			break
		}
		records = append(records, all[i])
	}
	return records, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}
