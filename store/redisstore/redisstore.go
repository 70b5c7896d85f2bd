// Package redisstore keeps ratings in Redis.
//
// Keys, under a configurable prefix:
//
//	<prefix>:player:<id>   hash of name, rating, games_played, wins, losses
//	<prefix>:leaderboard   sorted set of player ids by rating
//	<prefix>:matches       set of applied match ids
//	<prefix>:history:<id>  list of JSON match records, newest first
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"cs2-elo/model"
	"cs2-elo/store"
)

const DefaultPrefix = "cs2elo"

var timeNow = time.Now

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Store struct {
	client *redis.Client
	prefix string
}

// Open connects to Redis and checks the connection.
func Open(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "could not connect to redis")
	}

	log.Debug().Str("addr", opts.Addr).Msg("redis connected")
	return New(client, opts.Prefix), nil
}

// New wraps an existing client.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) playerKey(id string) string {
	return fmt.Sprintf("%s:player:%s", s.prefix, id)
}

func (s *Store) historyKey(id string) string {
	return fmt.Sprintf("%s:history:%s", s.prefix, id)
}

func (s *Store) leaderboardKey() string {
	return s.prefix + ":leaderboard"
}

func (s *Store) matchesKey() string {
	return s.prefix + ":matches"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// parseState reads an HMGET of rating, games_played, wins, losses. The
// player is unknown when rating is missing.
func parseState(vals []interface{}) (model.PlayerRatingState, bool, error) {
	var state model.PlayerRatingState
	if len(vals) < 4 || vals[0] == nil {
		return state, false, nil
	}

	str := func(v interface{}) string {
		s, _ := v.(string)
		return s
	}
	atoi := func(v interface{}) int {
		n, _ := strconv.Atoi(str(v))
		return n
	}

	rating, err := strconv.ParseFloat(str(vals[0]), 64)
	if err != nil {
		return state, false, errors.Wrap(err, "corrupt rating")
	}

	state.Rating = rating
	state.GamesPlayed = atoi(vals[1])
	state.Wins = atoi(vals[2])
	state.Losses = atoi(vals[3])
	return state, true, nil
}

var stateFields = []string{"rating", "games_played", "wins", "losses"}

func (s *Store) States(ctx context.Context, ids []string) (map[string]model.PlayerRatingState, error) {
	states := make(map[string]model.PlayerRatingState, len(ids))
	if len(ids) == 0 {
		return states, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HMGet(ctx, s.playerKey(id), stateFields...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	for i, id := range ids {
		state, ok, err := parseState(cmds[i].Val())
		if err != nil {
			return nil, err
		}
		if ok {
			states[id] = state
		}
	}
	return states, nil
}

func (s *Store) Apply(ctx context.Context, match *model.MatchResult, updates []model.RatingUpdate) error {
	if err := store.CheckApply(match, updates); err != nil {
		return err
	}

	names := store.Names(match)
	records := store.Records(match, updates, timeNow())

	keys := []string{s.matchesKey()}
	for _, u := range updates {
		keys = append(keys, s.playerKey(u.PlayerID))
	}

	txf := func(tx *redis.Tx) error {
		applied, err := tx.SIsMember(ctx, s.matchesKey(), match.ID).Result()
		if err != nil {
			return err
		}
		if applied {
			return store.ErrDuplicateMatch
		}

		for _, u := range updates {
			vals, err := tx.HMGet(ctx, s.playerKey(u.PlayerID), stateFields...).Result()
			if err != nil {
				return err
			}
			state, ok, err := parseState(vals)
			if err != nil {
				return err
			}
			current := model.DefaultRating
			if ok {
				current = state.Rating
			}
			if current != u.OldRating {
				return store.ErrStaleRating
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, u := range updates {
				key := s.playerKey(u.PlayerID)

				pipe.HSet(ctx, key, "rating", formatFloat(u.NewRating))
				pipe.HIncrBy(ctx, key, "games_played", 1)
				if u.Won {
					pipe.HIncrBy(ctx, key, "wins", 1)
				} else {
					pipe.HIncrBy(ctx, key, "losses", 1)
				}
				if name, ok := names[u.PlayerID]; ok {
					pipe.HSet(ctx, key, "name", name)
				}
				pipe.ZAdd(ctx, s.leaderboardKey(), redis.Z{Score: u.NewRating, Member: u.PlayerID})

				data, err := json.Marshal(records[i])
				if err != nil {
					return err
				}
				pipe.LPush(ctx, s.historyKey(u.PlayerID), data)
			}
			pipe.SAdd(ctx, s.matchesKey(), match.ID)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txf, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		return store.ErrStaleRating
	}
	return err
}

// standings loads the hashes of ids, sorted by leaderboard order.
func (s *Store) standings(ctx context.Context, ids []string) ([]store.Standing, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HMGet(ctx, s.playerKey(id), "rating", "games_played", "wins", "losses", "name")
	}
	if len(ids) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}

	standings := make([]store.Standing, 0, len(ids))
	for i, id := range ids {
		vals := cmds[i].Val()
		state, ok, err := parseState(vals)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		name, _ := vals[4].(string)
		standings = append(standings, store.Standing{
			PlayerID:    id,
			Name:        name,
			Rating:      state.Rating,
			GamesPlayed: state.GamesPlayed,
			Wins:        state.Wins,
			Losses:      state.Losses,
		})
	}

	sort.Slice(standings, func(i, j int) bool {
		return store.Ahead(standings[i], standings[j])
	})
	return standings, nil
}

// Leaderboard reads the whole sorted set; equal ratings are ordered by wins
// and id once the hashes are loaded.
func (s *Store) Leaderboard(ctx context.Context, offset, limit int) ([]store.Standing, error) {
	ids, err := s.client.ZRevRange(ctx, s.leaderboardKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	all, err := s.standings(ctx, ids)
	if err != nil {
		return nil, err
	}

	offset = max(offset, 0)
	if offset >= len(all) {
		return []store.Standing{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	page := all[offset:end]
	for i := range page {
		page[i].Rank = offset + i + 1
	}
	return page, nil
}

func (s *Store) Player(ctx context.Context, id string) (*store.Standing, error) {
	rating, err := s.client.ZScore(ctx, s.leaderboardKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	score := formatFloat(rating)
	above, err := s.client.ZCount(ctx, s.leaderboardKey(), "("+score, "+inf").Result()
	if err != nil {
		return nil, err
	}

	tied, err := s.client.ZRangeByScore(ctx, s.leaderboardKey(), &redis.ZRangeBy{Min: score, Max: score}).Result()
	if err != nil {
		return nil, err
	}
	group, err := s.standings(ctx, tied)
	if err != nil {
		return nil, err
	}

	for i, standing := range group {
		if standing.PlayerID == id {
			standing.Rank = int(above) + i + 1
			return &standing, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) History(ctx context.Context, id string, limit int) ([]store.MatchRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	items, err := s.client.LRange(ctx, s.historyKey(id), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	records := make([]store.MatchRecord, 0, len(items))
	for _, item := range items {
		var r store.MatchRecord
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, errors.Wrap(err, "corrupt history entry")
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
