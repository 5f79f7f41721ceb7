// Package redisstore keeps room records in Redis: one hash per room, one hash
// of JSON player records per room, and a set of live codes.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"buzzin/internal/game"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	liveSet    = "rooms:live"
	roomPrefix = "room:"
)

func roomKey(code string) string    { return roomPrefix + code }
func playersKey(code string) string { return roomPrefix + code + ":players" }

type Store struct {
	rdc *redis.Client
}

func New(rdc *redis.Client) *Store { return &Store{rdc: rdc} }

func roomFields(rec game.RoomRecord) []any {
	return []any{
		"code", rec.Code,
		"hostName", rec.HostName,
		"hostToken", rec.HostToken,
		"createdAt", rec.CreatedAt.UnixMilli(),
		"teamAName", rec.TeamAName,
		"teamBName", rec.TeamBName,
		"teamAScore", rec.TeamAScore,
		"teamBScore", rec.TeamBScore,
	}
}

func queueRoom(ctx context.Context, pipe redis.Pipeliner, rec game.RoomRecord) {
	pipe.HSet(ctx, roomKey(rec.Code), roomFields(rec)...)
	pipe.SAdd(ctx, liveSet, rec.Code)
}

func queuePlayer(ctx context.Context, pipe redis.Pipeliner, rec game.PlayerRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe.HSet(ctx, playersKey(rec.RoomCode), rec.ID, string(raw))
	return nil
}

func (s *Store) SaveRoom(ctx context.Context, rec game.RoomRecord) error {
	_, err := s.rdc.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		queueRoom(ctx, pipe, rec)
		return nil
	})
	return err
}

func (s *Store) SavePlayer(ctx context.Context, rec game.PlayerRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.rdc.HSet(ctx, playersKey(rec.RoomCode), rec.ID, string(raw)).Err()
}

func (s *Store) DeletePlayer(ctx context.Context, code, playerID string) error {
	return s.rdc.HDel(ctx, playersKey(code), playerID).Err()
}

func (s *Store) DeleteRoom(ctx context.Context, code string) error {
	_, err := s.rdc.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, roomKey(code), playersKey(code))
		pipe.SRem(ctx, liveSet, code)
		return nil
	})
	return err
}

// SaveRooms writes every dump in a single pipelined round-trip.
func (s *Store) SaveRooms(ctx context.Context, dumps []game.RoomDump) error {
	if len(dumps) == 0 {
		return nil
	}
	_, err := s.rdc.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, d := range dumps {
			queueRoom(ctx, pipe, d.Room)
			for _, p := range d.Players {
				if err := queuePlayer(ctx, pipe, p); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return err
}

func (s *Store) LoadRooms(ctx context.Context) ([]game.RoomDump, error) {
	codes, err := s.rdc.SMembers(ctx, liveSet).Result()
	if err != nil || len(codes) == 0 {
		return nil, err
	}

	// 1. fetch all hashes in one pipelined round‑trip
	pipe := s.rdc.Pipeline()
	rooms := make([]*redis.MapStringStringCmd, len(codes))
	players := make([]*redis.MapStringStringCmd, len(codes))
	for i, code := range codes {
		rooms[i] = pipe.HGetAll(ctx, roomKey(code))
		players[i] = pipe.HGetAll(ctx, playersKey(code))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redisstore: load: %w", err)
	}

	// 2. decode, skipping codes whose hash expired or was removed
	dumps := make([]game.RoomDump, 0, len(codes))
	for i, code := range codes {
		fields := rooms[i].Val()
		if len(fields) == 0 {
			continue
		}
		d := game.RoomDump{Room: parseRoom(code, fields)}
		for id, raw := range players[i].Val() {
			var p game.PlayerRecord
			if err := json.Unmarshal([]byte(raw), &p); err != nil {
				zap.L().Warn("redisstore.bad_player", zap.String("code", code), zap.String("player", id), zap.Error(err))
				continue
			}
			d.Players = append(d.Players, p)
		}
		dumps = append(dumps, d)
	}
	return dumps, nil
}

func parseRoom(code string, f map[string]string) game.RoomRecord {
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	rec := game.RoomRecord{
		Code:       code,
		HostName:   f["hostName"],
		HostToken:  f["hostToken"],
		TeamAName:  f["teamAName"],
		TeamBName:  f["teamBName"],
		TeamAScore: atoi(f["teamAScore"]),
		TeamBScore: atoi(f["teamBScore"]),
	}
	if ms, err := strconv.ParseInt(f["createdAt"], 10, 64); err == nil && ms > 0 {
		rec.CreatedAt = time.UnixMilli(ms)
	}
	return rec
}

func (s *Store) Close() error { return s.rdc.Close() }
