// Package pgstore keeps room records in Postgres.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"

	"buzzin/internal/game"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
	     code         TEXT PRIMARY KEY,
	     host_name    TEXT NOT NULL,
	     host_token   TEXT NOT NULL,
	     created_at   TIMESTAMPTZ NOT NULL,
	     team_a_name  TEXT NOT NULL,
	     team_b_name  TEXT NOT NULL,
	     team_a_score INT NOT NULL DEFAULT 0,
	     team_b_score INT NOT NULL DEFAULT 0,
	     updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	 )`,
	`CREATE TABLE IF NOT EXISTS players (
	     room_code  TEXT NOT NULL,
	     id         TEXT NOT NULL,
	     name       TEXT NOT NULL,
	     team       TEXT,
	     seat       INT NOT NULL DEFAULT -1,
	     join_order INT NOT NULL DEFAULT 0,
	     points     INT NOT NULL DEFAULT 0,
	     PRIMARY KEY (room_code, id)
	 )`,
}

const upsertRoom = `
	INSERT INTO rooms (code, host_name, host_token, created_at,
	                   team_a_name, team_b_name, team_a_score, team_b_score)
	     VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	ON CONFLICT (code) DO UPDATE
	       SET host_name=EXCLUDED.host_name,
	           team_a_name=EXCLUDED.team_a_name,
	           team_b_name=EXCLUDED.team_b_name,
	           team_a_score=EXCLUDED.team_a_score,
	           team_b_score=EXCLUDED.team_b_score,
	           updated_at=now()`

const upsertPlayer = `
	INSERT INTO players (room_code, id, name, team, seat, join_order, points)
	     VALUES ($1,$2,$3,$4,$5,$6,$7)
	ON CONFLICT (room_code, id) DO UPDATE
	       SET name=EXCLUDED.name,
	           team=EXCLUDED.team,
	           seat=EXCLUDED.seat,
	           join_order=EXCLUDED.join_order,
	           points=EXCLUDED.points`

const (
	selectRooms = `SELECT code, host_name, host_token, created_at,
	                      team_a_name, team_b_name, team_a_score, team_b_score
	                 FROM rooms`
	selectPlayers = `SELECT room_code, id, name, team, seat, join_order, points
	                   FROM players ORDER BY room_code, join_order`
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("pgstore: migrate: %w", err)
		}
	}
	return nil
}

func saveRoom(ctx context.Context, ex execer, rec game.RoomRecord) error {
	_, err := ex.ExecContext(ctx, upsertRoom,
		rec.Code, rec.HostName, rec.HostToken, rec.CreatedAt,
		rec.TeamAName, rec.TeamBName, rec.TeamAScore, rec.TeamBScore)
	return err
}

func savePlayer(ctx context.Context, ex execer, rec game.PlayerRecord) error {
	team := sql.NullString{String: string(rec.Team), Valid: rec.Team != ""}
	_, err := ex.ExecContext(ctx, upsertPlayer,
		rec.RoomCode, rec.ID, rec.Name, team, rec.Seat, rec.Order, rec.Points)
	return err
}

func (s *Store) SaveRoom(ctx context.Context, rec game.RoomRecord) error {
	return saveRoom(ctx, s.db, rec)
}

func (s *Store) SavePlayer(ctx context.Context, rec game.PlayerRecord) error {
	return savePlayer(ctx, s.db, rec)
}

func (s *Store) DeletePlayer(ctx context.Context, code, playerID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE room_code = $1 AND id = $2`, code, playerID)
	return err
}

func (s *Store) DeleteRoom(ctx context.Context, code string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM players WHERE room_code = $1`, code); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE code = $1`, code); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveRooms upserts every dump in one transaction.
func (s *Store) SaveRooms(ctx context.Context, dumps []game.RoomDump) error {
	if len(dumps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, d := range dumps {
		if err := saveRoom(ctx, tx, d.Room); err != nil {
			return fmt.Errorf("pgstore: room %s: %w", d.Room.Code, err)
		}
		for _, p := range d.Players {
			if err := savePlayer(ctx, tx, p); err != nil {
				return fmt.Errorf("pgstore: player %s/%s: %w", d.Room.Code, p.ID, err)
			}
		}
	}
	return tx.Commit()
}

func (s *Store) LoadRooms(ctx context.Context) ([]game.RoomDump, error) {
	rows, err := s.db.QueryContext(ctx, selectRooms)
	if err != nil {
		return nil, err
	}
	var dumps []game.RoomDump
	index := make(map[string]int)
	for rows.Next() {
		var r game.RoomRecord
		if err := rows.Scan(&r.Code, &r.HostName, &r.HostToken, &r.CreatedAt,
			&r.TeamAName, &r.TeamBName, &r.TeamAScore, &r.TeamBScore); err != nil {
			rows.Close()
			return nil, err
		}
		index[r.Code] = len(dumps)
		dumps = append(dumps, game.RoomDump{Room: r})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prows, err := s.db.QueryContext(ctx, selectPlayers)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var (
			p    game.PlayerRecord
			team sql.NullString
		)
		if err := prows.Scan(&p.RoomCode, &p.ID, &p.Name, &team, &p.Seat, &p.Order, &p.Points); err != nil {
			return nil, err
		}
		p.Team = game.TeamKey(team.String)
		i, ok := index[p.RoomCode]
		if !ok {
			continue // orphaned row
		}
		dumps[i].Players = append(dumps[i].Players, p)
	}
	return dumps, prows.Err()
}

func (s *Store) Close() error { return s.db.Close() }
