package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// StandingsLoader reads scoreboards straight from Postgres through a pgx pool,
// outside the bun transactions used by the write path.
type StandingsLoader struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewStandingsLoader(pool *pgxpool.Pool) *StandingsLoader {
	return &StandingsLoader{pool: pool, now: time.Now}
}

func (l *StandingsLoader) LoadStandings(ctx context.Context, contestID int64) (domain.Standings, error) {
	var exists int64
	err := l.pool.QueryRow(ctx, `SELECT id FROM contest WHERE id=$1`, contestID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Standings{}, fmt.Errorf("contest %d: %w", contestID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Standings{}, fmt.Errorf("load contest: %w", err)
	}

	rows, err := l.pool.Query(ctx,
		`SELECT id, name, points FROM contestant WHERE contest_id=$1 ORDER BY points DESC, name COLLATE "C", id`,
		contestID)
	if err != nil {
		return domain.Standings{}, fmt.Errorf("load standings: %w", err)
	}
	defer rows.Close()

	st := domain.Standings{ContestID: contestID, Entries: []domain.StandingsEntry{}}
	for rows.Next() {
		var e domain.StandingsEntry
		if err := rows.Scan(&e.ContestantID, &e.Name, &e.Points); err != nil {
			return domain.Standings{}, fmt.Errorf("scan standings: %w", err)
		}
		st.Entries = append(st.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return domain.Standings{}, fmt.Errorf("load standings: %w", err)
	}
	st.UpdatedAt = l.now()
	return st, nil
}
