package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func runMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr
}

type countingLoader struct {
	calls atomic.Int32
	// entered and gate, when set, hold a load until the test releases it.
	entered chan struct{}
	gate    chan struct{}
}

func (l *countingLoader) LoadStandings(_ context.Context, contestID int64) (domain.Standings, error) {
	l.calls.Add(1)
	if l.entered != nil {
		l.entered <- struct{}{}
	}
	if l.gate != nil {
		<-l.gate
	}
	if contestID == 404 {
		return domain.Standings{}, domain.ErrNotFound
	}
	return domain.Standings{
		ContestID: contestID,
		Entries: []domain.StandingsEntry{
			{ContestantID: 2, Name: "bob", Points: 120},
			{ContestantID: 1, Name: "alice", Points: 80},
		},
		UpdatedAt: time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC),
	}, nil
}
