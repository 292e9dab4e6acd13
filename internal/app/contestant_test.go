package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/app"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
)

func TestResolveContestantAndInfo(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	c, err := f.svc.ResolveContestant(ctx, 2)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if c.ID != f.bob || c.Name != "bob" {
		t.Fatalf("unexpected contestant %+v", c)
	}
	if _, err := f.svc.ResolveContestant(ctx, 77); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	f.buy(t, f.bob, 0)
	info, err := f.svc.GetContestantInfo(ctx, f.bob)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Points != 90 || info.ProblemsCurrent != 1 || info.ProblemsMax != 3 || !info.IsOpen {
		t.Fatalf("unexpected info %+v", info)
	}
	if info.ContestID != f.contest.ID || info.ContestName != "Arena" {
		t.Fatalf("unexpected contest in info %+v", info)
	}
}

func TestContestantLogsPaging(t *testing.T) {
	f := newFixture(t, fixtureOptions{price: func(int) int { return 1 }})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.buy(t, f.alice, i)
	}

	page, err := f.svc.GetContestantLogs(ctx, f.alice, 1, 2)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if page.Total != 6 || len(page.Entries) != 2 || page.Offset != 1 || page.Limit != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Entries[0].Content != "1 points were debited from your balance." {
		t.Fatalf("unexpected entry %+v", page.Entries[0])
	}

	page, err = f.svc.GetContestantLogs(ctx, f.alice, -5, 1000)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if page.Offset != 0 || page.Limit != 100 || len(page.Entries) != 6 {
		t.Fatalf("expected clamped paging, got %+v", page)
	}

	if _, err := f.svc.GetContestantLogs(ctx, 12345, 0, 10); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLoadStandingsOrdersByPoints(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	spID := f.buy(t, f.bob, 0)
	if _, err := f.svc.CheckSubmission(ctx, f.bob, spID, "answer0"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	st, err := f.svc.LoadStandings(ctx, f.contest.ID)
	if err != nil {
		t.Fatalf("standings: %v", err)
	}
	if len(st.Entries) != 2 || st.Entries[0].Name != "bob" || st.Entries[0].Points != 110 {
		t.Fatalf("unexpected standings %+v", st.Entries)
	}
	if !st.UpdatedAt.Equal(testNow) {
		t.Fatalf("expected clock timestamp, got %v", st.UpdatedAt)
	}

	if _, err := f.svc.LoadStandings(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBuildStandingsTieBreak(t *testing.T) {
	st := app.BuildStandings(1, []domain.Contestant{
		{ID: 3, Name: "carol", Points: 50},
		{ID: 1, Name: "alice", Points: 50},
		{ID: 2, Name: "bob", Points: 70},
	}, time.Time{})
	got := []string{st.Entries[0].Name, st.Entries[1].Name, st.Entries[2].Name}
	want := []string{"bob", "alice", "carol"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestBuildStandingsOrdersNamesByBytes(t *testing.T) {
	st := app.BuildStandings(1, []domain.Contestant{
		{ID: 1, Name: "adam", Points: 10},
		{ID: 2, Name: "Zed", Points: 10},
		{ID: 3, Name: "Émile", Points: 10},
		{ID: 4, Name: "bob", Points: 10},
	}, time.Time{})
	want := []string{"Zed", "adam", "bob", "Émile"}
	for i, name := range want {
		if st.Entries[i].Name != name {
			t.Fatalf("position %d: expected %s, got %+v", i, name, st.Entries)
		}
	}
}
