package app_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/app"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"golang.org/x/sync/errgroup"
)

func TestBuyProblemDebitsAndOpensCard(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	spID := f.buy(t, f.alice, 1)
	if spID == 0 {
		t.Fatalf("expected selected problem id")
	}
	if got := f.points(t, f.alice); got != 80 {
		t.Fatalf("expected 80 points after buying a 20-point card, got %d", got)
	}

	list, err := f.svc.GetContestantSelectedProblems(ctx, f.alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("expected one active problem, got %d", len(list.Items))
	}
	item := list.Items[0]
	if item.SelectedProblemID != spID || item.AttemptsRemaining != 3 || item.PossibleReward != 40 {
		t.Fatalf("unexpected view %+v", item)
	}
	if item.ProblemStatement != "question 1" || item.CategoryName != "cat1" {
		t.Fatalf("expected card details in view, got %+v", item)
	}

	logs, err := f.svc.GetContestantLogs(ctx, f.alice, 0, 10)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if logs.Total != 2 || logs.Entries[0].Content != "Card <cat1 for 20> was added to your active cards." {
		t.Fatalf("unexpected logs %+v", logs)
	}

	kinds := f.events.kinds()
	if len(kinds) != 2 || kinds[0] != domain.EventProblemBought || kinds[1] != domain.EventBalanceChanged {
		t.Fatalf("unexpected events %v", kinds)
	}
	if f.metrics.purchases["ok"] != 1 {
		t.Fatalf("expected purchase metric, got %v", f.metrics.purchases)
	}
}

func TestBuyProblemRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("same card twice", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})
		f.buy(t, f.alice, 0)
		_, err := f.svc.BuyProblem(ctx, f.alice, f.cards[0])
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected already exists, got %v", err)
		}
		if got := f.points(t, f.alice); got != 90 {
			t.Fatalf("second attempt must not debit, got %d", got)
		}
	})

	t.Run("no free slots", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{price: func(int) int { return 1 }})
		for i := 0; i < 3; i++ {
			f.buy(t, f.alice, i)
		}
		_, err := f.svc.BuyProblem(ctx, f.alice, f.cards[3])
		if !errors.Is(err, domain.ErrLimitOverflow) {
			t.Fatalf("expected limit overflow, got %v", err)
		}
		if f.metrics.purchases["limit_overflow"] != 1 {
			t.Fatalf("expected rejection metric, got %v", f.metrics.purchases)
		}
	})

	t.Run("not enough points", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{
			contest: func(c *domain.Contest) { c.StartPoints = 50 },
			price:   func(int) int { return 100 },
		})
		_, err := f.svc.BuyProblem(ctx, f.alice, f.cards[0])
		if !errors.Is(err, domain.ErrInsufficientPoints) {
			t.Fatalf("expected insufficient points, got %v", err)
		}
		if got := f.points(t, f.alice); got != 50 {
			t.Fatalf("rejected purchase must keep the balance at 50, got %d", got)
		}
		list, err := f.svc.GetContestantSelectedProblems(ctx, f.alice)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list.Items) != 0 {
			t.Fatalf("rejected purchase must not open a card, got %+v", list.Items)
		}
		err = f.store.WithinTx(ctx, func(ctx context.Context, tx app.Tx) error {
			_, err := tx.FindSelectedProblem(ctx, f.alice, f.cards[0])
			return err
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected no selected problem row, got %v", err)
		}
		if logs, _ := f.svc.GetContestantLogs(ctx, f.alice, 0, 10); logs.Total != 0 {
			t.Fatalf("rejected purchase must not write logs, got %+v", logs)
		}
		if kinds := f.events.kinds(); len(kinds) != 0 {
			t.Fatalf("rejected purchase must not publish, got %v", kinds)
		}
	})

	t.Run("closed contest", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{contest: func(c *domain.Contest) {
			c.StartedAt = testNow.Add(-2 * time.Hour)
			c.ClosedAt = testNow
		}})
		_, err := f.svc.BuyProblem(ctx, f.alice, f.cards[0])
		if !errors.Is(err, domain.ErrContestClosed) || !errors.Is(err, domain.ErrPermissionDenied) {
			t.Fatalf("expected contest closed, got %v", err)
		}
	})

	t.Run("unknown card", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})
		_, err := f.svc.BuyProblem(ctx, f.alice, 9999)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if err.Error() != "problem card 9999: entity does not exist" {
			t.Fatalf("expected the entity to be named once, got %q", err)
		}
	})

	t.Run("card of another contest", func(t *testing.T) {
		f := newFixture(t, fixtureOptions{})
		other, err := f.store.AddContest(domain.Contest{
			Name:             "other",
			StartedAt:        testNow.Add(-time.Hour),
			ClosedAt:         testNow.Add(time.Hour),
			SlotsForProblems: 1,
			RuleType:         domain.RuleDefault,
		})
		if err != nil {
			t.Fatalf("add contest: %v", err)
		}
		stranger, err := f.store.AddContestant(domain.Contestant{UserID: 3, ContestID: other.ID, Name: "eve"})
		if err != nil {
			t.Fatalf("add contestant: %v", err)
		}
		_, err = f.svc.BuyProblem(ctx, stranger.ID, f.cards[0])
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestBuyAfterSlotIsFreed(t *testing.T) {
	ctx := context.Background()
	settle := map[string]func(t *testing.T, f *fixture, spID int64){
		"failed": func(t *testing.T, f *fixture, spID int64) {
			for i := 0; i < domain.MaxAttempts; i++ {
				if _, err := f.svc.CheckSubmission(ctx, f.alice, spID, "nope"); err != nil {
					t.Fatalf("wrong answer %d: %v", i+1, err)
				}
			}
		},
		"solved": func(t *testing.T, f *fixture, spID int64) {
			if _, err := f.svc.CheckSubmission(ctx, f.alice, spID, "answer0"); err != nil {
				t.Fatalf("correct answer: %v", err)
			}
		},
	}
	for name, fn := range settle {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, fixtureOptions{price: func(int) int { return 1 }})
			first := f.buy(t, f.alice, 0)
			f.buy(t, f.alice, 1)
			f.buy(t, f.alice, 2)
			if _, err := f.svc.BuyProblem(ctx, f.alice, f.cards[3]); !errors.Is(err, domain.ErrLimitOverflow) {
				t.Fatalf("expected all slots taken, got %v", err)
			}

			fn(t, f, first)

			if _, err := f.svc.BuyProblem(ctx, f.alice, f.cards[3]); err != nil {
				t.Fatalf("buy after slot freed: %v", err)
			}
			info, err := f.svc.GetContestantInfo(ctx, f.alice)
			if err != nil {
				t.Fatalf("info: %v", err)
			}
			if info.ProblemsCurrent != 3 {
				t.Fatalf("expected 3 active problems again, got %d", info.ProblemsCurrent)
			}
		})
	}
}

func TestBuyProblemWithNegativeBalanceAllowed(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		contest: func(c *domain.Contest) { c.AllowNegativePoints = true },
		price:   func(int) int { return 150 },
	})
	f.buy(t, f.alice, 0)
	if got := f.points(t, f.alice); got != -50 {
		t.Fatalf("expected -50 points, got %d", got)
	}
}

func TestBuyProblemFreeCardPublishesNoBalanceChange(t *testing.T) {
	f := newFixture(t, fixtureOptions{price: func(int) int { return 0 }})
	f.buy(t, f.alice, 0)
	kinds := f.events.kinds()
	if len(kinds) != 1 || kinds[0] != domain.EventProblemBought {
		t.Fatalf("unexpected events %v", kinds)
	}
}

func TestConcurrentBuysRespectSlotsAndBalance(t *testing.T) {
	f := newFixture(t, fixtureOptions{price: func(int) int { return 30 }})
	ctx := context.Background()

	var ok, overflow, poor atomic.Int32
	var g errgroup.Group
	for i := range f.cards {
		card := f.cards[i]
		g.Go(func() error {
			_, err := f.svc.BuyProblem(ctx, f.alice, card)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrLimitOverflow):
				overflow.Add(1)
			case errors.Is(err, domain.ErrInsufficientPoints):
				poor.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ok.Load() != 3 {
		t.Fatalf("expected exactly 3 purchases, got %d", ok.Load())
	}
	if overflow.Load()+poor.Load() != int32(len(f.cards))-3 {
		t.Fatalf("unexpected rejections overflow=%d poor=%d", overflow.Load(), poor.Load())
	}
	if got := f.points(t, f.alice); got != 10 {
		t.Fatalf("expected 10 points left, got %d", got)
	}
}

func TestConcurrentBuysOfSameCard(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	var ok, dup atomic.Int32
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := f.svc.BuyProblem(ctx, f.alice, f.cards[0])
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrAlreadyExists):
				dup.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok.Load() != 1 || dup.Load() != 9 {
		t.Fatalf("expected one purchase and nine duplicates, got %d/%d", ok.Load(), dup.Load())
	}
	if got := f.points(t, f.alice); got != 90 {
		t.Fatalf("expected a single debit, got %d points", got)
	}
}
