package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/app"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/infra/memory"
)

var testNow = time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *app.ArenaService
	store   *memory.Store
	events  *recordingPublisher
	metrics *recordingMetrics
	contest domain.Contest
	cards   []int64
	alice   int64
	bob     int64
}

type fixtureOptions struct {
	contest func(*domain.Contest)
	price   func(i int) int
	cards   int
}

// newFixture builds an open contest with nine cards. Card i costs (i+1)*10
// unless price overrides it and its answer is "answer<i>".
func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	store := memory.NewStore()

	contest := domain.Contest{
		Name:             "Arena",
		StartedAt:        testNow.Add(-time.Hour),
		ClosedAt:         testNow.Add(time.Hour),
		StartPoints:      100,
		SlotsForProblems: 3,
		RuleType:         domain.RuleDefault,
	}
	if opts.contest != nil {
		opts.contest(&contest)
	}
	contest, err := store.AddContest(contest)
	if err != nil {
		t.Fatalf("add contest: %v", err)
	}
	field, err := store.AddQuizField(domain.QuizField{ContestID: contest.ID, Rows: 3, Columns: 3})
	if err != nil {
		t.Fatalf("add field: %v", err)
	}

	n := opts.cards
	if n == 0 {
		n = 9
	}
	f := &fixture{
		store:   store,
		events:  &recordingPublisher{},
		metrics: &recordingMetrics{},
		contest: contest,
	}
	for i := 0; i < n; i++ {
		p, err := store.AddProblem(domain.Problem{Statement: fmt.Sprintf("question %d", i), Answer: fmt.Sprintf("answer%d", i)})
		if err != nil {
			t.Fatalf("add problem: %v", err)
		}
		price := (i + 1) * 10
		if opts.price != nil {
			price = opts.price(i)
		}
		problemID := p.ID
		card, err := store.AddProblemCard(domain.ProblemCard{
			QuizFieldID:   field.ID,
			Row:           i / 3,
			Column:        i % 3,
			CategoryName:  fmt.Sprintf("cat%d", i),
			CategoryPrice: price,
			ProblemID:     &problemID,
		})
		if err != nil {
			t.Fatalf("add card: %v", err)
		}
		f.cards = append(f.cards, card.ID)
	}

	alice, err := store.AddContestant(domain.Contestant{UserID: 1, ContestID: contest.ID, Name: "alice"})
	if err != nil {
		t.Fatalf("add contestant: %v", err)
	}
	bob, err := store.AddContestant(domain.Contestant{UserID: 2, ContestID: contest.ID, Name: "bob"})
	if err != nil {
		t.Fatalf("add contestant: %v", err)
	}
	f.alice, f.bob = alice.ID, bob.ID

	f.svc = app.NewArenaService(store,
		app.WithClock(func() time.Time { return testNow }),
		app.WithPublisher(f.events),
		app.WithMetrics(f.metrics),
	)
	return f
}

func (f *fixture) points(t *testing.T, contestantID int64) int {
	t.Helper()
	info, err := f.svc.GetContestantInfo(context.Background(), contestantID)
	if err != nil {
		t.Fatalf("contestant info: %v", err)
	}
	return info.Points
}

func (f *fixture) buy(t *testing.T, contestantID int64, card int) int64 {
	t.Helper()
	id, err := f.svc.BuyProblem(context.Background(), contestantID, f.cards[card])
	if err != nil {
		t.Fatalf("buy card %d: %v", card, err)
	}
	return id
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventKind, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

type recordingMetrics struct {
	mu        sync.Mutex
	purchases map[string]int
	verdicts  map[domain.Verdict]int
	awarded   int
}

func (m *recordingMetrics) ObservePurchase(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.purchases == nil {
		m.purchases = make(map[string]int)
	}
	m.purchases[result]++
}

func (m *recordingMetrics) ObserveVerdict(v domain.Verdict, reward int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.verdicts == nil {
		m.verdicts = make(map[domain.Verdict]int)
	}
	m.verdicts[v]++
	m.awarded += reward
}
