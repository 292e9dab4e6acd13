package memory

import (
	"fmt"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
)

// AddContest inserts a contest, assigning its id.
func (s *Store) AddContest(c domain.Contest) (domain.Contest, error) {
	if err := c.Validate(); err != nil {
		return domain.Contest{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.state.nextID()
	s.state.contests[c.ID] = c
	return c, nil
}

func (s *Store) AddQuizField(f domain.QuizField) (domain.QuizField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.contests[f.ContestID]; !ok {
		return domain.QuizField{}, notFound("contest", f.ContestID)
	}
	f.ID = s.state.nextID()
	s.state.fields[f.ID] = f
	return f, nil
}

func (s *Store) AddProblem(p domain.Problem) (domain.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.state.nextID()
	s.state.problems[p.ID] = p
	return p, nil
}

func (s *Store) AddProblemCard(c domain.ProblemCard) (domain.ProblemCard, error) {
	if c.CategoryPrice < 0 || c.CategoryPrice > domain.MaxPrice {
		return domain.ProblemCard{}, fmt.Errorf("category price %d out of range: %w", c.CategoryPrice, domain.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.fields[c.QuizFieldID]; !ok {
		return domain.ProblemCard{}, notFound("quiz field", c.QuizFieldID)
	}
	if c.ProblemID != nil {
		if _, ok := s.state.problems[*c.ProblemID]; !ok {
			return domain.ProblemCard{}, notFound("problem", *c.ProblemID)
		}
	}
	c.ID = s.state.nextID()
	s.state.cards[c.ID] = c
	return c, nil
}

// AddContestant registers a contestant with the contest's starting balance.
func (s *Store) AddContestant(c domain.Contestant) (domain.Contestant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if contest, ok := s.state.contests[c.ContestID]; ok {
		c.Points = contest.StartPoints
	}
	if err := s.state.insertContestant(&c); err != nil {
		return domain.Contestant{}, err
	}
	return c, nil
}

// Demo describes the ids created by SeedDemo.
type Demo struct {
	OrganizerID int64 // user id allowed to register contestants
	ContestID   int64
	CardIDs     []int64
	Contestants map[int64]int64 // user id -> contestant id
}

// DemoCard is one cell of the demo quiz field.
type DemoCard struct {
	Category string
	Price    int
	Question string
	Answer   string
}

// DemoGrid is the 3x3 field used by SeedDemo, row by row.
var DemoGrid = []DemoCard{
	{"Math", 10, "2 + 2 * 2 = ?", "6"},
	{"Math", 20, "The smallest prime greater than 50?", "53"},
	{"Math", 30, "Number of edges of a cube?", "12"},
	{"Geography", 10, "Capital of Japan?", "Tokyo"},
	{"Geography", 20, "Longest river in Africa?", "Nile"},
	{"Geography", 30, "Country with the most time zones?", "France"},
	{"Science", 10, "Chemical symbol of gold?", "Au"},
	{"Science", 20, "Planet with the shortest year?", "Mercury"},
	{"Science", 30, "Unit of electrical resistance?", "Ohm"},
}

// DemoOrganizerID is the user that manages the demo contest.
const DemoOrganizerID int64 = 100

// SeedDemo fills the store with an open 3x3 contest and two contestants
// (user ids 1 and 2), so the server can be tried without a database.
func SeedDemo(s *Store, now time.Time) (Demo, error) {
	contest, err := s.AddContest(domain.Contest{
		OrganizerID:      DemoOrganizerID,
		Name:             "Demo Arena",
		StartedAt:        now.Add(-time.Hour),
		ClosedAt:         now.Add(24 * time.Hour),
		StartPoints:      100,
		SlotsForProblems: 3,
		RuleType:         domain.RuleDefault,
		CreatedAt:        now,
	})
	if err != nil {
		return Demo{}, err
	}
	field, err := s.AddQuizField(domain.QuizField{ContestID: contest.ID, Rows: 3, Columns: 3})
	if err != nil {
		return Demo{}, err
	}

	demo := Demo{OrganizerID: DemoOrganizerID, ContestID: contest.ID, Contestants: make(map[int64]int64)}
	for i, cell := range DemoGrid {
		p, err := s.AddProblem(domain.Problem{Statement: cell.Question, Answer: cell.Answer})
		if err != nil {
			return Demo{}, err
		}
		problemID := p.ID
		card, err := s.AddProblemCard(domain.ProblemCard{
			QuizFieldID:   field.ID,
			Row:           i / field.Columns,
			Column:        i % field.Columns,
			CategoryName:  cell.Category,
			CategoryPrice: cell.Price,
			ProblemID:     &problemID,
		})
		if err != nil {
			return Demo{}, err
		}
		demo.CardIDs = append(demo.CardIDs, card.ID)
	}

	for i, name := range []string{"alice", "bob"} {
		userID := int64(i + 1)
		c, err := s.AddContestant(domain.Contestant{UserID: userID, ContestID: contest.ID, Name: name, CreatedAt: now})
		if err != nil {
			return Demo{}, err
		}
		demo.Contestants[userID] = c.ID
	}
	return demo, nil
}
