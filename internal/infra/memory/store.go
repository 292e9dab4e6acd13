package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/app"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
)

// Store is an in-memory implementation of app.Store. Transactions are
// serialized and run against a copy of the state that replaces the live one
// only when fn succeeds.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	seq         int64
	contests    map[int64]domain.Contest
	fields      map[int64]domain.QuizField
	cards       map[int64]domain.ProblemCard
	problems    map[int64]domain.Problem
	contestants map[int64]domain.Contestant
	selected    map[int64]domain.SelectedProblem
	submissions []domain.Submission
	logs        []domain.ContestantLog
}

func NewStore() *Store {
	return &Store{state: &state{
		contests:    make(map[int64]domain.Contest),
		fields:      make(map[int64]domain.QuizField),
		cards:       make(map[int64]domain.ProblemCard),
		problems:    make(map[int64]domain.Problem),
		contestants: make(map[int64]domain.Contestant),
		selected:    make(map[int64]domain.SelectedProblem),
	}}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &memTx{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (st *state) clone() *state {
	out := &state{
		seq:         st.seq,
		contests:    make(map[int64]domain.Contest, len(st.contests)),
		fields:      make(map[int64]domain.QuizField, len(st.fields)),
		cards:       make(map[int64]domain.ProblemCard, len(st.cards)),
		problems:    make(map[int64]domain.Problem, len(st.problems)),
		contestants: make(map[int64]domain.Contestant, len(st.contestants)),
		selected:    make(map[int64]domain.SelectedProblem, len(st.selected)),
		// Rows are only appended, so sharing the backing array up to len is safe
		// as long as the clone cannot write into it.
		submissions: st.submissions[:len(st.submissions):len(st.submissions)],
		logs:        st.logs[:len(st.logs):len(st.logs)],
	}
	for k, v := range st.contests {
		out.contests[k] = v
	}
	for k, v := range st.fields {
		out.fields[k] = v
	}
	for k, v := range st.cards {
		out.cards[k] = v
	}
	for k, v := range st.problems {
		out.problems[k] = v
	}
	for k, v := range st.contestants {
		out.contestants[k] = v
	}
	for k, v := range st.selected {
		out.selected[k] = v
	}
	return out
}

func (st *state) nextID() int64 {
	st.seq++
	return st.seq
}

type memTx struct {
	st *state
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
}

func (t *memTx) Contest(_ context.Context, id int64) (domain.Contest, error) {
	c, ok := t.st.contests[id]
	if !ok {
		return domain.Contest{}, notFound("contest", id)
	}
	return c, nil
}

func (t *memTx) QuizField(_ context.Context, id int64) (domain.QuizField, error) {
	f, ok := t.st.fields[id]
	if !ok {
		return domain.QuizField{}, notFound("quiz field", id)
	}
	return f, nil
}

func (t *memTx) QuizFieldByContest(_ context.Context, contestID int64) (domain.QuizField, error) {
	for _, f := range t.st.fields {
		if f.ContestID == contestID {
			return f, nil
		}
	}
	return domain.QuizField{}, fmt.Errorf("quiz field of contest %d: %w", contestID, domain.ErrNotFound)
}

func (t *memTx) ProblemCardsInField(_ context.Context, quizFieldID int64) ([]domain.ProblemCard, error) {
	var out []domain.ProblemCard
	for _, c := range t.st.cards {
		if c.QuizFieldID == quizFieldID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Column < out[j].Column
	})
	return out, nil
}

func (t *memTx) ProblemCard(_ context.Context, id int64) (domain.ProblemCard, error) {
	c, ok := t.st.cards[id]
	if !ok {
		return domain.ProblemCard{}, notFound("problem card", id)
	}
	return c, nil
}

func (t *memTx) Problem(_ context.Context, id int64) (domain.Problem, error) {
	p, ok := t.st.problems[id]
	if !ok {
		return domain.Problem{}, notFound("problem", id)
	}
	return p, nil
}

func (t *memTx) Contestant(_ context.Context, id int64) (domain.Contestant, error) {
	c, ok := t.st.contestants[id]
	if !ok {
		return domain.Contestant{}, notFound("contestant", id)
	}
	return c, nil
}

func (t *memTx) ContestantByUserID(_ context.Context, userID int64) (domain.Contestant, error) {
	for _, c := range t.st.contestants {
		if c.UserID == userID {
			return c, nil
		}
	}
	return domain.Contestant{}, fmt.Errorf("contestant of user %d: %w", userID, domain.ErrNotFound)
}

func (t *memTx) ContestantsInContest(_ context.Context, contestID int64) ([]domain.Contestant, error) {
	var out []domain.Contestant
	for _, c := range t.st.contestants {
		if c.ContestID == contestID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) CreateContestant(_ context.Context, c *domain.Contestant) error {
	return t.st.insertContestant(c)
}

func (st *state) insertContestant(c *domain.Contestant) error {
	if _, ok := st.contests[c.ContestID]; !ok {
		return notFound("contest", c.ContestID)
	}
	for _, other := range st.contestants {
		if other.UserID == c.UserID {
			return fmt.Errorf("contestant of user %d: %w", c.UserID, domain.ErrAlreadyExists)
		}
	}
	c.ID = st.nextID()
	st.contestants[c.ID] = *c
	return nil
}

// LockContestant is a plain read: the store lock is already held for the whole transaction.
func (t *memTx) LockContestant(ctx context.Context, id int64) (domain.Contestant, error) {
	return t.Contestant(ctx, id)
}

func (t *memTx) SetContestantPoints(_ context.Context, id int64, points int) error {
	c, ok := t.st.contestants[id]
	if !ok {
		return notFound("contestant", id)
	}
	c.Points = points
	t.st.contestants[id] = c
	return nil
}

func (t *memTx) SelectedProblem(_ context.Context, id int64) (domain.SelectedProblem, error) {
	sp, ok := t.st.selected[id]
	if !ok {
		return domain.SelectedProblem{}, notFound("selected problem", id)
	}
	return sp, nil
}

func (t *memTx) LockSelectedProblem(ctx context.Context, id int64) (domain.SelectedProblem, error) {
	return t.SelectedProblem(ctx, id)
}

func (t *memTx) FindSelectedProblem(_ context.Context, contestantID, problemCardID int64) (domain.SelectedProblem, error) {
	for _, sp := range t.st.selected {
		if sp.ContestantID == contestantID && sp.ProblemCardID == problemCardID {
			return sp, nil
		}
	}
	return domain.SelectedProblem{}, fmt.Errorf("selected problem for card %d: %w", problemCardID, domain.ErrNotFound)
}

func (t *memTx) ListSelectedProblems(_ context.Context, contestantID int64, statuses ...domain.SelectedProblemStatus) ([]domain.SelectedProblem, error) {
	var out []domain.SelectedProblem
	for _, sp := range t.st.selected {
		if sp.ContestantID != contestantID || !hasStatus(statuses, sp.Status) {
			continue
		}
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func hasStatus(statuses []domain.SelectedProblemStatus, st domain.SelectedProblemStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (t *memTx) CreateSelectedProblem(ctx context.Context, sp *domain.SelectedProblem) error {
	if _, err := t.FindSelectedProblem(ctx, sp.ContestantID, sp.ProblemCardID); err == nil {
		return fmt.Errorf("selected problem for card %d: %w", sp.ProblemCardID, domain.ErrAlreadyExists)
	}
	sp.ID = t.st.nextID()
	t.st.selected[sp.ID] = *sp
	return nil
}

func (t *memTx) UpdateSelectedProblemStatus(_ context.Context, id int64, status domain.SelectedProblemStatus) error {
	sp, ok := t.st.selected[id]
	if !ok {
		return notFound("selected problem", id)
	}
	sp.Status = status
	t.st.selected[id] = sp
	return nil
}

func (t *memTx) WrongSubmissionCounts(_ context.Context, ids []int64) (map[int64]int, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make(map[int64]int, len(ids))
	for _, s := range t.st.submissions {
		if _, ok := want[s.SelectedProblemID]; ok && s.Verdict == domain.VerdictWrong {
			out[s.SelectedProblemID]++
		}
	}
	return out, nil
}

func (t *memTx) CreateSubmission(_ context.Context, s *domain.Submission) error {
	if _, ok := t.st.selected[s.SelectedProblemID]; !ok {
		return notFound("selected problem", s.SelectedProblemID)
	}
	s.ID = t.st.nextID()
	t.st.submissions = append(t.st.submissions, *s)
	return nil
}

func (t *memTx) ContestSubmissions(_ context.Context, contestID, contestantID int64, limit int) ([]domain.ContestSubmission, error) {
	out := []domain.ContestSubmission{}
	for i := len(t.st.submissions) - 1; i >= 0 && len(out) < limit; i-- {
		s := t.st.submissions[i]
		sp := t.st.selected[s.SelectedProblemID]
		if contestantID != 0 && sp.ContestantID != contestantID {
			continue
		}
		card := t.st.cards[sp.ProblemCardID]
		if t.st.fields[card.QuizFieldID].ContestID != contestID {
			continue
		}
		c := t.st.contestants[sp.ContestantID]
		out = append(out, domain.ContestSubmission{
			SubmissionID:   s.ID,
			ContestantID:   c.ID,
			ContestantName: c.Name,
			ProblemCardID:  card.ID,
			CategoryName:   card.CategoryName,
			CategoryPrice:  card.CategoryPrice,
			Verdict:        s.Verdict,
			CreatedAt:      s.CreatedAt,
		})
	}
	return out, nil
}

func (t *memTx) CreateContestantLog(_ context.Context, l *domain.ContestantLog) error {
	l.ID = t.st.nextID()
	t.st.logs = append(t.st.logs, *l)
	return nil
}

func (t *memTx) ContestantLogs(_ context.Context, contestantID int64, offset, limit int) ([]domain.ContestantLog, int, error) {
	var own []domain.ContestantLog
	for i := len(t.st.logs) - 1; i >= 0; i-- {
		if t.st.logs[i].ContestantID == contestantID {
			own = append(own, t.st.logs[i])
		}
	}
	total := len(own)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return own[offset:end], total, nil
}
