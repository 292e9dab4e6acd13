package app

import (
	"context"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
)

// Clock returns the current time; contests are open within [started_at, closed_at).
type Clock func() time.Time

// Store runs fn inside a single database transaction. A non-nil error from fn
// rolls back every write made through tx.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the persistence gateway seen by the use cases. Lookups return
// domain.ErrNotFound when the row is missing.
type Tx interface {
	Contest(ctx context.Context, id int64) (domain.Contest, error)
	QuizField(ctx context.Context, id int64) (domain.QuizField, error)
	QuizFieldByContest(ctx context.Context, contestID int64) (domain.QuizField, error)
	ProblemCard(ctx context.Context, id int64) (domain.ProblemCard, error)
	// ProblemCardsInField lists the cards of a field by row, then column.
	ProblemCardsInField(ctx context.Context, quizFieldID int64) ([]domain.ProblemCard, error)
	Problem(ctx context.Context, id int64) (domain.Problem, error)

	Contestant(ctx context.Context, id int64) (domain.Contestant, error)
	ContestantByUserID(ctx context.Context, userID int64) (domain.Contestant, error)
	ContestantsInContest(ctx context.Context, contestID int64) ([]domain.Contestant, error)
	// CreateContestant fails with domain.ErrAlreadyExists when the user already plays.
	CreateContestant(ctx context.Context, c *domain.Contestant) error
	// LockContestant reads the contestant row and holds it until the transaction ends.
	LockContestant(ctx context.Context, id int64) (domain.Contestant, error)
	SetContestantPoints(ctx context.Context, id int64, points int) error

	SelectedProblem(ctx context.Context, id int64) (domain.SelectedProblem, error)
	// LockSelectedProblem reads the row and holds it until the transaction ends.
	LockSelectedProblem(ctx context.Context, id int64) (domain.SelectedProblem, error)
	FindSelectedProblem(ctx context.Context, contestantID, problemCardID int64) (domain.SelectedProblem, error)
	ListSelectedProblems(ctx context.Context, contestantID int64, statuses ...domain.SelectedProblemStatus) ([]domain.SelectedProblem, error)
	CreateSelectedProblem(ctx context.Context, sp *domain.SelectedProblem) error
	UpdateSelectedProblemStatus(ctx context.Context, id int64, status domain.SelectedProblemStatus) error

	// WrongSubmissionCounts counts WRONG submissions per selected problem id.
	WrongSubmissionCounts(ctx context.Context, selectedProblemIDs []int64) (map[int64]int, error)
	CreateSubmission(ctx context.Context, s *domain.Submission) error
	// ContestSubmissions returns the newest submissions of a contest. A non-zero
	// contestantID keeps only that contestant's rows.
	ContestSubmissions(ctx context.Context, contestID, contestantID int64, limit int) ([]domain.ContestSubmission, error)

	CreateContestantLog(ctx context.Context, l *domain.ContestantLog) error
	ContestantLogs(ctx context.Context, contestantID int64, offset, limit int) ([]domain.ContestantLog, int, error)
}

// AccessChecker answers whether a contestant may act on a resource.
type AccessChecker interface {
	CanActOnCard(ctx context.Context, tx Tx, contestant domain.Contestant, card domain.ProblemCard) error
	CanActOnSelectedProblem(ctx context.Context, tx Tx, contestant domain.Contestant, sp domain.SelectedProblem) error
	CanManageContest(ctx context.Context, tx Tx, userID int64, contest domain.Contest) error
	CanViewContest(ctx context.Context, tx Tx, userID int64, contest domain.Contest) error
}

// Publisher delivers events to other instances after a commit.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// Subscriber streams published events. The returned cancel func must be called.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan domain.Event, func(), error)
}

// StandingsRepository serves scoreboards through a cache. The bool reports a cache hit.
type StandingsRepository interface {
	GetStandings(ctx context.Context, contestID int64) (domain.Standings, bool, error)
	Invalidate(ctx context.Context, contestID int64) error
}

// Metrics records business outcomes.
type Metrics interface {
	ObservePurchase(result string)
	ObserveVerdict(verdict domain.Verdict, reward int)
}

type nopMetrics struct{}

func (nopMetrics) ObservePurchase(string) {}
func (nopMetrics) ObserveVerdict(domain.Verdict, int) {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.Event) error { return nil }
