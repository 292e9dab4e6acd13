package postgres

import (
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"github.com/uptrace/bun"
)

type contestModel struct {
	bun.BaseModel `bun:"table:contest"`

	ID                  int64     `bun:"id,pk,autoincrement"`
	OrganizerID         int64     `bun:"organizer_id"`
	Name                string    `bun:"name"`
	StartedAt           time.Time `bun:"started_at"`
	ClosedAt            time.Time `bun:"closed_at"`
	StartPoints         int       `bun:"start_points"`
	SlotsForProblems    int       `bun:"number_of_slots_for_problems"`
	RuleType            string    `bun:"rule_type"`
	AllowNegativePoints bool      `bun:"allow_negative_points"`
	CreatedAt           time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (m contestModel) toDomain() (domain.Contest, error) {
	rule, err := domain.ParseRuleType(m.RuleType)
	if err != nil {
		return domain.Contest{}, err
	}
	return domain.Contest{
		ID:                  m.ID,
		OrganizerID:         m.OrganizerID,
		Name:                m.Name,
		StartedAt:           m.StartedAt,
		ClosedAt:            m.ClosedAt,
		StartPoints:         m.StartPoints,
		SlotsForProblems:    m.SlotsForProblems,
		RuleType:            rule,
		AllowNegativePoints: m.AllowNegativePoints,
		CreatedAt:           m.CreatedAt,
	}, nil
}

type quizFieldModel struct {
	bun.BaseModel `bun:"table:quiz_field"`

	ID        int64 `bun:"id,pk,autoincrement"`
	ContestID int64 `bun:"contest_id"`
	Rows      int   `bun:"number_of_rows"`
	Columns   int   `bun:"number_of_columns"`
}

func (m quizFieldModel) toDomain() domain.QuizField {
	return domain.QuizField{ID: m.ID, ContestID: m.ContestID, Rows: m.Rows, Columns: m.Columns}
}

type problemModel struct {
	bun.BaseModel `bun:"table:problem"`

	ID        int64  `bun:"id,pk,autoincrement"`
	Statement string `bun:"statement"`
	Answer    string `bun:"answer"`
}

type problemCardModel struct {
	bun.BaseModel `bun:"table:problem_card"`

	ID            int64  `bun:"id,pk,autoincrement"`
	QuizFieldID   int64  `bun:"quiz_field_id"`
	Row           int    `bun:"row_index"`
	Column        int    `bun:"column_index"`
	CategoryName  string `bun:"category_name"`
	CategoryPrice int    `bun:"category_price"`
	ProblemID     *int64 `bun:"problem_id"`
}

func (m problemCardModel) toDomain() domain.ProblemCard {
	return domain.ProblemCard{
		ID:            m.ID,
		QuizFieldID:   m.QuizFieldID,
		Row:           m.Row,
		Column:        m.Column,
		CategoryName:  m.CategoryName,
		CategoryPrice: m.CategoryPrice,
		ProblemID:     m.ProblemID,
	}
}

type contestantModel struct {
	bun.BaseModel `bun:"table:contestant"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id"`
	ContestID int64     `bun:"contest_id"`
	Name      string    `bun:"name"`
	Points    int       `bun:"points"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (m contestantModel) toDomain() domain.Contestant {
	return domain.Contestant{
		ID:        m.ID,
		UserID:    m.UserID,
		ContestID: m.ContestID,
		Name:      m.Name,
		Points:    m.Points,
		CreatedAt: m.CreatedAt,
	}
}

type selectedProblemModel struct {
	bun.BaseModel `bun:"table:selected_problem"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ProblemCardID int64     `bun:"problem_card_id"`
	ContestantID  int64     `bun:"contestant_id"`
	Status        string    `bun:"status"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (m selectedProblemModel) toDomain() domain.SelectedProblem {
	// Status is kept verbatim: callers parse it where an unknown value matters.
	return domain.SelectedProblem{
		ID:            m.ID,
		ProblemCardID: m.ProblemCardID,
		ContestantID:  m.ContestantID,
		Status:        domain.SelectedProblemStatus(m.Status),
		CreatedAt:     m.CreatedAt,
	}
}

type submissionModel struct {
	bun.BaseModel `bun:"table:submission"`

	ID                int64     `bun:"id,pk,autoincrement"`
	SelectedProblemID int64     `bun:"selected_problem_id"`
	Answer            string    `bun:"answer"`
	Verdict           string    `bun:"verdict"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type contestantLogModel struct {
	bun.BaseModel `bun:"table:contestant_log"`

	ID           int64     `bun:"id,pk,autoincrement"`
	ContestantID int64     `bun:"contestant_id"`
	Level        string    `bun:"level"`
	Content      string    `bun:"content"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (m contestantLogModel) toDomain() (domain.ContestantLog, error) {
	level, err := domain.ParseLogLevel(m.Level)
	if err != nil {
		return domain.ContestantLog{}, err
	}
	return domain.ContestantLog{
		ID:           m.ID,
		ContestantID: m.ContestantID,
		Level:        level,
		Content:      m.Content,
		CreatedAt:    m.CreatedAt,
	}, nil
}

// contestSubmissionRow is a submission joined with its contestant and card.
type contestSubmissionRow struct {
	SubmissionID   int64     `bun:"submission_id"`
	ContestantID   int64     `bun:"contestant_id"`
	ContestantName string    `bun:"contestant_name"`
	ProblemCardID  int64     `bun:"problem_card_id"`
	CategoryName   string    `bun:"category_name"`
	CategoryPrice  int       `bun:"category_price"`
	Verdict        string    `bun:"verdict"`
	CreatedAt      time.Time `bun:"created_at"`
}

func (r contestSubmissionRow) toDomain() (domain.ContestSubmission, error) {
	verdict, err := domain.ParseVerdict(r.Verdict)
	if err != nil {
		return domain.ContestSubmission{}, err
	}
	return domain.ContestSubmission{
		SubmissionID:   r.SubmissionID,
		ContestantID:   r.ContestantID,
		ContestantName: r.ContestantName,
		ProblemCardID:  r.ProblemCardID,
		CategoryName:   r.CategoryName,
		CategoryPrice:  r.CategoryPrice,
		Verdict:        verdict,
		CreatedAt:      r.CreatedAt,
	}, nil
}
