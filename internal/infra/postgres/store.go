package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/app"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const uniqueViolation = "23505"

// Open connects bun to Postgres through pgdriver.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Store implements app.Store on top of bun. Every WithinTx call is one
// database transaction; row locks taken through Lock* are held until it ends.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

// mapErr translates driver errors into domain sentinels.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
		return fmt.Errorf("%s: %w", what, domain.ErrAlreadyExists)
	}
	return fmt.Errorf("%s: %w", what, err)
}

type pgTx struct {
	tx bun.Tx
}

func (t *pgTx) Contest(ctx context.Context, id int64) (domain.Contest, error) {
	var m contestModel
	if err := t.tx.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Contest{}, mapErr(err, fmt.Sprintf("contest %d", id))
	}
	return m.toDomain()
}

func (t *pgTx) QuizField(ctx context.Context, id int64) (domain.QuizField, error) {
	var m quizFieldModel
	if err := t.tx.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.QuizField{}, mapErr(err, fmt.Sprintf("quiz field %d", id))
	}
	return m.toDomain(), nil
}

func (t *pgTx) QuizFieldByContest(ctx context.Context, contestID int64) (domain.QuizField, error) {
	var m quizFieldModel
	if err := t.tx.NewSelect().Model(&m).Where("contest_id = ?", contestID).Scan(ctx); err != nil {
		return domain.QuizField{}, mapErr(err, fmt.Sprintf("quiz field of contest %d", contestID))
	}
	return m.toDomain(), nil
}

func (t *pgTx) ProblemCardsInField(ctx context.Context, quizFieldID int64) ([]domain.ProblemCard, error) {
	var rows []problemCardModel
	err := t.tx.NewSelect().Model(&rows).
		Where("quiz_field_id = ?", quizFieldID).
		Order("row_index", "column_index").
		Scan(ctx)
	if err != nil {
		return nil, mapErr(err, fmt.Sprintf("cards of quiz field %d", quizFieldID))
	}
	out := make([]domain.ProblemCard, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (t *pgTx) ProblemCard(ctx context.Context, id int64) (domain.ProblemCard, error) {
	var m problemCardModel
	if err := t.tx.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.ProblemCard{}, mapErr(err, fmt.Sprintf("problem card %d", id))
	}
	return m.toDomain(), nil
}

func (t *pgTx) Problem(ctx context.Context, id int64) (domain.Problem, error) {
	var m problemModel
	if err := t.tx.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Problem{}, mapErr(err, fmt.Sprintf("problem %d", id))
	}
	return domain.Problem{ID: m.ID, Statement: m.Statement, Answer: m.Answer}, nil
}

func (t *pgTx) Contestant(ctx context.Context, id int64) (domain.Contestant, error) {
	var m contestantModel
	if err := t.tx.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Contestant{}, mapErr(err, fmt.Sprintf("contestant %d", id))
	}
	return m.toDomain(), nil
}

func (t *pgTx) ContestantByUserID(ctx context.Context, userID int64) (domain.Contestant, error) {
	var m contestantModel
	if err := t.tx.NewSelect().Model(&m).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return domain.Contestant{}, mapErr(err, fmt.Sprintf("contestant of user %d", userID))
	}
	return m.toDomain(), nil
}

func (t *pgTx) ContestantsInContest(ctx context.Context, contestID int64) ([]domain.Contestant, error) {
	var rows []contestantModel
	if err := t.tx.NewSelect().Model(&rows).Where("contest_id = ?", contestID).Order("id").Scan(ctx); err != nil {
		return nil, mapErr(err, fmt.Sprintf("contestants of contest %d", contestID))
	}
	out := make([]domain.Contestant, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (t *pgTx) CreateContestant(ctx context.Context, c *domain.Contestant) error {
	m := contestantModel{
		UserID:    c.UserID,
		ContestID: c.ContestID,
		Name:      c.Name,
		Points:    c.Points,
		CreatedAt: c.CreatedAt,
	}
	if _, err := t.tx.NewInsert().Model(&m).Returning("id, created_at").Exec(ctx); err != nil {
		return mapErr(err, fmt.Sprintf("contestant of user %d", c.UserID))
	}
	c.ID = m.ID
	c.CreatedAt = m.CreatedAt
	return nil
}

func (t *pgTx) LockContestant(ctx context.Context, id int64) (domain.Contestant, error) {
	var m contestantModel
	if err := t.tx.NewSelect().Model(&m).Where("id = ?", id).For("UPDATE").Scan(ctx); err != nil {
		return domain.Contestant{}, mapErr(err, fmt.Sprintf("lock contestant %d", id))
	}
	return m.toDomain(), nil
}

func (t *pgTx) SetContestantPoints(ctx context.Context, id int64, points int) error {
	res, err := t.tx.NewUpdate().
		Model((*contestantModel)(nil)).
		Set("points = ?", points).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapErr(err, fmt.Sprintf("update contestant %d", id))
	}
	return requireRow(res, fmt.Sprintf("contestant %d", id))
}

func (t *pgTx) SelectedProblem(ctx context.Context, id int64) (domain.SelectedProblem, error) {
	var m selectedProblemModel
	if err := t.tx.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.SelectedProblem{}, mapErr(err, fmt.Sprintf("selected problem %d", id))
	}
	return m.toDomain(), nil
}

func (t *pgTx) LockSelectedProblem(ctx context.Context, id int64) (domain.SelectedProblem, error) {
	var m selectedProblemModel
	if err := t.tx.NewSelect().Model(&m).Where("id = ?", id).For("UPDATE").Scan(ctx); err != nil {
		return domain.SelectedProblem{}, mapErr(err, fmt.Sprintf("lock selected problem %d", id))
	}
	return m.toDomain(), nil
}

func (t *pgTx) FindSelectedProblem(ctx context.Context, contestantID, problemCardID int64) (domain.SelectedProblem, error) {
	var m selectedProblemModel
	err := t.tx.NewSelect().Model(&m).
		Where("contestant_id = ?", contestantID).
		Where("problem_card_id = ?", problemCardID).
		Scan(ctx)
	if err != nil {
		return domain.SelectedProblem{}, mapErr(err, fmt.Sprintf("selected problem for card %d", problemCardID))
	}
	return m.toDomain(), nil
}

func (t *pgTx) ListSelectedProblems(ctx context.Context, contestantID int64, statuses ...domain.SelectedProblemStatus) ([]domain.SelectedProblem, error) {
	var rows []selectedProblemModel
	q := t.tx.NewSelect().Model(&rows).Where("contestant_id = ?", contestantID).Order("id")
	if len(statuses) > 0 {
		names := make([]string, 0, len(statuses))
		for _, s := range statuses {
			names = append(names, string(s))
		}
		q = q.Where("status IN (?)", bun.In(names))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, mapErr(err, "list selected problems")
	}
	out := make([]domain.SelectedProblem, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, nil
}

func (t *pgTx) CreateSelectedProblem(ctx context.Context, sp *domain.SelectedProblem) error {
	m := selectedProblemModel{
		ProblemCardID: sp.ProblemCardID,
		ContestantID:  sp.ContestantID,
		Status:        string(sp.Status),
		CreatedAt:     sp.CreatedAt,
	}
	if _, err := t.tx.NewInsert().Model(&m).Returning("id, created_at").Exec(ctx); err != nil {
		return mapErr(err, fmt.Sprintf("selected problem for card %d", sp.ProblemCardID))
	}
	sp.ID = m.ID
	sp.CreatedAt = m.CreatedAt
	return nil
}

func (t *pgTx) UpdateSelectedProblemStatus(ctx context.Context, id int64, status domain.SelectedProblemStatus) error {
	res, err := t.tx.NewUpdate().
		Model((*selectedProblemModel)(nil)).
		Set("status = ?", string(status)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapErr(err, fmt.Sprintf("update selected problem %d", id))
	}
	return requireRow(res, fmt.Sprintf("selected problem %d", id))
}

func (t *pgTx) WrongSubmissionCounts(ctx context.Context, ids []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		SelectedProblemID int64 `bun:"selected_problem_id"`
		N                 int   `bun:"n"`
	}
	err := t.tx.NewSelect().
		Model((*submissionModel)(nil)).
		ColumnExpr("selected_problem_id").
		ColumnExpr("count(*) AS n").
		Where("selected_problem_id IN (?)", bun.In(ids)).
		Where("verdict = ?", string(domain.VerdictWrong)).
		Group("selected_problem_id").
		Scan(ctx, &rows)
	if err != nil {
		return nil, mapErr(err, "count wrong submissions")
	}
	for _, r := range rows {
		out[r.SelectedProblemID] = r.N
	}
	return out, nil
}

func (t *pgTx) CreateSubmission(ctx context.Context, s *domain.Submission) error {
	m := submissionModel{
		SelectedProblemID: s.SelectedProblemID,
		Answer:            s.Answer,
		Verdict:           string(s.Verdict),
		CreatedAt:         s.CreatedAt,
	}
	if _, err := t.tx.NewInsert().Model(&m).Returning("id, created_at").Exec(ctx); err != nil {
		return mapErr(err, "create submission")
	}
	s.ID = m.ID
	s.CreatedAt = m.CreatedAt
	return nil
}

func (t *pgTx) ContestSubmissions(ctx context.Context, contestID, contestantID int64, limit int) ([]domain.ContestSubmission, error) {
	var rows []contestSubmissionRow
	q := t.tx.NewSelect().
		TableExpr("submission AS s").
		ColumnExpr("s.id AS submission_id, s.verdict, s.created_at").
		ColumnExpr("c.id AS contestant_id, c.name AS contestant_name").
		ColumnExpr("pc.id AS problem_card_id, pc.category_name, pc.category_price").
		Join("JOIN selected_problem AS sp ON sp.id = s.selected_problem_id").
		Join("JOIN contestant AS c ON c.id = sp.contestant_id").
		Join("JOIN problem_card AS pc ON pc.id = sp.problem_card_id").
		Join("JOIN quiz_field AS qf ON qf.id = pc.quiz_field_id").
		Where("qf.contest_id = ?", contestID).
		OrderExpr("s.created_at DESC, s.id DESC").
		Limit(limit)
	if contestantID != 0 {
		q = q.Where("c.id = ?", contestantID)
	}
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, mapErr(err, fmt.Sprintf("submissions of contest %d", contestID))
	}
	out := make([]domain.ContestSubmission, 0, len(rows))
	for _, r := range rows {
		s, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (t *pgTx) CreateContestantLog(ctx context.Context, l *domain.ContestantLog) error {
	m := contestantLogModel{
		ContestantID: l.ContestantID,
		Level:        string(l.Level),
		Content:      l.Content,
		CreatedAt:    l.CreatedAt,
	}
	if _, err := t.tx.NewInsert().Model(&m).Returning("id, created_at").Exec(ctx); err != nil {
		return mapErr(err, "create contestant log")
	}
	l.ID = m.ID
	l.CreatedAt = m.CreatedAt
	return nil
}

func (t *pgTx) ContestantLogs(ctx context.Context, contestantID int64, offset, limit int) ([]domain.ContestantLog, int, error) {
	var rows []contestantLogModel
	total, err := t.tx.NewSelect().Model(&rows).
		Where("contestant_id = ?", contestantID).
		OrderExpr("id DESC").
		Offset(offset).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, mapErr(err, "contestant logs")
	}
	out := make([]domain.ContestantLog, 0, len(rows))
	for _, m := range rows {
		l, err := m.toDomain()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, nil
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}
