package app

import (
	"context"
	"fmt"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"go.uber.org/zap"
)

// SubmissionResult describes a graded answer.
type SubmissionResult struct {
	SubmissionID int64                        `json:"submissionId"`
	Verdict      domain.Verdict               `json:"verdict"`
	Status       domain.SelectedProblemStatus `json:"status"`
	Reward       int                          `json:"reward"`
	Balance      int                          `json:"balance"`
}

// CheckSubmission grades an answer for one of the contestant's active selected
// problems. The verdict, the reward credit, the status change and the
// submission row are committed in a single transaction.
func (s *ArenaService) CheckSubmission(ctx context.Context, contestantID, selectedProblemID int64, answer string) (SubmissionResult, error) {
	var (
		res       SubmissionResult
		contestID int64
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		// Lock order is contestant first, then selected problem; buys lock only
		// the contestant, so the two operations never wait on each other in a cycle.
		contestant, err := tx.LockContestant(ctx, contestantID)
		if err != nil {
			return fmt.Errorf("contestant %d: %w", contestantID, err)
		}
		agg, err := loadSelectedProblem(ctx, tx, selectedProblemID, true)
		if err != nil {
			return err
		}
		sp := agg.SelectedProblem
		contestID = agg.Contest.ID
		if err := s.access.CanActOnSelectedProblem(ctx, tx, contestant, sp); err != nil {
			return err
		}
		if sp.Status.Terminal() {
			if _, err := domain.ParseSelectedProblemStatus(string(sp.Status)); err != nil {
				return err
			}
			return fmt.Errorf("selected problem %d is %s: %w", sp.ID, sp.Status, domain.ErrPermissionDenied)
		}
		if !agg.Contest.IsOpen(s.now()) {
			return domain.ErrContestClosed
		}
		if err := domain.ValidateAnswer(answer); err != nil {
			return err
		}
		if agg.Card.ProblemID == nil {
			return fmt.Errorf("problem card %d has no problem: %w", agg.Card.ID, domain.ErrNotFound)
		}

		wrongBefore, err := wrongCount(ctx, tx, sp.ID)
		if err != nil {
			return err
		}
		correct := domain.AnswersMatch(answer, agg.Problem.Answer)
		tr, err := domain.NextTransition(sp.Status, wrongBefore, agg.Card.CategoryPrice, agg.Contest.RuleType, correct)
		if err != nil {
			return err
		}

		res.Balance = contestant.Points
		if tr.Reward != 0 {
			res.Balance += tr.Reward
			if err := tx.SetContestantPoints(ctx, contestant.ID, res.Balance); err != nil {
				return fmt.Errorf("credit contestant: %w", err)
			}
		}
		if tr.Status != sp.Status {
			if err := tx.UpdateSelectedProblemStatus(ctx, sp.ID, tr.Status); err != nil {
				return fmt.Errorf("update selected problem status: %w", err)
			}
		}
		submission := domain.Submission{
			SelectedProblemID: sp.ID,
			Answer:            answer,
			Verdict:           tr.Verdict,
			CreatedAt:         s.now(),
		}
		if err := tx.CreateSubmission(ctx, &submission); err != nil {
			return fmt.Errorf("create submission: %w", err)
		}
		res.SubmissionID = submission.ID
		res.Verdict = tr.Verdict
		res.Status = tr.Status
		res.Reward = tr.Reward

		return s.logVerdict(ctx, tx, contestant.ID, agg.Card, tr)
	})
	if err != nil {
		s.logFailure("check submission", err, zap.Int64("contestant_id", contestantID), zap.Int64("selected_problem_id", selectedProblemID))
		return SubmissionResult{}, err
	}

	s.metrics.ObserveVerdict(res.Verdict, res.Reward)
	s.log.Info("submission judged",
		zap.Int64("contestant_id", contestantID),
		zap.Int64("selected_problem_id", selectedProblemID),
		zap.Int64("submission_id", res.SubmissionID),
		zap.String("verdict", string(res.Verdict)),
		zap.String("status", string(res.Status)),
		zap.Int("reward", res.Reward))

	events := []domain.Event{{Kind: domain.EventSubmissionJudged, ContestID: contestID, ContestantID: contestantID}}
	if res.Reward != 0 {
		events = append(events, domain.Event{Kind: domain.EventBalanceChanged, ContestID: contestID, ContestantID: contestantID})
	}
	s.publish(ctx, events...)
	return res, nil
}

func (s *ArenaService) logVerdict(ctx context.Context, tx Tx, contestantID int64, card domain.ProblemCard, tr domain.Transition) error {
	switch tr.Status {
	case domain.StatusSolved:
		if err := s.writeLog(ctx, tx, contestantID, domain.LogInfo, "Answer accepted."); err != nil {
			return err
		}
		return s.writeLog(ctx, tx, contestantID, domain.LogInfo, "%d points were credited to your balance.", tr.Reward)
	case domain.StatusFailed:
		if err := s.writeLog(ctx, tx, contestantID, domain.LogInfo, "Wrong answer."); err != nil {
			return err
		}
		return s.writeLog(ctx, tx, contestantID, domain.LogAttention,
			"Card <%s for %d> burned: no attempts left.", card.CategoryName, card.CategoryPrice)
	default:
		return s.writeLog(ctx, tx, contestantID, domain.LogInfo, "Wrong answer.")
	}
}
