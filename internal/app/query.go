package app

import (
	"context"
	"fmt"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
)

// GetContestantSelectedProblems lists the contestant's ACTIVE purchases with the
// remaining attempts and the reward a correct answer would bring right now.
func (s *ArenaService) GetContestantSelectedProblems(ctx context.Context, contestantID int64) (domain.SelectedProblemList, error) {
	var out domain.SelectedProblemList
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		contestant, err := tx.Contestant(ctx, contestantID)
		if err != nil {
			return fmt.Errorf("contestant %d: %w", contestantID, err)
		}
		contest, err := tx.Contest(ctx, contestant.ContestID)
		if err != nil {
			return fmt.Errorf("contest %d: %w", contestant.ContestID, err)
		}
		active, err := tx.ListSelectedProblems(ctx, contestant.ID, domain.StatusActive)
		if err != nil {
			return fmt.Errorf("list active problems: %w", err)
		}

		ids := make([]int64, 0, len(active))
		for _, sp := range active {
			ids = append(ids, sp.ID)
		}
		wrong, err := tx.WrongSubmissionCounts(ctx, ids)
		if err != nil {
			return fmt.Errorf("count wrong submissions: %w", err)
		}

		out.RuleType = contest.RuleType
		if contest.RuleType == domain.RuleDefault {
			out.MaxAttempts = domain.MaxAttempts
		}
		out.Items = make([]domain.SelectedProblemView, 0, len(active))
		for _, sp := range active {
			card, err := tx.ProblemCard(ctx, sp.ProblemCardID)
			if err != nil {
				return fmt.Errorf("problem card %d: %w", sp.ProblemCardID, err)
			}
			view := domain.SelectedProblemView{
				SelectedProblemID: sp.ID,
				ProblemCardID:     card.ID,
				CategoryName:      card.CategoryName,
				CategoryPrice:     card.CategoryPrice,
				CreatedAt:         sp.CreatedAt,
			}
			if card.ProblemID != nil {
				problem, err := tx.Problem(ctx, *card.ProblemID)
				if err != nil {
					return fmt.Errorf("problem %d: %w", *card.ProblemID, err)
				}
				view.ProblemStatement = problem.Statement
			}
			// Attempt limits and rewards only exist for the DEFAULT rule.
			if contest.RuleType == domain.RuleDefault {
				view.AttemptsRemaining = domain.RemainingAttempts(wrong[sp.ID])
				view.PossibleReward, err = domain.MaxReward(wrong[sp.ID], card.CategoryPrice, contest.RuleType)
				if err != nil {
					return err
				}
			}
			out.Items = append(out.Items, view)
		}
		return nil
	})
	if err != nil {
		return domain.SelectedProblemList{}, err
	}
	return out, nil
}

// GetPossibleReward previews the reward of a correct answer. It never writes.
func (s *ArenaService) GetPossibleReward(ctx context.Context, selectedProblemID int64) (int, error) {
	var reward int
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		agg, err := loadSelectedProblem(ctx, tx, selectedProblemID, false)
		if err != nil {
			return err
		}
		reward, err = possibleReward(ctx, tx, agg)
		return err
	})
	return reward, err
}

// PossibleRewardFor is GetPossibleReward restricted to the owner of the selected problem.
func (s *ArenaService) PossibleRewardFor(ctx context.Context, contestantID, selectedProblemID int64) (int, error) {
	var reward int
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		contestant, err := tx.Contestant(ctx, contestantID)
		if err != nil {
			return fmt.Errorf("contestant %d: %w", contestantID, err)
		}
		agg, err := loadSelectedProblem(ctx, tx, selectedProblemID, false)
		if err != nil {
			return err
		}
		if err := s.access.CanActOnSelectedProblem(ctx, tx, contestant, agg.SelectedProblem); err != nil {
			return err
		}
		reward, err = possibleReward(ctx, tx, agg)
		return err
	})
	return reward, err
}

// possibleReward uses the same rule as settlement, so the preview cannot drift
// from what CheckSubmission credits.
func possibleReward(ctx context.Context, tx Tx, agg selectedProblemAggregate) (int, error) {
	if agg.SelectedProblem.Status.Terminal() {
		if _, err := domain.ParseSelectedProblemStatus(string(agg.SelectedProblem.Status)); err != nil {
			return 0, err
		}
		return 0, nil
	}
	wrongBefore, err := wrongCount(ctx, tx, agg.SelectedProblem.ID)
	if err != nil {
		return 0, err
	}
	return domain.MaxReward(wrongBefore, agg.Card.CategoryPrice, agg.Contest.RuleType)
}
