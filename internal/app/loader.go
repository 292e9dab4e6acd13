package app

import (
	"context"
	"fmt"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
)

// cardAggregate is a problem card with the contest it is sold in.
type cardAggregate struct {
	Card    domain.ProblemCard
	Field   domain.QuizField
	Contest domain.Contest
}

// selectedProblemAggregate is everything needed to grade an answer.
type selectedProblemAggregate struct {
	SelectedProblem domain.SelectedProblem
	cardAggregate
	Problem domain.Problem
}

func loadCard(ctx context.Context, tx Tx, cardID int64) (cardAggregate, error) {
	// Stores name the missing entity in their errors, so lookups are not wrapped again.
	card, err := tx.ProblemCard(ctx, cardID)
	if err != nil {
		return cardAggregate{}, err
	}
	field, err := tx.QuizField(ctx, card.QuizFieldID)
	if err != nil {
		return cardAggregate{}, err
	}
	contest, err := tx.Contest(ctx, field.ContestID)
	if err != nil {
		return cardAggregate{}, err
	}
	return cardAggregate{Card: card, Field: field, Contest: contest}, nil
}

// loadSelectedProblem resolves a selected problem by id. With lock set the
// selected problem row stays locked until tx ends.
func loadSelectedProblem(ctx context.Context, tx Tx, id int64, lock bool) (selectedProblemAggregate, error) {
	get := tx.SelectedProblem
	if lock {
		get = tx.LockSelectedProblem
	}
	sp, err := get(ctx, id)
	if err != nil {
		return selectedProblemAggregate{}, err
	}
	card, err := loadCard(ctx, tx, sp.ProblemCardID)
	if err != nil {
		return selectedProblemAggregate{}, err
	}
	agg := selectedProblemAggregate{SelectedProblem: sp, cardAggregate: card}
	if card.Card.ProblemID != nil {
		agg.Problem, err = tx.Problem(ctx, *card.Card.ProblemID)
		if err != nil {
			return selectedProblemAggregate{}, err
		}
	}
	return agg, nil
}

func wrongCount(ctx context.Context, tx Tx, selectedProblemID int64) (int, error) {
	counts, err := tx.WrongSubmissionCounts(ctx, []int64{selectedProblemID})
	if err != nil {
		return 0, fmt.Errorf("count wrong submissions: %w", err)
	}
	return counts[selectedProblemID], nil
}
