package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
)

// ContestAccess grants access when the resource belongs to the contestant's contest.
// A card from another contest is reported as missing so ids do not leak across contests.
type ContestAccess struct{}

func (ContestAccess) CanActOnCard(ctx context.Context, tx Tx, contestant domain.Contestant, card domain.ProblemCard) error {
	field, err := tx.QuizField(ctx, card.QuizFieldID)
	if err != nil {
		return fmt.Errorf("quiz field of card %d: %w", card.ID, err)
	}
	if field.ContestID != contestant.ContestID {
		return fmt.Errorf("problem card %d: %w", card.ID, domain.ErrNotFound)
	}
	return nil
}

func (ContestAccess) CanActOnSelectedProblem(_ context.Context, _ Tx, contestant domain.Contestant, sp domain.SelectedProblem) error {
	if sp.ContestantID != contestant.ID {
		return fmt.Errorf("selected problem %d belongs to another contestant: %w", sp.ID, domain.ErrPermissionDenied)
	}
	return nil
}

// CanManageContest lets only the organizer change who takes part in a contest.
func (ContestAccess) CanManageContest(_ context.Context, _ Tx, userID int64, contest domain.Contest) error {
	if contest.OrganizerID != userID {
		return fmt.Errorf("user %d does not manage contest %d: %w", userID, contest.ID, domain.ErrPermissionDenied)
	}
	return nil
}

// CanViewContest admits the organizer and the contestants of the contest.
func (ContestAccess) CanViewContest(ctx context.Context, tx Tx, userID int64, contest domain.Contest) error {
	if contest.OrganizerID == userID {
		return nil
	}
	c, err := tx.ContestantByUserID(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("user %d does not take part in contest %d: %w", userID, contest.ID, domain.ErrPermissionDenied)
	case err != nil:
		return err
	case c.ContestID != contest.ID:
		return fmt.Errorf("user %d does not take part in contest %d: %w", userID, contest.ID, domain.ErrPermissionDenied)
	}
	return nil
}
