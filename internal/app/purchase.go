package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"go.uber.org/zap"
)

// BuyProblem debits the card price from the contestant and opens a new ACTIVE
// selected problem. Both effects commit together or not at all.
func (s *ArenaService) BuyProblem(ctx context.Context, contestantID, problemCardID int64) (int64, error) {
	var (
		sp      domain.SelectedProblem
		card    cardAggregate
		balance int
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		card, err = loadCard(ctx, tx, problemCardID)
		if err != nil {
			return err
		}
		// The contestant row lock serializes the balance and slot checks below
		// against every other purchase or submission of the same contestant.
		contestant, err := tx.LockContestant(ctx, contestantID)
		if err != nil {
			return fmt.Errorf("contestant %d: %w", contestantID, err)
		}
		if err := s.access.CanActOnCard(ctx, tx, contestant, card.Card); err != nil {
			return err
		}
		if card.Card.ProblemID == nil {
			return fmt.Errorf("problem card %d has no problem: %w", problemCardID, domain.ErrNotFound)
		}
		if !card.Contest.IsOpen(s.now()) {
			return domain.ErrContestClosed
		}

		_, err = tx.FindSelectedProblem(ctx, contestant.ID, problemCardID)
		switch {
		case err == nil:
			return fmt.Errorf("selected problem for card %d: %w", problemCardID, domain.ErrAlreadyExists)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		active, err := tx.ListSelectedProblems(ctx, contestant.ID, domain.StatusActive)
		if err != nil {
			return fmt.Errorf("list active problems: %w", err)
		}
		if len(active) >= card.Contest.SlotsForProblems {
			return fmt.Errorf("%d of %d slots used: %w", len(active), card.Contest.SlotsForProblems, domain.ErrLimitOverflow)
		}

		price := card.Card.CategoryPrice
		if contestant.Points < price && !card.Contest.AllowNegativePoints {
			return fmt.Errorf("balance %d, price %d: %w", contestant.Points, price, domain.ErrInsufficientPoints)
		}

		balance = contestant.Points - price
		if err := tx.SetContestantPoints(ctx, contestant.ID, balance); err != nil {
			return fmt.Errorf("debit contestant: %w", err)
		}
		sp = domain.SelectedProblem{
			ProblemCardID: problemCardID,
			ContestantID:  contestant.ID,
			Status:        domain.StatusActive,
			CreatedAt:     s.now(),
		}
		if err := tx.CreateSelectedProblem(ctx, &sp); err != nil {
			return fmt.Errorf("create selected problem: %w", err)
		}

		if err := s.writeLog(ctx, tx, contestant.ID, domain.LogInfo, "%d points were debited from your balance.", price); err != nil {
			return err
		}
		return s.writeLog(ctx, tx, contestant.ID, domain.LogInfo,
			"Card <%s for %d> was added to your active cards.", card.Card.CategoryName, price)
	})
	if err != nil {
		s.metrics.ObservePurchase(purchaseResult(err))
		s.logFailure("buy problem", err, zap.Int64("contestant_id", contestantID), zap.Int64("problem_card_id", problemCardID))
		return 0, err
	}

	s.metrics.ObservePurchase("ok")
	s.log.Info("problem bought",
		zap.Int64("contestant_id", contestantID),
		zap.Int64("problem_card_id", problemCardID),
		zap.Int64("selected_problem_id", sp.ID),
		zap.Int("balance", balance))

	events := []domain.Event{{Kind: domain.EventProblemBought, ContestID: card.Contest.ID, ContestantID: contestantID}}
	if card.Card.CategoryPrice != 0 {
		events = append(events, domain.Event{Kind: domain.EventBalanceChanged, ContestID: card.Contest.ID, ContestantID: contestantID})
	}
	s.publish(ctx, events...)
	return sp.ID, nil
}

func purchaseResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, domain.ErrLimitOverflow):
		return "limit_overflow"
	case errors.Is(err, domain.ErrInsufficientPoints):
		return "insufficient_points"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrPermissionDenied):
		return "forbidden"
	default:
		return "error"
	}
}

// logFailure keeps client errors at debug level; anything internal is an error.
func (s *ArenaService) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if domain.KindOf(err) == domain.KindInternal {
		s.log.Error(op+" failed", fields...)
		return
	}
	s.log.Debug(op+" rejected", fields...)
}
