package app

import (
	"context"
	"fmt"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
)

// GetQuizFieldForContestant shows the contest grid from the contestant's side:
// every card with its purchase status and whether BuyProblem would accept it now.
func (s *ArenaService) GetQuizFieldForContestant(ctx context.Context, contestantID int64) (domain.QuizFieldView, error) {
	var view domain.QuizFieldView
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		contestant, err := tx.Contestant(ctx, contestantID)
		if err != nil {
			return err
		}
		contest, err := tx.Contest(ctx, contestant.ContestID)
		if err != nil {
			return err
		}
		field, err := tx.QuizFieldByContest(ctx, contest.ID)
		if err != nil {
			return err
		}
		cards, err := tx.ProblemCardsInField(ctx, field.ID)
		if err != nil {
			return fmt.Errorf("cards of quiz field %d: %w", field.ID, err)
		}
		bought, err := tx.ListSelectedProblems(ctx, contestant.ID)
		if err != nil {
			return fmt.Errorf("list selected problems: %w", err)
		}

		byCard := make(map[int64]domain.SelectedProblemStatus, len(bought))
		active := 0
		for _, sp := range bought {
			byCard[sp.ProblemCardID] = sp.Status
			if sp.Status == domain.StatusActive {
				active++
			}
		}
		open := contest.IsOpen(s.now())
		hasSlot := active < contest.SlotsForProblems

		view = domain.QuizFieldView{
			QuizFieldID: field.ID,
			ContestID:   contest.ID,
			Rows:        field.Rows,
			Columns:     field.Columns,
			Cards:       make([]domain.CardView, 0, len(cards)),
		}
		for _, card := range cards {
			cv := domain.CardView{
				ProblemCardID: card.ID,
				Row:           card.Row,
				Column:        card.Column,
				CategoryName:  card.CategoryName,
				CategoryPrice: card.CategoryPrice,
				Status:        domain.CardClosed,
			}
			if st, ok := byCard[card.ID]; ok {
				if cv.Status, err = domain.CardStatusOf(st); err != nil {
					return err
				}
			} else {
				affordable := card.CategoryPrice <= contestant.Points || contest.AllowNegativePoints
				cv.IsOpenForBuy = open && hasSlot && affordable && card.ProblemID != nil
				if cv.IsOpenForBuy {
					cv.Status = domain.CardOpen
				}
			}
			view.Cards = append(view.Cards, cv)
		}
		return nil
	})
	if err != nil {
		return domain.QuizFieldView{}, err
	}
	return view, nil
}
