package postgres

import (
	"context"
	"fmt"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"github.com/uptrace/bun"
)

// Fixture is a contest definition to insert in one go, mainly for demos and tests.
type Fixture struct {
	Contest     domain.Contest
	Rows        int
	Columns     int
	Cards       []FixtureCard
	Contestants []domain.Contestant
}

type FixtureCard struct {
	CategoryName  string
	CategoryPrice int
	Statement     string
	Answer        string
}

// Seeded holds the ids assigned while inserting a Fixture.
type Seeded struct {
	ContestID     int64
	CardIDs       []int64
	ContestantIDs []int64
}

// Seed inserts a fixture in a single transaction. Contestants start with the
// contest's start points.
func Seed(ctx context.Context, db *bun.DB, f Fixture) (Seeded, error) {
	if err := f.Contest.Validate(); err != nil {
		return Seeded{}, err
	}
	var out Seeded
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		contest := contestModel{
			OrganizerID:         f.Contest.OrganizerID,
			Name:                f.Contest.Name,
			StartedAt:           f.Contest.StartedAt,
			ClosedAt:            f.Contest.ClosedAt,
			StartPoints:         f.Contest.StartPoints,
			SlotsForProblems:    f.Contest.SlotsForProblems,
			RuleType:            string(f.Contest.RuleType),
			AllowNegativePoints: f.Contest.AllowNegativePoints,
		}
		if _, err := tx.NewInsert().Model(&contest).Returning("id").Exec(ctx); err != nil {
			return mapErr(err, "insert contest")
		}
		out.ContestID = contest.ID

		field := quizFieldModel{ContestID: contest.ID, Rows: f.Rows, Columns: f.Columns}
		if _, err := tx.NewInsert().Model(&field).Returning("id").Exec(ctx); err != nil {
			return mapErr(err, "insert quiz field")
		}

		for i, c := range f.Cards {
			if i >= f.Rows*f.Columns {
				return fmt.Errorf("card %d does not fit a %dx%d field: %w", i, f.Rows, f.Columns, domain.ErrInvalidArgument)
			}
			problem := problemModel{Statement: c.Statement, Answer: c.Answer}
			if _, err := tx.NewInsert().Model(&problem).Returning("id").Exec(ctx); err != nil {
				return mapErr(err, "insert problem")
			}
			card := problemCardModel{
				QuizFieldID:   field.ID,
				Row:           i / f.Columns,
				Column:        i % f.Columns,
				CategoryName:  c.CategoryName,
				CategoryPrice: c.CategoryPrice,
				ProblemID:     &problem.ID,
			}
			if _, err := tx.NewInsert().Model(&card).Returning("id").Exec(ctx); err != nil {
				return mapErr(err, "insert problem card")
			}
			out.CardIDs = append(out.CardIDs, card.ID)
		}

		for _, c := range f.Contestants {
			m := contestantModel{UserID: c.UserID, ContestID: contest.ID, Name: c.Name, Points: f.Contest.StartPoints}
			if _, err := tx.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
				return mapErr(err, fmt.Sprintf("insert contestant of user %d", c.UserID))
			}
			out.ContestantIDs = append(out.ContestantIDs, m.ID)
		}
		return nil
	})
	return out, err
}
