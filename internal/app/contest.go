package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultSubmissionLimit = 30
	maxSubmissionLimit     = 100
)

// GetContestSubmissions returns the latest submissions of a contest. It is open
// to the organizer and to the contest's contestants; onlyMine narrows the feed
// to the caller's own submissions.
func (s *ArenaService) GetContestSubmissions(ctx context.Context, userID, contestID int64, onlyMine bool, limit int) (domain.SubmissionFeed, error) {
	switch {
	case limit <= 0:
		limit = defaultSubmissionLimit
	case limit > maxSubmissionLimit:
		limit = maxSubmissionLimit
	}

	var feed domain.SubmissionFeed
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		contest, err := tx.Contest(ctx, contestID)
		if err != nil {
			return err
		}
		if err := s.access.CanViewContest(ctx, tx, userID, contest); err != nil {
			return err
		}
		feed = domain.SubmissionFeed{
			ContestID:   contest.ID,
			Name:        contest.Name,
			StartedAt:   contest.StartedAt,
			ClosedAt:    contest.ClosedAt,
			Limit:       limit,
			Submissions: []domain.ContestSubmission{},
		}

		var contestantID int64
		if onlyMine {
			c, err := tx.ContestantByUserID(ctx, userID)
			if err != nil || c.ContestID != contest.ID {
				// The organizer has no submissions of their own.
				return nil
			}
			contestantID = c.ID
		}
		rows, err := tx.ContestSubmissions(ctx, contest.ID, contestantID, limit)
		if err != nil {
			return err
		}
		feed.Submissions = append(feed.Submissions, rows...)
		return nil
	})
	if err != nil {
		return domain.SubmissionFeed{}, err
	}
	return feed, nil
}

// RegisterContestant lets the organizer add a user to their contest. The new
// contestant starts with the contest's start points.
func (s *ArenaService) RegisterContestant(ctx context.Context, organizerID, contestID, userID int64, name string) (domain.Contestant, error) {
	name = strings.TrimSpace(name)
	if err := domain.ValidateContestantName(name); err != nil {
		return domain.Contestant{}, err
	}
	if userID <= 0 {
		return domain.Contestant{}, fmt.Errorf("%w: bad user id %d", domain.ErrInvalidArgument, userID)
	}

	var c domain.Contestant
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		contest, err := tx.Contest(ctx, contestID)
		if err != nil {
			return err
		}
		if err := s.access.CanManageContest(ctx, tx, organizerID, contest); err != nil {
			return err
		}
		c = domain.Contestant{
			UserID:    userID,
			ContestID: contest.ID,
			Name:      name,
			Points:    contest.StartPoints,
			CreatedAt: s.now(),
		}
		if err := tx.CreateContestant(ctx, &c); err != nil {
			return err
		}
		return s.writeLog(ctx, tx, c.ID, domain.LogInfo, "You joined the contest with %d points.", c.Points)
	})
	if err != nil {
		s.logFailure("register contestant", err, zap.Int64("contest_id", contestID), zap.Int64("user_id", userID))
		return domain.Contestant{}, err
	}

	s.log.Info("contestant registered",
		zap.Int64("contest_id", contestID),
		zap.Int64("contestant_id", c.ID),
		zap.Int64("user_id", userID))
	s.publish(ctx, domain.Event{Kind: domain.EventContestantJoined, ContestID: contestID, ContestantID: c.ID})
	return c, nil
}
