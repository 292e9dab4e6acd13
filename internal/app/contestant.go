package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
)

const (
	defaultLogLimit = 20
	maxLogLimit     = 100
)

// ResolveContestant maps an authenticated user to their contestant.
func (s *ArenaService) ResolveContestant(ctx context.Context, userID int64) (domain.Contestant, error) {
	var c domain.Contestant
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		c, err = tx.ContestantByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("contestant of user %d: %w", userID, err)
		}
		return nil
	})
	return c, err
}

// GetContestantInfo summarizes balance, slot usage and the contest window.
func (s *ArenaService) GetContestantInfo(ctx context.Context, contestantID int64) (domain.ContestantInfo, error) {
	var info domain.ContestantInfo
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.Contestant(ctx, contestantID)
		if err != nil {
			return fmt.Errorf("contestant %d: %w", contestantID, err)
		}
		contest, err := tx.Contest(ctx, c.ContestID)
		if err != nil {
			return fmt.Errorf("contest %d: %w", c.ContestID, err)
		}
		active, err := tx.ListSelectedProblems(ctx, c.ID, domain.StatusActive)
		if err != nil {
			return fmt.Errorf("list active problems: %w", err)
		}
		info = domain.ContestantInfo{
			ContestantID:    c.ID,
			Name:            c.Name,
			Points:          c.Points,
			ProblemsCurrent: len(active),
			ProblemsMax:     contest.SlotsForProblems,
			ContestID:       contest.ID,
			ContestName:     contest.Name,
			StartedAt:       contest.StartedAt,
			ClosedAt:        contest.ClosedAt,
			IsOpen:          contest.IsOpen(s.now()),
		}
		return nil
	})
	return info, err
}

// GetContestantLogs pages through the contestant's activity feed, newest first.
func (s *ArenaService) GetContestantLogs(ctx context.Context, contestantID int64, offset, limit int) (domain.LogPage, error) {
	if offset < 0 {
		offset = 0
	}
	switch {
	case limit <= 0:
		limit = defaultLogLimit
	case limit > maxLogLimit:
		limit = maxLogLimit
	}

	page := domain.LogPage{Offset: offset, Limit: limit}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Contestant(ctx, contestantID); err != nil {
			return fmt.Errorf("contestant %d: %w", contestantID, err)
		}
		logs, total, err := tx.ContestantLogs(ctx, contestantID, offset, limit)
		if err != nil {
			return fmt.Errorf("contestant logs: %w", err)
		}
		page.Total = total
		page.Entries = make([]domain.LogEntry, 0, len(logs))
		for _, l := range logs {
			page.Entries = append(page.Entries, domain.LogEntry{
				ID:        l.ID,
				Level:     l.Level,
				Content:   l.Content,
				CreatedAt: l.CreatedAt,
			})
		}
		return nil
	})
	return page, err
}

// LoadStandings builds a contest scoreboard straight from the store.
func (s *ArenaService) LoadStandings(ctx context.Context, contestID int64) (domain.Standings, error) {
	var out domain.Standings
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Contest(ctx, contestID); err != nil {
			return fmt.Errorf("contest %d: %w", contestID, err)
		}
		contestants, err := tx.ContestantsInContest(ctx, contestID)
		if err != nil {
			return fmt.Errorf("contestants of contest %d: %w", contestID, err)
		}
		out = BuildStandings(contestID, contestants, s.now())
		return nil
	})
	return out, err
}

// BuildStandings orders contestants by points, then by name.
func BuildStandings(contestID int64, contestants []domain.Contestant, now time.Time) domain.Standings {
	entries := make([]domain.StandingsEntry, 0, len(contestants))
	for _, c := range contestants {
		entries = append(entries, domain.StandingsEntry{ContestantID: c.ID, Name: c.Name, Points: c.Points})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].ContestantID < entries[j].ContestantID
	})
	return domain.Standings{ContestID: contestID, Entries: entries, UpdatedAt: now}
}
