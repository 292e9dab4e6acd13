package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"go.uber.org/zap"
)

// StandingsLoader computes a scoreboard from the source of truth.
type StandingsLoader interface {
	LoadStandings(ctx context.Context, contestID int64) (domain.Standings, error)
}

// StandingsHub serves cached standings and pushes fresh ones to live subscribers
// whenever a balance changes in their contest.
type StandingsHub struct {
	repo StandingsRepository
	log  *zap.Logger

	mu    sync.Mutex
	feeds map[int64]map[chan domain.Standings]struct{}
}

func NewStandingsHub(repo StandingsRepository, log *zap.Logger) *StandingsHub {
	if log == nil {
		log = zap.NewNop()
	}
	return &StandingsHub{
		repo:  repo,
		log:   log,
		feeds: make(map[int64]map[chan domain.Standings]struct{}),
	}
}

// Standings returns the scoreboard of a contest. The bool reports a cache hit.
func (h *StandingsHub) Standings(ctx context.Context, contestID int64) (domain.Standings, bool, error) {
	return h.repo.GetStandings(ctx, contestID)
}

// Subscribe returns a channel that receives standings updates for a contest,
// starting with the current snapshot. The caller must invoke cancel.
func (h *StandingsHub) Subscribe(ctx context.Context, contestID int64) (<-chan domain.Standings, func(), error) {
	initial, _, err := h.repo.GetStandings(ctx, contestID)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.Standings, 8)
	ch <- initial

	h.mu.Lock()
	subs, ok := h.feeds[contestID]
	if !ok {
		subs = make(map[chan domain.Standings]struct{})
		h.feeds[contestID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.feeds[contestID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.feeds, contestID)
		}
	}
	return ch, cancel, nil
}

// Subscribers reports how many live feeds a contest has.
func (h *StandingsHub) Subscribers(contestID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.feeds[contestID])
}

// Run consumes events until ctx is done.
func (h *StandingsHub) Run(ctx context.Context, sub Subscriber) error {
	events, cancel, err := sub.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to events: %w", err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			h.Handle(ctx, ev)
		}
	}
}

// Handle applies a single event.
func (h *StandingsHub) Handle(ctx context.Context, ev domain.Event) {
	switch ev.Kind {
	case domain.EventBalanceChanged, domain.EventContestantJoined:
		if err := h.Refresh(ctx, ev.ContestID); err != nil {
			h.log.Warn("refresh standings failed", zap.Int64("contest_id", ev.ContestID), zap.Error(err))
		}
	case domain.EventProblemBought, domain.EventSubmissionJudged:
		h.log.Debug("event observed",
			zap.Stringer("kind", ev.Kind),
			zap.Int64("contest_id", ev.ContestID),
			zap.Int64("contestant_id", ev.ContestantID))
	default:
		h.log.Warn("unknown event kind", zap.Int("kind", int(ev.Kind)))
	}
}

// Refresh drops the cached scoreboard and, if anyone is watching, broadcasts a new one.
func (h *StandingsHub) Refresh(ctx context.Context, contestID int64) error {
	if err := h.repo.Invalidate(ctx, contestID); err != nil {
		return fmt.Errorf("invalidate standings: %w", err)
	}
	if h.Subscribers(contestID) == 0 {
		return nil
	}
	st, _, err := h.repo.GetStandings(ctx, contestID)
	if err != nil {
		return err
	}
	h.broadcast(contestID, st)
	return nil
}

func (h *StandingsHub) broadcast(contestID int64, st domain.Standings) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.feeds[contestID] {
		select {
		case ch <- st:
		default:
			// Slow reader: replace its oldest update with the newest one.
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}
