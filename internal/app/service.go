package app

import (
	"context"
	"fmt"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"go.uber.org/zap"
)

// ArenaService contains the contestant use cases: buying cards, answering them
// and reading the resulting state.
type ArenaService struct {
	store     Store
	access    AccessChecker
	now       Clock
	publisher Publisher
	metrics   Metrics
	log       *zap.Logger
}

// Option customizes an ArenaService.
type Option func(*ArenaService)

func WithClock(now Clock) Option { return func(s *ArenaService) { s.now = now } }

func WithAccessChecker(a AccessChecker) Option { return func(s *ArenaService) { s.access = a } }

func WithPublisher(p Publisher) Option { return func(s *ArenaService) { s.publisher = p } }

func WithMetrics(m Metrics) Option { return func(s *ArenaService) { s.metrics = m } }

func WithLogger(l *zap.Logger) Option { return func(s *ArenaService) { s.log = l } }

func NewArenaService(store Store, opts ...Option) *ArenaService {
	s := &ArenaService{
		store:     store,
		access:    ContestAccess{},
		now:       time.Now,
		publisher: nopPublisher{},
		metrics:   nopMetrics{},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// publish delivers events after the transaction committed. Failures only cost
// freshness of cached standings, so they are logged and dropped.
func (s *ArenaService) publish(ctx context.Context, events ...domain.Event) {
	for _, ev := range events {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.Warn("publish event failed",
				zap.Stringer("kind", ev.Kind),
				zap.Int64("contest_id", ev.ContestID),
				zap.Error(err))
		}
	}
}

func (s *ArenaService) writeLog(ctx context.Context, tx Tx, contestantID int64, level domain.LogLevel, format string, args ...any) error {
	entry := &domain.ContestantLog{
		ContestantID: contestantID,
		Level:        level,
		Content:      fmt.Sprintf(format, args...),
		CreatedAt:    s.now(),
	}
	if err := tx.CreateContestantLog(ctx, entry); err != nil {
		return fmt.Errorf("write contestant log: %w", err)
	}
	return nil
}
