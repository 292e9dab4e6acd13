package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/app"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"golang.org/x/sync/singleflight"
)

// StandingsRepository caches scoreboards with TTL to avoid repeated store scans.
type StandingsRepository struct {
	loader app.StandingsLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedStandings
	gen   map[int64]uint64 // bumped by Invalidate, guarded by mu
}

type cachedStandings struct {
	standings domain.Standings
	expiresAt time.Time
}

func NewStandingsRepository(loader app.StandingsLoader, ttl time.Duration) *StandingsRepository {
	return NewStandingsRepositoryWithClock(loader, ttl, time.Now)
}

// NewStandingsRepositoryWithClock is meant for tests that control expiry.
func NewStandingsRepositoryWithClock(loader app.StandingsLoader, ttl time.Duration, clock func() time.Time) *StandingsRepository {
	return &StandingsRepository{
		loader: loader,
		ttl:    ttl,
		clock:  clock,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedStandings),
		gen:    make(map[int64]uint64),
	}
}

func (r *StandingsRepository) GetStandings(ctx context.Context, contestID int64) (domain.Standings, bool, error) {
	if st, ok := r.lookup(contestID); ok {
		return st, true, nil
	}

	result, err, _ := r.sf.Do(strconv.FormatInt(contestID, 10), func() (interface{}, error) {
		if st, ok := r.lookup(contestID); ok {
			return st, nil
		}
		r.mu.RLock()
		gen := r.gen[contestID]
		r.mu.RUnlock()
		st, err := r.loader.LoadStandings(ctx, contestID)
		if err != nil {
			return domain.Standings{}, err
		}
		if r.ttl > 0 {
			r.mu.Lock()
			// An Invalidate during the load means st may predate the change.
			if r.gen[contestID] == gen {
				r.cache[contestID] = cachedStandings{
					standings: st,
					expiresAt: r.clock().Add(r.ttlWithJitter()),
				}
			}
			r.mu.Unlock()
		}
		return st, nil
	})
	if err != nil {
		return domain.Standings{}, false, err
	}
	return result.(domain.Standings), false, nil
}

func (r *StandingsRepository) Invalidate(_ context.Context, contestID int64) error {
	r.mu.Lock()
	delete(r.cache, contestID)
	r.gen[contestID]++
	r.mu.Unlock()
	r.sf.Forget(strconv.FormatInt(contestID, 10))
	return nil
}

func (r *StandingsRepository) lookup(contestID int64) (domain.Standings, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[contestID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Standings{}, false
	}
	return entry.standings, true
}

func (r *StandingsRepository) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
