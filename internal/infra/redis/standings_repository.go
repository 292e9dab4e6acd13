package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/app"
	"github.com/NikitaKuzlyaev/GridArena-sub000/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// StandingsRepository caches scoreboards in Redis so every instance shares them.
// A scoreboard is stored as JSON: SET standings:{contestID} <json> EX <ttl>
type StandingsRepository struct {
	client *redis.Client
	loader app.StandingsLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	// genMu orders cache writes against Invalidate: a load that started before
	// an invalidation sees a newer generation and does not store its result.
	genMu sync.Mutex
	gen   map[int64]uint64
}

func NewStandingsRepository(client *redis.Client, loader app.StandingsLoader, ttl time.Duration) *StandingsRepository {
	return &StandingsRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		gen:    make(map[int64]uint64),
	}
}

func (r *StandingsRepository) GetStandings(ctx context.Context, contestID int64) (domain.Standings, bool, error) {
	key := r.key(contestID)
	if st, ok := r.lookup(ctx, key); ok {
		return st, true, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if st, ok := r.lookup(ctx, key); ok {
			return st, nil
		}
		gen := r.generation(contestID)
		st, err := r.loader.LoadStandings(ctx, contestID)
		if err != nil {
			return domain.Standings{}, err
		}
		r.store(ctx, contestID, gen, st)
		return st, nil
	})
	if err != nil {
		return domain.Standings{}, false, err
	}
	return result.(domain.Standings), false, nil
}

// Invalidate only guards loads running in this process. Other instances
// invalidate on their own when they receive the same event.
func (r *StandingsRepository) Invalidate(ctx context.Context, contestID int64) error {
	key := r.key(contestID)
	r.genMu.Lock()
	r.gen[contestID]++
	r.genMu.Unlock()
	r.sf.Forget(key)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (r *StandingsRepository) generation(contestID int64) uint64 {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	return r.gen[contestID]
}

func (r *StandingsRepository) store(ctx context.Context, contestID int64, gen uint64, st domain.Standings) {
	ttl := r.ttlWithJitter()
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return
	}
	r.genMu.Lock()
	defer r.genMu.Unlock()
	if r.gen[contestID] != gen {
		return
	}
	// A failed write only costs the next reader a reload.
	_ = r.client.Set(ctx, r.key(contestID), raw, ttl).Err()
}

func (r *StandingsRepository) lookup(ctx context.Context, key string) (domain.Standings, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Standings{}, false
	}
	var st domain.Standings
	if err := json.Unmarshal(raw, &st); err != nil {
		return domain.Standings{}, false
	}
	return st, true
}

func (r *StandingsRepository) key(contestID int64) string {
	return "standings:" + strconv.FormatInt(contestID, 10)
}

func (r *StandingsRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
