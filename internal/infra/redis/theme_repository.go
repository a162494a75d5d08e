package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"jsquiz-service/internal/domain"
)

// ThemeLoader fetches question banks from a backing store (files, Postgres).
type ThemeLoader interface {
	LoadTheme(ctx context.Context, name string) (domain.QuestionSet, error)
	ListThemes(ctx context.Context) ([]string, error)
}

// ThemeRepository caches question banks in Redis and falls back to a loader on cache miss.
// Banks are stored as JSON: SET quiz:theme:{name} {json} EX ttl
type ThemeRepository struct {
	client *redis.Client
	loader ThemeLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewThemeRepository(client *redis.Client, loader ThemeLoader, ttl time.Duration) *ThemeRepository {
	return &ThemeRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ThemeRepository) GetTheme(ctx context.Context, name string) (domain.QuestionSet, error) {
	if set, ok := r.cached(ctx, name); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := r.cached(ctx, name); ok {
			return set, nil
		}

		set, err := r.loader.LoadTheme(ctx, name)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		raw, err := json.Marshal(set)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		// best-effort; the loaded bank is still served when Redis is unavailable
		if err := r.client.Set(ctx, r.key(name), raw, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("cache theme %q: %v", name, err)
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *ThemeRepository) ListThemes(ctx context.Context) ([]string, error) {
	return r.loader.ListThemes(ctx)
}

func (r *ThemeRepository) cached(ctx context.Context, name string) (domain.QuestionSet, bool) {
	raw, err := r.client.Get(ctx, r.key(name)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("read cached theme %q: %v", name, err)
		}
		return domain.QuestionSet{}, false
	}
	var set domain.QuestionSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.QuestionSet{}, false
	}
	return set, true
}

func (r *ThemeRepository) key(name string) string {
	return "quiz:theme:" + name
}

func (r *ThemeRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
