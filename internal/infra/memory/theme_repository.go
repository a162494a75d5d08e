package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"jsquiz-service/internal/domain"
)

// ThemeLoader fetches question banks from a backing store (files, Postgres).
type ThemeLoader interface {
	LoadTheme(ctx context.Context, name string) (domain.QuestionSet, error)
	ListThemes(ctx context.Context) ([]string, error)
}

// ThemeRepository caches question banks with TTL to avoid repeated loads.
type ThemeRepository struct {
	loader ThemeLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedTheme
}

type cachedTheme struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewThemeRepository(loader ThemeLoader, ttl time.Duration) *ThemeRepository {
	return &ThemeRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedTheme),
	}
}

func (r *ThemeRepository) GetTheme(ctx context.Context, name string) (domain.QuestionSet, error) {
	if set, ok := r.cached(name); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(name, func() (interface{}, error) {
		if set, ok := r.cached(name); ok {
			return set, nil
		}

		set, err := r.loader.LoadTheme(ctx, name)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		r.mu.Lock()
		r.cache[name] = cachedTheme{
			set:       set,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// ListThemes is not cached; catalogs are small and change when files are added.
func (r *ThemeRepository) ListThemes(ctx context.Context) ([]string, error) {
	return r.loader.ListThemes(ctx)
}

func (r *ThemeRepository) cached(name string) (domain.QuestionSet, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[name]; ok && entry.expiresAt.After(now) {
		return entry.set, true
	}
	return domain.QuestionSet{}, false
}

func (r *ThemeRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticThemeLoader is a loader backed by an in-memory map (useful for tests/demos).
type StaticThemeLoader struct {
	themes map[string]domain.QuestionSet
}

func NewStaticThemeLoader(themes map[string]domain.QuestionSet) *StaticThemeLoader {
	return &StaticThemeLoader{themes: themes}
}

func (l *StaticThemeLoader) LoadTheme(_ context.Context, name string) (domain.QuestionSet, error) {
	if set, ok := l.themes[name]; ok {
		if set.Theme == "" {
			set.Theme = name
		}
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrThemeNotFound
}

func (l *StaticThemeLoader) ListThemes(context.Context) ([]string, error) {
	names := make([]string, 0, len(l.themes))
	for name := range l.themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
