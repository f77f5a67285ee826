package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"tradementor/internal/logging"
	"tradementor/internal/types"
)

// CachedStore layers a TTL read cache over the list queries. Every write
// explicitly invalidates the affected user's cached queries, so the TTL only
// bounds staleness across processes sharing the database file. The cache is
// an explicit component with its own lifetime, not ambient process state.
type CachedStore struct {
	*JournalStore
	cache *gocache.Cache
}

// NewCachedStore wraps a JournalStore with the given TTL.
func NewCachedStore(inner *JournalStore, ttl time.Duration) *CachedStore {
	return &CachedStore{
		JournalStore: inner,
		cache:        gocache.New(ttl, 2*ttl),
	}
}

// ListEntries serves from cache when the same filter was queried within the
// TTL and no write has happened since.
func (s *CachedStore) ListEntries(ctx context.Context, userID string, f types.EntryFilter) ([]types.JournalEntry, error) {
	key := entriesKey(userID, f)
	if v, ok := s.cache.Get(key); ok {
		logging.StoreDebug("cache hit: %s", key)
		return v.([]types.JournalEntry), nil
	}

	entries, err := s.JournalStore.ListEntries(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, entries)
	return entries, nil
}

// ListGoalsWithCheckIns serves from cache within the TTL.
func (s *CachedStore) ListGoalsWithCheckIns(ctx context.Context, userID string) ([]types.GoalWithCheckIns, error) {
	key := "goals:" + userID
	if v, ok := s.cache.Get(key); ok {
		logging.StoreDebug("cache hit: %s", key)
		return v.([]types.GoalWithCheckIns), nil
	}

	goals, err := s.JournalStore.ListGoalsWithCheckIns(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, goals)
	return goals, nil
}

// CreateEntry writes through and invalidates the user's cached queries.
func (s *CachedStore) CreateEntry(ctx context.Context, e *types.JournalEntry) error {
	if err := s.JournalStore.CreateEntry(ctx, e); err != nil {
		return err
	}
	s.invalidate(e.UserID)
	return nil
}

// CreateGoal writes through and invalidates.
func (s *CachedStore) CreateGoal(ctx context.Context, g *types.JournalGoal) error {
	if err := s.JournalStore.CreateGoal(ctx, g); err != nil {
		return err
	}
	s.invalidate(g.UserID)
	return nil
}

// CreateCheckIn writes through and invalidates.
func (s *CachedStore) CreateCheckIn(ctx context.Context, ci *types.JournalCheckIn) error {
	if err := s.JournalStore.CreateCheckIn(ctx, ci); err != nil {
		return err
	}
	s.invalidate(ci.UserID)
	return nil
}

// UpdateGoalProgress writes through and drops all cached goal queries; the
// goal id alone does not identify the owning user.
func (s *CachedStore) UpdateGoalProgress(ctx context.Context, goalID string, progress int, status types.GoalStatus) error {
	if err := s.JournalStore.UpdateGoalProgress(ctx, goalID, progress, status); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}

// DeleteGoal writes through and drops all cached queries.
func (s *CachedStore) DeleteGoal(ctx context.Context, goalID string) error {
	if err := s.JournalStore.DeleteGoal(ctx, goalID); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}

// invalidate drops every cached query belonging to the user.
func (s *CachedStore) invalidate(userID string) {
	for key := range s.cache.Items() {
		if strings.HasSuffix(key, ":"+userID) || strings.Contains(key, ":"+userID+":") {
			s.cache.Delete(key)
		}
	}
	logging.StoreDebug("cache invalidated for user %s", userID)
}

func entriesKey(userID string, f types.EntryFilter) string {
	from, to := "", ""
	if f.From != nil {
		from = f.From.UTC().Format(timeFormat)
	}
	if f.To != nil {
		to = f.To.UTC().Format(timeFormat)
	}
	return fmt.Sprintf("entries:%s:%s|%s|%s|%d", userID, from, to, strings.ToLower(f.Tag), f.Limit)
}
