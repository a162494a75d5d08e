package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"jsquiz-service/internal/domain"
)

// ProfileStore keeps every profile as JSON in a single hash:
// HSET quiz:profiles {username} {json}
type ProfileStore struct {
	client *redis.Client
}

func NewProfileStore(client *redis.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

// LoadProfile returns the stored profile, creating an empty one on first use.
func (s *ProfileStore) LoadProfile(ctx context.Context, username string) (domain.Profile, error) {
	raw, err := s.client.HGet(ctx, profilesKey, username).Bytes()
	if errors.Is(err, redis.Nil) {
		created, profile, createErr := s.create(ctx, username)
		if createErr != nil {
			return domain.Profile{}, createErr
		}
		if created {
			return profile, nil
		}
		raw, err = s.client.HGet(ctx, profilesKey, username).Bytes()
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return decodeProfile(raw)
}

// FindProfile returns the stored profile or ErrProfileNotFound; it never creates one.
func (s *ProfileStore) FindProfile(ctx context.Context, username string) (domain.Profile, error) {
	raw, err := s.client.HGet(ctx, profilesKey, username).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("find profile: %w", err)
	}
	return decodeProfile(raw)
}

func decodeProfile(raw []byte) (domain.Profile, error) {
	var profile domain.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	if profile.History == nil {
		profile.History = []domain.HistoryEntry{}
	}
	return profile, nil
}

// create stores an empty profile unless one appeared concurrently; HSETNX keeps a racing
// first login from clobbering history.
func (s *ProfileStore) create(ctx context.Context, username string) (bool, domain.Profile, error) {
	profile := domain.NewProfile(username)
	encoded, err := json.Marshal(profile)
	if err != nil {
		return false, domain.Profile{}, err
	}
	created, err := s.client.HSetNX(ctx, profilesKey, username, encoded).Result()
	if err != nil {
		return false, domain.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return created, profile, nil
}

func (s *ProfileStore) SaveProfile(ctx context.Context, profile domain.Profile) error {
	encoded, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, profilesKey, profile.Username, encoded).Err(); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

const profilesKey = "quiz:profiles"
