package customers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/atlas-erp/atlas-erp/internal/platform/cache"
)

// Service provides customer lookups with a read-through cache.
type Service struct {
	repo   Repository
	cache  *cache.JSONCache
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service. cache may be nil to disable caching.
func NewService(repo Repository, c *cache.JSONCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: c, logger: logger}
}

// Search returns customers whose name contains term, ascending by name.
func (s *Service) Search(ctx context.Context, term string) ([]Customer, error) {
	key := "search:" + strings.ToLower(strings.TrimSpace(term))

	var cached []Customer
	if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) && s.logger != nil {
		s.logger.Warn("customer cache read", slog.Any("error", err))
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		list, err := s.repo.Search(ctx, term)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetJSON(ctx, key, list); err != nil && s.logger != nil {
			s.logger.Warn("customer cache write", slog.Any("error", err))
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Customer), nil
}

// Get returns a single customer.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.repo.Get(ctx, id)
}
