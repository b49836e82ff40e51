package products

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/atlas-erp/atlas-erp/internal/platform/cache"
)

// Service provides catalog lookups with a read-through cache. Concurrent
// identical searches collapse into a single storage query.
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

// Search returns products whose name contains term, ascending by name.
func (s *Service) Search(ctx context.Context, term string) ([]Product, error) {
	key := "search:" + strings.ToLower(strings.TrimSpace(term))

	var cached []Product
	if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) && s.logger != nil {
		s.logger.Warn("product cache read", slog.Any("error", err))
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		list, err := s.repo.Search(ctx, term)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetJSON(ctx, key, list); err != nil && s.logger != nil {
			s.logger.Warn("product cache write", slog.Any("error", err))
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Product), nil
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	parsed, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, parsed)
}
