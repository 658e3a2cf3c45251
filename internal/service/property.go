package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// PropertyService reads offering sale state through a short-TTL cache. The
// offerings service owns the data; the cache only absorbs per-render reads
// from the UI.
type PropertyService struct {
	offerings domain.PropertyService
	cache     domain.PropertyCache
	logger    *slog.Logger
}

// NewPropertyService creates a PropertyService. cache may be nil, in which
// case every read goes to the offerings service.
func NewPropertyService(offerings domain.PropertyService, cache domain.PropertyCache, logger *slog.Logger) *PropertyService {
	return &PropertyService{
		offerings: offerings,
		cache:     cache,
		logger:    logger.With(slog.String("component", "property_service")),
	}
}

// GetProperty returns the sale state for one property, cache-aside.
func (s *PropertyService) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	if s.cache != nil {
		if p, err := s.cache.Get(ctx, id); err == nil {
			return p, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "property_service: cache read failed",
				slog.String("property", id),
				slog.String("error", err.Error()),
			)
		}
	}

	p, err := s.offerings.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, fmt.Errorf("property_service: get %q: %w", id, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.logger.WarnContext(ctx, "property_service: cache write failed",
				slog.String("property", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return p, nil
}

// ListLive returns all properties currently in a live sale.
func (s *PropertyService) ListLive(ctx context.Context) ([]domain.Property, error) {
	props, err := s.offerings.ListLive(ctx)
	if err != nil {
		return nil, fmt.Errorf("property_service: list live: %w", err)
	}
	return props, nil
}

var _ domain.PropertyService = (*PropertyService)(nil)
