package masterdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const unitMapTTL = 10 * time.Minute

// Service resolves reference data lookups. The cost-center to management-unit
// map is cached in redis; concurrent cache misses for the same company are
// collapsed through singleflight so the database sees one refresh.
type Service struct {
	repo  Repository
	cache *redis.Client
	group singleflight.Group
}

// NewService constructs a masterdata service. The cache client may be nil, in
// which case every lookup goes to the repository.
func NewService(repo Repository, cache *redis.Client) *Service {
	return &Service{repo: repo, cache: cache}
}

// GetCompany returns one company record.
func (s *Service) GetCompany(ctx context.Context, id int64) (Company, error) {
	return s.repo.GetCompany(ctx, id)
}

// ListCostCenters returns the company's cost centers.
func (s *Service) ListCostCenters(ctx context.Context, companyID int64) ([]CostCenter, error) {
	return s.repo.ListCostCenters(ctx, companyID)
}

// UnitMap returns the cost-center code to management-unit mapping for a
// company, serving from cache when possible.
func (s *Service) UnitMap(ctx context.Context, companyID int64) (map[string]string, error) {
	key := unitMapKey(companyID)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var cached map[string]string
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		centers, err := s.repo.ListCostCenters(ctx, companyID)
		if err != nil {
			return nil, err
		}
		units := make(map[string]string, len(centers))
		for _, cc := range centers {
			units[cc.Code] = cc.ManagementUnit
		}
		if s.cache != nil {
			if data, err := json.Marshal(units); err == nil {
				// Best effort: a cache write failure only costs the next
				// caller a repository round trip.
				_ = s.cache.Set(ctx, key, data, unitMapTTL).Err()
			}
		}
		return units, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

// InvalidateUnitMap drops the cached mapping after masterdata imports.
func (s *Service) InvalidateUnitMap(ctx context.Context, companyID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, unitMapKey(companyID)).Err()
}

func unitMapKey(companyID int64) string {
	return fmt.Sprintf("masterdata:unitmap:%d", companyID)
}
