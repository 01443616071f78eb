// README: Pricing service computes fares from the loaded tariff.
package pricing

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"mototaxi/internal/types"
)

var ErrUnknownClass = errors.New("unknown ride class")

// Fare is round(max(d*PerKmRate, MinimumFare) * (1-PooledDiscount if pooled)).
func Fare(distanceKm float64, class RideClass, cfg Config) types.Money {
	base := math.Max(distanceKm*cfg.PerKmRate, cfg.MinimumFare)
	if class == ClassPooled {
		base *= 1 - cfg.PooledDiscount
	}
	return types.Lempira(int64(math.Round(base)))
}

type ValueSource interface {
	Values(ctx context.Context) (map[string]string, error)
}

type Service struct {
	store ValueSource
	log   logrus.FieldLogger

	mu  sync.RWMutex
	cfg Config
}

func NewService(store ValueSource, defaults Config, log logrus.FieldLogger) *Service {
	return &Service{store: store, cfg: defaults, log: log}
}

// Load reads the tariff once at startup. Any failure keeps the defaults.
func (s *Service) Load(ctx context.Context) {
	if s.store == nil {
		return
	}
	values, err := s.store.Values(ctx)
	if err != nil {
		s.log.WithError(err).Warn("fare config load failed, using defaults")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	apply := func(key string, dst *float64) {
		raw, ok := values[key]
		if !ok {
			return
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			s.log.WithFields(logrus.Fields{"key": key, "value": raw}).Warn("ignoring bad fare config value")
			return
		}
		*dst = v
	}
	apply(KeyPerKmRate, &s.cfg.PerKmRate)
	apply(KeyMinimumFare, &s.cfg.MinimumFare)
	apply(KeyPooledDiscount, &s.cfg.PooledDiscount)
	if s.cfg.PooledDiscount > 1 {
		s.cfg.PooledDiscount = DefaultConfig().PooledDiscount
	}
	s.log.WithFields(logrus.Fields{
		"per_km":   s.cfg.PerKmRate,
		"minimum":  s.cfg.MinimumFare,
		"discount": s.cfg.PooledDiscount,
	}).Info("fare config loaded")
}

func (s *Service) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Service) Estimate(distanceKm float64, class RideClass) types.Money {
	return Fare(distanceKm, class, s.Config())
}
