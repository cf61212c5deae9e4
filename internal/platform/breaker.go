package platform

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dwsmith1983/actorrelay/internal/metrics"
	"github.com/dwsmith1983/actorrelay/pkg/types"
)

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	FailThreshold int           // consecutive failures before opening (default 5)
	Cooldown      time.Duration // how long to stay open before half-open (default 30s)
	FailWindow    time.Duration // closed-state counting window (default 60s)
}

// DefaultBreakerConfig returns the default config.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailThreshold: 5,
		Cooldown:      30 * time.Second,
		FailWindow:    60 * time.Second,
	}
}

func newBreaker(name string, cfg BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailThreshold <= 0 {
		cfg.FailThreshold = def.FailThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.FailWindow <= 0 {
		cfg.FailWindow = def.FailWindow
	}
	threshold := uint32(cfg.FailThreshold)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.FailWindow,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Only transient failures count; a 4xx for a bad token or unknown
		// actor says nothing about platform health.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return ClassifyFailure(err) == types.FailurePermanent
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				metrics.BreakerOpened.Add(1)
			}
			logger.Warn("platform circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// maxTrackedBreakers bounds the per-key breaker table.
const maxTrackedBreakers = 1024

// breakerSet holds one breaker per account key. Calls made with one key
// never trip the breaker of another; calls sharing a key share its breaker.
type breakerSet struct {
	cfg    BreakerConfig
	logger *slog.Logger

	mu    sync.Mutex
	byKey map[[sha256.Size]byte]*gobreaker.CircuitBreaker
}

func newBreakerSet(cfg BreakerConfig, logger *slog.Logger) *breakerSet {
	return &breakerSet{
		cfg:    cfg,
		logger: logger,
		byKey:  make(map[[sha256.Size]byte]*gobreaker.CircuitBreaker),
	}
}

// forKey returns the breaker for token, creating it on first use. Keys are
// hashed so the table never holds account keys.
func (s *breakerSet) forKey(token string) *gobreaker.CircuitBreaker {
	sum := sha256.Sum256([]byte(token))

	s.mu.Lock()
	defer s.mu.Unlock()
	if cb, ok := s.byKey[sum]; ok {
		return cb
	}
	if len(s.byKey) >= maxTrackedBreakers {
		// Closed breakers carry no state worth keeping.
		for k, cb := range s.byKey {
			if cb.State() == gobreaker.StateClosed {
				delete(s.byKey, k)
			}
		}
	}
	cb := newBreaker("platform/"+hex.EncodeToString(sum[:4]), s.cfg, s.logger)
	s.byKey[sum] = cb
	return cb
}
