package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/somaedu/soma-backend/core"
)

// quotaRegistry hands out one limiter per parent account. Child sessions
// draw from their owning parent's allowance.
type quotaRegistry struct {
	limit    rate.Limit
	burst    int
	mutex    sync.Mutex
	limiters map[string]*rate.Limiter
}

func newQuotaRegistry(conf core.QuotaConfig) *quotaRegistry {
	// floor misconfigured quotas at one request per window
	requests := conf.GenerationRequests
	if requests < 1 {
		requests = 1
	}
	window := conf.Window
	if window <= 0 {
		window = time.Hour
	}
	return &quotaRegistry{
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (reg *quotaRegistry) limiter(parentID string) *rate.Limiter {
	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	lim, ok := reg.limiters[parentID]
	if !ok {
		lim = rate.NewLimiter(reg.limit, reg.burst)
		reg.limiters[parentID] = lim
	}
	return lim
}

// generationQuota rejects over-quota calls before any work is admitted.
func generationQuota(reg *quotaRegistry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			s, err := contextSession(ctx)
			if err != nil {
				return err
			}
			if !reg.limiter(s.OwnerParentID()).Allow() {
				return errQuotaExceeded
			}
			return next(ctx)
		}
	}
}
