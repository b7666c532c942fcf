package app

import (
	"context"
	"time"

	"github.com/adhocore/gronx"

	"github.com/smartkrishi/smsgate/pkg/logger"
)

// ---------------------------------------------------------------------------
// Janitor
// ---------------------------------------------------------------------------

// JanitorService evicts idle backend sessions on a cron schedule so the
// session cache stays bounded even with an unbounded recipient population.
// History records are never touched.
type JanitorService struct {
	conv     *ConversationService
	schedule string
	ttl      time.Duration
	gron     *gronx.Gronx
}

// NewJanitorService creates the janitor. An empty schedule disables it.
func NewJanitorService(conv *ConversationService, schedule string, ttl time.Duration) *JanitorService {
	return &JanitorService{
		conv:     conv,
		schedule: schedule,
		ttl:      ttl,
		gron:     gronx.New(),
	}
}

// Run checks the schedule once a minute until ctx is cancelled.
func (s *JanitorService) Run(ctx context.Context) {
	if s.schedule == "" || s.ttl <= 0 {
		logger.InfoC("janitor", "Janitor disabled")
		return
	}

	logger.InfoCF("janitor", "Janitor started", map[string]interface{}{
		"schedule": s.schedule,
		"ttl":      s.ttl.String(),
	})

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			due, err := s.gron.IsDue(s.schedule, now)
			if err != nil {
				logger.WarnCF("janitor", "Bad schedule expression", map[string]interface{}{
					"schedule": s.schedule,
					"error":    err.Error(),
				})
				return
			}
			if due {
				s.conv.EvictIdleSessions(s.ttl)
			}
		case <-ctx.Done():
			logger.InfoC("janitor", "Janitor stopped")
			return
		}
	}
}
