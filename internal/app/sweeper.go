package app

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/herbalhaven/booking-core/internal/domain"
	"github.com/herbalhaven/booking-core/internal/metrics"
)

// Sweeper periodically refreshes the bookable-slots gauge for every active
// consultant. It holds no booking state; the store stays the source of
// truth.
type Sweeper struct {
	slots       domain.SlotStore
	consultants domain.ConsultantStore
	interval    time.Duration
	logger      *zap.Logger
	stopChan    chan struct{}
}

func NewSweeper(slots domain.SlotStore, consultants domain.ConsultantStore, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		slots:       slots,
		consultants: consultants,
		interval:    interval,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the background refresh loop.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("starting bookable-slots sweeper", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

// Stop terminates the loop.
func (s *Sweeper) Stop() {
	close(s.stopChan)
}

func (s *Sweeper) run(ctx context.Context) {
	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refresh(ctx)
		case <-s.stopChan:
			s.logger.Info("sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("sweeper cancelled")
			return
		}
	}
}

func (s *Sweeper) refresh(ctx context.Context) {
	consultants, err := s.consultants.ListActiveConsultants(ctx)
	if err != nil {
		s.logger.Error("sweeper: list consultants", zap.Error(err))
		return
	}

	now := time.Now().UTC()
	for _, c := range consultants {
		n, err := s.slots.CountBookable(ctx, c.ID, now)
		if err != nil {
			s.logger.Error("sweeper: count bookable",
				zap.Int64("consultant_id", c.ID),
				zap.Error(err),
			)
			continue
		}
		metrics.SetBookableSlots(strconv.FormatInt(c.ID, 10), n)
	}
}
