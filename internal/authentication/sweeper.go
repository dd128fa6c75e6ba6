package authentication

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically purges refresh token records past their expiry.
// Nothing depends on the sweep for correctness: an expired record can never
// validate a refresh anyway. It only keeps the table from growing without
// bound under sessions that are abandoned rather than logged out.
type Sweeper struct {
	recordRepo RecordRepository
	logger     *zap.Logger
	interval   time.Duration
	stop       chan struct{}
	done       chan struct{}
}

func NewSweeper(recordRepo RecordRepository, logger *zap.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		recordRepo: recordRepo,
		logger:     logger,
		interval:   interval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	purged, err := s.recordRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("refresh record sweep failed", zap.Error(err))
		return
	}
	if purged > 0 {
		s.logger.Info("purged expired refresh records", zap.Int64("count", purged))
	}
}
