package invitation

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs the expiry sweep on a schedule.
type Sweeper struct {
	cron *cron.Cron
	svc  *Service
	log  *zap.Logger
}

// NewSweeper schedules the sweep. schedule uses cron syntax or the @every
// shorthand.
func NewSweeper(svc *Service, schedule string, log *zap.Logger) (*Sweeper, error) {
	s := &Sweeper{cron: cron.New(), svc: svc, log: log}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule; a sweep in flight finishes.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}

func (s *Sweeper) run() {
	expired, err := s.svc.Sweep()
	if err != nil {
		s.log.Error("Invitation sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.log.Info("Invitation sweep completed", zap.Int64("expired", expired))
	}
}
