package scheduler

import (
	"context"
	"time"

	"eslatma_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// tickTimeout bounds one full delivery pass.
const tickTimeout = time.Minute

// DeliveryScheduler drives the periodic delivery pass on a fixed interval.
// SkipIfStillRunning guarantees passes never overlap: a pass that outlives
// the interval simply absorbs the next tick.
type DeliveryScheduler struct {
	cronEngine *cron.Cron
	runner     app.DeliveryRunner
	logger     *logrus.Entry
	cronSpec   string
}

func NewDeliveryScheduler(runner app.DeliveryRunner, logger *logrus.Entry, cronSpec string) *DeliveryScheduler {
	return &DeliveryScheduler{
		cronEngine: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		runner:   runner,
		logger:   logger,
		cronSpec: cronSpec,
	}
}

func (s *DeliveryScheduler) Start() {
	s.logger.WithField("cron_spec", s.cronSpec).Info("Starting delivery scheduler")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
		defer cancel()

		if err := s.runner.RunPass(ctx, time.Now().UTC()); err != nil {
			s.logger.WithError(err).Error("Delivery pass failed")
		}
	})
	if err != nil {
		s.logger.WithError(err).Fatal("Could not register delivery tick cron job")
	}

	s.cronEngine.Start()
	s.logger.Info("Delivery scheduler started")
}

func (s *DeliveryScheduler) Stop() {
	s.logger.Info("Stopping delivery scheduler...")
	ctx := s.cronEngine.Stop() // waits for a running pass to finish
	<-ctx.Done()
	s.logger.Info("Delivery scheduler gracefully stopped")
}
