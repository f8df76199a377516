// Package settlement syncs cleared bets from the exchange into the
// engine's recent-results feed on a cron schedule.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/lay-engine/internal/metrics"
	"github.com/yourusername/lay-engine/internal/models"
)

const (
	defaultSchedule = "@every 10m"
	lookbackWindow  = 24 * time.Hour
	syncTimeout     = 30 * time.Second
)

// ClearedLister is the exchange surface the sync job consumes
type ClearedLister interface {
	IsAuthenticated() bool
	ListCleared(ctx context.Context, from, to time.Time) ([]models.ClearedBet, error)
}

// ResultSink receives settled bets as they are discovered
type ResultSink interface {
	RecordResults(cleared []models.ClearedBet)
}

// Service runs the periodic cleared-bets sync
type Service struct {
	client   ClearedLister
	sink     ResultSink
	logger   logrus.FieldLogger
	cron     *cron.Cron
	schedule string
	now      func() time.Time
}

// NewService builds the sync job. An empty schedule falls back to
// every ten minutes.
func NewService(client ClearedLister, sink ResultSink, schedule string, logger logrus.FieldLogger) *Service {
	if schedule == "" {
		schedule = defaultSchedule
	}
	return &Service{
		client:   client,
		sink:     sink,
		logger:   logger,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		schedule: schedule,
		now:      time.Now,
	}
}

// Start registers the sync job and starts the cron runner
func (s *Service) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		if err := s.SyncNow(ctx); err != nil {
			s.logger.WithError(err).Warn("settlement sync failed")
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling settlement sync %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", s.schedule).Info("settlement sync scheduled")
	return nil
}

// Stop halts the cron runner and waits for a running sync to finish
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

// SyncNow fetches bets settled in the lookback window and hands them
// to the sink. Skipped while the exchange session is down; the next
// run picks the window up again.
func (s *Service) SyncNow(ctx context.Context) error {
	if !s.client.IsAuthenticated() {
		s.logger.Debug("settlement sync skipped, no exchange session")
		return nil
	}
	to := s.now()
	from := to.Add(-lookbackWindow)

	cleared, err := s.client.ListCleared(ctx, from, to)
	if err != nil {
		return fmt.Errorf("listing cleared bets: %w", err)
	}
	metrics.SettlementSyncsTotal.Inc()
	if len(cleared) == 0 {
		return nil
	}
	s.sink.RecordResults(cleared)
	s.logger.WithField("cleared", len(cleared)).Info("settled bets synced")
	return nil
}
