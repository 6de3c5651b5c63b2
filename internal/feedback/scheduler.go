package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/signalhq/signal-backend/internal/repository"
)

// TriggerFunc submits a feedback_trigger job for one company.
type TriggerFunc func(ctx context.Context, companyID string) error

// Scheduler periodically submits feedback jobs, gated on enough new campaigns
// having been created since the previous run. Without fresh campaigns there is
// nothing for the loops to learn from.
type Scheduler struct {
	records         repository.RecordsRepository
	trigger         TriggerFunc
	spec            string
	minNewCampaigns int
	logger          *logrus.Entry

	cron *cron.Cron

	mu      sync.Mutex
	lastRun time.Time
}

type SchedulerConfig struct {
	Spec            string
	MinNewCampaigns int
}

func NewScheduler(
	records repository.RecordsRepository,
	trigger TriggerFunc,
	config SchedulerConfig,
	logger *logrus.Entry,
) *Scheduler {
	spec := config.Spec
	if spec == "" {
		spec = "@every 1h"
	}
	minNew := config.MinNewCampaigns
	if minNew <= 0 {
		minNew = 5
	}
	return &Scheduler{
		records:         records,
		trigger:         trigger,
		spec:            spec,
		minNewCampaigns: minNew,
		logger:          logger,
		lastRun:         time.Now().UTC(),
	}
}

func (s *Scheduler) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.WithField("spec", s.spec).Info("feedback scheduler started")
	return nil
}

// Stop halts the cron loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.mu.Lock()
	since := s.lastRun
	s.mu.Unlock()

	newCampaigns, err := s.records.CountCampaignsSince(ctx, since)
	if err != nil {
		s.logger.WithError(err).Error("feedback scheduler count failed")
		return
	}
	if newCampaigns < s.minNewCampaigns {
		s.logger.WithFields(logrus.Fields{
			"new_campaigns": newCampaigns,
			"required":      s.minNewCampaigns,
		}).Debug("feedback scheduler below activity gate")
		return
	}

	companies, err := s.records.ListCompanies(ctx)
	if err != nil {
		s.logger.WithError(err).Error("feedback scheduler company list failed")
		return
	}

	triggered := 0
	for _, company := range companies {
		if err := s.trigger(ctx, company.ID); err != nil {
			s.logger.WithError(err).WithField("company_id", company.ID).Warn("feedback trigger failed")
			continue
		}
		triggered++
	}

	s.mu.Lock()
	s.lastRun = time.Now().UTC()
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"new_campaigns": newCampaigns,
		"triggered":     triggered,
	}).Info("feedback scheduler run complete")
}
