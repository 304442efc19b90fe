package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/wabahub/internal/config"
	"github.com/mamadbah2/wabahub/internal/domain/models"
)

const syncTimeout = 10 * time.Minute

// OrganizationLister lists the tenants a run visits.
type OrganizationLister interface {
	ListActiveOrganizations(ctx context.Context) ([]models.Organization, error)
}

// ConfigReader loads a tenant's WhatsApp configuration.
type ConfigReader interface {
	Get(ctx context.Context, orgID string) (*models.WhatsAppConfig, error)
}

// TemplateSyncer reconciles one tenant's templates.
type TemplateSyncer interface {
	SyncTemplates(ctx context.Context, orgID string) (int, error)
}

// RunSummary reports the outcome of one reconciliation run.
type RunSummary struct {
	Synced  int
	Skipped int
	Failed  int
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	orgs    OrganizationLister
	configs ConfigReader
	syncer  TemplateSyncer
	logger  *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.SchedulerConfig, orgs OrganizationLister, configs ConfigReader, syncer TemplateSyncer, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	// standard 5 field cron spec (min, hour, dom, month, dow)
	c := cron.New()

	return &Scheduler{
		cron:    c,
		spec:    cfg.TemplateSyncCron,
		orgs:    orgs,
		configs: configs,
		syncer:  syncer,
		logger:  logger,
	}
}

// Start registers the template sync job and starts the scheduler. An empty
// cron spec leaves the scheduler idle.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.logger.Info("template sync schedule disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.syncAll); err != nil {
		return fmt.Errorf("failed to schedule template sync %q: %w", s.spec, err)
	}

	s.logger.Info("starting scheduler", zap.String("template_sync", s.spec))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) syncAll() {
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	if _, err := s.RunTemplateSync(ctx); err != nil {
		s.logger.Error("template sync run failed", zap.Error(err))
	}
}

// RunTemplateSync reconciles the templates of every active tenant whose
// configuration is complete. A failing tenant does not stop the run.
func (s *Scheduler) RunTemplateSync(ctx context.Context) (RunSummary, error) {
	var summary RunSummary

	orgs, err := s.orgs.ListActiveOrganizations(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list organizations: %w", err)
	}

	for _, org := range orgs {
		logger := s.logger.With(zap.String("org_id", org.ID))

		cfg, err := s.configs.Get(ctx, org.ID)
		if err != nil {
			logger.Warn("failed to load whatsapp config", zap.Error(err))
			summary.Failed++
			continue
		}
		if missing := cfg.MissingCredentials(); len(missing) > 0 {
			summary.Skipped++
			continue
		}

		n, err := s.syncer.SyncTemplates(ctx, org.ID)
		if err != nil {
			logger.Warn("template sync failed", zap.Error(err))
			summary.Failed++
			continue
		}
		logger.Debug("templates synced", zap.Int("count", n))
		summary.Synced++
	}

	s.logger.Info("template sync run completed",
		zap.Int("synced", summary.Synced),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}
