package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/listserv-triage/internal/config"
	"github.com/mikey/listserv-triage/internal/core"
	"github.com/mikey/listserv-triage/internal/factory"
	"github.com/mikey/listserv-triage/internal/logging"
	"github.com/mikey/listserv-triage/internal/ports"
	"github.com/mikey/listserv-triage/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewReviewerFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewServerFactory); err != nil {
		return nil, err
	}

	// Register email store
	if err := container.Provide(func(f *factory.StoreFactory) (core.EmailStore, error) {
		return f.CreateEmailStore()
	}); err != nil {
		return nil, err
	}

	// Register advisory reviewer (nil when disabled)
	if err := container.Provide(func(f *factory.ReviewerFactory) (core.Reviewer, error) {
		return f.CreateReviewer()
	}); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(core.NewClassifier); err != nil {
		return nil, err
	}

	// Register ingestion service with configured retention
	if err := container.Provide(func(
		store core.EmailStore,
		classifier *core.Classifier,
		reviewer core.Reviewer,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.IngestService, error) {
		svc := core.NewIngestService(store, classifier, reviewer, logger)
		maxAge, err := cfg.GetDuration("retention.max_age")
		if err != nil {
			return nil, err
		}
		sweepFreq, err := cfg.GetDuration("retention.sweep_frequency")
		if err != nil {
			return nil, err
		}
		svc.SetRetention(maxAge, sweepFreq)
		return svc, nil
	}); err != nil {
		return nil, err
	}

	// Register ingestion servers
	if err := container.Provide(func(f *factory.ServerFactory, store core.EmailStore, ingest *core.IngestService) []ports.IngestServer {
		return f.CreateServers(store, ingest)
	}); err != nil {
		return nil, err
	}

	return container, nil
}
