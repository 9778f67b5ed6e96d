package factory

import (
	"fmt"

	openaiadapter "github.com/mikey/listserv-triage/internal/adapters/openai"
	"github.com/mikey/listserv-triage/internal/config"
	"github.com/mikey/listserv-triage/internal/core"
	"github.com/mikey/listserv-triage/internal/utils"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ReviewerFactory creates the optional advisory reviewer
type ReviewerFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewReviewerFactory creates a new reviewer factory
func NewReviewerFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ReviewerFactory {
	return &ReviewerFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateReviewer creates the configured reviewer. Returns nil when
// advisory review is disabled.
func (f *ReviewerFactory) CreateReviewer() (core.Reviewer, error) {
	if !f.cfg.GetBool("review.enabled") {
		return nil, nil
	}

	provider := f.cfg.GetString("review.provider")
	switch provider {
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		if openaiCfg.APIKey == "" {
			return nil, fmt.Errorf("review enabled but openai.api_key is empty")
		}
		client := openai.NewClient(openaiCfg.APIKey)
		return openaiadapter.NewReviewer(
			client,
			openaiCfg.ModelName,
			openaiCfg.MaxTokens,
			openaiCfg.Temperature,
			openaiCfg.TopP,
			openaiCfg.MaxBodySize,
			f.logger,
			f.textProcessor,
		), nil
	default:
		return nil, fmt.Errorf("unsupported review provider: %s", provider)
	}
}
