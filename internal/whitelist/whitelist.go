package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker decides whether mail from a given listserv should be ingested.
// An empty allow list accepts everything.
type Checker struct {
	listservs []string
	logger    *zap.Logger
}

// NewChecker creates a new allowlist checker
func NewChecker(listservs []string, logger *zap.Logger) *Checker {
	normalized := make([]string, len(listservs))
	for i, l := range listservs {
		normalized[i] = strings.ToLower(strings.TrimSpace(l))
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized listserv allowlist", zap.Strings("listservs", normalized))
	}

	return &Checker{
		listservs: normalized,
		logger:    logger,
	}
}

// IsAllowed checks the listserv name against the allow list. The sender
// domain is matched as a fallback when the listserv name does not match.
func (c *Checker) IsAllowed(listserv, from string) bool {
	if len(c.listservs) == 0 {
		return true
	}

	candidates := []string{strings.ToLower(strings.TrimSpace(listserv))}
	if parts := strings.Split(from, "@"); len(parts) == 2 {
		candidates = append(candidates, strings.ToLower(parts[1]))
	}

	for _, allowed := range c.listservs {
		for _, candidate := range candidates {
			if candidate != "" && candidate == allowed {
				if c.logger != nil {
					c.logger.Debug("Listserv is allowed",
						zap.String("listserv", listserv),
						zap.String("matched", candidate))
				}
				return true
			}
		}
	}

	return false
}
